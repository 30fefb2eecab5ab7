// Package database provides SQLite storage for the motion detection
// backend.
//
// It holds:
//   - The catalog of motion-detected recordings and their processing state
//   - The durable job queue consumed by the pipeline dispatcher
//   - The device upload token used to authenticate the camera
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization.
package database
