// Package middleware provides HTTP middleware for the motion detection
// backend.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics
//   - Device token authentication for the upload endpoint
package middleware
