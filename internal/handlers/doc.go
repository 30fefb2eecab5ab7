// Package handlers implements the HTTP API of the motion detection
// backend: upload intake from the capture device, byte-range video
// streaming, poster thumbnails, and the calendar style listing
// endpoints the frontend paginates over.
package handlers
