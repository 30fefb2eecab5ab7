// Package transcoder converts raw motion-capture clips into
// browser-playable MP4 files using FFmpeg.
//
// It provides:
//   - Encoder and Prober ports so tests can substitute fakes
//   - FFmpeg/FFprobe subprocess implementations with timeouts
//   - The deferred job that rewrites a catalog record after conversion
//
// Subprocesses are invoked with argument vectors, never shell strings.
package transcoder
