// Package streaming implements HTTP byte-range semantics for video
// playback: Range header parsing and constant-memory chunked copying of a
// file span to the response.
//
// Only single ranges of the form "bytes=start-end" (end optional) are
// supported, which is what browser video elements send when seeking. A
// parsed range outside the file, or with start > end, is unsatisfiable
// and must be answered with 416. A Range header that does not match the
// expected form at all is ignored and the full file is served with 200.
package streaming

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
)

// DefaultChunkSize bounds each read while streaming, keeping memory flat
// regardless of the requested span.
const DefaultChunkSize = 256 * 1024

// ErrUnsatisfiable indicates a syntactically valid range that lies outside
// the file. Handlers answer it with 416 Range Not Satisfiable.
var ErrUnsatisfiable = errors.New("range not satisfiable")

var rangePattern = regexp.MustCompile(`bytes=(\d+)-(\d+)?`)

// ByteRange is an inclusive byte span within a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range response header value.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange interprets a Range request header against a file of the
// given size. It returns (nil, nil) when the header is empty or does not
// match the supported form, a range on success, and ErrUnsatisfiable when
// start or end fall outside the file or the span is inverted.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	matches := rangePattern.FindStringSubmatch(header)
	if matches == nil {
		return nil, nil
	}

	start, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return nil, nil
	}

	end := size - 1
	if matches[2] != "" {
		end, err = strconv.ParseInt(matches[2], 10, 64)
		if err != nil {
			return nil, nil
		}
	}

	if start >= size || end >= size || start > end {
		return nil, ErrUnsatisfiable
	}

	return &ByteRange{Start: start, End: end}, nil
}

// CopyRange streams length bytes of src starting at offset start into dst
// in chunkSize reads, flushing after each chunk when dst supports it.
// It returns the number of bytes written.
func CopyRange(dst io.Writer, src io.ReadSeeker, start, length int64, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to byte %d: %w", start, err)
	}

	flusher, _ := dst.(http.Flusher)
	buf := make([]byte, chunkSize)

	var written int64
	remaining := length
	for remaining > 0 {
		toRead := int64(chunkSize)
		if remaining < toRead {
			toRead = remaining
		}

		n, readErr := io.ReadFull(src, buf[:toRead])
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
			remaining -= int64(n)
		}

		if readErr != nil {
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				// File shorter than the advertised span; stop cleanly.
				return written, nil
			}
			return written, readErr
		}
	}

	return written, nil
}
