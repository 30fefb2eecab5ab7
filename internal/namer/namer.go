// Package namer provides collision-safe filename allocation within a
// target directory.
package namer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UniqueName returns a filename that does not currently exist in dir.
// If dir/name is free it is returned unchanged. Otherwise candidates of
// the form "stem-1.ext", "stem-2.ext", ... are probed until a free one is
// found. Extension-less names produce "stem-N" candidates.
//
// The check is not atomic against concurrent writers: a racing process can
// claim the returned name before the caller creates it. Uploads are
// serialized by the single capture device, so the race is accepted rather
// than worked around with O_EXCL retries.
func UniqueName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, counter, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}
