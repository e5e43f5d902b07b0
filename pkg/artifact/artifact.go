// Package artifact writes run artifacts (screenshots) to disk.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteError means the artifact could not be written to its path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Err)
}
func (e *WriteError) Unwrap() error { return e.Err }

// Save writes png to path, creating parent directories as needed and
// overwriting any existing file. No versioning, no append.
func Save(path string, png []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// FailurePath derives the path for the diagnostic screenshot taken when the
// assertion fails, e.g. verification.png -> verification-failed.png.
func FailurePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-failed" + ext
}
