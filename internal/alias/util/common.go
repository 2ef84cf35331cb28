package util

import (
	"log/slog"
	"os"
)

// CloseFileFunc closes f, logging rather than returning the error: it exists
// for defer sites where the caller already has a more meaningful error to
// return and a close failure is secondary.
func CloseFileFunc(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Warn("failed to close file", "name", f.Name(), "error", err)
	}
}
