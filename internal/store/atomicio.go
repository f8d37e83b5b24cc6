package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o750
	filePerms = 0o600
)

// writeFileAtomic writes content to path via a temp-sibling-then-rename, the
// same pattern the teacher's ticket files use for every small-file write.
func writeFileAtomic(path, content string) error {
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	// atomic.WriteFile does not set permissions for newly created files.
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the working copy's own layout
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}
