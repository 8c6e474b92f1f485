package services

import (
	"fmt"
	"io"
	"os"

	"github.com/deploymenttheory/go-carve/internal/interfaces"
)

// ensureOutputDir creates the per-format output subdirectory on demand.
func ensureOutputDir(path string, log interfaces.LogFunc) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log("Creating directory: " + path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return nil
}

// appendFile appends the content of src to dst.
func appendFile(dst, src string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file for appending: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open destination file for appending: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed during append to %s: %w", dst, err)
	}
	return nil
}

// fileSize returns the on-disk length of path, or -1 when it cannot be
// determined.
func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return fi.Size()
}
