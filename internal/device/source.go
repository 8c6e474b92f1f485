package device

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-carve/internal/interfaces"
)

// FileStreamSource provides positional reads over a block device or plain
// file opened read-only.
type FileStreamSource struct {
	file *os.File
	size int64
}

// Open opens the device or file at path for reading and determines its
// size. Opening is the only fatal failure mode; subsequent reads report
// io.EOF with a zero count past the end of the stream.
func Open(path string) (*FileStreamSource, error) {
	if path == "" {
		return nil, fmt.Errorf("device path cannot be empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat device: %w", err)
	}

	return &FileStreamSource{
		file: file,
		size: stat.Size(),
	}, nil
}

// ReadAt reads len(p) bytes from the stream starting at absolute offset
// off. It returns the number of bytes read; a short read near the end of
// the stream returns the available bytes together with io.EOF.
func (s *FileStreamSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the total length of the stream in bytes.
func (s *FileStreamSource) Size() int64 {
	return s.size
}

// Close closes the underlying file handle.
func (s *FileStreamSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

var _ interfaces.StreamSource = (*FileStreamSource)(nil)
