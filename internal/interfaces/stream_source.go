// File: internal/interfaces/stream_source.go
package interfaces

import "io"

// StreamSource presents a raw device (or any file) as a byte stream with
// positional reads. Reads past the end of the stream return io.EOF with a
// zero count; short reads are permitted and callers advance by the count
// actually returned.
type StreamSource interface {
	io.ReaderAt
	io.Closer

	// Size returns the total length of the stream in bytes.
	Size() int64
}
