package services

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-carve/internal/device"
	"github.com/deploymenttheory/go-carve/internal/parsers/mpeg"
)

// memSource is an in-memory StreamSource for extractor tests.
type memSource struct {
	*bytes.Reader
}

func newMemSource(data []byte) *memSource {
	return &memSource{bytes.NewReader(data)}
}

func (s *memSource) Size() int64 {
	return s.Reader.Size()
}

func (s *memSource) Close() error {
	return nil
}

// testConfig returns the default tunables; individual tests override
// fields to exercise boundary behavior cheaply.
func testConfig() *device.CarveConfig {
	return device.DefaultCarveConfig()
}

// discardLog is a no-op log sink.
func discardLog(string) {}

// collectLog returns a log hook appending into lines.
func collectLog(lines *[]string) func(string) {
	return func(message string) {
		*lines = append(*lines, message)
	}
}

// createTestMP3Frame returns one complete synthetic frame for the given
// 4-byte header, zero-filled to the decoded frame size.
func createTestMP3Frame(t *testing.T, header []byte) []byte {
	t.Helper()
	info, ok := mpeg.ParseFrameHeader(header)
	require.True(t, ok, "test frame header must decode")
	frame := make([]byte, info.FrameSize)
	copy(frame, header)
	return frame
}

// createTestMP3Stream concatenates count copies of the frame.
func createTestMP3Stream(t *testing.T, header []byte, count int) []byte {
	t.Helper()
	frame := createTestMP3Frame(t, header)
	stream := make([]byte, 0, len(frame)*count)
	for i := 0; i < count; i++ {
		stream = append(stream, frame...)
	}
	return stream
}

// createTestBox returns a complete ISO BMFF box of the given type with
// payload bytes filled with fill. The declared size includes the header.
func createTestBox(boxType string, payloadLen int, fill byte) []byte {
	box := make([]byte, 8+payloadLen)
	binary.BigEndian.PutUint32(box[0:4], uint32(8+payloadLen))
	copy(box[4:8], boxType)
	for i := 8; i < len(box); i++ {
		box[i] = fill
	}
	return box
}

// assertMP3Frames walks data and requires it to be a sequence of whole,
// valid frames of the given MPEG version.
func assertMP3Frames(t *testing.T, data []byte, version int) {
	t.Helper()
	pos := 0
	for pos < len(data) {
		info, ok := mpeg.ParseFrameHeader(data[pos:])
		require.True(t, ok, "frame header at %d must parse", pos)
		require.Equal(t, version, info.Version, "frame at %d", pos)
		require.LessOrEqual(t, pos+info.FrameSize, len(data), "frame at %d must be whole", pos)
		pos += info.FrameSize
	}
}
