package isobmff

import (
	"encoding/binary"
	"fmt"
)

// BoxHeaderSize is the length of an ISO BMFF box header: a 4-byte
// big-endian size followed by a 4-byte ASCII type.
const BoxHeaderSize = 8

// Box types the reassembler captures.
const (
	BoxTypeFtyp = "ftyp"
	BoxTypeMoov = "moov"
	BoxTypeMdat = "mdat"
)

// Size plausibility caps. The declared size includes the 8-byte header.
const (
	// MaxMetadataBoxSize bounds ftyp and moov; larger declared sizes are
	// treated as false positives.
	MaxMetadataBoxSize = 200 * 1024 * 1024

	// MaxMdatBoxSize bounds mdat at the overall MP4 size limit.
	MaxMdatBoxSize = 500 * 1024 * 1024
)

// BoxHeader is a decoded ISO BMFF box header.
type BoxHeader struct {
	// Size is the declared box length in bytes, header included.
	Size uint32

	// Type is the 4-character box type.
	Type string
}

// ParseBoxHeader decodes the box header at the start of data.
func ParseBoxHeader(data []byte) (BoxHeader, error) {
	if len(data) < BoxHeaderSize {
		return BoxHeader{}, fmt.Errorf("data too small for box header: %d bytes", len(data))
	}
	return BoxHeader{
		Size: binary.BigEndian.Uint32(data[0:4]),
		Type: string(data[4:8]),
	}, nil
}

// MatchesBoxType reports whether the 8-byte header at buffer[pos] carries
// the given box type. The size field is not inspected.
func MatchesBoxType(buffer []byte, pos int, boxType string) bool {
	if pos < 0 || pos+BoxHeaderSize > len(buffer) {
		return false
	}
	return string(buffer[pos+4:pos+8]) == boxType
}

// PlausibleSize reports whether a declared box size is structurally
// believable for its type: at least the header itself, and within the
// per-type cap.
func PlausibleSize(boxType string, size uint32) bool {
	if size < BoxHeaderSize {
		return false
	}
	switch boxType {
	case BoxTypeFtyp, BoxTypeMoov:
		return size <= MaxMetadataBoxSize
	case BoxTypeMdat:
		return size <= MaxMdatBoxSize
	default:
		return true
	}
}
