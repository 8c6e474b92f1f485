package signature

import (
	"github.com/deploymenttheory/go-carve/internal/types"
)

// Matches reports whether sig matches buffer at pos, applying the
// format-specific anchoring rules:
//
//   - JPEG: after the literal FF D8 FF match, the high nibble of the byte
//     immediately following the signature must equal 0xE.
//   - MP4: the first four signature bytes are the box size and act as a
//     wildcard; only bytes 4-7 (the "ftyp" type) are compared.
//
// Returns false when the signature would overrun the buffer.
func Matches(buffer []byte, pos int, sig []byte, formatIndex int) bool {
	if pos < 0 || pos+len(sig) > len(buffer) {
		return false
	}

	start := 0
	if formatIndex == types.FormatMP4 {
		start = 4
	}
	for i := start; i < len(sig); i++ {
		if buffer[pos+i] != sig[i] {
			return false
		}
	}

	if formatIndex == types.FormatJPEG {
		markerPos := pos + len(sig)
		if markerPos >= len(buffer) {
			return false
		}
		if buffer[markerPos]&0xF0 != 0xE0 {
			return false
		}
	}

	return true
}

// MatchesFormat matches the catalog entry at formatIndex against buffer at
// pos using its start signature.
func MatchesFormat(buffer []byte, pos int, formatIndex int) bool {
	if formatIndex < 0 || formatIndex >= types.FormatCount {
		return false
	}
	return Matches(buffer, pos, types.Catalog[formatIndex].StartSignature, formatIndex)
}
