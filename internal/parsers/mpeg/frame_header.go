package mpeg

// FrameHeaderSize is the length of an MPEG audio frame header in bytes.
const FrameHeaderSize = 4

// DefaultMaxGap is the maximum number of non-frame bytes tolerated between
// consecutive frames and between a start frame and each confirmation probe.
const DefaultMaxGap = 768

// confirmationProbes is the number of follow-up frame headers required to
// accept a candidate start. Suppresses random FF Ex false positives.
const confirmationProbes = 10

// FrameInfo describes one decoded MPEG audio frame header.
type FrameInfo struct {
	// FrameSize is the full frame length in bytes, header included.
	FrameSize int

	// Version is the MPEG version family: 1 for MPEG 1, 2 for MPEG 2 and
	// MPEG 2.5.
	Version int

	// Layer is 1, 2 or 3.
	Layer int

	// Bitrate is in bits per second.
	Bitrate int

	// SampleRate is in Hz.
	SampleRate int
}

// mpegVersions maps the raw 2-bit version ID to the version family.
// Index 1 is the reserved encoding.
var mpegVersions = [4]int{
	2,  // 00 = MPEG 2.5
	-1, // 01 = reserved
	2,  // 10 = MPEG 2
	1,  // 11 = MPEG 1
}

// layers maps the raw 2-bit layer ID. Index 0 is the reserved encoding.
var layers = [4]int{
	0, // 00 = reserved
	3, // 01 = Layer III
	2, // 10 = Layer II
	1, // 11 = Layer I
}

// bitrateTable is keyed by [mpeg family][layer-1][bitrate index], in kbps.
// Family 0 is MPEG 1; family 1 covers MPEG 2 and 2.5.
var bitrateTable = [2][3][16]int{
	{ // MPEG 1
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0}, // Layer I
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0},    // Layer II
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0},     // Layer III
	},
	{ // MPEG 2/2.5
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0}, // Layer I
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},      // Layer II
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},      // Layer III
	},
}

// sampleRateTable is keyed by [raw version ID][sampling rate index], in Hz.
var sampleRateTable = [4][4]int{
	{11025, 12000, 8000, 0},  // MPEG 2.5
	{0, 0, 0, 0},             // reserved
	{22050, 24000, 16000, 0}, // MPEG 2
	{44100, 48000, 32000, 0}, // MPEG 1
}

// ParseFrameHeader decodes the 4-byte frame header at the start of data.
// It returns ok=false for anything that is not a plausible frame header:
// missing sync, reserved version or layer encodings, free-format or bad
// bitrate index, reserved sampling rate index, or a derived frame size of
// zero.
func ParseFrameHeader(data []byte) (FrameInfo, bool) {
	if len(data) < FrameHeaderSize {
		return FrameInfo{}, false
	}
	if data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return FrameInfo{}, false
	}

	versionID := (data[1] >> 3) & 0x03
	layerID := (data[1] >> 1) & 0x03
	bitrateIndex := (data[2] >> 4) & 0x0F
	sampleRateIndex := (data[2] >> 2) & 0x03
	padding := int((data[2] >> 1) & 0x01)

	if versionID == 1 || layerID == 0 || bitrateIndex == 0 || bitrateIndex == 15 || sampleRateIndex == 3 {
		return FrameInfo{}, false
	}

	version := mpegVersions[versionID]
	layer := layers[layerID]

	family := 1
	if version == 1 {
		family = 0
	}
	bitrate := bitrateTable[family][layer-1][bitrateIndex] * 1000
	sampleRate := sampleRateTable[versionID][sampleRateIndex]
	if bitrate == 0 || sampleRate == 0 {
		return FrameInfo{}, false
	}

	// Layer I frames are padded in 4-byte slots; layers II/III add the
	// padding byte outside the floor division.
	var frameSize int
	if layer == 1 {
		frameSize = (12*bitrate/sampleRate + padding) * 4
	} else {
		frameSize = 144*bitrate/sampleRate + padding
	}
	if frameSize <= 0 {
		return FrameInfo{}, false
	}

	return FrameInfo{
		FrameSize:  frameSize,
		Version:    version,
		Layer:      layer,
		Bitrate:    bitrate,
		SampleRate: sampleRate,
	}, true
}

// ConfirmFrameSequence reports whether the header at buffer[pos] is backed
// by ten follow-up frame headers. Each probe i looks for a valid header
// near pos + frameSize*i, sliding forward one byte at a time for up to
// maxGap bytes. A probe fails only when its full gap budget was searched
// inside the buffer without finding a header; probes cut short by the end
// of the buffer do not reject the candidate.
func ConfirmFrameSequence(buffer []byte, pos int, maxGap int) bool {
	if pos < 0 || pos+FrameHeaderSize > len(buffer) {
		return false
	}
	info, ok := ParseFrameHeader(buffer[pos:])
	if !ok {
		return false
	}

	for i := 1; i <= confirmationProbes; i++ {
		base := pos + info.FrameSize*i
		found := false
		gap := 0
		for ; gap < maxGap && base+gap+FrameHeaderSize <= len(buffer); gap++ {
			if _, ok := ParseFrameHeader(buffer[base+gap:]); ok {
				found = true
				break
			}
		}
		if !found && gap >= maxGap {
			return false
		}
	}
	return true
}

// MatchOptions selects which fields of a frame must equal the first
// confirmed frame for the walker to accept it as part of the same track.
type MatchOptions struct {
	MatchFrameSize  bool
	MatchVersion    bool
	MatchLayer      bool
	MatchBitrate    bool
	MatchSampleRate bool
}

// DefaultMatchOptions requires only the MPEG version to stay constant
// across the track.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{MatchVersion: true}
}

// FramesMatch reports whether frame is acceptable as a continuation of
// original under the option mask. Both frames must be valid.
func (o MatchOptions) FramesMatch(frame, original FrameInfo) bool {
	if frame.FrameSize <= 0 || original.FrameSize <= 0 {
		return false
	}
	if o.MatchFrameSize && frame.FrameSize != original.FrameSize {
		return false
	}
	if o.MatchVersion && frame.Version != original.Version {
		return false
	}
	if o.MatchLayer && frame.Layer != original.Layer {
		return false
	}
	if o.MatchBitrate && frame.Bitrate != original.Bitrate {
		return false
	}
	if o.MatchSampleRate && frame.SampleRate != original.SampleRate {
		return false
	}
	return true
}
