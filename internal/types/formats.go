package types

import "strings"

// ExtractorKind selects the extraction path for a format. The catalog is a
// flat table with a kind discriminator; the engine dispatches by value.
type ExtractorKind int

const (
	// ExtractorGeneric copies bytes from the start signature through the
	// format's end marker.
	ExtractorGeneric ExtractorKind = iota
	// ExtractorPDF is the generic path plus xref/trailer token validation.
	ExtractorPDF
	// ExtractorMP3 walks MPEG audio frames from the candidate start.
	ExtractorMP3
	// ExtractorMP4 reassembles ftyp/moov/mdat boxes.
	ExtractorMP4
)

// Format indices into the catalog. The first five are dispatched by the
// principal scan loop; the remainder are catalogued and reachable through
// explicit format selection.
const (
	FormatPNG = iota
	FormatJPEG
	FormatPDF
	FormatZIP
	FormatMP3
	FormatDOC
	FormatDOCX
	FormatMP4
	FormatEXE
	FormatELF

	// FormatCount is the total number of catalogued formats.
	FormatCount

	// PrimaryFormatCount is the number of formats the principal scan loop
	// dispatches.
	PrimaryFormatCount = 5
)

// Size bound constants used by the catalog.
const (
	KiB = 1024
	MiB = 1024 * 1024
)

// FormatDescriptor is a static catalog entry for one supported format.
type FormatDescriptor struct {
	// Name labels output subdirectories and report lines.
	Name string

	// Extension includes the leading dot.
	Extension string

	// StartSignature is the magic byte sequence at the candidate start.
	// For JPEG the byte following the signature must additionally carry a
	// 0xE high nibble; for MP4 the first four bytes are a wildcard (the
	// box size) and only bytes 4-7 are compared.
	StartSignature []byte

	// EndMarker terminates a candidate when present. Nil means the end is
	// inferred (next known signature, or structural rules for MP3/MP4).
	EndMarker []byte

	// MinSize and MaxSize bound the emitted file length in bytes.
	MinSize int64
	MaxSize int64

	// Kind selects the extraction path.
	Kind ExtractorKind
}

// HasEndMarker reports whether the format terminates on an explicit marker.
func (d FormatDescriptor) HasEndMarker() bool {
	return len(d.EndMarker) > 0
}

// Catalog is the static format table, indexed by the Format* constants.
var Catalog = [FormatCount]FormatDescriptor{
	FormatPNG: {
		Name:           "PNG",
		Extension:      ".png",
		StartSignature: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
		EndMarker:      []byte{0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82},
		MinSize:        1 * KiB,
		MaxSize:        20 * MiB,
		Kind:           ExtractorGeneric,
	},
	FormatJPEG: {
		Name:           "JPEG",
		Extension:      ".jpg",
		StartSignature: []byte{0xFF, 0xD8, 0xFF},
		EndMarker:      []byte{0xFF, 0xD9},
		MinSize:        1 * KiB,
		MaxSize:        20 * MiB,
		Kind:           ExtractorGeneric,
	},
	FormatPDF: {
		Name:           "PDF",
		Extension:      ".pdf",
		StartSignature: []byte{0x25, 0x50, 0x44, 0x46, 0x2D}, // %PDF-
		EndMarker:      []byte{0x25, 0x25, 0x45, 0x4F, 0x46}, // %%EOF
		MinSize:        1 * KiB,
		MaxSize:        50 * MiB,
		Kind:           ExtractorPDF,
	},
	FormatZIP: {
		Name:           "ZIP",
		Extension:      ".zip",
		StartSignature: []byte{0x50, 0x4B, 0x03, 0x04},
		EndMarker:      []byte{0x50, 0x4B, 0x05, 0x06},
		MinSize:        1 * KiB,
		MaxSize:        100 * MiB,
		Kind:           ExtractorGeneric,
	},
	FormatMP3: {
		Name:           "MP3",
		Extension:      ".mp3",
		StartSignature: []byte{0xFF, 0xE0},
		MinSize:        20 * KiB,
		MaxSize:        20 * MiB,
		Kind:           ExtractorMP3,
	},
	FormatDOC: {
		Name:           "DOC",
		Extension:      ".doc",
		StartSignature: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1},
		MinSize:        1 * KiB,
		MaxSize:        50 * MiB,
		Kind:           ExtractorGeneric,
	},
	FormatDOCX: {
		Name:           "DOCX",
		Extension:      ".docx",
		StartSignature: []byte{0x50, 0x4B, 0x03, 0x04},
		MinSize:        1 * KiB,
		MaxSize:        50 * MiB,
		Kind:           ExtractorGeneric,
	},
	FormatMP4: {
		Name:           "MP4",
		Extension:      ".mp4",
		StartSignature: []byte{0x00, 0x00, 0x00, 0x00, 0x66, 0x74, 0x79, 0x70}, // ....ftyp
		MinSize:        1 * KiB,
		MaxSize:        500 * MiB,
		Kind:           ExtractorMP4,
	},
	FormatEXE: {
		Name:           "EXE",
		Extension:      ".exe",
		StartSignature: []byte{0x4D, 0x5A},
		MinSize:        1 * KiB,
		MaxSize:        50 * MiB,
		Kind:           ExtractorGeneric,
	},
	FormatELF: {
		Name:           "ELF",
		Extension:      ".elf",
		StartSignature: []byte{0x7F, 0x45, 0x4C, 0x46},
		MinSize:        1 * KiB,
		MaxSize:        50 * MiB,
		Kind:           ExtractorGeneric,
	},
}

// FormatIndexByName resolves a case-insensitive format name to its catalog
// index. Returns -1 when the name is unknown.
func FormatIndexByName(name string) int {
	for i, d := range Catalog {
		if strings.EqualFold(d.Name, name) {
			return i
		}
	}
	return -1
}
