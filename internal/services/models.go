package services

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-carve/internal/types"
)

// CarveSession holds the state of one carving run: the input device, the
// output root, the enabled-format mask, the per-format recovered counters
// and the MP3 block floor.
type CarveSession struct {
	// ID identifies the session in logs and reports.
	ID uuid.UUID

	// DevicePath is the input device or image file.
	DevicePath string

	// OutputRoot is the user-selected recovery directory.
	OutputRoot string

	// Enabled masks the catalog by index. Length must cover at least the
	// principal formats; shorter masks disable the remainder.
	Enabled []bool

	// counts tracks allocated output numbers per format. Discarded
	// candidates decrement their format's counter, so gaps can appear in
	// emitted numbering when a discard follows a later allocation.
	counts [types.FormatCount]int

	// mp3BlockFloor is the absolute offset below which the MP3 walker is
	// not re-entered. Non-decreasing.
	mp3BlockFloor int64
}

// NewCarveSession creates a session for one run.
func NewCarveSession(devicePath, outputRoot string, enabled []bool) *CarveSession {
	return &CarveSession{
		ID:         uuid.New(),
		DevicePath: devicePath,
		OutputRoot: outputRoot,
		Enabled:    enabled,
	}
}

// FormatEnabled reports whether the catalog index is enabled for this
// session.
func (s *CarveSession) FormatEnabled(formatIndex int) bool {
	if formatIndex < 0 || formatIndex >= len(s.Enabled) || formatIndex >= types.FormatCount {
		return false
	}
	return s.Enabled[formatIndex]
}

// Allocate assigns the next output number for a format and returns it.
func (s *CarveSession) Allocate(formatIndex int) int {
	s.counts[formatIndex]++
	return s.counts[formatIndex]
}

// Release returns a previously allocated number after a discard.
func (s *CarveSession) Release(formatIndex int) {
	s.counts[formatIndex]--
}

// Count returns the current recovered count for a format.
func (s *CarveSession) Count(formatIndex int) int {
	return s.counts[formatIndex]
}

// TotalRecovered sums the per-format counters.
func (s *CarveSession) TotalRecovered() int {
	total := 0
	for _, c := range s.counts {
		total += c
	}
	return total
}

// MP3BlockFloor returns the current MP3 re-entry floor.
func (s *CarveSession) MP3BlockFloor() int64 {
	return s.mp3BlockFloor
}

// AdvanceMP3BlockFloor raises the floor to offset. Lower values are
// ignored; the floor never moves backwards.
func (s *CarveSession) AdvanceMP3BlockFloor(offset int64) {
	if offset > s.mp3BlockFloor {
		s.mp3BlockFloor = offset
	}
}

// OutputDir returns the per-format output subdirectory.
func (s *CarveSession) OutputDir(formatIndex int) string {
	return filepath.Join(s.OutputRoot, types.Catalog[formatIndex].Name)
}

// OutputFileName returns the numbered output path for a format. MP3
// output names use a lowercase prefix.
func (s *CarveSession) OutputFileName(formatIndex, number int) string {
	desc := types.Catalog[formatIndex]
	prefix := "RecoveredFile_"
	if formatIndex == types.FormatMP3 {
		prefix = "recoveredFile_"
	}
	return filepath.Join(s.OutputDir(formatIndex), fmt.Sprintf("%s%d%s", prefix, number, desc.Extension))
}
