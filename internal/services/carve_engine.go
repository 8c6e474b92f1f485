package services

import (
	"errors"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-carve/internal/device"
	"github.com/deploymenttheory/go-carve/internal/interfaces"
	"github.com/deploymenttheory/go-carve/internal/parsers/mpeg"
	"github.com/deploymenttheory/go-carve/internal/parsers/signature"
	"github.com/deploymenttheory/go-carve/internal/types"
)

// CarveEngine drives a chunked scan of the device. At every offset of
// every enabled format it tests the start signature (or, for MP3, the
// frame-sequence confirmation) and hands matching candidates to the
// appropriate extractor. Errors are local to a candidate; only failing to
// open the device is fatal.
type CarveEngine struct {
	session      *CarveSession
	config       *device.CarveConfig
	matchOptions mpeg.MatchOptions
}

// NewCarveEngine creates an engine with the built-in tunables.
func NewCarveEngine(devicePath, outputRoot string, enabled []bool) *CarveEngine {
	return NewCarveEngineWithConfig(devicePath, outputRoot, enabled, device.DefaultCarveConfig())
}

// NewCarveEngineWithConfig creates an engine with explicit tunables.
func NewCarveEngineWithConfig(devicePath, outputRoot string, enabled []bool, config *device.CarveConfig) *CarveEngine {
	return &CarveEngine{
		session:      NewCarveSession(devicePath, outputRoot, enabled),
		config:       config,
		matchOptions: mpeg.DefaultMatchOptions(),
	}
}

// Session exposes the engine's session state.
func (e *CarveEngine) Session() *CarveSession {
	return e.session
}

// Run performs the full carving pass. It returns true when the scan
// completed, false when it was cancelled or the device could not be
// opened. The host hooks may be nil.
func (e *CarveEngine) Run(log interfaces.LogFunc, progress interfaces.ProgressFunc, cancel interfaces.CancelFunc) bool {
	if log == nil {
		log = func(string) {}
	}
	if progress == nil {
		progress = func(int) {}
	}
	if cancel == nil {
		cancel = func() bool { return false }
	}

	source, err := device.Open(e.session.DevicePath)
	if err != nil {
		log(fmt.Sprintf("Error: Failed to open device: %v", err))
		return false
	}
	defer source.Close()

	fileSize := source.Size()
	log(fmt.Sprintf("Carve session %s", e.session.ID))
	log(fmt.Sprintf("File size: %d bytes", fileSize))

	generic := NewGenericExtractor(source, e.session, e.config, log, cancel)
	mp3 := NewMP3Extractor(source, e.session, e.config, e.matchOptions, log, cancel)
	mp4 := NewMP4Extractor(source, e.session, e.config, log, cancel)

	buf := make([]byte, e.config.ScanChunkSize)
	var offset int64

	for {
		if cancel() {
			log("[!] Operation cancelled.")
			return false
		}

		n, readErr := source.ReadAt(buf, offset)
		if n == 0 {
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				log(fmt.Sprintf("Error: read failed at offset %d: %v", offset, readErr))
			}
			break
		}
		chunk := buf[:n]

		for f := 0; f < types.FormatCount; f++ {
			if !e.session.FormatEnabled(f) {
				continue
			}
			desc := types.Catalog[f]

			for i := 0; i+len(desc.StartSignature) <= n; i++ {
				candidateStart := offset + int64(i)

				switch {
				case f == types.FormatMP3:
					if candidateStart >= e.session.MP3BlockFloor() && mpeg.ConfirmFrameSequence(chunk, i, e.config.MP3MaxGap) {
						reached := mp3.Extract(candidateStart)
						e.session.AdvanceMP3BlockFloor(reached)
						i += mpeg.FrameHeaderSize
					}
				case f == types.FormatMP4:
					if signature.Matches(chunk, i, desc.StartSignature, f) {
						mp4.Extract(candidateStart)
						i += len(desc.StartSignature)
					}
				default:
					if signature.Matches(chunk, i, desc.StartSignature, f) {
						generic.Extract(candidateStart, f)
						i += len(desc.StartSignature)
					}
				}
			}
		}

		offset += int64(n)
		if fileSize > 0 {
			progress(int(offset * 100 / fileSize))
		}
		if readErr != nil {
			break
		}
	}

	e.logSummary(log)
	return true
}

// logSummary emits the end-of-run recovery report.
func (e *CarveEngine) logSummary(log interfaces.LogFunc) {
	log("File recovery summary:")
	log(fmt.Sprintf("Total files recovered: %d", e.session.TotalRecovered()))

	for f := 0; f < types.FormatCount; f++ {
		if !e.session.FormatEnabled(f) {
			continue
		}
		name := types.Catalog[f].Name
		if count := e.session.Count(f); count > 0 {
			log(fmt.Sprintf("%s: %d files recovered.", name, count))
		} else {
			log(fmt.Sprintf("%s: No files found.", name))
		}
	}
}
