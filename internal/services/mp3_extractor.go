package services

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-carve/internal/device"
	"github.com/deploymenttheory/go-carve/internal/interfaces"
	"github.com/deploymenttheory/go-carve/internal/parsers/mpeg"
	"github.com/deploymenttheory/go-carve/internal/types"
)

// MP3Extractor walks contiguous MPEG audio frames from a confirmed
// candidate start and emits them as a single track. Frames are matched
// against the first confirmed frame under the configured option mask;
// non-frame bytes are tolerated up to the gap budget.
type MP3Extractor struct {
	source  interfaces.StreamSource
	session *CarveSession
	config  *device.CarveConfig
	options mpeg.MatchOptions
	log     interfaces.LogFunc
	cancel  interfaces.CancelFunc
}

// NewMP3Extractor creates an extractor bound to one session and source.
func NewMP3Extractor(source interfaces.StreamSource, session *CarveSession, config *device.CarveConfig, options mpeg.MatchOptions, log interfaces.LogFunc, cancel interfaces.CancelFunc) *MP3Extractor {
	return &MP3Extractor{
		source:  source,
		session: session,
		config:  config,
		options: options,
		log:     log,
		cancel:  cancel,
	}
}

// Extract walks frames from the absolute device offset start and returns
// the absolute offset reached. The caller uses the return value as the MP3
// block floor; it never lies below start.
func (x *MP3Extractor) Extract(start int64) int64 {
	desc := types.Catalog[types.FormatMP3]
	current := start

	if err := ensureOutputDir(x.session.OutputDir(types.FormatMP3), x.log); err != nil {
		x.log(fmt.Sprintf("Error: %v", err))
		return current
	}

	number := x.session.Allocate(types.FormatMP3)
	outPath := x.session.OutputFileName(types.FormatMP3, number)

	outFile, err := os.Create(outPath)
	if err != nil {
		x.log("Error: Failed to create MP3 output file: " + outPath)
		x.session.Release(types.FormatMP3)
		return current
	}

	const carryLen = mpeg.FrameHeaderSize - 1

	var (
		original        mpeg.FrameInfo
		firstFrameFound bool
		totalWritten    int64
		gapCount        int
		carry           []byte
		cancelled       bool
	)

	chunk := make([]byte, x.config.ScanChunkSize)
	readPos := start

walk:
	for {
		if x.cancel != nil && x.cancel() {
			cancelled = true
			break
		}

		n, readErr := x.source.ReadAt(chunk, readPos)
		if n == 0 {
			break
		}
		readPos += int64(n)

		data := make([]byte, 0, len(carry)+n)
		data = append(data, carry...)
		data = append(data, chunk[:n]...)

		pos := 0
		for pos+mpeg.FrameHeaderSize <= len(data) {
			frame, ok := mpeg.ParseFrameHeader(data[pos:])

			if ok && !firstFrameFound && mpeg.ConfirmFrameSequence(data, pos, x.config.MP3MaxGap) {
				original = frame
				firstFrameFound = true
			}

			if ok && firstFrameFound && x.options.FramesMatch(frame, original) && pos+frame.FrameSize <= len(data) {
				if _, err := outFile.Write(data[pos : pos+frame.FrameSize]); err != nil {
					x.log(fmt.Sprintf("Error: write failed while extracting %s: %v", outPath, err))
					outFile.Close()
					os.Remove(outPath)
					x.session.Release(types.FormatMP3)
					return current
				}
				current += int64(frame.FrameSize)
				pos += frame.FrameSize
				totalWritten += int64(frame.FrameSize)
				gapCount = 0
			} else {
				gapCount++
				if gapCount > x.config.MP3MaxGap {
					break walk
				}
				current++
				pos++
			}

			if totalWritten > x.config.MP3ExtractCeiling {
				break walk
			}
		}

		// Carry the unconsumed tail so a header straddling the chunk
		// boundary is seen whole next round.
		rem := len(data) - pos
		if rem > carryLen {
			rem = carryLen
		}
		carry = append(carry[:0], data[len(data)-rem:]...)

		if readErr != nil {
			break
		}
	}

	if cancelled {
		// Left on disk as-is; the run is stopping.
		outFile.Close()
		return current
	}

	outFile.Close()

	if totalWritten < desc.MinSize || totalWritten > desc.MaxSize {
		os.Remove(outPath)
		x.session.Release(types.FormatMP3)
		return current
	}

	x.log(fmt.Sprintf("[OK] Recovered: %s (%d KB)", outPath, totalWritten/1024))
	return current
}
