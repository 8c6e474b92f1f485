package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-carve/internal/device"
	"github.com/deploymenttheory/go-carve/internal/interfaces"
	"github.com/deploymenttheory/go-carve/internal/parsers/isobmff"
	"github.com/deploymenttheory/go-carve/internal/types"
)

// Temporary file names used while reassembling one MP4 candidate. They
// live in the MP4 output subdirectory and are removed after every
// candidate, regardless of outcome.
const (
	tempMoovName = "Temp__moov.mp4"
	tempMdatName = "Temp__mdat.mp4"
)

// MP4Extractor reassembles an MP4 candidate from its ftyp, first moov and
// first mdat boxes, emitting them in the order ftyp || moov || mdat.
type MP4Extractor struct {
	source  interfaces.StreamSource
	session *CarveSession
	config  *device.CarveConfig
	log     interfaces.LogFunc
	cancel  interfaces.CancelFunc
}

// NewMP4Extractor creates an extractor bound to one session and source.
func NewMP4Extractor(source interfaces.StreamSource, session *CarveSession, config *device.CarveConfig, log interfaces.LogFunc, cancel interfaces.CancelFunc) *MP4Extractor {
	return &MP4Extractor{
		source:  source,
		session: session,
		config:  config,
		log:     log,
		cancel:  cancel,
	}
}

// Extract scans forward from the absolute device offset start, captures
// the ftyp, moov and mdat boxes by their declared sizes, and emits the
// reassembled file. Without a ftyp the candidate is discarded.
func (x *MP4Extractor) Extract(start int64) {
	desc := types.Catalog[types.FormatMP4]
	outDir := x.session.OutputDir(types.FormatMP4)

	if err := ensureOutputDir(outDir, x.log); err != nil {
		x.log(fmt.Sprintf("Error: %v", err))
		return
	}

	number := x.session.Allocate(types.FormatMP4)
	outPath := x.session.OutputFileName(types.FormatMP4, number)
	moovPath := filepath.Join(outDir, tempMoovName)
	mdatPath := filepath.Join(outDir, tempMdatName)

	outFile, err := os.Create(outPath)
	if err != nil {
		x.log("Error: Failed to create output file: " + outPath)
		x.session.Release(types.FormatMP4)
		return
	}
	moovFile, err := os.Create(moovPath)
	if err != nil {
		x.log("Error: Failed to create temporary moov file: " + moovPath)
		outFile.Close()
		os.Remove(outPath)
		x.session.Release(types.FormatMP4)
		return
	}
	mdatFile, err := os.Create(mdatPath)
	if err != nil {
		x.log("Error: Failed to create temporary mdat file: " + mdatPath)
		outFile.Close()
		moovFile.Close()
		os.Remove(outPath)
		os.Remove(moovPath)
		x.session.Release(types.FormatMP4)
		return
	}
	defer os.Remove(moovPath)
	defer os.Remove(mdatPath)

	var (
		foundFtyp bool
		foundMoov bool
		foundMdat bool
		cancelled bool
		ioFailed  bool
		carry     []byte
	)

	chunk := make([]byte, x.config.MP4ChunkSize)
	readPos := start

scan:
	for !(foundFtyp && foundMoov && foundMdat) {
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

		for i := 0; i+isobmff.BoxHeaderSize <= len(data); i++ {
			var (
				target *os.File
				found  *bool
			)
			switch {
			case !foundFtyp && isobmff.MatchesBoxType(data, i, isobmff.BoxTypeFtyp):
				target, found = outFile, &foundFtyp
			case !foundMoov && isobmff.MatchesBoxType(data, i, isobmff.BoxTypeMoov):
				target, found = moovFile, &foundMoov
			case !foundMdat && isobmff.MatchesBoxType(data, i, isobmff.BoxTypeMdat):
				target, found = mdatFile, &foundMdat
			default:
				continue
			}

			header, err := isobmff.ParseBoxHeader(data[i:])
			if err != nil || !isobmff.PlausibleSize(header.Type, header.Size) {
				continue
			}

			boxSize := int64(header.Size)
			avail := int64(len(data) - i)

			if boxSize <= avail {
				if _, err := target.Write(data[i : i+int(boxSize)]); err != nil {
					x.log(fmt.Sprintf("Error: write failed while extracting %s: %v", outPath, err))
					ioFailed = true
					break scan
				}
				*found = true
				i += int(boxSize) - 1 // loop increment lands on the next byte
				continue
			}

			// Box spans the read buffer: write the tail, then stream the
			// remainder sequentially from the device.
			if _, err := target.Write(data[i:]); err != nil {
				x.log(fmt.Sprintf("Error: write failed while extracting %s: %v", outPath, err))
				ioFailed = true
				break scan
			}
			remaining := boxSize - avail
			for remaining > 0 {
				want := int64(len(chunk))
				if remaining < want {
					want = remaining
				}
				k, seqErr := x.source.ReadAt(chunk[:want], readPos)
				if k == 0 {
					x.log("Warning: reached end of input while reading full box; box is truncated.")
					break
				}
				if _, err := target.Write(chunk[:k]); err != nil {
					x.log(fmt.Sprintf("Error: write failed while extracting %s: %v", outPath, err))
					ioFailed = true
					break scan
				}
				readPos += int64(k)
				remaining -= int64(k)
				if seqErr != nil && remaining > 0 {
					x.log("Warning: reached end of input while reading full box; box is truncated.")
					break
				}
			}
			if remaining == 0 {
				*found = true
			}

			// The spanning read moved the device position; restart the
			// outer read there with a fresh carry.
			carry = carry[:0]
			continue scan
		}

		if len(data) >= isobmff.BoxHeaderSize-1 {
			carry = append(carry[:0], data[len(data)-(isobmff.BoxHeaderSize-1):]...)
		} else {
			carry = append(carry[:0], data...)
		}

		if readErr != nil {
			break
		}
	}

	moovFile.Close()
	mdatFile.Close()
	outFile.Close()

	if cancelled {
		// Left on disk as-is; the run is stopping. Temp files are still
		// removed by the deferred cleanup.
		return
	}

	if ioFailed {
		os.Remove(outPath)
		x.session.Release(types.FormatMP4)
		return
	}

	if !foundFtyp {
		x.log("[SKIP] Deleted incomplete file: " + outPath)
		os.Remove(outPath)
		x.session.Release(types.FormatMP4)
		return
	}

	if foundMoov {
		if err := appendFile(outPath, moovPath); err != nil {
			x.log(fmt.Sprintf("Error: failed to append moov data to %s: %v", outPath, err))
			os.Remove(outPath)
			x.session.Release(types.FormatMP4)
			return
		}
	}
	if foundMdat {
		if err := appendFile(outPath, mdatPath); err != nil {
			x.log(fmt.Sprintf("Error: failed to append mdat data to %s: %v", outPath, err))
			os.Remove(outPath)
			x.session.Release(types.FormatMP4)
			return
		}
	}

	finalSize := fileSize(outPath)
	if finalSize < desc.MinSize || finalSize > desc.MaxSize {
		os.Remove(outPath)
		x.session.Release(types.FormatMP4)
		return
	}

	x.log(fmt.Sprintf("[OK] Recovered: %s (%d KB)", outPath, finalSize/1024))
}
