package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/deploymenttheory/go-carve/internal/device"
	"github.com/deploymenttheory/go-carve/internal/interfaces"
	"github.com/deploymenttheory/go-carve/internal/parsers/signature"
	"github.com/deploymenttheory/go-carve/internal/types"
)

// PDF structural tokens. Both must appear in the payload for a PDF
// candidate to be emitted.
var (
	pdfXrefToken    = []byte("xref")
	pdfTrailerToken = []byte("trailer")
)

// GenericExtractor carves candidates for formats that terminate on an
// explicit end marker, plus the PDF variant with xref/trailer validation.
// Formats without an end marker are cut at the next known start signature.
type GenericExtractor struct {
	source  interfaces.StreamSource
	session *CarveSession
	config  *device.CarveConfig
	log     interfaces.LogFunc
	cancel  interfaces.CancelFunc
}

// NewGenericExtractor creates an extractor bound to one session and source.
func NewGenericExtractor(source interfaces.StreamSource, session *CarveSession, config *device.CarveConfig, log interfaces.LogFunc, cancel interfaces.CancelFunc) *GenericExtractor {
	return &GenericExtractor{
		source:  source,
		session: session,
		config:  config,
		log:     log,
		cancel:  cancel,
	}
}

// Extract carves one candidate of the given format starting at the
// absolute device offset start. The candidate is emitted only if its end
// was found (or synthesized, for PDF) and its final size lies within the
// format bounds; otherwise the output file is unlinked and the format
// counter decremented.
func (x *GenericExtractor) Extract(start int64, formatIndex int) {
	desc := types.Catalog[formatIndex]

	if err := ensureOutputDir(x.session.OutputDir(formatIndex), x.log); err != nil {
		x.log(fmt.Sprintf("Error: %v", err))
		return
	}

	number := x.session.Allocate(formatIndex)
	outPath := x.session.OutputFileName(formatIndex, number)

	outFile, err := os.Create(outPath)
	if err != nil {
		x.log("Error: Failed to create output file.")
		x.session.Release(formatIndex)
		return
	}

	isPDF := desc.Kind == types.ExtractorPDF
	xrefFound := false
	trailerFound := false
	foundEnd := false
	cancelled := false
	var totalWritten int64

	buf := make([]byte, x.config.ScanChunkSize)
	pos := start

	for !foundEnd {
		if x.cancel != nil && x.cancel() {
			cancelled = true
			break
		}

		n, readErr := x.source.ReadAt(buf, pos)
		if n == 0 {
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				x.log(fmt.Sprintf("Error: read failed while extracting %s: %v", outPath, readErr))
				x.discard(outFile, outPath, formatIndex)
				return
			}
			break
		}
		chunk := buf[:n]
		writeBytes := n

		if desc.HasEndMarker() {
			marker := desc.EndMarker
			for j := 0; j+len(marker) <= len(chunk); j++ {
				if isPDF {
					if bytes.HasPrefix(chunk[j:], pdfXrefToken) {
						xrefFound = true
					}
					if bytes.HasPrefix(chunk[j:], pdfTrailerToken) {
						trailerFound = true
					}
				}
				if bytes.HasPrefix(chunk[j:], marker) {
					writeBytes = j + len(marker)
					foundEnd = true
					break
				}
			}
		} else {
			// End inferred from the next file's start signature; the
			// matched signature bytes are written through.
			for j := 0; j < types.PrimaryFormatCount && !foundEnd; j++ {
				sig := types.Catalog[j].StartSignature
				for k := 0; k+len(sig) <= len(chunk); k++ {
					if pos == start && k == 0 {
						continue // the candidate's own start signature
					}
					if signature.Matches(chunk, k, sig, j) {
						writeBytes = k + len(sig)
						foundEnd = true
						break
					}
				}
			}
		}

		if _, err := outFile.Write(chunk[:writeBytes]); err != nil {
			x.log(fmt.Sprintf("Error: write failed while extracting %s: %v", outPath, err))
			x.discard(outFile, outPath, formatIndex)
			return
		}
		totalWritten += int64(writeBytes)

		if totalWritten > desc.MaxSize {
			x.discard(outFile, outPath, formatIndex)
			return
		}

		pos += int64(n)
		if readErr != nil {
			break
		}
	}

	if cancelled {
		// Left on disk as-is; the run is stopping.
		outFile.Close()
		return
	}

	if !foundEnd && isPDF && xrefFound && trailerFound {
		if _, err := outFile.Write(desc.EndMarker); err != nil {
			x.log(fmt.Sprintf("Error: write failed while extracting %s: %v", outPath, err))
			x.discard(outFile, outPath, formatIndex)
			return
		}
		totalWritten += int64(len(desc.EndMarker))
		foundEnd = true
	}

	outFile.Close()

	if foundEnd && (totalWritten < desc.MinSize || totalWritten > desc.MaxSize) {
		os.Remove(outPath)
		x.session.Release(formatIndex)
		return
	}

	if !foundEnd || (isPDF && (!xrefFound || !trailerFound)) {
		x.log("[SKIP] Deleted incomplete file: " + outPath)
		os.Remove(outPath)
		x.session.Release(formatIndex)
		return
	}

	x.log("[OK] Recovered: " + outPath)
}

// discard abandons the current candidate: the partial output is unlinked
// and its number returned to the format counter.
func (x *GenericExtractor) discard(outFile *os.File, outPath string, formatIndex int) {
	outFile.Close()
	os.Remove(outPath)
	x.session.Release(formatIndex)
}
