package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-carve/internal/parsers/isobmff"
	"github.com/deploymenttheory/go-carve/internal/types"
)

// writeTestDevice materializes an input stream as a file, standing in for
// the raw device.
func writeTestDevice(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.img")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func primaryFormats() []bool {
	enabled := make([]bool, types.FormatCount)
	for f := 0; f < types.PrimaryFormatCount; f++ {
		enabled[f] = true
	}
	return enabled
}

func TestCarveEngineZeroDevice(t *testing.T) {
	devicePath := writeTestDevice(t, make([]byte, 1024*1024))
	outputRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, outputRoot, primaryFormats())

	var progress []int
	ok := engine.Run(discardLog, func(percent int) {
		progress = append(progress, percent)
	}, nil)

	require.True(t, ok)
	assert.Equal(t, 0, engine.Session().TotalRecovered())

	// No per-format directories are created without candidates.
	entries, err := os.ReadDir(outputRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Progress is monotone and reaches 100.
	require.NotEmpty(t, progress)
	last := 0
	for _, p := range progress {
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 100, last)
}

func TestCarveEngineRecoversEmbeddedPNG(t *testing.T) {
	payload := createTestPNG(t, 40*1024)
	input := make([]byte, 8192+len(payload)+8192)
	copy(input[8192:], payload)

	devicePath := writeTestDevice(t, input)
	outputRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, outputRoot, primaryFormats())
	require.True(t, engine.Run(discardLog, nil, nil))

	recovered, err := os.ReadFile(filepath.Join(outputRoot, "PNG", "RecoveredFile_1.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, recovered)
	assert.Equal(t, 1, engine.Session().Count(types.FormatPNG))
	assert.Equal(t, 1, engine.Session().TotalRecovered())
}

func TestCarveEngineRecoversJPEG(t *testing.T) {
	payload := make([]byte, 5*1024+6)
	copy(payload, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	copy(payload[len(payload)-2:], []byte{0xFF, 0xD9})

	devicePath := writeTestDevice(t, payload)
	outputRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, outputRoot, primaryFormats())
	require.True(t, engine.Run(discardLog, nil, nil))

	recovered, err := os.ReadFile(filepath.Join(outputRoot, "JPEG", "RecoveredFile_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD9}, recovered[len(recovered)-2:])
	assert.Equal(t, payload, recovered)
}

func TestCarveEngineSynthesizesPDFEndMarker(t *testing.T) {
	payload := make([]byte, 0, 60*1024)
	payload = append(payload, []byte("%PDF-1.4\n")...)
	payload = append(payload, []byte("xref\n0 3\n")...)
	payload = append(payload, []byte("trailer\n<< /Size 3 >>\n")...)
	for len(payload) < 60*1024 {
		payload = append(payload, ' ')
	}

	devicePath := writeTestDevice(t, payload)
	outputRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, outputRoot, primaryFormats())
	require.True(t, engine.Run(discardLog, nil, nil))

	recovered, err := os.ReadFile(filepath.Join(outputRoot, "PDF", "RecoveredFile_1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, append(payload, []byte("%%EOF")...), recovered)
}

func TestCarveEngineWalksMP3Stream(t *testing.T) {
	stream := createTestMP3Stream(t, mpeg1Layer3Header, 300)
	input := append(append(make([]byte, 4096), stream...), make([]byte, 4096)...)

	devicePath := writeTestDevice(t, input)
	outputRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, outputRoot, primaryFormats())
	require.True(t, engine.Run(discardLog, nil, nil))

	recovered, err := os.ReadFile(filepath.Join(outputRoot, "MP3", "recoveredFile_1.mp3"))
	require.NoError(t, err)
	assertMP3Frames(t, recovered, 1)
	assert.Equal(t, 1, engine.Session().Count(types.FormatMP3))

	// The floor advanced past the stream; the walker was not re-entered.
	assert.Greater(t, engine.Session().MP3BlockFloor(), int64(4096+len(stream)-417-4))
}

func TestCarveEngineReassemblesMP4(t *testing.T) {
	ftyp := createTestBox(isobmff.BoxTypeFtyp, 24, 0x01)
	moov := createTestBox(isobmff.BoxTypeMoov, 4*1024, 0x02)
	mdat := createTestBox(isobmff.BoxTypeMdat, 2*1024*1024, 0x03)

	input := append(append(append([]byte{}, ftyp...), moov...), mdat...)
	input = append(input, make([]byte, 4096)...)

	devicePath := writeTestDevice(t, input)
	outputRoot := t.TempDir()

	enabled := primaryFormats()
	enabled[types.FormatMP4] = true

	engine := NewCarveEngine(devicePath, outputRoot, enabled)
	require.True(t, engine.Run(discardLog, nil, nil))

	recovered, err := os.ReadFile(filepath.Join(outputRoot, "MP4", "RecoveredFile_1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(ftyp)+len(moov)+len(mdat)), int64(len(recovered)))

	expected := append(append(append([]byte{}, ftyp...), moov...), mdat...)
	assert.Equal(t, expected, recovered)

	// Temp files are gone after the candidate completes.
	_, err = os.Stat(filepath.Join(outputRoot, "MP4", tempMoovName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(outputRoot, "MP4", tempMdatName))
	assert.True(t, os.IsNotExist(err))
}

func TestCarveEngineCancellation(t *testing.T) {
	devicePath := writeTestDevice(t, make([]byte, 256*1024))
	outputRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, outputRoot, primaryFormats())

	var lines []string
	ok := engine.Run(collectLog(&lines), nil, func() bool { return true })

	assert.False(t, ok)
	assert.Contains(t, lines, "[!] Operation cancelled.")
	assert.Equal(t, 0, engine.Session().TotalRecovered())
}

func TestCarveEngineOpenFailure(t *testing.T) {
	engine := NewCarveEngine(filepath.Join(t.TempDir(), "does-not-exist"), t.TempDir(), primaryFormats())
	assert.False(t, engine.Run(discardLog, nil, nil))
}

func TestCarveEngineSummaryLog(t *testing.T) {
	payload := createTestPNG(t, 4096)
	devicePath := writeTestDevice(t, payload)

	engine := NewCarveEngine(devicePath, t.TempDir(), primaryFormats())

	var lines []string
	require.True(t, engine.Run(collectLog(&lines), nil, nil))

	assert.Contains(t, lines, "File recovery summary:")
	assert.Contains(t, lines, "Total files recovered: 1")
	assert.Contains(t, lines, "PNG: 1 files recovered.")
	assert.Contains(t, lines, "JPEG: No files found.")
}

func TestCarveEngineRerunOverOutputIsStable(t *testing.T) {
	// Carving the carver's own PNG output yields the same file again and
	// nothing else: recovered files carry no extra embedded signatures.
	payload := createTestPNG(t, 4096)
	devicePath := writeTestDevice(t, payload)
	firstRoot := t.TempDir()

	engine := NewCarveEngine(devicePath, firstRoot, primaryFormats())
	require.True(t, engine.Run(discardLog, nil, nil))

	firstOut := filepath.Join(firstRoot, "PNG", "RecoveredFile_1.png")
	secondRoot := t.TempDir()
	rerun := NewCarveEngine(firstOut, secondRoot, primaryFormats())
	require.True(t, rerun.Run(discardLog, nil, nil))

	assert.Equal(t, 1, rerun.Session().TotalRecovered())
	recovered, err := os.ReadFile(filepath.Join(secondRoot, "PNG", "RecoveredFile_1.png"))
	require.NoError(t, err)
	assert.Equal(t, payload, recovered)
}
