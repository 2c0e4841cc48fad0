package pipeline

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zcm58/fpvs-analysis/epochs"
	"github.com/zcm58/fpvs-analysis/events"
	"github.com/zcm58/fpvs-analysis/results"
	"github.com/zcm58/fpvs-analysis/spectral"
)

// writeTestEDF builds a two-signal EDF file: one data channel carrying a
// 2.5 Hz sine and a Status channel with trigger code 7 at sample 1000.
// 8 one-second records at 256 Hz, identity digital scaling.
func writeTestEDF(t *testing.T, dir, name string) string {
	t.Helper()

	const records = 8
	const perRecord = 256
	n := records * perRecord

	signal := make([]int, n)
	for i := range signal {
		signal[i] = int(math.Round(1000 * math.Sin(2*math.Pi*2.5*float64(i)/256)))
	}
	trigger := make([]int, n)
	for i := 1000; i < 1005; i++ {
		trigger[i] = 7
	}

	pad := func(buf *bytes.Buffer, s string, width int) {
		b := make([]byte, width)
		copy(b, s)
		for i := len(s); i < width; i++ {
			b[i] = ' '
		}
		buf.Write(b)
	}

	var buf bytes.Buffer
	pad(&buf, "0", 8)
	pad(&buf, "", 80)
	pad(&buf, "", 80)
	pad(&buf, "", 8)
	pad(&buf, "", 8)
	pad(&buf, fmt.Sprintf("%d", 256+2*256), 8)
	pad(&buf, "", 44)
	pad(&buf, fmt.Sprintf("%d", records), 8)
	pad(&buf, "1", 8)
	pad(&buf, "2", 4)

	labels := []string{"C3", "Status"}
	field := func(width int, values []string) {
		for _, v := range values {
			pad(&buf, v, width)
		}
	}
	field(16, labels)
	field(80, []string{"", ""})
	field(8, []string{"uV", ""})
	field(8, []string{"-32768", "-32768"})
	field(8, []string{"32767", "32767"})
	field(8, []string{"-32768", "-32768"})
	field(8, []string{"32767", "32767"})
	field(80, []string{"", ""})
	field(8, []string{"256", "256"})
	field(32, []string{"", ""})

	writeSamples := func(values []int) {
		for _, v := range values {
			buf.WriteByte(byte(v))
			buf.WriteByte(byte(v >> 8))
		}
	}
	for rec := 0; rec < records; rec++ {
		writeSamples(signal[rec*perRecord : (rec+1)*perRecord])
		writeSamples(trigger[rec*perRecord : (rec+1)*perRecord])
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// drain consumes the runner's queue until the done message.
func drain(t *testing.T, runner *Runner) (sets map[string][]*epochs.Set, runErr string) {
	t.Helper()
	for msg := range runner.Messages() {
		switch msg.Type {
		case MessageResult:
			sets = msg.Sets
		case MessageError:
			runErr = msg.Text
		case MessageDone:
			return sets, runErr
		}
	}
	t.Fatal("message queue closed without a done message")
	return nil, ""
}

func testConfig(t *testing.T, inputs ...string) Config {
	cfg := DefaultConfig()
	cfg.Inputs = inputs
	cfg.OutputDir = t.TempDir()
	cfg.Preprocess.RejectZ = 0
	cfg.Window = epochs.Window{Start: -1, End: 2}
	cfg.IDMap = events.IDMap{
		{Label: "A", Code: 7},
		{Label: "B", Code: 9},
	}
	return cfg
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	one := writeTestEDF(t, dir, "sub01.edf")
	two := writeTestEDF(t, dir, "sub02.edf")

	cfg := testConfig(t, one, two)
	runner := NewRunner()
	require.NoError(t, runner.Start(cfg))

	sets, runErr := drain(t, runner)
	assert.Empty(t, runErr)
	assert.Equal(t, StateSucceeded, runner.State())

	// Label A collected one epoch per file; label B's code never fires.
	require.Len(t, sets, 1)
	require.Len(t, sets["A"], 2)
	for _, set := range sets["A"] {
		assert.Len(t, set.Epochs, 1)
		assert.Equal(t, []string{"C3"}, set.ChannelNames)
		assert.Equal(t, 768, set.Epochs[0].NumSamples())
	}

	paths, err := PostProcess(sets, cfg.Spectral, cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, results.OutputPath(cfg.OutputDir, "A"), paths[0])

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.GetSheetList(), 4)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		require.Len(t, rows, 2, "sheet %s", sheet)
		assert.Len(t, rows[0], spectral.TargetCount+1)
	}

	runner.Reset()
	assert.Equal(t, StateIdle, runner.State())
}

func TestRunnerRerunMatches(t *testing.T) {
	dir := t.TempDir()
	input := writeTestEDF(t, dir, "sub01.edf")

	workbook := func(outDir string) [][][]string {
		cfg := testConfig(t, input)
		cfg.OutputDir = outDir
		runner := NewRunner()
		require.NoError(t, runner.Start(cfg))
		sets, runErr := drain(t, runner)
		require.Empty(t, runErr)

		paths, err := PostProcess(sets, cfg.Spectral, cfg.OutputDir)
		require.NoError(t, err)
		require.Len(t, paths, 1)

		f, err := excelize.OpenFile(paths[0])
		require.NoError(t, err)
		defer f.Close()

		var sheets [][][]string
		for _, sheet := range f.GetSheetList() {
			rows, err := f.GetRows(sheet)
			require.NoError(t, err)
			sheets = append(sheets, rows)
		}
		return sheets
	}

	first := workbook(t.TempDir())
	second := workbook(t.TempDir())

	require.Len(t, second, len(first))
	for s := range first {
		require.Len(t, second[s], len(first[s]))
		for r := range first[s] {
			require.Len(t, second[s][r], len(first[s][r]))
			for c, cell := range first[s][r] {
				v1, err1 := strconv.ParseFloat(cell, 64)
				v2, err2 := strconv.ParseFloat(second[s][r][c], 64)
				if err1 == nil && err2 == nil {
					assert.InDelta(t, v1, v2, 1e-9)
					continue
				}
				assert.Equal(t, cell, second[s][r][c])
			}
		}
	}
}

func TestRunnerFolderInput(t *testing.T) {
	dir := t.TempDir()
	writeTestEDF(t, dir, "sub01.edf")
	writeTestEDF(t, dir, "sub02.edf")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	files, err := ExpandInputs([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "sub01.edf"),
		filepath.Join(dir, "sub02.edf"),
	}, files)
}

func TestRunnerSkipsBadFile(t *testing.T) {
	dir := t.TempDir()
	good := writeTestEDF(t, dir, "sub01.edf")
	bad := filepath.Join(dir, "broken.edf")
	require.NoError(t, os.WriteFile(bad, []byte("not a recording"), 0o644))

	runner := NewRunner()
	require.NoError(t, runner.Start(testConfig(t, bad, good)))

	sets, runErr := drain(t, runner)
	assert.Empty(t, runErr)
	assert.Equal(t, StateSucceeded, runner.State())
	require.Len(t, sets["A"], 1)
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEDF(t, dir, "sub-01.edf")

	runner := NewRunner()
	require.True(t, runner.slot.TryAcquire(1))
	defer runner.slot.Release(1)

	err := runner.Start(testConfig(t, path))
	assert.ErrorIs(t, err, ErrBusy)

	_, err = runner.Detect("whatever.edf", events.StrategyAuto, "")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRunnerValidatesConfig(t *testing.T) {
	runner := NewRunner()

	cfg := testConfig(t, t.TempDir())
	cfg.IDMap = nil
	assert.Error(t, runner.Start(cfg))

	cfg = testConfig(t, t.TempDir())
	cfg.Window = epochs.Window{Start: 2, End: 1}
	assert.Error(t, runner.Start(cfg))

	// A failed start must leave the worker slot free.
	require.True(t, runner.slot.TryAcquire(1))
	runner.slot.Release(1)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	path := writeTestEDF(t, dir, "sub01.edf")

	runner := NewRunner()
	result, err := runner.Detect(path, events.StrategyAuto, "Status")
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, 7, result.Events[0].Code)
	assert.Equal(t, 1000, result.Events[0].Sample)
}

func TestPostProcessEmpty(t *testing.T) {
	paths, err := PostProcess(nil, spectral.DefaultParams(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestSupportedExtension(t *testing.T) {
	assert.True(t, SupportedExtension("a.edf"))
	assert.True(t, SupportedExtension("A.BDF"))
	assert.False(t, SupportedExtension("a.set"))
	assert.False(t, SupportedExtension("a.txt"))
}
