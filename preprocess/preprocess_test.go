package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcm58/fpvs-analysis/eeg"
)

func newTestRecording(names []string, rate float64, data [][]float64) *eeg.Recording {
	return &eeg.Recording{
		Path:         "test",
		Format:       eeg.FormatEDF,
		ChannelNames: names,
		SampleRate:   rate,
		Data:         data,
		Bads:         make(map[string]bool),
	}
}

func sine(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

func zeros(n int) []float64 { return make([]float64, n) }

func TestTruncateChannelsKeepsTrigger(t *testing.T) {
	rec := newTestRecording(
		[]string{"A1", "A2", "A3", "A4", "Status"}, 256,
		[][]float64{zeros(8), zeros(8), zeros(8), zeros(8), zeros(8)},
	)

	TruncateChannels(rec, 2, "Status")

	assert.Equal(t, []string{"A1", "A2", "Status"}, rec.ChannelNames)
	assert.GreaterOrEqual(t, rec.ChannelIndex("Status"), 0)
}

func TestTruncateChannelsNoop(t *testing.T) {
	names := []string{"A1", "A2", "Status"}
	rec := newTestRecording(names, 256, [][]float64{zeros(4), zeros(4), zeros(4)})

	TruncateChannels(rec, 0, "Status")
	assert.Equal(t, names, rec.ChannelNames)

	TruncateChannels(rec, 10, "Status")
	assert.Equal(t, names, rec.ChannelNames)
}

func TestResampleNeverIncreasesRate(t *testing.T) {
	rec := newTestRecording(
		[]string{"A1", "Status"}, 256,
		[][]float64{sine(4, 256, 256), zeros(256)},
	)

	Resample(rec, 512, "Status")
	assert.Equal(t, 256.0, rec.SampleRate)
	assert.Equal(t, 256, rec.NumSamples())

	Resample(rec, 128, "Status")
	assert.Equal(t, 128.0, rec.SampleRate)
	assert.Equal(t, 128, rec.NumSamples())
}

func TestResamplePreservesTriggerCodes(t *testing.T) {
	trigger := zeros(256)
	for i := 100; i < 120; i++ {
		trigger[i] = 7
	}
	rec := newTestRecording(
		[]string{"A1", "Status"}, 256,
		[][]float64{sine(2, 256, 256), trigger},
	)

	Resample(rec, 128, "Status")

	status, err := rec.Channel("Status")
	require.NoError(t, err)
	found := false
	for _, v := range status {
		if v != 0 {
			assert.Equal(t, 7.0, v)
			found = true
		}
	}
	assert.True(t, found, "trigger code lost during resampling")
}

func TestRejectByKurtosisDeterministic(t *testing.T) {
	build := func() *eeg.Recording {
		n := 256
		spiky := zeros(n)
		spiky[100] = 100
		data := [][]float64{
			sine(1, 256, n), sine(2, 256, n), sine(3, 256, n), sine(4, 256, n),
			sine(5, 256, n), sine(6, 256, n), sine(7, 256, n), spiky, zeros(n),
		}
		return newTestRecording(
			[]string{"X1", "X2", "X3", "X4", "X5", "X6", "X7", "X8", "Status"},
			256, data,
		)
	}

	first := build()
	RejectByKurtosis(first, 2, "Status")

	second := build()
	RejectByKurtosis(second, 2, "Status")

	// No montage positions, so flagged channels stay bad instead of being
	// interpolated.
	assert.Equal(t, []string{"X8"}, first.BadChannels())
	assert.Equal(t, first.BadChannels(), second.BadChannels())
}

func TestBipolarReferenceAddsDerivedChannel(t *testing.T) {
	rec := newTestRecording(
		[]string{"EXG1", "EXG2", "Status"}, 256,
		[][]float64{{5, 6, 7, 8}, {1, 2, 3, 4}, zeros(4)},
	)

	BipolarReference(rec, "EXG1", "EXG2", false)

	derived, err := rec.Channel("EXG1-EXG2")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4, 4}, derived)
	assert.Equal(t, 4, rec.NumChannels())
}

func TestBipolarReferenceMissingChannel(t *testing.T) {
	rec := newTestRecording(
		[]string{"EXG1", "Status"}, 256,
		[][]float64{{5, 6}, zeros(2)},
	)

	BipolarReference(rec, "EXG1", "EXG2", false)

	assert.Equal(t, []string{"EXG1", "Status"}, rec.ChannelNames)
}

func TestAverageReference(t *testing.T) {
	trigger := []float64{0, 7, 7, 0}
	rec := newTestRecording(
		[]string{"A1", "A2", "Status"}, 256,
		[][]float64{{1, 2, 3, 4}, {3, 4, 5, 6}, append([]float64(nil), trigger...)},
	)

	AverageReference(rec, "Status")

	for s := 0; s < rec.NumSamples(); s++ {
		sum := rec.Data[0][s] + rec.Data[1][s]
		assert.InDelta(t, 0, sum, 1e-9)
	}
	status, err := rec.Channel("Status")
	require.NoError(t, err)
	assert.Equal(t, trigger, status)
}

func TestBandLimitPreservesTrigger(t *testing.T) {
	trigger := zeros(256)
	trigger[50] = 7
	rec := newTestRecording(
		[]string{"A1", "Status"}, 256,
		[][]float64{sine(10, 256, 256), append([]float64(nil), trigger...)},
	)

	BandLimit(rec, 1, 40, "Status")

	status, err := rec.Channel("Status")
	require.NoError(t, err)
	assert.Equal(t, trigger, status)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.TriggerChannel = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.BipolarA = "EXG1"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.LowCutoff = 40
	bad.HighCutoff = 1
	assert.Error(t, bad.Validate())
}
