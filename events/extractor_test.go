package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcm58/fpvs-analysis/eeg"
)

func triggerRecording(trigger []float64) *eeg.Recording {
	return &eeg.Recording{
		ChannelNames: []string{"A1", "Status"},
		SampleRate:   256,
		Data:         [][]float64{make([]float64, len(trigger)), trigger},
	}
}

func TestExtractThreshold(t *testing.T) {
	trigger := make([]float64, 100)
	// Three pulses of code 7 and one of code 9.
	for _, start := range []int{10, 30, 50} {
		for i := start; i < start+5; i++ {
			trigger[i] = 7
		}
	}
	trigger[80] = 9

	result, err := Extract(triggerRecording(trigger), StrategyThreshold, "Status")
	require.NoError(t, err)

	require.Len(t, result.Events, 4)
	assert.Equal(t, Event{Sample: 10, Code: 7}, result.Events[0])
	assert.Equal(t, Event{Sample: 30, Code: 7}, result.Events[1])
	assert.Equal(t, Event{Sample: 50, Code: 7}, result.Events[2])
	assert.Equal(t, Event{Sample: 80, Code: 9}, result.Events[3])
	assert.Equal(t, []int{7, 9}, result.Codes())
}

func TestExtractThresholdMasksStatusBits(t *testing.T) {
	trigger := make([]float64, 20)
	// Hardware flag bits above bit 15 must not change the code.
	trigger[5] = float64(0x10000 + 7)
	trigger[10] = -3

	result, err := Extract(triggerRecording(trigger), StrategyThreshold, "Status")
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, Event{Sample: 5, Code: 7}, result.Events[0])
}

func TestExtractThresholdMissingChannel(t *testing.T) {
	rec := &eeg.Recording{
		ChannelNames: []string{"A1"},
		SampleRate:   256,
		Data:         [][]float64{make([]float64, 10)},
	}
	_, err := Extract(rec, StrategyThreshold, "Status")
	assert.Error(t, err)
}

func TestExtractAnnotations(t *testing.T) {
	rec := triggerRecording(make([]float64, 512))
	rec.Annotations = []eeg.Annotation{
		{Onset: 1.0, Label: "face"},
		{Onset: 0.5, Label: "house"},
		{Onset: 1.5, Label: "face"},
	}

	result, err := Extract(rec, StrategyAnnotations, "Status")
	require.NoError(t, err)

	// Codes are assigned 1-based over the sorted vocabulary.
	assert.Equal(t, map[string]int{"face": 1, "house": 2}, result.Vocabulary)
	assert.Equal(t, []string{"face", "house"}, result.Labels())

	require.Len(t, result.Events, 3)
	assert.Equal(t, Event{Sample: 128, Code: 2, Label: "house"}, result.Events[0])
	assert.Equal(t, Event{Sample: 256, Code: 1, Label: "face"}, result.Events[1])
	assert.Equal(t, Event{Sample: 384, Code: 1, Label: "face"}, result.Events[2])
}

func TestExtractAutoPrefersAnnotations(t *testing.T) {
	trigger := make([]float64, 512)
	trigger[100] = 7
	rec := triggerRecording(trigger)
	rec.Annotations = []eeg.Annotation{{Onset: 0.25, Label: "stim"}}

	result, err := Extract(rec, StrategyAuto, "Status")
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, "stim", result.Events[0].Label)

	rec.Annotations = nil
	result, err = Extract(rec, StrategyAuto, "Status")
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, 7, result.Events[0].Code)
}

func TestIDMapValidate(t *testing.T) {
	require.NoError(t, IDMap{{Label: "A", Code: 7}, {Label: "B", Code: 9}}.Validate())

	assert.Error(t, IDMap{}.Validate())
	assert.Error(t, IDMap{{Label: "", Code: 7}}.Validate())
	assert.Error(t, IDMap{{Label: "A", Code: 7}, {Label: "A", Code: 9}}.Validate())
}
