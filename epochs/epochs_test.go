package epochs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/events"
)

func segmentRecording(n int) *eeg.Recording {
	data := make([][]float64, 3)
	for ch := range data {
		data[ch] = make([]float64, n)
		for s := range data[ch] {
			data[ch][s] = float64(ch*n + s)
		}
	}
	return &eeg.Recording{
		Path:         "sub01.bdf",
		ChannelNames: []string{"A1", "A2", "Status"},
		SampleRate:   256,
		Data:         data,
		Bads:         make(map[string]bool),
	}
}

func TestSegmentCountConservation(t *testing.T) {
	rec := segmentRecording(4096)
	result := &events.Result{
		Events: []events.Event{
			{Sample: 500, Code: 7},
			{Sample: 1500, Code: 7},
			{Sample: 2500, Code: 7},
			{Sample: 3000, Code: 9},
		},
	}
	window := Window{Start: -1, End: 2}

	set := Segment(rec, result, events.Mapping{Label: "A", Code: 7}, window, "Status")
	require.NotNil(t, set)

	assert.Equal(t, "A", set.Label)
	assert.Equal(t, "sub01.bdf", set.SourcePath)
	assert.Equal(t, []string{"A1", "A2"}, set.ChannelNames)
	require.Len(t, set.Epochs, 3)
	assert.Equal(t, window.Samples(rec.SampleRate), set.Epochs[0].NumSamples())

	// Epoch data is anchored at event-1s into the source channel.
	assert.Equal(t, rec.Data[0][244], set.Epochs[0].Data()[0][0])
}

func TestSegmentDropsBoundaryEvents(t *testing.T) {
	rec := segmentRecording(1024)
	result := &events.Result{
		Events: []events.Event{
			{Sample: 100, Code: 7}, // window starts before sample 0
			{Sample: 400, Code: 7},
			{Sample: 900, Code: 7}, // window runs past the end
		},
	}
	window := Window{Start: -1, End: 2}

	set := Segment(rec, result, events.Mapping{Label: "A", Code: 7}, window, "Status")
	require.NotNil(t, set)
	require.Len(t, set.Epochs, 1)
	assert.Equal(t, 400, set.Epochs[0].Event.Sample)
}

func TestSegmentLabelMatchingIsCaseSensitive(t *testing.T) {
	rec := segmentRecording(2048)
	result := &events.Result{
		Events:     []events.Event{{Sample: 1000, Code: 1, Label: "Face"}},
		Vocabulary: map[string]int{"Face": 1},
	}
	window := Window{Start: -1, End: 2}

	assert.Nil(t, Segment(rec, result, events.Mapping{Label: "face", Code: 1}, window, "Status"))
	assert.NotNil(t, Segment(rec, result, events.Mapping{Label: "Face", Code: 1}, window, "Status"))
}

func TestSegmentExcludesBadChannels(t *testing.T) {
	rec := segmentRecording(2048)
	rec.MarkBad("A2")
	result := &events.Result{Events: []events.Event{{Sample: 1000, Code: 7}}}

	set := Segment(rec, result, events.Mapping{Label: "A", Code: 7}, Window{Start: -1, End: 2}, "Status")
	require.NotNil(t, set)
	assert.Equal(t, []string{"A1"}, set.ChannelNames)
}

func TestSegmentAll(t *testing.T) {
	rec := segmentRecording(4096)
	result := &events.Result{
		Events: []events.Event{
			{Sample: 1000, Code: 7},
			{Sample: 2000, Code: 9},
		},
	}
	idMap := events.IDMap{
		{Label: "A", Code: 7},
		{Label: "B", Code: 9},
		{Label: "C", Code: 11},
	}

	sets := SegmentAll(rec, result, idMap, Window{Start: -1, End: 2}, "Status")

	require.Len(t, sets, 2)
	assert.Len(t, sets["A"].Epochs, 1)
	assert.Len(t, sets["B"].Epochs, 1)
	_, present := sets["C"]
	assert.False(t, present)
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{Start: -1, End: 2}.Validate())
	assert.Error(t, Window{Start: 2, End: 2}.Validate())
	assert.Error(t, Window{Start: 3, End: 2}.Validate())
	assert.Equal(t, 768, Window{Start: -1, End: 2}.Samples(256))
}
