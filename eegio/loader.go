package eegio

import (
	"fmt"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// LoadError reports a failed load attempt with enough detail to identify
// the file and the stage that failed. A failed load yields no partial
// recording, so callers can skip the file and continue a batch.
type LoadError struct {
	Path  string
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads an EDF or BDF recording fully into memory, applies the
// standard montage template by name match, and returns the recording.
// triggerChannel names the stimulus channel the later pipeline stages
// depend on; a BDF file without it is rejected here, since its dedicated
// trigger line is the only event source that format has.
func Load(path, triggerChannel string) (*eeg.Recording, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "loader",
		"path":      path,
	})

	rf, err := readFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Stage: "parse", Err: err}
	}

	rec := &eeg.Recording{
		Path:        path,
		Format:      rf.format,
		Bads:        make(map[string]bool),
		Annotations: rf.annotations,
	}

	samplesPerRecord := 0
	dataIdx := 0
	for _, sh := range rf.signals {
		if sh.isAnnotation() {
			continue
		}
		if samplesPerRecord == 0 {
			samplesPerRecord = sh.SamplesPerRecord
		} else if sh.SamplesPerRecord != samplesPerRecord {
			return nil, &LoadError{Path: path, Stage: "signals",
				Err: fmt.Errorf("mixed per-signal sampling rates (%d vs %d samples/record)",
					sh.SamplesPerRecord, samplesPerRecord)}
		}
		rec.ChannelNames = append(rec.ChannelNames, sh.Label)
		rec.Data = append(rec.Data, rf.samples[dataIdx])
		dataIdx++
	}
	if len(rec.ChannelNames) == 0 {
		return nil, &LoadError{Path: path, Stage: "signals", Err: fmt.Errorf("no data signals")}
	}
	rec.SampleRate = float64(samplesPerRecord) / rf.recordDuration

	if rf.format == eeg.FormatBDF && rec.ChannelIndex(triggerChannel) < 0 {
		return nil, &LoadError{Path: path, Stage: "signals",
			Err: fmt.Errorf("trigger channel %q not present", triggerChannel)}
	}

	logger.Info("Loaded recording", logging.Fields{
		"format":      rf.format.String(),
		"channels":    rec.NumChannels(),
		"sample_rate": rec.SampleRate,
		"duration_s":  rec.Duration(),
		"annotations": len(rec.Annotations),
	})

	matched := rec.ApplyMontage(eeg.StandardMontage())
	if matched == 0 {
		logger.Warn("No channels matched the montage template; spatial interpolation will be unavailable")
	} else {
		logger.Debug("Applied montage template", logging.Fields{"matched": matched})
	}

	return rec, nil
}
