package preprocess

import (
	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// Run applies the full preprocessing chain to the recording in place:
// bipolar reference, channel truncation, downsampling, band-limit
// filtering, kurtosis rejection with interpolation, and finally the
// common average reference. Individual stages degrade gracefully (skip
// with a warning) rather than aborting the file.
func Run(rec *eeg.Recording, cfg Config) {
	logger := logging.WithFields(logging.Fields{
		"component": "preprocess",
		"path":      rec.Path,
	})
	logger.Info("Preprocessing recording", logging.Fields{
		"channels":    rec.NumChannels(),
		"sample_rate": rec.SampleRate,
	})

	if cfg.BipolarA != "" && cfg.BipolarB != "" {
		BipolarReference(rec, cfg.BipolarA, cfg.BipolarB, cfg.BipolarReplace)
	}
	TruncateChannels(rec, cfg.MaxKeep, cfg.TriggerChannel)
	Resample(rec, cfg.TargetRate, cfg.TriggerChannel)
	BandLimit(rec, cfg.LowCutoff, cfg.HighCutoff, cfg.TriggerChannel)
	RejectByKurtosis(rec, cfg.RejectZ, cfg.TriggerChannel)
	AverageReference(rec, cfg.TriggerChannel)

	logger.Info("Preprocessing complete", logging.Fields{
		"channels":       rec.NumChannels(),
		"sample_rate":    rec.SampleRate,
		"uninterpolated": len(rec.BadChannels()),
	})
}
