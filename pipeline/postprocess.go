package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zcm58/fpvs-analysis/epochs"
	"github.com/zcm58/fpvs-analysis/logging"
	"github.com/zcm58/fpvs-analysis/results"
	"github.com/zcm58/fpvs-analysis/spectral"
)

// PostProcess runs the spectral phase over the collected epoch sets:
// per-file metrics, cross-file averaging, and one workbook per label. It
// runs on the controller side after a successful batch. A failure for one
// label is logged and does not stop the others; the returned error joins
// the per-label failures. Labels with no contributing files produce no
// workbook.
func PostProcess(sets map[string][]*epochs.Set, params spectral.Params, outDir string) ([]string, error) {
	logger := logging.WithFields(logging.Fields{"component": "postprocess"})

	if len(sets) == 0 {
		logger.Warn("No epochs collected, nothing to analyze")
		return nil, nil
	}

	labels := make([]string, 0, len(sets))
	for label := range sets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	engine := spectral.NewEngine(params)
	var paths []string
	var errs []error
	for _, label := range labels {
		agg := spectral.NewAggregator(label)
		for _, set := range sets[label] {
			ms, err := engine.Compute(set)
			if err != nil {
				logger.Warn("Spectral computation failed", logging.Fields{
					"label": label,
					"file":  set.SourcePath,
					"error": err.Error(),
				})
				continue
			}
			agg.Add(ms)
		}
		if agg.Count() == 0 {
			logger.Warn("No usable data for condition, skipping output", logging.Fields{
				"label": label,
			})
			continue
		}
		path, err := results.Write(outDir, agg.Mean())
		if err != nil {
			errs = append(errs, fmt.Errorf("write results for %s: %w", label, err))
			logger.Error(err, "Failed to write results workbook", logging.Fields{
				"label": label,
			})
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
