package eegio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
)

// PreprocPath returns the intermediate-output path for a source recording:
// "<stem>_preproc.edf" next to the source file.
func PreprocPath(sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return filepath.Join(dir, stem+"_preproc.edf")
}

// SavePreprocessed writes a preprocessed recording to path as a 16-bit EDF
// file with one-second data records. The tail partial record is dropped.
// Intermediate saves are best-effort; callers log failures and continue.
func SavePreprocessed(rec *eeg.Recording, path string) error {
	if rec.NumChannels() == 0 || rec.NumSamples() == 0 {
		return fmt.Errorf("empty recording")
	}
	samplesPerRecord := int(rec.SampleRate + 0.5)
	if samplesPerRecord <= 0 {
		return fmt.Errorf("invalid sample rate %.3f", rec.SampleRate)
	}
	records := rec.NumSamples() / samplesPerRecord
	if records == 0 {
		return fmt.Errorf("recording shorter than one data record (%d samples)", rec.NumSamples())
	}

	signals := make([]edf.Signal, rec.NumChannels())
	for i, name := range rec.ChannelNames {
		pmin, pmax := channelRange(rec.Data[i])
		signals[i] = edf.Signal{
			Label:             name,
			PhysicalDimension: "uV",
			PhysicalMin:       pmin,
			PhysicalMax:       pmax,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  samplesPerRecord,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          "X",
		RecordingID:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		StartTime:          time.Now().UTC(),
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	if err != nil {
		return fmt.Errorf("create edf: %w", err)
	}

	record := make([][]float64, rec.NumChannels())
	for r := 0; r < records; r++ {
		start := r * samplesPerRecord
		for ch := range record {
			record[ch] = rec.Data[ch][start : start+samplesPerRecord]
		}
		if err := w.WriteRecord(record); err != nil {
			return fmt.Errorf("write record %d: %w", r, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close edf: %w", err)
	}

	logging.Debug("Saved preprocessed recording", logging.Fields{
		"path":    path,
		"records": records,
	})
	return nil
}

// channelRange returns a non-degenerate physical range covering the data.
func channelRange(data []float64) (pmin, pmax float64) {
	pmin, pmax = data[0], data[0]
	for _, v := range data {
		if v < pmin {
			pmin = v
		}
		if v > pmax {
			pmax = v
		}
	}
	if pmax <= pmin {
		pmax = pmin + 1
	}
	return pmin, pmax
}
