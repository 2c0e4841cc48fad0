package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/zcm58/fpvs-analysis/eeg"
	"github.com/zcm58/fpvs-analysis/logging"
	"github.com/zcm58/fpvs-analysis/spectral"
)

// Sheet names, one per metric, in workbook order.
const (
	SheetAmplitude = "FFT_Amplitude"
	SheetSNR       = "SNR"
	SheetZScore    = "Z_Score"
	SheetBCA       = "BCA"
)

// ElectrodeLabels returns row labels for n channels: the standard
// electrode names while they last, then generic "Ch<N>" names.
func ElectrodeLabels(n int) []string {
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(eeg.StandardElectrodeNames) {
			labels[i] = eeg.StandardElectrodeNames[i]
		} else {
			labels[i] = fmt.Sprintf("Ch%d", i+1)
		}
	}
	return labels
}

// SanitizeLabel makes a condition label safe to use as a path component.
func SanitizeLabel(label string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, label)
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		sanitized = "condition"
	}
	return sanitized
}

// OutputPath returns the workbook path for a label under the chosen
// output folder: <out>/<label>/<label>_Results.xlsx.
func OutputPath(outDir, label string) string {
	safe := SanitizeLabel(label)
	return filepath.Join(outDir, safe, safe+"_Results.xlsx")
}

// Write produces the formatted workbook for one averaged metric set: four
// sheets (amplitude, SNR, Z-score, BCA), electrode-name row labels,
// frequency column headers, centered cells and content-sized columns.
func Write(outDir string, ms *spectral.MetricSet) (string, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "results_writer",
		"label":     ms.Label,
	})

	path := OutputPath(outDir, ms.Label)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output folder: %w", err)
	}

	freqs := spectral.TargetFrequencies()
	headers := make([]string, 0, len(freqs)+1)
	headers = append(headers, "Electrode")
	for _, f := range freqs {
		headers = append(headers, fmt.Sprintf("%.1f_Hz", f))
	}
	rowLabels := ElectrodeLabels(ms.NumChannels())

	f := excelize.NewFile()
	defer f.Close()

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("create cell style: %w", err)
	}

	sheets := []struct {
		name string
		data *mat.Dense
	}{
		{SheetAmplitude, ms.Amplitude},
		{SheetSNR, ms.SNR},
		{SheetZScore, ms.ZScore},
		{SheetBCA, ms.BCA},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return "", fmt.Errorf("create sheet %s: %w", sheet.name, err)
			}
		}
		if err := writeSheet(f, sheet.name, headers, rowLabels, sheet.data, centered); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	logger.Info("Wrote results workbook", logging.Fields{
		"path":     path,
		"channels": ms.NumChannels(),
	})
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, headers, rowLabels []string, data *mat.Dense, style int) error {
	widths := make([]int, len(headers))
	for c, h := range headers {
		widths[c] = len(h)
	}

	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	rows, cols := data.Dims()
	for r := 0; r < rows; r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, rowLabels[r]); err != nil {
			return err
		}
		if len(rowLabels[r]) > widths[0] {
			widths[0] = len(rowLabels[r])
		}
		for c := 0; c < cols; c++ {
			cell, err := excelize.CoordinatesToCellName(c+2, r+2)
			if err != nil {
				return err
			}
			v := data.At(r, c)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if w := len(fmt.Sprintf("%v", v)); w > widths[c+1] {
				widths[c+1] = w
			}
		}
	}

	for c := range headers {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(widths[c]+2)); err != nil {
			return err
		}
		if err := f.SetColStyle(sheet, col, style); err != nil {
			return err
		}
	}
	return nil
}
