package results

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/zcm58/fpvs-analysis/spectral"
)

func testMetricSet(label string, channels []string) *spectral.MetricSet {
	n := len(channels)
	filled := func(base float64) *mat.Dense {
		m := mat.NewDense(n, spectral.TargetCount, nil)
		for r := 0; r < n; r++ {
			for c := 0; c < spectral.TargetCount; c++ {
				m.Set(r, c, base+float64(r)+float64(c)/100)
			}
		}
		return m
	}
	return &spectral.MetricSet{
		Label:     label,
		Channels:  channels,
		Amplitude: filled(1),
		SNR:       filled(10),
		ZScore:    filled(20),
		BCA:       filled(30),
	}
}

func TestWriteWorkbook(t *testing.T) {
	out := t.TempDir()
	ms := testMetricSet("FacesVsObjects", []string{"Fp1", "AF7"})

	path, err := Write(out, ms)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "FacesVsObjects", "FacesVsObjects_Results.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetAmplitude, SheetSNR, SheetZScore, SheetBCA}, f.GetSheetList())

	rows, err := f.GetRows(SheetAmplitude)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Electrode", rows[0][0])
	assert.Equal(t, "1.2_Hz", rows[0][1])
	assert.Equal(t, "16.8_Hz", rows[0][spectral.TargetCount])
	assert.Equal(t, "Fp1", rows[1][0])
	assert.Equal(t, "AF7", rows[2][0])

	v, err := f.GetCellValue(SheetSNR, "B2")
	require.NoError(t, err)
	assert.Equal(t, "10", v)
}

func TestWriteSanitizesLabel(t *testing.T) {
	out := t.TempDir()
	ms := testMetricSet("faces/objects", []string{"Fp1"})

	path, err := Write(out, ms)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "faces_objects", "faces_objects_Results.xlsx"), path)
}

func TestElectrodeLabels(t *testing.T) {
	labels := ElectrodeLabels(66)
	require.Len(t, labels, 66)
	assert.Equal(t, "Fp1", labels[0])
	assert.Equal(t, "Ch65", labels[64])
	assert.Equal(t, "Ch66", labels[65])
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeLabel(`a/b:c`))
	assert.Equal(t, "condition", SanitizeLabel("  "))
	assert.Equal(t, "Faces", SanitizeLabel("Faces"))
}
