package eegio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zcm58/fpvs-analysis/eeg"
)

// The EDF and BDF containers share one header layout and differ only in the
// sample width (2-byte vs 3-byte little-endian integers) and the magic in
// the version field. Annotations (EDF+/BDF+ TALs) ride along as a signal
// whose raw bytes are text rather than samples.

const fixedHeaderLen = 256

// signalHeader is the per-signal portion of the container header.
type signalHeader struct {
	Label            string
	PhysicalMin      float64
	PhysicalMax      float64
	DigitalMin       int
	DigitalMax       int
	SamplesPerRecord int
}

func (sh signalHeader) isAnnotation() bool {
	return sh.Label == "EDF Annotations" || sh.Label == "BDF Annotations"
}

// rawFile is a fully parsed container file before conversion to a Recording.
type rawFile struct {
	format         eeg.Format
	recordDuration float64
	records        int
	signals        []signalHeader
	samples        [][]float64 // per non-annotation signal, concatenated records
	annotations    []eeg.Annotation
}

// readFile parses an EDF or BDF file from disk.
func readFile(path string) (*rawFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(bufio.NewReaderSize(f, 1<<20))
}

func parse(r io.Reader) (*rawFile, error) {
	b := make([]byte, fixedHeaderLen)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	rf := &rawFile{}
	switch {
	case b[0] == 0xFF && strings.TrimSpace(string(b[1:8])) == "BIOSEMI":
		rf.format = eeg.FormatBDF
	case strings.TrimSpace(string(b[0:8])) == "0":
		rf.format = eeg.FormatEDF
	default:
		return nil, fmt.Errorf("unrecognized container format (version field %q)", string(b[0:8]))
	}

	records, err := strconv.Atoi(strings.TrimSpace(string(b[236:244])))
	if err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}
	// -1 means "record count unknown" in EDF; streaming files are out of scope.
	if records <= 0 {
		return nil, fmt.Errorf("unsupported data record count %d", records)
	}
	rf.records = records

	rf.recordDuration, err = strconv.ParseFloat(strings.TrimSpace(string(b[244:252])), 64)
	if err != nil || rf.recordDuration <= 0 {
		return nil, fmt.Errorf("invalid data record duration %q", strings.TrimSpace(string(b[244:252])))
	}

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil || signalCount <= 0 {
		return nil, fmt.Errorf("invalid signal count %q", strings.TrimSpace(string(b[252:256])))
	}

	rf.signals = make([]signalHeader, signalCount)
	if err := parseSignalHeaders(r, rf.signals); err != nil {
		return nil, err
	}

	return rf, rf.readRecords(r)
}

// parseSignalHeaders reads the per-signal header block, which is laid out
// field-by-field across all signals rather than signal-by-signal.
func parseSignalHeaders(r io.Reader, signals []signalHeader) error {
	readField := func(width int, assign func(i int, s string) error) error {
		b := make([]byte, width)
		for i := range signals {
			if _, err := io.ReadFull(r, b); err != nil {
				return fmt.Errorf("error reading signal headers: %w", err)
			}
			if err := assign(i, strings.TrimSpace(string(b))); err != nil {
				return err
			}
		}
		return nil
	}

	asFloat := func(dst func(i int) *float64) func(int, string) error {
		return func(i int, s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("signal %d: bad numeric field %q", i, s)
			}
			*dst(i) = v
			return nil
		}
	}
	asInt := func(dst func(i int) *int) func(int, string) error {
		return func(i int, s string) error {
			v, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("signal %d: bad integer field %q", i, s)
			}
			*dst(i) = v
			return nil
		}
	}
	skip := func(i int, s string) error { return nil }

	steps := []struct {
		width  int
		assign func(int, string) error
	}{
		{16, func(i int, s string) error { signals[i].Label = s; return nil }},
		{80, skip}, // transducer type
		{8, skip},  // physical dimension
		{8, asFloat(func(i int) *float64 { return &signals[i].PhysicalMin })},
		{8, asFloat(func(i int) *float64 { return &signals[i].PhysicalMax })},
		{8, asInt(func(i int) *int { return &signals[i].DigitalMin })},
		{8, asInt(func(i int) *int { return &signals[i].DigitalMax })},
		{80, skip}, // prefiltering
		{8, asInt(func(i int) *int { return &signals[i].SamplesPerRecord })},
		{32, skip}, // reserved
	}
	for _, step := range steps {
		if err := readField(step.width, step.assign); err != nil {
			return err
		}
	}
	for i, sh := range signals {
		if sh.SamplesPerRecord <= 0 {
			return fmt.Errorf("signal %d (%s): invalid samples per record %d", i, sh.Label, sh.SamplesPerRecord)
		}
		if sh.DigitalMax == sh.DigitalMin {
			return fmt.Errorf("signal %d (%s): degenerate digital range [%d, %d]", i, sh.Label, sh.DigitalMin, sh.DigitalMax)
		}
	}
	return nil
}

// readRecords decodes every data record, converting digital values to
// physical units and collecting annotation TALs.
func (rf *rawFile) readRecords(r io.Reader) error {
	width := 2
	if rf.format == eeg.FormatBDF {
		width = 3
	}

	dataSignals := 0
	for _, sh := range rf.signals {
		if !sh.isAnnotation() {
			dataSignals++
		}
	}
	rf.samples = make([][]float64, dataSignals)
	for i := range rf.samples {
		rf.samples[i] = make([]float64, 0, rf.records)
	}

	buf := make([]byte, 0)
	for rec := 0; rec < rf.records; rec++ {
		dataIdx := 0
		for _, sh := range rf.signals {
			nb := sh.SamplesPerRecord * width
			if cap(buf) < nb {
				buf = make([]byte, nb)
			}
			buf = buf[:nb]
			if _, err := io.ReadFull(r, buf); err != nil {
				return fmt.Errorf("error reading data record %d: %w", rec, err)
			}

			if sh.isAnnotation() {
				rf.annotations = append(rf.annotations, parseTALs(buf)...)
				continue
			}

			scale := (sh.PhysicalMax - sh.PhysicalMin) / float64(sh.DigitalMax-sh.DigitalMin)
			for s := 0; s < sh.SamplesPerRecord; s++ {
				var digital int
				if width == 2 {
					digital = int(int16(uint16(buf[2*s]) | uint16(buf[2*s+1])<<8))
				} else {
					v := int(buf[3*s]) | int(buf[3*s+1])<<8 | int(buf[3*s+2])<<16
					if v&0x800000 != 0 {
						v -= 0x1000000
					}
					digital = v
				}
				physical := float64(digital-sh.DigitalMin)*scale + sh.PhysicalMin
				rf.samples[dataIdx] = append(rf.samples[dataIdx], physical)
			}
			dataIdx++
		}
	}
	return nil
}

// parseTALs extracts annotations from one record's worth of a time-stamped
// annotation list signal. TAL syntax: "+onset[\x15duration]\x14label\x14...\x00".
// Onsets are absolute seconds; the record's keep-alive timestamp (a TAL with
// an empty label) is dropped.
func parseTALs(raw []byte) []eeg.Annotation {
	var out []eeg.Annotation
	for _, tal := range strings.Split(string(raw), "\x00") {
		tal = strings.TrimRight(tal, "\x00")
		if tal == "" || (tal[0] != '+' && tal[0] != '-') {
			continue
		}
		parts := strings.Split(tal, "\x14")
		timing := parts[0]
		duration := 0.0
		if idx := strings.IndexByte(timing, '\x15'); idx >= 0 {
			if d, err := strconv.ParseFloat(timing[idx+1:], 64); err == nil {
				duration = d
			}
			timing = timing[:idx]
		}
		onset, err := strconv.ParseFloat(timing, 64)
		if err != nil {
			continue
		}
		for _, label := range parts[1:] {
			if label == "" {
				continue
			}
			out = append(out, eeg.Annotation{Onset: onset, Duration: duration, Label: label})
		}
	}
	return out
}
