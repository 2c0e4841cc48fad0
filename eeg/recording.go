package eeg

import (
	"fmt"
	"math"
)

// Format identifies the container a recording was loaded from.
type Format int

const (
	FormatUnknown Format = iota
	// FormatEDF is the 16-bit European Data Format (EDF/EDF+)
	FormatEDF
	// FormatBDF is the 24-bit BioSemi variant of EDF
	FormatBDF
)

func (f Format) String() string {
	switch f {
	case FormatEDF:
		return "edf"
	case FormatBDF:
		return "bdf"
	default:
		return "unknown"
	}
}

// Annotation is a labeled time marker attached to a recording.
// Onset is in seconds from the start of the recording, so it stays
// valid across resampling.
type Annotation struct {
	Onset    float64 `json:"onset"`
	Duration float64 `json:"duration"`
	Label    string  `json:"label"`
}

// Recording is an in-memory multichannel time series with channel metadata.
// It is created by the loader and mutated in place through the preprocessing
// chain. Data is laid out [channel][sample]; channel order is the physical
// acquisition order.
type Recording struct {
	Path         string
	Format       Format
	ChannelNames []string
	SampleRate   float64
	Data         [][]float64

	// Positions maps channel name to a 3-D electrode coordinate. Channels
	// absent from the montage template have no entry; spatial interpolation
	// is impossible for them and must be skipped.
	Positions map[string][3]float64

	// Bads is the mutable bad-channel set maintained by artifact rejection.
	Bads map[string]bool

	// Annotations are out-of-band labeled markers (EDF+/BDF+ TALs). Empty
	// for recordings that only carry a raw numeric trigger line.
	Annotations []Annotation
}

// NumChannels returns the number of channels currently retained.
func (r *Recording) NumChannels() int {
	return len(r.ChannelNames)
}

// NumSamples returns the per-channel sample count, 0 for an empty recording.
func (r *Recording) NumSamples() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// Duration returns the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(r.NumSamples()) / r.SampleRate
}

// ChannelIndex returns the index of the named channel (case-sensitive),
// or -1 if absent.
func (r *Recording) ChannelIndex(name string) int {
	for i, ch := range r.ChannelNames {
		if ch == name {
			return i
		}
	}
	return -1
}

// Channel returns the sample series for the named channel.
func (r *Recording) Channel(name string) ([]float64, error) {
	idx := r.ChannelIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("channel %q not present", name)
	}
	return r.Data[idx], nil
}

// AppendChannel adds a derived channel to the end of the channel set.
func (r *Recording) AppendChannel(name string, samples []float64) error {
	if r.NumChannels() > 0 && len(samples) != r.NumSamples() {
		return fmt.Errorf("channel %q length %d does not match recording length %d",
			name, len(samples), r.NumSamples())
	}
	if r.ChannelIndex(name) >= 0 {
		return fmt.Errorf("channel %q already present", name)
	}
	r.ChannelNames = append(r.ChannelNames, name)
	r.Data = append(r.Data, samples)
	return nil
}

// KeepChannels retains only the channels at the given indices, preserving
// the given order. Indices outside the channel range are ignored.
func (r *Recording) KeepChannels(indices []int) {
	names := make([]string, 0, len(indices))
	data := make([][]float64, 0, len(indices))
	kept := make(map[string]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(r.ChannelNames) {
			continue
		}
		names = append(names, r.ChannelNames[idx])
		data = append(data, r.Data[idx])
		kept[r.ChannelNames[idx]] = true
	}
	r.ChannelNames = names
	r.Data = data
	for ch := range r.Bads {
		if !kept[ch] {
			delete(r.Bads, ch)
		}
	}
}

// MarkBad adds a channel to the bad set.
func (r *Recording) MarkBad(name string) {
	if r.Bads == nil {
		r.Bads = make(map[string]bool)
	}
	r.Bads[name] = true
}

// BadChannels returns the bad-channel names in channel order.
func (r *Recording) BadChannels() []string {
	var bads []string
	for _, ch := range r.ChannelNames {
		if r.Bads[ch] {
			bads = append(bads, ch)
		}
	}
	return bads
}

// SampleAt converts a time in seconds to the nearest sample index.
func (r *Recording) SampleAt(seconds float64) int {
	return int(math.Round(seconds * r.SampleRate))
}
