package preprocess

import "fmt"

// DefaultTriggerChannel is the stimulus channel name used when none is
// configured. BioSemi hardware calls its digital trigger line "Status".
const DefaultTriggerChannel = "Status"

// Config holds the preprocessing-chain parameters. Zero values mean
// "stage disabled" for the optional stages. The struct is built once at
// run start and treated as immutable for the duration of a run.
type Config struct {
	// BipolarA/BipolarB name the channels for the derived bipolar
	// reference channel (A minus B). Both empty disables the stage;
	// both must be set together.
	BipolarA string `json:"bipolar_a,omitempty"`
	BipolarB string `json:"bipolar_b,omitempty"`
	// BipolarReplace replaces the two source channels with the derived
	// channel instead of appending it.
	BipolarReplace bool `json:"bipolar_replace,omitempty"`

	// MaxKeep keeps only the first MaxKeep channels (acquisition order),
	// always preserving the trigger channel. 0 disables truncation.
	MaxKeep int `json:"max_keep,omitempty"`

	// TargetRate downsamples to this rate in Hz when it is below the
	// recording's rate. Never upsamples. 0 disables resampling.
	TargetRate float64 `json:"target_rate,omitempty"`

	// LowCutoff/HighCutoff bound the band-limiting filter in Hz. Either
	// may be 0, meaning no limit on that side.
	LowCutoff  float64 `json:"low_cutoff,omitempty"`
	HighCutoff float64 `json:"high_cutoff,omitempty"`

	// RejectZ is the kurtosis z-score threshold for flagging bad
	// channels. 0 disables rejection.
	RejectZ float64 `json:"reject_z,omitempty"`

	// TriggerChannel is excluded from referencing, filtering, rejection
	// and truncation so event extraction still sees the raw trigger line.
	TriggerChannel string `json:"trigger_channel"`
}

// DefaultConfig returns the preprocessing defaults the lab runs with.
func DefaultConfig() Config {
	return Config{
		RejectZ:        5.0,
		TriggerChannel: DefaultTriggerChannel,
	}
}

// Validate rejects inconsistent parameters before any processing starts.
func (c Config) Validate() error {
	if (c.BipolarA == "") != (c.BipolarB == "") {
		return fmt.Errorf("specify both bipolar reference channels or neither")
	}
	if c.BipolarA != "" && c.BipolarA == c.BipolarB {
		return fmt.Errorf("bipolar reference channels must differ")
	}
	if c.MaxKeep < 0 {
		return fmt.Errorf("max-keep channel count must be positive")
	}
	if c.TargetRate < 0 {
		return fmt.Errorf("target resample rate must be positive")
	}
	if c.LowCutoff < 0 || c.HighCutoff < 0 {
		return fmt.Errorf("filter cutoffs must be positive")
	}
	if c.LowCutoff > 0 && c.HighCutoff > 0 && c.LowCutoff >= c.HighCutoff {
		return fmt.Errorf("low cutoff %.2f Hz must be below high cutoff %.2f Hz",
			c.LowCutoff, c.HighCutoff)
	}
	if c.RejectZ < 0 {
		return fmt.Errorf("rejection z-threshold must be positive")
	}
	if c.TriggerChannel == "" {
		return fmt.Errorf("trigger channel name is required")
	}
	return nil
}
