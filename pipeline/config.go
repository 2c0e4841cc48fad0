package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zcm58/fpvs-analysis/epochs"
	"github.com/zcm58/fpvs-analysis/events"
	"github.com/zcm58/fpvs-analysis/preprocess"
	"github.com/zcm58/fpvs-analysis/spectral"
)

// Config describes a full batch run. All fields are validated before any
// file is touched.
type Config struct {
	// Inputs are recording files or folders. Folders are expanded to the
	// supported recording files they contain.
	Inputs []string `json:"inputs"`

	// OutputDir receives one subfolder per condition label.
	OutputDir string `json:"output_dir"`

	// SavePreprocessed writes a "<stem>_preproc.edf" next to each source
	// file after the preprocessing chain. Failures are logged, never fatal.
	SavePreprocessed bool `json:"save_preprocessed"`

	// Strategy selects how events are pulled out of a recording.
	Strategy events.Strategy `json:"strategy"`

	Preprocess preprocess.Config `json:"preprocess"`
	Window     epochs.Window     `json:"window"`
	IDMap      events.IDMap      `json:"id_map"`
	Spectral   spectral.Params   `json:"spectral"`
}

// DefaultConfig returns a config with the standard preprocessing and
// spectral parameters. Inputs, OutputDir and IDMap must still be set.
func DefaultConfig() Config {
	return Config{
		Strategy:   events.StrategyAuto,
		Preprocess: preprocess.DefaultConfig(),
		Spectral:   spectral.DefaultParams(),
	}
}

// Validate checks the run configuration and every nested section.
func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("no input files or folders given")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output folder is required")
	}
	if err := c.Preprocess.Validate(); err != nil {
		return fmt.Errorf("preprocess config: %w", err)
	}
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("epoch window: %w", err)
	}
	if err := c.IDMap.Validate(); err != nil {
		return fmt.Errorf("id map: %w", err)
	}
	if err := c.Spectral.Validate(); err != nil {
		return fmt.Errorf("spectral params: %w", err)
	}
	return nil
}

// SupportedExtension reports whether path names a recording format the
// loader understands.
func SupportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".edf", ".bdf":
		return true
	}
	return false
}

// ExpandInputs resolves the configured inputs to a flat, sorted list of
// recording files. Folder entries are scanned one level deep for
// supported extensions; explicit file entries are kept as given.
func ExpandInputs(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat input %s: %w", in, err)
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, fmt.Errorf("read folder %s: %w", in, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if SupportedExtension(entry.Name()) {
				found = append(found, filepath.Join(in, entry.Name()))
			}
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("folder %s contains no supported recordings", in)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
