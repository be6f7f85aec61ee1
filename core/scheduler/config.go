package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Options controls a scheduling pass.
type Options struct {
	MaintainInputOrder bool `json:"maintain_input_order" yaml:"maintain_input_order"`
	AllowOverTheAxis   bool `json:"allow_over_the_axis" yaml:"allow_over_the_axis"`
	AvoidZenithBand    bool `json:"avoid_zenith_band" yaml:"avoid_zenith_band"`
	NoSchedulingInPast bool `json:"no_scheduling_in_past" yaml:"no_scheduling_in_past"`
	// DefaultMaxAirmass applies to targets without an airmass constraint.
	// Zero disables the limit.
	DefaultMaxAirmass float64 `json:"default_max_airmass" yaml:"default_max_airmass"`
	// MinGapSeconds is kept free between consecutive regular targets.
	MinGapSeconds float64 `json:"min_gap_seconds" yaml:"min_gap_seconds"`

	// Now is the reference time for NoSchedulingInPast. Zero means the wall
	// clock at the start of the pass.
	Now time.Time `json:"-" yaml:"-"`
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.DefaultMaxAirmass != 0 && o.DefaultMaxAirmass < 1 {
		return fmt.Errorf("default_max_airmass must be 0 or at least 1, got %v", o.DefaultMaxAirmass)
	}
	if o.MinGapSeconds < 0 {
		return fmt.Errorf("min_gap_seconds must not be negative")
	}
	return nil
}

// MinGap returns MinGapSeconds as a duration.
func (o Options) MinGap() time.Duration {
	return time.Duration(o.MinGapSeconds * float64(time.Second))
}

// LoadConfig overlays the options file at path onto base. Keys missing from
// the file keep their base value.
func LoadConfig(path string, base Options) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer f.Close()
	opts, err := DecodeConfig(f, strings.TrimPrefix(filepath.Ext(path), "."), base)
	if err != nil {
		return base, fmt.Errorf("scheduler options %s: %w", path, err)
	}
	return opts, nil
}

// DecodeConfig decodes YAML or JSON options from r on top of base. An empty
// document leaves base unchanged.
func DecodeConfig(r io.Reader, format string, base Options) (Options, error) {
	opts := base
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&opts)
	case "json":
		err = json.NewDecoder(r).Decode(&opts)
	default:
		return base, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return base, err
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}
