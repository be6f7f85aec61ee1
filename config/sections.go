package config

import (
	"fmt"
	"os"

	"github.com/kilianp07/nightplan/core/model"
)

// TelescopeConfig selects the telescope profile: Profile when set, otherwise
// Name looked up in Catalogue or, without a catalogue, in the built-ins.
type TelescopeConfig struct {
	Name      string                  `json:"name"`
	Catalogue string                  `json:"catalogue"`
	Profile   *model.TelescopeProfile `json:"profile"`
}

func (c *TelescopeConfig) SetDefaults() {
	if c.Name == "" && c.Profile == nil {
		c.Name = "INT"
	}
}

func (c TelescopeConfig) Validate() error {
	if c.Profile != nil {
		if c.Profile.Name == "" {
			return fmt.Errorf("%w: inline profile needs a name", model.ErrInvalidProfile)
		}
		return nil
	}
	if c.Name == "" {
		return fmt.Errorf("name or profile is required")
	}
	return nil
}

// Resolve returns the compiled profile.
func (c TelescopeConfig) Resolve() (*model.TelescopeProfile, error) {
	if c.Profile != nil {
		p := *c.Profile
		if err := p.Compile(); err != nil {
			return nil, fmt.Errorf("telescope %s: %w", p.Name, err)
		}
		return &p, nil
	}
	if c.Catalogue != "" {
		f, err := os.Open(c.Catalogue)
		if err != nil {
			return nil, fmt.Errorf("open catalogue: %w", err)
		}
		defer f.Close()
		cat, err := model.DecodeCatalogue(f)
		if err != nil {
			return nil, err
		}
		if p, ok := cat[c.Name]; ok {
			return &p, nil
		}
	}
	p, err := model.Lookup(c.Name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// NightConfig controls the night grid.
type NightConfig struct {
	// Mode is sunset, nautical or astronomical.
	Mode string `json:"mode"`
	// Samples is the number of grid points; zero selects one per minute.
	Samples int `json:"samples"`
}

func (c *NightConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = string(model.WindowSunset)
	}
}

func (c NightConfig) Validate() error {
	if _, err := model.ParseWindowMode(c.Mode); err != nil {
		return err
	}
	if c.Samples < 0 || c.Samples == 1 {
		return fmt.Errorf("samples must be 0 or at least 2, got %d", c.Samples)
	}
	return nil
}

// WindowMode returns the parsed mode. Validate must have succeeded.
func (c NightConfig) WindowMode() model.WindowMode {
	m, _ := model.ParseWindowMode(c.Mode)
	return m
}

// TargetsConfig locates the observing list.
type TargetsConfig struct {
	Path string `json:"path"`
	// Watch re-reads the list on change in service mode.
	Watch bool `json:"watch"`
	// DebounceMS coalesces bursts of file events.
	DebounceMS int `json:"debounce_ms"`
}

func (c *TargetsConfig) SetDefaults() {
	if c.DebounceMS <= 0 {
		c.DebounceMS = 250
	}
}

func (c TargetsConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("watch requires a path")
	}
	return nil
}
