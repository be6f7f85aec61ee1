// Package config loads the planner configuration from a YAML or JSON file
// with NP_ environment overrides, e.g. NP_SCHEDULER__MAINTAIN_INPUT_ORDER=true.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/nightplan/core/metrics"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/planlog"
	"github.com/kilianp07/nightplan/core/scheduler"
	"github.com/kilianp07/nightplan/infra/monitoring"
	"github.com/kilianp07/nightplan/infra/mqtt"
)

// EnvPrefix marks environment variables that override file settings. Nested
// keys are separated by a double underscore.
const EnvPrefix = "NP_"

type Config struct {
	Site       model.Site              `json:"site"`
	Atmosphere model.Atmosphere        `json:"atmosphere"`
	Telescope  TelescopeConfig         `json:"telescope"`
	Night      NightConfig             `json:"night"`
	Scheduler  scheduler.Options       `json:"scheduler"`
	Targets    TargetsConfig           `json:"targets"`
	PlanLog    planlog.Config          `json:"planlog"`
	Metrics    metrics.Config          `json:"metrics"`
	MQTT       mqtt.Config             `json:"mqtt"`
	Sentry     monitoring.SentryConfig `json:"sentry"`
}

// Load reads path, applies environment overrides, fills defaults and
// validates every section. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Site == (model.Site{}) {
		c.Site = DefaultSite()
	}
	if c.Atmosphere == (model.Atmosphere{}) {
		c.Atmosphere = model.DefaultAtmosphere()
	}
	c.Telescope.SetDefaults()
	c.Night.SetDefaults()
	c.Targets.SetDefaults()
	c.PlanLog.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and reports the first failure.
func (c Config) Validate() error {
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"telescope", c.Telescope.Validate},
		{"night", c.Night.Validate},
		{"scheduler", c.Scheduler.Validate},
		{"targets", c.Targets.Validate},
		{"planlog", c.PlanLog.Validate},
		{"mqtt", c.MQTT.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// DefaultSite is the Roque de los Muchachos Observatory on La Palma.
func DefaultSite() model.Site {
	return model.Site{
		Name:      "Roque de los Muchachos",
		Latitude:  28.7606,
		Longitude: -17.8816,
		Altitude:  2332,
		Timezone:  "Atlantic/Canary",
	}
}
