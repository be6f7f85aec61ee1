// Package cmd implements the nightplan command line.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/nightplan/config"
	"github.com/kilianp07/nightplan/core/night"
	"github.com/kilianp07/nightplan/core/scheduler"
)

var (
	cfgPath     string
	dateFlag    string
	targetsPath string
	schedPath   string
)

var rootCmd = &cobra.Command{
	Use:           "nightplan",
	Short:         "Plan and repair an astronomical observing night",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&dateFlag, "date", "", "night to plan as YYYY-MM-DD (default: today)")
	rootCmd.PersistentFlags().StringVarP(&targetsPath, "targets", "t", "", "target list, overrides targets.path")
	rootCmd.PersistentFlags().StringVarP(&schedPath, "scheduler", "s", "", "scheduler options file (YAML or JSON) applied over the scheduler section")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if targetsPath != "" {
		cfg.Targets.Path = targetsPath
	}
	if schedPath != "" {
		if cfg.Scheduler, err = scheduler.LoadConfig(schedPath, cfg.Scheduler); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func nightDate() (time.Time, error) {
	if dateFlag == "" {
		y, m, d := time.Now().UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return night.ParseDate(dateFlag)
}
