package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/nightplan/app"
	"github.com/kilianp07/nightplan/core/visibility"
	"github.com/kilianp07/nightplan/pkg/export"
)

var visibilityCmd = &cobra.Command{
	Use:   "visibility",
	Short: "Summarise when each target is observable",
	RunE:  runVisibility,
}

func init() {
	rootCmd.AddCommand(visibilityCmd)
}

func runVisibility(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	date, err := nightDate()
	if err != nil {
		return err
	}
	planner, err := app.NewPlanner(cfg, nil)
	if err != nil {
		return err
	}
	n, err := planner.BuildNight(cmd.Context(), date)
	if err != nil {
		return err
	}
	res, err := planner.ReadTargets(cfg.Targets.Path)
	if err != nil {
		return err
	}
	if err := planner.Engine.ComputeAll(cmd.Context(), n, res.Targets); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tRA\tDEC\tMAX ALT\tCULMINATES\tMIN AIRMASS\tOBSERVABLE\tLAST START")
	for _, t := range res.Targets {
		s := visibility.Summarize(n, t)
		span, last := "-", "-"
		if s.Observable {
			span = fmt.Sprintf("%s-%s", s.ObservableFrom.Format("15:04"), s.ObservableTo.Format("15:04"))
			last = s.LastStart.Format("15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\t%.2f\t%s\t%s\n", s.Target, export.FormatRA(s.RA), export.FormatDec(s.Dec),
			s.MaxAlt, s.Culmination.Format("15:04"), s.MinAirmass, span, last)
	}
	return tw.Flush()
}
