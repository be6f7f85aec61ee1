package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/nightplan/app"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/core/planlog"
	"github.com/kilianp07/nightplan/core/session"
	"github.com/kilianp07/nightplan/pkg/export"
)

var (
	planFormat string
	planOut    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Schedule the target list on one night",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "table", "output format: table, json, csv or html")
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	switch planFormat {
	case "table", "json", "csv", "html":
	default:
		return fmt.Errorf("unknown format %q", planFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	date, err := nightDate()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	planner, err := app.NewPlanner(cfg, nil)
	if err != nil {
		return err
	}
	n, err := planner.BuildNight(ctx, date)
	if err != nil {
		return err
	}
	res, err := planner.ReadTargets(cfg.Targets.Path)
	if err != nil {
		return err
	}
	store, err := planlog.New(cfg.PlanLog)
	if err != nil {
		return fmt.Errorf("plan log: %w", err)
	}
	defer store.Close()
	ctrl, err := planner.NewController(n, res, session.Deps{Store: store})
	if err != nil {
		return err
	}
	sched, err := ctrl.Plan(ctx)
	if err != nil {
		return err
	}
	sched.Diagnostics = append(res.Diagnostics, sched.Diagnostics...)

	w := cmd.OutOrStdout()
	if planOut != "" {
		f, err := os.Create(planOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	switch planFormat {
	case "json":
		return export.WriteJSON(w, export.NewPlan(n, planner.Profile.Name, sched))
	case "csv":
		return export.WriteCSV(w, ctrl.Targets())
	case "html":
		return export.WriteHTML(w, n, planner.Profile.Name, ctrl.Targets())
	}
	return writeTable(w, n, planner.Profile.Name, sched)
}

func writeTable(w io.Writer, n *model.Night, telescope string, sched model.Schedule) error {
	fmt.Fprintf(w, "%s  %s  %s\n", telescope, n.Site.Name, n.Date.Format("2006-01-02"))
	fmt.Fprintf(w, "sunset %s  sunrise %s  window %s\n\n", n.Sunset.Format("15:04"), n.Sunrise.Format("15:04"), n.Window())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tTARGET\tSIDE\tAIRMASS\tSTATE")
	for _, a := range sched.Assignments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%s\n", a.Interval.Start.Format("15:04:05"), a.Interval.End.Format("15:04:05"),
			a.Target, a.Side, a.Airmass, a.State)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(sched.Unscheduled) > 0 {
		fmt.Fprintf(w, "\nunscheduled: %s\n", strings.Join(sched.Unscheduled, ", "))
	}
	for _, d := range sched.Diagnostics {
		fmt.Fprintf(w, "  %s\n", d)
	}
	return nil
}
