package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/nightplan/core/model"
)

var telescopesCmd = &cobra.Command{
	Use:   "telescopes",
	Short: "List the built-in telescope profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tMOUNT\tLOWEST\tHIGHEST\tVIGNETTING\tZENITH BAND")
		for _, name := range model.TelescopeNames() {
			p, err := model.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\n", p.Name, p.Mount, p.LowestAlt, p.HighestAlt, p.VignettingAlt, p.ZenithBand)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(telescopesCmd)
}
