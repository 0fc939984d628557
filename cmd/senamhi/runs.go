package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func getRunsCmd() *cobra.Command {
	var (
		limit  int
		status string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent forecast scrape runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.db.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tLOCATIONS\tSAVED\tDEPARTMENTS\tERROR")
			for _, r := range runs {
				if status != "" && string(r.Status) != status {
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Status,
					r.LocationsScraped, r.ForecastsSaved,
					strings.Join(r.Departments, ","), r.ErrorMessage)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to return")
	listCmd.Flags().StringVar(&status, "status", "", "filter by status (success, failed, skipped)")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the scrape run history",
	}
	runsCmd.AddCommand(listCmd)
	return runsCmd
}
