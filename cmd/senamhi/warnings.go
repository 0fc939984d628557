package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avisosperu/senamhi-tracker/internal/domain"
	"github.com/avisosperu/senamhi-tracker/internal/storage"
)

func getWarningsCmd() *cobra.Command {
	var (
		department string
		status     string
		severity   string
		active     bool
		limit      int
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored warnings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var warnings []domain.Warning
			if active {
				now := domain.Now()
				warnings, err = a.db.ActiveWarnings(ctx, now)
				if err == nil {
					for i := range warnings {
						warnings[i].Status = domain.DeriveStatus(warnings[i].ValidFrom, warnings[i].ValidUntil, now)
					}
					domain.SortActive(warnings, now)
				}
			} else {
				warnings, err = a.db.ListWarnings(ctx, storage.WarningQuery{
					Department: department,
					Status:     domain.Status(status),
					Severity:   domain.Severity(severity),
					Limit:      limit,
				})
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NUMBER\tDEPARTMENT\tSEVERITY\tSTATUS\tVALID FROM\tVALID UNTIL\tTITLE")
			for _, w := range warnings {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					w.WarningNumber, w.Department, w.Severity, w.Status,
					w.ValidFrom.Format("2006-01-02"), w.ValidUntil.Format("2006-01-02"), w.Title)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&department, "department", "", "filter by department")
	listCmd.Flags().StringVar(&status, "status", "", "filter by status (emitido, vigente, vencido)")
	listCmd.Flags().StringVar(&severity, "severity", "", "filter by severity (yellow, orange, red)")
	listCmd.Flags().BoolVar(&active, "active", false, "only warnings whose window has not closed")
	listCmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return")

	warningsCmd := &cobra.Command{
		Use:   "warnings",
		Short: "Inspect stored warnings",
	}
	warningsCmd.AddCommand(listCmd)
	return warningsCmd
}
