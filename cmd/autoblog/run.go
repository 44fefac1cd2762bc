package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"autoblog/internal/model"
)

func runCmd(envFiles *[]string) *cobra.Command {
	var scheduled bool

	cmd := &cobra.Command{
		Use:   "run <campaign-id>",
		Short: "Run one campaign now and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid campaign id %q", args[0])
			}

			a, err := newApp(*envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			r, err := a.newRunner(nil)
			if err != nil {
				return err
			}

			var report *model.RunReport
			if scheduled {
				report, err = r.Run(cmd.Context(), id)
			} else {
				report, err = r.RunNow(cmd.Context(), id)
			}
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), formatReport(report))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "respect the campaign's active flag and interval")
	return cmd
}

func formatReport(r *model.RunReport) string {
	if r.Skipped {
		return fmt.Sprintf("campaign %d: skipped (run %s)", r.CampaignID, r.RunID)
	}
	return fmt.Sprintf("campaign %d: fetched=%d new=%d published=%d rejected=%d failed=%d (run %s)",
		r.CampaignID, r.Fetched, r.New, r.Published, r.Rejected, r.Failed, r.RunID)
}
