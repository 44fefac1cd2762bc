package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"autoblog/internal/model"
)

func campaignsCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "campaigns",
		Short: "List campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*envFiles)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			campaigns, err := a.store.ListCampaigns(cmd.Context())
			if err != nil {
				return err
			}
			return writeCampaigns(cmd.OutOrStdout(), campaigns, time.Now())
		},
	}
}

func writeCampaigns(w io.Writer, campaigns []model.Campaign, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tINTERVAL\tACTIVE\tLAST RUN\tFEED")
	for _, c := range campaigns {
		last := "never"
		if c.LastRunAt != nil {
			last = humanize.RelTime(*c.LastRunAt, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%s\n", c.ID, c.Name, c.Interval, c.IsActive, last, c.FeedURL)
	}
	return tw.Flush()
}
