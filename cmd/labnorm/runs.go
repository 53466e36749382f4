package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse recorded runs",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			svc, err := a.buildService(cmd, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			records, total, err := svc.ListRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tSOURCE\tSTATUS\tTESTS\tCONFIDENCE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Source, r.Status, r.TestCount, r.OverallConfidence)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d runs\n", len(records), total)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	list.Flags().IntVar(&offset, "offset", 0, "runs to skip")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			svc, err := a.buildService(cmd, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := svc.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
