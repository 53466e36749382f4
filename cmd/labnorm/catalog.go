package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lab-report-normalizer/internal/catalog"
)

func (a *app) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate reference catalogs",
	}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the tests in the configured catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			cat, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCATEGORY\tRANGE\tUNIT\tALIASES")
			for _, e := range cat.Entries() {
				if category != "" && !strings.EqualFold(e.Category, category) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%g - %g\t%s\t%s\n",
					e.CanonicalName, e.Category, e.ReferenceRange.Low, e.ReferenceRange.High,
					e.Unit, strings.Join(e.Aliases, ", "))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&category, "category", "", "only list tests in this category")

	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file for missing ranges, inverted ranges and duplicate aliases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(args[0])
			if err != nil {
				w := cmd.ErrOrStderr()
				fmt.Fprintf(w, "%s is invalid:\n", args[0])
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Fprintf(w, "  %s\n", line)
				}
				return errors.New("catalog validation failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tests OK\n", args[0], cat.Len())
			return nil
		},
	}

	cmd.AddCommand(list, validate)
	return cmd
}
