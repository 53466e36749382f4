package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type parseOptions struct {
	summary    bool
	record     bool
	strict     bool
	confidence float64
}

func (a *app) newParseCmd() *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Normalize a lab report read from a file or stdin",
		Example: `  labnorm parse report.txt
  pdftotext report.pdf - | labnorm parse --summary
  labnorm parse --confidence 0.6 --record scan.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print the plain-language summary instead of JSON")
	cmd.Flags().BoolVar(&opts.record, "record", false, "save the run to the configured history store")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when no test could be validated")
	cmd.Flags().Float64Var(&opts.confidence, "confidence", -1, "extraction confidence of the text in [0,1]")
	return cmd
}

func (a *app) runParse(cmd *cobra.Command, args []string, opts *parseOptions) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var extraction *float64
	if cmd.Flags().Changed("confidence") {
		if opts.confidence < 0 || opts.confidence > 1 {
			return fmt.Errorf("--confidence must be between 0 and 1, got %v", opts.confidence)
		}
		extraction = &opts.confidence
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if !opts.record {
		cfg.History.Driver = "none"
	}

	svc, err := a.buildService(cmd, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	out, err := svc.ProcessText(cmd.Context(), text, extraction)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.summary {
		if out.Summary != nil {
			fmt.Fprint(w, out.Summary.Text)
		}
	} else {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	}

	if opts.strict && !out.Result.Status.Succeeded() {
		return fmt.Errorf("no tests validated: %s", out.Result.Status)
	}
	return nil
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading report: %w", err)
	}
	return string(data), nil
}
