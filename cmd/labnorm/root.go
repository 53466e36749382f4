package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lab-report-normalizer/internal/config"
	"github.com/lab-report-normalizer/internal/domain"
	"github.com/lab-report-normalizer/internal/logging"
	"github.com/lab-report-normalizer/internal/service"
)

// app carries the global flags shared by every subcommand.
type app struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "labnorm",
		Short: "Normalize lab reports into canonical tests with status and confidence",
		Long: `labnorm parses free-text lab reports, maps each test onto the reference
catalog, classifies values against their reference ranges and drops any test
that cannot be found in the report text.

Configuration is read from --config, $LABNORM_CONFIG_FILE or config.yaml in
the usual locations; every key can be overridden with a LABNORM_ variable.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		a.newParseCmd(),
		a.newCatalogCmd(),
		a.newRunsCmd(),
		a.newSetupCmd(),
	)
	return root
}

// loadConfig reads and validates the configuration, applying the CLI log level.
func (a *app) loadConfig() (*domain.Config, error) {
	m, err := config.Load(a.configFile)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := *m.GetConfig()
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	cfg.Logging.Format = "text"
	return &cfg, nil
}

func (a *app) logger(cmd *cobra.Command, cfg *domain.Config) (*logrus.Logger, error) {
	return logging.New(cfg.Logging, cmd.ErrOrStderr())
}

// buildService wires a report service for one command invocation.
func (a *app) buildService(cmd *cobra.Command, cfg *domain.Config) (*service.ReportService, error) {
	logger, err := a.logger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return service.Build(cmd.Context(), cfg, logger)
}
