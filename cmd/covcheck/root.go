package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"covcheck/internal/config"
	apierrors "covcheck/internal/errors"
	"covcheck/internal/infrastructure"
	"covcheck/pkg/contracts"
)

// cli carries state shared between the root command and its subcommands
type cli struct {
	configFile string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   contracts.AppName,
		Short: "Check SD_PRD target coverage against a bulk report",
		Long: `covcheck reconciles the Ad ASIN → Target ASIN pairs listed across every tab of a
targets workbook against the Sponsored Display campaigns of a bulk report.

It writes the bulk rows that carry a planned pair, tagged with the tab they came
from, and the planned pairs that have no campaign yet.`,
		Version:           contracts.Version,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: covcheck.yaml if present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.SetVersionTemplate(contracts.AppName + " v{{.Version}}\n")

	root.AddCommand(newReconcileCommand(c))
	root.AddCommand(newVersionCommand())

	return root
}

// setup loads configuration and builds a logger writing to stderr, keeping stdout for results
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configFile != "" {
		cfg, err = config.LoadFile(c.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if c.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(c.logLevel)
	}

	c.cfg = cfg
	c.logger = infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr()).
		With(slog.String("component", "cli"))
	return nil
}

// describeError flattens validation details into one readable line
func describeError(err error) string {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch details := apiErr.Details.(type) {
	case apierrors.ValidationErrors:
		msgs := make([]string, 0, len(details.Errors))
		for _, e := range details.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Sprintf("%s: %s", apiErr.Message, strings.Join(msgs, "; "))
	case string:
		return fmt.Sprintf("%s: %s", apiErr.Message, details)
	}
	return apiErr.Message
}
