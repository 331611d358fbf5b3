package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/cyberdisclosure/internal/config"
	"github.com/tordrt/cyberdisclosure/internal/logging"
)

// app carries what PersistentPreRunE resolved to the subcommands
type app struct {
	configFile string
	envFile    string

	cfg *config.Config
	log *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cyberdisc",
		Short: "Manage the cybersecurity disclosure research database",
		Long: `cyberdisc creates and verifies the research database of companies, stock prices,
SEC filings and cybersecurity incidents on PostgreSQL, MySQL or SQLite, loads
CSV batches into it and monitors what was loaded.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(a.envFile); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}
			cfg, err := config.Load(cmd.Flags(), a.configFile)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg.Environment)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String(config.KeyDatabaseURL, "", "Database URL: postgres://..., mysql://... or sqlite://path (env CYBERDISC_DATABASE_URL)")
	flags.String(config.KeyEnvironment, "", "Environment: development or production (env CYBERDISC_ENVIRONMENT)")
	flags.StringVar(&a.configFile, "config", "", "Config file (yaml, json or toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "File of environment variables to load")

	root.AddCommand(
		newMigrateCmd(a),
		newDDLCmd(),
		newDocsCmd(a),
		newVerifyCmd(a),
		newLoadCmd(a),
		newValidateCmd(a),
		newStatusCmd(a),
		newEventStudyCmd(a),
		newFetchFilingsCmd(a),
	)
	return root
}

// parseTableList splits a comma-separated flag value
func parseTableList(tables string) []string {
	if strings.TrimSpace(tables) == "" {
		return nil
	}
	var list []string
	for _, t := range strings.Split(tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			list = append(list, t)
		}
	}
	return list
}

// output opens path for writing, or returns the command's stdout when path
// is empty. The returned func closes the file.
func output(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
		}
	}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
