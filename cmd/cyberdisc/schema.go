package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tordrt/cyberdisclosure"
	"github.com/tordrt/cyberdisclosure/internal/db"
	"github.com/tordrt/cyberdisclosure/internal/ddl"
	"github.com/tordrt/cyberdisclosure/internal/formatter"
	"github.com/tordrt/cyberdisclosure/internal/schema"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the dataset tables, constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireDatabase(); err != nil {
				return err
			}
			ctx := cmd.Context()

			client, err := db.Open(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			err = db.Migrate(ctx, client)
			var drift *db.DriftError
			if errors.As(err, &drift) {
				for _, d := range drift.Drifts {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), d.String())
				}
				a.log.Warnw("schema applied with drift", "dialect", client.Dialect(), "problems", len(drift.Drifts))
				return fmt.Errorf("schema drift after migrate: %d problems", len(drift.Drifts))
			}
			if err != nil {
				return err
			}
			a.log.Infow("schema applied", "dialect", client.Dialect(), "tables", len(schema.Dataset().Tables))
			return nil
		},
	}
}

func newDDLCmd() *cobra.Command {
	var dialect, outputFile string

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the CREATE statements for a dialect",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ddl.ParseDialect(dialect)
			if err != nil {
				return err
			}
			stmts, err := ddl.Render(schema.Dataset(), d)
			if err != nil {
				return err
			}

			w, done, err := output(cmd, outputFile)
			if err != nil {
				return err
			}
			defer done()

			_, err = fmt.Fprint(w, ddl.Script(stmts))
			return err
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "SQL dialect: postgres, mysql or sqlite")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newDocsCmd(a *app) *cobra.Command {
	var (
		format     string
		outputFile string
		outputDir  string
		tables     string
		exclude    string
		schemaName string
		fromDB     bool
	)

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Write the data dictionary",
		Long: `Write the data dictionary of the canonical schema, or with --from-db of the
schema found in the database. With --output-dir an overview and one file per
table are written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir != "" && outputFile != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}

			w, done, err := output(cmd, outputFile)
			if err != nil {
				return err
			}
			defer done()

			outOpts := &cyberdisclosure.OutputOptions{Writer: w, OutputDir: outputDir, Format: format}

			if fromDB {
				if err := a.cfg.RequireDatabase(); err != nil {
					return err
				}
				opts := &cyberdisclosure.Options{
					Tables:        parseTableList(tables),
					ExcludeTables: parseTableList(exclude),
					SchemaName:    schemaName,
				}
				return cyberdisclosure.ExtractAndFormat(cmd.Context(), a.cfg.DatabaseURL, opts, outOpts)
			}

			s := cyberdisclosure.Dataset()
			if only := parseTableList(tables); len(only) > 0 {
				s = selectTables(s, only)
			}
			return cyberdisclosure.FormatSchema(s, outOpts)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatter.FormatMarkdown, "Output format: text or markdown")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Tables to leave out (comma-separated, with --from-db)")
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (with --from-db)")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "Document the schema found in the database")
	return cmd
}

func selectTables(s *schema.Schema, names []string) *schema.Schema {
	out := &schema.Schema{}
	for _, name := range names {
		if t := s.Table(name); t != nil {
			out.Tables = append(out.Tables, *t)
		}
	}
	return out
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the database schema with the canonical one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireDatabase(); err != nil {
				return err
			}

			drifts, err := cyberdisclosure.Verify(cmd.Context(), a.cfg.DatabaseURL)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(drifts) == 0 {
				_, _ = fmt.Fprintln(w, "schema matches")
				return nil
			}
			for _, d := range drifts {
				_, _ = fmt.Fprintln(w, d.String())
			}
			return fmt.Errorf("schema drift: %d problems", len(drifts))
		},
	}
}
