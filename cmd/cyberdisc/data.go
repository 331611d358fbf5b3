package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tordrt/cyberdisclosure/internal/config"
	"github.com/tordrt/cyberdisclosure/internal/db"
	"github.com/tordrt/cyberdisclosure/internal/edgar"
	"github.com/tordrt/cyberdisclosure/internal/extract"
	"github.com/tordrt/cyberdisclosure/internal/loader"
	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
	"github.com/tordrt/cyberdisclosure/internal/store"
	"github.com/tordrt/cyberdisclosure/internal/transform"
	"github.com/tordrt/cyberdisclosure/internal/validate"
)

// openStore connects to the configured database
func (a *app) openStore(cmd *cobra.Command) (*store.Store, func(), error) {
	if err := a.cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	client, err := db.Open(cmd.Context(), a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store.New(client), func() { _ = client.Close() }, nil
}

func addInputDirFlag(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyInputDir, "", "Directory holding the dataset CSV files (env CYBERDISC_INPUT_DIR, default data)")
}

func newLoadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load CSV files into the database",
		Long: `Read companies.csv, stock_prices.csv, sec_filings.csv and
cybersecurity_incidents.csv from the input directory, clean and validate them
and insert the valid rows in one transaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, done, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer done()

			result, err := loader.New(st, a.log).Run(cmd.Context(), loader.Options{
				InputDir: a.cfg.InputDir,
				Strict:   a.cfg.Strict,
				DryRun:   a.cfg.DryRun,
			})
			w := cmd.OutOrStdout()
			if result != nil && result.Report != nil {
				result.Report.Print(w)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(w, "\nRun %s\n", result.RunID)
			for _, table := range tableNames() {
				_, _ = fmt.Fprintf(w, "  %-25s inserted %s, skipped %s\n", table,
					humanize.Comma(int64(result.Inserted[table])), humanize.Comma(int64(result.Skipped[table])))
			}
			return nil
		},
	}
	addInputDirFlag(cmd)
	cmd.Flags().Bool(config.KeyStrict, false, "Abort on any validation error instead of skipping invalid rows")
	cmd.Flags().Bool(config.KeyDryRun, false, "Validate only, do not write")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate CSV files without loading them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := extract.ReadDir(a.cfg.InputDir)
			if err != nil {
				return err
			}
			transform.Apply(ds)

			report := validate.New().Dataset(ds)
			report.Print(cmd.OutOrStdout())
			if !report.Passed() {
				return fmt.Errorf("validation failed with %d errors", report.ErrorCount())
			}
			return nil
		},
	}
	addInputDirFlag(cmd)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var maxRecords int64

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show table statistics and monitoring alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, done, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer done()

			monitor := loader.NewMonitor(st, loader.Thresholds{
				MinRecords: a.cfg.MinRecords,
				MaxRecords: maxRecords,
				MaxAge:     a.cfg.MaxAge,
			}, a.log)
			stats, alerts, err := monitor.Check(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, s := range stats {
				last := "never"
				if s.LastCreated != nil {
					last = humanize.Time(*s.LastCreated)
				}
				_, _ = fmt.Fprintf(w, "%-25s %12s rows  last loaded %s\n", s.Table, humanize.Comma(s.Rows), last)
			}
			if len(alerts) == 0 {
				return nil
			}

			_, _ = fmt.Fprintln(w, "\nAlerts:")
			for _, alert := range alerts {
				_, _ = fmt.Fprintf(w, "  %s\n", alert)
			}
			return fmt.Errorf("%d monitoring alerts", len(alerts))
		},
	}
	cmd.Flags().Int64(config.KeyMinRecords, 0, "Minimum rows expected per table (env CYBERDISC_MIN_RECORDS)")
	cmd.Flags().Int64Var(&maxRecords, "max-records", 0, "Maximum rows expected per table")
	cmd.Flags().Duration(config.KeyMaxAge, 0, "Longest accepted time since the last load (env CYBERDISC_MAX_AGE, default 24h)")
	return cmd
}

func newEventStudyCmd(a *app) *cobra.Command {
	var (
		ticker string
		date   string
		window int
	)

	cmd := &cobra.Command{
		Use:   "event-study",
		Short: "Show a company's prices around an event date",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := models.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}

			st, done, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer done()

			ctx := cmd.Context()
			company, err := st.CompanyByTicker(ctx, strings.ToUpper(ticker))
			if err != nil {
				return fmt.Errorf("company %s: %w", ticker, err)
			}
			prices, err := st.EventWindow(ctx, company.ID, event, window)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s (%s), %s ±%d days\n\n", company.Name, company.Ticker, event.Format(time.DateOnly), window)
			_, _ = fmt.Fprintf(w, "  %-5s %-10s %12s %16s %10s\n", "day", "date", "close", "volume", "return")
			for _, p := range prices {
				marker := " "
				if p.EventDay {
					marker = "*"
				}
				ret := "-"
				if p.Returns != nil {
					ret = fmt.Sprintf("%.2f%%", *p.Returns*100)
				}
				_, _ = fmt.Fprintf(w, "%s %+5d %-10s %12.4f %16s %10s\n", marker, transform.DaysBetween(event, p.Date),
					p.Date.Format(time.DateOnly), p.ClosingPrice, humanize.Comma(p.TradingVolume), ret)
			}
			if len(prices) == 0 {
				_, _ = fmt.Fprintln(w, "  no prices in window")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "Company ticker")
	cmd.Flags().StringVar(&date, "date", "", "Event date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&window, "window", 5, "Calendar days on each side of the event")
	_ = cmd.MarkFlagRequired("ticker")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newFetchFilingsCmd(a *app) *cobra.Command {
	var (
		ticker     string
		cik        string
		from, to   string
		withText   bool
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "fetch-filings",
		Short: "Download a company's filings from SEC EDGAR as sec_filings.csv rows",
		Long: `Download a company's 10-K, 10-Q and 8-K filings from SEC EDGAR.

Older filings live in archive pages beyond EDGAR's recent window; pages whose
date span overlaps --from/--to are fetched as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromDate, toDate time.Time
			var err error
			if from != "" {
				if fromDate, err = models.ParseDate(from); err != nil {
					return fmt.Errorf("invalid --from %q: %w", from, err)
				}
			}
			if to != "" {
				if toDate, err = models.ParseDate(to); err != nil {
					return fmt.Errorf("invalid --to %q: %w", to, err)
				}
			}

			client, err := edgar.NewClient(edgar.Config{
				UserAgent: a.cfg.SECUserAgent,
				Logger:    a.log,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cik == "" {
				if cik, err = client.LookupCIK(ctx, ticker); err != nil {
					return err
				}
			}

			filings, err := client.Filings(ctx, ticker, cik, fromDate, toDate)
			if err != nil {
				return err
			}
			rows, err := client.Rows(ctx, filings, withText)
			if err != nil {
				return err
			}

			w, done, err := output(cmd, outputFile)
			if err != nil {
				return err
			}
			defer done()

			if err := extract.WriteFilings(w, rows); err != nil {
				return err
			}
			a.log.Infow("filings fetched", "ticker", strings.ToUpper(ticker), "cik", edgar.PadCIK(cik), "filings", len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "Company ticker")
	cmd.Flags().StringVar(&cik, "cik", "", "SEC central index key (looked up from the ticker when empty)")
	cmd.Flags().StringVar(&from, "from", "", "Earliest filing date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest filing date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&withText, "with-text", false, "Download each document and detect cybersecurity mentions")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().String(config.KeySECUserAgent, "", "User-Agent sent to SEC, e.g. \"Name email@example.com\" (env CYBERDISC_SEC_USER_AGENT)")
	_ = cmd.MarkFlagRequired("ticker")
	return cmd
}

func tableNames() []string {
	return []string{schema.TableCompanies, schema.TableStockPrices, schema.TableSECFilings, schema.TableIncidents}
}
