// Package loader runs the extract, transform, validate and load steps that
// move CSV input into the database, and monitors the loaded tables.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/cyberdisclosure/internal/extract"
	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
	"github.com/tordrt/cyberdisclosure/internal/store"
	"github.com/tordrt/cyberdisclosure/internal/transform"
	"github.com/tordrt/cyberdisclosure/internal/validate"
)

// ErrValidationFailed is returned in strict mode when the quality report
// contains errors.
var ErrValidationFailed = errors.New("validation failed")

// Options controls a pipeline run
type Options struct {
	InputDir string
	// Strict aborts the run on any validation error instead of skipping
	// invalid rows.
	Strict bool
	// DryRun stops after validation.
	DryRun bool
}

// Result summarizes a pipeline run
type Result struct {
	RunID    uuid.UUID
	Report   *validate.Report
	Inserted map[string]int
	Reused   int
	Skipped  map[string]int
	Duration time.Duration
}

// Pipeline loads the research dataset
type Pipeline struct {
	store     *store.Store
	validator *validate.Validator
	log       *zap.SugaredLogger
}

// New creates a pipeline writing through st
func New(st *store.Store, log *zap.SugaredLogger) *Pipeline {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pipeline{store: st, validator: validate.New(), log: log}
}

// Run reads opts.InputDir and loads it
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.New()
	log := p.log.With("run_id", runID.String())

	var ds *models.Dataset
	err := step(log, "extract", func() error {
		var err error
		ds, err = extract.ReadDir(opts.InputDir)
		return err
	})
	if err != nil {
		return nil, err
	}

	return p.load(ctx, runID, log, ds, opts)
}

// Load runs every step after extraction on an in-memory dataset
func (p *Pipeline) Load(ctx context.Context, ds *models.Dataset, opts Options) (*Result, error) {
	runID := uuid.New()
	return p.load(ctx, runID, p.log.With("run_id", runID.String()), ds, opts)
}

func (p *Pipeline) load(ctx context.Context, runID uuid.UUID, log *zap.SugaredLogger, ds *models.Dataset, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: runID, Inserted: make(map[string]int), Skipped: make(map[string]int)}

	_ = step(log, "transform", func() error {
		transform.Apply(ds)
		return nil
	})

	err := step(log, "validate", func() error {
		companies, err := p.store.ListCompanies(ctx)
		if err != nil {
			return err
		}
		known := make([]string, len(companies))
		for i, c := range companies {
			known[i] = c.Ticker
		}

		result.Report = p.validator.Dataset(ds, known...)
		if !result.Report.Passed() {
			log.Warnw("validation found errors", "errors", result.Report.ErrorCount(), "summary", result.Report.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.Strict && !result.Report.Passed() {
		return result, fmt.Errorf("%w: %d errors", ErrValidationFailed, result.Report.ErrorCount())
	}

	if opts.DryRun {
		log.Infow("dry run, skipping load")
		result.Duration = time.Since(start)
		return result, nil
	}

	valid := dropInvalid(ds, result.Report, result.Skipped)
	err = step(log, "load", func() error {
		return p.store.WithTx(ctx, func(tx *store.Store) error {
			return insertAll(ctx, tx, valid, result)
		})
	})
	if err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	log.Infow("pipeline completed",
		"inserted", result.Inserted,
		"reused_companies", result.Reused,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

func step(log *zap.SugaredLogger, name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		log.Errorw("step failed", "step", name, "duration", time.Since(start), "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Infow("step completed", "step", name, "duration", time.Since(start))
	return nil
}

// dropInvalid returns the rows of ds that have no validation errors and
// counts the rest in skipped.
func dropInvalid(ds *models.Dataset, report *validate.Report, skipped map[string]int) *models.Dataset {
	out := &models.Dataset{
		Companies:   keep(ds.Companies, report.InvalidRows(schema.TableCompanies)),
		StockPrices: keep(ds.StockPrices, report.InvalidRows(schema.TableStockPrices)),
		Filings:     keep(ds.Filings, report.InvalidRows(schema.TableSECFilings)),
		Incidents:   keep(ds.Incidents, report.InvalidRows(schema.TableIncidents)),
	}
	skipped[schema.TableCompanies] += len(ds.Companies) - len(out.Companies)
	skipped[schema.TableStockPrices] += len(ds.StockPrices) - len(out.StockPrices)
	skipped[schema.TableSECFilings] += len(ds.Filings) - len(out.Filings)
	skipped[schema.TableIncidents] += len(ds.Incidents) - len(out.Incidents)
	return out
}

func keep[T any](rows []T, invalid map[int]bool) []T {
	if len(invalid) == 0 {
		return rows
	}
	out := make([]T, 0, len(rows)-len(invalid))
	for i, row := range rows {
		if !invalid[i] {
			out = append(out, row)
		}
	}
	return out
}

// insertAll writes ds through tx. Existing companies are matched by ticker
// and reused unchanged; child rows whose company cannot be resolved are
// skipped.
func insertAll(ctx context.Context, tx *store.Store, ds *models.Dataset, result *Result) error {
	ids := make(map[string]int64)

	for i := range ds.Companies {
		c := &ds.Companies[i]
		existing, err := tx.CompanyByTicker(ctx, c.Ticker)
		switch {
		case err == nil:
			ids[c.Ticker] = existing.ID
			result.Reused++
			continue
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to look up company %s: %w", c.Ticker, err)
		}

		if err := tx.CreateCompany(ctx, c); err != nil {
			return err
		}
		ids[c.Ticker] = c.ID
		result.Inserted[schema.TableCompanies]++
	}

	resolve := func(ticker string) (int64, bool, error) {
		if id, ok := ids[ticker]; ok {
			return id, true, nil
		}
		c, err := tx.CompanyByTicker(ctx, ticker)
		if errors.Is(err, store.ErrNotFound) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to look up company %s: %w", ticker, err)
		}
		ids[ticker] = c.ID
		return c.ID, true, nil
	}

	for i := range ds.StockPrices {
		row := &ds.StockPrices[i]
		id, ok, err := resolve(row.Ticker)
		if err != nil {
			return err
		}
		if !ok {
			result.Skipped[schema.TableStockPrices]++
			continue
		}
		row.CompanyID = id
		if err := tx.InsertStockPrice(ctx, row); err != nil {
			return err
		}
		result.Inserted[schema.TableStockPrices]++
	}

	for i := range ds.Filings {
		row := &ds.Filings[i]
		id, ok, err := resolve(row.Ticker)
		if err != nil {
			return err
		}
		if !ok {
			result.Skipped[schema.TableSECFilings]++
			continue
		}
		row.CompanyID = id
		if err := tx.InsertFiling(ctx, row); err != nil {
			return err
		}
		result.Inserted[schema.TableSECFilings]++
	}

	for i := range ds.Incidents {
		row := &ds.Incidents[i]
		id, ok, err := resolve(row.Ticker)
		if err != nil {
			return err
		}
		if !ok {
			result.Skipped[schema.TableIncidents]++
			continue
		}
		row.CompanyID = id
		if err := tx.InsertIncident(ctx, row); err != nil {
			return err
		}
		result.Inserted[schema.TableIncidents]++
	}

	return nil
}
