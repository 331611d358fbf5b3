package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// Result is the outcome of validating one dataset
type Result struct {
	Dataset  string
	Records  int
	Errors   []Issue
	Warnings []Issue
	Profile  Profile
}

// Passed reports whether the dataset has no errors
func (r *Result) Passed() bool { return len(r.Errors) == 0 }

// Report is the quality report for a full batch
type Report struct {
	Timestamp  time.Time
	Datasets   []*Result
	CrossTable []Issue
}

// Passed reports whether every dataset and every cross-table check passed
func (r *Report) Passed() bool {
	if len(r.CrossTable) > 0 {
		return false
	}
	for _, d := range r.Datasets {
		if !d.Passed() {
			return false
		}
	}
	return true
}

// Status is PASSED or FAILED
func (r *Report) Status() string {
	if r.Passed() {
		return "PASSED"
	}
	return "FAILED"
}

// Result returns the result for a dataset, or nil
func (r *Report) Result(dataset string) *Result {
	for _, d := range r.Datasets {
		if d.Dataset == dataset {
			return d
		}
	}
	return nil
}

// InvalidRows returns the indexes of rows in dataset that have at least one
// error, including cross-table errors
func (r *Report) InvalidRows(dataset string) map[int]bool {
	rows := make(map[int]bool)
	if d := r.Result(dataset); d != nil {
		for _, issue := range d.Errors {
			if issue.Row >= 0 {
				rows[issue.Row] = true
			}
		}
	}
	for _, issue := range r.CrossTable {
		if issue.Dataset == dataset && issue.Row >= 0 {
			rows[issue.Row] = true
		}
	}
	return rows
}

// ErrorCount is the total number of errors in the report
func (r *Report) ErrorCount() int {
	n := len(r.CrossTable)
	for _, d := range r.Datasets {
		n += len(d.Errors)
	}
	return n
}

// Dataset validates every row of ds, checks references between datasets and
// profiles each dataset. Tickers in known count as existing companies.
func (v *Validator) Dataset(ds *models.Dataset, known ...string) *Report {
	report := &Report{Timestamp: time.Now().UTC()}

	companies := &Result{Dataset: schema.TableCompanies, Records: len(ds.Companies), Profile: profileCompanies(ds.Companies)}
	for i, c := range ds.Companies {
		companies.Errors = append(companies.Errors, v.Company(i, c)...)
	}

	prices := &Result{Dataset: schema.TableStockPrices, Records: len(ds.StockPrices), Profile: profilePrices(ds.StockPrices)}
	for i, p := range ds.StockPrices {
		prices.Errors = append(prices.Errors, v.StockPrice(i, p)...)
		prices.Warnings = append(prices.Warnings, priceWarnings(i, p)...)
	}
	if missing := prices.Profile.NullCounts["closing_price"]; missing > 0 &&
		float64(missing) > MaxMissingPriceRatio*float64(prices.Records) {
		prices.Warnings = append(prices.Warnings, Issue{Dataset: schema.TableStockPrices, Row: -1,
			Message: fmt.Sprintf("closing_price missing in %d of %d rows (%.1f%%)",
				missing, prices.Records, 100*float64(missing)/float64(prices.Records))})
	}

	filings := &Result{Dataset: schema.TableSECFilings, Records: len(ds.Filings), Profile: profileFilings(ds.Filings)}
	for i, f := range ds.Filings {
		filings.Errors = append(filings.Errors, v.Filing(i, f)...)
	}

	incidents := &Result{Dataset: schema.TableIncidents, Records: len(ds.Incidents), Profile: profileIncidents(ds.Incidents)}
	for i, inc := range ds.Incidents {
		incidents.Errors = append(incidents.Errors, v.Incident(i, inc)...)
	}

	report.Datasets = []*Result{companies, prices, filings, incidents}
	report.CrossTable = CrossTable(ds, known...)
	return report
}

// CrossTable checks constraints spanning rows or datasets: unique keys,
// references to known tickers and disclosure ordering. Child rows may also
// reference any ticker in known.
func CrossTable(ds *models.Dataset, known ...string) []Issue {
	var issues []Issue

	existing := make(map[string]bool, len(known))
	for _, t := range known {
		existing[t] = true
	}

	tickers := make(map[string]int)
	for i, c := range ds.Companies {
		if first, ok := tickers[c.Ticker]; ok {
			issues = append(issues, Issue{Dataset: schema.TableCompanies, Row: i, Field: "ticker",
				Message: fmt.Sprintf("duplicates ticker %s from row %d", c.Ticker, first+1)})
			continue
		}
		tickers[c.Ticker] = i
	}

	unknown := func(dataset string, row int, ticker string) {
		if _, ok := tickers[ticker]; !ok && !existing[ticker] {
			issues = append(issues, Issue{Dataset: dataset, Row: row, Field: "ticker",
				Message: fmt.Sprintf("references unknown company %q", ticker)})
		}
	}

	days := make(map[string]int)
	for i, p := range ds.StockPrices {
		unknown(schema.TableStockPrices, i, p.Ticker)

		key := p.Ticker + "|" + p.Date.Format(time.DateOnly)
		if first, ok := days[key]; ok {
			issues = append(issues, Issue{Dataset: schema.TableStockPrices, Row: i, Field: "date",
				Message: fmt.Sprintf("duplicates %s price for %s from row %d", p.Ticker, p.Date.Format(time.DateOnly), first+1)})
			continue
		}
		days[key] = i
	}

	for i, f := range ds.Filings {
		unknown(schema.TableSECFilings, i, f.Ticker)
	}

	var early int
	for i, inc := range ds.Incidents {
		unknown(schema.TableIncidents, i, inc.Ticker)
		if inc.DisclosureDate != nil && inc.DisclosureDate.Before(inc.BreachDate) {
			early++
		}
	}
	if early > 0 {
		issues = append(issues, Issue{Dataset: schema.TableIncidents, Row: -1,
			Message: fmt.Sprintf("found %d incidents with disclosure before breach", early)})
	}

	return issues
}

// Summary lists the unique error messages of a report, for logging
func (r *Report) Summary() string {
	seen := make(map[string]bool)
	var lines []string
	add := func(dataset string, issue Issue) {
		line := dataset + ": " + issue.String()
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	for _, d := range r.Datasets {
		for _, issue := range d.Errors {
			add(d.Dataset, issue)
		}
	}
	for _, issue := range r.CrossTable {
		add(issue.Dataset, issue)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
