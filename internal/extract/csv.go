// Package extract reads dataset batches from CSV files.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
)

// File names read from an input directory
const (
	CompaniesFile   = schema.TableCompanies + ".csv"
	StockPricesFile = schema.TableStockPrices + ".csv"
	FilingsFile     = schema.TableSECFilings + ".csv"
	IncidentsFile   = schema.TableIncidents + ".csv"
)

// Header columns that must be present in each file. Other known columns are
// optional and unknown columns are ignored.
var (
	companyHeader  = []string{"ticker", "company_name"}
	priceHeader    = []string{"ticker", "date", "closing_price", "trading_volume"}
	filingHeader   = []string{"ticker", "filing_date", "filing_type"}
	incidentHeader = []string{"ticker", "breach_date"}
)

// ReadDir reads the four dataset files from dir. A missing file yields an
// empty dataset.
func ReadDir(dir string) (*models.Dataset, error) {
	ds := &models.Dataset{}

	if err := readFile(filepath.Join(dir, CompaniesFile), func(r io.Reader) (err error) {
		ds.Companies, err = ReadCompanies(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, StockPricesFile), func(r io.Reader) (err error) {
		ds.StockPrices, err = ReadStockPrices(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, FilingsFile), func(r io.Reader) (err error) {
		ds.Filings, err = ReadFilings(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, IncidentsFile), func(r io.Reader) (err error) {
		ds.Incidents, err = ReadIncidents(r)
		return err
	}); err != nil {
		return nil, err
	}

	return ds, nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// table is a CSV file indexed by header name
type table struct {
	r    *csv.Reader
	cols map[string]int
	rec  []string
	line int
}

func newTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return &table{r: cr, cols: cols, line: 1}, nil
}

func (t *table) next() (bool, error) {
	rec, err := t.r.Read()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	t.rec = rec
	t.line++
	return true, nil
}

func (t *table) str(col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(t.rec) {
		return ""
	}
	return strings.TrimSpace(t.rec[i])
}

func (t *table) optStr(col string) *string {
	s := t.str(col)
	if s == "" {
		return nil
	}
	return &s
}

func (t *table) errorf(col, format string, args ...any) error {
	return fmt.Errorf("line %d: %s: %s", t.line, col, fmt.Sprintf(format, args...))
}

func (t *table) date(col string) (time.Time, error) {
	s := t.str(col)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, t.errorf(col, "invalid date %q", s)
	}
	return d, nil
}

func (t *table) optDate(col string) (*time.Time, error) {
	if t.str(col) == "" {
		return nil, nil
	}
	d, err := t.date(col)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *table) float(col string) (float64, error) {
	s := t.str(col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, t.errorf(col, "invalid number %q", s)
	}
	return v, nil
}

func (t *table) optFloat(col string) (*float64, error) {
	if t.str(col) == "" {
		return nil, nil
	}
	v, err := t.float(col)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// integer accepts values written as floats, e.g. "1200000.0"
func (t *table) integer(col string) (int64, error) {
	s := t.str(col)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, t.errorf(col, "invalid integer %q", s)
	}
	return int64(f), nil
}

func (t *table) optInteger(col string) (*int64, error) {
	if t.str(col) == "" {
		return nil, nil
	}
	v, err := t.integer(col)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *table) boolean(col string) (bool, error) {
	s := strings.ToLower(t.str(col))
	switch s {
	case "", "0", "false", "f", "no", "n":
		return false, nil
	case "1", "true", "t", "yes", "y":
		return true, nil
	default:
		return false, t.errorf(col, "invalid boolean %q", s)
	}
}

// ReadCompanies parses companies.csv
func ReadCompanies(r io.Reader) ([]models.Company, error) {
	t, err := newTable(r, companyHeader)
	if err != nil {
		return nil, err
	}

	var rows []models.Company
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return rows, err
		}
		score, err := t.optFloat("governance_score")
		if err != nil {
			return nil, err
		}
		rows = append(rows, models.Company{
			Ticker:          t.str("ticker"),
			Name:            t.str("company_name"),
			Sector:          t.optStr("sector"),
			GovernanceScore: score,
		})
	}
}

// ReadStockPrices parses stock_prices.csv. Blank closing_price or
// trading_volume cells are recorded in StockPrice.Blank rather than read as 0.
func ReadStockPrices(r io.Reader) ([]models.StockPrice, error) {
	t, err := newTable(r, priceHeader)
	if err != nil {
		return nil, err
	}

	var rows []models.StockPrice
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return rows, err
		}
		p := models.StockPrice{Ticker: t.str("ticker")}
		if p.Date, err = t.date("date"); err != nil {
			return nil, err
		}
		price, err := t.optFloat("closing_price")
		if err != nil {
			return nil, err
		}
		if price == nil {
			p.Blank = append(p.Blank, "closing_price")
		} else {
			p.ClosingPrice = *price
		}
		volume, err := t.optInteger("trading_volume")
		if err != nil {
			return nil, err
		}
		if volume == nil {
			p.Blank = append(p.Blank, "trading_volume")
		} else {
			p.TradingVolume = *volume
		}
		if p.Returns, err = t.optFloat("returns"); err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
}

// ReadFilings parses sec_filings.csv. An optional filing_text column feeds
// cybersecurity mention detection.
func ReadFilings(r io.Reader) ([]models.Filing, error) {
	t, err := newTable(r, filingHeader)
	if err != nil {
		return nil, err
	}

	var rows []models.Filing
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return rows, err
		}
		f := models.Filing{
			Ticker:          t.str("ticker"),
			FilingType:      strings.ToUpper(t.str("filing_type")),
			DisclosureSpeed: t.optStr("disclosure_speed"),
			Text:            t.str("filing_text"),
		}
		if f.FilingDate, err = t.date("filing_date"); err != nil {
			return nil, err
		}
		if f.CybersecurityMention, err = t.boolean("cybersecurity_mention"); err != nil {
			return nil, err
		}
		rows = append(rows, f)
	}
}

// ReadIncidents parses cybersecurity_incidents.csv
func ReadIncidents(r io.Reader) ([]models.Incident, error) {
	t, err := newTable(r, incidentHeader)
	if err != nil {
		return nil, err
	}

	var rows []models.Incident
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return rows, err
		}
		inc := models.Incident{Ticker: t.str("ticker"), IncidentType: t.optStr("incident_type")}
		if inc.BreachDate, err = t.date("breach_date"); err != nil {
			return nil, err
		}
		if inc.DisclosureDate, err = t.optDate("disclosure_date"); err != nil {
			return nil, err
		}
		if inc.RecordsAffected, err = t.optInteger("records_affected"); err != nil {
			return nil, err
		}
		rows = append(rows, inc)
	}
}

// WriteFilings writes filings in the sec_filings.csv layout read by ReadFilings
func WriteFilings(w io.Writer, filings []models.Filing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ticker", "filing_date", "filing_type", "cybersecurity_mention", "disclosure_speed"}); err != nil {
		return err
	}
	for _, f := range filings {
		speed := ""
		if f.DisclosureSpeed != nil {
			speed = *f.DisclosureSpeed
		}
		if err := cw.Write([]string{
			f.Ticker,
			f.FilingDate.Format(time.DateOnly),
			f.FilingType,
			strconv.FormatBool(f.CybersecurityMention),
			speed,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
