package validate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/cyberdisclosure/internal/models"
)

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCompanyRules(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		company   models.Company
		wantField string
	}{
		{"valid", models.Company{Ticker: "AAPL", Name: "Apple Inc.", GovernanceScore: ptr(8.5)}, ""},
		{"zero governance is valid", models.Company{Ticker: "ZERO", Name: "Zero", GovernanceScore: ptr(0.0)}, ""},
		{"lowercase ticker", models.Company{Ticker: "aapl", Name: "Apple"}, "ticker"},
		{"digit ticker", models.Company{Ticker: "A1", Name: "A"}, "ticker"},
		{"empty ticker", models.Company{Ticker: "", Name: "A"}, "ticker"},
		{"long ticker", models.Company{Ticker: "ABCDEFGHIJK", Name: "A"}, "ticker"},
		{"missing name", models.Company{Ticker: "A"}, "company_name"},
		{"html in name", models.Company{Ticker: "A", Name: "<b>Apple</b>"}, "company_name"},
		{"long name", models.Company{Ticker: "A", Name: strings.Repeat("x", 256)}, "company_name"},
		{"long sector", models.Company{Ticker: "A", Name: "A", Sector: ptr(strings.Repeat("s", 101))}, "sector"},
		{"governance too high", models.Company{Ticker: "A", Name: "A", GovernanceScore: ptr(10.1)}, "governance_score"},
		{"governance negative", models.Company{Ticker: "A", Name: "A", GovernanceScore: ptr(-1.0)}, "governance_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := v.Company(0, tt.company)
			if tt.wantField == "" {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, tt.wantField, issues[0].Field)
			assert.Equal(t, "companies", issues[0].Dataset)
		})
	}
}

func TestStockPriceRules(t *testing.T) {
	v := New()
	base := models.StockPrice{Ticker: "AAPL", Date: day("2024-01-02"), ClosingPrice: 185.64, TradingVolume: 100}

	assert.Empty(t, v.StockPrice(0, base))

	negative := base
	negative.ClosingPrice = -5
	issues := v.StockPrice(3, negative)
	require.Len(t, issues, 1)
	assert.Equal(t, "closing_price", issues[0].Field)
	assert.Equal(t, "row 4: closing_price must be greater than 0", issues[0].String())

	noDate := base
	noDate.Date = time.Time{}
	issues = v.StockPrice(0, noDate)
	require.Len(t, issues, 1)
	assert.Equal(t, "date", issues[0].Field)

	badVolume := base
	badVolume.TradingVolume = -1
	issues = v.StockPrice(0, badVolume)
	require.Len(t, issues, 1)
	assert.Equal(t, "trading_volume", issues[0].Field)
}

func TestFilingRules(t *testing.T) {
	v := New()

	assert.Empty(t, v.Filing(0, models.Filing{FilingDate: day("2024-01-19"), FilingType: "8-K", DisclosureSpeed: ptr("Delayed")}))

	issues := v.Filing(0, models.Filing{FilingDate: day("2024-01-19"), FilingType: "S-1"})
	require.Len(t, issues, 1)
	assert.Equal(t, "must be one of 8-K, 10-K, 10-Q, 20-F", issues[0].Message)

	issues = v.Filing(0, models.Filing{FilingDate: day("2024-01-19"), FilingType: "10-K", DisclosureSpeed: ptr("Fast")})
	require.Len(t, issues, 1)
	assert.Equal(t, "disclosure_speed", issues[0].Field)
}

func TestIncidentRules(t *testing.T) {
	v := New()

	assert.Empty(t, v.Incident(0, models.Incident{BreachDate: day("2024-02-21"), DisclosureDate: ptr(day("2024-02-21"))}))
	assert.Empty(t, v.Incident(0, models.Incident{BreachDate: day("2024-02-21")}))

	issues := v.Incident(0, models.Incident{BreachDate: day("2024-02-21"), DisclosureDate: ptr(day("2024-02-20"))})
	require.Len(t, issues, 1)
	assert.Equal(t, "disclosure_date", issues[0].Field)
	assert.Equal(t, "must not be before breach_date", issues[0].Message)

	issues = v.Incident(0, models.Incident{BreachDate: day("2024-02-21"), RecordsAffected: ptr(int64(-3))})
	require.Len(t, issues, 1)
	assert.Equal(t, "records_affected", issues[0].Field)
}

func sampleDataset() *models.Dataset {
	return &models.Dataset{
		Companies: []models.Company{
			{Ticker: "AAPL", Name: "Apple Inc.", Sector: ptr("Technology"), GovernanceScore: ptr(8.0)},
			{Ticker: "MSFT", Name: "Microsoft Corp.", GovernanceScore: ptr(9.0)},
		},
		StockPrices: []models.StockPrice{
			{Ticker: "AAPL", Date: day("2024-01-02"), ClosingPrice: 100, TradingVolume: 1000},
			{Ticker: "AAPL", Date: day("2024-01-03"), ClosingPrice: 110, TradingVolume: 2000, Returns: ptr(0.1)},
		},
		Filings: []models.Filing{
			{Ticker: "MSFT", FilingDate: day("2024-01-19"), FilingType: "8-K", CybersecurityMention: true},
		},
		Incidents: []models.Incident{
			{Ticker: "MSFT", BreachDate: day("2024-01-12"), DisclosureDate: ptr(day("2024-01-19"))},
		},
	}
}

func TestDatasetPasses(t *testing.T) {
	report := New().Dataset(sampleDataset())

	assert.True(t, report.Passed())
	assert.Equal(t, "PASSED", report.Status())
	assert.Zero(t, report.ErrorCount())

	prices := report.Result("stock_prices")
	require.NotNil(t, prices)
	assert.Equal(t, 2, prices.Records)
	assert.Equal(t, 1, prices.Profile.NullCounts["returns"])
	assert.InDelta(t, 105, prices.Profile.Numeric["closing_price"].Mean, 1e-9)
	assert.InDelta(t, 7.0710678, prices.Profile.Numeric["closing_price"].StdDev, 1e-6)
	assert.Equal(t, day("2024-01-02"), *prices.Profile.First)
	assert.Equal(t, day("2024-01-03"), *prices.Profile.Last)
}

func TestDatasetCrossTable(t *testing.T) {
	ds := sampleDataset()
	ds.Companies = append(ds.Companies, models.Company{Ticker: "AAPL", Name: "Apple again"})
	ds.StockPrices = append(ds.StockPrices,
		models.StockPrice{Ticker: "AAPL", Date: day("2024-01-02"), ClosingPrice: 101, TradingVolume: 1},
		models.StockPrice{Ticker: "GOOG", Date: day("2024-01-02"), ClosingPrice: 140, TradingVolume: 1},
	)
	ds.Incidents = append(ds.Incidents, models.Incident{Ticker: "MSFT", BreachDate: day("2024-03-01"), DisclosureDate: ptr(day("2024-02-01"))})

	report := New().Dataset(ds)
	assert.False(t, report.Passed())
	assert.Equal(t, "FAILED", report.Status())

	var messages []string
	for _, issue := range report.CrossTable {
		messages = append(messages, issue.Dataset+": "+issue.String())
	}
	assert.Contains(t, messages, "companies: row 3: ticker duplicates ticker AAPL from row 1")
	assert.Contains(t, messages, "stock_prices: row 3: date duplicates AAPL price for 2024-01-02 from row 1")
	assert.Contains(t, messages, `stock_prices: row 4: ticker references unknown company "GOOG"`)
	assert.Contains(t, messages, "cybersecurity_incidents: found 1 incidents with disclosure before breach")

	assert.Equal(t, map[int]bool{2: true, 3: true}, report.InvalidRows("stock_prices"))
	assert.Equal(t, map[int]bool{1: true}, report.InvalidRows("cybersecurity_incidents"))
	assert.Equal(t, 1, report.Result("companies").Profile.DuplicateKeys)
}

func TestCrossTableKnownTickers(t *testing.T) {
	ds := &models.Dataset{
		StockPrices: []models.StockPrice{{Ticker: "IBM", Date: day("2024-01-02"), ClosingPrice: 160, TradingVolume: 1}},
	}

	assert.Len(t, CrossTable(ds), 1)
	assert.Empty(t, CrossTable(ds, "IBM"))
	assert.True(t, New().Dataset(ds, "IBM").Passed())
}

func TestPlausibilityWarnings(t *testing.T) {
	ds := sampleDataset()
	ds.StockPrices = []models.StockPrice{
		{Ticker: "AAPL", Date: day("2024-01-02"), ClosingPrice: 10000, TradingVolume: 1e12, Returns: ptr(-1.5)},
	}

	report := New().Dataset(ds)
	assert.True(t, report.Passed(), "warnings must not fail the report")

	prices := report.Result("stock_prices")
	require.Len(t, prices.Warnings, 3)
	assert.Equal(t, "closing_price", prices.Warnings[0].Field)
	assert.Equal(t, "trading_volume", prices.Warnings[1].Field)
	assert.Equal(t, "returns", prices.Warnings[2].Field)
}

func TestReportPrint(t *testing.T) {
	ds := sampleDataset()
	ds.Companies = append(ds.Companies, models.Company{Ticker: "bad", Name: "Bad"})

	var buf bytes.Buffer
	New().Dataset(ds).Print(&buf)
	out := buf.String()

	assert.Contains(t, out, "=== Data Quality Report: FAILED ===")
	assert.Contains(t, out, "companies: 3 records, FAILED")
	assert.Contains(t, out, "error: row 3: ticker must contain only uppercase letters")
	assert.Contains(t, out, "stock_prices: 2 records, ok")
	assert.Contains(t, out, "closing_price: min 100, max 110, mean 105")
	assert.Contains(t, out, "dates: 2024-01-02 to 2024-01-03")
}

func TestDescribeNumbers(t *testing.T) {
	st := describeNumbers([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, st.Count)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 9.0, st.Max)
	assert.Equal(t, 5.0, st.Mean)
	assert.InDelta(t, 2.13809, st.StdDev, 1e-5)

	single := describeNumbers([]float64{3})
	assert.Zero(t, single.StdDev)

	assert.Equal(t, NumericStats{}, describeNumbers(nil))
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "breach_date", snakeCase("BreachDate"))
	assert.Equal(t, "ticker", snakeCase("Ticker"))
}

func TestStockPriceBlankCells(t *testing.T) {
	v := New()
	blank := models.StockPrice{Ticker: "AAPL", Date: day("2024-01-02"), ClosingPrice: 185.64,
		Blank: []string{"trading_volume"}}

	issues := v.StockPrice(0, blank)
	require.Len(t, issues, 1)
	assert.Equal(t, "row 1: trading_volume is required", issues[0].String())

	noPrice := models.StockPrice{Ticker: "AAPL", Date: day("2024-01-02"), TradingVolume: 10,
		Blank: []string{"closing_price"}}
	issues = v.StockPrice(2, noPrice)
	require.Len(t, issues, 1, "blank price reports required, not the range rule")
	assert.Equal(t, "row 3: closing_price is required", issues[0].String())
}

func TestDatasetCountsBlankPrices(t *testing.T) {
	ds := &models.Dataset{
		Companies: []models.Company{{Ticker: "AAPL", Name: "Apple Inc."}},
		StockPrices: []models.StockPrice{
			{Ticker: "AAPL", Date: day("2024-01-02"), ClosingPrice: 185.64, Blank: []string{"trading_volume"}},
			{Ticker: "AAPL", Date: day("2024-01-03"), TradingVolume: 5, Blank: []string{"closing_price"}},
			{Ticker: "AAPL", Date: day("2024-01-04"), ClosingPrice: 181.91, TradingVolume: 7},
		},
	}

	report := New().Dataset(ds)
	assert.False(t, report.Passed())

	prices := report.Result("stock_prices")
	require.NotNil(t, prices)
	assert.Len(t, prices.Errors, 2)
	assert.Equal(t, 1, prices.Profile.NullCounts["closing_price"])
	assert.Equal(t, 1, prices.Profile.NullCounts["trading_volume"])
	assert.Equal(t, 2, prices.Profile.Numeric["closing_price"].Count)
	assert.Equal(t, 2, prices.Profile.Numeric["trading_volume"].Count)

	var missing []string
	for _, w := range prices.Warnings {
		if w.Row < 0 {
			missing = append(missing, w.Message)
		}
	}
	assert.Equal(t, []string{"closing_price missing in 1 of 3 rows (33.3%)"}, missing)
	assert.Equal(t, map[int]bool{0: true, 1: true}, report.InvalidRows("stock_prices"))
}
