package validate

import (
	"math"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
)

// Profile summarizes the contents of a dataset
type Profile struct {
	Records       int
	NullCounts    map[string]int
	DuplicateKeys int
	Numeric       map[string]NumericStats
	// First and Last bound the dataset's primary date column, when it has one
	First, Last *time.Time
}

// NumericStats describes the non-null values of a numeric column
type NumericStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

type profiler struct {
	p      Profile
	values map[string][]float64
	keys   map[string]bool
}

func newProfiler(records int, columns ...string) *profiler {
	pr := &profiler{
		p: Profile{
			Records:    records,
			NullCounts: make(map[string]int, len(columns)),
			Numeric:    make(map[string]NumericStats),
		},
		values: make(map[string][]float64),
		keys:   make(map[string]bool),
	}
	for _, c := range columns {
		pr.p.NullCounts[c] = 0
	}
	return pr
}

func (pr *profiler) null(column string, isNull bool) {
	if isNull {
		pr.p.NullCounts[column]++
	}
}

func (pr *profiler) number(column string, v float64) {
	pr.values[column] = append(pr.values[column], v)
}

func (pr *profiler) key(k string) {
	if pr.keys[k] {
		pr.p.DuplicateKeys++
		return
	}
	pr.keys[k] = true
}

func (pr *profiler) date(d time.Time) {
	if d.IsZero() {
		return
	}
	if pr.p.First == nil || d.Before(*pr.p.First) {
		first := d
		pr.p.First = &first
	}
	if pr.p.Last == nil || d.After(*pr.p.Last) {
		last := d
		pr.p.Last = &last
	}
}

func (pr *profiler) profile() Profile {
	for column, vs := range pr.values {
		pr.p.Numeric[column] = describeNumbers(vs)
	}
	return pr.p
}

// describeNumbers uses the sample standard deviation; a single value has
// a deviation of zero.
func describeNumbers(vs []float64) NumericStats {
	st := NumericStats{Count: len(vs)}
	if len(vs) == 0 {
		return st
	}

	st.Min, st.Max = vs[0], vs[0]
	var sum float64
	for _, v := range vs {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		sum += v
	}
	st.Mean = sum / float64(len(vs))

	if len(vs) > 1 {
		var sq float64
		for _, v := range vs {
			sq += (v - st.Mean) * (v - st.Mean)
		}
		st.StdDev = math.Sqrt(sq / float64(len(vs)-1))
	}
	return st
}

func profileCompanies(rows []models.Company) Profile {
	pr := newProfiler(len(rows), "ticker", "company_name", "sector", "governance_score")
	for _, c := range rows {
		pr.null("ticker", c.Ticker == "")
		pr.null("company_name", c.Name == "")
		pr.null("sector", c.Sector == nil)
		pr.null("governance_score", c.GovernanceScore == nil)
		if c.GovernanceScore != nil {
			pr.number("governance_score", *c.GovernanceScore)
		}
		pr.key(c.Ticker)
	}
	return pr.profile()
}

func profilePrices(rows []models.StockPrice) Profile {
	pr := newProfiler(len(rows), "date", "closing_price", "trading_volume", "returns")
	for _, p := range rows {
		pr.null("date", p.Date.IsZero())
		pr.null("closing_price", p.IsBlank("closing_price"))
		pr.null("trading_volume", p.IsBlank("trading_volume"))
		pr.null("returns", p.Returns == nil)
		if !p.IsBlank("closing_price") {
			pr.number("closing_price", p.ClosingPrice)
		}
		if !p.IsBlank("trading_volume") {
			pr.number("trading_volume", float64(p.TradingVolume))
		}
		if p.Returns != nil {
			pr.number("returns", *p.Returns)
		}
		pr.key(p.Ticker + "|" + p.Date.Format(time.DateOnly))
		pr.date(p.Date)
	}
	return pr.profile()
}

func profileFilings(rows []models.Filing) Profile {
	pr := newProfiler(len(rows), "filing_date", "filing_type", "disclosure_speed")
	for _, f := range rows {
		pr.null("filing_date", f.FilingDate.IsZero())
		pr.null("filing_type", f.FilingType == "")
		pr.null("disclosure_speed", f.DisclosureSpeed == nil)
		pr.date(f.FilingDate)
	}
	return pr.profile()
}

func profileIncidents(rows []models.Incident) Profile {
	pr := newProfiler(len(rows), "breach_date", "disclosure_date", "incident_type", "records_affected")
	for _, inc := range rows {
		pr.null("breach_date", inc.BreachDate.IsZero())
		pr.null("disclosure_date", inc.DisclosureDate == nil)
		pr.null("incident_type", inc.IncidentType == nil)
		pr.null("records_affected", inc.RecordsAffected == nil)
		if inc.RecordsAffected != nil {
			pr.number("records_affected", float64(*inc.RecordsAffected))
		}
		pr.date(inc.BreachDate)
	}
	return pr.profile()
}
