// Package models holds the rows of the research dataset. Validation tags
// mirror the CHECK constraints declared in internal/schema.
package models

import "time"

// Company is a publicly traded company.
type Company struct {
	ID              int64     `db:"company_id"`
	Ticker          string    `db:"ticker" validate:"required,max=10,alpha,uppercase"`
	Name            string    `db:"company_name" validate:"required,max=255,excludesall=<>"`
	Sector          *string   `db:"sector" validate:"omitempty,max=100"`
	GovernanceScore *float64  `db:"governance_score" validate:"omitempty,gte=0,lte=10"`
	CreatedAt       time.Time `db:"created_at"`
}

// StockPrice is one daily close. Ticker identifies the company in input
// files before company IDs are known.
type StockPrice struct {
	ID            int64     `db:"price_id"`
	CompanyID     int64     `db:"company_id"`
	Ticker        string    `db:"ticker"`
	Date          time.Time `db:"date" validate:"required"`
	ClosingPrice  float64   `db:"closing_price" validate:"gt=0"`
	TradingVolume int64     `db:"trading_volume" validate:"gte=0"`
	Returns       *float64  `db:"returns"`
	CreatedAt     time.Time `db:"created_at"`

	// Blank names NOT NULL columns that were empty in the input file. Their
	// zero values are placeholders and must never be stored.
	Blank []string `db:"-"`
}

// IsBlank reports whether column was empty in the input file
func (p StockPrice) IsBlank(column string) bool {
	for _, c := range p.Blank {
		if c == column {
			return true
		}
	}
	return false
}

// Filing is an SEC filing.
type Filing struct {
	ID                   int64     `db:"filing_id"`
	CompanyID            int64     `db:"company_id"`
	Ticker               string    `db:"ticker"`
	FilingDate           time.Time `db:"filing_date" validate:"required"`
	FilingType           string    `db:"filing_type" validate:"required,oneof=8-K 10-K 10-Q 20-F"`
	CybersecurityMention bool      `db:"cybersecurity_mention"`
	DisclosureSpeed      *string   `db:"disclosure_speed" validate:"omitempty,oneof=Immediate Delayed Unknown"`
	CreatedAt            time.Time `db:"created_at"`

	// Text is the filing body when available; it is not stored.
	Text string `db:"-"`
}

// Incident is a cybersecurity incident.
type Incident struct {
	ID              int64      `db:"incident_id"`
	CompanyID       int64      `db:"company_id"`
	Ticker          string     `db:"ticker"`
	BreachDate      time.Time  `db:"breach_date" validate:"required"`
	DisclosureDate  *time.Time `db:"disclosure_date" validate:"omitempty,gtefield=BreachDate"`
	IncidentType    *string    `db:"incident_type" validate:"omitempty,max=100"`
	RecordsAffected *int64     `db:"records_affected" validate:"omitempty,gte=0"`
	CreatedAt       time.Time  `db:"created_at"`
}

// Disclosure speeds
const (
	SpeedImmediate = "Immediate"
	SpeedDelayed   = "Delayed"
	SpeedUnknown   = "Unknown"
)

// Dataset is a batch of rows destined for the four tables.
type Dataset struct {
	Companies   []Company
	StockPrices []StockPrice
	Filings     []Filing
	Incidents   []Incident
}

// Date truncates t to midnight UTC. Every date column is stored this way so
// that comparisons behave identically on all engines.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO 8601 calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// WindowPrice is a stock price inside an event window.
type WindowPrice struct {
	StockPrice
	EventDay bool `db:"-"`
}

// TableStats summarizes one table.
type TableStats struct {
	Table       string
	Rows        int64
	LastCreated *time.Time
}
