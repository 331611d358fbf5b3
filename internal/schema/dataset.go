package schema

import "strings"

// Table names of the research dataset.
const (
	TableCompanies   = "companies"
	TableStockPrices = "stock_prices"
	TableSECFilings  = "sec_filings"
	TableIncidents   = "cybersecurity_incidents"
)

// Dialect names used for check expression overrides.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// FilingTypes are the SEC form types accepted in sec_filings.filing_type.
var FilingTypes = []string{"8-K", "10-K", "10-Q", "20-F"}

// DisclosureSpeeds are the accepted values of sec_filings.disclosure_speed.
var DisclosureSpeeds = []string{"Immediate", "Delayed", "Unknown"}

// Dataset returns the canonical schema of the research dataset. Tables are
// ordered so that every referenced table precedes the tables referencing it.
func Dataset() *Schema {
	s := &Schema{Tables: []Table{
		companiesTable(),
		stockPricesTable(),
		secFilingsTable(),
		incidentsTable(),
	}}
	for i := range s.Tables {
		annotate(&s.Tables[i])
	}
	return s
}

// annotate fills the display type and per-column check text.
func annotate(t *Table) {
	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Type == "" {
			col.Type = TypeName(col.Kind, col.Size, col.Scale)
		}
		var exprs []string
		for _, chk := range t.Checks {
			if len(chk.Columns) == 1 && chk.Columns[0] == col.Name {
				exprs = append(exprs, chk.Expr)
			}
		}
		if len(exprs) > 0 {
			joined := strings.Join(exprs, " AND ")
			col.CheckConstraint = &joined
		}
	}
}

func companiesTable() Table {
	return Table{
		Name:        TableCompanies,
		Description: "Publicly traded companies; root entity of the dataset.",
		PrimaryKey:  []string{"company_id"},
		Columns: []Column{
			serial("company_id"),
			{Name: "ticker", Kind: KindVarchar, Size: 10, IsUnique: true,
				Description: "Exchange ticker, 1-10 uppercase letters."},
			{Name: "company_name", Kind: KindVarchar, Size: 255,
				Description: "Registered company name."},
			{Name: "sector", Kind: KindVarchar, Size: 100, Nullable: true,
				Description: "Industry sector."},
			{Name: "governance_score", Kind: KindDecimal, Size: 3, Scale: 1, Nullable: true,
				Description: "Corporate governance score between 0 and 10."},
			createdAt(),
		},
		Checks: []Check{
			{
				Name:    "chk_companies_ticker_format",
				Columns: []string{"ticker"},
				Expr:    "ticker ~ '^[A-Z]+$'",
				Dialect: map[string]string{
					DialectMySQL:  "REGEXP_LIKE(ticker, '^[A-Z]+$', 'c')",
					DialectSQLite: "ticker <> '' AND ticker NOT GLOB '*[^A-Z]*'",
				},
			},
			{
				Name:    "chk_companies_ticker_length",
				Columns: []string{"ticker"},
				Expr:    "LENGTH(ticker) <= 10",
			},
			{
				Name:    "chk_companies_governance_score",
				Columns: []string{"governance_score"},
				Expr:    "governance_score >= 0 AND governance_score <= 10",
			},
		},
	}
}

func stockPricesTable() Table {
	return Table{
		Name:        TableStockPrices,
		Description: "Daily closing prices; at most one row per company and date.",
		PrimaryKey:  []string{"price_id"},
		Columns: []Column{
			serial("price_id"),
			companyRef(),
			{Name: "date", Kind: KindDate, Description: "Trading day."},
			{Name: "closing_price", Kind: KindDecimal, Size: 12, Scale: 4,
				Description: "Closing price, strictly positive."},
			{Name: "trading_volume", Kind: KindBigInt,
				Description: "Shares traded, non-negative."},
			{Name: "returns", Kind: KindDecimal, Size: 10, Scale: 6, Nullable: true,
				Description: "Simple daily return against the previous close."},
			createdAt(),
		},
		Relations: []Relation{cascadeToCompanies()},
		Unique: []Index{
			{Name: "uq_stock_prices_company_date", Columns: []string{"company_id", "date"}, IsUnique: true},
		},
		Indexes: []Index{
			{Name: "idx_stock_prices_company_date", Columns: []string{"company_id", "date"}},
		},
		Checks: []Check{
			{Name: "chk_stock_prices_closing_price", Columns: []string{"closing_price"}, Expr: "closing_price > 0"},
			{Name: "chk_stock_prices_trading_volume", Columns: []string{"trading_volume"}, Expr: "trading_volume >= 0"},
		},
	}
}

func secFilingsTable() Table {
	falseDefault := "false"
	return Table{
		Name:        TableSECFilings,
		Description: "SEC filings and whether they disclose cybersecurity matters.",
		PrimaryKey:  []string{"filing_id"},
		Columns: []Column{
			serial("filing_id"),
			companyRef(),
			{Name: "filing_date", Kind: KindDate, Description: "Date the filing was submitted."},
			{Name: "filing_type", Kind: KindVarchar, Size: 10, EnumValues: FilingTypes,
				Description: "SEC form type."},
			{Name: "cybersecurity_mention", Kind: KindBoolean, DefaultValue: &falseDefault,
				Description: "Filing text mentions a cybersecurity matter."},
			{Name: "disclosure_speed", Kind: KindVarchar, Size: 20, Nullable: true, EnumValues: DisclosureSpeeds,
				Description: "Timeliness of the disclosure relative to the incident."},
			createdAt(),
		},
		Relations: []Relation{cascadeToCompanies()},
		Indexes: []Index{
			{Name: "idx_sec_filings_date", Columns: []string{"filing_date"}},
			{Name: "idx_sec_filings_company", Columns: []string{"company_id"}},
		},
		Checks: []Check{
			{Name: "chk_sec_filings_filing_type", Columns: []string{"filing_type"}, Expr: inList("filing_type", FilingTypes)},
			{Name: "chk_sec_filings_disclosure_speed", Columns: []string{"disclosure_speed"}, Expr: inList("disclosure_speed", DisclosureSpeeds)},
		},
	}
}

func incidentsTable() Table {
	return Table{
		Name:        TableIncidents,
		Description: "Cybersecurity incidents and when they were disclosed.",
		PrimaryKey:  []string{"incident_id"},
		Columns: []Column{
			serial("incident_id"),
			companyRef(),
			{Name: "breach_date", Kind: KindDate, Description: "Date the breach occurred."},
			{Name: "disclosure_date", Kind: KindDate, Nullable: true,
				Description: "Date the breach was disclosed; never before breach_date."},
			{Name: "incident_type", Kind: KindVarchar, Size: 100, Nullable: true,
				Description: "Incident category (ransomware, data breach, ...)."},
			{Name: "records_affected", Kind: KindBigInt, Nullable: true,
				Description: "Number of records exposed, non-negative."},
			createdAt(),
		},
		Relations: []Relation{cascadeToCompanies()},
		Indexes: []Index{
			{Name: "idx_incidents_breach_date", Columns: []string{"breach_date"}},
			{Name: "idx_incidents_company", Columns: []string{"company_id"}},
		},
		Checks: []Check{
			{Name: "chk_incidents_disclosure_order", Columns: []string{"breach_date", "disclosure_date"},
				Expr: "disclosure_date IS NULL OR disclosure_date >= breach_date"},
			{Name: "chk_incidents_records_affected", Columns: []string{"records_affected"}, Expr: "records_affected >= 0"},
		},
	}
}

func serial(name string) Column {
	return Column{Name: name, Kind: KindSerial, Description: "Surrogate key."}
}

func companyRef() Column {
	return Column{Name: "company_id", Kind: KindInteger, Description: "Owning company."}
}

func createdAt() Column {
	now := "CURRENT_TIMESTAMP"
	return Column{Name: "created_at", Kind: KindTimestamp, DefaultValue: &now,
		Description: "Insertion time, stamped by the database."}
}

func cascadeToCompanies() Relation {
	return Relation{
		SourceColumn: "company_id",
		TargetTable:  TableCompanies,
		TargetColumn: "company_id",
		Cardinality:  "N:1",
		OnDelete:     "CASCADE",
	}
}

func inList(column string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return column + " IN (" + strings.Join(quoted, ", ") + ")"
}
