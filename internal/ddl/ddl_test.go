package ddl

import (
	"strings"
	"testing"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"postgres", Postgres, false},
		{"PostgreSQL", Postgres, false},
		{"pg", Postgres, false},
		{"mysql", MySQL, false},
		{" sqlite3 ", SQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func render(t *testing.T, d Dialect) string {
	t.Helper()
	stmts, err := Render(schema.Dataset(), d)
	if err != nil {
		t.Fatalf("Render(%s) failed: %v", d, err)
	}
	return Script(stmts)
}

func TestRenderPostgres(t *testing.T) {
	sql := render(t, Postgres)

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS companies (",
		"company_id SERIAL PRIMARY KEY",
		"ticker VARCHAR(10) NOT NULL UNIQUE",
		"sector VARCHAR(100),",
		"governance_score DECIMAL(3,1),",
		"created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"CONSTRAINT chk_companies_ticker_format CHECK (ticker ~ '^[A-Z]+$')",
		"CONSTRAINT uq_stock_prices_company_date UNIQUE (company_id, date)",
		"CONSTRAINT fk_stock_prices_company_id FOREIGN KEY (company_id) REFERENCES companies(company_id) ON DELETE CASCADE",
		"cybersecurity_mention BOOLEAN NOT NULL DEFAULT false",
		"CONSTRAINT chk_incidents_disclosure_order CHECK (disclosure_date IS NULL OR disclosure_date >= breach_date)",
		"CREATE INDEX IF NOT EXISTS idx_stock_prices_company_date ON stock_prices(company_id, date);",
		"CREATE INDEX IF NOT EXISTS idx_incidents_breach_date ON cybersecurity_incidents(breach_date);",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("Postgres DDL missing %q", want)
		}
	}
}

func TestRenderMySQL(t *testing.T) {
	sql := render(t, MySQL)

	for _, want := range []string{
		"company_id INT AUTO_INCREMENT PRIMARY KEY",
		"company_id INT NOT NULL",
		"CHECK (REGEXP_LIKE(ticker, '^[A-Z]+$', 'c'))",
		"INDEX idx_sec_filings_date (filing_date)",
		") ENGINE=InnoDB",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("MySQL DDL missing %q", want)
		}
	}
	if strings.Contains(sql, "CREATE INDEX") {
		t.Error("MySQL DDL must declare indexes inline")
	}
}

func TestRenderSQLite(t *testing.T) {
	sql := render(t, SQLite)

	for _, want := range []string{
		"company_id INTEGER PRIMARY KEY AUTOINCREMENT",
		"CHECK (ticker <> '' AND ticker NOT GLOB '*[^A-Z]*')",
		"cybersecurity_mention BOOLEAN NOT NULL DEFAULT 0",
		"CREATE INDEX IF NOT EXISTS idx_sec_filings_company ON sec_filings(company_id);",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("SQLite DDL missing %q", want)
		}
	}
}

func TestRenderOrder(t *testing.T) {
	stmts, err := Render(schema.Dataset(), Postgres)
	if err != nil {
		t.Fatal(err)
	}

	pos := func(table string) int {
		for i, stmt := range stmts {
			if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				return i
			}
		}
		t.Fatalf("No CREATE TABLE for %s", table)
		return -1
	}

	parent := pos(schema.TableCompanies)
	for _, child := range []string{schema.TableStockPrices, schema.TableSECFilings, schema.TableIncidents} {
		if pos(child) < parent {
			t.Errorf("%s created before companies", child)
		}
	}

	// 4 tables plus 5 indexes
	if len(stmts) != 9 {
		t.Errorf("Expected 9 statements, got %d", len(stmts))
	}
}

func TestRenderUnknownKind(t *testing.T) {
	s := &schema.Schema{Tables: []schema.Table{{
		Name:    "broken",
		Columns: []schema.Column{{Name: "x", Kind: schema.KindUnknown}},
	}}}

	if _, err := Render(s, Postgres); err == nil {
		t.Error("Expected error for column without a type")
	}
}
