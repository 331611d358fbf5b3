package cyberdisclosure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/cyberdisclosure/internal/schema"
)

func migratedURL(t *testing.T) string {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "research.db")
	if err := Migrate(context.Background(), url); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return url
}

func TestMigrateAndVerify(t *testing.T) {
	ctx := context.Background()
	url := migratedURL(t)

	// Migrating twice is a no-op.
	if err := Migrate(ctx, url); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	drifts, err := Verify(ctx, url)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(drifts) != 0 {
		t.Errorf("Expected no drift, got %v", drifts)
	}
}

func TestVerifyReportsLegacySchema(t *testing.T) {
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "legacy.db")

	client, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_, err = client.DB().ExecContext(ctx, `
		CREATE TABLE companies (
			company_id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker VARCHAR(10) NOT NULL,
			company_name VARCHAR(255) NOT NULL
		)`)
	_ = client.Close()
	if err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}

	drifts, err := Verify(ctx, url)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	got := make(map[string]bool)
	for _, d := range drifts {
		got[d.String()] = true
	}
	for _, want := range []string{
		"companies.ticker: column not unique",
		"companies.sector: column missing",
		"stock_prices: table missing",
		"sec_filings: table missing",
		"cybersecurity_incidents: table missing",
	} {
		if !got[want] {
			t.Errorf("Expected drift %q, got %v", want, drifts)
		}
	}
}

func TestMigrateReturnsDriftError(t *testing.T) {
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "legacy.db")

	client, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_, err = client.DB().ExecContext(ctx, `
		CREATE TABLE companies (
			company_id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker VARCHAR(10) NOT NULL,
			company_name VARCHAR(255) NOT NULL
		)`)
	_ = client.Close()
	if err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}

	err = Migrate(ctx, url)
	if !errors.Is(err, ErrSchemaDrift) {
		t.Fatalf("Expected ErrSchemaDrift, got %v", err)
	}
	var drift *DriftError
	if !errors.As(err, &drift) {
		t.Fatalf("Expected *DriftError, got %T", err)
	}
	for _, d := range drift.Drifts {
		if d.Table != "companies" {
			t.Errorf("Expected drift on companies only, got %q", d)
		}
	}
	if len(drift.Drifts) == 0 {
		t.Error("Expected drifts on the legacy companies table")
	}
}

func TestExtractSchema(t *testing.T) {
	ctx := context.Background()
	url := migratedURL(t)

	tests := []struct {
		name       string
		url        string
		opts       *Options
		wantTables []string
		wantErr    bool
	}{
		{
			name:       "SQLite all tables",
			url:        url,
			wantTables: []string{"companies", "cybersecurity_incidents", "sec_filings", "stock_prices"},
		},
		{
			name:       "SQLite specific tables",
			url:        url,
			opts:       &Options{Tables: []string{"companies", "stock_prices"}},
			wantTables: []string{"companies", "stock_prices"},
		},
		{
			name:    "Invalid URL scheme",
			url:     "invalid://test.db",
			wantErr: true,
		},
		{
			name:    "Empty URL",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ExtractSchema(ctx, tt.url, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(s.Tables) != len(tt.wantTables) {
				t.Fatalf("Expected %d tables, got %d", len(tt.wantTables), len(s.Tables))
			}
			for i, name := range tt.wantTables {
				if s.Tables[i].Name != name {
					t.Errorf("table %d: expected %s, got %s", i, name, s.Tables[i].Name)
				}
			}
		})
	}
}

func TestFormatSchemaDefaultsToMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatSchema(Dataset(), &OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("FormatSchema failed: %v", err)
	}

	output := buf.String()
	if !strings.HasPrefix(output, "# Data Dictionary") {
		t.Errorf("Expected markdown output, got %q", output[:40])
	}
	if !strings.Contains(output, "ON DELETE CASCADE") {
		t.Error("Expected output to contain the cascade rule")
	}
}

func TestFormatSchemaErrors(t *testing.T) {
	if err := FormatSchema(Dataset(), &OutputOptions{Writer: &bytes.Buffer{}, Format: "html"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestExtractAndFormat(t *testing.T) {
	ctx := context.Background()
	url := migratedURL(t)

	tests := []struct {
		name    string
		opts    *Options
		outOpts *OutputOptions
		verify  func(t *testing.T, outOpts *OutputOptions)
	}{
		{
			name:    "Single file text output",
			opts:    &Options{Tables: []string{"companies"}},
			outOpts: &OutputOptions{Writer: &bytes.Buffer{}, Format: "text"},
			verify: func(t *testing.T, outOpts *OutputOptions) {
				output := outOpts.Writer.(*bytes.Buffer).String()
				if !strings.Contains(output, "TABLE companies (PK: company_id)") {
					t.Errorf("Expected companies table header, got %q", output)
				}
			},
		},
		{
			name:    "Multi-file output",
			opts:    &Options{Tables: []string{"companies", "stock_prices"}},
			outOpts: &OutputOptions{OutputDir: t.TempDir()},
			verify: func(t *testing.T, outOpts *OutputOptions) {
				for _, name := range []string{"_overview.md", "companies.md", "stock_prices.md"} {
					if _, err := os.Stat(filepath.Join(outOpts.OutputDir, name)); err != nil {
						t.Errorf("Expected %s to be created: %v", name, err)
					}
				}
			},
		},
		{
			name:    "With exclusions",
			opts:    &Options{ExcludeTables: []string{"stock_prices", "sec_filings"}},
			outOpts: &OutputOptions{Writer: &bytes.Buffer{}},
			verify: func(t *testing.T, outOpts *OutputOptions) {
				output := outOpts.Writer.(*bytes.Buffer).String()
				if strings.Contains(output, "## stock_prices") {
					t.Error("Expected stock_prices to be excluded from output")
				}
				if !strings.Contains(output, "## cybersecurity_incidents") {
					t.Error("Expected cybersecurity_incidents to be in output")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ExtractAndFormat(ctx, url, tt.opts, tt.outOpts); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tt.verify(t, tt.outOpts)
		})
	}
}

func TestFilterExcludedTables(t *testing.T) {
	s := &schema.Schema{Tables: []schema.Table{{Name: "companies"}, {Name: "audit_log"}, {Name: "stock_prices"}}}
	filterExcludedTables(s, []string{"audit_log"})

	if len(s.Tables) != 2 || s.Tables[0].Name != "companies" || s.Tables[1].Name != "stock_prices" {
		t.Errorf("Unexpected tables after filtering: %v", s.Tables)
	}
}
