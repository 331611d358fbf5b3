//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/cyberdisclosure/internal/db"
	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/schema"
	"github.com/tordrt/cyberdisclosure/internal/store"
)

var datasetTables = []string{
	schema.TableCompanies,
	schema.TableStockPrices,
	schema.TableSECFilings,
	schema.TableIncidents,
}

// verifyMigratedSchema migrates client twice and checks the extracted schema
// against the canonical one
func verifyMigratedSchema(t *testing.T, client db.Client) *schema.Schema {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx, client))
	require.NoError(t, db.Migrate(ctx, client), "migration must be idempotent")

	extractor, err := db.NewSchemaExtractor(ctx, client, "")
	require.NoError(t, err)
	s, err := extractor.ExtractSchema(ctx, nil)
	require.NoError(t, err)

	verifyTablesExist(t, s, datasetTables)
	assert.Empty(t, schema.Compare(schema.Dataset(), s), "migrated schema must not drift")

	companies := findTable(s, schema.TableCompanies)
	require.NotNil(t, companies)
	verifyPrimaryKey(t, companies, []string{"company_id"})
	verifyColumns(t, companies, []string{"company_id", "ticker", "company_name", "sector", "governance_score", "created_at"})
	verifyUniqueConstraint(t, s, schema.TableCompanies, "ticker")

	for _, table := range datasetTables[1:] {
		verifyForeignKey(t, s, table, "company_id", schema.TableCompanies, "CASCADE")
	}
	verifyIndex(t, s, schema.TableStockPrices, "idx_stock_prices_company_date", []string{"company_id", "date"})
	verifyIndex(t, s, schema.TableSECFilings, "idx_sec_filings_date", []string{"filing_date"})
	verifyIndex(t, s, schema.TableIncidents, "idx_incidents_breach_date", []string{"breach_date"})
	return s
}

// verifyConstraints writes through the store and checks that every class of
// violation is rejected and classified the same way on each engine
func verifyConstraints(t *testing.T, client db.Client) {
	t.Helper()
	ctx := context.Background()
	st := store.New(client)
	day := func(s string) time.Time {
		d, err := models.ParseDate(s)
		require.NoError(t, err)
		return d
	}

	msft := &models.Company{Ticker: "MSFT", Name: "Microsoft Corp"}
	require.NoError(t, st.CreateCompany(ctx, msft))

	tests := []struct {
		name string
		kind db.ConstraintKind
		err  error
	}{
		{"lowercase ticker", db.Check, st.CreateCompany(ctx, &models.Company{Ticker: "msft", Name: "Lower"})},
		{"duplicate ticker", db.Unique, st.CreateCompany(ctx, &models.Company{Ticker: "MSFT", Name: "Again"})},
		{"governance score", db.Check, st.CreateCompany(ctx, &models.Company{Ticker: "BAD", Name: "Bad", GovernanceScore: ptr(11.0)})},
		{"zero price", db.Check, st.InsertStockPrice(ctx, &models.StockPrice{CompanyID: msft.ID, Date: day("2024-01-02"), ClosingPrice: 0})},
		{"negative volume", db.Check, st.InsertStockPrice(ctx, &models.StockPrice{CompanyID: msft.ID, Date: day("2024-01-02"), ClosingPrice: 1, TradingVolume: -1})},
		{"unknown company", db.ForeignKey, st.InsertStockPrice(ctx, &models.StockPrice{CompanyID: msft.ID + 1000, Date: day("2024-01-02"), ClosingPrice: 1})},
		{"filing type", db.Check, st.InsertFiling(ctx, &models.Filing{CompanyID: msft.ID, FilingDate: day("2024-01-19"), FilingType: "S-1"})},
		{"disclosure speed", db.Check, st.InsertFiling(ctx, &models.Filing{CompanyID: msft.ID, FilingDate: day("2024-01-19"), FilingType: "8-K", DisclosureSpeed: ptr("Late")})},
		{"disclosure before breach", db.Check, st.InsertIncident(ctx, &models.Incident{CompanyID: msft.ID, BreachDate: day("2024-01-12"), DisclosureDate: ptr(day("2024-01-11"))})},
		{"negative records", db.Check, st.InsertIncident(ctx, &models.Incident{CompanyID: msft.ID, BreachDate: day("2024-01-12"), RecordsAffected: ptr(int64(-1))})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, db.IsConstraint(tt.err, tt.kind), "expected %s violation, got %v", tt.kind, tt.err)
		})
	}

	price := &models.StockPrice{CompanyID: msft.ID, Date: day("2024-01-02"), ClosingPrice: 370.87, TradingVolume: 25258600}
	require.NoError(t, st.InsertStockPrice(ctx, price))
	err := st.InsertStockPrice(ctx, &models.StockPrice{CompanyID: msft.ID, Date: day("2024-01-02"), ClosingPrice: 371, TradingVolume: 1})
	assert.True(t, db.IsConstraint(err, db.Unique), "second price on the same day: %v", err)

	require.NoError(t, st.InsertFiling(ctx, &models.Filing{CompanyID: msft.ID, FilingDate: day("2024-01-19"), FilingType: "8-K",
		CybersecurityMention: true, DisclosureSpeed: ptr(models.SpeedDelayed)}))
	require.NoError(t, st.InsertIncident(ctx, &models.Incident{CompanyID: msft.ID, BreachDate: day("2024-01-12"), DisclosureDate: ptr(day("2024-01-19"))}))

	window, err := st.EventWindow(ctx, msft.ID, day("2024-01-02"), 3)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.True(t, window[0].EventDay)
	assert.InDelta(t, 370.87, window[0].ClosingPrice, 1e-9)

	require.NoError(t, st.DeleteCompany(ctx, msft.ID))
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	for _, s := range stats {
		assert.Zero(t, s.Rows, "%s rows must cascade with their company", s.Table)
	}
}

func ptr[T any](v T) *T { return &v }

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	tableMap := make(map[string]bool)
	for _, table := range s.Tables {
		tableMap[table.Name] = true
	}

	for _, tableName := range expectedTables {
		if !tableMap[tableName] {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if table.Column(colName) == nil {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()
	assert.Equal(t, expectedPK, table.PrimaryKey, "primary key of %s", table.Name)
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, s *schema.Schema, tableName, columnName string) {
	t.Helper()

	table := findTable(s, tableName)
	require.NotNil(t, table, "table %s", tableName)

	col := table.Column(columnName)
	require.NotNil(t, col, "column %s.%s", tableName, columnName)
	assert.True(t, col.IsUnique, "expected %s.%s to be unique", tableName, columnName)
}

// verifyForeignKey checks that a foreign key exists with the given delete rule
func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, sourceColumn, targetTable, onDelete string) {
	t.Helper()

	table := findTable(s, tableName)
	require.NotNil(t, table, "table %s", tableName)

	for _, rel := range table.Relations {
		if rel.TargetTable == targetTable && rel.SourceColumn == sourceColumn {
			assert.Equal(t, onDelete, rel.OnDelete, "ON DELETE rule of %s.%s", tableName, sourceColumn)
			return
		}
	}

	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, s *schema.Schema, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := findTable(s, tableName)
	require.NotNil(t, table, "table %s", tableName)

	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			assert.Equal(t, expectedColumns, idx.Columns, "columns of index %s", indexName)
			return
		}
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}

// findTable is a helper function to find a table by name in the schema
func findTable(s *schema.Schema, tableName string) *schema.Table {
	return s.Table(tableName)
}
