package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/cyberdisclosure/internal/db"
	"github.com/tordrt/cyberdisclosure/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	client, err := db.NewSQLiteClient(ctx, filepath.Join(t.TempDir(), "dataset.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, db.Migrate(ctx, client))
	return New(client)
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func createCompany(t *testing.T, s *Store, ticker string) *models.Company {
	t.Helper()
	c := &models.Company{Ticker: ticker, Name: ticker + " Inc.", Sector: ptr("Technology")}
	require.NoError(t, s.CreateCompany(context.Background(), c))
	return c
}

func TestCreateCompany(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &models.Company{Ticker: "AAPL", Name: "Apple Inc.", Sector: ptr("Technology"), GovernanceScore: ptr(8.5)}
	require.NoError(t, s.CreateCompany(ctx, c))
	assert.NotZero(t, c.ID)

	got, err := s.CompanyByTicker(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Apple Inc.", got.Name)
	require.NotNil(t, got.GovernanceScore)
	assert.InDelta(t, 8.5, *got.GovernanceScore, 1e-9)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCompanyConstraints(t *testing.T) {
	tests := []struct {
		name    string
		company models.Company
		kind    db.ConstraintKind
	}{
		{"lowercase ticker", models.Company{Ticker: "aapl", Name: "Apple"}, db.Check},
		{"digits in ticker", models.Company{Ticker: "A1", Name: "A"}, db.Check},
		{"empty ticker", models.Company{Ticker: "", Name: "Nobody"}, db.Check},
		{"ticker too long", models.Company{Ticker: "ABCDEFGHIJK", Name: "Long"}, db.Check},
		{"governance above ten", models.Company{Ticker: "GOV", Name: "Gov", GovernanceScore: ptr(10.5)}, db.Check},
		{"negative governance", models.Company{Ticker: "NEG", Name: "Neg", GovernanceScore: ptr(-0.1)}, db.Check},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			c := tt.company
			err := s.CreateCompany(context.Background(), &c)
			require.Error(t, err)
			assert.True(t, db.IsConstraint(err, tt.kind), "got %v", err)
		})
	}
}

func TestDuplicateTicker(t *testing.T) {
	s := newTestStore(t)
	createCompany(t, s, "MSFT")

	err := s.CreateCompany(context.Background(), &models.Company{Ticker: "MSFT", Name: "Again"})
	require.Error(t, err)
	assert.True(t, db.IsConstraint(err, db.Unique))
}

func TestGetCompanyNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCompany(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CompanyByTicker(context.Background(), "NONE")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteCompany(context.Background(), 42), ErrNotFound)
}

func TestStockPriceConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := createCompany(t, s, "AAPL")

	ok := &models.StockPrice{CompanyID: c.ID, Date: day("2024-01-02"), ClosingPrice: 185.64, TradingVolume: 82488700}
	require.NoError(t, s.InsertStockPrice(ctx, ok))

	err := s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: c.ID, Date: day("2024-01-03"), ClosingPrice: -5, TradingVolume: 1})
	assert.True(t, db.IsConstraint(err, db.Check), "negative price: %v", err)

	err = s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: c.ID, Date: day("2024-01-03"), ClosingPrice: 0, TradingVolume: 1})
	assert.True(t, db.IsConstraint(err, db.Check), "zero price: %v", err)

	err = s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: c.ID, Date: day("2024-01-03"), ClosingPrice: 1, TradingVolume: -1})
	assert.True(t, db.IsConstraint(err, db.Check), "negative volume: %v", err)

	err = s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: c.ID, Date: day("2024-01-02"), ClosingPrice: 186, TradingVolume: 1})
	assert.True(t, db.IsConstraint(err, db.Unique), "duplicate day: %v", err)

	err = s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: c.ID + 100, Date: day("2024-01-02"), ClosingPrice: 1, TradingVolume: 1})
	assert.True(t, db.IsConstraint(err, db.ForeignKey), "unknown company: %v", err)
}

func TestFilingConstraints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := createCompany(t, s, "MSFT")

	f := &models.Filing{CompanyID: c.ID, FilingDate: day("2024-01-19"), FilingType: "8-K", CybersecurityMention: true, DisclosureSpeed: ptr(models.SpeedImmediate)}
	require.NoError(t, s.InsertFiling(ctx, f))

	err := s.InsertFiling(ctx, &models.Filing{CompanyID: c.ID, FilingDate: day("2024-01-19"), FilingType: "S-1"})
	assert.True(t, db.IsConstraint(err, db.Check), "filing type: %v", err)

	err = s.InsertFiling(ctx, &models.Filing{CompanyID: c.ID, FilingDate: day("2024-01-19"), FilingType: "10-K", DisclosureSpeed: ptr("Slow")})
	assert.True(t, db.IsConstraint(err, db.Check), "disclosure speed: %v", err)

	filings, err := s.FilingsForCompany(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, filings, 1)
	assert.Equal(t, "MSFT", filings[0].Ticker)
	assert.True(t, filings[0].CybersecurityMention)
	require.NotNil(t, filings[0].DisclosureSpeed)
	assert.Equal(t, models.SpeedImmediate, *filings[0].DisclosureSpeed)
	assert.True(t, filings[0].FilingDate.Equal(day("2024-01-19")))
}

func TestIncidentDisclosureOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := createCompany(t, s, "UNH")

	sameDay := &models.Incident{CompanyID: c.ID, BreachDate: day("2024-02-21"), DisclosureDate: ptr(day("2024-02-21"))}
	require.NoError(t, s.InsertIncident(ctx, sameDay))

	undisclosed := &models.Incident{CompanyID: c.ID, BreachDate: day("2024-03-01")}
	require.NoError(t, s.InsertIncident(ctx, undisclosed))

	err := s.InsertIncident(ctx, &models.Incident{CompanyID: c.ID, BreachDate: day("2024-02-21"), DisclosureDate: ptr(day("2024-02-20"))})
	assert.True(t, db.IsConstraint(err, db.Check), "disclosure before breach: %v", err)

	err = s.InsertIncident(ctx, &models.Incident{CompanyID: c.ID, BreachDate: day("2024-02-21"), RecordsAffected: ptr(int64(-1))})
	assert.True(t, db.IsConstraint(err, db.Check), "negative records: %v", err)

	incidents, err := s.IncidentsForCompany(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Nil(t, incidents[1].DisclosureDate)
}

func TestDeleteCompanyCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := createCompany(t, s, "AAPL")
	other := createCompany(t, s, "MSFT")

	require.NoError(t, s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: c.ID, Date: day("2024-01-02"), ClosingPrice: 10, TradingVolume: 1}))
	require.NoError(t, s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: other.ID, Date: day("2024-01-02"), ClosingPrice: 10, TradingVolume: 1}))
	require.NoError(t, s.InsertFiling(ctx, &models.Filing{CompanyID: c.ID, FilingDate: day("2024-01-05"), FilingType: "10-Q"}))
	require.NoError(t, s.InsertIncident(ctx, &models.Incident{CompanyID: c.ID, BreachDate: day("2024-01-01")}))

	require.NoError(t, s.DeleteCompany(ctx, c.ID))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, st := range stats {
		counts[st.Table] = st.Rows
	}
	assert.Equal(t, map[string]int64{
		"companies":               1,
		"stock_prices":            1,
		"sec_filings":             0,
		"cybersecurity_incidents": 0,
	}, counts)
}

func TestEventWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := createCompany(t, s, "AAPL")

	for i, d := range []string{"2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-07", "2024-01-08"} {
		require.NoError(t, s.InsertStockPrice(ctx, &models.StockPrice{
			CompanyID: c.ID, Date: day(d), ClosingPrice: 100 + float64(i), TradingVolume: 1000,
		}))
	}

	window, err := s.EventWindow(ctx, c.ID, day("2024-01-04"), 3)
	require.NoError(t, err)

	var dates []string
	var events int
	for _, p := range window {
		dates = append(dates, p.Date.Format(time.DateOnly))
		if p.EventDay {
			events++
			assert.Equal(t, "2024-01-04", p.Date.Format(time.DateOnly))
		}
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-07"}, dates)
	assert.Equal(t, 1, events)

	_, err = s.EventWindow(ctx, c.ID, day("2024-01-04"), -1)
	assert.Error(t, err)
}

func TestBetweenQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createCompany(t, s, "AAPL")
	m := createCompany(t, s, "MSFT")

	require.NoError(t, s.InsertFiling(ctx, &models.Filing{CompanyID: a.ID, FilingDate: day("2023-12-31"), FilingType: "10-K"}))
	require.NoError(t, s.InsertFiling(ctx, &models.Filing{CompanyID: m.ID, FilingDate: day("2024-01-19"), FilingType: "8-K"}))
	require.NoError(t, s.InsertIncident(ctx, &models.Incident{CompanyID: m.ID, BreachDate: day("2024-01-12")}))
	require.NoError(t, s.InsertIncident(ctx, &models.Incident{CompanyID: a.ID, BreachDate: day("2023-06-01")}))

	filings, err := s.FilingsBetween(ctx, day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, filings, 1)
	assert.Equal(t, "MSFT", filings[0].Ticker)

	incidents, err := s.IncidentsBetween(ctx, day("2024-01-12"), day("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, m.ID, incidents[0].CompanyID)
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Store) error {
		if err := tx.CreateCompany(ctx, &models.Company{Ticker: "TSLA", Name: "Tesla"}); err != nil {
			return err
		}
		return tx.CreateCompany(ctx, &models.Company{Ticker: "bad", Name: "Bad"})
	})
	require.Error(t, err)
	assert.True(t, db.IsConstraint(err, db.Check))

	_, err = s.CompanyByTicker(ctx, "TSLA")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx *Store) error {
		return tx.CreateCompany(ctx, &models.Company{Ticker: "TSLA", Name: "Tesla"})
	}))
	companies, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
}

func TestStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 4)
	for _, st := range stats {
		assert.Zero(t, st.Rows)
		assert.Nil(t, st.LastCreated)
	}
}

func TestAsTime(t *testing.T) {
	ts, err := asTime("2024-05-01 10:11:12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 11, 12, 0, time.UTC), *ts)

	ts, err = asTime([]byte("2024-05-01 10:11:12"))
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())

	ts, err = asTime(nil)
	require.NoError(t, err)
	assert.Nil(t, ts)

	_, err = asTime("yesterday")
	assert.Error(t, err)
}

func TestAcceptanceScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	aapl := &models.Company{Ticker: "AAPL", Name: "Apple Inc."}
	require.NoError(t, s.CreateCompany(ctx, aapl))

	err := s.CreateCompany(ctx, &models.Company{Ticker: "aapl", Name: "Apple Inc."})
	assert.True(t, db.IsConstraint(err, db.Check), "lowercase ticker: %v", err)

	err = s.InsertStockPrice(ctx, &models.StockPrice{CompanyID: aapl.ID, Date: day("2023-06-01"), ClosingPrice: -5})
	assert.True(t, db.IsConstraint(err, db.Check), "negative price: %v", err)

	err = s.InsertIncident(ctx, &models.Incident{
		CompanyID:      aapl.ID,
		BreachDate:     day("2023-06-01"),
		DisclosureDate: ptr(day("2023-05-01")),
	})
	assert.True(t, db.IsConstraint(err, db.Check), "disclosure before breach: %v", err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	for _, st := range stats {
		want := int64(0)
		if st.Table == "companies" {
			want = 1
		}
		assert.Equal(t, want, st.Rows, st.Table)
	}
}
