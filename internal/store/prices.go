package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
)

const priceColumns = `p.price_id, p.company_id, c.ticker, p.date, p.closing_price, p.trading_volume, p.returns, p.created_at`

// InsertStockPrice inserts p and sets its ID. The date is truncated to a
// calendar day.
func (s *Store) InsertStockPrice(ctx context.Context, p *models.StockPrice) error {
	p.Date = models.Date(p.Date)
	id, err := s.insert(ctx,
		`INSERT INTO stock_prices (company_id, date, closing_price, trading_volume, returns) VALUES (?, ?, ?, ?, ?)`,
		"price_id", p.CompanyID, p.Date, p.ClosingPrice, p.TradingVolume, p.Returns)
	if err != nil {
		return fmt.Errorf("failed to insert price for company %d on %s: %w", p.CompanyID, p.Date.Format(time.DateOnly), err)
	}
	p.ID = id
	return nil
}

// PriceSeries returns a company's prices between from and to inclusive,
// ordered by date
func (s *Store) PriceSeries(ctx context.Context, companyID int64, from, to time.Time) ([]models.StockPrice, error) {
	var prices []models.StockPrice
	err := s.selectAll(ctx, &prices, `
		SELECT `+priceColumns+`
		FROM stock_prices p
		JOIN companies c ON c.company_id = p.company_id
		WHERE p.company_id = ? AND p.date >= ? AND p.date <= ?
		ORDER BY p.date`,
		companyID, models.Date(from), models.Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	return prices, nil
}

// EventWindow returns the company's prices within days calendar days of
// eventDate, flagging the row that falls on the event date itself
func (s *Store) EventWindow(ctx context.Context, companyID int64, eventDate time.Time, days int) ([]models.WindowPrice, error) {
	if days < 0 {
		return nil, fmt.Errorf("window must be non-negative, got %d", days)
	}

	event := models.Date(eventDate)
	prices, err := s.PriceSeries(ctx, companyID, event.AddDate(0, 0, -days), event.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	window := make([]models.WindowPrice, len(prices))
	for i, p := range prices {
		window[i] = models.WindowPrice{StockPrice: p, EventDay: models.Date(p.Date).Equal(event)}
	}
	return window, nil
}
