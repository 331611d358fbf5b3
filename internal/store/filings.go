package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
)

const filingSelect = `
	SELECT f.filing_id, f.company_id, c.ticker, f.filing_date, f.filing_type,
	       f.cybersecurity_mention, f.disclosure_speed, f.created_at
	FROM sec_filings f
	JOIN companies c ON c.company_id = f.company_id`

// InsertFiling inserts f and sets its ID
func (s *Store) InsertFiling(ctx context.Context, f *models.Filing) error {
	f.FilingDate = models.Date(f.FilingDate)
	id, err := s.insert(ctx,
		`INSERT INTO sec_filings (company_id, filing_date, filing_type, cybersecurity_mention, disclosure_speed) VALUES (?, ?, ?, ?, ?)`,
		"filing_id", f.CompanyID, f.FilingDate, f.FilingType, f.CybersecurityMention, f.DisclosureSpeed)
	if err != nil {
		return fmt.Errorf("failed to insert %s filing for company %d: %w", f.FilingType, f.CompanyID, err)
	}
	f.ID = id
	return nil
}

// FilingsForCompany returns a company's filings ordered by filing date
func (s *Store) FilingsForCompany(ctx context.Context, companyID int64) ([]models.Filing, error) {
	var filings []models.Filing
	if err := s.selectAll(ctx, &filings, filingSelect+` WHERE f.company_id = ? ORDER BY f.filing_date, f.filing_id`, companyID); err != nil {
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	return filings, nil
}

// FilingsBetween returns all filings dated between from and to inclusive
func (s *Store) FilingsBetween(ctx context.Context, from, to time.Time) ([]models.Filing, error) {
	var filings []models.Filing
	err := s.selectAll(ctx, &filings, filingSelect+` WHERE f.filing_date >= ? AND f.filing_date <= ? ORDER BY f.filing_date, f.filing_id`,
		models.Date(from), models.Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	return filings, nil
}
