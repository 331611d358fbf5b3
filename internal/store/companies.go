package store

import (
	"context"
	"fmt"

	"github.com/tordrt/cyberdisclosure/internal/db"
	"github.com/tordrt/cyberdisclosure/internal/models"
)

const companyColumns = `company_id, ticker, company_name, sector, governance_score, created_at`

// CreateCompany inserts c and sets its ID
func (s *Store) CreateCompany(ctx context.Context, c *models.Company) error {
	id, err := s.insert(ctx,
		`INSERT INTO companies (ticker, company_name, sector, governance_score) VALUES (?, ?, ?, ?)`,
		"company_id", c.Ticker, c.Name, c.Sector, c.GovernanceScore)
	if err != nil {
		return fmt.Errorf("failed to create company %s: %w", c.Ticker, err)
	}
	c.ID = id
	return nil
}

// GetCompany returns the company with the given ID
func (s *Store) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	var c models.Company
	if err := s.get(ctx, &c, `SELECT `+companyColumns+` FROM companies WHERE company_id = ?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// CompanyByTicker returns the company with the given ticker
func (s *Store) CompanyByTicker(ctx context.Context, ticker string) (*models.Company, error) {
	var c models.Company
	if err := s.get(ctx, &c, `SELECT `+companyColumns+` FROM companies WHERE ticker = ?`, ticker); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCompanies returns every company ordered by ticker
func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := s.selectAll(ctx, &companies, `SELECT `+companyColumns+` FROM companies ORDER BY ticker`); err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// DeleteCompany removes a company. Its prices, filings and incidents are
// removed by the database through ON DELETE CASCADE.
func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, s.q.Rebind(`DELETE FROM companies WHERE company_id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete company %d: %w", id, db.ClassifyError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
