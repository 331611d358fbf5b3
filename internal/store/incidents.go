package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/cyberdisclosure/internal/models"
)

const incidentSelect = `
	SELECT i.incident_id, i.company_id, c.ticker, i.breach_date, i.disclosure_date,
	       i.incident_type, i.records_affected, i.created_at
	FROM cybersecurity_incidents i
	JOIN companies c ON c.company_id = i.company_id`

// InsertIncident inserts inc and sets its ID
func (s *Store) InsertIncident(ctx context.Context, inc *models.Incident) error {
	inc.BreachDate = models.Date(inc.BreachDate)
	if inc.DisclosureDate != nil {
		d := models.Date(*inc.DisclosureDate)
		inc.DisclosureDate = &d
	}

	id, err := s.insert(ctx,
		`INSERT INTO cybersecurity_incidents (company_id, breach_date, disclosure_date, incident_type, records_affected) VALUES (?, ?, ?, ?, ?)`,
		"incident_id", inc.CompanyID, inc.BreachDate, inc.DisclosureDate, inc.IncidentType, inc.RecordsAffected)
	if err != nil {
		return fmt.Errorf("failed to insert incident for company %d: %w", inc.CompanyID, err)
	}
	inc.ID = id
	return nil
}

// IncidentsForCompany returns a company's incidents ordered by breach date
func (s *Store) IncidentsForCompany(ctx context.Context, companyID int64) ([]models.Incident, error) {
	var incidents []models.Incident
	if err := s.selectAll(ctx, &incidents, incidentSelect+` WHERE i.company_id = ? ORDER BY i.breach_date, i.incident_id`, companyID); err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	return incidents, nil
}

// IncidentsBetween returns all incidents whose breach date lies between from
// and to inclusive
func (s *Store) IncidentsBetween(ctx context.Context, from, to time.Time) ([]models.Incident, error) {
	var incidents []models.Incident
	err := s.selectAll(ctx, &incidents, incidentSelect+` WHERE i.breach_date >= ? AND i.breach_date <= ? ORDER BY i.breach_date, i.incident_id`,
		models.Date(from), models.Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	return incidents, nil
}
