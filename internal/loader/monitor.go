package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/tordrt/cyberdisclosure/internal/models"
	"github.com/tordrt/cyberdisclosure/internal/store"
)

// Thresholds bound what the monitor considers healthy. Zero values disable
// the corresponding check.
type Thresholds struct {
	MinRecords int64
	MaxRecords int64
	MaxAge     time.Duration
}

// Alert is one failed monitoring check
type Alert struct {
	Table   string
	Check   string
	Message string
}

func (a Alert) String() string {
	return fmt.Sprintf("%s: %s", a.Table, a.Message)
}

// Monitor checks the loaded tables against thresholds
type Monitor struct {
	store      *store.Store
	thresholds Thresholds
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewMonitor creates a monitor reading through st
func NewMonitor(st *store.Store, thresholds Thresholds, log *zap.SugaredLogger) *Monitor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Monitor{store: st, thresholds: thresholds, log: log, now: time.Now}
}

// Check reads table statistics and returns them with every alert raised.
// Alerts are also logged as warnings.
func (m *Monitor) Check(ctx context.Context) ([]models.TableStats, []Alert, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read table statistics: %w", err)
	}

	alerts := append(CheckRecordCounts(stats, m.thresholds), CheckFreshness(stats, m.thresholds.MaxAge, m.now())...)
	for _, a := range alerts {
		m.log.Warnw("monitoring alert", "table", a.Table, "check", a.Check, "message", a.Message)
	}
	return stats, alerts, nil
}

// CheckRecordCounts flags tables whose row count is outside the bounds
func CheckRecordCounts(stats []models.TableStats, t Thresholds) []Alert {
	var alerts []Alert
	for _, s := range stats {
		if t.MinRecords > 0 && s.Rows < t.MinRecords {
			alerts = append(alerts, Alert{Table: s.Table, Check: "record_count",
				Message: fmt.Sprintf("%s rows, expected at least %s", humanize.Comma(s.Rows), humanize.Comma(t.MinRecords))})
		}
		if t.MaxRecords > 0 && s.Rows > t.MaxRecords {
			alerts = append(alerts, Alert{Table: s.Table, Check: "record_count",
				Message: fmt.Sprintf("%s rows, expected at most %s", humanize.Comma(s.Rows), humanize.Comma(t.MaxRecords))})
		}
	}
	return alerts
}

// CheckFreshness flags tables whose newest row is older than maxAge. Empty
// tables are left to the record count check.
func CheckFreshness(stats []models.TableStats, maxAge time.Duration, now time.Time) []Alert {
	if maxAge <= 0 {
		return nil
	}

	var alerts []Alert
	for _, s := range stats {
		if s.LastCreated == nil {
			continue
		}
		if age := now.Sub(*s.LastCreated); age > maxAge {
			alerts = append(alerts, Alert{Table: s.Table, Check: "freshness",
				Message: fmt.Sprintf("last row loaded %s", humanize.RelTime(*s.LastCreated, now, "ago", "from now"))})
		}
	}
	return alerts
}
