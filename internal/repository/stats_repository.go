package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lostfound-api/internal/models"
)

// StatsRepository runs the aggregate queries behind the admin dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Totals counts users, items and scans.
func (r *StatsRepository) Totals(ctx context.Context) (models.StatsTotals, error) {
	const query = `SELECT (SELECT COUNT(*) FROM users) AS users, (SELECT COUNT(*) FROM items) AS items, (SELECT COUNT(*) FROM scans) AS scans`
	var totals models.StatsTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return models.StatsTotals{}, fmt.Errorf("stats totals: %w", err)
	}
	return totals, nil
}

// ItemsByStatus groups items by status.
func (r *StatsRepository) ItemsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM items GROUP BY status`
	counts := []models.StatusCount{}
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("stats items by status: %w", err)
	}
	return counts, nil
}

// ItemsByCategory groups items by category, largest first.
func (r *StatsRepository) ItemsByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	const query = `SELECT category, COUNT(*) AS count FROM items GROUP BY category ORDER BY count DESC, category ASC`
	counts := []models.CategoryCount{}
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("stats items by category: %w", err)
	}
	return counts, nil
}

// RecentScans returns the latest scans with their item's name and code.
func (r *StatsRepository) RecentScans(ctx context.Context, limit int) ([]models.RecentScan, error) {
	const query = `SELECT s.id, s.item_id, COALESCE(i.qr_code, '') AS qr_code, COALESCE(i.name, '') AS item_name, s.scanner_name, s.scanned_at FROM scans s LEFT JOIN items i ON i.id = s.item_id ORDER BY s.scanned_at DESC LIMIT $1`
	scans := []models.RecentScan{}
	if err := r.db.SelectContext(ctx, &scans, query, limit); err != nil {
		return nil, fmt.Errorf("stats recent scans: %w", err)
	}
	return scans, nil
}

// ScansPerDay buckets scans since the given instant by UTC day. Days without
// scans are absent.
func (r *StatsRepository) ScansPerDay(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	const query = `SELECT TO_CHAR(DATE_TRUNC('day', scanned_at AT TIME ZONE 'UTC'), 'YYYY-MM-DD') AS day, COUNT(*) AS count FROM scans WHERE scanned_at >= $1 GROUP BY day ORDER BY day ASC`
	counts := []models.DailyCount{}
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("stats scans per day: %w", err)
	}
	return counts, nil
}
