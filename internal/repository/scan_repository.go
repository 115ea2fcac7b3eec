package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lostfound-api/internal/models"
)

const scanColumns = `id, item_id, scanner_name, scanner_email, scanner_phone, latitude, longitude, address, message, scanned_at`

// ScanRepository is the append-only store of scan events.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository creates a new ScanRepository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create appends a scan in a single statement.
func (r *ScanRepository) Create(ctx context.Context, scan *models.Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now().UTC()
	}
	const query = `INSERT INTO scans (id, item_id, scanner_name, scanner_email, scanner_phone, latitude, longitude, address, message, scanned_at) VALUES (:id, :item_id, :scanner_name, :scanner_email, :scanner_phone, :latitude, :longitude, :address, :message, :scanned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, scan); err != nil {
		return fmt.Errorf("create scan: %w", err)
	}
	return nil
}

// ListByItem returns every scan of an item, newest first.
func (r *ScanRepository) ListByItem(ctx context.Context, itemID string) ([]models.Scan, error) {
	const query = `SELECT ` + scanColumns + ` FROM scans WHERE item_id = $1 ORDER BY scanned_at DESC, id DESC`
	scans := []models.Scan{}
	if err := r.db.SelectContext(ctx, &scans, query, itemID); err != nil {
		if isMalformedID(err) {
			return []models.Scan{}, nil
		}
		return nil, fmt.Errorf("list scans by item: %w", err)
	}
	return scans, nil
}

// DeleteByItemIDs removes the scans of the given items.
func (r *ScanRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM scans WHERE item_id = ANY($1)`, pq.Array(itemIDs))
	if err != nil {
		return 0, fmt.Errorf("delete scans by items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListForExport joins scans with their items. Scans whose item was removed
// are kept and carry empty item columns.
func (r *ScanRepository) ListForExport(ctx context.Context, filter models.ScanExportFilter) ([]models.ScanExportRow, error) {
	query := `SELECT s.id, s.item_id, s.scanner_name, s.scanner_email, s.scanner_phone, s.latitude, s.longitude, s.address, s.message, s.scanned_at, COALESCE(i.qr_code, '') AS qr_code, COALESCE(i.name, '') AS item_name FROM scans s LEFT JOIN items i ON i.id = s.item_id`
	var conditions []string
	var args []interface{}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.scanned_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.scanned_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 10000 {
		limit = 10000
	}
	query += fmt.Sprintf(" ORDER BY s.scanned_at DESC LIMIT %d", limit)

	rows := []models.ScanExportRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scans for export: %w", err)
	}
	return rows, nil
}
