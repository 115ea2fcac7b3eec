package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/identifier"
	"github.com/noah-isme/lostfound-api/internal/models"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/export"
)

type scanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	ListByItem(ctx context.Context, itemID string) ([]models.Scan, error)
	ListForExport(ctx context.Context, filter models.ScanExportFilter) ([]models.ScanExportRow, error)
}

type scanItemLookup interface {
	FindByID(ctx context.Context, id string) (*models.Item, error)
	FindByQRCode(ctx context.Context, code string) (*models.Item, error)
}

// ScanNotifier is told about every recorded scan.
type ScanNotifier interface {
	NotifyScan(item *models.Item, scan *models.Scan)
}

// ScanExport is a rendered scan export.
type ScanExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ScanService records finder scans and exposes them to owners.
type ScanService struct {
	repo      scanRepository
	items     scanItemLookup
	notifier  ScanNotifier
	images    *ImageService
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScanService constructs a ScanService. notifier may be nil.
func NewScanService(repo scanRepository, items scanItemLookup, notifier ScanNotifier, images *ImageService, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ScanService{
		repo:      repo,
		items:     items,
		notifier:  notifier,
		images:    images,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Record stores an anonymous finder scan. Errors never reveal anything about
// the owning account.
func (s *ScanService) Record(ctx context.Context, req models.RecordScanRequest) (*models.ScanRecordResult, error) {
	code := strings.TrimSpace(req.QRCode)
	if !identifier.IsWellFormed(code) {
		return nil, appErrors.Validation("qrCode: malformed identifier")
	}

	item, err := s.items.FindByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invalid QR code")
		}
		return nil, appErrors.Internal(err, "failed to resolve QR code")
	}

	req.ScannerName = trimmedOrNil(req.ScannerName)
	req.ScannerEmail = trimmedOrNil(req.ScannerEmail)
	req.ScannerPhone = trimmedOrNil(req.ScannerPhone)
	req.Message = trimmedOrNil(req.Message)
	if req.ScannerName == nil && req.ScannerEmail == nil && req.ScannerPhone == nil {
		return nil, appErrors.Validation("at least one contact method is required")
	}
	if req.Location != nil {
		req.Location.Address = trimmedOrNil(req.Location.Address)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err)
	}

	scan := &models.Scan{
		ID:           uuid.NewString(),
		ItemID:       item.ID,
		ScannerName:  req.ScannerName,
		ScannerEmail: req.ScannerEmail,
		ScannerPhone: req.ScannerPhone,
		Message:      req.Message,
	}
	if req.Location != nil {
		scan.Latitude = req.Location.Latitude
		scan.Longitude = req.Location.Longitude
		scan.Address = req.Location.Address
	}

	if err := s.repo.Create(ctx, scan); err != nil {
		return nil, appErrors.Internal(err, "failed to record scan")
	}

	s.metrics.IncScansRecorded()
	s.cache.Invalidate(ctx, statsCachePattern)
	if s.notifier != nil {
		s.notifier.NotifyScan(item, scan)
	}

	item.ImageURL = s.images.URL(item.ID, item.Image)
	return &models.ScanRecordResult{Scan: scan, Item: item.Public()}, nil
}

// ListForItem returns an item's scans, newest first, to its owner or an
// administrator.
func (s *ScanService) ListForItem(ctx context.Context, caller *access.Caller, itemID string) ([]models.Scan, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to load item")
	}
	if !access.Evaluate(caller, item.OwnerID).CanManage() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this item")
	}

	scans, err := s.repo.ListByItem(ctx, item.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list scans")
	}
	return scans, nil
}

// Export renders scans across all items for administrators.
func (s *ScanService) Export(ctx context.Context, caller *access.Caller, format string, filter models.ScanExportFilter) (*ScanExport, error) {
	if !caller.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Validation("format: must be csv or pdf")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Validation("to: must not be before from")
	}

	rows, err := s.repo.ListForExport(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load scans")
	}

	dataset := export.Dataset{
		Title:   "Scan events",
		Headers: []string{"scanned_at", "qr_code", "item", "scanner_name", "scanner_email", "scanner_phone", "latitude", "longitude", "address", "message"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"scanned_at":    row.ScannedAt.UTC().Format(time.RFC3339),
			"qr_code":       row.QRCode,
			"item":          row.ItemName,
			"scanner_name":  deref(row.ScannerName),
			"scanner_email": deref(row.ScannerEmail),
			"scanner_phone": deref(row.ScannerPhone),
			"latitude":      formatCoordinate(row.Latitude),
			"longitude":     formatCoordinate(row.Longitude),
			"address":       deref(row.Address),
			"message":       deref(row.Message),
		})
	}

	body, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("scan export generated", zap.String("format", exporter.Extension()), zap.Int("rows", len(rows)))

	return &ScanExport{
		Filename:    fmt.Sprintf("scans-%s.%s", time.Now().UTC().Format("20060102-150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatCoordinate(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}
