package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/identifier"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/repository"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

const (
	minQRCodeSize = 64
	maxQRCodeSize = 1024
)

type itemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id string) (*models.Item, error)
	FindByQRCode(ctx context.Context, code string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id string) error
}

type scanPurger interface {
	DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ItemConfig tunes identifier issuance and deletion behaviour.
type ItemConfig struct {
	ScanBaseURL           string
	MaxAttempts           int
	DeleteCascadesToScans bool
	QRCodeSize            int
}

// ItemService owns the item lifecycle.
type ItemService struct {
	repo      itemRepository
	scans     scanPurger
	audit     auditWriter
	generator identifier.Generator
	images    *ImageService
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ItemConfig
}

// NewItemService constructs an ItemService.
func NewItemService(
	repo itemRepository,
	scans scanPurger,
	audit auditWriter,
	generator identifier.Generator,
	images *ImageService,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config ItemConfig,
) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if generator == nil {
		generator = identifier.NewGenerator()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.QRCodeSize <= 0 {
		config.QRCodeSize = 256
	}
	config.ScanBaseURL = strings.TrimRight(config.ScanBaseURL, "/")
	return &ItemService{
		repo:      repo,
		scans:     scans,
		audit:     audit,
		generator: generator,
		images:    images,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Create registers an item for the caller and mints its scan identifier.
// Identifier collisions are retried with a fresh candidate.
func (s *ItemService) Create(ctx context.Context, caller *access.Caller, req models.CreateItemRequest) (*models.Item, error) {
	if caller == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Image = trimmedOrNil(req.Image)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err)
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, appErrors.Validation(err.Error())
	}
	if err := req.CustomFields.Validate(); err != nil {
		return nil, appErrors.Validation(err.Error())
	}

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		item := &models.Item{
			ID:           uuid.NewString(),
			OwnerID:      caller.ID,
			QRCode:       s.generator.Generate(),
			Name:         req.Name,
			Category:     category,
			Description:  req.Description,
			Image:        req.Image,
			CustomFields: req.CustomFields,
			Status:       models.ItemStatusActive,
		}

		err := s.repo.Create(ctx, item)
		if err == nil {
			s.metrics.IncItemsCreated()
			s.cache.Invalidate(ctx, statsCachePattern)
			s.logger.Info("item registered", zap.String("item_id", item.ID), zap.String("owner_id", item.OwnerID))
			s.decorate(item)
			return item, nil
		}
		if !errors.Is(err, repository.ErrDuplicateQRCode) {
			return nil, appErrors.Internal(err, "failed to create item")
		}
		s.metrics.IncIdentifierCollision()
		s.logger.Warn("scan identifier collision, retrying", zap.Int("attempt", attempt))
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate unique scan code")
}

// Get returns an item to its owner or an administrator.
func (s *ItemService) Get(ctx context.Context, caller *access.Caller, id string) (*models.Item, error) {
	item, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	s.decorate(item)
	return item, nil
}

// GetPublic resolves a scan identifier to the finder-safe projection.
// Malformed identifiers are rejected without touching storage.
func (s *ItemService) GetPublic(ctx context.Context, code string) (*models.ItemPublic, error) {
	if !identifier.IsWellFormed(code) {
		return nil, appErrors.Validation("qrCode: malformed identifier")
	}
	item, err := s.repo.FindByQRCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to load item")
	}
	item.ImageURL = s.images.URL(item.ID, item.Image)
	public := item.Public()
	return &public, nil
}

// Update applies a partial patch. The identifier and owner cannot change.
func (s *ItemService) Update(ctx context.Context, caller *access.Caller, id string, req models.UpdateItemRequest) (*models.Item, error) {
	if present(req.QRCode) {
		return nil, appErrors.Validation("qrCode: cannot be changed")
	}
	if present(req.OwnerID) {
		return nil, appErrors.Validation("ownerId: cannot be changed")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err)
	}

	item, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	previousImage := item.Image
	if err := s.applyPatch(item, req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to update item")
	}

	if previousImage != nil && !sameRef(previousImage, item.Image) {
		s.images.Remove(ctx, *previousImage)
	}
	s.cache.Invalidate(ctx, statsCachePattern)
	s.decorate(item)
	return item, nil
}

func (s *ItemService) applyPatch(item *models.Item, req models.UpdateItemRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return appErrors.Validation("name: is required")
		}
		item.Name = name
	}
	if req.Category != nil {
		category, err := models.ParseCategory(*req.Category)
		if err != nil {
			return appErrors.Validation(err.Error())
		}
		item.Category = category
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Image != nil {
		ref := strings.TrimSpace(*req.Image)
		switch {
		case ref == "":
			item.Image = nil
		case s.validator.Var(ref, "url") != nil:
			return appErrors.Validation("image: must be a valid URL")
		default:
			item.Image = &ref
		}
	}
	if req.CustomFields != nil {
		if err := req.CustomFields.Validate(); err != nil {
			return appErrors.Validation(err.Error())
		}
		item.CustomFields = *req.CustomFields
	}
	if req.Status != nil {
		status, aliased, err := models.ParseItemStatus(*req.Status)
		if err != nil {
			return appErrors.Validation(err.Error())
		}
		if aliased {
			s.logger.Warn("deprecated item status alias used", zap.String("item_id", item.ID), zap.String("status", *req.Status))
		}
		item.Status = status
	}
	return nil
}

// Delete removes an item. Its scans are kept unless the service is
// configured to cascade.
func (s *ItemService) Delete(ctx context.Context, caller *access.Caller, id string, meta models.RequestMeta) error {
	item, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return err
	}

	if s.config.DeleteCascadesToScans {
		if _, err := s.scans.DeleteByItemIDs(ctx, []string{item.ID}); err != nil {
			return appErrors.Internal(err, "failed to delete item scans")
		}
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return appErrors.Internal(err, "failed to delete item")
	}

	if item.Image != nil {
		s.images.Remove(ctx, *item.Image)
	}
	s.cache.Invalidate(ctx, statsCachePattern)

	oldPayload, _ := json.Marshal(map[string]interface{}{"qrCode": item.QRCode, "name": item.Name, "ownerId": item.OwnerID})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &caller.ID,
		Action:     models.AuditActionItemDelete,
		Resource:   "items",
		ResourceID: &item.ID,
		OldValues:  oldPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record item delete audit log", zap.Error(err))
	}
	return nil
}

// ListOwn lists the caller's items.
func (s *ItemService) ListOwn(ctx context.Context, caller *access.Caller, query models.ItemListQuery) ([]models.Item, *models.Pagination, error) {
	if caller == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	query.UserID = caller.ID
	return s.list(ctx, query)
}

// ListAll lists items across every account, optionally for one owner.
func (s *ItemService) ListAll(ctx context.Context, caller *access.Caller, query models.ItemListQuery) ([]models.Item, *models.Pagination, error) {
	if !caller.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	return s.list(ctx, query)
}

func (s *ItemService) list(ctx context.Context, query models.ItemListQuery) ([]models.Item, *models.Pagination, error) {
	filter := models.ItemFilter{OwnerID: strings.TrimSpace(query.UserID), Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status, aliased, err := models.ParseItemStatus(query.Status)
		if err != nil {
			return nil, nil, appErrors.Validation(err.Error())
		}
		if aliased {
			s.logger.Warn("deprecated item status alias used in filter", zap.String("status", query.Status))
		}
		filter.Status = &status
	}
	if query.Category != "" {
		category, err := models.ParseCategory(query.Category)
		if err != nil {
			return nil, nil, appErrors.Validation(err.Error())
		}
		filter.Category = &category
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list items")
	}
	for i := range items {
		s.decorate(&items[i])
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UploadImage replaces the item's photo with an uploaded file.
func (s *ItemService) UploadImage(ctx context.Context, caller *access.Caller, id string, data []byte) (*models.Item, error) {
	if s.images == nil {
		return nil, appErrors.Internal(errors.New("image storage not configured"), "image uploads are unavailable")
	}
	item, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	key, err := s.images.Store(item.ID, data)
	if err != nil {
		return nil, err
	}

	previous := item.Image
	item.Image = &key
	if err := s.repo.Update(ctx, item); err != nil {
		s.images.Remove(ctx, key)
		return nil, appErrors.Internal(err, "failed to attach image")
	}
	if previous != nil {
		s.images.Remove(ctx, *previous)
	}

	s.decorate(item)
	return item, nil
}

// QRCode renders the item's scan URL as a PNG. A zero size uses the default.
func (s *ItemService) QRCode(ctx context.Context, caller *access.Caller, id string, size int) ([]byte, error) {
	if size == 0 {
		size = s.config.QRCodeSize
	}
	if size < minQRCodeSize || size > maxQRCodeSize {
		return nil, appErrors.Validation(fmt.Sprintf("size: must be between %d and %d", minQRCodeSize, maxQRCodeSize))
	}

	item, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.ScanURL(item.QRCode), qrcode.Medium, size)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render qr code")
	}
	return png, nil
}

// ScanURL is the printable payload encoded into an item's barcode.
func (s *ItemService) ScanURL(code string) string {
	return s.config.ScanBaseURL + "/scan/" + code
}

// loadManaged fetches an item and requires Owner or Admin access to it.
func (s *ItemService) loadManaged(ctx context.Context, caller *access.Caller, id string) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Internal(err, "failed to load item")
	}
	if !access.Evaluate(caller, item.OwnerID).CanManage() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this item")
	}
	return item, nil
}

func (s *ItemService) decorate(item *models.Item) {
	item.ScanURL = s.ScanURL(item.QRCode)
	item.ImageURL = s.images.URL(item.ID, item.Image)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
