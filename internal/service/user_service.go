package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/models"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type ownedItemRepository interface {
	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	ListImagesByOwner(ctx context.Context, ownerID string) ([]string, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

// UserService handles administrative account management.
type UserService struct {
	repo      userRepository
	items     ownedItemRepository
	scans     scanPurger
	images    *ImageService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, items ownedItemRepository, scans scanPurger, images *ImageService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, items: items, scans: scans, images: images, cache: cache, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Validation("role: must be one of member, admin")
	}
	filter.Search = strings.TrimSpace(filter.Search)

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// Update modifies account attributes. Administrators cannot demote
// themselves.
func (s *UserService) Update(ctx context.Context, actor *access.Caller, id string, req models.UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err)
	}
	if actor.ID == id && req.Role != nil && *req.Role != models.RoleAdmin {
		return nil, appErrors.Validation("role: you cannot change your own role")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"name": user.Name, "role": user.Role, "emailConfirmed": user.EmailConfirmed})

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Validation("name: is required")
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = trimmedOrNil(req.Phone)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.EmailConfirmed != nil {
		user.EmailConfirmed = *req.EmailConfirmed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to update user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"name": user.Name, "role": user.Role, "emailConfirmed": user.EmailConfirmed})
	s.recordAudit(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	s.cache.Invalidate(ctx, statsCachePattern)

	return user, nil
}

// Delete removes an account together with its items and their scans. The
// steps run in dependency order: scans, items, account.
func (s *UserService) Delete(ctx context.Context, actor *access.Caller, id string, meta models.RequestMeta) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if actor.ID == id {
		return appErrors.Validation("id: you cannot delete your own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	itemIDs, err := s.items.ListIDsByOwner(ctx, user.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to list account items")
	}
	images, err := s.items.ListImagesByOwner(ctx, user.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to list account images")
	}

	scansRemoved, err := s.scans.DeleteByItemIDs(ctx, itemIDs)
	if err != nil {
		return appErrors.Internal(err, "failed to delete account scans")
	}
	itemsRemoved, err := s.items.DeleteByOwner(ctx, user.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to delete account items")
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to delete user")
	}

	for _, ref := range images {
		s.images.Remove(ctx, ref)
	}

	s.logger.Info("account deleted",
		zap.String("user_id", user.ID),
		zap.Int64("items_removed", itemsRemoved),
		zap.Int64("scans_removed", scansRemoved),
	)

	oldPayload, _ := json.Marshal(map[string]interface{}{"email": user.Email, "role": user.Role, "items": itemsRemoved, "scans": scansRemoved})
	s.recordAudit(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	s.cache.Invalidate(ctx, statsCachePattern)
	return nil
}

func (s *UserService) recordAudit(ctx context.Context, entry *models.AuditLog) {
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
