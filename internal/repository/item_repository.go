package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lostfound-api/internal/models"
)

const itemColumns = `id, owner_id, qr_code, name, category, description, image, custom_fields, status, created_at, updated_at`

// ItemRepository persists registered items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts the item. A colliding scan code yields ErrDuplicateQRCode
// so the caller can retry with a fresh candidate.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.CustomFields == nil {
		item.CustomFields = models.CustomFields{}
	}

	const query = `INSERT INTO items (id, owner_id, qr_code, name, category, description, image, custom_fields, status, created_at, updated_at) VALUES (:id, :owner_id, :qr_code, :name, :category, :description, :image, :custom_fields, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateQRCode
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// FindByID returns an item by its internal id.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.Item, error) {
	const query = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if isMalformedID(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find item by id: %w", err)
	}
	return &item, nil
}

// FindByQRCode resolves a scan code to its item.
func (r *ItemRepository) FindByQRCode(ctx context.Context, code string) (*models.Item, error) {
	const query = `SELECT ` + itemColumns + ` FROM items WHERE qr_code = $1`
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find item by qr code: %w", err)
	}
	return &item, nil
}

// List returns a page of items and the total matching count.
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	baseQuery := `FROM items WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", itemColumns, baseQuery, pageSize, offset)
	items := []models.Item{}
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		if isMalformedID(err) {
			return []models.Item{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list items: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	return items, total, nil
}

// Update writes the mutable fields. owner_id and qr_code are never touched.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE items SET name = :name, category = :category, description = :description, image = :image, custom_fields = :custom_fields, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a single item.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListIDsByOwner returns the ids of every item owned by ownerID.
func (r *ItemRepository) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM items WHERE owner_id = $1`, ownerID); err != nil {
		return nil, fmt.Errorf("list item ids by owner: %w", err)
	}
	return ids, nil
}

// ListImagesByOwner returns stored image references of an owner's items.
func (r *ItemRepository) ListImagesByOwner(ctx context.Context, ownerID string) ([]string, error) {
	images := []string{}
	if err := r.db.SelectContext(ctx, &images, `SELECT image FROM items WHERE owner_id = $1 AND image IS NOT NULL`, ownerID); err != nil {
		return nil, fmt.Errorf("list item images by owner: %w", err)
	}
	return images, nil
}

// DeleteByOwner removes every item of an owner and returns how many went.
func (r *ItemRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete items by owner: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
