package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemStatus is the lifecycle state of an item.
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusFound    ItemStatus = "found"
	ItemStatusInactive ItemStatus = "inactive"

	// itemStatusLostAlias is accepted on input for older clients and stored
	// as active.
	itemStatusLostAlias = "lost"
)

// ParseItemStatus canonicalises raw input. aliased is true when the
// deprecated "lost" spelling was supplied.
func ParseItemStatus(raw string) (status ItemStatus, aliased bool, err error) {
	switch ItemStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ItemStatusActive:
		return ItemStatusActive, false, nil
	case ItemStatusFound:
		return ItemStatusFound, false, nil
	case ItemStatusInactive:
		return ItemStatusInactive, false, nil
	case itemStatusLostAlias:
		return ItemStatusActive, true, nil
	default:
		return "", false, fmt.Errorf("status: must be one of active, found, inactive")
	}
}

// ItemCategory is one of the closed set of item categories.
type ItemCategory string

const (
	CategoryElectronics ItemCategory = "Electronics"
	CategoryKeys        ItemCategory = "Keys"
	CategoryWallet      ItemCategory = "Wallet"
	CategoryBag         ItemCategory = "Bag"
	CategoryJewelry     ItemCategory = "Jewelry"
	CategoryDocuments   ItemCategory = "Documents"
	CategoryClothing    ItemCategory = "Clothing"
	CategoryAccessories ItemCategory = "Accessories"
	CategoryPet         ItemCategory = "Pet"
	CategorySports      ItemCategory = "Sports"
	CategoryOther       ItemCategory = "Other"
)

// Categories lists every valid category in display order.
var Categories = []ItemCategory{
	CategoryElectronics, CategoryKeys, CategoryWallet, CategoryBag, CategoryJewelry,
	CategoryDocuments, CategoryClothing, CategoryAccessories, CategoryPet, CategorySports,
	CategoryOther,
}

// ParseCategory matches raw case-insensitively against the closed set.
func ParseCategory(raw string) (ItemCategory, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("category: is required")
	}
	for _, c := range Categories {
		if strings.EqualFold(string(c), trimmed) {
			return c, nil
		}
	}
	return "", fmt.Errorf("category: %q is not a supported category", raw)
}

// Item is a registered possession.
type Item struct {
	ID           string       `db:"id" json:"id"`
	OwnerID      string       `db:"owner_id" json:"ownerId"`
	QRCode       string       `db:"qr_code" json:"qrCode"`
	Name         string       `db:"name" json:"name"`
	Category     ItemCategory `db:"category" json:"category"`
	Description  string       `db:"description" json:"description"`
	Image        *string      `db:"image" json:"-"`
	CustomFields CustomFields `db:"custom_fields" json:"customFields"`
	Status       ItemStatus   `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`

	ImageURL string `db:"-" json:"imageUrl,omitempty"`
	ScanURL  string `db:"-" json:"scanUrl,omitempty"`
}

// ItemPublic is the projection of an item that is safe to show a finder.
// It carries nothing derived from the owning account.
type ItemPublic struct {
	QRCode      string       `json:"qrCode"`
	Name        string       `json:"name"`
	Category    ItemCategory `json:"category"`
	Description string       `json:"description"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Status      ItemStatus   `json:"status"`
}

// Public builds the finder-safe projection.
func (i *Item) Public() ItemPublic {
	return ItemPublic{
		QRCode:      i.QRCode,
		Name:        i.Name,
		Category:    i.Category,
		Description: i.Description,
		ImageURL:    i.ImageURL,
		Status:      i.Status,
	}
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Status   *ItemStatus
	Category *ItemCategory
	OwnerID  string
	Page     int
	PageSize int
}

// CreateItemRequest registers a new item for the caller.
type CreateItemRequest struct {
	Name         string       `json:"name" validate:"required,max=100"`
	Category     string       `json:"category" validate:"required"`
	Description  string       `json:"description" validate:"max=1000"`
	Image        *string      `json:"image" validate:"omitempty,url,max=2048"`
	CustomFields CustomFields `json:"customFields"`
}

// UpdateItemRequest is a partial patch. QRCode and OwnerID only record
// whether the client tried to send those immutable fields.
type UpdateItemRequest struct {
	Name         *string       `json:"name" validate:"omitempty,max=100"`
	Category     *string       `json:"category"`
	Description  *string       `json:"description" validate:"omitempty,max=1000"`
	Image        *string       `json:"image" validate:"omitempty,max=2048"`
	CustomFields *CustomFields `json:"customFields"`
	Status       *string       `json:"status"`

	QRCode  json.RawMessage `json:"qrCode"`
	OwnerID json.RawMessage `json:"ownerId"`
}

// ItemListQuery is the query string form of an item listing.
type ItemListQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	UserID   string `form:"userId"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
