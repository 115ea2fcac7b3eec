package models

import (
	"encoding/json"
	"time"
)

// Scan is an immutable record of someone presenting an item's identifier.
type Scan struct {
	ID           string    `db:"id"`
	ItemID       string    `db:"item_id"`
	ScannerName  *string   `db:"scanner_name"`
	ScannerEmail *string   `db:"scanner_email"`
	ScannerPhone *string   `db:"scanner_phone"`
	Latitude     *float64  `db:"latitude"`
	Longitude    *float64  `db:"longitude"`
	Address      *string   `db:"address"`
	Message      *string   `db:"message"`
	ScannedAt    time.Time `db:"scanned_at"`
}

// ScanLocation is the optional geolocation attached to a scan.
type ScanLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address,omitempty"`
}

type scanJSON struct {
	ID           string        `json:"id"`
	ItemID       string        `json:"itemId,omitempty"`
	ScannerName  *string       `json:"scannerName,omitempty"`
	ScannerEmail *string       `json:"scannerEmail,omitempty"`
	ScannerPhone *string       `json:"scannerPhone,omitempty"`
	Location     *ScanLocation `json:"location,omitempty"`
	Message      *string       `json:"message,omitempty"`
	ScannedAt    time.Time     `json:"scannedAt"`
}

// MarshalJSON nests the coordinates under "location".
func (s Scan) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.view())
}

func (s Scan) view() scanJSON {
	out := scanJSON{
		ID:           s.ID,
		ItemID:       s.ItemID,
		ScannerName:  s.ScannerName,
		ScannerEmail: s.ScannerEmail,
		ScannerPhone: s.ScannerPhone,
		Message:      s.Message,
		ScannedAt:    s.ScannedAt,
	}
	if s.Latitude != nil && s.Longitude != nil {
		out.Location = &ScanLocation{Latitude: *s.Latitude, Longitude: *s.Longitude, Address: s.Address}
	}
	return out
}

// ScanLocationInput is the request shape for a scan's location.
type ScanLocationInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Address   *string  `json:"address" validate:"omitempty,max=500"`
}

// RecordScanRequest is the anonymous finder submission.
type RecordScanRequest struct {
	QRCode       string             `json:"qrCode"`
	ScannerName  *string            `json:"scannerName" validate:"omitempty,max=100"`
	ScannerEmail *string            `json:"scannerEmail" validate:"omitempty,email,max=254"`
	ScannerPhone *string            `json:"scannerPhone" validate:"omitempty,phone"`
	Location     *ScanLocationInput `json:"location" validate:"omitempty"`
	Message      *string            `json:"message" validate:"omitempty,max=1000"`
}

// ScanRecordResult confirms a recorded scan together with what was scanned.
// Finders are anonymous, so the internal item id is left out.
type ScanRecordResult struct {
	Scan *Scan      `json:"scan"`
	Item ItemPublic `json:"item"`
}

func (r ScanRecordResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Scan *scanJSON  `json:"scan"`
		Item ItemPublic `json:"item"`
	}{Item: r.Item}
	if r.Scan != nil {
		view := r.Scan.view()
		view.ItemID = ""
		out.Scan = &view
	}
	return json.Marshal(out)
}

// ScanExportRow is a scan joined with the item it belongs to.
type ScanExportRow struct {
	Scan
	QRCode   string `db:"qr_code"`
	ItemName string `db:"item_name"`
}

// ScanExportFilter bounds an administrative scan export.
type ScanExportFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
