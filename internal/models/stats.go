package models

import "time"

// AdminStats is the administrative dashboard payload.
type AdminStats struct {
	Totals          StatsTotals     `json:"totals"`
	ItemsByStatus   map[string]int  `json:"itemsByStatus"`
	ItemsByCategory []CategoryCount `json:"itemsByCategory"`
	RecentScans     []RecentScan    `json:"recentScans"`
	ScansPerDay     []DailyCount    `json:"scansPerDay"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

type StatsTotals struct {
	Users int `db:"users" json:"users"`
	Items int `db:"items" json:"items"`
	Scans int `db:"scans" json:"scans"`
}

type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// RecentScan summarises one of the latest scans for administrators.
type RecentScan struct {
	ID          string    `db:"id" json:"id"`
	ItemID      string    `db:"item_id" json:"itemId"`
	QRCode      string    `db:"qr_code" json:"qrCode"`
	ItemName    string    `db:"item_name" json:"itemName"`
	ScannerName *string   `db:"scanner_name" json:"scannerName,omitempty"`
	ScannedAt   time.Time `db:"scanned_at" json:"scannedAt"`
}

// DailyCount is a per-day bucket; Day is formatted YYYY-MM-DD in UTC.
type DailyCount struct {
	Day   string `db:"day" json:"day"`
	Count int    `db:"count" json:"count"`
}
