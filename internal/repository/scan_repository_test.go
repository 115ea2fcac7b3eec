package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/models"
)

var scanRowColumns = []string{"id", "item_id", "scanner_name", "scanner_email", "scanner_phone", "latitude", "longitude", "address", "message", "scanned_at"}

func TestScanRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectExec("INSERT INTO scans").WillReturnResult(sqlmock.NewResult(1, 1))

	name := "Finder"
	scan := &models.Scan{ItemID: "i1", ScannerName: &name}
	require.NoError(t, repo.Create(context.Background(), scan))
	assert.NotEmpty(t, scan.ID)
	assert.False(t, scan.ScannedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListByItem(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(scanRowColumns).
		AddRow("s2", "i1", "B", nil, nil, 52.1, 4.3, "Station", nil, now).
		AddRow("s1", "i1", nil, "a@example.com", nil, nil, nil, nil, "hello", now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM scans WHERE item_id = $1 ORDER BY scanned_at DESC")).WithArgs("i1").WillReturnRows(rows)

	scans, err := repo.ListByItem(context.Background(), "i1")
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "s2", scans[0].ID)
	assert.InDelta(t, 52.1, *scans[0].Latitude, 0.0001)
	assert.Equal(t, "a@example.com", *scans[1].ScannerEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryDeleteByItemIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	n, err := repo.DeleteByItemIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM scans WHERE item_id = ANY($1)")).
		WithArgs(pq.Array([]string{"i1", "i2"})).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err = repo.DeleteByItemIDs(context.Background(), []string{"i1", "i2"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListForExport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := append(append([]string{}, scanRowColumns...), "qr_code", "item_name")
	rows := sqlmock.NewRows(cols).AddRow("s1", "i1", "Finder", nil, nil, nil, nil, nil, nil, from, "LF-abcdefghij", "Laptop")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN items i ON i.id = s.item_id WHERE s.scanned_at >= $1 ORDER BY s.scanned_at DESC LIMIT 500")).
		WithArgs(from).
		WillReturnRows(rows)

	out, err := repo.ListForExport(context.Background(), models.ScanExportFilter{From: &from, Limit: 500})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Laptop", out[0].ItemName)
	assert.Equal(t, "Finder", *out[0].ScannerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListByItemMalformedID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM scans WHERE item_id = $1")).WithArgs("abc").WillReturnError(invalidUUID("abc"))

	scans, err := repo.ListByItem(context.Background(), "abc")
	require.NoError(t, err)
	assert.Empty(t, scans)
	assert.NoError(t, mock.ExpectationsWereMet())
}
