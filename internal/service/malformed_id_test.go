package service

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/repository"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

// PostgreSQL rejects ids that are not UUIDs; callers must see 404, not 500.
func TestNonUUIDIdentifiersAreNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	invalid := &pq.Error{Code: pq.ErrorCode(pgerrcode.InvalidTextRepresentation), Message: `invalid input syntax for type uuid: "abc"`}
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("FROM items WHERE id = \\$1").WithArgs("abc").WillReturnError(invalid)
	}
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs("abc").WillReturnError(invalid)
	}

	items := repository.NewItemRepository(sqlxdb)
	scans := repository.NewScanRepository(sqlxdb)
	users := repository.NewUserRepository(sqlxdb)
	admin := &access.Caller{ID: "5b0f8a9e-6a43-4bb0-8f3e-0c7f3a1c2d11", Role: models.RoleAdmin}
	ctx := context.Background()

	itemSvc := NewItemService(items, scans, users, nil, nil, nil, nil, nil, nil, ItemConfig{})
	scanSvc := NewScanService(scans, items, nil, nil, nil, nil, nil, nil)
	userSvc := NewUserService(users, items, scans, nil, nil, nil, nil)

	calls := map[string]func() error{
		"get item":      func() error { _, err := itemSvc.Get(ctx, admin, "abc"); return err },
		"delete item":   func() error { return itemSvc.Delete(ctx, admin, "abc", models.RequestMeta{}) },
		"scans of item": func() error { _, err := scanSvc.ListForItem(ctx, admin, "abc"); return err },
		"get user":      func() error { _, err := userSvc.Get(ctx, "abc"); return err },
		"delete user":   func() error { return userSvc.Delete(ctx, admin, "abc", models.RequestMeta{}) },
	}
	for name, call := range calls {
		err := call()
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, appErrors.ErrNotFound), name)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
