package database

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "lostfound", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=lostfound sslmode=disable", dsn)
}

func TestHandleEnsureIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	handle := NewHandle(sqlx.NewDb(db, "sqlmock"))
	require.NoError(t, handle.Ensure(context.Background()))
	require.NoError(t, handle.Ensure(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEnsureRetriesAfterFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	handle := NewHandle(sqlx.NewDb(db, "sqlmock"))
	require.Error(t, handle.Ensure(context.Background()))
	require.NoError(t, handle.Ensure(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEnsureDoesNotWaitOnSetup(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing()

	started := make(chan struct{})
	release := make(chan struct{})
	runs := 0
	handle := NewHandle(sqlx.NewDb(db, "sqlmock"))
	handle.OnReady(func(context.Context) error {
		runs++
		close(started)
		<-release
		return nil
	})

	first := make(chan error, 1)
	go func() { first <- handle.Ensure(context.Background()) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	begin := time.Now()
	err = handle.Ensure(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Less(t, time.Since(begin), time.Second)

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, handle.Ensure(context.Background()))
	assert.Equal(t, 1, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEnsureHonoursDeadlineDuringPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillDelayFor(2 * time.Second)

	handle := NewHandle(sqlx.NewDb(db, "sqlmock"))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	begin := time.Now()
	require.Error(t, handle.Ensure(ctx))
	assert.Less(t, time.Since(begin), time.Second)
}

func TestHandleEnsureRetriesFailedSetup(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing()

	attempts := 0
	handle := NewHandle(sqlx.NewDb(db, "sqlmock"))
	handle.OnReady(func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("migration failed")
		}
		return nil
	})

	require.Error(t, handle.Ensure(context.Background()))
	require.NoError(t, handle.Ensure(context.Background()))
	require.NoError(t, handle.Ensure(context.Background()))
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
