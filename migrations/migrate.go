package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed *.sql
var schemaFiles embed.FS

// Provider returns a goose provider over the embedded schema files.
func Provider(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, schemaFiles)
	if err != nil {
		return nil, fmt.Errorf("load schema migrations: %w", err)
	}
	return provider, nil
}

// Up applies pending schema migrations and reports the resulting version.
func Up(ctx context.Context, db *sql.DB, logger *zap.Logger) (int64, error) {
	provider, err := Provider(db)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply schema migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("schema migration applied",
			zap.Int64("version", res.Source.Version),
			zap.String("file", path.Base(res.Source.Path)),
			zap.Duration("took", res.Duration),
		)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
