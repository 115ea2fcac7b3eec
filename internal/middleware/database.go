package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/response"
)

// DatabaseEnsurer is satisfied by database.Handle.
type DatabaseEnsurer interface {
	Ensure(ctx context.Context) error
}

// EnsureDatabase confirms the storage handle is connected and migrated before the request
// reaches a handler.
func EnsureDatabase(db DatabaseEnsurer, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if err := db.Ensure(c.Request.Context()); err != nil {
			logger.Error("database unavailable", zap.Error(err))
			response.Error(c, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "database unavailable"))
			c.Abort()
			return
		}
		c.Next()
	}
}
