package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/models"
)

// Routes bundles the handlers and middleware dependencies mounted by
// RegisterRoutes.
type Routes struct {
	Prefix   string
	Auth     *AuthHandler
	Items    *ItemHandler
	Scans    *ScanHandler
	Images   *ImageHandler
	Admin    *AdminHandler
	Metrics  *MetricsHandler
	Tokens   middleware.TokenValidator
	Database middleware.DatabaseEnsurer
	Logger   *zap.Logger
}

// RegisterRoutes mounts operational endpoints at the root and the API under
// the configured prefix.
func RegisterRoutes(r gin.IRouter, routes Routes) {
	r.GET("/health", routes.Metrics.Health)
	r.GET("/ready", routes.Metrics.Ready)
	r.GET("/metrics", routes.Metrics.Prometheus)

	api := r.Group(routes.Prefix)
	if routes.Database != nil {
		api.Use(middleware.EnsureDatabase(routes.Database, routes.Logger))
	}
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/register", routes.Auth.Register)
	auth.POST("/login", routes.Auth.Login)

	api.GET("/items/public/:identifier", routes.Items.GetPublic)
	api.GET("/images/:token", routes.Images.Serve)
	api.POST("/scans", routes.Scans.Record)

	secured := api.Group("")
	secured.Use(middleware.JWT(routes.Tokens))
	secured.GET("/auth/me", routes.Auth.Me)
	secured.POST("/auth/change-password", routes.Auth.ChangePassword)

	items := secured.Group("/items")
	items.POST("", routes.Items.Create)
	items.GET("", routes.Items.List)
	items.GET("/:id", routes.Items.Get)
	items.PUT("/:id", routes.Items.Update)
	items.DELETE("/:id", routes.Items.Delete)
	items.PUT("/:id/image", routes.Items.UploadImage)
	items.GET("/:id/qrcode", routes.Items.QRCode)

	secured.GET("/scans/:itemId", routes.Scans.ListForItem)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/items", routes.Admin.ListItems)
	admin.GET("/users", routes.Admin.ListUsers)
	admin.PUT("/users/:id", routes.Admin.UpdateUser)
	admin.DELETE("/users/:id", routes.Admin.DeleteUser)
	admin.GET("/stats", routes.Admin.Stats)
	admin.GET("/scans/export", routes.Admin.ExportScans)
}
