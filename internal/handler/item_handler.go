package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/models"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/response"
)

const imageFormField = "image"

type itemService interface {
	Create(ctx context.Context, caller *access.Caller, req models.CreateItemRequest) (*models.Item, error)
	Get(ctx context.Context, caller *access.Caller, id string) (*models.Item, error)
	GetPublic(ctx context.Context, code string) (*models.ItemPublic, error)
	Update(ctx context.Context, caller *access.Caller, id string, req models.UpdateItemRequest) (*models.Item, error)
	Delete(ctx context.Context, caller *access.Caller, id string, meta models.RequestMeta) error
	ListOwn(ctx context.Context, caller *access.Caller, query models.ItemListQuery) ([]models.Item, *models.Pagination, error)
	UploadImage(ctx context.Context, caller *access.Caller, id string, data []byte) (*models.Item, error)
	QRCode(ctx context.Context, caller *access.Caller, id string, size int) ([]byte, error)
}

// ItemHandler exposes item registration and lookup endpoints.
type ItemHandler struct {
	service       itemService
	maxImageBytes int64
}

// NewItemHandler constructs the handler. maxImageBytes bounds multipart
// uploads before they reach the image pipeline.
func NewItemHandler(svc itemService, maxImageBytes int64) *ItemHandler {
	return &ItemHandler{service: svc, maxImageBytes: maxImageBytes}
}

// Create godoc
// @Summary Register item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req models.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.Caller(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, item)
}

// List godoc
// @Summary List own items
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param category query string false "Category filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var query models.ItemListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}

	items, pagination, err := h.service.ListOwn(c.Request.Context(), middleware.Caller(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// GetPublic godoc
// @Summary Public item lookup
// @Description Resolve a scan code to the finder-facing item view
// @Tags Items
// @Produce json
// @Param identifier path string true "Scan code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/public/{identifier} [get]
func (h *ItemHandler) GetPublic(c *gin.Context) {
	item, err := h.service.GetPublic(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Update item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param payload body models.UpdateItemRequest true "Item patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	item, err := h.service.Update(c.Request.Context(), middleware.Caller(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete item
// @Tags Items
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Caller(c), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UploadImage godoc
// @Summary Upload item image
// @Tags Items
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param image formData file true "JPEG, PNG or WebP image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /items/{id}/image [put]
func (h *ItemHandler) UploadImage(c *gin.Context) {
	if h.maxImageBytes > 0 {
		// Leave room for the multipart framing around the file part.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+64*1024)
	}

	file, _, err := c.Request.FormFile(imageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, imageTooLarge(h.maxImageBytes))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image: file is required"))
		return
	}
	defer file.Close()

	reader := io.Reader(file)
	if h.maxImageBytes > 0 {
		reader = io.LimitReader(file, h.maxImageBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "image: could not be read"))
		return
	}
	if h.maxImageBytes > 0 && int64(len(data)) > h.maxImageBytes {
		response.Error(c, imageTooLarge(h.maxImageBytes))
		return
	}

	item, err := h.service.UploadImage(c.Request.Context(), middleware.Caller(c), c.Param("id"), data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// QRCode godoc
// @Summary Item QR code
// @Description Render the item's scan URL as a PNG QR code
// @Tags Items
// @Produce png
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param size query int false "Edge length in pixels (64-1024)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /items/{id}/qrcode [get]
func (h *ItemHandler) QRCode(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "size: must be an integer"))
			return
		}
		size = parsed
	}

	png, err := h.service.QRCode(c.Request.Context(), middleware.Caller(c), c.Param("id"), size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func imageTooLarge(limit int64) error {
	return appErrors.New(appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, "image: must be at most "+strconv.FormatInt(limit, 10)+" bytes")
}
