package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/pkg/response"
)

type scanService interface {
	Record(ctx context.Context, req models.RecordScanRequest) (*models.ScanRecordResult, error)
	ListForItem(ctx context.Context, caller *access.Caller, itemID string) ([]models.Scan, error)
}

// ScanHandler records finder scans and lists them for owners.
type ScanHandler struct {
	service scanService
}

// NewScanHandler constructs the handler.
func NewScanHandler(svc scanService) *ScanHandler {
	return &ScanHandler{service: svc}
}

// Record godoc
// @Summary Record scan
// @Description Anonymous finder report for a scanned QR code
// @Tags Scans
// @Accept json
// @Produce json
// @Param payload body models.RecordScanRequest true "Scan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scans [post]
func (h *ScanHandler) Record(c *gin.Context) {
	var req models.RecordScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}

	result, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListForItem godoc
// @Summary List scans for item
// @Tags Scans
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scans/{itemId} [get]
func (h *ScanHandler) ListForItem(c *gin.Context) {
	scans, err := h.service.ListForItem(c.Request.Context(), middleware.Caller(c), c.Param("itemId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, scans, nil)
}
