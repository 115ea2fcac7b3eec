package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lostfound-api/pkg/response"
)

type imageOpener interface {
	Open(token string) (io.ReadCloser, string, error)
}

// ImageHandler serves stored item images behind signed tokens.
type ImageHandler struct {
	images imageOpener
}

// NewImageHandler constructs the handler.
func NewImageHandler(images imageOpener) *ImageHandler {
	return &ImageHandler{images: images}
}

// Serve godoc
// @Summary Item image
// @Tags Images
// @Produce jpeg
// @Param token path string true "Signed image token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /images/{token} [get]
func (h *ImageHandler) Serve(c *gin.Context) {
	body, contentType, err := h.images.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
