package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/estatehub/internal/middleware"
	"github.com/lalith-99/estatehub/internal/models"
	"go.uber.org/zap"
)

// ImageFormField is the multipart field holding uploaded files.
const ImageFormField = "images"

type deleteImagesRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,dive,required"`
}

// UploadImages handles POST /v1/properties/:id/images
func (h *PropertyHandler) UploadImages(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form with field \"" + ImageFormField + "\""})
		return
	}

	headers := form.File[ImageFormField]
	uploads := make([]models.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			h.logger.Warn("failed to read upload", zap.String("filename", fh.Filename), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file " + fh.Filename})
			return
		}
		uploads = append(uploads, models.Upload{Filename: fh.Filename, Data: data})
	}

	urls, p, err := h.commands.UploadImages(c.Request.Context(), middleware.GetCaller(c), id, uploads)
	if err != nil {
		respondError(c, h.logger, err, "failed to upload images")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"property_id": p.ID, "urls": urls, "images": p.Images})
}

// DeleteImages handles DELETE /v1/properties/:id/images
func (h *PropertyHandler) DeleteImages(c *gin.Context) {
	id, ok := propertyID(c)
	if !ok {
		return
	}
	var req deleteImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.commands.DeleteImages(c.Request.Context(), middleware.GetCaller(c), id, req.URLs)
	if err != nil {
		respondError(c, h.logger, err, "failed to delete images")
		return
	}
	h.respond(c, http.StatusOK, p)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
