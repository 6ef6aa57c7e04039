package media

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/server/middleware"
	"casa-backend/internal/shared/server/respond"
)

// Handler exposes the media store over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches media routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/storage/objects/*path", h.upload)
	rg.GET("/storage/public/*path", h.serve)
	rg.HEAD("/storage/public/*path", h.serve)
	rg.GET("/media", h.list)
}

// AssetResponse is the outward-facing representation of an asset.
type AssetResponse struct {
	Path             string    `json:"path"`
	PublicURL        string    `json:"publicUrl"`
	MediaType        Category  `json:"mediaType"`
	MimeType         string    `json:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes"`
	OriginalFilename string    `json:"originalFilename"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

func toResponse(a Asset) AssetResponse {
	return AssetResponse{
		Path:             a.StoragePath,
		PublicURL:        a.PublicURL,
		MediaType:        a.Category,
		MimeType:         a.MimeType,
		SizeBytes:        a.SizeBytes,
		OriginalFilename: a.OriginalFilename,
		UploadedAt:       a.CreatedAt,
	}
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	path := strings.TrimPrefix(c.Param("path"), "/")
	middleware.Annotate(c, "media_path", path)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxVideoBytes+1)

	asset, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OwnerID:      userID,
		Path:         path,
		ContentType:  c.GetHeader("Content-Type"),
		DeclaredSize: c.Request.ContentLength,
		Body:         c.Request.Body,
	})
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "only video/* and image/* uploads are accepted", nil)
		case errors.Is(err, ErrFileTooLarge), errors.As(err, &maxErr):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "videos must be under 2 GB and photos under 100 MB", nil)
		case errors.Is(err, ErrForbiddenPath):
			respond.Error(c, http.StatusForbidden, "forbidden", "uploads must be stored under the caller's namespace", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrExists):
			respond.Error(c, http.StatusConflict, "already_exists", "an object is already stored at this path", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store media", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(asset))
}

func (h *Handler) serve(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	rc, asset, err := h.Svc.Open(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "media not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open media", nil)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Content-Type", asset.MimeType)
	c.Header("Content-Length", strconv.FormatInt(asset.SizeBytes, 10))
	c.Status(http.StatusOK)
	if c.Request.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	assets, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list media", nil)
		return
	}
	items := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		items = append(items, toResponse(a))
	}
	respond.OK(c, gin.H{"items": items})
}
