package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/analyses"
	"casa-backend/internal/shared/server/middleware"
	"casa-backend/internal/shared/server/respond"
)

// StatsSource reports a user's analysis history.
type StatsSource interface {
	Stats(ctx context.Context, userID string) (analyses.Stats, error)
}

type Handler struct {
	Svc   *Service
	Stats StatsSource
}

func NewHandler(svc *Service, stats StatsSource) *Handler {
	return &Handler{Svc: svc, Stats: stats}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PATCH("/me", h.updatePreferences)
}

type preferencesRequest struct {
	ChatLanguage string `json:"chatLanguage" binding:"required"`
}

// updatePreferences stores profile preferences. Guests have nowhere to keep
// them, so they must sign in first.
func (h *Handler) updatePreferences(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusForbidden, "forbidden", "sign in to store preferences", nil)
		return
	}
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.ValidationError(c, err)
		return
	}

	language, err := h.Svc.SetChatLanguage(c.Request.Context(), userID, req.ChatLanguage)
	switch {
	case err == nil:
		respond.Private(c, http.StatusOK, gin.H{"chatLanguage": language})
	case errors.Is(err, ErrUnsupportedLanguage):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "chatLanguage", "issue": "unsupported"},
		})
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "profile not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save preferences", nil)
	}
}

// me returns the caller's identity, stored profile when one exists, and
// analysis stats. Guests have no stored profile.
func (h *Handler) me(c *gin.Context) {
	id := middleware.IdentityFromContext(c)
	userID := id.UserID
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"userId":  userID,
		"isGuest": id.IsGuest,
	}
	if id.Email != "" {
		response["email"] = id.Email
	}
	if id.Name != "" {
		response["name"] = id.Name
	}
	if id.Picture != "" {
		response["picture"] = id.Picture
	}

	ctx := c.Request.Context()
	if h.Svc != nil && !id.IsGuest {
		user, err := h.Svc.GetByID(ctx, userID)
		switch {
		case err == nil:
			response["profile"] = user
		case errors.Is(err, ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
			return
		}
	}

	if h.Stats != nil {
		stats, err := h.Stats.Stats(ctx, userID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analysis stats", nil)
			return
		}
		response["stats"] = stats
	}

	respond.Private(c, http.StatusOK, response)
}
