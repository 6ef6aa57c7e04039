package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/server/middleware"
	"casa-backend/internal/shared/server/respond"
)

// Handler exposes the chat proxy as a function-style endpoint.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/functions/medical-chat", h.reply)
}

func (h *Handler) reply(c *gin.Context) {
	var q Question
	if err := c.ShouldBindJSON(&q); err != nil {
		respond.FunctionError(c, http.StatusInternalServerError, "invalid request body")
		return
	}

	caller := middleware.UserIDFromContext(c)
	if q.UserID == "" {
		q.UserID = caller
	}
	if caller != "" && q.UserID != caller {
		respond.FunctionError(c, http.StatusForbidden, "userId does not match the authenticated identity")
		return
	}

	middleware.Annotate(c, "analysis_id", q.AnalysisID)
	answer, err := h.Svc.Reply(c.Request.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			respond.FunctionError(c, http.StatusInternalServerError, ErrEmptyMessage.Error())
		case errors.Is(err, ErrReportMissing):
			respond.FunctionError(c, http.StatusInternalServerError, ErrReportMissing.Error())
		default:
			respond.FunctionError(c, http.StatusInternalServerError, ErrNoReply.Error())
		}
		return
	}
	respond.Private(c, http.StatusOK, gin.H{"response": answer})
}
