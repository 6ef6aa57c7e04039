package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casa-backend/internal/shared/server/middleware"
	"casa-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterInvocation attaches the orchestrator function route.
func (h *Handler) RegisterInvocation(rg *gin.RouterGroup) {
	rg.POST("/functions/sperm-analysis", h.runAnalysis)
}

// RegisterRoutes attaches the report read routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
}

func (h *Handler) runAnalysis(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.FunctionError(c, http.StatusInternalServerError, "invalid request body")
		return
	}

	caller := middleware.UserIDFromContext(c)
	if req.UserID != "" && caller != "" && req.UserID != caller {
		respond.FunctionError(c, http.StatusForbidden, "userId does not match the authenticated identity")
		return
	}
	middleware.Annotate(c, "media_path", req.FileName)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	report, err := h.Svc.Run(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingInput):
			respond.FunctionError(c, http.StatusInternalServerError, err.Error())
		default:
			respond.FunctionError(c, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	middleware.Annotate(c, "analysis_id", report.ID)
	middleware.Annotate(c, "status_transition", "processing->completed")
	respond.Private(c, http.StatusOK, report)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	report, err := h.Svc.GetOwned(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}
	respond.Private(c, http.StatusOK, report)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	reports, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	items := make([]Summary, 0, len(reports))
	for _, r := range reports {
		items = append(items, Summarize(r))
	}
	respond.Private(c, http.StatusOK, gin.H{"items": items})
}
