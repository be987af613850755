package history

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shelfscout/server/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search/history", h.Recent)
}

// Recent serves the most recent searches, newest first.
func (h *Handler) Recent(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		h.svc.logger.Error("fetch search history failed", zap.Error(err))
		response.InternalError(c, "Failed to fetch search history")
		return
	}
	response.OK(c, entries)
}
