package search

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shelfscout/server/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/search")
	g.POST("", h.search)
	g.POST("/:type", h.searchByType)
}

// search handles POST /search with an optional "type" in the body.
func (h *Handler) search(c *gin.Context) {
	var req Request
	_ = c.ShouldBindJSON(&req)
	h.respond(c, req.Type, req.text())
}

// searchByType handles POST /search/:type.
func (h *Handler) searchByType(c *gin.Context) {
	var req Request
	_ = c.ShouldBindJSON(&req)
	h.respond(c, c.Param("type"), req.text())
}

func (h *Handler) respond(c *gin.Context, searchType, query string) {
	results, err := h.svc.SearchByType(c.Request.Context(), searchType, query)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyQuery):
			response.BadRequest(c, "Search query is required")
		case errors.Is(err, ErrUnknownSearchType):
			response.BadRequest(c, "Unsupported search type")
		default:
			response.InternalError(c, "Failed to search books")
		}
		return
	}
	response.OK(c, results)
}
