package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"redline.app/engine/internal/http/dto"
	"redline.app/engine/internal/store"
)

type StatsHandler struct {
	refinements store.RefinementStore
}

func NewStatsHandler(refinements store.RefinementStore) *StatsHandler {
	return &StatsHandler{refinements: refinements}
}

// Refinements lists recent refinement calls with latency and token usage.
// Returns 404-style empty data when no database is configured.
func (h *StatsHandler) Refinements(c *gin.Context) {
	ctx := c.Request.Context()

	if h.refinements == nil {
		c.JSON(http.StatusOK, dto.OK(gin.H{"refinements": []store.RefinementRecord{}}))
		return
	}

	limit := int32(50)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, dto.Err("invalid_request", "limit must be between 1 and 500"))
			return
		}
		limit = int32(n)
	}

	records, err := h.refinements.ListRecent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list refinements", "error", err)
		c.JSON(http.StatusInternalServerError, dto.Err("internal", "failed to load refinement stats"))
		return
	}
	if records == nil {
		records = []store.RefinementRecord{}
	}
	c.JSON(http.StatusOK, dto.OK(gin.H{"refinements": records}))
}
