package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"redline.app/engine/common/id"
	"redline.app/engine/internal/engine"
	"redline.app/engine/internal/http/dto"
	"redline.app/engine/internal/suggestion"
)

type AnalyzeHandler struct {
	service *engine.Service
}

func NewAnalyzeHandler(service *engine.Service) *AnalyzeHandler {
	return &AnalyzeHandler{service: service}
}

func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, dto.ErrWithDetails("invalid_request", "invalid request body", err.Error()))
		return
	}

	start := time.Now()
	res, err := h.service.Analyze(ctx, id.String(), req.UserID, req.Text, req.ToOptions())
	if err != nil {
		status, code, msg := classifyAnalyzeError(err)
		if status >= 500 {
			slog.ErrorContext(ctx, "analysis failed", "error", err)
		} else {
			slog.WarnContext(ctx, "analysis rejected", "error", err)
		}
		c.JSON(status, dto.Err(code, msg))
		return
	}

	suggs := res.Suggestions
	if suggs == nil {
		suggs = []suggestion.Suggestion{}
	}
	c.JSON(http.StatusOK, dto.OK(dto.AnalyzeResponse{
		Suggestions:      suggs,
		ProcessedText:    res.Text,
		Cached:           res.Cached,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RoutingReason:    res.Decision.Reason,
	}))
}

func classifyAnalyzeError(err error) (status int, code, msg string) {
	var ve *suggestion.ValidationError
	var ne *suggestion.NetworkError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "invalid_request", ve.Error()
	case errors.Is(err, suggestion.ErrAuth):
		return http.StatusBadGateway, "upstream_auth", "language model rejected our credentials"
	case errors.Is(err, suggestion.ErrRateLimit):
		return http.StatusTooManyRequests, "rate_limited", "language model rate limit exceeded"
	case errors.As(err, &ne):
		return http.StatusBadGateway, "upstream_unavailable", "language model unreachable"
	default:
		return http.StatusInternalServerError, "internal", "failed to analyze text"
	}
}
