package httpapi

import (
	"net/http"

	"qvt-engine/internal/aggregator"
	"qvt-engine/internal/domain"

	"go.uber.org/zap"
)

// AggregateHandler 团队聚合查询 Handler
type AggregateHandler struct {
	aggregates *aggregator.Aggregator
	logger     *zap.Logger
}

// NewAggregateHandler 创建聚合 Handler
func NewAggregateHandler(aggregates *aggregator.Aggregator, logger *zap.Logger) *AggregateHandler {
	return &AggregateHandler{
		aggregates: aggregates,
		logger:     logger,
	}
}

// GetTeamAggregate GET /qvt/api/v1/teams/{id}/aggregate?start=YYYY-MM-DD&end=YYYY-MM-DD
// 不合格团队返回同一结构：release_eligible=false 且没有 axes 字段
func (h *AggregateHandler) GetTeamAggregate(w http.ResponseWriter, r *http.Request, teamID string) {
	window := domain.DateWindow{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}

	aggregate, err := h.aggregates.GetCached(r.Context(), teamID, window)
	if err != nil {
		h.logger.Warn("Failed to get team aggregate",
			zap.String("team_id", teamID),
			zap.String("window_start", window.Start),
			zap.String("window_end", window.End),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(aggregate))
}
