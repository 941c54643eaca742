package httpapi

import (
	"net/http"

	"qvt-engine/internal/repository"

	"go.uber.org/zap"
)

// AlertHandler RPS 报警查询/确认 Handler
type AlertHandler struct {
	alertsRepo repository.AlertsRepository
	logger     *zap.Logger
}

// NewAlertHandler 创建报警 Handler
func NewAlertHandler(alertsRepo repository.AlertsRepository, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertsRepo: alertsRepo,
		logger:     logger,
	}
}

// ListAlerts GET /qvt/api/v1/alerts?team_id=xxx&status=open
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("team_id is required"))
		return
	}
	status := r.URL.Query().Get("status")

	alerts, err := h.alertsRepo.ListByTeam(r.Context(), teamID, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(alerts))
}

// GetAlert GET /qvt/api/v1/alerts/{id}
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	alert, err := h.alertsRepo.Get(r.Context(), alertID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(alert))
}

// AcknowledgeAlert POST /qvt/api/v1/alerts/{id}/acknowledge
// 确认只翻转状态并记录处理人，证据快照保持原样
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request, alertID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	if err := h.alertsRepo.Acknowledge(r.Context(), alertID, userID); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("Alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("acknowledged_by", userID),
	)

	writeJSON(w, http.StatusOK, Ok(map[string]string{"alert_id": alertID, "status": "acknowledged"}))
}
