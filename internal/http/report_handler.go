package httpapi

import (
	"fmt"
	"net/http"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/export"
	"qvt-engine/internal/repository"

	"go.uber.org/zap"
)

// ReportHandler 合规报告 Handler
type ReportHandler struct {
	exporter    *export.Exporter
	reportsRepo repository.ReportsRepository
	logger      *zap.Logger
}

// NewReportHandler 创建报告 Handler
func NewReportHandler(exporter *export.Exporter, reportsRepo repository.ReportsRepository, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		exporter:    exporter,
		reportsRepo: reportsRepo,
		logger:      logger,
	}
}

// generateReportRequest 生成请求体
type generateReportRequest struct {
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	TeamIDs     []string `json:"team_ids,omitempty"` // 为空覆盖全部团队
}

// GenerateReport POST /qvt/api/v1/reports
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	period := domain.DateWindow{Start: req.PeriodStart, End: req.PeriodEnd}
	report, err := h.exporter.Generate(r.Context(), period, req.TeamIDs)
	if err != nil {
		h.logger.Warn("Failed to generate compliance report",
			zap.String("period_start", req.PeriodStart),
			zap.String("period_end", req.PeriodEnd),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(report))
}

// GetReport GET /qvt/api/v1/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request, reportID string) {
	report, err := h.reportsRepo.Get(r.Context(), reportID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(report))
}

// DownloadReportExcel GET /qvt/api/v1/reports/{id}/xlsx
// 从已落库的不可变报告渲染，不触发重新计算
func (h *ReportHandler) DownloadReportExcel(w http.ResponseWriter, r *http.Request, reportID string) {
	report, err := h.reportsRepo.Get(r.Context(), reportID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := export.GenerateDUERPExcel(report)
	if err != nil {
		h.logger.Error("Failed to render report workbook",
			zap.String("report_id", reportID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("duerp_%s_%s.xlsx", report.PeriodStart, report.PeriodEnd)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
