package httpapi

import (
	"net/http"

	"qvt-engine/internal/domain"
	"qvt-engine/internal/service"

	"go.uber.org/zap"
)

// EntryHandler 自评提交/查询 Handler
type EntryHandler struct {
	wellbeing *service.WellbeingService
	logger    *zap.Logger
}

// NewEntryHandler 创建自评 Handler
func NewEntryHandler(wellbeing *service.WellbeingService, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{
		wellbeing: wellbeing,
		logger:    logger,
	}
}

// submitEntryRequest 提交请求体（user_id 来自 Header，不在 body 里）
type submitEntryRequest struct {
	EntryDate        string  `json:"entry_date"`
	Energy           int     `json:"energy"`
	Stress           int     `json:"stress"`
	Motivation       int     `json:"motivation"`
	SocialConnection int     `json:"social_connection"`
	WorkSatisfaction int     `json:"work_satisfaction"`
	Comment          *string `json:"comment,omitempty"`
}

// SubmitEntry POST /qvt/api/v1/entries
func (h *EntryHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	var req submitEntryRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	entry := &domain.MoodEntry{
		UserID:           userID,
		EntryDate:        req.EntryDate,
		Energy:           req.Energy,
		Stress:           req.Stress,
		Motivation:       req.Motivation,
		SocialConnection: req.SocialConnection,
		WorkSatisfaction: req.WorkSatisfaction,
		Comment:          req.Comment,
	}

	result, err := h.wellbeing.SubmitEntry(r.Context(), entry)
	if err != nil {
		h.logger.Warn("Failed to submit entry",
			zap.String("user_id", userID),
			zap.String("entry_date", req.EntryDate),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}

// GetHistory GET /qvt/api/v1/entries/history?start=YYYY-MM-DD&end=YYYY-MM-DD
// 个人趋势：只返回调用者自己的条目
func (h *EntryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	window := domain.DateWindow{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}

	items, err := h.wellbeing.ListHistory(r.Context(), userID, window)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(items))
}

// GetEntry GET /qvt/api/v1/entries/{date}
// 只能读自己的条目：user_id 永远取自 Header
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request, entryDate string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}

	result, err := h.wellbeing.GetEntry(r.Context(), userID, entryDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}
