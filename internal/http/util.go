package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"qvt-engine/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeError 错误分类到 HTTP 状态码的统一出口
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, Fail(validationErr.Error()))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	case errors.Is(err, domain.ErrStoreTimeout):
		writeJSON(w, http.StatusServiceUnavailable, Fail("store timeout, retry later"))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}

// userIDFromReq 从网关注入的 Header 提取调用者身份
func userIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing X-User-Id header"))
		return "", false
	}
	return userID, true
}
