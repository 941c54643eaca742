package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterEntryRoutes 自评路由
func (r *Router) RegisterEntryRoutes(h *EntryHandler) {
	r.Handle("/qvt/api/v1/entries", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SubmitEntry(w, req)
	})

	// 精确模式优先于下面的前缀模式
	r.Handle("/qvt/api/v1/entries/history", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetHistory(w, req)
	})

	// entries/{date}
	r.Handle("/qvt/api/v1/entries/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		date := strings.TrimPrefix(req.URL.Path, "/qvt/api/v1/entries/")
		if date == "" || strings.Contains(date, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetEntry(w, req, date)
	})
}

// RegisterAggregateRoutes 团队聚合路由
func (r *Router) RegisterAggregateRoutes(h *AggregateHandler) {
	// teams/{id}/aggregate
	r.Handle("/qvt/api/v1/teams/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/qvt/api/v1/teams/")
		teamID, found := strings.CutSuffix(rest, "/aggregate")
		if !found || teamID == "" || strings.Contains(teamID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetTeamAggregate(w, req, teamID)
	})
}

// RegisterAlertRoutes 报警路由
func (r *Router) RegisterAlertRoutes(h *AlertHandler) {
	r.Handle("/qvt/api/v1/alerts", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListAlerts(w, req)
	})

	// alerts/{id} 与 alerts/{id}/acknowledge
	r.Handle("/qvt/api/v1/alerts/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/qvt/api/v1/alerts/")

		if alertID, found := strings.CutSuffix(rest, "/acknowledge"); found {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if alertID == "" || strings.Contains(alertID, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.AcknowledgeAlert(w, req, alertID)
			return
		}

		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if rest == "" || strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetAlert(w, req, rest)
	})
}

// RegisterReportRoutes 合规报告路由
func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("/qvt/api/v1/reports", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GenerateReport(w, req)
	})

	// reports/{id} 与 reports/{id}/xlsx
	r.Handle("/qvt/api/v1/reports/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/qvt/api/v1/reports/")

		if reportID, found := strings.CutSuffix(rest, "/xlsx"); found {
			if reportID == "" || strings.Contains(reportID, "/") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			h.DownloadReportExcel(w, req, reportID)
			return
		}

		if rest == "" || strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetReport(w, req, rest)
	})
}

// RegisterHealthRoute 健康检查
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}
