package sync

import (
	"encoding/json"
	"net/http"

	"github.com/paisa-labs/market-sync/internal/metrics"
	"github.com/paisa-labs/market-sync/internal/model"
)

// --- HTTP Handlers ---

// GetSnapshot handles GET /api/v1/snapshot — the cached read path for
// dashboards and tickers.
func (s *Service) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot.Get(r.Context()))
}

// RefreshSnapshot handles POST /api/v1/snapshot/refresh — bypass TTL.
func (s *Service) RefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot.Refresh(r.Context()))
}

// ListIssueRows handles GET /api/v1/issues — the merged live board
// state, without reconciling.
func (s *Service) ListIssueRows(w http.ResponseWriter, r *http.Request) {
	rows := s.IssueRows(r.Context())
	if rows == nil {
		rows = []model.IssueRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// TriggerSync handles POST /api/v1/sync?notify=true — the manual,
// management-gated trigger. Authorization proper lives in the outer
// application; the admin token is the boundary check here.
func (s *Service) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if s.adminToken != "" && r.Header.Get("X-Admin-Token") != s.adminToken {
		writeError(w, "management permission required", http.StatusForbidden)
		return
	}

	notify := r.URL.Query().Get("notify") == "true"
	metrics.SyncRuns.WithLabelValues("manual").Inc()
	report := s.Sync(r.Context(), notify)
	writeJSON(w, http.StatusOK, report)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
