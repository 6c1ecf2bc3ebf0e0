package sync_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paisa-labs/market-sync/internal/cache"
	"github.com/paisa-labs/market-sync/internal/config"
	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/notify"
	"github.com/paisa-labs/market-sync/internal/scrape"
	"github.com/paisa-labs/market-sync/internal/snapshot"
	"github.com/paisa-labs/market-sync/internal/store"
	syncsvc "github.com/paisa-labs/market-sync/internal/sync"
)

// newAPIEnv stands up the API routes over an in-memory backend, with a
// non-empty admin token so the gate is exercised.
func newAPIEnv(t *testing.T) *chi.Mux {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/registrar", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(boardHTML))
	})
	mux.HandleFunc("/quotes", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(quoteHTML))
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	sources := config.Sources{
		IndexPrimaryURL:     upstream.URL + "/missing",
		IndexSecondaryURL:   upstream.URL + "/missing",
		FxPrimaryURL:        upstream.URL + "/missing",
		FxSecondaryURL:      upstream.URL + "/missing",
		CommodityPrimaryURL: upstream.URL + "/missing",
		CommoditySecondURL:  upstream.URL + "/missing",
		RegistrarBoardURL:   upstream.URL + "/registrar",
		AggregatorBoardURL:  upstream.URL + "/missing",
		QuoteURL:            upstream.URL + "/quotes",
	}
	fetcher := scrape.NewFetcher(scrape.NewClient(2*time.Second), scrape.HTMLExtractor{}, sources)

	ms := store.NewMemoryStore()
	mc := cache.NewMemoryCache()
	snap := snapshot.NewService(mc, fetcher, time.Minute, time.Hour)
	svc := syncsvc.NewService(ms, fetcher, snap, mc, notify.NewInApp(ms), nil,
		10, 3*time.Hour, "secret")

	r := chi.NewRouter()
	r.Get("/api/v1/snapshot", svc.GetSnapshot)
	r.Post("/api/v1/snapshot/refresh", svc.RefreshSnapshot)
	r.Get("/api/v1/issues", svc.ListIssueRows)
	r.Post("/api/v1/sync", svc.TriggerSync)
	return r
}

func TestGetSnapshot(t *testing.T) {
	router := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap model.MarketSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	// Every scalar source is down: response is built from defaults,
	// never an error.
	if !snap.EquityIndexLevel.Equal(scrape.DefaultIndexLevel) {
		t.Errorf("index = %s, want default %s", snap.EquityIndexLevel, scrape.DefaultIndexLevel)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("snapshot missing fetch time")
	}
}

func TestListIssueRows(t *testing.T) {
	router := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/issues", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var rows []model.IssueRow
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
}

func TestTriggerSyncAdminGate(t *testing.T) {
	router := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("without token: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/sync?notify=false", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, want 200", rec.Code)
	}

	var report model.SyncReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if report.IssuesSeen != 2 || report.IssuesCreated != 2 {
		t.Errorf("report = %+v, want 2 seen, 2 created", report)
	}
}
