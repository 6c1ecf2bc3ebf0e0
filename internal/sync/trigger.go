package sync

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/paisa-labs/market-sync/internal/metrics"
)

// Trigger rate-limits inline sync runs embedded in general request
// handling: at most one background run per interval per concern, with
// "market" and "suggestions" limited independently. Data consumers get
// eventually fresh records without any request paying the fetch cost.
type Trigger struct {
	svc      *Service
	market   *rate.Limiter
	suggests *rate.Limiter
}

// NewTrigger creates the inline trigger with independent per-concern
// intervals.
func NewTrigger(svc *Service, marketInterval, suggestInterval time.Duration) *Trigger {
	return &Trigger{
		svc:      svc,
		market:   rate.NewLimiter(rate.Every(marketInterval), 1),
		suggests: rate.NewLimiter(rate.Every(suggestInterval), 1),
	}
}

// Middleware kicks a background sync when a concern's interval has
// elapsed, then serves the request untouched. The sync runs detached
// from the request context so a fast client disconnect cannot cancel it.
func (t *Trigger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.market.Allow() {
			go t.run("market", false)
		}
		if t.suggests.Allow() {
			go t.run("suggestions", true)
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Trigger) run(concern string, notify bool) {
	slog.Info("inline sync triggered", "concern", concern)
	metrics.SyncRuns.WithLabelValues("inline-" + concern).Inc()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	t.svc.Sync(ctx, notify)
}
