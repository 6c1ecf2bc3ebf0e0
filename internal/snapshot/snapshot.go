// Package snapshot maintains the cached market snapshot: a read-through
// store over the scalar fetch chains with a short TTL, plus a longer
// per-metric "last good" retention so a run where every live source is
// down still returns a plausible recent number instead of the hardcoded
// constant.
package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/cache"
	"github.com/paisa-labs/market-sync/internal/metrics"
	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/scrape"
)

// Service is the snapshot cache. Safe for concurrent use; two
// simultaneous misses may both fetch, which is a tolerated inefficiency
// rather than a bug — no lock is held across network calls.
type Service struct {
	cache     cache.Cache
	fetcher   *scrape.Fetcher
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewService creates a snapshot service. ttl is clamped to a one-minute
// minimum; retention is the last-good window (days scale).
func NewService(c cache.Cache, f *scrape.Fetcher, ttl, retention time.Duration) *Service {
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return &Service{
		cache:     c,
		fetcher:   f,
		ttl:       ttl,
		retention: retention,
		now:       time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func currentKey() string          { return cache.Key("snapshot", "current") }
func lastKey() string             { return cache.Key("snapshot", "last") }
func lastGoodKey(m string) string { return cache.Key("lastgood", m) }

// Get returns the cached snapshot, fetching all sources on a miss.
func (s *Service) Get(ctx context.Context) model.MarketSnapshot {
	if data, ok := s.cache.Get(ctx, currentKey()); ok {
		var snap model.MarketSnapshot
		if json.Unmarshal(data, &snap) == nil {
			return snap
		}
	}
	metrics.SnapshotRefreshes.WithLabelValues("miss").Inc()
	return s.refresh(ctx)
}

// Refresh bypasses the TTL and rebuilds the snapshot from live sources.
// Called after a reconciliation run so dependent views see fresh data.
func (s *Service) Refresh(ctx context.Context) model.MarketSnapshot {
	metrics.SnapshotRefreshes.WithLabelValues("forced").Inc()
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) model.MarketSnapshot {
	previous := s.previous(ctx)

	index, indexSrc := scrape.FetchScalar(ctx, s.fetcher.IndexChain(),
		s.LastGood("index"), scrape.DefaultIndexLevel)
	fx, fxSrc := scrape.FetchScalar(ctx, s.fetcher.FxChain(),
		s.LastGood("fx"), scrape.DefaultFxRate)
	commodity, commoditySrc := scrape.FetchScalar(ctx, s.fetcher.CommodityChain(),
		s.LastGood("commodity"), scrape.DefaultCommodityQuote)

	snap := model.MarketSnapshot{
		EquityIndexLevel:      index,
		CommodityPricePerUnit: commodity,
		FxRate:                fx,
		FetchedAt:             s.now().UTC(),
	}
	if previous != nil {
		snap.EquityIndexChangePct = changePct(index, previous.EquityIndexLevel)
		snap.CommodityChangePct = changePct(commodity, previous.CommodityPricePerUnit)
	}

	s.store(ctx, snap)
	s.retainLastGood(ctx, "index", index, indexSrc)
	s.retainLastGood(ctx, "fx", fx, fxSrc)
	s.retainLastGood(ctx, "commodity", commodity, commoditySrc)

	slog.Info("snapshot refreshed",
		"index", index.String(), "index_source", indexSrc,
		"fx", fx.String(), "fx_source", fxSrc,
		"commodity", commodity.String(), "commodity_source", commoditySrc,
	)
	return snap
}

// previous returns the last successfully stored snapshot, if any is
// still retained.
func (s *Service) previous(ctx context.Context) *model.MarketSnapshot {
	data, ok := s.cache.Get(ctx, lastKey())
	if !ok {
		return nil
	}
	var snap model.MarketSnapshot
	if json.Unmarshal(data, &snap) != nil {
		return nil
	}
	return &snap
}

func (s *Service) store(ctx context.Context, snap model.MarketSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.cache.Put(ctx, currentKey(), data, s.ttl)
	s.cache.Put(ctx, lastKey(), data, s.retention)
}

// LastGood returns the retained-value loader for one metric, consumed
// by a scalar fallback chain after all live sources fail.
func (s *Service) LastGood(metric string) func(context.Context) (decimal.Decimal, bool) {
	return func(ctx context.Context) (decimal.Decimal, bool) {
		data, ok := s.cache.Get(ctx, lastGoodKey(metric))
		if !ok {
			return decimal.Zero, false
		}
		v, err := decimal.NewFromString(string(data))
		if err != nil {
			return decimal.Zero, false
		}
		return v, true
	}
}

// retainLastGood stores a freshly fetched value under the long retention
// window. Values that themselves came from the last-good store or the
// hardcoded default are not re-retained.
func (s *Service) retainLastGood(ctx context.Context, metric string, v decimal.Decimal, source string) {
	if source == "last-good" || source == "default" || !v.IsPositive() {
		return
	}
	s.cache.Put(ctx, lastGoodKey(metric), []byte(v.String()), s.retention)
}

// changePct is the percent change of current against previous, zero
// when either side is non-positive.
func changePct(current, previous decimal.Decimal) decimal.Decimal {
	if !current.IsPositive() || !previous.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}
