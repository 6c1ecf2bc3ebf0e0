// Package sync reconciles scraped market data into the persisted
// domain records: tracked issues, user positions and commodity
// holdings. A run is idempotent — every write is preceded by a dirty
// check, so replaying identical input produces a report with zero
// creates and updates — and no single source or store failure aborts
// the steps that follow it.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/cache"
	"github.com/paisa-labs/market-sync/internal/merge"
	"github.com/paisa-labs/market-sync/internal/metrics"
	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/notify"
	"github.com/paisa-labs/market-sync/internal/scrape"
	"github.com/paisa-labs/market-sync/internal/snapshot"
	"github.com/paisa-labs/market-sync/internal/store"
)

// The commodity reference quote is per troy ounce; holdings are priced
// per tola (11.6638 g / 31.1035 g per ounce).
var tolaPerTroyOunce = decimal.RequireFromString("0.375")

// Service runs the reconciliation pipeline and serves its HTTP surface.
type Service struct {
	store           store.Store
	fetcher         *scrape.Fetcher
	snapshot        *snapshot.Service
	cache           cache.Cache
	notifier        notify.Notifier
	hub             *Hub // optional WebSocket hub for sync broadcasts
	defaultMinUnits int64
	alertWindow     time.Duration
	adminToken      string
	now             func() time.Time
}

// NewService wires the reconciliation engine. Pass nil for hub if
// WebSocket broadcasting is not needed.
func NewService(st store.Store, fetcher *scrape.Fetcher, snap *snapshot.Service,
	c cache.Cache, notifier notify.Notifier, hub *Hub,
	defaultMinUnits int64, alertWindow time.Duration, adminToken string) *Service {
	return &Service{
		store:           st,
		fetcher:         fetcher,
		snapshot:        snap,
		cache:           c,
		notifier:        notifier,
		hub:             hub,
		defaultMinUnits: defaultMinUnits,
		alertWindow:     alertWindow,
		adminToken:      adminToken,
		now:             time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// IssueRows returns the merged, source-agnostic issue list without
// reconciling. Read path for board views.
func (s *Service) IssueRows(ctx context.Context) []model.IssueRow {
	return merge.Rows(s.fetcher.IssueRows(ctx))
}

// Sync is the single write-path entry point. It fetches and merges all
// sources, reconciles them against the persisted records, optionally
// dispatches alerts, refreshes the snapshot cache and returns a report
// with every counter populated. It never panics or errors to the
// caller; partial reports are expected when sources fail.
func (s *Service) Sync(ctx context.Context, sendAlerts bool) model.SyncReport {
	report := model.SyncReport{StartedAt: s.now().UTC()}

	rows := merge.Rows(s.fetcher.IssueRows(ctx))
	report.IssuesSeen = len(rows)
	for _, row := range rows {
		s.reconcileIssue(ctx, row, &report)
	}

	s.reconcileLivePrices(ctx, &report)
	s.reconcileHoldings(ctx, &report)

	if sendAlerts {
		report.AlertsSent = s.dispatchAlerts(ctx)
	}

	// Subsequent reads must reflect this run.
	snap := s.snapshot.Refresh(ctx)

	report.FinishedAt = s.now().UTC()
	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:       "sync_completed",
			Report:     &report,
			IndexLevel: snap.EquityIndexLevel.String(),
			FxRate:     snap.FxRate.String(),
		})
	}

	slog.Info("sync completed",
		"issues_seen", report.IssuesSeen,
		"issues_created", report.IssuesCreated,
		"issues_updated", report.IssuesUpdated,
		"live_prices_updated", report.LivePricesUpdated,
		"positions_updated", report.PositionsUpdated,
		"holdings_updated", report.HoldingsUpdated,
		"alerts_sent", report.AlertsSent,
	)
	return report
}

// reconcileIssue creates or diff-updates one tracked issue from a
// merged row. Store failures are logged and skipped; the corresponding
// counter is simply not incremented.
func (s *Service) reconcileIssue(ctx context.Context, row model.IssueRow, report *model.SyncReport) {
	existing, err := s.findIssue(ctx, row)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("issue lookup failed", "symbol", row.Symbol, "company", row.CompanyName, "err", err)
		return
	}

	now := s.now().UTC()
	if existing == nil {
		minUnits := row.Units
		if minUnits <= 0 {
			minUnits = s.defaultMinUnits
		}
		issue := &model.TrackedIssue{
			ID:           uuid.New().String(),
			Symbol:       row.Symbol,
			CompanyName:  row.CompanyName,
			Status:       row.Status,
			OpenDate:     row.OpenDate,
			CloseDate:    row.CloseDate,
			PricePerUnit: row.PricePerUnit,
			MinUnits:     minUnits,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.CreateIssue(ctx, issue); err != nil {
			slog.Warn("issue create failed", "company", row.CompanyName, "err", err)
			return
		}
		metrics.IssuesCreated.Inc()
		report.IssuesCreated++
		return
	}

	if !applyRow(existing, row) {
		return
	}
	existing.UpdatedAt = now
	if err := s.store.UpdateIssue(ctx, existing); err != nil {
		slog.Warn("issue update failed", "id", existing.ID, "err", err)
		return
	}
	metrics.IssuesUpdated.Inc()
	report.IssuesUpdated++
}

// findIssue resolves a row to its persisted issue: by symbol when
// present, else by case-insensitive company name.
func (s *Service) findIssue(ctx context.Context, row model.IssueRow) (*model.TrackedIssue, error) {
	if row.Symbol != "" {
		issue, err := s.store.GetIssueBySymbol(ctx, row.Symbol)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return issue, err
		}
	}
	if row.CompanyName == "" {
		return nil, store.ErrNotFound
	}
	return s.store.GetIssueByCompany(ctx, row.CompanyName)
}

// applyRow copies the row's known fields onto the issue and reports
// whether anything changed. Unknown incoming values (blank symbol, nil
// dates, non-positive numbers) never clobber known persisted ones.
func applyRow(issue *model.TrackedIssue, row model.IssueRow) bool {
	changed := false

	if row.Symbol != "" && issue.Symbol != row.Symbol {
		issue.Symbol = row.Symbol
		changed = true
	}
	if row.CompanyName != "" && issue.CompanyName != row.CompanyName {
		issue.CompanyName = row.CompanyName
		changed = true
	}
	if row.Status.Valid() && issue.Status != row.Status {
		issue.Status = row.Status
		changed = true
	}
	if row.OpenDate != nil && !equalDate(issue.OpenDate, row.OpenDate) {
		issue.OpenDate = row.OpenDate
		changed = true
	}
	if row.CloseDate != nil && !equalDate(issue.CloseDate, row.CloseDate) {
		issue.CloseDate = row.CloseDate
		changed = true
	}
	if row.PricePerUnit.IsPositive() && !issue.PricePerUnit.Equal(row.PricePerUnit) {
		issue.PricePerUnit = row.PricePerUnit
		changed = true
	}
	if row.Units > 0 && issue.MinUnits != row.Units {
		issue.MinUnits = row.Units
		changed = true
	}
	return changed
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// reconcileLivePrices applies the live quote map to every tracked issue
// with a known symbol, then fans live prices out to the open positions.
// Fan-out keys on the stored price, not on today's sighting: an issue
// whose symbol is missing from the current fetch still propagates its
// last known price, so positions opened while the quote source was down
// converge on the next run.
func (s *Service) reconcileLivePrices(ctx context.Context, report *model.SyncReport) {
	quotes := s.fetcher.Quotes(ctx)
	report.LivePricesSeen = len(quotes)

	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		slog.Warn("issue list failed during quote reconciliation", "err", err)
		return
	}

	now := s.now().UTC()
	for i := range issues {
		issue := &issues[i]

		if quote, ok := quotes[issue.Symbol]; ok && issue.Symbol != "" && quote.IsPositive() {
			changed := issue.LivePrice == nil || !issue.LivePrice.Equal(quote)
			// The freshness stamp moves on every sighting, price or not.
			issue.LivePrice = &quote
			issue.LivePriceUpdatedAt = &now
			if err := s.store.UpdateIssue(ctx, issue); err != nil {
				slog.Warn("live price update failed", "symbol", issue.Symbol, "err", err)
				continue
			}
			if changed {
				report.LivePricesUpdated++
				if s.hub != nil {
					s.hub.Broadcast(Event{
						Type:      "live_price",
						Symbol:    issue.Symbol,
						LivePrice: quote.String(),
					})
				}
			}
		}

		if issue.LivePrice != nil && issue.LivePrice.IsPositive() {
			report.PositionsUpdated += s.fanOutPrice(ctx, issue.ID, *issue.LivePrice)
		}
	}
}

// fanOutPrice overwrites CurrentPrice on every applied/allotted
// position referencing the issue, writing only when the value differs.
func (s *Service) fanOutPrice(ctx context.Context, issueID string, price decimal.Decimal) int {
	positions, err := s.store.ListActivePositionsByIssue(ctx, issueID)
	if err != nil {
		slog.Warn("position list failed", "issue", issueID, "err", err)
		return 0
	}

	updated := 0
	for _, p := range positions {
		if p.CurrentPrice != nil && p.CurrentPrice.Equal(price) {
			continue
		}
		if err := s.store.UpdatePositionPrice(ctx, p.ID, price); err != nil {
			slog.Warn("position price update failed", "position", p.ID, "err", err)
			continue
		}
		updated++
	}
	return updated
}

// reconcileHoldings derives the commodity per-unit price and bulk-sets
// it on every holding. The store has no conditional bulk write, so the
// touched count includes unchanged rows; the counter is informational.
func (s *Service) reconcileHoldings(ctx context.Context, report *model.SyncReport) {
	quote, source := scrape.FetchScalar(ctx, s.fetcher.CommodityChain(),
		s.snapshot.LastGood("commodity"), scrape.DefaultCommodityQuote)
	if !quote.IsPositive() {
		return
	}

	perUnit := quote.Mul(tolaPerTroyOunce).Round(2)
	report.CommodityPricePerUnit = perUnit

	touched, err := s.store.SetAllHoldingPrices(ctx, perUnit)
	if err != nil {
		slog.Warn("holding bulk update failed", "err", err)
		return
	}
	report.HoldingsUpdated = int(touched)
	slog.Info("commodity holdings repriced", "per_unit", perUnit.String(), "source", source, "touched", touched)
}
