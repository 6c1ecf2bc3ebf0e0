package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/cache"
	"github.com/paisa-labs/market-sync/internal/metrics"
	"github.com/paisa-labs/market-sync/internal/notify"
)

// dispatchAlerts notifies each user about every currently-open issue
// their available balance can cover. At most one alert goes out per
// (user, issue, hour): the idempotency key is claimed atomically before
// sending, so re-running sync inside the window is a no-op. A claim
// whose send delivers on no channel is released again. Returns the
// number of alerts with at least one delivered channel.
func (s *Service) dispatchAlerts(ctx context.Context) int {
	now := s.now().UTC()

	// Close dates are stored at midnight. Compare against the start of
	// today so an issue stays eligible through the whole closing day.
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	issues, err := s.store.ListOpenIssues(ctx, startOfDay)
	if err != nil {
		slog.Warn("open issue list failed, skipping alerts", "err", err)
		return 0
	}
	if len(issues) == 0 {
		return 0
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		slog.Warn("user list failed, skipping alerts", "err", err)
		return 0
	}

	hour := now.Format("2006010215")
	sent := 0
	for _, user := range users {
		available, err := s.store.AvailableBalance(ctx, user.ID)
		if err != nil {
			slog.Warn("balance query failed", "user", user.ID, "err", err)
			continue
		}

		for _, issue := range issues {
			required := decimal.NewFromInt(issue.MinUnits).Mul(issue.PricePerUnit)
			if !required.IsPositive() || available.LessThan(required) {
				continue
			}

			key := cache.Key("alerts", user.ID, issue.ID, hour)
			if !s.cache.Add(ctx, key, []byte("1"), s.alertWindow) {
				continue // already alerted this hour
			}

			delivered, err := s.notifier.Send(ctx, notify.Message{
				UserID: user.ID,
				Title:  "Subscription opportunity: " + issue.CompanyName,
				Message: fmt.Sprintf("%s is open for subscription. Minimum %d units at %s (%s total) fits your available balance of %s.",
					issue.CompanyName, issue.MinUnits, issue.PricePerUnit.String(), required.String(), available.String()),
				URL:   "/issues/" + issue.ID,
				Level: "info",
			})
			if err != nil || delivered == 0 {
				// Nothing reached the user: release the claim so the
				// next run inside the window can retry.
				s.cache.Delete(ctx, key)
				if err != nil {
					slog.Warn("alert send failed", "user", user.ID, "issue", issue.ID, "err", err)
				}
				continue
			}
			metrics.AlertsSent.Inc()
			sent++
		}
	}
	return sent
}
