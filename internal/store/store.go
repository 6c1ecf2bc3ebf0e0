// Package store defines the persistence interface for the sync
// pipeline. PostgreSQL is the source of truth; an in-memory
// implementation backs tests and development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/model"
)

// ErrNotFound is returned by lookups when no row matches. Reconciliation
// distinguishes "absent, create it" from a real store failure by this
// sentinel.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface consumed by the reconciliation
// engine and the alert dispatcher.
type Store interface {
	// --- Tracked issues ---

	// GetIssueBySymbol finds an issue by case-insensitive symbol.
	GetIssueBySymbol(ctx context.Context, symbol string) (*model.TrackedIssue, error)

	// GetIssueByCompany finds an issue by case-insensitive company name.
	GetIssueByCompany(ctx context.Context, name string) (*model.TrackedIssue, error)

	// CreateIssue persists a new tracked issue.
	CreateIssue(ctx context.Context, issue *model.TrackedIssue) error

	// UpdateIssue overwrites a tracked issue's mutable fields. Callers
	// diff before calling; the store writes what it is given.
	UpdateIssue(ctx context.Context, issue *model.TrackedIssue) error

	// ListIssues returns all tracked issues.
	ListIssues(ctx context.Context) ([]model.TrackedIssue, error)

	// ListOpenIssues returns issues in open status whose close date is
	// absent or not before asOf.
	ListOpenIssues(ctx context.Context, asOf time.Time) ([]model.TrackedIssue, error)

	// --- Positions ---

	// ListActivePositionsByIssue returns applied/allotted positions
	// referencing one issue.
	ListActivePositionsByIssue(ctx context.Context, issueID string) ([]model.Position, error)

	// UpdatePositionPrice sets one position's current price.
	UpdatePositionPrice(ctx context.Context, positionID string, price decimal.Decimal) error

	// --- Commodity holdings ---

	// SetAllHoldingPrices bulk-sets the current per-unit price on every
	// holding and returns the number of rows touched. The store has no
	// conditional bulk write, so unchanged rows count as touched.
	SetAllHoldingPrices(ctx context.Context, price decimal.Decimal) (int64, error)

	// --- Users and balances ---

	// ListUsers returns all users considered for alerts.
	ListUsers(ctx context.Context) ([]model.User, error)

	// AvailableBalance sums a user's active cash-like account balances.
	AvailableBalance(ctx context.Context, userID string) (decimal.Decimal, error)

	// --- Notifications ---

	// InsertNotification records an in-app notification.
	InsertNotification(ctx context.Context, n *model.Notification) error
}
