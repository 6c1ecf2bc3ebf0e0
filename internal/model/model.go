// Package model defines the core domain types shared across the sync
// pipeline. All monetary values use shopspring/decimal — never float64
// for money.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IssueStatus is the lifecycle state of a new-issue offering.
type IssueStatus string

const (
	StatusOpen     IssueStatus = "open"
	StatusUpcoming IssueStatus = "upcoming"
	StatusClosed   IssueStatus = "closed"
)

// Valid reports whether s is one of the three known issue states.
func (s IssueStatus) Valid() bool {
	return s == StatusOpen || s == StatusUpcoming || s == StatusClosed
}

// PositionStatus is the lifecycle state of a user's participation in an issue.
type PositionStatus string

const (
	PositionApplied   PositionStatus = "applied"
	PositionAllotted  PositionStatus = "allotted"
	PositionSold      PositionStatus = "sold"
	PositionCancelled PositionStatus = "cancelled"
)

// MarketSnapshot is the result of one fetch-all cycle across the scalar
// sources. It is cached, never persisted; the *ChangePct fields compare
// against the previously cached snapshot.
type MarketSnapshot struct {
	EquityIndexLevel      decimal.Decimal `json:"equity_index_level"`
	EquityIndexChangePct  decimal.Decimal `json:"equity_index_change_pct"`
	CommodityPricePerUnit decimal.Decimal `json:"commodity_price_per_unit"`
	CommodityChangePct    decimal.Decimal `json:"commodity_change_pct"`
	FxRate                decimal.Decimal `json:"fx_rate"`
	FetchedAt             time.Time       `json:"fetched_at"`
}

// IssueRow is one issue as seen by one source. Rows are transient: they
// leave the table extractor as fixed-field structs, pass through the
// merger, and are discarded after reconciliation.
type IssueRow struct {
	Symbol       string          `json:"symbol"`
	CompanyName  string          `json:"company_name"`
	Units        int64           `json:"units"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	OpenDate     *time.Time      `json:"open_date,omitempty"`
	CloseDate    *time.Time      `json:"close_date,omitempty"`
	Status       IssueStatus     `json:"status"`
	SourceName   string          `json:"source_name"`
}

// MergeKey is the composite identity used to deduplicate rows from
// different sources: upper(symbol) + "|" + lower(companyName). A row
// whose key reduces to "|" carries no identity and is dropped before
// merging.
func (r IssueRow) MergeKey() string {
	return strings.ToUpper(strings.TrimSpace(r.Symbol)) + "|" +
		strings.ToLower(strings.TrimSpace(r.CompanyName))
}

// TrackedIssue is a persisted issue record. Identity is the symbol when
// present (case-insensitive unique), else the case-insensitive company
// name. Every field after creation is update-by-diff only, except
// LivePrice/LivePriceUpdatedAt which are refreshed whenever a live
// quote is available.
type TrackedIssue struct {
	ID                 string           `json:"id" db:"id"`
	Symbol             string           `json:"symbol" db:"symbol"`
	CompanyName        string           `json:"company_name" db:"company_name"`
	Status             IssueStatus      `json:"status" db:"status"`
	OpenDate           *time.Time       `json:"open_date,omitempty" db:"open_date"`
	CloseDate          *time.Time       `json:"close_date,omitempty" db:"close_date"`
	PricePerUnit       decimal.Decimal  `json:"price_per_unit" db:"price_per_unit"`
	LivePrice          *decimal.Decimal `json:"live_price,omitempty" db:"live_price"`
	LivePriceUpdatedAt *time.Time       `json:"live_price_updated_at,omitempty" db:"live_price_updated_at"`
	MinUnits           int64            `json:"min_units" db:"min_units"`
	MaxUnits           *int64           `json:"max_units,omitempty" db:"max_units"`
	ListingDate        *time.Time       `json:"listing_date,omitempty" db:"listing_date"`
	Notes              string           `json:"notes" db:"notes"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// Position is a user's record of participation in one tracked issue.
// CurrentPrice mirrors the issue's live price, but only for positions in
// applied/allotted status and only when the value actually differs.
type Position struct {
	ID             string           `json:"id" db:"id"`
	UserID         string           `json:"user_id" db:"user_id"`
	IssueID        string           `json:"issue_id" db:"issue_id"`
	AppliedUnits   int64            `json:"applied_units" db:"applied_units"`
	AllottedUnits  int64            `json:"allotted_units" db:"allotted_units"`
	InvestedAmount decimal.Decimal  `json:"invested_amount" db:"invested_amount"`
	CurrentPrice   *decimal.Decimal `json:"current_price,omitempty" db:"current_price"`
	Status         PositionStatus   `json:"status" db:"status"`
}

// CommodityHolding is a user's record of a precious-metal purchase,
// priced per unit weight. CurrentPricePerUnit is bulk-set for every
// holding in one reconciliation pass.
type CommodityHolding struct {
	ID                  string           `json:"id" db:"id"`
	UserID              string           `json:"user_id" db:"user_id"`
	Quantity            decimal.Decimal  `json:"quantity" db:"quantity"`
	BuyPricePerUnit     decimal.Decimal  `json:"buy_price_per_unit" db:"buy_price_per_unit"`
	CurrentPricePerUnit *decimal.Decimal `json:"current_price_per_unit,omitempty" db:"current_price_per_unit"`
}

// User identifies an account owner for positions, holdings and alerts.
type User struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Notification is an in-app message persisted by the notifier.
type Notification struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	URL       string    `json:"url,omitempty" db:"url"`
	Level     string    `json:"level" db:"level"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SyncReport is the pipeline's public output: one set of counters per
// reconciliation run, returned on success and partial failure alike.
// Counters are plain ints so a zero-value report is already well-formed.
type SyncReport struct {
	IssuesSeen            int             `json:"issues_seen"`
	IssuesCreated         int             `json:"issues_created"`
	IssuesUpdated         int             `json:"issues_updated"`
	LivePricesSeen        int             `json:"live_prices_seen"`
	LivePricesUpdated     int             `json:"live_prices_updated"`
	PositionsUpdated      int             `json:"positions_updated"`
	HoldingsUpdated       int             `json:"holdings_updated"`
	CommodityPricePerUnit decimal.Decimal `json:"commodity_price_per_unit"`
	AlertsSent            int             `json:"alerts_sent"`
	StartedAt             time.Time       `json:"started_at"`
	FinishedAt            time.Time       `json:"finished_at"`
}
