package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. All monetary values are stored as NUMERIC for exact decimal
// precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const issueColumns = `id, symbol, company_name, status, open_date, close_date,
	price_per_unit::TEXT, live_price::TEXT, live_price_updated_at,
	min_units, max_units, listing_date, notes, created_at, updated_at`

func scanIssue(row pgx.Row) (*model.TrackedIssue, error) {
	var i model.TrackedIssue
	var price string
	var livePrice *string

	err := row.Scan(&i.ID, &i.Symbol, &i.CompanyName, &i.Status,
		&i.OpenDate, &i.CloseDate,
		&price, &livePrice, &i.LivePriceUpdatedAt,
		&i.MinUnits, &i.MaxUnits, &i.ListingDate, &i.Notes,
		&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}

	i.PricePerUnit, _ = decimal.NewFromString(price)
	if livePrice != nil {
		lp, _ := decimal.NewFromString(*livePrice)
		i.LivePrice = &lp
	}
	return &i, nil
}

func (s *PostgresStore) GetIssueBySymbol(ctx context.Context, symbol string) (*model.TrackedIssue, error) {
	issue, err := scanIssue(s.pool.QueryRow(ctx,
		`SELECT `+issueColumns+` FROM tracked_issues WHERE LOWER(symbol) = LOWER($1)`, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue by symbol %s: %w", symbol, err)
	}
	return issue, nil
}

func (s *PostgresStore) GetIssueByCompany(ctx context.Context, name string) (*model.TrackedIssue, error) {
	issue, err := scanIssue(s.pool.QueryRow(ctx,
		`SELECT `+issueColumns+` FROM tracked_issues WHERE LOWER(company_name) = LOWER($1)`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue by company %s: %w", name, err)
	}
	return issue, nil
}

func (s *PostgresStore) CreateIssue(ctx context.Context, i *model.TrackedIssue) error {
	var livePrice *string
	if i.LivePrice != nil {
		lp := i.LivePrice.String()
		livePrice = &lp
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tracked_issues (id, symbol, company_name, status, open_date, close_date,
		     price_per_unit, live_price, live_price_updated_at,
		     min_units, max_units, listing_date, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9, $10, $11, $12, $13, $14, $15)`,
		i.ID, i.Symbol, i.CompanyName, i.Status, i.OpenDate, i.CloseDate,
		i.PricePerUnit.String(), livePrice, i.LivePriceUpdatedAt,
		i.MinUnits, i.MaxUnits, i.ListingDate, i.Notes, i.CreatedAt, i.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) UpdateIssue(ctx context.Context, i *model.TrackedIssue) error {
	var livePrice *string
	if i.LivePrice != nil {
		lp := i.LivePrice.String()
		livePrice = &lp
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE tracked_issues
		 SET symbol = $2, company_name = $3, status = $4, open_date = $5, close_date = $6,
		     price_per_unit = $7::NUMERIC, live_price = $8::NUMERIC, live_price_updated_at = $9,
		     min_units = $10, max_units = $11, listing_date = $12, notes = $13, updated_at = $14
		 WHERE id = $1`,
		i.ID, i.Symbol, i.CompanyName, i.Status, i.OpenDate, i.CloseDate,
		i.PricePerUnit.String(), livePrice, i.LivePriceUpdatedAt,
		i.MinUnits, i.MaxUnits, i.ListingDate, i.Notes, i.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) ListIssues(ctx context.Context) ([]model.TrackedIssue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+issueColumns+` FROM tracked_issues ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIssues(rows)
}

func (s *PostgresStore) ListOpenIssues(ctx context.Context, asOf time.Time) ([]model.TrackedIssue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+issueColumns+` FROM tracked_issues
		 WHERE status = $1 AND (close_date IS NULL OR close_date >= $2)
		 ORDER BY created_at DESC`,
		model.StatusOpen, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIssues(rows)
}

func collectIssues(rows pgx.Rows) ([]model.TrackedIssue, error) {
	var issues []model.TrackedIssue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}
	return issues, rows.Err()
}

func (s *PostgresStore) ListActivePositionsByIssue(ctx context.Context, issueID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, issue_id, applied_units, allotted_units,
		        invested_amount::TEXT, current_price::TEXT, status
		 FROM positions WHERE issue_id = $1 AND status IN ($2, $3)`,
		issueID, model.PositionApplied, model.PositionAllotted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		var invested string
		var current *string
		if err := rows.Scan(&p.ID, &p.UserID, &p.IssueID, &p.AppliedUnits, &p.AllottedUnits,
			&invested, &current, &p.Status); err != nil {
			return nil, err
		}
		p.InvestedAmount, _ = decimal.NewFromString(invested)
		if current != nil {
			c, _ := decimal.NewFromString(*current)
			p.CurrentPrice = &c
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) UpdatePositionPrice(ctx context.Context, positionID string, price decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE positions SET current_price = $2::NUMERIC WHERE id = $1`,
		positionID, price.String())
	return err
}

func (s *PostgresStore) SetAllHoldingPrices(ctx context.Context, price decimal.Decimal) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE commodity_holdings SET current_price_per_unit = $1::NUMERIC`,
		price.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AvailableBalance sums active cash-like accounts for one user.
func (s *PostgresStore) AvailableBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0)::TEXT
		 FROM accounts
		 WHERE user_id = $1 AND active AND kind IN ('cash', 'bank', 'wallet')`,
		userID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("available balance for %s: %w", userID, err)
	}
	balance, _ := decimal.NewFromString(sum)
	return balance, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, message, url, level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Title, n.Message, n.URL, n.Level, n.CreatedAt)
	return err
}
