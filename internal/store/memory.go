package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paisa-labs/market-sync/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu            sync.RWMutex
	issues        map[string]*model.TrackedIssue
	positions     map[string]*model.Position
	holdings      map[string]*model.CommodityHolding
	users         []model.User
	balances      map[string]decimal.Decimal
	notifications []model.Notification
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		issues:    make(map[string]*model.TrackedIssue),
		positions: make(map[string]*model.Position),
		holdings:  make(map[string]*model.CommodityHolding),
		balances:  make(map[string]decimal.Decimal),
	}
}

func (s *MemoryStore) GetIssueBySymbol(_ context.Context, symbol string) (*model.TrackedIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, i := range s.issues {
		if i.Symbol != "" && strings.EqualFold(i.Symbol, symbol) {
			copy := *i
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetIssueByCompany(_ context.Context, name string) (*model.TrackedIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, i := range s.issues {
		if strings.EqualFold(i.CompanyName, name) {
			copy := *i
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateIssue(_ context.Context, issue *model.TrackedIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	copy := *issue
	s.issues[issue.ID] = &copy
	return nil
}

func (s *MemoryStore) UpdateIssue(_ context.Context, issue *model.TrackedIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[issue.ID]; !ok {
		return ErrNotFound
	}
	copy := *issue
	s.issues[issue.ID] = &copy
	return nil
}

func (s *MemoryStore) ListIssues(_ context.Context) ([]model.TrackedIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issues := make([]model.TrackedIssue, 0, len(s.issues))
	for _, i := range s.issues {
		issues = append(issues, *i)
	}
	return issues, nil
}

func (s *MemoryStore) ListOpenIssues(_ context.Context, asOf time.Time) ([]model.TrackedIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issues []model.TrackedIssue
	for _, i := range s.issues {
		if i.Status != model.StatusOpen {
			continue
		}
		if i.CloseDate != nil && i.CloseDate.Before(asOf) {
			continue
		}
		issues = append(issues, *i)
	}
	return issues, nil
}

func (s *MemoryStore) ListActivePositionsByIssue(_ context.Context, issueID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []model.Position
	for _, p := range s.positions {
		if p.IssueID != issueID {
			continue
		}
		if p.Status != model.PositionApplied && p.Status != model.PositionAllotted {
			continue
		}
		positions = append(positions, *p)
	}
	return positions, nil
}

func (s *MemoryStore) UpdatePositionPrice(_ context.Context, positionID string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[positionID]
	if !ok {
		return ErrNotFound
	}
	p.CurrentPrice = &price
	return nil
}

func (s *MemoryStore) SetAllHoldingPrices(_ context.Context, price decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.holdings {
		v := price
		h.CurrentPricePerUnit = &v
	}
	return int64(len(s.holdings)), nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.User(nil), s.users...), nil
}

func (s *MemoryStore) AvailableBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[userID], nil
}

func (s *MemoryStore) InsertNotification(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, *n)
	return nil
}

// --- Seed and inspection helpers for tests ---

// AddUser seeds a user with an available balance.
func (s *MemoryStore) AddUser(u model.User, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, u)
	s.balances[u.ID] = balance
}

// AddPosition seeds a position.
func (s *MemoryStore) AddPosition(p model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := p
	s.positions[p.ID] = &copy
}

// AddHolding seeds a commodity holding.
func (s *MemoryStore) AddHolding(h model.CommodityHolding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := h
	s.holdings[h.ID] = &copy
}

// Position returns a seeded position by ID.
func (s *MemoryStore) Position(id string) (model.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Holding returns a seeded holding by ID.
func (s *MemoryStore) Holding(id string) (model.CommodityHolding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holdings[id]
	if !ok {
		return model.CommodityHolding{}, false
	}
	return *h, true
}

// Notifications returns all recorded in-app notifications.
func (s *MemoryStore) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Notification(nil), s.notifications...)
}
