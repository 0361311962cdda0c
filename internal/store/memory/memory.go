package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

// Store keeps every user's data in process memory. It backs the demo and
// the memory data backend.
type Store struct {
	mu           sync.Mutex
	transactions map[string][]core.Transaction
	goals        map[string][]core.IncomeGoal
	reminders    map[string][]core.Reminder
	limits       map[string]core.BudgetLimits
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: make(map[string][]core.Transaction),
		goals:        make(map[string][]core.IncomeGoal),
		reminders:    make(map[string][]core.Reminder),
		limits:       make(map[string]core.BudgetLimits),
	}
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// CreateTransaction stores the transaction under a fresh id.
func (s *Store) CreateTransaction(_ context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.UserID = userID
	s.transactions[userID] = append(s.transactions[userID], t)
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions[userID] {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction{}, s.transactions[userID]...), nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.transactions[userID]
	for i := range items {
		if items[i].ID == id {
			t.ID, t.UserID = id, userID
			items[i] = t
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.transactions[userID]
	for i := range items {
		if items[i].ID == id {
			s.transactions[userID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateGoal(_ context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.UserID = userID
	g.Notes = cloneNotes(g.Notes)
	s.goals[userID] = append(s.goals[userID], g)
	return g, nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.IncomeGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.goals[userID] {
		if g.ID == id {
			g.Notes = cloneNotes(g.Notes)
			return g, nil
		}
	}
	return core.IncomeGoal{}, store.ErrNotFound
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.IncomeGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.IncomeGoal, 0, len(s.goals[userID]))
	for _, g := range s.goals[userID] {
		g.Notes = cloneNotes(g.Notes)
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) UpdateGoal(_ context.Context, userID, id string, g core.IncomeGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.goals[userID]
	for i := range items {
		if items[i].ID == id {
			g.ID, g.UserID = id, userID
			g.Notes = cloneNotes(g.Notes)
			items[i] = g
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.goals[userID]
	for i := range items {
		if items[i].ID == id {
			s.goals[userID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateReminder(_ context.Context, userID string, r core.Reminder) (core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	r.UserID = userID
	r.Notes = cloneNotes(r.Notes)
	s.reminders[userID] = append(s.reminders[userID], r)
	return r, nil
}

func (s *Store) GetReminder(_ context.Context, userID, id string) (core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reminders[userID] {
		if r.ID == id {
			r.Notes = cloneNotes(r.Notes)
			return r, nil
		}
	}
	return core.Reminder{}, store.ErrNotFound
}

func (s *Store) ListReminders(_ context.Context, userID string) ([]core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Reminder, 0, len(s.reminders[userID]))
	for _, r := range s.reminders[userID] {
		r.Notes = cloneNotes(r.Notes)
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) UpdateReminder(_ context.Context, userID, id string, r core.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.reminders[userID]
	for i := range items {
		if items[i].ID == id {
			r.ID, r.UserID = id, userID
			r.Notes = cloneNotes(r.Notes)
			items[i] = r
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteReminder(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.reminders[userID]
	for i := range items {
		if items[i].ID == id {
			s.reminders[userID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) GetBudgetLimits(_ context.Context, userID string) (core.BudgetLimits, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limits[userID]
	if !ok {
		return core.BudgetLimits{}, false, nil
	}
	l.Custom = append([]core.CustomLimit{}, l.Custom...)
	return l, true, nil
}

func (s *Store) PutBudgetLimits(_ context.Context, userID string, limits core.BudgetLimits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	limits.Custom = append([]core.CustomLimit{}, limits.Custom...)
	s.limits[userID] = limits
	return nil
}

func cloneNotes(in []string) []string {
	return append([]string{}, in...)
}
