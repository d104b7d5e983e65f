// Package memory is a process-local store. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
)

type Store struct {
	mu    sync.Mutex
	txs   []core.Transaction
	plan  *core.BudgetPlan
	draft *core.BudgetDraft
}

func New() *Store {
	return &Store{}
}

// NewWith seeds the store with existing state.
func NewWith(txs []core.Transaction, plan *core.BudgetPlan) *Store {
	s := &Store{txs: append([]core.Transaction(nil), txs...)}
	if plan != nil {
		p := plan.Clone()
		s.plan = &p
	}
	return s
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) LoadBudget(_ context.Context) (*core.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return nil, nil
	}
	p := s.plan.Clone()
	return &p, nil
}

func (s *Store) SaveBudget(_ context.Context, plan *core.BudgetPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if plan == nil {
		s.plan = nil
		return nil
	}
	p := plan.Clone()
	s.plan = &p
	return nil
}

func (s *Store) LoadDraft(_ context.Context) (*core.BudgetDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil, nil
	}
	d := *s.draft
	d.Categories = append([]core.CategoryDraft(nil), d.Categories...)
	return &d, nil
}

func (s *Store) SaveDraft(_ context.Context, draft core.BudgetDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft.Categories = append([]core.CategoryDraft(nil), draft.Categories...)
	s.draft = &draft
	return nil
}

func (s *Store) Close() error { return nil }
