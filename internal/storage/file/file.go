// Package file keeps each persisted document as a JSON file in one directory.
// Every write goes to a temporary file that is renamed over the target, so a
// crash leaves either the old or the new document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	transactionsFile = "transactions.json"
	budgetFile       = storage.KeyBudget + ".json"
	draftFile        = storage.KeyBudgetFormState + ".json"
)

type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates dir if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir is the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTransactions()
}

func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.readTransactions()
	if err != nil {
		return err
	}
	return s.write(transactionsFile, append(txs, tx))
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.readTransactions()
	if err != nil {
		return err
	}
	for i, tx := range txs {
		if tx.ID == id {
			return s.write(transactionsFile, append(txs[:i], txs[i+1:]...))
		}
	}
	return nil
}

func (s *Store) LoadBudget(_ context.Context) (*core.BudgetPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var plan *core.BudgetPlan
	if _, err := s.read(budgetFile, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// SaveBudget writes the whole plan, including lastReset, in one rename.
func (s *Store) SaveBudget(_ context.Context, plan *core.BudgetPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if plan == nil {
		err := os.Remove(filepath.Join(s.dir, budgetFile))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear budget: %w", err)
		}
		return nil
	}
	return s.write(budgetFile, plan)
}

func (s *Store) LoadDraft(_ context.Context) (*core.BudgetDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var draft *core.BudgetDraft
	if _, err := s.read(draftFile, &draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *Store) SaveDraft(_ context.Context, draft core.BudgetDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(draftFile, draft)
}

func (s *Store) Close() error { return nil }

func (s *Store) readTransactions() ([]core.Transaction, error) {
	var txs []core.Transaction
	if _, err := s.read(transactionsFile, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// read decodes name into v and reports whether the file existed.
func (s *Store) read(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
