// Package ledger keeps the append/delete log of transactions together with its
// income, expense and balance aggregates.
//
// A Ledger is single-owner and not safe for concurrent use; callers that share
// one must serialize access.
package ledger

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

// Ledger is the authoritative transaction log.
type Ledger struct {
	txs     []core.Transaction
	income  int64
	expense int64
	lastID  int64
}

// New builds a ledger from persisted transactions, keeping their order.
func New(txs []core.Transaction) *Ledger {
	l := &Ledger{txs: make([]core.Transaction, 0, len(txs))}
	for _, tx := range txs {
		l.txs = append(l.txs, tx)
		l.account(tx, 1)
		if tx.ID > l.lastID {
			l.lastID = tx.ID
		}
	}
	return l
}

// Append validates the draft and records it as a transaction occurring today.
// Nothing is recorded when validation fails.
func (l *Ledger) Append(draft core.TransactionDraft, now time.Time) (core.Transaction, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          l.nextID(now),
		Description: draft.Description,
		Amount:      draft.Amount,
		Kind:        draft.Kind,
		Category:    draft.Category,
		OccurredAt:  core.DateOf(now),
		RecordedAt:  now,
	}
	l.txs = append(l.txs, tx)
	l.account(tx, 1)
	l.lastID = tx.ID
	return tx, nil
}

// nextID derives ids from the creation time while keeping them strictly increasing.
func (l *Ledger) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	return id
}

// Remove deletes the transaction with the given id and returns it so the
// caller can reverse its budget effect. Missing ids yield core.ErrNotFound and
// leave the ledger untouched.
func (l *Ledger) Remove(id int64) (core.Transaction, error) {
	i := l.indexOf(id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	tx := l.txs[i]
	l.txs = append(l.txs[:i], l.txs[i+1:]...)
	l.account(tx, -1)
	return tx, nil
}

// Restore puts back a previously removed transaction, keeping id order.
func (l *Ledger) Restore(tx core.Transaction) {
	if l.indexOf(tx.ID) >= 0 {
		return
	}
	i := sort.Search(len(l.txs), func(i int) bool { return l.txs[i].ID > tx.ID })
	l.txs = append(l.txs, core.Transaction{})
	copy(l.txs[i+1:], l.txs[i:])
	l.txs[i] = tx
	l.account(tx, 1)
	if tx.ID > l.lastID {
		l.lastID = tx.ID
	}
}

// Discard drops the most recently appended transaction if it has the given
// id. It undoes an Append whose persistence failed.
func (l *Ledger) Discard(id int64) {
	if n := len(l.txs); n > 0 && l.txs[n-1].ID == id {
		l.account(l.txs[n-1], -1)
		l.txs = l.txs[:n-1]
	}
}

// Get returns the transaction with the given id.
func (l *Ledger) Get(id int64) (core.Transaction, bool) {
	if i := l.indexOf(id); i >= 0 {
		return l.txs[i], true
	}
	return core.Transaction{}, false
}

// Totals returns the incrementally maintained aggregates.
func (l *Ledger) Totals() core.Totals {
	return core.Totals{
		Income:  core.Money{Cents: l.income},
		Expense: core.Money{Cents: l.expense},
		Balance: core.Money{Cents: l.income - l.expense},
	}
}

// Recompute derives the aggregates by a full scan of the log.
func (l *Ledger) Recompute() core.Totals {
	return Sum(l.txs)
}

// Sum aggregates an arbitrary set of transactions.
func Sum(txs []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		switch tx.Kind {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// All returns a copy of the log in insertion order.
func (l *Ledger) All() []core.Transaction {
	return append([]core.Transaction(nil), l.txs...)
}

// Recent returns a copy of the log, most recent first.
func (l *Ledger) Recent() []core.Transaction {
	out := make([]core.Transaction, len(l.txs))
	for i, tx := range l.txs {
		out[len(l.txs)-1-i] = tx
	}
	return out
}

// Len is the number of retained transactions.
func (l *Ledger) Len() int {
	return len(l.txs)
}

func (l *Ledger) indexOf(id int64) int {
	for i := range l.txs {
		if l.txs[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) account(tx core.Transaction, sign int64) {
	switch tx.Kind {
	case core.Income:
		l.income += sign * tx.Amount.Cents
	case core.Expense:
		l.expense += sign * tx.Amount.Cents
	}
}
