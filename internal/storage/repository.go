package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, kind, category, occurred_on, recorded_at
		FROM transactions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx                   core.Transaction
			kind, on, recordedAt string
		)
		if err := rows.Scan(&tx.ID, &tx.Description, &tx.Amount.Cents, &kind, &tx.Category, &on, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Kind = core.Kind(kind)
		if tx.OccurredAt, err = core.ParseDate(on); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		if tx.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
			return nil, fmt.Errorf("transaction %d recorded_at: %w", tx.ID, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, description, amount_cents, kind, category, occurred_on, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Description, tx.Amount.Cents, string(tx.Kind), tx.Category,
		tx.OccurredAt.String(), tx.RecordedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert transaction %d: %w", tx.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) LoadBudget(ctx context.Context) (*core.BudgetPlan, error) {
	var plan core.BudgetPlan
	ok, err := r.loadDocument(ctx, KeyBudget, &plan)
	if err != nil || !ok {
		return nil, err
	}
	return &plan, nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, plan *core.BudgetPlan) error {
	if plan == nil {
		_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, KeyBudget)
		if err != nil {
			return fmt.Errorf("clear budget: %w", err)
		}
		return nil
	}
	return r.saveDocument(ctx, KeyBudget, plan)
}

func (r *SQLiteRepository) LoadDraft(ctx context.Context) (*core.BudgetDraft, error) {
	var draft core.BudgetDraft
	ok, err := r.loadDocument(ctx, KeyBudgetFormState, &draft)
	if err != nil || !ok {
		return nil, err
	}
	return &draft, nil
}

func (r *SQLiteRepository) SaveDraft(ctx context.Context, draft core.BudgetDraft) error {
	return r.saveDocument(ctx, KeyBudgetFormState, draft)
}

func (r *SQLiteRepository) loadDocument(ctx context.Context, key string, v any) (bool, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *SQLiteRepository) saveDocument(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
