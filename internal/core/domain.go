package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// IncomeCategory is the fixed category label carried by every income transaction.
const IncomeCategory = "income"

// MaxDescriptionLength bounds transaction descriptions.
const MaxDescriptionLength = 200

type (
	// Period is the recurring interval after which category spend resets.
	Period string

	// Kind tells income and expense transactions apart.
	Kind string

	// TransactionDraft is the user input for a new transaction.
	TransactionDraft struct {
		Description string
		Amount      Money
		Kind        Kind
		Category    string
	}

	// Transaction is an immutable ledger entry.
	Transaction struct {
		ID          int64     `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Kind        Kind      `json:"type"`
		Category    string    `json:"category"`
		OccurredAt  Date      `json:"date"`
		RecordedAt  time.Time `json:"recordedAt"`
	}
)

// Periods returns every supported period in display order.
func Periods() []Period {
	return []Period{Daily, Weekly, Monthly, Yearly}
}

// ParsePeriod converts user input into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p Period) Validate() error {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
	}
}

func (p Period) String() string {
	return string(p)
}

// ParseKind converts user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// TransactionInput is unparsed transaction form input: the amount is a
// decimal string in major units and the type is "income" or "expense".
type TransactionInput struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
}

// Draft parses the amount and the type. Both failures are validation errors.
func (in TransactionInput) Draft() (TransactionDraft, error) {
	amount, err := ParseMoney(in.Amount)
	if err != nil {
		return TransactionDraft{}, err
	}
	kind, err := ParseKind(in.Type)
	if err != nil {
		return TransactionDraft{}, err
	}
	return TransactionDraft{
		Description: in.Description,
		Amount:      amount,
		Kind:        kind,
		Category:    in.Category,
	}, nil
}

// Normalize trims the draft and pins the income category to its sentinel.
func (d TransactionDraft) Normalize() TransactionDraft {
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	if d.Kind == Income {
		d.Category = IncomeCategory
	}
	return d
}

func (d TransactionDraft) Validate() error {
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(d.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if d.Kind == Expense && strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// IsExpense reports whether the transaction counts against the budget.
func (t Transaction) IsExpense() bool {
	return t.Kind == Expense
}
