package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"fintrack/internal/core"
	"fintrack/internal/notify"
	"fintrack/internal/services"
)

const barWidth = 30

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	income  lipgloss.Style
	expense lipgloss.Style
	warn    lipgloss.Style
	danger  lipgloss.Style
	muted   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true),
		income:  lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		expense: lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")).Bold(true),
		danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")),
	}
}

// renderer writes styled output for one command invocation. Lines are
// written whole so concurrent loops do not interleave.
type renderer struct {
	w        io.Writer
	mu       *sync.Mutex
	st       styles
	currency string
}

func (r renderer) money(m core.Money) string {
	return m.Format(r.currency)
}

func (r renderer) line(format string, args ...any) {
	if r.mu != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	fmt.Fprintf(r.w, format+"\n", args...)
}

func (r renderer) field(label, value string) {
	r.line("%s %s", r.st.label.Width(16).Render(label), value)
}

func (r renderer) totals(t core.Totals) {
	r.line("%s", r.st.title.Render("Balance"))
	r.field("Income", r.st.income.Render(r.money(t.Income)))
	r.field("Expenses", r.st.expense.Render(r.money(t.Expense)))
	balance := r.st.value.Render(r.money(t.Balance))
	if t.Balance.IsNegative() {
		balance = r.st.danger.Render(r.money(t.Balance))
	}
	r.field("Balance", balance)
	if t.LowBalance() {
		r.line("%s", r.st.warn.Render("Warning: balance is below 20% of total income"))
	}
}

func (r renderer) transaction(tx core.Transaction) string {
	amount := r.st.income.Render("+" + r.money(tx.Amount))
	if tx.IsExpense() {
		amount = r.st.expense.Render("-" + r.money(tx.Amount))
	}
	return fmt.Sprintf("%s  %s  %s  %s  %s",
		r.st.muted.Render(fmt.Sprintf("#%d", tx.ID)),
		tx.OccurredAt.String(),
		lipgloss.NewStyle().Width(24).Render(tx.Description),
		lipgloss.NewStyle().Width(14).Render(tx.Category),
		amount,
	)
}

func (r renderer) transactions(txs []core.Transaction) {
	if len(txs) == 0 {
		r.line("%s", r.st.muted.Render("No transactions yet."))
		return
	}
	for _, tx := range txs {
		r.line("%s", r.transaction(tx))
	}
}

func (r renderer) budget(st core.BudgetStatus, countdown string) {
	r.line("%s", r.st.title.Render(fmt.Sprintf("Budget (%s)", st.Plan.Period)))
	r.field("Limit", r.st.value.Render(r.money(st.Plan.TotalLimit)))
	r.field("Spent", fmt.Sprintf("%s (%.1f%%)", r.money(st.TotalSpent), st.PercentUsed))

	remaining := r.st.value.Render(r.money(st.Remaining))
	switch {
	case st.Flags.OverLimit:
		remaining = r.st.danger.Render(r.money(st.Remaining) + "  over budget")
	case st.Flags.NearLimit:
		remaining = r.st.warn.Render(r.money(st.Remaining) + "  near limit")
	}
	r.field("Remaining", remaining)
	if countdown != "" {
		r.field("Next reset in", countdown)
	}

	r.line("")
	for _, c := range st.Categories {
		rem := r.money(c.Remaining)
		if c.Remaining.IsNegative() {
			rem = r.st.danger.Render(rem)
		}
		r.line("  %s %s / %s  %s left",
			lipgloss.NewStyle().Width(16).Render(c.Name),
			r.money(c.Spent),
			r.money(c.Limit),
			rem,
		)
	}
}

func (r renderer) noBudget() {
	r.line("%s", r.st.muted.Render("No budget plan. Create one with: fintrack budget create"))
}

func (r renderer) overview(ov services.Overview, countdown string) {
	r.totals(ov.Totals)
	r.line("")
	if ov.Budget != nil {
		r.budget(*ov.Budget, countdown)
	} else {
		r.noBudget()
	}
	r.line("")
	r.line("%s", r.st.title.Render("Recent"))
	r.transactions(ov.Recent)
}

// chart draws one income and one expense bar per bucket, scaled to the
// largest bucket of the window.
func (r renderer) chart(s core.Series) {
	var peak int64
	for i := range s.Labels {
		peak = max(peak, s.Income[i].Cents, s.Expense[i].Cents)
	}
	bar := func(m core.Money) string {
		if peak == 0 || m.Cents <= 0 {
			return ""
		}
		n := int(m.Cents * barWidth / peak)
		return strings.Repeat("█", max(n, 1))
	}

	r.line("%s", r.st.title.Render(fmt.Sprintf("Income vs expenses (%s)", s.Period)))
	for i, label := range s.Labels {
		name := r.st.label.Width(10).Render(label)
		r.line("%s %s %s", name,
			r.st.income.Render(lipgloss.NewStyle().Width(barWidth).Render(bar(s.Income[i]))),
			r.money(s.Income[i]))
		r.line("%s %s %s", strings.Repeat(" ", 10),
			r.st.expense.Render(lipgloss.NewStyle().Width(barWidth).Render(bar(s.Expense[i]))),
			r.money(s.Expense[i]))
	}

	sum := s.Summary()
	r.line("")
	r.field("Total income", r.st.income.Render(r.money(sum.Income)))
	r.field("Total expenses", r.st.expense.Render(r.money(sum.Expense)))
	r.field("Net", r.st.value.Render(r.money(sum.Net)))
}

func (r renderer) event(e notify.Event) {
	text := e.Describe(r.currency)
	switch e.Type {
	case notify.EventOverLimit, notify.EventValidationFailed:
		text = r.st.danger.Render(text)
	case notify.EventNearLimit:
		text = r.st.warn.Render(text)
	}
	r.line("%s %s", r.st.muted.Render(e.At.Format("2006-01-02 15:04:05")), text)
}
