package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or expense dated today",
		Example: `  fintrack add --type income --amount 5000000 --desc Salary
  fintrack add --amount 45000 --category Food --desc Lunch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdd(cmd, a)
		},
	}
	cmd.Flags().StringP("type", "t", string(core.Expense), "Transaction type: income or expense")
	cmd.Flags().StringP("amount", "a", "", "Amount in major units, e.g. 12.50")
	cmd.Flags().StringP("category", "c", "", "Budget category (expenses only)")
	cmd.Flags().StringP("desc", "d", "", "Description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("desc")
	return cmd
}

func runAdd(cmd *cobra.Command, a *app) error {
	kindFlag, _ := cmd.Flags().GetString("type")
	amountFlag, _ := cmd.Flags().GetString("amount")
	category, _ := cmd.Flags().GetString("category")
	desc, _ := cmd.Flags().GetString("desc")

	tx, err := a.svc.AddTransactionInput(cmd.Context(), core.TransactionInput{
		Description: desc,
		Amount:      amountFlag,
		Type:        kindFlag,
		Category:    category,
	})
	if err != nil {
		return err
	}

	r := a.render()
	r.line("%s %s", r.st.title.Render("Recorded"), r.transaction(tx))
	if st, ok := a.svc.BudgetStatus(); ok && tx.IsExpense() {
		switch {
		case st.Flags.OverLimit:
			r.line("%s", r.st.danger.Render(fmt.Sprintf("Over budget by %s", r.money(core.Money{Cents: -st.Remaining.Cents}))))
		case st.Flags.NearLimit:
			r.line("%s", r.st.warn.Render(fmt.Sprintf("Only %s left in this budget period", r.money(st.Remaining))))
		}
	}
	return nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			tx, err := a.svc.DeleteTransaction(cmd.Context(), id)
			if err != nil {
				return err
			}
			r := a.render()
			r.line("%s %s", r.st.title.Render("Deleted"), r.transaction(tx))
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			txs := a.svc.Transactions()
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			a.render().transactions(txs)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "Show at most n transactions (0 for all)")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balance, budget status and recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			countdown, _ := a.svc.Countdown()
			a.render().overview(a.svc.Overview(), countdown)
			return nil
		},
	}
}
