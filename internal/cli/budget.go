package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage the budget plan",
		Long: `Manage the single active budget plan. Category spending resets
automatically when the plan's period rolls over.`,
	}
	cmd.AddCommand(
		newBudgetCreateCmd(a),
		newBudgetShowCmd(a),
		newBudgetResetCmd(a),
		newBudgetReconcileCmd(a),
		newBudgetDraftCmd(a),
	)
	return cmd
}

func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("period", "p", string(core.Monthly), "Reset period: daily, weekly, monthly or yearly")
	cmd.Flags().String("total", "", "Total limit in major units")
	cmd.Flags().StringArrayP("category", "c", nil, "Category limit as NAME=LIMIT (repeatable)")
}

// draftFromFlags reads the plan flags into an unvalidated draft.
func draftFromFlags(cmd *cobra.Command) (core.BudgetDraft, error) {
	period, _ := cmd.Flags().GetString("period")
	total, _ := cmd.Flags().GetString("total")
	rows, _ := cmd.Flags().GetStringArray("category")

	draft := core.BudgetDraft{Period: period, TotalLimit: total}
	for _, row := range rows {
		name, limit, ok := strings.Cut(row, "=")
		if !ok {
			return core.BudgetDraft{}, fmt.Errorf("invalid --category %q: want NAME=LIMIT", row)
		}
		draft.Categories = append(draft.Categories, core.CategoryDraft{
			Name:  strings.TrimSpace(name),
			Limit: strings.TrimSpace(limit),
		})
	}
	return draft, nil
}

func newBudgetCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or replace the budget plan",
		Example: `  fintrack budget create --period monthly --total 3000000 -c Food=1500000 -c Transport=500000
  fintrack budget create --from-draft`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromDraft, _ := cmd.Flags().GetBool("from-draft")

			var draft core.BudgetDraft
			if fromDraft {
				saved, err := a.svc.Draft(cmd.Context())
				if err != nil {
					return err
				}
				if saved == nil {
					return fmt.Errorf("no saved budget draft")
				}
				draft = *saved
			} else {
				var err error
				if draft, err = draftFromFlags(cmd); err != nil {
					return err
				}
			}

			plan, err := a.svc.CreatePlanFromDraft(cmd.Context(), draft)
			if err != nil {
				return err
			}
			r := a.render()
			r.line("%s %s budget of %s across %d categories",
				r.st.title.Render("Created"), plan.Period, r.money(plan.TotalLimit), len(plan.Categories))
			return nil
		},
	}
	addPlanFlags(cmd)
	cmd.Flags().Bool("from-draft", false, "Create the plan from the saved draft")
	return cmd
}

func newBudgetShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the budget status",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			r := a.render()
			st, ok := a.svc.BudgetStatus()
			if !ok {
				r.noBudget()
				return nil
			}
			countdown, _ := a.svc.Countdown()
			r.budget(st, countdown)
			return nil
		},
	}
}

func newBudgetResetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset spending of every category now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("this clears spending for every category; rerun with --yes to confirm")
			}
			if err := a.svc.ResetBudget(cmd.Context()); err != nil {
				return err
			}
			r := a.render()
			r.line("%s", r.st.title.Render("Budget reset"))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm the reset")
	return cmd
}

func newBudgetReconcileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild category spending from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drifts, err := a.svc.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			r := a.render()
			if len(drifts) == 0 {
				r.line("%s", r.st.muted.Render("Budget matches the ledger."))
				return nil
			}
			for _, d := range drifts {
				r.line("Repaired %s: %s -> %s", d.Category, r.money(d.Cached), r.money(d.Replayed))
			}
			return nil
		},
	}
}

func newBudgetDraftCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save or show the unfinished budget form",
		Long: `Without flags, shows the saved draft. With plan flags, saves them
unvalidated so the plan can be finished later with 'budget create --from-draft'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := a.render()
			changed := cmd.Flags().Changed("period") || cmd.Flags().Changed("total") || cmd.Flags().Changed("category")
			if changed {
				draft, err := draftFromFlags(cmd)
				if err != nil {
					return err
				}
				if err := a.svc.SaveDraft(cmd.Context(), draft); err != nil {
					return err
				}
				r.line("%s", r.st.title.Render("Draft saved"))
				return nil
			}

			draft, err := a.svc.Draft(cmd.Context())
			if err != nil {
				return err
			}
			if draft == nil {
				r.line("%s", r.st.muted.Render("No saved draft."))
				return nil
			}
			r.field("Period", draft.Period)
			r.field("Total", draft.TotalLimit)
			for _, c := range draft.Categories {
				r.field("  "+c.Name, c.Limit)
			}
			r.field("Saved", draft.UpdatedAt.Format("2006-01-02 15:04"))
			return nil
		},
	}
	addPlanFlags(cmd)
	return cmd
}
