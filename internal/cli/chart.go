package cli

import (
	"github.com/spf13/cobra"

	"fintrack/internal/core"
)

func newChartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Chart income against expenses",
		Long: `Chart income against expenses ending today:
  daily    the last 7 days
  weekly   the last 8 rolling 7-day windows
  monthly  the last 12 calendar months
  yearly   the last 5 calendar years`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, _ := cmd.Flags().GetString("period")
			period, err := core.ParsePeriod(raw)
			if err != nil {
				return err
			}
			series, err := a.svc.Series(period)
			if err != nil {
				return err
			}
			a.render().chart(series)
			return nil
		},
	}
	cmd.Flags().StringP("period", "p", string(core.Daily), "Chart period: daily, weekly, monthly or yearly")
	return cmd
}
