package budget

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// ParseDraft turns budget form input into plan arguments. Rows with neither a
// name nor a limit are skipped; a blank limit means zero.
func ParseDraft(d core.BudgetDraft) (core.Period, core.Money, []core.CategoryLimit, error) {
	period, err := core.ParsePeriod(d.Period)
	if err != nil {
		return "", core.Money{}, nil, err
	}
	total, err := core.ParseMoney(d.TotalLimit)
	if err != nil {
		return "", core.Money{}, nil, fmt.Errorf("%w: total limit %q", core.ErrInvalidLimit, d.TotalLimit)
	}

	cats := make([]core.CategoryLimit, 0, len(d.Categories))
	for _, row := range d.Categories {
		name := strings.TrimSpace(row.Name)
		raw := strings.TrimSpace(row.Limit)
		if name == "" && raw == "" {
			continue
		}
		var limit core.Money
		if raw != "" {
			if limit, err = core.ParseLimit(raw); err != nil {
				return "", core.Money{}, nil, fmt.Errorf("%w: category %q limit %q", core.ErrInvalidLimit, name, row.Limit)
			}
		}
		cats = append(cats, core.CategoryLimit{Name: name, Limit: limit})
	}
	return period, total, cats, nil
}
