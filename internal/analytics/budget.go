package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// BudgetAlerts evaluates the daily, monthly and custom limits against
// expenses as of now. All three checks run in Bogota time and independently,
// so several alerts may be returned together. A limit is exceeded only when
// spending is strictly greater than it. Non-expense transactions are ignored.
func BudgetAlerts(txs []core.Transaction, limits core.BudgetLimits, now time.Time) []core.Alert {
	today := core.DateOf(now, Bogota)

	daily, monthly := decimal.Zero, decimal.Zero
	custom := make([]decimal.Decimal, len(limits.Custom))
	for i := range custom {
		custom[i] = decimal.Zero
	}

	for _, tx := range txs {
		if tx.Kind != core.KindExpense {
			continue
		}
		day := core.DateOf(tx.Date, Bogota)
		if day == today {
			daily = daily.Add(tx.Amount)
		}
		if day.Year() == today.Year() && day.Month() == today.Month() {
			monthly = monthly.Add(tx.Amount)
		}
		for i, c := range limits.Custom {
			if day.Between(c.Start, c.End) {
				custom[i] = custom[i].Add(tx.Amount)
			}
		}
	}

	alerts := []core.Alert{}
	if daily.GreaterThan(limits.Daily) {
		alerts = append(alerts, core.Alert{
			Kind:    core.AlertDaily,
			Limit:   limits.Daily,
			Spent:   daily,
			Message: fmt.Sprintf("Daily limit exceeded: spent %s of %s", core.FormatAmount(daily), core.FormatAmount(limits.Daily)),
		})
	}
	if monthly.GreaterThan(limits.Monthly) {
		alerts = append(alerts, core.Alert{
			Kind:    core.AlertMonthly,
			Limit:   limits.Monthly,
			Spent:   monthly,
			Message: fmt.Sprintf("Monthly limit exceeded: spent %s of %s", core.FormatAmount(monthly), core.FormatAmount(limits.Monthly)),
		})
	}
	for i, c := range limits.Custom {
		if !custom[i].GreaterThan(c.Amount) {
			continue
		}
		start, end := c.Start, c.End
		alerts = append(alerts, core.Alert{
			Kind:  core.AlertCustom,
			Limit: c.Amount,
			Spent: custom[i],
			Start: &start,
			End:   &end,
			Message: fmt.Sprintf("Custom limit (%s - %s) exceeded: spent %s of %s",
				c.Start, c.End, core.FormatAmount(custom[i]), core.FormatAmount(c.Amount)),
		})
	}
	return alerts
}
