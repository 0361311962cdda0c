package analytics

import (
	"sort"
	"time"

	"finanzas/internal/core"
)

// GoalProgress returns accumulated/target as a percentage clamped to
// [0, 100]. A goal without a positive target has no progress.
func GoalProgress(g core.IncomeGoal) float64 {
	if !g.Target.IsPositive() || !g.Accumulated.IsPositive() {
		return 0
	}
	p := g.Accumulated.Div(g.Target).Mul(hundred).Round(2)
	if p.GreaterThan(hundred) {
		return 100
	}
	return p.InexactFloat64()
}

// GoalStatuses pairs each goal with its progress, keeping input order.
func GoalStatuses(goals []core.IncomeGoal) []core.GoalStatus {
	out := make([]core.GoalStatus, 0, len(goals))
	for _, g := range goals {
		out = append(out, core.GoalStatus{IncomeGoal: g, Progress: GoalProgress(g)})
	}
	return out
}

// DaysUntil counts calendar days from now's date in the view zone to due.
// Zero or less means the reminder is due.
func (e *Evaluator) DaysUntil(due core.Date, now time.Time) int {
	today := core.DateOf(now, e.view)
	return int(due.Sub(today.Time).Hours() / 24)
}

// UpcomingReminders returns reminders due today or later, soonest first.
func (e *Evaluator) UpcomingReminders(reminders []core.Reminder, now time.Time) []core.ReminderStatus {
	today := core.DateOf(now, e.view)
	out := make([]core.ReminderStatus, 0, len(reminders))
	for _, r := range reminders {
		if r.Due.Before(today.Time) {
			continue
		}
		days := e.DaysUntil(r.Due, now)
		out = append(out, core.ReminderStatus{Reminder: r, DaysRemaining: days, IsDue: days <= 0})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Due.Before(out[j].Due.Time)
	})
	return out
}
