package core

import "github.com/shopspring/decimal"

// Summary aggregates income and expense totals.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryStat is the per-category slice of a breakdown.
type CategoryStat struct {
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// NamedCategoryStat pairs a CategoryStat with its category for ordered output.
type NamedCategoryStat struct {
	Category string `json:"category"`
	CategoryStat
}

// SeriesPoint is one bucket of a chart series.
type SeriesPoint struct {
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	Details []string        `json:"details"`
}

type AlertKind string

const (
	AlertDaily   AlertKind = "daily"
	AlertMonthly AlertKind = "monthly"
	AlertCustom  AlertKind = "custom"
)

// Alert reports a budget limit that has been exceeded. Start and End are set
// only for custom limits.
type Alert struct {
	Kind    AlertKind       `json:"kind"`
	Limit   decimal.Decimal `json:"limit"`
	Spent   decimal.Decimal `json:"spent"`
	Start   *Date           `json:"start,omitempty"`
	End     *Date           `json:"end,omitempty"`
	Message string          `json:"message"`
}

// GoalStatus is a goal with its derived progress.
type GoalStatus struct {
	IncomeGoal
	Progress float64 `json:"progress"`
}

// ReminderStatus is a reminder with its derived countdown.
type ReminderStatus struct {
	Reminder
	DaysRemaining int  `json:"days_remaining"`
	IsDue         bool `json:"is_due"`
}
