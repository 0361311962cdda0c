// Package analytics derives totals, breakdowns, chart series and budget
// alerts from in-memory collections. Nothing in this package performs I/O or
// mutates its inputs.
//
// This file implements the Strategy Pattern for time frames. Each frame (day,
// month, all) decides which instants it contains and how an instant is
// labelled when bucketed for a chart.
package analytics

import (
	"fmt"
	"time"

	"finanzas/internal/core"
)

// FrameStrategy is the strategy interface for a time frame. Both instants are
// already converted to the evaluator's view location.
type FrameStrategy interface {
	// Contains reports whether t falls inside the frame anchored at ref.
	Contains(t, ref time.Time) bool
	// Bucket returns the zero padded chart label for t.
	Bucket(t time.Time) string
}

// DayFrame groups by minute of the reference day.
type DayFrame struct{}

func (DayFrame) Contains(t, ref time.Time) bool {
	ty, tm, td := t.Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

func (DayFrame) Bucket(t time.Time) string {
	return t.Format("15:04")
}

// MonthFrame groups by day of the reference month.
type MonthFrame struct{}

func (MonthFrame) Contains(t, ref time.Time) bool {
	return t.Year() == ref.Year() && t.Month() == ref.Month()
}

func (MonthFrame) Bucket(t time.Time) string {
	return t.Format("02")
}

// AllFrame contains everything and groups by calendar date.
type AllFrame struct{}

func (AllFrame) Contains(_, _ time.Time) bool {
	return true
}

func (AllFrame) Bucket(t time.Time) string {
	return t.Format(core.DateLayout)
}

var frameStrategies = map[core.TimeFrame]FrameStrategy{
	core.FrameDay:   DayFrame{},
	core.FrameMonth: MonthFrame{},
	core.FrameAll:   AllFrame{},
}

// GetFrameStrategy returns the strategy for a time frame.
func GetFrameStrategy(frame core.TimeFrame) (FrameStrategy, error) {
	s, ok := frameStrategies[frame]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidTimeFrame, frame)
	}
	return s, nil
}
