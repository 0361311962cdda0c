package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// BogotaZoneName is the business time zone budgets are anchored to.
const BogotaZoneName = "America/Bogota"

// Bogota is UTC-5 with no daylight saving, so a fixed zone is exact and does
// not depend on the host tz database.
var Bogota = time.FixedZone(BogotaZoneName, -5*60*60)

var ErrInvalidDate = errors.New("invalid reference date")

var hundred = decimal.NewFromInt(100)

// Evaluator computes view data. Time frame filtering and chart bucketing use
// the view location; budget alerts always use Bogota.
type Evaluator struct {
	view *time.Location
}

type Option func(*Evaluator)

// WithViewLocation sets the zone used for time frames and chart labels.
func WithViewLocation(loc *time.Location) Option {
	return func(e *Evaluator) {
		if loc != nil {
			e.view = loc
		}
	}
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{view: Bogota}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ViewLocation returns the zone used for time frames.
func (e *Evaluator) ViewLocation() *time.Location {
	return e.view
}

// LoadLocation resolves a zone name, serving Bogota without the tz database.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == BogotaZoneName {
		return Bogota, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

var referenceLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	core.DateLayout,
}

// ParseReferenceDate parses an ISO-8601 date or date-time. Values without an
// offset are read in loc. Malformed input returns ErrInvalidDate; nothing is
// coerced to now or to the epoch.
func ParseReferenceDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = Bogota
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range referenceLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// MustParseReferenceDate is ParseReferenceDate for constants. It panics on
// malformed input.
func MustParseReferenceDate(s string, loc *time.Location) time.Time {
	t, err := ParseReferenceDate(s, loc)
	if err != nil {
		panic(err)
	}
	return t
}

func (e *Evaluator) strategy(frame core.TimeFrame) FrameStrategy {
	s, err := GetFrameStrategy(frame)
	if err != nil {
		return AllFrame{}
	}
	return s
}

func (e *Evaluator) inFrame(s FrameStrategy, t, ref time.Time) bool {
	return s.Contains(t.In(e.view), ref.In(e.view))
}

// ByKind returns the transactions of one kind, preserving order.
func ByKind(txs []core.Transaction, kind core.Kind) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Kind == kind {
			out = append(out, tx)
		}
	}
	return out
}

// Total sums the amounts of txs that fall in frame. Category and kind are
// not filtered; ref is ignored for FrameAll.
func (e *Evaluator) Total(txs []core.Transaction, frame core.TimeFrame, ref time.Time) decimal.Decimal {
	s := e.strategy(frame)
	total := decimal.Zero
	for _, tx := range txs {
		if e.inFrame(s, tx.Date, ref) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Summarize splits the frame's totals by kind.
func (e *Evaluator) Summarize(txs []core.Transaction, frame core.TimeFrame, ref time.Time) core.Summary {
	s := e.strategy(frame)
	var sum core.Summary
	for _, tx := range txs {
		if !e.inFrame(s, tx.Date, ref) {
			continue
		}
		switch tx.Kind {
		case core.KindIncome:
			sum.Income = sum.Income.Add(tx.Amount)
		case core.KindExpense:
			sum.Expense = sum.Expense.Add(tx.Amount)
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	return sum
}

// RangeTotals sums income and expenses whose view-zone date lies in the
// inclusive range [start, end].
func (e *Evaluator) RangeTotals(txs []core.Transaction, start, end core.Date) core.Summary {
	var sum core.Summary
	for _, tx := range txs {
		if !core.DateOf(tx.Date, e.view).Between(start, end) {
			continue
		}
		switch tx.Kind {
		case core.KindIncome:
			sum.Income = sum.Income.Add(tx.Amount)
		case core.KindExpense:
			sum.Expense = sum.Expense.Add(tx.Amount)
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	return sum
}

// CategoryBreakdown groups the frame's transactions by category. Percentages
// are shares of the frame total rounded to two places; an empty or zero total
// never produces NaN.
func (e *Evaluator) CategoryBreakdown(txs []core.Transaction, frame core.TimeFrame, ref time.Time) map[string]core.CategoryStat {
	s := e.strategy(frame)
	out := make(map[string]core.CategoryStat)
	total := decimal.Zero
	for _, tx := range txs {
		if !e.inFrame(s, tx.Date, ref) {
			continue
		}
		stat := out[tx.Category]
		stat.Amount = stat.Amount.Add(tx.Amount)
		stat.Count++
		out[tx.Category] = stat
		total = total.Add(tx.Amount)
	}
	for category, stat := range out {
		stat.Percentage = percentage(stat.Amount, total)
		out[category] = stat
	}
	return out
}

func percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).Round(2).InexactFloat64()
}

// SortedBreakdown orders a breakdown by amount descending, then by name.
func SortedBreakdown(breakdown map[string]core.CategoryStat) []core.NamedCategoryStat {
	out := make([]core.NamedCategoryStat, 0, len(breakdown))
	for category, stat := range breakdown {
		out = append(out, core.NamedCategoryStat{Category: category, CategoryStat: stat})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TimeSeries buckets the frame's transactions for charting. Points are sorted
// by label; details keep encounter order.
func (e *Evaluator) TimeSeries(txs []core.Transaction, frame core.TimeFrame, ref time.Time) []core.SeriesPoint {
	s := e.strategy(frame)
	index := make(map[string]int)
	var points []core.SeriesPoint
	for _, tx := range txs {
		if !e.inFrame(s, tx.Date, ref) {
			continue
		}
		label := s.Bucket(tx.Date.In(e.view))
		i, ok := index[label]
		if !ok {
			i = len(points)
			index[label] = i
			points = append(points, core.SeriesPoint{Label: label, Amount: decimal.Zero, Details: []string{}})
		}
		points[i].Amount = points[i].Amount.Add(tx.Amount)
		points[i].Details = append(points[i].Details, detailLine(tx))
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Label < points[j].Label
	})
	if points == nil {
		points = []core.SeriesPoint{}
	}
	return points
}

func detailLine(tx core.Transaction) string {
	return fmt.Sprintf("%s: $%s - %s", tx.Category, tx.Amount.String(), tx.Description)
}

// TransactionFilter narrows a transaction list. An empty Category matches all.
type TransactionFilter struct {
	Category string
	Frame    core.TimeFrame
	Ref      time.Time
}

// Filter returns matching transactions, newest first.
func (e *Evaluator) Filter(txs []core.Transaction, f TransactionFilter) []core.Transaction {
	s := e.strategy(f.Frame)
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if !e.inFrame(s, tx.Date, f.Ref) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// Categories lists the distinct categories in use within frame, per kind, in
// first-seen order.
func (e *Evaluator) Categories(txs []core.Transaction, frame core.TimeFrame, ref time.Time) (expense, income []string) {
	s := e.strategy(frame)
	seen := map[core.Kind]map[string]bool{
		core.KindExpense: {},
		core.KindIncome:  {},
	}
	expense, income = []string{}, []string{}
	for _, tx := range txs {
		if !e.inFrame(s, tx.Date, ref) {
			continue
		}
		kindSeen, ok := seen[tx.Kind]
		if !ok || kindSeen[tx.Category] {
			continue
		}
		kindSeen[tx.Category] = true
		if tx.Kind == core.KindExpense {
			expense = append(expense, tx.Category)
		} else {
			income = append(income, tx.Category)
		}
	}
	return expense, income
}
