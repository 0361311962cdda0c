package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

const (
	maxCategoryLen    = 100
	maxDescriptionLen = 200
	maxTitleLen       = 120
	maxNoteLen        = 500
)

type (
	Kind string

	// Transaction is a single income or expense entry. Amount is always a
	// positive magnitude; Kind carries the sign.
	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"-"`
		Kind        Kind            `json:"kind"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
	}

	IncomeGoal struct {
		ID          string          `json:"id"`
		UserID      string          `json:"-"`
		Target      decimal.Decimal `json:"target"`
		TargetDate  Date            `json:"target_date"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"created_at"`
		Accumulated decimal.Decimal `json:"accumulated"`
		Notes       []string        `json:"notes"`
	}

	Reminder struct {
		ID          string   `json:"id"`
		UserID      string   `json:"-"`
		Title       string   `json:"title"`
		Due         Date     `json:"due"`
		Description string   `json:"description,omitempty"`
		Notes       []string `json:"notes"`
	}

	// CustomLimit caps spending over an inclusive range of civil dates.
	CustomLimit struct {
		Amount decimal.Decimal `json:"amount"`
		Start  Date            `json:"start"`
		End    Date            `json:"end"`
	}

	BudgetLimits struct {
		Daily   decimal.Decimal `json:"daily"`
		Monthly decimal.Decimal `json:"monthly"`
		Custom  []CustomLimit   `json:"custom"`
	}
)

var (
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidRange        = errors.New("start date must not be after end date")
	ErrEmptyCategory       = errors.New("empty category")
	ErrCategoryTooLong     = errors.New("category too long (max 100 characters)")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyTitle          = errors.New("empty title")
	ErrTitleTooLong        = errors.New("title too long (max 120 characters)")
	ErrEmptyNote           = errors.New("empty note")
	ErrNoteTooLong         = errors.New("note too long (max 500 characters)")
	ErrNegativeAccumulated = errors.New("accumulated amount cannot be negative")
	ErrNegativeLimit       = errors.New("limit cannot be negative")
)

// DefaultBudgetLimits returns the limits a user starts with.
func DefaultBudgetLimits() BudgetLimits {
	return BudgetLimits{
		Daily:   decimal.NewFromInt(100),
		Monthly: decimal.NewFromInt(2000),
		Custom:  []CustomLimit{},
	}
}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindExpense, KindIncome:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Validate() error {
	if k != KindExpense && k != KindIncome {
		return ErrInvalidKind
	}
	return nil
}

// Normalize trims free-text fields and stores the amount as a magnitude.
func (t *Transaction) Normalize() {
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	t.Amount = t.Amount.Abs()
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Category) > maxCategoryLen {
		return ErrCategoryTooLong
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (g IncomeGoal) Validate() error {
	if !g.Target.IsPositive() {
		return ErrInvalidAmount
	}
	if g.TargetDate.IsZero() {
		return ErrInvalidDate
	}
	if g.Accumulated.IsNegative() {
		return ErrNegativeAccumulated
	}
	if len(g.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if len(r.Title) > maxTitleLen {
		return ErrTitleTooLong
	}
	if r.Due.IsZero() {
		return ErrInvalidDate
	}
	if len(r.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidateNote checks a note before it is appended to a goal or reminder.
func ValidateNote(note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrEmptyNote
	}
	if len(note) > maxNoteLen {
		return ErrNoteTooLong
	}
	return nil
}

func (c CustomLimit) Validate() error {
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.Start.IsZero() || c.End.IsZero() {
		return ErrInvalidDate
	}
	if c.Start.After(c.End.Time) {
		return ErrInvalidRange
	}
	return nil
}

func (b BudgetLimits) Validate() error {
	if b.Daily.IsNegative() || b.Monthly.IsNegative() {
		return ErrNegativeLimit
	}
	for _, c := range b.Custom {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}
