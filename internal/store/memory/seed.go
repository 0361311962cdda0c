package memory

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"finanzas/internal/core"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Limits struct {
		Daily   string `yaml:"daily"`
		Monthly string `yaml:"monthly"`
	} `yaml:"limits"`
	Transactions []struct {
		Kind          string `yaml:"kind"`
		Category      string `yaml:"category"`
		Amount        string `yaml:"amount"`
		Description   string `yaml:"description"`
		OffsetMinutes int    `yaml:"offset_minutes"`
	} `yaml:"transactions"`
	Reminders []struct {
		Title       string `yaml:"title"`
		DueInDays   int    `yaml:"due_in_days"`
		Description string `yaml:"description"`
	} `yaml:"reminders"`
	Goals []struct {
		Target      string `yaml:"target"`
		Accumulated string `yaml:"accumulated"`
		DueInDays   int    `yaml:"due_in_days"`
		Description string `yaml:"description"`
	} `yaml:"goals"`
}

// Seed loads the embedded demo dataset for userID. Dates are placed relative
// to now; calendar dates use loc.
func (s *Store) Seed(ctx context.Context, userID string, now time.Time, loc *time.Location) error {
	return s.SeedFrom(ctx, seedYAML, userID, now, loc)
}

// SeedFrom loads a YAML dataset in the same shape as the embedded seed.
func (s *Store) SeedFrom(ctx context.Context, data []byte, userID string, now time.Time, loc *time.Location) error {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	today := core.DateOf(now, loc)

	limits := core.DefaultBudgetLimits()
	if f.Limits.Daily != "" {
		v, err := core.ParseAmount(f.Limits.Daily)
		if err != nil {
			return fmt.Errorf("seed daily limit: %w", err)
		}
		limits.Daily = v
	}
	if f.Limits.Monthly != "" {
		v, err := core.ParseAmount(f.Limits.Monthly)
		if err != nil {
			return fmt.Errorf("seed monthly limit: %w", err)
		}
		limits.Monthly = v
	}
	if err := s.PutBudgetLimits(ctx, userID, limits); err != nil {
		return err
	}

	for i, st := range f.Transactions {
		kind, err := core.ParseKind(st.Kind)
		if err != nil {
			return fmt.Errorf("seed transaction %d: %w", i, err)
		}
		amount, err := core.ParseAmount(st.Amount)
		if err != nil {
			return fmt.Errorf("seed transaction %d: %w", i, err)
		}
		t := core.Transaction{
			Kind:        kind,
			Category:    st.Category,
			Amount:      amount,
			Date:        now.Add(time.Duration(st.OffsetMinutes) * time.Minute),
			Description: st.Description,
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("seed transaction %d: %w", i, err)
		}
		if _, err := s.CreateTransaction(ctx, userID, t); err != nil {
			return err
		}
	}

	for i, sr := range f.Reminders {
		r := core.Reminder{
			Title:       sr.Title,
			Due:         today.AddDays(sr.DueInDays),
			Description: sr.Description,
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("seed reminder %d: %w", i, err)
		}
		if _, err := s.CreateReminder(ctx, userID, r); err != nil {
			return err
		}
	}

	for i, sg := range f.Goals {
		target, err := core.ParseAmount(sg.Target)
		if err != nil {
			return fmt.Errorf("seed goal %d: %w", i, err)
		}
		g := core.IncomeGoal{
			Target:      target,
			TargetDate:  today.AddDays(sg.DueInDays),
			Description: sg.Description,
			CreatedAt:   now,
		}
		if sg.Accumulated != "" {
			if g.Accumulated, err = core.ParseAmount(sg.Accumulated); err != nil {
				return fmt.Errorf("seed goal %d: %w", i, err)
			}
		}
		if _, err := s.CreateGoal(ctx, userID, g); err != nil {
			return err
		}
	}
	return nil
}
