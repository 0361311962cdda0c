package ctl

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"finanzas/internal/analytics"
	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

type categoryLine struct {
	Category   string  `yaml:"category" json:"category"`
	Amount     string  `yaml:"amount" json:"amount"`
	Percentage float64 `yaml:"percentage" json:"percentage"`
}

type alertLine struct {
	Kind    core.AlertKind `yaml:"kind" json:"kind"`
	Limit   string         `yaml:"limit" json:"limit"`
	Spent   string         `yaml:"spent" json:"spent"`
	Message string         `yaml:"message" json:"message"`
}

type goalLine struct {
	Description string  `yaml:"description" json:"description"`
	Target      string  `yaml:"target" json:"target"`
	Progress    float64 `yaml:"progress" json:"progress"`
	TargetDate  string  `yaml:"target_date" json:"target_date"`
}

type reminderLine struct {
	Title         string `yaml:"title" json:"title"`
	Due           string `yaml:"due" json:"due"`
	DaysRemaining int    `yaml:"days_remaining" json:"days_remaining"`
}

type summaryReport struct {
	User      string         `yaml:"user" json:"user"`
	Frame     core.TimeFrame `yaml:"frame" json:"frame"`
	Reference string         `yaml:"reference" json:"reference"`
	Income    string         `yaml:"income" json:"income"`
	Expense   string         `yaml:"expense" json:"expense"`
	Balance   string         `yaml:"balance" json:"balance"`
	Expenses  []categoryLine `yaml:"expenses" json:"expenses"`
	Alerts    []alertLine    `yaml:"alerts" json:"alerts"`
	Goals     []goalLine     `yaml:"goals" json:"goals"`
	Reminders []reminderLine `yaml:"upcoming_reminders" json:"upcoming_reminders"`
}

func newSummaryReport(userID string, v services.View) summaryReport {
	r := summaryReport{
		User:      userID,
		Frame:     v.Frame,
		Reference: v.Reference.Format(time.RFC3339),
		Income:    core.FormatAmount(v.Summary.Income),
		Expense:   core.FormatAmount(v.Summary.Expense),
		Balance:   core.FormatAmount(v.Summary.Balance),
		Expenses:  []categoryLine{},
		Alerts:    alertLines(v.Alerts),
		Goals:     []goalLine{},
		Reminders: []reminderLine{},
	}
	for _, c := range v.ExpenseBreakdown {
		r.Expenses = append(r.Expenses, categoryLine{Category: c.Category, Amount: core.FormatAmount(c.Amount), Percentage: c.Percentage})
	}
	for _, g := range v.Goals {
		r.Goals = append(r.Goals, goalLine{
			Description: g.Description,
			Target:      core.FormatAmount(g.Target),
			Progress:    g.Progress,
			TargetDate:  g.TargetDate.String(),
		})
	}
	for _, rem := range v.Reminders {
		r.Reminders = append(r.Reminders, reminderLine{Title: rem.Title, Due: rem.Due.String(), DaysRemaining: rem.DaysRemaining})
	}
	return r
}

func alertLines(alerts []core.Alert) []alertLine {
	out := make([]alertLine, 0, len(alerts))
	for _, al := range alerts {
		out = append(out, alertLine{
			Kind:    al.Kind,
			Limit:   core.FormatAmount(al.Limit),
			Spent:   core.FormatAmount(al.Spent),
			Message: al.Message,
		})
	}
	return out
}

func (a *app) summaryCmd() *cobra.Command {
	var frame, date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals, breakdown, alerts, goals and reminders for a time frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			f, err := core.ParseTimeFrame(frame)
			if err != nil {
				return fmt.Errorf("%w: %q", err, frame)
			}
			ctx := cmd.Context()
			res, svc, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			req := services.ViewRequest{Frame: f}
			if date != "" {
				if req.Ref, err = analytics.ParseReferenceDate(date, svc.loc); err != nil {
					return err
				}
			}
			view, err := svc.dashboard.View(ctx, a.userID, req)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), newSummaryReport(a.userID, view))
		},
	}
	cmd.Flags().StringVar(&frame, "frame", "month", "time frame: day, month or all")
	cmd.Flags().StringVar(&date, "date", "", "reference date (YYYY-MM-DD), default today")
	return cmd
}

func (a *app) alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Print the budget limits the user has exceeded",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			res, svc, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			txs, err := svc.transactions.List(ctx, a.userID, services.ListQuery{})
			if err != nil {
				return err
			}
			alerts, err := svc.budget.Alerts(ctx, a.userID, txs, a.now())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), map[string]any{"user": a.userID, "alerts": alertLines(alerts)})
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			issuer, err := auth.NewIssuer(a.cfg.AuthSigningKey, a.cfg.AuthExchangeSecret, a.cfg.AuthTokenTTL)
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.Issue(a.userID)
			if err != nil {
				return err
			}
			a.logger.Info("Issued session token from CLI", "user_id", a.userID)
			return a.print(cmd.OutOrStdout(), map[string]string{
				"token":      token,
				"expires_at": expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to the SQLite backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(a.cfg.SQLiteDBPath), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.SchemaVersion(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			a.logger.Info("Migrations applied", "path", a.cfg.SQLiteDBPath, "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied: %s (version %d, dirty %t)\n", a.cfg.SQLiteDBPath, version, dirty)
			return nil
		},
	}
}
