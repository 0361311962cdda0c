package ctl

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/services"
)

// csvTransaction is one row of the transactions CSV. Import ignores id.
type csvTransaction struct {
	ID          string `csv:"id"`
	Date        string `csv:"date"`
	Kind        string `csv:"kind"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
}

func toCSV(txs []core.Transaction, loc *time.Location) []csvTransaction {
	rows := make([]csvTransaction, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, csvTransaction{
			ID:          t.ID,
			Date:        t.Date.In(loc).Format(time.RFC3339),
			Kind:        string(t.Kind),
			Category:    t.Category,
			Amount:      core.FormatAmount(t.Amount),
			Description: t.Description,
		})
	}
	return rows
}

func (row csvTransaction) transaction(loc *time.Location) (core.Transaction, error) {
	kind, err := core.ParseKind(row.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := analytics.ParseReferenceDate(row.Date, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Kind:        kind,
		Category:    row.Category,
		Amount:      amount,
		Date:        date,
		Description: row.Description,
	}, nil
}

func (a *app) exportCmd() *cobra.Command {
	var out, frame, date, kind string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the user's transactions as CSV, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			q := services.ListQuery{}
			var err error
			if q.Frame, err = core.ParseTimeFrame(frame); err != nil {
				return fmt.Errorf("%w: %q", err, frame)
			}
			if kind != "" {
				if q.Kind, err = core.ParseKind(kind); err != nil {
					return fmt.Errorf("%w: %q", err, kind)
				}
			}

			ctx := cmd.Context()
			res, svc, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			if date != "" {
				if q.Ref, err = analytics.ParseReferenceDate(date, svc.loc); err != nil {
					return err
				}
			}
			txs, err := svc.transactions.List(ctx, a.userID, q)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := gocsv.Marshal(toCSV(txs, svc.loc), w); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			a.logger.Info("Exported transactions", "user_id", a.userID, "count", len(txs), "frame", q.Frame)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&frame, "frame", "all", "time frame: day, month or all")
	cmd.Flags().StringVar(&date, "date", "", "reference date for day and month frames")
	cmd.Flags().StringVar(&kind, "kind", "", "only expense or income")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create transactions from a CSV file in the export format",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			var r io.Reader = cmd.InOrStdin()
			if in != "" && in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			var rows []csvTransaction
			if err := gocsv.Unmarshal(r, &rows); err != nil {
				return fmt.Errorf("parse csv: %w", err)
			}

			ctx := cmd.Context()
			res, svc, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer res.Close()

			// Every row is checked before anything is written.
			txs := make([]core.Transaction, 0, len(rows))
			for i, row := range rows {
				t, err := row.transaction(svc.loc)
				if err != nil {
					return fmt.Errorf("row %d: %w", i+2, err)
				}
				if err := t.Validate(); err != nil {
					return fmt.Errorf("row %d: %w", i+2, err)
				}
				txs = append(txs, t)
			}
			for _, t := range txs {
				if _, err := svc.transactions.Create(ctx, a.userID, t); err != nil {
					return err
				}
			}
			a.logger.Info("Imported transactions", "user_id", a.userID, "count", len(txs))
			return a.print(cmd.OutOrStdout(), map[string]any{"imported": len(txs)})
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "input file, - for stdin")
	return cmd
}
