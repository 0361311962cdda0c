// Package ctl implements finanzasctl, the operator command line.
package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"finanzas/internal/analytics"
	"finanzas/internal/backend"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

// Opener opens the storage backend for one command.
type Opener func(ctx context.Context, cfg *config.Config) (*backend.Result, error)

type app struct {
	cfg    *config.Config
	logger *log.Logger
	open   Opener
	now    func() time.Time

	userID string
	output string
}

// NewRootCmd builds finanzasctl. A nil cfg is loaded from the environment
// and validated before any subcommand runs.
func NewRootCmd(cfg *config.Config, logger *log.Logger, open Opener) *cobra.Command {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	if open == nil {
		open = func(ctx context.Context, cfg *config.Config) (*backend.Result, error) {
			return backend.Open(ctx, cfg, logger)
		}
	}
	a := &app{cfg: cfg, logger: logger.WithComponent(log.ComponentCLI), open: open, now: time.Now}

	root := &cobra.Command{
		Use:           "finanzasctl",
		Short:         "Inspect and maintain personal finance data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil {
				a.cfg = config.Load()
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			switch a.output {
			case "yaml", "json":
				return nil
			default:
				return fmt.Errorf("unknown output format %q (use yaml or json)", a.output)
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.userID, "user", "u", "", "user id the command acts for")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "yaml", "output format: yaml or json")

	root.AddCommand(
		a.summaryCmd(),
		a.alertsCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.tokenCmd(),
		a.migrateCmd(),
	)
	return root
}

func (a *app) requireUser() error {
	if strings.TrimSpace(a.userID) == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func (a *app) viewLocation() (*time.Location, error) {
	return analytics.LoadLocation(a.cfg.ViewTimezone)
}

// services wires the domain services over a freshly opened backend. The
// caller closes the returned result.
func (a *app) services(ctx context.Context) (*backend.Result, *serviceSet, error) {
	loc, err := a.viewLocation()
	if err != nil {
		return nil, nil, err
	}
	res, err := a.open(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	eval := analytics.New(analytics.WithViewLocation(loc))
	return res, &serviceSet{
		transactions: services.NewTransactionService(res.Store, eval, nil),
		budget:       services.NewBudgetService(res.Store, nil),
		dashboard:    services.NewDashboardService(res.Store, eval, nil, nil),
		loc:          loc,
	}, nil
}

type serviceSet struct {
	transactions *services.TransactionService
	budget       *services.BudgetService
	dashboard    *services.DashboardService
	loc          *time.Location
}

func (a *app) print(w io.Writer, v any) error {
	if a.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
