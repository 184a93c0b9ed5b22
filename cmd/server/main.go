/*
main.go - Application entry point

PURPOSE:
  The kosledger command: runs the ledger HTTP server and the operator
  tasks that share its database (batch reconciliation, integrity check,
  tenant provisioning).

COMMANDS:
  serve                          Start the HTTP server
  reconcile [--tenant ID]        Replay payments/payouts into the ledger
            [--payments] [--payouts]
  validate-sync --tenant ID      Print payment/payout ids missing from the ledger
  provision --tenant ID          Create the tenant's system accounts

GLOBAL FLAGS:
  --config    YAML config file (optional)
  --env-file  .env file to load (default: ./.env if present)

  Every setting can also come from the environment; see package config.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reconciliation scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  kosledger serve

  # Run with in-memory database and demo scenarios
  KOSLEDGER_DB=":memory:" KOSLEDGER_DEV_MODE=true kosledger serve

  # Reconcile a single tenant's payments
  kosledger reconcile --tenant owner-1 --payments

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings and environment variables
  - syncer/syncer.go: Batch reconciliation
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosku/ledger-engine/api"
	"github.com/kosku/ledger-engine/config"
	"github.com/kosku/ledger-engine/ledger"
	"github.com/kosku/ledger-engine/store/sqlite"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "kosledger",
		Short: "Bookkeeping ledger for boarding-house operators",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", ".env file to load")

	rootCmd.AddCommand(
		newServeCommand(&g),
		newReconcileCommand(&g),
		newValidateSyncCommand(&g),
		newProvisionCommand(&g),
	)
	return rootCmd
}

// open loads the configuration and the store behind every command.
func (g *globalFlags) open() (*config.Config, *sqlite.Store, *api.Handler, error) {
	cfg, err := config.Load(g.configPath, g.envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	h := api.NewHandler(store, cfg.Location(), cfg.Ledger.BreakdownLimit)
	h.HookSecret = cfg.Server.HookSecret
	h.DevMode = cfg.DevMode
	return cfg, store, h, nil
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, handler, err := g.open()
			if err != nil {
				return err
			}
			defer store.Close()
			return serve(cfg, handler)
		},
	}
}

func serve(cfg *config.Config, handler *api.Handler) error {
	if handler.HookSecret == "" {
		log.Println("Warning: KOSLEDGER_HOOK_SECRET is empty, event hooks are disabled")
	}

	scheduler := api.NewReconciliationScheduler(handler.Syncer)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()
	handler.Scheduler = scheduler

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on http://localhost:%d (timezone %s)", cfg.Server.Port, cfg.Ledger.Timezone)
		if cfg.DevMode {
			log.Printf("Demo scenarios at http://localhost:%d/api/scenarios", cfg.Server.Port)
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		scheduler.Stop()
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// =============================================================================
// OPERATOR TASKS
// =============================================================================

func newReconcileCommand(g *globalFlags) *cobra.Command {
	var (
		tenant   string
		payments bool
		payouts  bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay settled payments and posted payouts into the ledger",
		Long: `Replay every SUCCESS payment and every APPROVED or COMPLETED payout
through the idempotent sync path. Records already in the ledger are skipped.

With neither --payments nor --payouts, both are replayed.

Example:
  kosledger reconcile
  kosledger reconcile --tenant owner-1 --payouts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, h, err := g.open()
			if err != nil {
				return err
			}
			defer store.Close()

			var scope *ledger.TenantID
			if tenant != "" {
				t := ledger.TenantID(tenant)
				scope = &t
			}
			if !payments && !payouts {
				payments, payouts = true, true
			}

			ctx := cmd.Context()
			out := map[string]any{}
			if payments {
				res, err := h.Syncer.SyncExistingPayments(ctx, scope)
				if err != nil {
					return err
				}
				out["payments"] = res
			}
			if payouts {
				res, err := h.Syncer.SyncExistingPayouts(ctx, scope)
				if err != nil {
					return err
				}
				out["payouts"] = res
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only this tenant (default: all)")
	cmd.Flags().BoolVar(&payments, "payments", false, "Replay payments")
	cmd.Flags().BoolVar(&payouts, "payouts", false, "Replay payouts")
	return cmd
}

func newValidateSyncCommand(g *globalFlags) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "validate-sync",
		Short: "List payments and payouts missing from a tenant's ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, h, err := g.open()
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := h.Syncer.ValidateSync(cmd.Context(), ledger.TenantID(tenant))
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.InSync {
				return fmt.Errorf("ledger is missing %d payments and %d payouts",
					len(report.MissingPayments), len(report.MissingPayouts))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant to check (required)")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func newProvisionCommand(g *globalFlags) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the Rent Income and Fund Withdrawal accounts for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, h, err := g.open()
			if err != nil {
				return err
			}
			defer store.Close()

			accounts, err := h.Ledger.ProvisionTenant(cmd.Context(), ledger.TenantID(tenant))
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", a.ID, a.Type, a.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant to provision (required)")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
