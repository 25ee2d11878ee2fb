package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/csv2influx/internal/infrastructure/config"
	"github.com/nerrad567/csv2influx/internal/infrastructure/database"
)

// ledgerFlags selects the run ledger for the history commands.
type ledgerFlags struct {
	configFile string
	path       string
}

func (f *ledgerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "YAML configuration file (default $"+configEnvVar+")")
	cmd.Flags().StringVar(&f.path, "ledger", "", "run ledger database (overrides ledger.path)")
}

func (f *ledgerFlags) load(cmd *cobra.Command) (config.LedgerConfig, error) {
	ledger, err := config.LoadLedger(configPath(f.configFile))
	if err != nil {
		return config.LedgerConfig{}, err
	}
	if cmd.Flags().Changed("ledger") {
		ledger.Path = f.path
	}
	return ledger, nil
}

// openLedgerDB opens the ledger database and checks it answers queries.
// With migrate set, pending schema migrations are applied as well.
func openLedgerDB(ctx context.Context, cfg config.LedgerConfig, migrate bool) (*database.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("run ledger %s: %w", cfg.Path, err)
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("migrating run ledger: %w", err)
		}
	}
	return db, nil
}

// newLedgerCmd returns the run ledger maintenance commands.
func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or roll back the run ledger schema",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newLedgerStatusCmd(), newLedgerRollbackCmd())
	return cmd
}

func newLedgerStatusCmd() *cobra.Command {
	var flags ledgerFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List applied and pending ledger schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			db, err := openLedgerDB(cmd.Context(), ledger, false)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Read-only use

			applied, pending, err := db.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED")
			for _, r := range applied {
				fmt.Fprintf(tw, "%s\tapplied\t%s\n", r.Version, r.AppliedAt.Local().Format(time.DateTime))
			}
			for _, m := range pending {
				fmt.Fprintf(tw, "%s\tpending (%s)\t-\n", m.Version, m.Name)
			}
			return tw.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func newLedgerRollbackCmd() *cobra.Command {
	var flags ledgerFlags

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent ledger schema migration",
		Long: `Revert the most recently applied ledger migration. Reverting the
initial migration drops all recorded runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			db, err := openLedgerDB(cmd.Context(), ledger, false)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Closed after the rollback committed

			rec, err := db.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if rec.Version == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", rec.Version)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
