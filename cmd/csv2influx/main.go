// csv2influx loads delimited files into InfluxDB-compatible time-series
// databases.
//
// Each data row becomes one point: a measurement, a timestamp from the time
// column, tags from the tag columns and typed fields from the field columns.
// Points are written in batches; a rejected batch either aborts the import
// (default) or is recorded and skipped (--force).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata" // timezone data for hosts without a zoneinfo database

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// configEnvVar names the environment variable holding the config file path.
const configEnvVar = "CSV2INFLUX_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// run builds the command tree and executes it with args.
// Separated from main for testability.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	flags := &importFlags{}

	root := &cobra.Command{
		Use:   "csv2influx",
		Short: "Load a CSV file into InfluxDB",
		Long: `Load a delimited file into an InfluxDB-compatible time-series database.

Settings come from defaults, an optional YAML file (--config or
CSV2INFLUX_CONFIG), CSV2INFLUX_* environment variables and finally
the flags given on the command line.`,
		Example: `  csv2influx -i data.csv --dbname metrics
  csv2influx -i data.csv --dbname metrics --create -m weather \
    --timecolumn ts --tagcolumns station --fieldcolumns temp,humidity
  csv2influx -i data.csv --dbname metrics --epoch-precision ms --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadImportConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, newLogger(cfg, cmd))
		},
	}

	flags.register(root)
	root.AddCommand(newRunsCmd(), newLedgerCmd())

	return root
}

// configPath returns the --config value, falling back to CSV2INFLUX_CONFIG.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(configEnvVar)
}
