package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/csv2influx/internal/runlog"
)

// newRunsCmd returns the command listing the run ledger.
func newRunsCmd() *cobra.Command {
	var (
		flags ledgerFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "runs [RUN_ID]",
		Short: "Show imports recorded in the run ledger",
		Long: `Without arguments, list recent runs newest first.
With a run ID, show that run and the line ranges of every batch the
target rejected, so the rows can be loaded again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := flags.load(cmd)
			if err != nil {
				return err
			}

			db, err := openLedgerDB(cmd.Context(), ledger, true)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // Read-only use
			store := runlog.NewStore(db)

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")

	return cmd
}

func printRuns(w io.Writer, runs []*runlog.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSTATUS\tINPUT\tWRITTEN\tDROPPED\tFAILED BATCHES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Input,
			r.Summary.PointsWritten, r.Summary.PointsDropped, r.Summary.BatchesFailed)
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, store *runlog.Store, id string) error {
	run, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	failed, err := store.FailedBatches(cmd.Context(), id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:         %s\n", run.ID)
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	fmt.Fprintf(w, "Input:       %s\n", run.Input)
	fmt.Fprintf(w, "Target:      %s (%s)\n", run.Target, run.Backend)
	fmt.Fprintf(w, "Policy:      %s, batch size %d\n", run.Policy, run.BatchSize)
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format(time.DateTime))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished:    %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(w, "Lines read:  %d\n", run.Summary.LinesRead)
	fmt.Fprintf(w, "Written:     %d points in %d batches\n", run.Summary.PointsWritten, run.Summary.BatchesAttempted-run.Summary.BatchesFailed)
	fmt.Fprintf(w, "Dropped:     %d points in %d batches\n", run.Summary.PointsDropped, run.Summary.BatchesFailed)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", run.Error)
	}

	if len(failed) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BATCH\tLINES\tPOINTS\tERROR")
	for _, fb := range failed {
		fmt.Fprintf(tw, "%d\t%d-%d\t%d\t%v\n", fb.Seq, fb.FirstLine, fb.LastLine, fb.Points, fb.Err)
	}
	return tw.Flush()
}
