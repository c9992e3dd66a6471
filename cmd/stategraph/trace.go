package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/pkg/stategraph/tracelog"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect persisted node logs",
		Long: `Without a run id, trace lists the runs in the sink. With one, it prints
the run's node log in step order. The sink comes from --trace or the config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if s.Trace == "" {
				return errors.New("no trace sink configured (use --trace)")
			}
			store, err := tracelog.Open(s.Trace)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if len(args) == 0 {
				runs, err := store.Runs(ctx)
				if err != nil {
					return err
				}
				for _, id := range runs {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			if del, _ := cmd.Flags().GetBool("delete"); del {
				return store.DeleteRun(ctx, args[0])
			}
			entries, err := store.List(ctx, args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("run %s has no entries", args[0])
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().Bool("delete", false, "delete the run's entries instead of printing them")
	return cmd
}

func printEntries(out io.Writer, entries []tracelog.Entry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tNODE\tDURATION\tSTATUS\tOUTPUT")
	for _, e := range entries {
		status := "ok"
		if e.Failed() {
			status = "error: " + e.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Step, e.Node, e.Duration().Round(time.Microsecond), status, e.OutputSummary)
	}
	return tw.Flush()
}
