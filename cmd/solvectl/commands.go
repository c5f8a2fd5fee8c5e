package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"solver-gateway/client"
	"solver-gateway/solver/domain"

	"github.com/spf13/cobra"
)

var (
	solveRN       string
	solveDelta    string
	solveInterval time.Duration
	solveFailures int

	runsLimit int
	runsJSON  bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Submit a run and stream its output until it is over",
	Example: `  solvectl solve --rn 0.05 --delta 0.000001
  solvectl solve --rn 0.5 --delta 0 --interval 500ms`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		form := &client.Form{
			Backend: c,
			Output:  client.NewWriterDisplay(cmd.OutOrStdout()),
			Button:  &client.Button{},
			Poller: client.Poller{
				Interval:       solveInterval,
				RequestTimeout: timeout,
				MaxFailures:    solveFailures,
				Logger:         logger,
			},
		}
		err = form.Solve(cmd.Context(), solveRN, solveDelta)
		if errors.Is(err, domain.ErrInvalidInput) {
			// a mensagem já foi escrita na saída
			return errors.New("invalid input")
		}
		return err
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the running solve of this session",
	Long: `Cancel needs the same session as the solve it targets. Use --session on
both commands; the cookie issued to "solve" lives only in that process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Cancel(cmd.Context()); err != nil {
			if errors.Is(err, domain.ErrNoJob) {
				return errors.New("no running solve for this session")
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs recorded by the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		runs, err := c.Runs(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if runsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		return printRuns(cmd, runs)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show running solves, slot usage and event counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		snap, err := c.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printStats(cmd, snap)
	},
}

func init() {
	solveCmd.Flags().StringVar(&solveRN, "rn", "", "learning rate (non-negative number)")
	solveCmd.Flags().StringVar(&solveDelta, "delta", "", "convergence tolerance (non-negative number)")
	solveCmd.Flags().DurationVar(&solveInterval, "interval", client.DefaultPollInterval, "poll interval")
	solveCmd.Flags().IntVar(&solveFailures, "max-failures", client.DefaultMaxFailures, "consecutive poll failures before giving up")
	_ = solveCmd.MarkFlagRequired("rn")
	_ = solveCmd.MarkFlagRequired("delta")

	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print JSON")
}

func printRuns(cmd *cobra.Command, runs []domain.Run) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tRN\tDELTA\tITER\tLOSS\tFINISHED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%d\t%.6f\t%s\n",
			r.ID, r.Status, r.RN, r.Delta, r.Iterations, r.Loss, r.FinishedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printStats(cmd *cobra.Command, snap domain.StatsSnapshot) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running: %d\n", snap.Running)
	fmt.Fprintf(out, "slots:   %d/%d\n", snap.Slots.InUse, snap.Slots.Capacity)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tTOTAL\tSESSION")
	kinds := make([]string, 0, len(snap.Events))
	for k := range snap.Events {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		kind := domain.EventKind(k)
		fmt.Fprintf(tw, "%s\t%d\t%d\n", kind, snap.Events[kind], snap.SessionEvents[kind])
	}
	return tw.Flush()
}
