package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finmetrics/internal/model"
	"github.com/sells-group/finmetrics/internal/monitoring"
	"github.com/sells-group/finmetrics/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect pipeline run history",
	Long:  "Commands for listing, viewing, and summarizing recorded pipeline runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(status),
			Company: strings.ToUpper(strings.TrimSpace(company)),
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		hours, _ := cmd.Flags().GetInt("hours")
		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (collecting, complete, failed, ...)")
	runsListCmd.Flags().String("company", "", "filter by company code")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Int("hours", 24, "lookback window in hours; 0 for all runs")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANIES\tPERIODS\tSTATUS\tROWS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---------\t-------\t------\t----\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		companies := strings.Join(r.Query.Companies, ",")
		if len(companies) > 30 {
			companies = companies[:27] + "..."
		}

		rows := "-"
		if r.Result != nil {
			rows = fmt.Sprintf("%d", r.Result.Rows)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			companies,
			describeRange(r.Query),
			r.Status,
			rows,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// describeRange renders a query's period range compactly, e.g. "2021-2023"
// or "2022Q2-2023Q1".
func describeRange(q model.Query) string {
	if q.Mode == model.ModeQuarter {
		return fmt.Sprintf("%dQ%d-%dQ%d", q.StartYear, q.StartQuarter, q.EndYear, q.EndQuarter)
	}
	if q.StartYear == q.EndYear {
		return fmt.Sprintf("%d", q.StartYear)
	}
	return fmt.Sprintf("%d-%d", q.StartYear, q.EndYear)
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.RunsTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.RunsComplete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.RunsFailed)
	_, _ = fmt.Fprintf(w, "In flight:\t%d\n", s.RunsInFlight)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", s.Rows)
	_, _ = fmt.Fprintf(w, "Skeleton rows:\t%d (%.1f%%)\n", s.Skeletons, s.SkeletonRate*100)
	if s.AvgDurationSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurationSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
