package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/saferoute/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recommendation run history",
	Long:  "Commands for listing, viewing, summarizing and pruning saved score and recommendation runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		kind, _ := cmd.Flags().GetString("kind")
		destination, _ := cmd.Flags().GetString("destination")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Kind:        kind,
			Destination: destination,
			Limit:       limit,
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

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000}) // high limit for stats
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		stats := computeRunStats(runs, time.Now().Add(-since))
		formatRunStats(os.Stdout, stats)
		return nil
	},
}

// -- runs prune --

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a given age",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return eris.New("--older-than must be positive")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteRunsBefore(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "runs prune")
		}
		fmt.Fprintf(os.Stdout, "Deleted %d runs.\n", n)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("kind", "", "filter by run kind (recommend, score, compare)")
	runsListCmd.Flags().String("destination", "", "filter by destination")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete runs created before now minus this age")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total    int
	ByKind   map[string]int
	ByGrade  map[string]int
	Degraded int
	Empty    int
	AvgRoute float64
}

// computeRunStats aggregates the runs created at or after since.
func computeRunStats(runs []store.Run, since time.Time) runStats {
	s := runStats{ByKind: map[string]int{}, ByGrade: map[string]int{}}

	var routes int
	for _, r := range runs {
		if r.CreatedAt.Before(since) {
			continue
		}
		s.Total++
		s.ByKind[r.Kind]++
		routes += r.RouteCount
		if r.Degraded {
			s.Degraded++
		}
		if r.BestGrade == "" {
			s.Empty++
		} else {
			s.ByGrade[r.BestGrade]++
		}
	}

	if s.Total > 0 {
		s.AvgRoute = float64(routes) / float64(s.Total)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tTRIP\tTRAVEL\tROUTES\tGRADE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t------\t------\t-----\t-------")

	for _, r := range runs {
		trip := "-"
		if r.Origin != "" || r.Destination != "" {
			trip = truncate(r.Origin+" → "+r.Destination, 40)
		}
		grade := r.BestGrade
		if grade == "" {
			grade = "-"
		}
		if r.Degraded {
			grade += " (degraded)"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Kind,
			trip,
			r.TravelTime.Format("2006-01-02 15:04"),
			r.RouteCount,
			grade,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	for _, k := range sortedKeys(s.ByKind) {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", k, s.ByKind[k])
	}
	_, _ = fmt.Fprintf(w, "Degraded:\t%d\n", s.Degraded)
	_, _ = fmt.Fprintf(w, "No routes:\t%d\n", s.Empty)
	if len(s.ByGrade) > 0 {
		_, _ = fmt.Fprintln(w, "Best grade:\t")
		for _, g := range sortedKeys(s.ByGrade) {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", g, s.ByGrade[g])
		}
	}
	if s.AvgRoute > 0 {
		_, _ = fmt.Fprintf(w, "Avg routes:\t%.1f\n", s.AvgRoute)
	}
	_ = w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
