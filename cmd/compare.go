package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/saferoute/internal/recommend"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare route safety across times of day",
	Long:  "Scores the routes between two places at morning, afternoon, evening and night on the day of --at and shows the best route for each.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		env, err := initEngine(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, cancel := scoringContext(cmd.Context())
		defer cancel()

		cmps, err := env.Service.CompareTimes(ctx, req)
		if err != nil {
			return eris.Wrap(err, "compare times")
		}
		if format == "table" {
			formatComparisons(os.Stdout, cmps)
			return nil
		}
		return writeOutput(os.Stdout, format, cmps)
	},
}

// formatComparisons writes one row per time of day.
func formatComparisons(w io.Writer, cmps []recommend.Comparison) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tTIME\tGRADE\tRISK\tDURATION\tNOTE")
	for _, c := range cmps {
		if c.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%s\n", c.Label, c.At.Format("15:04"), c.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.0f min\t%s\n",
			c.Label, c.At.Format("15:04"), c.SafetyGrade, c.RiskScore, c.Duration, truncate(c.Recommendation, 60))
	}
	tw.Flush() //nolint:errcheck
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func init() {
	addRequestFlags(compareCmd, false)
	compareCmd.Flags().String("format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(compareCmd)
}
