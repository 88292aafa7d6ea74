package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/recommend"
	"github.com/sells-group/saferoute/internal/report"
	"github.com/sells-group/saferoute/internal/store"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Find and rank routes between two places by safety",
	Long:  "Fetches alternative routes from the directions provider, scores each against the crime risk model, and prints a safety report or the ranked result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		reportPath, _ := cmd.Flags().GetString("report")
		geoPath, _ := cmd.Flags().GetString("geojson")
		noSave, _ := cmd.Flags().GetBool("no-save")

		env, err := initEngine(cmd.Context(), !noSave)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, cancel := scoringContext(cmd.Context())
		defer cancel()

		res, err := env.Service.Recommend(ctx, req)
		if err != nil {
			return eris.Wrap(err, "recommend")
		}
		if res.Degraded {
			zap.L().Warn("routing provider unavailable", zap.String("cause", res.Cause))
		}
		saveRun(ctx, env.Store, store.KindRecommend, req, res)

		now := time.Now()
		if reportPath != "" {
			f, err := os.Create(reportPath)
			if err != nil {
				return eris.Wrap(err, "create report")
			}
			defer f.Close() //nolint:errcheck
			if err := report.Write(f, res.Routes, now); err != nil {
				return err
			}
		}
		if geoPath != "" {
			if err := writeGeoJSON(geoPath, env.Holder.Current(), res.Routes); err != nil {
				return err
			}
		}

		if format == "text" {
			return report.Write(os.Stdout, res.Routes, now)
		}
		return writeOutput(os.Stdout, format, res)
	},
}

// requestFromFlags reads --from, --to, --at and --explain.
func requestFromFlags(cmd *cobra.Command) (recommend.Request, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	atFlag, _ := cmd.Flags().GetString("at")
	withExplain, _ := cmd.Flags().GetBool("explain")

	if from == "" || to == "" {
		return recommend.Request{}, eris.New("--from and --to are required")
	}
	at, err := parseTravelTime(atFlag, time.Now())
	if err != nil {
		return recommend.Request{}, err
	}
	return recommend.Request{Origin: from, Destination: to, At: at, Explain: withExplain}, nil
}

func addRequestFlags(cmd *cobra.Command, explainDefault bool) {
	cmd.Flags().String("from", "", "origin address or \"lat,lng\"")
	cmd.Flags().String("to", "", "destination address or \"lat,lng\"")
	cmd.Flags().String("at", "", "travel time (RFC 3339 or YYYY-MM-DD HH:MM, default now)")
	cmd.Flags().Bool("explain", explainDefault, "add a safety assessment to each route")
}

func init() {
	addRequestFlags(recommendCmd, true)
	recommendCmd.Flags().String("format", "text", "output format: text, json or yaml")
	recommendCmd.Flags().String("report", "", "also write the text report to this file")
	recommendCmd.Flags().String("geojson", "", "write routes and hotspots as GeoJSON to this file")
	recommendCmd.Flags().Bool("no-save", false, "do not record the run in the store")
	rootCmd.AddCommand(recommendCmd)
}
