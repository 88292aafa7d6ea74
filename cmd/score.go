package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/recommend"
	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score encoded route polylines by crime risk",
	Long:  "Scores routes given as encoded polylines, either from --polyline flags or a JSON file of candidates, and ranks them safest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		polylines, _ := cmd.Flags().GetStringSlice("polyline")
		atFlag, _ := cmd.Flags().GetString("at")
		format, _ := cmd.Flags().GetString("format")
		geoPath, _ := cmd.Flags().GetString("geojson")
		withExplain, _ := cmd.Flags().GetBool("explain")
		save, _ := cmd.Flags().GetBool("save")

		cands, err := readCandidates(file, polylines)
		if err != nil {
			return err
		}
		at, err := parseTravelTime(atFlag, time.Now())
		if err != nil {
			return err
		}

		env, err := initEngine(cmd.Context(), save)
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, cancel := scoringContext(cmd.Context())
		defer cancel()

		res, err := env.Service.Score(ctx, cands, at, withExplain)
		if err != nil {
			return eris.Wrap(err, "score routes")
		}

		if geoPath != "" {
			if err := writeGeoJSON(geoPath, env.Holder.Current(), res.Routes); err != nil {
				return err
			}
		}
		if save {
			saveRun(ctx, env.Store, store.KindScore, recommend.Request{At: at}, res)
		}
		return writeOutput(os.Stdout, format, res)
	},
}

// readCandidates loads candidates from a JSON file and appends one per
// --polyline value.
func readCandidates(file string, polylines []string) ([]route.Candidate, error) {
	var cands []route.Candidate
	if file != "" {
		body, err := os.ReadFile(file)
		if err != nil {
			return nil, eris.Wrap(err, "read candidates")
		}
		if err := json.Unmarshal(body, &cands); err != nil {
			return nil, eris.Wrap(err, "parse candidates")
		}
	}
	for _, p := range polylines {
		cands = append(cands, route.Candidate{ID: len(cands), Polyline: p})
	}
	if len(cands) == 0 {
		return nil, eris.New("no routes given: use --file or --polyline")
	}
	return cands, nil
}

// saveRun records res in st. Failures are logged, not returned.
func saveRun(ctx context.Context, st store.Store, kind string, req recommend.Request, res *recommend.Result) {
	if st == nil {
		return
	}
	run, err := store.RunFromResult(kind, req, res)
	if err != nil {
		zap.L().Warn("save run failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	saved, err := st.SaveRun(ctx, run)
	if err != nil {
		zap.L().Warn("save run failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	zap.L().Info("run saved", zap.String("run_id", saved.ID), zap.String("kind", kind))
}

func init() {
	scoreCmd.Flags().String("file", "", "JSON file with an array of route candidates")
	scoreCmd.Flags().StringSlice("polyline", nil, "encoded polyline to score (repeatable)")
	scoreCmd.Flags().String("at", "", "travel time (RFC 3339 or YYYY-MM-DD HH:MM, default now)")
	scoreCmd.Flags().String("format", "json", "output format: json or yaml")
	scoreCmd.Flags().String("geojson", "", "write routes and hotspots as GeoJSON to this file")
	scoreCmd.Flags().Bool("explain", false, "add a safety assessment to each route")
	scoreCmd.Flags().Bool("save", false, "record the run in the store")
	rootCmd.AddCommand(scoreCmd)
}
