package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/saferoute/internal/crime"
	"github.com/sells-group/saferoute/internal/hotspot"
	"github.com/sells-group/saferoute/internal/risk"
)

// districtView is the JSON shape of one district.
type districtView struct {
	Name     string            `json:"name"`
	Urban    bool              `json:"urban"`
	Matched  bool              `json:"has_statistics"`
	Stats    crime.Stats       `json:"stats"`
	Hotspots []hotspot.Hotspot `json:"hotspots"`
}

func districtViews(snap *risk.Snapshot, filter string) []districtView {
	filter = crime.Fold(filter)
	views := []districtView{}
	for _, d := range snap.Districts() {
		if filter != "" && !strings.Contains(crime.Fold(d.Region.Name), filter) {
			continue
		}
		hs := d.Hotspots
		if hs == nil {
			hs = []hotspot.Hotspot{}
		}
		views = append(views, districtView{
			Name:     d.Region.Name,
			Urban:    d.Urban,
			Matched:  d.Record != nil,
			Stats:    d.Stats,
			Hotspots: hs,
		})
	}
	return views
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Show district crime statistics and detected hotspots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		district, _ := cmd.Flags().GetString("district")
		format, _ := cmd.Flags().GetString("format")

		if err := cfg.Validate(); err != nil {
			return err
		}
		pool, err := openBoundaryPool(ctx)
		if err != nil {
			return err
		}
		if pool != nil {
			defer pool.Close()
		}

		snap, err := loadSnapshot(ctx, pool)
		if err != nil {
			return err
		}

		views := districtViews(snap, district)
		if len(views) == 0 {
			return eris.Errorf("no district matches %q", district)
		}
		if format == "table" {
			formatDistricts(os.Stdout, views)
			return nil
		}
		return writeOutput(os.Stdout, format, views)
	},
}

// formatDistricts writes one row per district and one indented row per
// hotspot.
func formatDistricts(w io.Writer, views []districtView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTRICT\tTOTAL\tVIOLENT\tPROPERTY\tVIOLENCE\tURBAN\tHOTSPOTS")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\t%.2f\t%s\t%d\n",
			v.Name, v.Stats.Total, v.Stats.Violent, v.Stats.Property, v.Stats.ViolenceRatio, yesNo(v.Urban), len(v.Hotspots))
		for i, h := range v.Hotspots {
			fmt.Fprintf(tw, "  #%d\t%.4f,%.4f\tr=%.4f\tintensity=%.1f\tcrimes=%d\t\t\n",
				i+1, h.Lat(), h.Lng(), h.Radius, h.Intensity, h.Count)
		}
	}
	tw.Flush() //nolint:errcheck
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	hotspotsCmd.Flags().String("district", "", "only districts whose name contains this text")
	hotspotsCmd.Flags().String("format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(hotspotsCmd)
}
