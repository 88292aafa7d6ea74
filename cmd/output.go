package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/saferoute/internal/hotspot"
	"github.com/sells-group/saferoute/internal/risk"
	"github.com/sells-group/saferoute/internal/route"
)

// travelTimeLayouts are tried in order after RFC 3339.
var travelTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTravelTime reads a --at value in local time. Empty means now.
func parseTravelTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range travelTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("invalid travel time %q (want RFC 3339 or YYYY-MM-DD HH:MM)", s)
}

// writeOutput encodes v as json or yaml. YAML keys follow the JSON tags.
func writeOutput(w io.Writer, format string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode json")
	}
	switch strings.ToLower(format) {
	case "", "json":
		_, err = fmt.Fprintln(w, string(body))
		return eris.Wrap(err, "write output")
	case "yaml", "yml":
		var generic any
		if err := json.Unmarshal(body, &generic); err != nil {
			return eris.Wrap(err, "decode json")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "flush yaml")
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

// routeHotspots returns the hotspots of every district a ranked route
// passes through, each district once.
func routeHotspots(snap *risk.Snapshot, ranked []route.Ranked) []hotspot.Hotspot {
	if snap == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []hotspot.Hotspot
	for _, r := range ranked {
		for _, c := range r.Coords {
			region, ok := snap.Store().Locate(c)
			if !ok || seen[region.Name] {
				continue
			}
			seen[region.Name] = true
			if d, ok := snap.District(region.Name); ok {
				out = append(out, d.Hotspots...)
			}
		}
	}
	return out
}

// writeGeoJSON writes ranked routes and nearby hotspots to path.
func writeGeoJSON(path string, snap *risk.Snapshot, ranked []route.Ranked) error {
	body, err := route.MarshalGeoJSON(ranked, routeHotspots(snap, ranked))
	if err != nil {
		return err
	}
	return eris.Wrap(os.WriteFile(path, body, 0o644), "write geojson")
}
