// Package report renders ranked routes as a plain-text safety report.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/saferoute/internal/route"
	"github.com/sells-group/saferoute/internal/temporal"
)

// HighRiskThreshold is the segment risk above which a segment is listed.
const HighRiskThreshold = 50

// maxHighRisk limits the segments listed per route.
const maxHighRisk = 5

var title = cases.Title(language.English)

// Text renders routes, already in rank order, generated at now.
func Text(routes []route.Ranked, now time.Time) string {
	if len(routes) == 0 {
		return "No routes to analyze."
	}

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	best := routes[0]
	line("%s", rule)
	line("COMPREHENSIVE ROUTE SAFETY ANALYSIS REPORT")
	line("%s", rule)
	line("Generated on: %s", now.Format("2006-01-02 15:04:05"))
	line("Travel Time: %s", title.String(best.Period.Label()))
	line("Weekend Travel: %s", yesNo(best.Weekend))
	line("")

	line("ROUTE COMPARISON SUMMARY")
	line("%s", strings.Repeat("-", 25))
	for i, r := range routes {
		line("Route #%d: Safety Grade %s, Risk Score %.1f, %.0f min, %.1f km",
			i+1, r.Score.Grade, r.Score.NormalizedRisk, r.Candidate.DurationMinutes(), r.Candidate.DistanceKM())
	}
	line("")

	for i, r := range routes {
		line("ROUTE #%d DETAILED ANALYSIS", i+1)
		line("%s", strings.Repeat("-", 30))
		line("Safety Grade: %s", r.Score.Grade)
		line("Overall Risk Score: %.1f", r.Score.NormalizedRisk)
		line("Maximum Segment Risk: %.1f", r.Score.MaxSegmentRisk)
		line("Risk Variance: %.1f", r.Score.RiskVariance)
		line("Distance: %.1f km", r.Candidate.DistanceKM())
		line("Estimated Duration: %.0f minutes", r.Candidate.DurationMinutes())
		line("")

		line("AI Safety Assessment:")
		line("%s", r.Explanation)
		line("")

		if hot := HighRisk(r.Score.Segments); len(hot) > 0 {
			line("High-Risk Segments (Risk > %d):", HighRiskThreshold)
			for j, s := range hot {
				line("  %d. Risk: %.1f, Distance: %.0fm", j+1, s.Risk, s.Meters)
			}
		} else {
			line("No high-risk segments identified.")
		}
		line("")
		line("%s", strings.Repeat("-", 50))
		line("")
	}

	line("SAFETY RECOMMENDATIONS")
	line("%s", strings.Repeat("-", 25))
	for _, rec := range Recommendations(best) {
		line("%s", rec)
	}
	line("")
	b.WriteString(rule)
	return b.String()
}

// HighRisk returns up to five segments with risk above HighRiskThreshold,
// riskiest first.
func HighRisk(segs []route.SegmentScore) []route.SegmentScore {
	var hot []route.SegmentScore
	for _, s := range segs {
		if s.Risk > HighRiskThreshold {
			hot = append(hot, s)
		}
	}
	sort.SliceStable(hot, func(i, j int) bool { return hot[i].Risk > hot[j].Risk })
	if len(hot) > maxHighRisk {
		hot = hot[:maxHighRisk]
	}
	return hot
}

// Recommendations lists advice for the recommended route.
func Recommendations(best route.Ranked) []string {
	var out []string
	switch best.Score.Grade {
	case route.GradeAPlus, route.GradeA:
		out = append(out, "✓ The recommended route has excellent safety characteristics.")
	case route.GradeBPlus, route.GradeB:
		out = append(out, "⚠ The recommended route has acceptable safety. Consider:")
	default:
		out = append(out, "⚠ All available routes have elevated risk. Strong recommendations:")
	}

	if best.Score.MaxSegmentRisk > 80 {
		out = append(out,
			"  - Exercise extra caution in high-risk segments",
			"  - Consider traveling during daylight hours if possible")
	}
	if best.Period == temporal.Night || best.Period == temporal.LateNight {
		out = append(out,
			"  - Night travel increases risk - consider delaying if possible",
			"  - Stay alert and avoid stopping in isolated areas")
	}
	if best.Weekend {
		out = append(out, "  - Weekend travel may have different risk patterns")
	}
	return out
}

// Write renders the report to w.
func Write(w io.Writer, routes []route.Ranked, now time.Time) error {
	if _, err := io.WriteString(w, Text(routes, now)+"\n"); err != nil {
		return eris.Wrap(err, "report: write")
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
