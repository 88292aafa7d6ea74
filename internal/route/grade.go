package route

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grade is a letter safety grade.
type Grade string

// Grades from safest to riskiest.
const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeBPlus Grade = "B+"
	GradeB     Grade = "B"
	GradeCPlus Grade = "C+"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// Grades lists every grade, safest first.
var Grades = []Grade{GradeAPlus, GradeA, GradeBPlus, GradeB, GradeCPlus, GradeC, GradeD, GradeF}

var descriptions = map[Grade]string{
	GradeAPlus: "excellent",
	GradeA:     "very good",
	GradeBPlus: "good",
	GradeB:     "acceptable",
	GradeCPlus: "fair",
	GradeC:     "concerning",
	GradeD:     "poor",
	GradeF:     "high risk",
}

// Description is a one or two word label for g.
func (g Grade) Description() string {
	if d, ok := descriptions[g]; ok {
		return d
	}
	return "moderate"
}

// Grader maps composite scores to grades using ascending upper bounds.
type Grader struct {
	// Thresholds[i] is the exclusive upper bound of Grades[i].
	Thresholds []float64
	Floor      float64
}

// DefaultGrader returns bounds 10, 20, 35, 50, 70, 90, 120 and floor 5.
func DefaultGrader() Grader {
	return Grader{Thresholds: []float64{10, 20, 35, 50, 70, 90, 120}, Floor: 5}
}

// NewGrader validates thresholds: exactly one per grade above F, strictly
// ascending.
func NewGrader(thresholds []float64, floor float64) (Grader, error) {
	if len(thresholds) != len(Grades)-1 {
		return Grader{}, eris.Errorf("route: need %d grade thresholds, got %d", len(Grades)-1, len(thresholds))
	}
	for i := 1; i < len(thresholds); i++ {
		if !(thresholds[i] > thresholds[i-1]) {
			return Grader{}, eris.New("route: grade thresholds must be strictly ascending")
		}
	}
	return Grader{Thresholds: append([]float64(nil), thresholds...), Floor: floor}, nil
}

// Composite blends normalized risk, the worst segment and the spread of
// segment risk, floored at g.Floor.
func (g Grader) Composite(normalized, maxSegment, variance float64) float64 {
	c := 0.6*normalized + 0.3*maxSegment + 0.1*math.Sqrt(math.Max(variance, 0))
	if math.IsNaN(c) {
		return c
	}
	return math.Max(g.Floor, c)
}

// Grade returns the grade for a composite score. NaN and +Inf are F.
func (g Grader) Grade(composite float64) Grade {
	if math.IsNaN(composite) {
		return GradeF
	}
	for i, limit := range g.Thresholds {
		if i >= len(Grades)-1 {
			break
		}
		if composite < limit {
			return Grades[i]
		}
	}
	return GradeF
}
