// Package crime holds the crime type catalog and the per-district crime
// ledger read from tabular statistics.
package crime

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Type is a crime category as it appears in the statistics headers.
type Type string

// Known crime types.
const (
	Murder                 Type = "MURDER"
	AttemptToMurder        Type = "ATTEMPT TO MURDER"
	Rape                   Type = "RAPE"
	Dacoity                Type = "DACOITY"
	Robbery                Type = "ROBBERY"
	BurglaryDay            Type = "BURGLARY-DAY"
	BurglaryNight          Type = "BURGLARY-NIGHT"
	Theft                  Type = "THEFT"
	Molestation            Type = "MOLESTATION"
	FatalMotorAccidents    Type = "FATAL MOTOR ACCIDENTS"
	NonFatalMotorAccidents Type = "NON-FATAL MOTOR ACCIDENTS"
	CyberCrime             Type = "CYBER CRIME"
	POCSO                  Type = "POCSO"
	POCSORape              Type = "POCSO RAPE"
)

// Catalog lists every known type in a stable order.
var Catalog = []Type{
	Murder, AttemptToMurder, Rape, Dacoity, Robbery, BurglaryDay, BurglaryNight,
	Theft, Molestation, FatalMotorAccidents, NonFatalMotorAccidents, CyberCrime,
	POCSO, POCSORape,
}

var byKey = func() map[string]Type {
	m := make(map[string]Type, len(Catalog))
	for _, t := range Catalog {
		m[t.Key()] = t
	}
	return m
}()

// Key returns the configuration key for t: lower case with spaces, hyphens
// and underscores collapsed to a single underscore.
func (t Type) Key() string {
	return NormalizeKey(string(t))
}

// NormalizeKey folds a header or config key so that "Burglary Day",
// "burglary_day" and "BURGLARY-DAY" compare equal.
func NormalizeKey(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(s) {
		if r == ' ' || r == '_' || r == '-' || unicode.IsSpace(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ParseType resolves a header or key to a known Type.
func ParseType(s string) (Type, bool) {
	t, ok := byKey[NormalizeKey(s)]
	return t, ok
}

// Violent reports whether t counts toward the violence ratio.
func (t Type) Violent() bool {
	switch t {
	case Murder, AttemptToMurder, Rape, Robbery, Molestation:
		return true
	}
	return false
}

// Property reports whether t is a property crime.
func (t Type) Property() bool {
	switch t {
	case BurglaryDay, BurglaryNight, Theft:
		return true
	}
	return false
}

// Weights maps each type to its severity weight.
type Weights map[Type]float64

// DefaultWeights returns the built-in severity catalog.
func DefaultWeights() Weights {
	return Weights{
		Murder:                 10.0,
		AttemptToMurder:        8.5,
		Rape:                   9.0,
		Dacoity:                7.5,
		Robbery:                6.5,
		BurglaryDay:            4.0,
		BurglaryNight:          5.5,
		Theft:                  3.0,
		Molestation:            7.0,
		FatalMotorAccidents:    4.5,
		NonFatalMotorAccidents: 2.0,
		CyberCrime:             1.5,
		POCSO:                  8.0,
		POCSORape:              9.5,
	}
}

// Of returns the weight of t, or 1.0 if t has none.
func (w Weights) Of(t Type) float64 {
	if v, ok := w[t]; ok {
		return v
	}
	return 1.0
}

// WeightsFromConfig converts config keys to Weights, starting from the
// defaults. Unknown keys are logged and ignored.
func WeightsFromConfig(raw map[string]float64) (Weights, error) {
	w := DefaultWeights()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		t, ok := ParseType(k)
		if !ok {
			zap.L().Warn("crime: ignoring weight for unknown type", zap.String("type", k))
			continue
		}
		if raw[k] <= 0 {
			return nil, eris.Errorf("crime: weight for %s must be positive, got %v", t, raw[k])
		}
		w[t] = raw[k]
	}
	return w, nil
}
