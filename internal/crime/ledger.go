package crime

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/saferoute/internal/boundary"
)

// Row is one line of the statistics table before matching.
type Row struct {
	Name   string
	Counts map[Type]float64
}

// Record holds the crime counts attributed to one region.
type Record struct {
	Region string
	// Sources lists the table names merged into this record.
	Sources []string
	Counts  map[Type]float64
}

// Count returns the count for t, 0 when absent.
func (r *Record) Count(t Type) float64 {
	if r == nil {
		return 0
	}
	return r.Counts[t]
}

// Total sums all counts.
func (r *Record) Total() float64 {
	if r == nil {
		return 0
	}
	var sum float64
	for _, t := range Catalog {
		sum += r.Counts[t]
	}
	return sum
}

// Ledger maps region names to their crime records.
type Ledger struct {
	records map[string]*Record
	order   []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]*Record)}
}

// Get returns the record for a region.
func (l *Ledger) Get(region string) (*Record, bool) {
	r, ok := l.records[region]
	return r, ok
}

// Regions returns matched region names in first-match order.
func (l *Ledger) Regions() []string {
	return l.order
}

// Len returns the number of matched regions.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Add merges counts into the region's record. Repeated rows for the same
// region are summed.
func (l *Ledger) Add(region, source string, counts map[Type]float64) {
	rec, ok := l.records[region]
	if !ok {
		rec = &Record{Region: region, Counts: make(map[Type]float64, len(Catalog))}
		l.records[region] = rec
		l.order = append(l.order, region)
	}
	rec.Sources = append(rec.Sources, source)
	for t, c := range counts {
		if c > 0 {
			rec.Counts[t] += c
		}
	}
}

// MatchReport summarizes a Match call.
type MatchReport struct {
	Matched   int
	Skipped   int
	Unmatched []string
}

// Match attributes each row to the first region (in store order) whose folded
// name contains, or is contained in, the row's cleaned name. Rows with blank
// or numeric names are skipped; rows matching no region are dropped.
func Match(rows []Row, store *boundary.Store) (*Ledger, MatchReport) {
	log := zap.L().With(zap.String("component", "crime"))

	type candidate struct {
		name   string
		folded string
	}
	regions := make([]candidate, 0, store.Len())
	for _, name := range store.Names() {
		regions = append(regions, candidate{name: name, folded: Fold(name)})
	}

	ledger := NewLedger()
	var report MatchReport
	for _, row := range rows {
		cleaned := CleanName(row.Name)
		if skipName(cleaned) {
			report.Skipped++
			continue
		}
		key := Fold(cleaned)

		matched := ""
		for _, c := range regions {
			if c.folded == "" {
				continue
			}
			if strings.Contains(c.folded, key) || strings.Contains(key, c.folded) {
				matched = c.name
				break
			}
		}
		if matched == "" {
			log.Debug("crime: no region for record", zap.String("record", row.Name))
			report.Unmatched = append(report.Unmatched, row.Name)
			continue
		}

		ledger.Add(matched, row.Name, row.Counts)
		report.Matched++
	}

	log.Info("crime: matched records",
		zap.Int("matched", report.Matched),
		zap.Int("regions", ledger.Len()),
		zap.Int("unmatched", len(report.Unmatched)),
		zap.Int("skipped", report.Skipped),
	)
	return ledger, report
}

var suffixTokens = map[string]bool{
	"city":             true,
	"dist":             true,
	"district":         true,
	"commissionerate":  true,
	"commissionerates": true,
	"range":            true,
}

// CleanName drops administrative suffix tokens such as "City", "Dist" and
// "Range" from a statistics table name.
func CleanName(raw string) string {
	fields := strings.Fields(raw)
	kept := fields[:0]
	for _, f := range fields {
		if suffixTokens[strings.ToLower(strings.Trim(f, ".,"))] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func skipName(s string) bool {
	if s == "" || strings.EqualFold(s, "nan") {
		return true
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Fold returns a case-folded, diacritic-free form of s for comparisons.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.TrimSpace(out)
}
