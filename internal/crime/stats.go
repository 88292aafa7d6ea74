package crime

// Stats are aggregate figures for one district, derived once per load.
type Stats struct {
	Total    float64 `json:"total_crimes" yaml:"total_crimes"`
	Violent  float64 `json:"violent_crimes" yaml:"violent_crimes"`
	Property float64 `json:"property_crimes" yaml:"property_crimes"`
	// CrimeRate is Total per square degree of district area.
	CrimeRate     float64 `json:"crime_rate" yaml:"crime_rate"`
	ViolenceRatio float64 `json:"violence_ratio" yaml:"violence_ratio"`
}

// ComputeStats derives district statistics. ViolenceRatio is 0 when the
// district has no recorded crime; CrimeRate is 0 for a non-positive area.
func ComputeStats(rec *Record, area float64) Stats {
	var s Stats
	if rec == nil {
		return s
	}
	for _, t := range Catalog {
		c := rec.Count(t)
		s.Total += c
		if t.Violent() {
			s.Violent += c
		}
		if t.Property() {
			s.Property += c
		}
	}
	if area > 0 {
		s.CrimeRate = s.Total / area
	}
	if s.Total > 0 {
		s.ViolenceRatio = s.Violent / s.Total
	}
	return s
}
