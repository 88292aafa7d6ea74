// Package store persists recommendation runs.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/recommend"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// Run kinds.
const (
	KindRecommend = "recommend"
	KindScore     = "score"
	KindCompare   = "compare"
)

// Run is one persisted request and its JSON result.
type Run struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	TravelTime  time.Time       `json:"travel_time"`
	RouteCount  int             `json:"route_count"`
	BestGrade   string          `json:"best_grade,omitempty"`
	Degraded    bool            `json:"degraded"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind        string `json:"kind,omitempty"`
	Destination string `json:"destination,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for runs.
type Store interface {
	SaveRun(ctx context.Context, run Run) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RunFromResult summarizes a recommendation into a Run of the given kind.
func RunFromResult(kind string, req recommend.Request, res *recommend.Result) (Run, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return Run{}, eris.Wrap(err, "store: marshal result")
	}
	run := Run{
		Kind:        kind,
		Origin:      req.Origin,
		Destination: req.Destination,
		TravelTime:  res.At,
		RouteCount:  len(res.Routes),
		Degraded:    res.Degraded,
		Result:      body,
	}
	if best, ok := res.Best(); ok {
		run.BestGrade = string(best.Score.Grade)
	}
	return run, nil
}
