package boundary

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// DataLoadError reports a boundary or crime source that is missing,
// unreadable, or malformed. It is fatal at initialization.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("data load %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Store holds the loaded regions in load order.
type Store struct {
	regions []*Region
	byName  map[string]*Region
}

// NewStore indexes regions by name. A repeated name keeps the first region.
func NewStore(regions []*Region) *Store {
	s := &Store{byName: make(map[string]*Region, len(regions))}
	for _, r := range regions {
		if r == nil {
			continue
		}
		if _, dup := s.byName[r.Name]; dup {
			zap.L().Warn("boundary: duplicate region name, keeping first", zap.String("region", r.Name))
			continue
		}
		s.byName[r.Name] = r
		s.regions = append(s.regions, r)
	}
	return s
}

// Regions returns the regions in load order. Callers must not modify it.
func (s *Store) Regions() []*Region {
	return s.regions
}

// Len returns the number of regions.
func (s *Store) Len() int {
	return len(s.regions)
}

// Get returns the region with the exact name.
func (s *Store) Get(name string) (*Region, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Names returns region names in load order.
func (s *Store) Names() []string {
	names := make([]string, len(s.regions))
	for i, r := range s.regions {
		names[i] = r.Name
	}
	return names
}

// Locate returns the first region, in load order, containing c.
func (s *Store) Locate(c geom.Coord) (*Region, bool) {
	for _, r := range s.regions {
		if r.Contains(c) {
			return r, true
		}
	}
	return nil, false
}
