package risk

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Loader builds a fresh snapshot from the configured sources.
type Loader func(ctx context.Context) (*Snapshot, error)

// Holder publishes the current snapshot. Readers never block; reloads are
// serialized and swap the pointer only after a successful build.
type Holder struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
	load    Loader
}

// NewHolder returns a Holder that uses load for Reload. snap may be nil
// until the first Reload.
func NewHolder(snap *Snapshot, load Loader) *Holder {
	h := &Holder{load: load}
	if snap != nil {
		h.current.Store(snap)
	}
	return h
}

// Current returns the published snapshot, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Reload builds a new snapshot and publishes it. On failure the previous
// snapshot stays in place.
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	if h.load == nil {
		return nil, eris.New("risk: no loader configured")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := h.load(ctx)
	if err != nil {
		zap.L().Warn("risk: reload failed, keeping current snapshot", zap.Error(err))
		return nil, eris.Wrap(err, "risk: reload")
	}
	h.current.Store(snap)
	return snap, nil
}
