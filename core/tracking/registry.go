package tracking

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/overlay-core/core/scene"
)

type VisualizationState int

const (
	VisualizationLoading VisualizationState = iota
	VisualizationLive
	VisualizationFailed
)

func (s VisualizationState) String() string {
	switch s {
	case VisualizationLoading:
		return "loading"
	case VisualizationLive:
		return "live"
	case VisualizationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Visualization is the rendered stand-in for one live anchor. Root follows
// the anchor's world pose; Model is the asset instance placed under it once
// loaded.
type Visualization struct {
	AnchorID      uuid.UUID
	ReferenceName string
	AssetName     string
	Root          scene.Entity
	Model         scene.Entity
	State         VisualizationState

	cancel context.CancelFunc
}

var ErrDuplicateAnchor = errors.New("anchor already registered")

// Registry maps live anchor IDs to their visualizations. Only the stream
// processor mutates it; reads are safe from any goroutine.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Visualization
}

func NewRegistry() *Registry {
	return &Registry{entries: map[uuid.UUID]*Visualization{}}
}

func (r *Registry) reserve(v *Visualization) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[v.AnchorID]; ok {
		return ErrDuplicateAnchor
	}
	r.entries[v.AnchorID] = v
	return nil
}

func (r *Registry) lookup(anchorID uuid.UUID) (*Visualization, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[anchorID]
	return v, ok
}

// isCurrent reports whether v is still the registration for its anchor.
func (r *Registry) isCurrent(v *Visualization) bool {
	current, ok := r.lookup(v.AnchorID)
	return ok && current == v
}

func (r *Registry) update(v *Visualization, mutate func(*Visualization)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mutate(v)
}

func (r *Registry) remove(anchorID uuid.UUID) (*Visualization, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.entries[anchorID]
	if ok {
		delete(r.entries, anchorID)
	}
	return v, ok
}

// drain removes and returns every entry.
func (r *Registry) drain() []*Visualization {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := make([]*Visualization, 0, len(r.entries))
	for _, v := range r.entries {
		drained = append(drained, v)
	}
	r.entries = map[uuid.UUID]*Visualization{}
	return drained
}

// Get returns a copy of the visualization registered for anchorID.
func (r *Registry) Get(anchorID uuid.UUID) (Visualization, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[anchorID]
	if !ok {
		return Visualization{}, false
	}
	return *v, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Snapshot returns copies of all entries ordered by anchor ID.
func (r *Registry) Snapshot() []Visualization {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]Visualization, 0, len(r.entries))
	for _, v := range r.entries {
		snapshot = append(snapshot, *v)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].AnchorID.String() < snapshot[j].AnchorID.String()
	})
	return snapshot
}

// CountLive returns the number of visualizations with an attached model.
func (r *Registry) CountLive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	live := 0
	for _, v := range r.entries {
		if v.State == VisualizationLive {
			live++
		}
	}
	return live
}
