package overlay

import (
	"sync"

	"github.com/hpungsan/emolens/internal/bridge"
)

// Registry holds one Surface per tab.
type Registry struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	timings  Timings
}

// NewRegistry returns an empty registry whose surfaces use timings.
func NewRegistry(timings Timings) *Registry {
	return &Registry{surfaces: make(map[string]*Surface), timings: timings}
}

// Surface returns the surface for tab, creating it on first use.
func (r *Registry) Surface(tab string) *Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[tab]
	if !ok {
		s = NewSurface(r.timings)
		r.surfaces[tab] = s
	}
	return s
}

// Lookup returns the surface for tab if one exists.
func (r *Registry) Lookup(tab string) (*Surface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[tab]
	return s, ok
}

// Remove forgets the surface for tab. Pass it to bridge.Host.SetLimit so
// evicted tabs release their panels.
func (r *Registry) Remove(tab string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surfaces, tab)
}

// Len reports how many tabs have a surface.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

// Factory returns a bridge target factory backed by the registry.
func (r *Registry) Factory() bridge.TargetFactory {
	return func(tab string) (bridge.RenderTarget, error) {
		return r.Surface(tab), nil
	}
}
