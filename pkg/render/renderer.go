package render

import (
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/pion/logging"
)

// Config configures a Renderer.
type Config struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Binding is a region together with the handle playing into it.
type Binding struct {
	Region Region
	Track  rtc.Track
}

// Renderer tracks region bindings. It is safe for concurrent use.
type Renderer struct {
	log logging.LeveledLogger

	mu       sync.RWMutex
	bindings map[string]*Binding
	order    []string
}

// NewRenderer creates an empty renderer.
func NewRenderer(config Config) *Renderer {
	r := &Renderer{
		bindings: make(map[string]*Binding),
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("render")
	}
	return r
}

// Bind plays t into region. A different handle already bound to the region
// is stopped first; binding the same handle again does nothing.
func (r *Renderer) Bind(region Region, t rtc.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.bindings[region.ID]; ok {
		if b.Track == t {
			return nil
		}
		b.Track.Stop()
		if err := t.Play(region); err != nil {
			r.remove(region.ID)
			return err
		}
		b.Region = region
		b.Track = t
		if r.log != nil {
			r.log.Debugf("rebound region %s to track %s", region.ID, t.ID())
		}
		return nil
	}

	if err := t.Play(region); err != nil {
		return err
	}
	r.bindings[region.ID] = &Binding{Region: region, Track: t}
	r.order = append(r.order, region.ID)
	if r.log != nil {
		r.log.Debugf("bound region %s to track %s", region.ID, t.ID())
	}
	return nil
}

// Release stops the handle bound to the region and forgets the region.
// Returns false if nothing was bound.
func (r *Renderer) Release(regionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[regionID]
	if !ok {
		return false
	}
	b.Track.Stop()
	r.remove(regionID)
	if r.log != nil {
		r.log.Debugf("released region %s", regionID)
	}
	return true
}

// ReleaseAll stops every bound handle.
func (r *Renderer) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		r.bindings[id].Track.Stop()
	}
	r.bindings = make(map[string]*Binding)
	r.order = nil
}

// Lookup returns the binding for a region.
func (r *Renderer) Lookup(regionID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[regionID]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Bindings returns the bindings, local region first, remote regions in the
// order they were bound.
func (r *Renderer) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Binding, 0, len(r.order))
	if b, ok := r.bindings[LocalRegionID]; ok {
		out = append(out, *b)
	}
	for _, id := range r.order {
		if id == LocalRegionID {
			continue
		}
		out = append(out, *r.bindings[id])
	}
	return out
}

// Len returns the number of bound regions.
func (r *Renderer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Renderer) remove(regionID string) {
	delete(r.bindings, regionID)
	for i, id := range r.order {
		if id == regionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
