package host

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Panel is an open to-do panel that can be told to go away.
type Panel interface {
	Close() error
}

// Registry tracks the open panels. Only one panel is active at a time:
// activating a new one closes the others.
type Registry struct {
	mu     sync.Mutex
	order  []string
	panels map[string]Panel
}

func NewRegistry() *Registry {
	return &Registry{panels: map[string]Panel{}}
}

// Activate closes every other registered panel, registers p and returns its
// id. Close errors from the evicted panels are joined and returned alongside
// the new id.
func (r *Registry) Activate(p Panel) (string, error) {
	r.mu.Lock()
	evicted := make([]Panel, 0, len(r.order))
	for _, id := range r.order {
		evicted = append(evicted, r.panels[id])
	}
	id := uuid.NewString()
	r.order = []string{id}
	r.panels = map[string]Panel{id: p}
	r.mu.Unlock()

	var errs []error
	for _, old := range evicted {
		if err := old.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return id, errors.Join(errs...)
}

// Release forgets the panel with the given id without closing it.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.panels[id]; !ok {
		return
	}
	delete(r.panels, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Active returns the ids of the registered panels.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}
