package job

import (
	"errors"
	"sort"
	"sync"
)

// ErrStepNotFound is returned when a step cannot be found by ID.
var ErrStepNotFound = errors.New("job: step not found")

// registry is the coordinator's in-memory step store. It holds the
// live aggregates: the coordinator mutates steps through their own
// transition methods, while external readers get clones through the
// snapshot methods.
type registry struct {
	mu    sync.RWMutex
	steps map[string]*Step
}

// newRegistry creates an empty step registry.
func newRegistry() *registry {
	return &registry{
		steps: make(map[string]*Step),
	}
}

// add registers a step under its ID, replacing any previous entry.
func (r *registry) add(step *Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[step.ID] = step
}

// get returns the live step for mutation by the coordinator.
func (r *registry) get(id string) (*Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	step, ok := r.steps[id]
	return step, ok
}

// remove drops a step from the registry.
func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.steps[id]; !ok {
		return false
	}
	delete(r.steps, id)
	return true
}

// snapshot returns a clone of the step with the given ID.
// Returns ErrStepNotFound if the step does not exist.
func (r *registry) snapshot(id string) (*Step, error) {
	step, ok := r.get(id)
	if !ok {
		return nil, ErrStepNotFound
	}
	return step.Clone(), nil
}

// snapshots returns clones of all steps ordered by creation time.
func (r *registry) snapshots() []*Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Step, 0, len(r.steps))
	for _, step := range r.steps {
		out = append(out, step.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}
