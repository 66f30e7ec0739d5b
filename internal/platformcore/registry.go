package platformcore

import "fmt"

// Registry maps a Platform identifier to its concrete Adapter value,
// built once at process start. There is no reflection or string-keyed
// dynamic lookup beyond this single map, per the closed Platform enum
// above it.
type Registry struct {
	adapters map[Platform]Adapter
}

// NewRegistry builds a Registry from a fixed set of adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		if !a.Platform().Valid() {
			return nil, fmt.Errorf("platformcore: adapter registered under unknown platform %q", a.Platform())
		}
		r.adapters[a.Platform()] = a
	}
	return r, nil
}

// Get returns the adapter for platform, or false if none is
// registered (a configuration defect, not a runtime condition callers
// should retry).
func (r *Registry) Get(platform Platform) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

// MustGet is Get but panics if platform has no adapter; used at
// process wiring time where a missing adapter is a startup bug.
func (r *Registry) MustGet(platform Platform) Adapter {
	a, ok := r.Get(platform)
	if !ok {
		panic(fmt.Sprintf("platformcore: no adapter registered for platform %q", platform))
	}
	return a
}
