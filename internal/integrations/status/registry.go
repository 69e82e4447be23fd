package status

import (
	"fmt"
	"sort"
)

// Registry maps provider ids to providers. It is read-only after construction.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("nil provider")
		}
		id := p.ID()
		if id == "" {
			return nil, fmt.Errorf("provider with empty id")
		}
		if _, dup := r.providers[id]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", id)
		}
		r.providers[id] = p
	}
	return r, nil
}

func (r *Registry) Resolve(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, UnknownProviderError(id)
	}
	return p, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
