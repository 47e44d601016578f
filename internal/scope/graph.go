package scope

import (
	"context"
	"errors"
)

// Graph resolves the transitive closure of granted scopes over the includes
// relation.
type Graph struct {
	store Store
}

// NewGraph constructs a Graph backed by the given store.
func NewGraph(store Store) (*Graph, error) {
	if store == nil {
		return nil, errors.New("scope: store is required")
	}
	return &Graph{store: store}, nil
}

// Flatten expands a set of directly granted scope ids into the full set
// reachable through includes edges, the input included. Ids that do not
// resolve to a scope are dropped silently; they contribute nothing to the
// closure. Visited ids are never re-expanded, so cycles in the raw edge
// data terminate.
func (g *Graph) Flatten(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	result := make(map[int64]struct{}, len(ids))
	queue := make([]int64, 0, len(ids))
	queue = append(queue, ids...)

	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if _, ok := result[id]; ok {
			continue
		}
		sc, err := g.store.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[id] = struct{}{}
		queue = append(queue, sc.Includes...)
	}
	return result, nil
}

// HasRequired reports whether every id in required is present in granted.
func HasRequired(granted map[int64]struct{}, required ...int64) bool {
	for _, id := range required {
		if _, ok := granted[id]; !ok {
			return false
		}
	}
	return true
}
