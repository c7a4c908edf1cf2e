package graph

// Router memoizes path queries for the lifetime of one solve. Failed queries
// are cached too, so an unreachable pair is searched once. Not safe for
// concurrent use; every solve owns its own Router.
type Router struct {
	g      *Graph
	budget int
	cache  map[[2]int]cached
	hits   int
	misses int
}

type cached struct {
	p   Path
	err error
}

func NewRouter(g *Graph, budget int) *Router {
	return &Router{g: g, budget: budget, cache: map[[2]int]cached{}}
}

// Path returns the shortest path a->b. The returned node slice is shared
// with the cache and must not be modified.
func (r *Router) Path(a, b int) (Path, error) {
	k := [2]int{a, b}
	if c, ok := r.cache[k]; ok {
		r.hits++
		return c.p, c.err
	}
	r.misses++
	p, err := r.g.ShortestPath(a, b, r.budget)
	r.cache[k] = cached{p: p, err: err}
	return p, err
}

func (r *Router) Distance(a, b int) (float64, error) {
	p, err := r.Path(a, b)
	if err != nil {
		return 0, err
	}
	return p.Distance, nil
}

// Stats reports cache hits and misses.
func (r *Router) Stats() (hits, misses int) { return r.hits, r.misses }
