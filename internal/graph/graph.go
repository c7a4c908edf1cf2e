// Package graph is the shortest-path substrate for route planning: a directed
// road graph with non-negative weights, a budget-capped Dijkstra search and a
// breadth-first fallback for graphs without usable weights.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"fleetplan/internal/model"
)

var (
	// ErrNoPath is returned when two nodes cannot be connected within the
	// node budget. It is a give-up signal, not a fault.
	ErrNoPath = errors.New("no path")
	// ErrNegativeWeight rejects graphs Dijkstra cannot search correctly.
	ErrNegativeWeight = errors.New("negative edge weight")
)

type arc struct {
	to int
	w  float64
}

type Graph struct {
	adj      map[int][]arc
	weights  map[[2]int]float64 // cheapest weight for each directed pair
	coords   map[int]model.Node
	weighted bool
}

// New builds a graph from node and edge lists. Parallel edges keep the
// cheapest weight. Edges may reference nodes absent from the node list.
func New(nodes []model.Node, edges []model.Edge, weighted bool) (*Graph, error) {
	g := &Graph{
		adj:      map[int][]arc{},
		weights:  map[[2]int]float64{},
		coords:   map[int]model.Node{},
		weighted: weighted,
	}
	for _, n := range nodes {
		g.coords[n.ID] = n
	}
	for _, e := range edges {
		if e.Distance < 0 {
			return nil, fmt.Errorf("edge %d->%d (%v): %w", e.From, e.To, e.Distance, ErrNegativeWeight)
		}
		k := [2]int{e.From, e.To}
		if w, ok := g.weights[k]; ok {
			if e.Distance < w {
				g.weights[k] = e.Distance
			}
			continue
		}
		g.weights[k] = e.Distance
	}
	for k, w := range g.weights {
		g.adj[k[0]] = append(g.adj[k[0]], arc{to: k[1], w: w})
	}
	// map iteration is random; fix neighbour order so searches are reproducible
	for from := range g.adj {
		a := g.adj[from]
		sort.Slice(a, func(i, j int) bool { return a[i].to < a[j].to })
	}
	return g, nil
}

// FromProblem builds the road graph of a planning instance.
func FromProblem(p model.Problem) (*Graph, error) {
	return New(p.Nodes, p.Edges, !p.Unweighted)
}

// EdgeWeight returns the weight of the directed edge a->b, if present.
func (g *Graph) EdgeWeight(a, b int) (float64, bool) {
	w, ok := g.weights[[2]int{a, b}]
	return w, ok
}

// HasNode reports whether the node is known either as a vertex or as an
// edge endpoint.
func (g *Graph) HasNode(id int) bool {
	if _, ok := g.coords[id]; ok {
		return true
	}
	if _, ok := g.adj[id]; ok {
		return true
	}
	for k := range g.weights {
		if k[1] == id {
			return true
		}
	}
	return false
}

// LegDistance returns the length of the hop a->b as the solver measures
// it, and whether such an edge exists at all.
func (g *Graph) LegDistance(a, b int) (float64, bool) {
	w, ok := g.weights[[2]int{a, b}]
	if !ok {
		return 0, false
	}
	if g.weighted {
		return w, true
	}
	return g.legDistance(a, b), true
}

// legDistance estimates the length of one hop when weights cannot be
// trusted: known positive weight, then haversine, then one unit per hop.
func (g *Graph) legDistance(a, b int) float64 {
	if w, ok := g.weights[[2]int{a, b}]; ok && w > 0 {
		return w
	}
	na, okA := g.coords[a]
	nb, okB := g.coords[b]
	if okA && okB && na.HasCoords() && nb.HasCoords() {
		return haversineKm(na.Lat, na.Lng, nb.Lat, nb.Lng)
	}
	return 1
}
