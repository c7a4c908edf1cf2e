package graph

import (
	"container/heap"
	"fmt"
)

// DefaultNodeBudget caps the number of settled nodes per search.
const DefaultNodeBudget = 100000

// Path is a node sequence with its length. Exact is false when the path came
// from the breadth-first fallback and may not be the shortest.
type Path struct {
	Nodes    []int
	Distance float64
	Exact    bool
}

type pqItem struct {
	node  int
	dist  float64
	index int
}

// pq is a min-heap on tentative distance, ties broken by node id so equal
// length paths resolve the same way on every run.
type pq []*pqItem

func (h pq) Len() int { return len(h) }
func (h pq) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h pq) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *pq) Push(x any) {
	it := x.(*pqItem)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *pq) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// ShortestPath searches start->end. On unweighted graphs it degrades to the
// breadth-first fallback. A non-positive budget means DefaultNodeBudget.
func (g *Graph) ShortestPath(start, end, budget int) (Path, error) {
	if budget <= 0 {
		budget = DefaultNodeBudget
	}
	if start == end {
		return Path{Nodes: []int{start}, Exact: true}, nil
	}
	if !g.weighted {
		return g.breadthFirst(start, end, budget)
	}

	dist := map[int]float64{start: 0}
	prev := map[int]int{}
	settled := map[int]bool{}
	h := &pq{}
	heap.Push(h, &pqItem{node: start, dist: 0})
	expanded := 0
	for h.Len() > 0 {
		cur := heap.Pop(h).(*pqItem)
		if settled[cur.node] {
			continue
		}
		if cur.node == end {
			return Path{Nodes: walkBack(prev, start, end), Distance: cur.dist, Exact: true}, nil
		}
		settled[cur.node] = true
		expanded++
		if expanded > budget {
			return Path{}, fmt.Errorf("%d->%d: node budget %d exhausted: %w", start, end, budget, ErrNoPath)
		}
		for _, a := range g.adj[cur.node] {
			if settled[a.to] {
				continue
			}
			nd := cur.dist + a.w
			if d, ok := dist[a.to]; !ok || nd < d {
				dist[a.to] = nd
				prev[a.to] = cur.node
				heap.Push(h, &pqItem{node: a.to, dist: nd})
			}
		}
	}
	return Path{}, fmt.Errorf("%d->%d: %w", start, end, ErrNoPath)
}

func walkBack(prev map[int]int, start, end int) []int {
	out := []int{end}
	for cur := end; cur != start; {
		cur = prev[cur]
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
