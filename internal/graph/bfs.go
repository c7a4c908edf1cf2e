package graph

import (
	"fmt"
	"math"
)

// breadthFirst finds the path with the fewest hops. Its distance is an
// estimate; callers must not treat it as the shortest.
func (g *Graph) breadthFirst(start, end, budget int) (Path, error) {
	prev := map[int]int{}
	visited := map[int]bool{start: true}
	queue := []int{start}
	expanded := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		expanded++
		if expanded > budget {
			return Path{}, fmt.Errorf("%d->%d: node budget %d exhausted: %w", start, end, budget, ErrNoPath)
		}
		for _, a := range g.adj[cur] {
			if visited[a.to] {
				continue
			}
			visited[a.to] = true
			prev[a.to] = cur
			if a.to == end {
				nodes := walkBack(prev, start, end)
				total := 0.0
				for i := 0; i < len(nodes)-1; i++ {
					total += g.legDistance(nodes[i], nodes[i+1])
				}
				return Path{Nodes: nodes, Distance: total}, nil
			}
			queue = append(queue, a.to)
		}
	}
	return Path{}, fmt.Errorf("%d->%d: %w", start, end, ErrNoPath)
}

// Straight-line estimate in kilometres.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
