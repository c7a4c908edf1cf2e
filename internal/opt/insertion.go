package opt

import (
	"math"
	"sort"
)

// insertion is the cheapest feasible placement of one order into one route.
type insertion struct {
	route int
	pos   int
	delta float64
	next  *Route // priced route with the order in place
}

// insertionsFor returns, per route, the cheapest feasible position for
// orderID, sorted by cost increase then route index. Routes whose
// warehouse cannot cover the order after other routes' reservations are
// skipped.
func (s *Solution) insertionsFor(orderID string) []insertion {
	o := s.inst.order(orderID)
	if o == nil || !o.servable {
		return nil
	}
	var out []insertion
	for ri, r := range s.Routes {
		if !s.inst.usable[r.VehicleIdx] || r.has(orderID) || !r.fitsLoad(o) {
			continue
		}
		if !s.canStock(ri, orderID) {
			continue
		}
		if best, ok := r.bestPosition(orderID); ok {
			best.route = ri
			out = append(out, best)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].delta != out[j].delta {
			return out[i].delta < out[j].delta
		}
		return out[i].route < out[j].route
	})
	return out
}

// bestPosition tries every position in the delivery sequence.
func (r *Route) bestPosition(orderID string) (insertion, bool) {
	best := insertion{delta: math.Inf(1)}
	found := false
	for pos := 0; pos <= len(r.Orders); pos++ {
		next, err := r.withOrderAt(orderID, pos)
		if err != nil {
			continue
		}
		if d := next.Cost - r.Cost; d < best.delta-eps {
			best = insertion{pos: pos, delta: d, next: next}
			found = true
		}
	}
	return best, found
}

// apply commits an insertion produced against this solution.
func (s *Solution) apply(ins insertion, orderID string) {
	s.Routes[ins.route] = ins.next
	s.markAssigned(orderID)
}

// regretScore sums cost_j - cost_1 over the k cheapest costs. costs must be
// sorted ascending; fewer than k entries sum what is there.
func regretScore(costs []float64, k int) float64 {
	if len(costs) == 0 {
		return 0
	}
	r := 0.0
	for j := 1; j < k && j < len(costs); j++ {
		r += costs[j] - costs[0]
	}
	return r
}
