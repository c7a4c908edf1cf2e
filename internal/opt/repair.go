package opt

import (
	"math"
	"math/rand"
	"sort"
)

// greedyRecover repeatedly inserts the unassigned order with the globally
// cheapest feasible insertion until nothing fits. Returns how many orders
// were placed.
func (s *Solution) greedyRecover() int {
	placed := 0
	for {
		bestID := ""
		var best insertion
		for _, id := range s.Unassigned {
			opts := s.insertionsFor(id)
			if len(opts) == 0 {
				continue
			}
			if bestID == "" || opts[0].delta < best.delta-eps {
				bestID, best = id, opts[0]
			}
		}
		if bestID == "" {
			return placed
		}
		s.apply(best, bestID)
		placed++
	}
}

type regretCandidate struct {
	id      string
	options int
	regret  float64
	best    insertion
}

// before orders candidates: fewer-than-k options first, then higher
// regret, then cheaper best insertion, then id.
func (c regretCandidate) before(o regretCandidate, k int) bool {
	cs, os := c.options < k, o.options < k
	if cs != os {
		return cs
	}
	if math.Abs(c.regret-o.regret) > eps {
		return c.regret > o.regret
	}
	if math.Abs(c.best.delta-o.best.delta) > eps {
		return c.best.delta < o.best.delta
	}
	return c.id < o.id
}

// regretInsert places unassigned orders by regret-k, recomputing every
// score after each insertion. Returns how many orders were placed.
func (s *Solution) regretInsert(k int) int {
	if k < 2 {
		k = 2
	}
	placed := 0
	for {
		var pick *regretCandidate
		for _, id := range s.Unassigned {
			opts := s.insertionsFor(id)
			if len(opts) == 0 {
				continue
			}
			costs := make([]float64, 0, k)
			for j := 0; j < k && j < len(opts); j++ {
				costs = append(costs, opts[j].delta)
			}
			c := regretCandidate{id: id, options: len(opts), regret: regretScore(costs, k), best: opts[0]}
			if pick == nil || c.before(*pick, k) {
				pick = &c
			}
		}
		if pick == nil {
			return placed
		}
		s.apply(pick.best, pick.id)
		placed++
	}
}

// relocationTarget picks the assigned order a relocation move will lift,
// using the given selection operator. Returns "" when nothing is assigned.
func (s *Solution) relocationTarget(op Operator, rng *rand.Rand) string {
	assigned := s.Assigned()
	if len(assigned) == 0 {
		return ""
	}
	switch op {
	case OpWorstRelocate:
		type saving struct {
			id string
			v  float64
		}
		savings := make([]saving, 0, len(assigned))
		for _, id := range assigned {
			ri := s.routeOf(id)
			next, err := s.Routes[ri].without(id)
			if err != nil {
				continue
			}
			savings = append(savings, saving{id, s.Routes[ri].Cost - next.Cost})
		}
		if len(savings) == 0 {
			break
		}
		sort.SliceStable(savings, func(i, j int) bool { return savings[i].v > savings[j].v })
		n := 3
		if len(savings) < n {
			n = len(savings)
		}
		return savings[rng.Intn(n)].id
	case OpRelatedRelocate:
		seed := assigned[rng.Intn(len(assigned))]
		if len(assigned) == 1 {
			return seed
		}
		from := s.inst.order(seed).Node
		best, bestD := "", math.Inf(1)
		for _, id := range assigned {
			if id == seed {
				continue
			}
			if d := s.inst.distanceOrInf(from, s.inst.order(id).Node); best == "" || d < bestD {
				best, bestD = id, d
			}
		}
		return best
	}
	return assigned[rng.Intn(len(assigned))]
}

// relocate lifts orderID off its route and reinserts it at the cheapest
// feasible position anywhere, idle vehicles included. When nothing fits it
// becomes unassigned. Reports whether the order was placed again.
func (s *Solution) relocate(orderID string) bool {
	ri := s.routeOf(orderID)
	if ri < 0 {
		return false
	}
	lifted, err := s.Routes[ri].without(orderID)
	if err != nil {
		return false
	}
	s.Routes[ri] = lifted
	s.markUnassigned(orderID)
	opts := s.insertionsFor(orderID)
	if len(opts) == 0 {
		return false
	}
	s.apply(opts[0], orderID)
	return true
}
