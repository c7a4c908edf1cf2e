package opt

// DefaultMaxBalanceMoves bounds the work of one balancing call.
const DefaultMaxBalanceMoves = 3

// maxDistanceWith is the system-wide longest route if routes a and b were
// replaced by ra and rb.
func (s *Solution) maxDistanceWith(a int, ra *Route, b int, rb *Route) float64 {
	m := 0.0
	for i, r := range s.Routes {
		switch i {
		case a:
			r = ra
		case b:
			r = rb
		}
		if !r.Empty() && r.Distance > m {
			m = r.Distance
		}
	}
	return m
}

// balance moves orders off the longest route to wherever they lower the
// system-wide maximum route distance the most, at most maxMoves times.
// Fulfillment never changes. Returns the number of moves made.
func (s *Solution) balance(maxMoves int) int {
	if maxMoves <= 0 {
		maxMoves = DefaultMaxBalanceMoves
	}
	moves := 0
	for moves < maxMoves {
		current, li := s.MaxDistance()
		if li < 0 {
			return moves
		}
		longest := s.Routes[li]
		bestMax := current
		var bestFrom, bestTo *Route
		bestTarget := -1
		for _, id := range longest.Orders {
			lifted, err := longest.without(id)
			if err != nil {
				continue
			}
			trial := &Solution{Routes: append([]*Route(nil), s.Routes...), inst: s.inst}
			trial.Routes[li] = lifted
			o := s.inst.order(id)
			for ti, r := range s.Routes {
				if ti == li || !s.inst.usable[ti] || !r.fitsLoad(o) || !trial.canStock(ti, id) {
					continue
				}
				ins, ok := r.bestPosition(id)
				if !ok {
					continue
				}
				if m := s.maxDistanceWith(li, lifted, ti, ins.next); m < bestMax-eps {
					bestMax, bestFrom, bestTo, bestTarget = m, lifted, ins.next, ti
				}
			}
		}
		if bestTarget < 0 {
			return moves
		}
		s.Routes[li] = bestFrom
		s.Routes[bestTarget] = bestTo
		moves++
	}
	return moves
}
