package opt

// twoOpt reverses delivery subsequences while that lowers the route cost
// and keeps it feasible. iterations caps full sweeps.
func (r *Route) twoOpt(iterations int) *Route {
	if iterations <= 0 {
		iterations = 1
	}
	best := r
	n := len(r.Orders)
	if n < 2 {
		return best
	}
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand, err := best.withSequence(twoOptSwap(best.Orders, i, k))
				if err != nil {
					continue
				}
				if cand.Cost+1e-3 < best.Cost {
					best = cand
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []string, i, k int) []string {
	out := make([]string, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

// polish runs 2-opt on every route. Returns how many routes got cheaper.
func (s *Solution) polish(iterations int) int {
	n := 0
	for i, r := range s.Routes {
		if next := r.twoOpt(iterations); next != r {
			s.Routes[i] = next
			n++
		}
	}
	return n
}
