package opt

import (
	"sort"
)

// Solution is the mutable subject of the search: one route slot per
// vehicle (an empty route is an idle vehicle) plus the unassigned orders.
type Solution struct {
	Routes     []*Route
	Unassigned []string // sorted

	inst *Instance
}

func newSolution(inst *Instance) *Solution {
	s := &Solution{Routes: make([]*Route, len(inst.Problem.Vehicles)), inst: inst}
	for i := range s.Routes {
		s.Routes[i] = newRoute(inst, i)
	}
	return s
}

// Clone deep-copies every route; the copy shares no mutable state.
func (s *Solution) Clone() *Solution {
	c := &Solution{Routes: make([]*Route, len(s.Routes)), Unassigned: append([]string(nil), s.Unassigned...), inst: s.inst}
	for i, r := range s.Routes {
		c.Routes[i] = r.Clone()
	}
	return c
}

// Fulfilled counts orders carried by some route.
func (s *Solution) Fulfilled() int {
	n := 0
	for _, r := range s.Routes {
		n += len(r.Orders)
	}
	return n
}

func (s *Solution) TotalCost() float64 {
	total := 0.0
	for _, r := range s.Routes {
		total += r.Cost
	}
	return total
}

func (s *Solution) TotalDistance() float64 {
	total := 0.0
	for _, r := range s.Routes {
		total += r.Distance
	}
	return total
}

// MaxDistance returns the longest route distance and its index, -1 when
// every vehicle is idle.
func (s *Solution) MaxDistance() (float64, int) {
	best, idx := 0.0, -1
	for i, r := range s.Routes {
		if r.Empty() {
			continue
		}
		if idx == -1 || r.Distance > best {
			best, idx = r.Distance, i
		}
	}
	return best, idx
}

// Assigned lists orders carried by routes, sorted.
func (s *Solution) Assigned() []string {
	out := []string{}
	for _, r := range s.Routes {
		out = append(out, r.Orders...)
	}
	sort.Strings(out)
	return out
}

// routeOf returns the index of the route carrying orderID, or -1.
func (s *Solution) routeOf(orderID string) int {
	for i, r := range s.Routes {
		if r.has(orderID) {
			return i
		}
	}
	return -1
}

func (s *Solution) markUnassigned(orderID string) {
	i := sort.SearchStrings(s.Unassigned, orderID)
	if i < len(s.Unassigned) && s.Unassigned[i] == orderID {
		return
	}
	s.Unassigned = append(s.Unassigned, "")
	copy(s.Unassigned[i+1:], s.Unassigned[i:])
	s.Unassigned[i] = orderID
}

func (s *Solution) markAssigned(orderID string) {
	i := sort.SearchStrings(s.Unassigned, orderID)
	if i < len(s.Unassigned) && s.Unassigned[i] == orderID {
		s.Unassigned = append(s.Unassigned[:i], s.Unassigned[i+1:]...)
	}
}

// reserved sums what the working solution already picks up at a warehouse.
// The snapshot itself is never modified.
func (s *Solution) reserved(warehouseID string, skip int) map[string]int {
	out := map[string]int{}
	for i, r := range s.Routes {
		if i == skip || r.Warehouse != warehouseID {
			continue
		}
		for _, id := range r.Orders {
			for sku, q := range s.inst.order(id).Items {
				out[sku] += q
			}
		}
	}
	return out
}

// stockFits reports whether the warehouse snapshot can cover extra on top of
// everything other routes (and route skip's own orders, if skip >= 0, are
// ignored) already reserve.
func (s *Solution) stockFits(warehouseID string, skip int, extra map[string]int) bool {
	w, ok := s.inst.warehouses[warehouseID]
	if !ok {
		return false
	}
	res := s.reserved(warehouseID, skip)
	for sku, q := range extra {
		if w.Inventory[sku] < res[sku]+q {
			return false
		}
	}
	return true
}

// canStock checks that route ri's warehouse can also supply orderID.
func (s *Solution) canStock(ri int, orderID string) bool {
	r := s.Routes[ri]
	need := map[string]int{}
	for _, id := range r.Orders {
		for sku, q := range s.inst.order(id).Items {
			need[sku] += q
		}
	}
	for sku, q := range s.inst.order(orderID).Items {
		need[sku] += q
	}
	return s.stockFits(r.Warehouse, ri, need)
}

// better orders solutions by fulfillment, then cost.
func better(a, b *Solution) bool {
	fa, fb := a.Fulfilled(), b.Fulfilled()
	if fa != fb {
		return fa > fb
	}
	return a.TotalCost() < b.TotalCost()-eps
}

// bestHolder owns the best-known solution. Commit is the only way to
// change it and stores a private copy.
type bestHolder struct {
	sol *Solution
}

func newBestHolder(s *Solution) *bestHolder { return &bestHolder{sol: s.Clone()} }

// Commit replaces the best-known solution when cand beats it.
func (b *bestHolder) Commit(cand *Solution) bool {
	if !better(cand, b.sol) {
		return false
	}
	b.sol = cand.Clone()
	return true
}

func (b *bestHolder) Best() *Solution { return b.sol }
