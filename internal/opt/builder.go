package opt

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

// BuildOptions bounds how many orders the constructive pass bundles onto
// one vehicle. The search may grow routes past these limits later.
type BuildOptions struct {
	MaxOrdersByType  map[string]int `mapstructure:"max_orders_by_type" json:"maxOrdersByType" yaml:"maxOrdersByType"`
	DefaultMaxOrders int            `mapstructure:"default_max_orders" json:"defaultMaxOrders" yaml:"defaultMaxOrders"`
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MaxOrdersByType:  map[string]int{"LightVan": 4, "MediumTruck": 5, "HeavyTruck": 5},
		DefaultMaxOrders: 4,
	}
}

func (o BuildOptions) maxOrders(vehicleType string) int {
	if n, ok := o.MaxOrdersByType[vehicleType]; ok && n > 0 {
		return n
	}
	if o.DefaultMaxOrders > 0 {
		return o.DefaultMaxOrders
	}
	return 4
}

// Saturation model: the n-th order added to a tour costs about
// m(n)/m(1) of its own round trip, m(n) = 0.23 * n^-0.77.
const saturationExp = -0.77

func marginalFactor(n int) float64 { return math.Pow(float64(n), saturationExp) }

// saturationEstimate is the expected tour length for the bundle in the
// given order.
func (inst *Instance) saturationEstimate(home int, bundle []string) float64 {
	total := 0.0
	for i, id := range bundle {
		total += inst.roundTrip(home, inst.order(id).Node) * marginalFactor(i+1)
	}
	return total
}

// Construct builds the initial solution: bundles per vehicle, then single
// orders on idle vehicles, then a last attempt for every leftover order.
// Deterministic for a given instance.
func Construct(inst *Instance, opts BuildOptions) *Solution {
	s := newSolution(inst)
	remaining := inst.sortedBySize()
	for _, id := range inst.orderIDs {
		if !inst.order(id).servable {
			s.markUnassigned(id)
		}
	}

	bundled := 0
	for vi := range s.Routes {
		if !inst.usable[vi] || len(remaining) == 0 {
			continue
		}
		bundle := s.pack(vi, remaining, opts.maxOrders(inst.Problem.Vehicles[vi].Type))
		if len(bundle) == 0 {
			continue
		}
		for _, cand := range s.bundleLevels(vi, bundle) {
			r, err := s.Routes[vi].withSequence(inst.nearestNeighbour(s.Routes[vi].Home, cand))
			if err != nil {
				continue
			}
			s.Routes[vi] = r
			remaining = without(remaining, cand)
			bundled += len(cand)
			break
		}
	}

	singles := 0
	for vi, r := range s.Routes {
		if !inst.usable[vi] || !r.Empty() {
			continue
		}
		for _, id := range remaining {
			if !s.canStock(vi, id) {
				continue
			}
			if next, err := r.withSequence([]string{id}); err == nil {
				s.Routes[vi] = next
				remaining = without(remaining, []string{id})
				singles++
				break
			}
		}
	}

	recovered := 0
	for _, id := range append([]string(nil), remaining...) {
		o := inst.order(id)
		for vi, r := range s.Routes {
			if !inst.usable[vi] || s.exhausted(vi, remaining) || !r.fitsLoad(o) || !s.canStock(vi, id) {
				continue
			}
			seq := inst.nearestNeighbour(r.Home, append(append([]string(nil), r.Orders...), id))
			if next, err := r.withSequence(seq); err == nil {
				s.Routes[vi] = next
				remaining = without(remaining, []string{id})
				recovered++
				break
			}
		}
	}
	for _, id := range remaining {
		s.markUnassigned(id)
	}

	log.Info().
		Int("orders", len(inst.orderIDs)).
		Int("vehicles", len(s.Routes)).
		Int("bundled", bundled).
		Int("singles", singles).
		Int("recovered", recovered).
		Int("unassigned", len(s.Unassigned)).
		Float64("distance", s.TotalDistance()).
		Float64("cost", s.TotalCost()).
		Msg("initial solution built")
	return s
}

// sortedBySize returns servable orders by aggregate weight+volume
// descending, ties by id.
func (inst *Instance) sortedBySize() []string {
	out := []string{}
	for _, id := range inst.orderIDs {
		if inst.order(id).servable {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := inst.order(out[i]), inst.order(out[j])
		if a.size() != b.size() {
			return a.size() > b.size()
		}
		return out[i] < out[j]
	})
	return out
}

// pack greedily takes compatible orders in size order until capacity,
// stock or the per-type count limit stops it. Orders whose round trip from
// home exceeds the vehicle's range are never bundled.
func (s *Solution) pack(vi int, remaining []string, limit int) []string {
	v := s.inst.Problem.Vehicles[vi]
	home := s.inst.homes[vi]
	var w, vol float64
	need := map[string]int{}
	var bundle []string
	for _, id := range remaining {
		if len(bundle) >= limit {
			break
		}
		o := s.inst.order(id)
		if s.inst.roundTrip(home, o.Node) > v.MaxDistance+eps {
			continue
		}
		if w+o.weight > v.CapWeight+eps || vol+o.volume > v.CapVolume+eps {
			continue
		}
		trial := map[string]int{}
		for sku, q := range need {
			trial[sku] = q
		}
		for sku, q := range o.Items {
			trial[sku] += q
		}
		if !s.stockFits(v.HomeWarehouseID, vi, trial) {
			continue
		}
		need = trial
		w += o.weight
		vol += o.volume
		bundle = append(bundle, id)
	}
	return bundle
}

// bundleLevels lists the candidate bundles to try in order: the longest
// prefix the saturation estimate expects to fit (when the full bundle is
// expected to overrun), the full bundle, half of it, its first order.
func (s *Solution) bundleLevels(vi int, bundle []string) [][]string {
	v := s.inst.Problem.Vehicles[vi]
	home := s.inst.homes[vi]
	var levels [][]string
	if s.inst.saturationEstimate(home, bundle) > v.MaxDistance {
		for k := len(bundle) - 1; k >= 1; k-- {
			if s.inst.saturationEstimate(home, bundle[:k]) <= v.MaxDistance {
				levels = append(levels, bundle[:k])
				break
			}
		}
	}
	levels = append(levels, bundle)
	if half := len(bundle) / 2; half > 1 {
		levels = append(levels, bundle[:half])
	}
	if len(bundle) > 1 {
		levels = append(levels, bundle[:1])
	}
	return levels
}

// nearestNeighbour sequences deliveries greedily from home, ties by id.
// Once only unreachable destinations remain they follow in id order.
func (inst *Instance) nearestNeighbour(home int, ids []string) []string {
	left := append([]string(nil), ids...)
	sort.Strings(left)
	seq := make([]string, 0, len(ids))
	cur := home
	for len(left) > 0 {
		best, bestD := 0, math.Inf(1)
		for i, id := range left {
			if d := inst.distanceOrInf(cur, inst.order(id).Node); d < bestD {
				best, bestD = i, d
			}
		}
		seq = append(seq, left[best])
		cur = inst.order(left[best]).Node
		left = append(left[:best], left[best+1:]...)
	}
	return seq
}

// exhausted reports a vehicle that cannot take even the smallest remaining
// order by load, or has no distance left.
func (s *Solution) exhausted(vi int, remaining []string) bool {
	r := s.Routes[vi]
	if r.Distance >= r.Vehicle.MaxDistance-eps {
		return true
	}
	for _, id := range remaining {
		if r.fitsLoad(s.inst.order(id)) {
			return false
		}
	}
	return true
}

func without(ids, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	out := ids[:0:0]
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}
