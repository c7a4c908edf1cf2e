package opt

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"fleetplan/internal/model"
)

// ErrInfeasible marks a route or move that breaks capacity, distance,
// onboard inventory or stock. It never leaves the package.
var ErrInfeasible = errors.New("infeasible")

const eps = 1e-6

// Stop is one visit on a route with the actions performed there, applied in
// the order pickups, deliveries, unloads.
type Stop struct {
	Node       int
	Pickups    []model.Pickup
	Deliveries []model.Delivery
	Unloads    []model.Unload
}

// Route is one vehicle's tour. Orders is the delivery sequence and the
// decision variable the search mutates; Stops is materialized from it by
// Rebuild.
type Route struct {
	VehicleIdx int
	Vehicle    model.Vehicle
	Home       int
	Warehouse  string
	Orders     []string
	Stops      []Stop
	Weight     float64 // peak onboard weight
	Volume     float64 // peak onboard volume
	Distance   float64
	Cost       float64

	inst *Instance
}

func newRoute(inst *Instance, vi int) *Route {
	v := inst.Problem.Vehicles[vi]
	return &Route{VehicleIdx: vi, Vehicle: v, Home: inst.homes[vi], Warehouse: v.HomeWarehouseID, inst: inst}
}

func (r *Route) Empty() bool { return len(r.Orders) == 0 }

func (r *Route) lastStop(node int) *Stop {
	if n := len(r.Stops); n > 0 && r.Stops[n-1].Node == node {
		return &r.Stops[n-1]
	}
	r.Stops = append(r.Stops, Stop{Node: node})
	return &r.Stops[len(r.Stops)-1]
}

// AppendPickup loads qty units of sku at the warehouse, opening a new stop
// unless the route is already standing at the warehouse node.
func (r *Route) AppendPickup(warehouseID, sku string, qty int) {
	w := r.inst.warehouses[warehouseID]
	st := r.lastStop(w.Node)
	st.Pickups = append(st.Pickups, model.Pickup{WarehouseID: warehouseID, SKUID: sku, Quantity: qty})
}

// AppendDelivery hands qty units of sku to the order at its destination.
func (r *Route) AppendDelivery(orderID, sku string, qty int) {
	o := r.inst.order(orderID)
	st := r.lastStop(o.Node)
	st.Deliveries = append(st.Deliveries, model.Delivery{OrderID: orderID, SKUID: sku, Quantity: qty})
}

// AppendUnload drops leftover stock at the current stop, or at home when the
// route has no stops yet.
func (r *Route) AppendUnload(sku string, qty int) {
	node := r.Home
	if n := len(r.Stops); n > 0 {
		node = r.Stops[n-1].Node
	}
	st := r.lastStop(node)
	st.Unloads = append(st.Unloads, model.Unload{SKUID: sku, Quantity: qty})
}

// Rebuild regenerates the stop list from the delivery sequence: one pickup
// stop at home for everything the route carries, one delivery stop per
// order, then back home. An empty sequence yields no stops.
func (r *Route) Rebuild() {
	r.Stops = nil
	r.Weight, r.Volume = 0, 0
	if len(r.Orders) == 0 {
		return
	}
	need := map[string]int{}
	for _, id := range r.Orders {
		for sku, q := range r.inst.order(id).Items {
			need[sku] += q
		}
	}
	skus := make([]string, 0, len(need))
	for sku := range need {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	r.Stops = append(r.Stops, Stop{Node: r.Home})
	for _, sku := range skus {
		r.AppendPickup(r.Warehouse, sku, need[sku])
		s := r.inst.skus[sku]
		r.Weight += s.Weight * float64(need[sku])
		r.Volume += s.Volume * float64(need[sku])
	}
	for _, id := range r.Orders {
		o := r.inst.order(id)
		for _, sku := range o.skuIDs {
			r.AppendDelivery(id, sku, o.Items[sku])
		}
	}
	r.lastStop(r.Home)
}

// RecomputeMetrics sums shortest-path distances between consecutive stops
// and prices the route. An unreachable leg leaves Distance at +Inf.
func (r *Route) RecomputeMetrics() error {
	r.Distance, r.Cost = 0, 0
	if len(r.Orders) == 0 {
		return nil
	}
	for i := 1; i < len(r.Stops); i++ {
		d, err := r.inst.Router.Distance(r.Stops[i-1].Node, r.Stops[i].Node)
		if err != nil {
			r.Distance, r.Cost = math.Inf(1), math.Inf(1)
			return fmt.Errorf("route %s leg %d: %w", r.Vehicle.ID, i, err)
		}
		r.Distance += d
	}
	r.Cost = r.Distance*r.Vehicle.CostPerDistance + r.Vehicle.FixedCost
	return nil
}

// Check replays the stops and reports the first broken invariant.
func (r *Route) Check() error {
	if len(r.Orders) == 0 {
		return nil
	}
	if len(r.Stops) == 0 || r.Stops[0].Node != r.Home || r.Stops[len(r.Stops)-1].Node != r.Home {
		return fmt.Errorf("route %s does not start and end at home: %w", r.Vehicle.ID, ErrInfeasible)
	}
	v := r.Vehicle
	onboard := map[string]int{}
	var w, vol float64
	for i, st := range r.Stops {
		for _, p := range st.Pickups {
			onboard[p.SKUID] += p.Quantity
			s := r.inst.skus[p.SKUID]
			w += s.Weight * float64(p.Quantity)
			vol += s.Volume * float64(p.Quantity)
		}
		if w > v.CapWeight+eps || vol > v.CapVolume+eps {
			return fmt.Errorf("route %s stop %d: load %.2f/%.2f over capacity: %w", v.ID, i, w, vol, ErrInfeasible)
		}
		for _, d := range st.Deliveries {
			onboard[d.SKUID] -= d.Quantity
			s := r.inst.skus[d.SKUID]
			w -= s.Weight * float64(d.Quantity)
			vol -= s.Volume * float64(d.Quantity)
			if onboard[d.SKUID] < 0 {
				return fmt.Errorf("route %s stop %d: sku %s delivered before pickup: %w", v.ID, i, d.SKUID, ErrInfeasible)
			}
		}
		for _, u := range st.Unloads {
			onboard[u.SKUID] -= u.Quantity
			if onboard[u.SKUID] < 0 {
				return fmt.Errorf("route %s stop %d: unload of %s exceeds onboard: %w", v.ID, i, u.SKUID, ErrInfeasible)
			}
		}
	}
	if math.IsInf(r.Distance, 1) {
		return fmt.Errorf("route %s unreachable leg: %w", v.ID, ErrInfeasible)
	}
	if r.Distance > v.MaxDistance+eps {
		return fmt.Errorf("route %s distance %.2f over %.2f: %w", v.ID, r.Distance, v.MaxDistance, ErrInfeasible)
	}
	return nil
}

func (r *Route) Feasible() bool { return r.Check() == nil }

// Clone returns a deep copy sharing only the read-only instance.
func (r *Route) Clone() *Route {
	c := *r
	c.Orders = append([]string(nil), r.Orders...)
	if r.Stops != nil {
		c.Stops = make([]Stop, len(r.Stops))
		for i, st := range r.Stops {
			c.Stops[i] = Stop{
				Node:       st.Node,
				Pickups:    append([]model.Pickup(nil), st.Pickups...),
				Deliveries: append([]model.Delivery(nil), st.Deliveries...),
				Unloads:    append([]model.Unload(nil), st.Unloads...),
			}
		}
	}
	return &c
}

// withSequence returns a priced copy carrying the given delivery sequence.
func (r *Route) withSequence(seq []string) (*Route, error) {
	c := r.Clone()
	c.Orders = seq
	c.Rebuild()
	if err := c.RecomputeMetrics(); err != nil {
		return c, err
	}
	return c, c.Check()
}

// withOrderAt returns a copy with orderID inserted at position pos.
func (r *Route) withOrderAt(orderID string, pos int) (*Route, error) {
	seq := make([]string, 0, len(r.Orders)+1)
	seq = append(seq, r.Orders[:pos]...)
	seq = append(seq, orderID)
	seq = append(seq, r.Orders[pos:]...)
	return r.withSequence(seq)
}

// without returns a copy with orderID removed. Removing an order never
// breaks feasibility except through an unreachable leg, reported as error.
func (r *Route) without(orderID string) (*Route, error) {
	seq := make([]string, 0, len(r.Orders))
	for _, id := range r.Orders {
		if id != orderID {
			seq = append(seq, id)
		}
	}
	return r.withSequence(seq)
}

func (r *Route) has(orderID string) bool {
	for _, id := range r.Orders {
		if id == orderID {
			return true
		}
	}
	return false
}

// fitsLoad is a cheap capacity prefilter before any path work.
func (r *Route) fitsLoad(o *orderInfo) bool {
	return r.Weight+o.weight <= r.Vehicle.CapWeight+eps && r.Volume+o.volume <= r.Vehicle.CapVolume+eps
}
