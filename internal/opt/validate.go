package opt

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"fleetplan/internal/graph"
	"fleetplan/internal/model"
)

// ErrInvariant marks an exported plan that breaks a routing invariant.
var ErrInvariant = errors.New("invariant violated")

type stockKey struct{ warehouse, sku string }

// routeFacts is what replaying one exported route establishes.
type routeFacts struct {
	distance float64
	orders   []string // fully delivered, sorted
	pickups  map[stockKey]int
}

// checker replays exported routes against the problem data alone; it does
// not trust anything the solver computed.
type checker struct {
	p          model.Problem
	g          *graph.Graph
	skus       map[string]model.SKU
	orders     map[string]model.Order
	vehicles   map[string]model.Vehicle
	warehouses map[string]model.Warehouse
}

func newChecker(p model.Problem) (*checker, error) {
	g, err := graph.FromProblem(p)
	if err != nil {
		return nil, err
	}
	c := &checker{
		p:          p,
		g:          g,
		skus:       map[string]model.SKU{},
		orders:     map[string]model.Order{},
		vehicles:   map[string]model.Vehicle{},
		warehouses: map[string]model.Warehouse{},
	}
	for _, s := range p.SKUs {
		c.skus[s.ID] = s
	}
	for _, o := range p.Orders {
		c.orders[o.ID] = o
	}
	for _, v := range p.Vehicles {
		c.vehicles[v.ID] = v
	}
	for _, w := range p.Warehouses {
		c.warehouses[w.ID] = w
	}
	return c, nil
}

func invariant(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvariant)
}

// route replays one route stop by stop.
func (c *checker) route(rp model.RoutePlan) (routeFacts, error) {
	f := routeFacts{pickups: map[stockKey]int{}}
	v, ok := c.vehicles[rp.VehicleID]
	if !ok {
		return f, invariant("unknown vehicle %q", rp.VehicleID)
	}
	home, ok := c.warehouses[v.HomeWarehouseID]
	if !ok {
		return f, invariant("vehicle %s: unknown home warehouse %q", v.ID, v.HomeWarehouseID)
	}
	if len(rp.Steps) == 0 || rp.Steps[0].NodeID != home.Node || rp.Steps[len(rp.Steps)-1].NodeID != home.Node {
		return f, invariant("vehicle %s: route must start and end at node %d", v.ID, home.Node)
	}
	onboard := map[string]int{}
	delivered := map[string]map[string]int{}
	var w, vol float64
	for i, st := range rp.Steps {
		if i > 0 && rp.Steps[i-1].NodeID != st.NodeID {
			d, ok := c.g.LegDistance(rp.Steps[i-1].NodeID, st.NodeID)
			if !ok {
				return f, invariant("vehicle %s step %d: no edge %d->%d", v.ID, i, rp.Steps[i-1].NodeID, st.NodeID)
			}
			f.distance += d
		}
		for _, p := range st.Pickups {
			wh, ok := c.warehouses[p.WarehouseID]
			if !ok || wh.Node != st.NodeID {
				return f, invariant("vehicle %s step %d: pickup from %q away from its warehouse", v.ID, i, p.WarehouseID)
			}
			s, ok := c.skus[p.SKUID]
			if !ok || p.Quantity <= 0 {
				return f, invariant("vehicle %s step %d: bad pickup of %q", v.ID, i, p.SKUID)
			}
			onboard[p.SKUID] += p.Quantity
			f.pickups[stockKey{p.WarehouseID, p.SKUID}] += p.Quantity
			w += s.Weight * float64(p.Quantity)
			vol += s.Volume * float64(p.Quantity)
		}
		if w > v.CapWeight+eps || vol > v.CapVolume+eps {
			return f, invariant("vehicle %s step %d: load %.2f/%.2f over capacity %.2f/%.2f", v.ID, i, w, vol, v.CapWeight, v.CapVolume)
		}
		for _, d := range st.Deliveries {
			o, ok := c.orders[d.OrderID]
			if !ok || o.Node != st.NodeID {
				return f, invariant("vehicle %s step %d: delivery for %q away from its destination", v.ID, i, d.OrderID)
			}
			if d.Quantity <= 0 {
				return f, invariant("vehicle %s step %d: non-positive delivery", v.ID, i)
			}
			onboard[d.SKUID] -= d.Quantity
			if onboard[d.SKUID] < 0 {
				return f, invariant("vehicle %s step %d: %s delivered before pickup", v.ID, i, d.SKUID)
			}
			s := c.skus[d.SKUID]
			w -= s.Weight * float64(d.Quantity)
			vol -= s.Volume * float64(d.Quantity)
			if delivered[d.OrderID] == nil {
				delivered[d.OrderID] = map[string]int{}
			}
			delivered[d.OrderID][d.SKUID] += d.Quantity
		}
		for _, u := range st.Unloads {
			onboard[u.SKUID] -= u.Quantity
			if u.Quantity <= 0 || onboard[u.SKUID] < 0 {
				return f, invariant("vehicle %s step %d: bad unload of %s", v.ID, i, u.SKUID)
			}
			s := c.skus[u.SKUID]
			w -= s.Weight * float64(u.Quantity)
			vol -= s.Volume * float64(u.Quantity)
		}
	}
	if f.distance > v.MaxDistance+eps {
		return f, invariant("vehicle %s: distance %.2f over %.2f", v.ID, f.distance, v.MaxDistance)
	}
	for id, got := range delivered {
		want := c.orders[id].Items
		if len(got) != len(want) {
			return f, invariant("vehicle %s: order %s partially delivered", v.ID, id)
		}
		for sku, q := range want {
			if got[sku] != q {
				return f, invariant("vehicle %s: order %s sku %s delivered %d of %d", v.ID, id, sku, got[sku], q)
			}
		}
		f.orders = append(f.orders, id)
	}
	sort.Strings(f.orders)
	return f, nil
}

// ledger tracks what the accepted routes already consume.
type ledger struct {
	c         *checker
	vehicles  map[string]bool
	delivered map[string]bool
	stock     map[stockKey]int
}

func (c *checker) newLedger() *ledger {
	return &ledger{c: c, vehicles: map[string]bool{}, delivered: map[string]bool{}, stock: map[stockKey]int{}}
}

// admit checks a replayed route against everything admitted before it and
// records it when it fits.
func (l *ledger) admit(vehicleID string, f routeFacts) error {
	if l.vehicles[vehicleID] {
		return invariant("vehicle %s used by more than one route", vehicleID)
	}
	for _, id := range f.orders {
		if l.delivered[id] {
			return invariant("order %s delivered twice", id)
		}
	}
	for k, q := range f.pickups {
		if l.stock[k]+q > l.c.warehouses[k.warehouse].Inventory[k.sku] {
			return invariant("warehouse %s sku %s over-drawn", k.warehouse, k.sku)
		}
	}
	l.vehicles[vehicleID] = true
	for _, id := range f.orders {
		l.delivered[id] = true
	}
	for k, q := range f.pickups {
		l.stock[k] += q
	}
	return nil
}

// Validate checks every invariant of an exported plan against its problem
// and reports all violations.
func Validate(p model.Problem, plan model.Plan) error {
	c, err := newChecker(p)
	if err != nil {
		return err
	}
	l := c.newLedger()
	var errs []error
	cost := 0.0
	for _, rp := range plan.Routes {
		f, err := c.route(rp)
		if err == nil {
			err = l.admit(rp.VehicleID, f)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cost += rp.Cost
	}
	if math.Abs(cost-plan.TotalCost) > 1e-6*math.Max(1, cost) {
		errs = append(errs, invariant("total cost %.4f, routes sum to %.4f", plan.TotalCost, cost))
	}
	if plan.Fulfilled != len(l.delivered) {
		errs = append(errs, invariant("fulfilled %d, delivered %d", plan.Fulfilled, len(l.delivered)))
	}
	for _, id := range plan.Unassigned {
		if l.delivered[id] {
			errs = append(errs, invariant("order %s both delivered and unassigned", id))
		}
	}
	if len(l.delivered)+len(plan.Unassigned) != len(c.orders) {
		errs = append(errs, invariant("%d delivered + %d unassigned != %d orders", len(l.delivered), len(plan.Unassigned), len(c.orders)))
	}
	return errors.Join(errs...)
}
