package opt

import (
	"math"
	"sort"

	"fleetplan/internal/graph"
	"fleetplan/internal/model"
)

// Instance is the read-only view of one planning problem the solver works
// against: lookups by id, precomputed order sizes and vehicle homes.
type Instance struct {
	Problem    model.Problem
	Router     *graph.Router
	skus       map[string]model.SKU
	orders     map[string]*orderInfo
	orderIDs   []string // input order
	warehouses map[string]model.Warehouse
	homes      []int  // home node per vehicle index
	usable     []bool // vehicle has a known home warehouse
}

type orderInfo struct {
	model.Order
	weight   float64
	volume   float64
	skuIDs   []string // sorted
	servable bool     // every sku known and quantities positive
}

func (o *orderInfo) size() float64 { return o.weight + o.volume }

// NewInstance indexes a problem. Orders naming unknown SKUs and vehicles
// naming unknown warehouses are kept but never planned.
func NewInstance(p model.Problem, router *graph.Router) *Instance {
	inst := &Instance{
		Problem:    p,
		Router:     router,
		skus:       map[string]model.SKU{},
		orders:     map[string]*orderInfo{},
		warehouses: map[string]model.Warehouse{},
	}
	for _, s := range p.SKUs {
		inst.skus[s.ID] = s
	}
	for _, w := range p.Warehouses {
		inst.warehouses[w.ID] = w
	}
	for _, o := range p.Orders {
		info := &orderInfo{Order: o, servable: len(o.Items) > 0}
		ids := make([]string, 0, len(o.Items))
		for sku := range o.Items {
			ids = append(ids, sku)
		}
		// sum in a fixed order so sizes compare identically across runs
		sort.Strings(ids)
		for _, sku := range ids {
			q := o.Items[sku]
			s, ok := inst.skus[sku]
			if !ok || q <= 0 {
				info.servable = false
				continue
			}
			info.weight += s.Weight * float64(q)
			info.volume += s.Volume * float64(q)
			info.skuIDs = append(info.skuIDs, sku)
		}
		if _, dup := inst.orders[o.ID]; !dup {
			inst.orderIDs = append(inst.orderIDs, o.ID)
		}
		inst.orders[o.ID] = info
	}
	inst.homes = make([]int, len(p.Vehicles))
	inst.usable = make([]bool, len(p.Vehicles))
	for i, v := range p.Vehicles {
		if w, ok := inst.warehouses[v.HomeWarehouseID]; ok {
			inst.homes[i] = w.Node
			inst.usable[i] = true
		}
	}
	return inst
}

func (inst *Instance) order(id string) *orderInfo { return inst.orders[id] }

// OrderIDs returns every order id in input order.
func (inst *Instance) OrderIDs() []string { return append([]string(nil), inst.orderIDs...) }

// roundTrip is the home->node->home distance, +Inf when either leg is
// unreachable.
func (inst *Instance) roundTrip(home, node int) float64 {
	out, err := inst.Router.Distance(home, node)
	if err != nil {
		return math.Inf(1)
	}
	back, err := inst.Router.Distance(node, home)
	if err != nil {
		return math.Inf(1)
	}
	return out + back
}

// distanceOrInf is a convenience for heuristics that rank by distance and
// treat unreachable targets as infinitely far.
func (inst *Instance) distanceOrInf(a, b int) float64 {
	d, err := inst.Router.Distance(a, b)
	if err != nil {
		return math.Inf(1)
	}
	return d
}
