package opt

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"fleetplan/internal/model"
)

// export turns one route into its plan form, expanding every leg into the
// intermediate nodes of its shortest path.
func (r *Route) export() (model.RoutePlan, error) {
	rp := model.RoutePlan{VehicleID: r.Vehicle.ID, Distance: r.Distance, Cost: r.Cost}
	for i, st := range r.Stops {
		if i > 0 {
			path, err := r.inst.Router.Path(r.Stops[i-1].Node, st.Node)
			if err != nil {
				return rp, fmt.Errorf("vehicle %s leg %d: %w", r.Vehicle.ID, i, err)
			}
			for j := 1; j < len(path.Nodes)-1; j++ {
				rp.Steps = append(rp.Steps, model.Step{NodeID: path.Nodes[j], Pickups: []model.Pickup{}, Deliveries: []model.Delivery{}, Unloads: []model.Unload{}})
			}
		}
		rp.Steps = append(rp.Steps, model.Step{
			NodeID:     st.Node,
			Pickups:    append([]model.Pickup{}, st.Pickups...),
			Deliveries: append([]model.Delivery{}, st.Deliveries...),
			Unloads:    append([]model.Unload{}, st.Unloads...),
		})
	}
	return rp, nil
}

// Finalize exports a solution and re-validates it. Routes that fail
// validation are dropped and their orders reported unassigned.
func Finalize(inst *Instance, s *Solution) model.Plan {
	plan := model.Plan{Routes: []model.RoutePlan{}}
	for _, r := range s.Routes {
		if r.Empty() {
			continue
		}
		rp, err := r.export()
		if err != nil {
			log.Warn().Err(err).Str("vehicle", r.Vehicle.ID).Msg("route dropped at export")
			continue
		}
		plan.Routes = append(plan.Routes, rp)
	}
	out, err := Reconcile(inst.Problem, plan)
	if err != nil {
		// the graph was already built once for this instance
		log.Error().Err(err).Msg("reconcile failed")
		return model.Plan{Routes: []model.RoutePlan{}, Unassigned: inst.sortedIDs()}
	}
	return out
}

// Reconcile re-validates an exported plan against the problem: each
// violating route is dropped, distances and costs are recomputed from the
// graph, and the unassigned list and totals are rebuilt. Applying it to its
// own output changes nothing.
func Reconcile(p model.Problem, plan model.Plan) (model.Plan, error) {
	c, err := newChecker(p)
	if err != nil {
		return model.Plan{}, err
	}
	l := c.newLedger()
	out := model.Plan{Routes: []model.RoutePlan{}, Unassigned: []string{}}
	for _, rp := range plan.Routes {
		f, err := c.route(rp)
		if err == nil && len(f.orders) == 0 {
			continue
		}
		if err == nil {
			err = l.admit(rp.VehicleID, f)
		}
		if err != nil {
			log.Warn().Err(err).Str("vehicle", rp.VehicleID).Msg("route dropped")
			continue
		}
		v := c.vehicles[rp.VehicleID]
		rp.Distance = f.distance
		rp.Cost = f.distance*v.CostPerDistance + v.FixedCost
		out.Routes = append(out.Routes, rp)
		out.TotalCost += rp.Cost
	}
	for _, o := range p.Orders {
		if !l.delivered[o.ID] {
			out.Unassigned = append(out.Unassigned, o.ID)
		}
	}
	sort.Strings(out.Unassigned)
	out.Unassigned = dedupe(out.Unassigned)
	out.Fulfilled = len(l.delivered)
	return out, nil
}

func (inst *Instance) sortedIDs() []string {
	ids := inst.OrderIDs()
	sort.Strings(ids)
	return ids
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			out = append(out, id)
		}
	}
	return out
}
