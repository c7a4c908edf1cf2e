package opt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fleetplan/internal/model"
)

func TestConstructBundlesOntoFirstVehicle(t *testing.T) {
	inst := newTestInstance(t, ringProblem())
	s := Construct(inst, DefaultBuildOptions())

	require.Equal(t, 4, s.Fulfilled())
	require.Empty(t, s.Unassigned)
	require.Equal(t, []string{"O1", "O2", "O3", "O4"}, s.Routes[0].Orders)
	require.InDelta(t, 8.0, s.Routes[0].Distance, 1e-9)
	require.InDelta(t, 18.0, s.Routes[0].Cost, 1e-9)
	require.True(t, s.Routes[1].Empty())
}

func TestConstructSortsBySizeThenID(t *testing.T) {
	inst := newTestInstance(t, ringProblem())
	require.Equal(t, []string{"O4", "O1", "O2", "O3"}, inst.sortedBySize())
}

func TestConstructRespectsPerTypeLimit(t *testing.T) {
	inst := newTestInstance(t, ringProblem())
	opts := BuildOptions{MaxOrdersByType: map[string]int{"LightVan": 2}}
	s := Construct(inst, opts)

	require.Equal(t, 4, s.Fulfilled())
	// pass 1 gives each vehicle two orders; nothing is left for recovery
	require.ElementsMatch(t, []string{"O4", "O1"}, s.Routes[0].Orders)
	require.ElementsMatch(t, []string{"O2", "O3"}, s.Routes[1].Orders)
}

func TestConstructRespectsStock(t *testing.T) {
	p := ringProblem()
	p.Warehouses[0].Inventory = map[string]int{"A": 10, "B": 1}
	inst := newTestInstance(t, p)
	s := Construct(inst, DefaultBuildOptions())

	require.Equal(t, []string{"O2"}, s.Unassigned)
	require.Equal(t, 3, s.Fulfilled())
	plan := Finalize(inst, s)
	require.NoError(t, Validate(p, plan))
}

func TestConstructFallsBackToSmallerBundles(t *testing.T) {
	p := ringProblem()
	// the full bundle needs 8, a single trip to node 5 needs 4
	p.Vehicles[0].MaxDistance = 5
	p.Vehicles = p.Vehicles[:1]
	inst := newTestInstance(t, p)
	s := Construct(inst, DefaultBuildOptions())

	require.True(t, s.Routes[0].Feasible())
	require.LessOrEqual(t, s.Routes[0].Distance, 5.0)
	require.Positive(t, s.Fulfilled())
	require.Equal(t, 4, s.Fulfilled()+len(s.Unassigned))
}

func TestConstructEmptyInputs(t *testing.T) {
	inst := newTestInstance(t, model.Problem{})
	s := Construct(inst, DefaultBuildOptions())
	require.Empty(t, s.Routes)
	require.Zero(t, s.Fulfilled())

	p := ringProblem()
	p.Vehicles = nil
	inst = newTestInstance(t, p)
	s = Construct(inst, DefaultBuildOptions())
	require.Equal(t, []string{"O1", "O2", "O3", "O4"}, s.Unassigned)
}

func TestConstructIsDeterministic(t *testing.T) {
	p := gridProblem(5, 12)
	a := Construct(newTestInstance(t, p), DefaultBuildOptions())
	b := Construct(newTestInstance(t, p), DefaultBuildOptions())
	for i := range a.Routes {
		require.Equal(t, a.Routes[i].Orders, b.Routes[i].Orders)
	}
	require.Equal(t, a.Unassigned, b.Unassigned)
}

func TestSaturationEstimateDecays(t *testing.T) {
	inst := newTestInstance(t, ringProblem())
	// O1 and O3 both sit one hop from the depot: round trip 2 each
	est := inst.saturationEstimate(1, []string{"O1", "O3"})
	require.InDelta(t, 2+2*marginalFactor(2), est, 1e-9)
	require.Less(t, est, 4.0)
	require.InDelta(t, 1.0, marginalFactor(1), 1e-12)
}

func TestNearestNeighbourFromHome(t *testing.T) {
	inst := newTestInstance(t, ringProblem())
	require.Equal(t, []string{"O1", "O2", "O3", "O4"}, inst.nearestNeighbour(1, []string{"O4", "O3", "O2", "O1"}))
}

func TestConstructSkipsOrdersOutOfRange(t *testing.T) {
	// FAR sorts first but its round trip of 100 exceeds the range of 20;
	// the three near orders must still share one vehicle.
	p := model.Problem{
		Nodes: []model.Node{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
		Edges: biEdges(
			model.Edge{From: 1, To: 2, Distance: 1},
			model.Edge{From: 1, To: 3, Distance: 1},
			model.Edge{From: 1, To: 4, Distance: 1},
			model.Edge{From: 1, To: 5, Distance: 50},
		),
		SKUs: []model.SKU{{ID: "A", Weight: 1, Volume: 1}},
		Orders: []model.Order{
			{ID: "FAR", Node: 5, Items: map[string]int{"A": 3}},
			{ID: "N1", Node: 2, Items: map[string]int{"A": 1}},
			{ID: "N2", Node: 3, Items: map[string]int{"A": 1}},
			{ID: "N3", Node: 4, Items: map[string]int{"A": 1}},
		},
		Vehicles: []model.Vehicle{
			{ID: "V1", Type: "LightVan", HomeWarehouseID: "W1", CapWeight: 10, CapVolume: 10, MaxDistance: 20, CostPerDistance: 1, FixedCost: 100},
			{ID: "V2", Type: "LightVan", HomeWarehouseID: "W1", CapWeight: 10, CapVolume: 10, MaxDistance: 20, CostPerDistance: 1, FixedCost: 100},
		},
		Warehouses: []model.Warehouse{{ID: "W1", Node: 1, Inventory: map[string]int{"A": 10}}},
	}
	inst := newTestInstance(t, p)
	require.Equal(t, "FAR", inst.sortedBySize()[0])

	s := Construct(inst, DefaultBuildOptions())
	require.ElementsMatch(t, []string{"N1", "N2", "N3"}, s.Routes[0].Orders)
	require.True(t, s.Routes[1].Empty())
	require.Equal(t, []string{"FAR"}, s.Unassigned)
	require.InDelta(t, 106.0, s.TotalCost(), 1e-9)
}

func TestConstructZeroRangeServesOnlyHomeNode(t *testing.T) {
	p := ringProblem()
	p.Orders = append(p.Orders, model.Order{ID: "O0", Node: 1, Items: map[string]int{"A": 1}})
	for i := range p.Vehicles {
		p.Vehicles[i].MaxDistance = 0
	}
	inst := newTestInstance(t, p)
	s := Construct(inst, DefaultBuildOptions())

	require.Equal(t, 1, s.Fulfilled())
	require.Equal(t, []string{"O1", "O2", "O3", "O4"}, s.Unassigned)
	for _, r := range s.Routes {
		require.Zero(t, r.Distance)
	}
	require.NoError(t, Validate(p, Finalize(inst, s)))
}
