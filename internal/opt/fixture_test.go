package opt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"fleetplan/internal/graph"
	"fleetplan/internal/model"
)

func biEdges(es ...model.Edge) []model.Edge {
	out := make([]model.Edge, 0, 2*len(es))
	for _, e := range es {
		out = append(out, e, model.Edge{From: e.To, To: e.From, Distance: e.Distance})
	}
	return out
}

// ringProblem is a four-node ring around the depot at node 1 plus a spur
// to node 5:
//
//	1 -1- 2 -1- 3 -1- 4 -1- 1,  1 -2- 5
func ringProblem() model.Problem {
	return model.Problem{
		Nodes: []model.Node{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}},
		Edges: biEdges(
			model.Edge{From: 1, To: 2, Distance: 1},
			model.Edge{From: 2, To: 3, Distance: 1},
			model.Edge{From: 3, To: 4, Distance: 1},
			model.Edge{From: 4, To: 1, Distance: 1},
			model.Edge{From: 1, To: 5, Distance: 2},
		),
		SKUs: []model.SKU{{ID: "A", Weight: 1, Volume: 1}, {ID: "B", Weight: 2, Volume: 1}},
		Orders: []model.Order{
			{ID: "O1", Node: 2, Items: map[string]int{"A": 2}},
			{ID: "O2", Node: 3, Items: map[string]int{"B": 1}},
			{ID: "O3", Node: 4, Items: map[string]int{"A": 1}},
			{ID: "O4", Node: 5, Items: map[string]int{"A": 1, "B": 1}},
		},
		Vehicles: []model.Vehicle{
			{ID: "V1", Type: "LightVan", HomeWarehouseID: "W1", CapWeight: 10, CapVolume: 10, MaxDistance: 100, CostPerDistance: 1, FixedCost: 10},
			{ID: "V2", Type: "LightVan", HomeWarehouseID: "W1", CapWeight: 10, CapVolume: 10, MaxDistance: 100, CostPerDistance: 1, FixedCost: 10},
		},
		Warehouses: []model.Warehouse{{ID: "W1", Node: 1, Inventory: map[string]int{"A": 10, "B": 10}}},
	}
}

func newTestInstance(t *testing.T, p model.Problem) *Instance {
	t.Helper()
	g, err := graph.FromProblem(p)
	require.NoError(t, err)
	return NewInstance(p, graph.NewRouter(g, 0))
}

// gridProblem builds an n x n grid with unit edges, two depots in opposite
// corners and orders spread over the remaining nodes.
func gridProblem(n, orders int) model.Problem {
	p := model.Problem{
		SKUs: []model.SKU{{ID: "S1", Weight: 1, Volume: 1}, {ID: "S2", Weight: 3, Volume: 2}},
	}
	id := func(r, c int) int { return r*n + c + 1 }
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			p.Nodes = append(p.Nodes, model.Node{ID: id(r, c)})
			if c+1 < n {
				p.Edges = append(p.Edges, biEdges(model.Edge{From: id(r, c), To: id(r, c+1), Distance: 1})...)
			}
			if r+1 < n {
				p.Edges = append(p.Edges, biEdges(model.Edge{From: id(r, c), To: id(r+1, c), Distance: 1.5})...)
			}
		}
	}
	p.Warehouses = []model.Warehouse{
		{ID: "WA", Node: id(0, 0), Inventory: map[string]int{"S1": 40, "S2": 10}},
		{ID: "WB", Node: id(n-1, n-1), Inventory: map[string]int{"S1": 40, "S2": 10}},
	}
	p.Vehicles = []model.Vehicle{
		{ID: "VA1", Type: "LightVan", HomeWarehouseID: "WA", CapWeight: 12, CapVolume: 10, MaxDistance: 30, CostPerDistance: 1, FixedCost: 5},
		{ID: "VA2", Type: "MediumTruck", HomeWarehouseID: "WA", CapWeight: 20, CapVolume: 15, MaxDistance: 40, CostPerDistance: 1.5, FixedCost: 8},
		{ID: "VB1", Type: "LightVan", HomeWarehouseID: "WB", CapWeight: 12, CapVolume: 10, MaxDistance: 30, CostPerDistance: 1, FixedCost: 5},
		{ID: "VB2", Type: "HeavyTruck", HomeWarehouseID: "WB", CapWeight: 30, CapVolume: 20, MaxDistance: 50, CostPerDistance: 2, FixedCost: 12},
	}
	for i := 0; i < orders; i++ {
		node := 2 + (i*7)%(n*n-2)
		items := map[string]int{"S1": 1 + i%3}
		if i%4 == 0 {
			items["S2"] = 1
		}
		p.Orders = append(p.Orders, model.Order{ID: fmt.Sprintf("O%02d", i), Node: node, Items: items})
	}
	return p
}
