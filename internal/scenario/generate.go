package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"fleetplan/internal/model"
)

// GenerateOptions sizes a synthetic scenario.
type GenerateOptions struct {
	GridSize          int // nodes per side of the road grid
	Warehouses        int
	VehiclesPerDepot  int
	Orders            int
	MaxItemsPerOrder  int
	StockPerWarehouse int
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{GridSize: 12, Warehouses: 2, VehiclesPerDepot: 3, Orders: 40, MaxItemsPerOrder: 3, StockPerWarehouse: 120}
}

var vehicleTypes = []model.Vehicle{
	{Type: "LightVan", CapWeight: 800, CapVolume: 3, MaxDistance: 60, CostPerDistance: 1, FixedCost: 300},
	{Type: "MediumTruck", CapWeight: 1600, CapVolume: 6, MaxDistance: 90, CostPerDistance: 1.25, FixedCost: 625},
	{Type: "HeavyTruck", CapWeight: 5000, CapVolume: 20, MaxDistance: 120, CostPerDistance: 1.5, FixedCost: 1200},
}

var skuCatalog = []model.SKU{
	{ID: "Light_Item", Weight: 5, Volume: 0.02},
	{ID: "Medium_Item", Weight: 15, Volume: 0.06},
	{ID: "Heavy_Item", Weight: 30, Volume: 0.12},
}

// Generate builds a reproducible synthetic scenario: a two-way road
// grid with a few missing blocks, depots spread along the diagonal and
// orders on random intersections. Edge distances are kilometres between
// node coordinates.
func Generate(seed int64, o GenerateOptions) model.Problem {
	d := DefaultGenerateOptions()
	if o.GridSize < 2 {
		o.GridSize = d.GridSize
	}
	if o.Warehouses <= 0 {
		o.Warehouses = d.Warehouses
	}
	if o.VehiclesPerDepot <= 0 {
		o.VehiclesPerDepot = d.VehiclesPerDepot
	}
	if o.Orders < 0 {
		o.Orders = d.Orders
	}
	if o.MaxItemsPerOrder <= 0 {
		o.MaxItemsPerOrder = d.MaxItemsPerOrder
	}
	if o.StockPerWarehouse <= 0 {
		o.StockPerWarehouse = d.StockPerWarehouse
	}
	rng := rand.New(rand.NewSource(seed))
	n := o.GridSize
	const lat0, lng0, step = 30.00, 31.20, 0.01

	p := model.Problem{SKUs: append([]model.SKU(nil), skuCatalog...)}
	id := func(r, c int) int { return r*n + c + 1 }
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			p.Nodes = append(p.Nodes, model.Node{ID: id(r, c), Lat: lat0 + float64(r)*step, Lng: lng0 + float64(c)*step})
		}
	}
	coord := func(node int) model.Node { return p.Nodes[node-1] }
	link := func(a, b int) {
		km := haversineKm(coord(a), coord(b))
		p.Edges = append(p.Edges, model.Edge{From: a, To: b, Distance: km}, model.Edge{From: b, To: a, Distance: km})
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			// drop about one block in twenty, never on the outer ring so the
			// grid stays connected
			inner := r > 0 && c > 0 && r < n-1 && c < n-1
			if c+1 < n && !(inner && rng.Intn(20) == 0) {
				link(id(r, c), id(r, c+1))
			}
			if r+1 < n && !(inner && rng.Intn(20) == 0) {
				link(id(r, c), id(r+1, c))
			}
		}
	}

	depotNodes := map[int]bool{}
	for w := 0; w < o.Warehouses; w++ {
		k := (w + 1) * (n - 1) / (o.Warehouses + 1)
		node := id(k, k)
		depotNodes[node] = true
		inv := map[string]int{}
		for _, s := range skuCatalog {
			inv[s.ID] = o.StockPerWarehouse/2 + rng.Intn(o.StockPerWarehouse/2+1)
		}
		wid := fmt.Sprintf("WH-%d", w+1)
		p.Warehouses = append(p.Warehouses, model.Warehouse{ID: wid, Node: node, Inventory: inv})
		for v := 0; v < o.VehiclesPerDepot; v++ {
			vt := vehicleTypes[v%len(vehicleTypes)]
			vt.ID = fmt.Sprintf("%s_%d_%d", vt.Type, w+1, v+1)
			vt.HomeWarehouseID = wid
			p.Vehicles = append(p.Vehicles, vt)
		}
	}

	for i := 0; i < o.Orders; i++ {
		node := 1 + rng.Intn(n*n)
		for depotNodes[node] {
			node = 1 + rng.Intn(n*n)
		}
		items := map[string]int{}
		for k := 1 + rng.Intn(o.MaxItemsPerOrder); k > 0; k-- {
			items[skuCatalog[rng.Intn(len(skuCatalog))].ID] += 1 + rng.Intn(4)
		}
		p.Orders = append(p.Orders, model.Order{ID: fmt.Sprintf("ORD-%03d", i+1), Node: node, Items: items})
	}
	return p
}

func haversineKm(a, b model.Node) float64 {
	const R = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
