package model

// Input problem schema. Everything here is read-only to the solver.

type Node struct {
	ID  int     `json:"id" yaml:"id"`
	Lat float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng float64 `json:"lng,omitempty" yaml:"lng,omitempty"`
}

// HasCoords reports whether the node carries a usable coordinate pair.
func (n Node) HasCoords() bool { return n.Lat != 0 || n.Lng != 0 }

type Edge struct {
	From     int     `json:"from" yaml:"from"`
	To       int     `json:"to" yaml:"to"`
	Distance float64 `json:"distance" yaml:"distance"`
}

type SKU struct {
	ID     string  `json:"id" yaml:"id"`
	Weight float64 `json:"weight" yaml:"weight"`
	Volume float64 `json:"volume" yaml:"volume"`
}

type Order struct {
	ID    string         `json:"id" yaml:"id"`
	Node  int            `json:"node" yaml:"node"`
	Items map[string]int `json:"items" yaml:"items"` // sku -> requested quantity
}

// Vehicle is a hard-capacity truck based at one warehouse. MaxDistance is a
// hard limit on the closed tour; zero leaves only orders at the home node.
type Vehicle struct {
	ID              string  `json:"id" yaml:"id"`
	Type            string  `json:"type,omitempty" yaml:"type,omitempty"`
	HomeWarehouseID string  `json:"homeWarehouseId" yaml:"homeWarehouseId"`
	CapWeight       float64 `json:"capWeight" yaml:"capWeight"`
	CapVolume       float64 `json:"capVolume" yaml:"capVolume"`
	MaxDistance     float64 `json:"maxDistance" yaml:"maxDistance"`
	CostPerDistance float64 `json:"costPerDistance" yaml:"costPerDistance"`
	FixedCost       float64 `json:"fixedCost" yaml:"fixedCost"`
}

type Warehouse struct {
	ID        string         `json:"id" yaml:"id"`
	Node      int            `json:"node" yaml:"node"`
	Inventory map[string]int `json:"inventory" yaml:"inventory"`
}

// Problem is one planning instance as supplied by the environment.
// Unweighted on a graph whose edges carry no distances switches the
// shortest-path service to its breadth-first fallback.
type Problem struct {
	Nodes      []Node      `json:"nodes" yaml:"nodes"`
	Edges      []Edge      `json:"edges" yaml:"edges"`
	Unweighted bool        `json:"unweighted,omitempty" yaml:"unweighted,omitempty"`
	SKUs       []SKU       `json:"skus" yaml:"skus"`
	Orders     []Order     `json:"orders" yaml:"orders"`
	Vehicles   []Vehicle   `json:"vehicles" yaml:"vehicles"`
	Warehouses []Warehouse `json:"warehouses" yaml:"warehouses"`
}

// Output plan schema.

type Pickup struct {
	WarehouseID string `json:"warehouseId" yaml:"warehouseId"`
	SKUID       string `json:"skuId" yaml:"skuId"`
	Quantity    int    `json:"quantity" yaml:"quantity"`
}

type Delivery struct {
	OrderID  string `json:"orderId" yaml:"orderId"`
	SKUID    string `json:"skuId" yaml:"skuId"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

type Unload struct {
	SKUID    string `json:"skuId" yaml:"skuId"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

type Step struct {
	NodeID     int        `json:"nodeId" yaml:"nodeId"`
	Pickups    []Pickup   `json:"pickups" yaml:"pickups"`
	Deliveries []Delivery `json:"deliveries" yaml:"deliveries"`
	Unloads    []Unload   `json:"unloads" yaml:"unloads"`
}

type RoutePlan struct {
	VehicleID string  `json:"vehicleId" yaml:"vehicleId"`
	Steps     []Step  `json:"steps" yaml:"steps"`
	Distance  float64 `json:"distance" yaml:"distance"`
	Cost      float64 `json:"cost" yaml:"cost"`
}

// Plan is the finished solution handed back to the environment. Orders
// absent from every delivery action are listed in Unassigned.
type Plan struct {
	Routes     []RoutePlan `json:"routes" yaml:"routes"`
	Unassigned []string    `json:"unassigned" yaml:"unassigned"`
	Fulfilled  int         `json:"fulfilled" yaml:"fulfilled"`
	TotalCost  float64     `json:"totalCost" yaml:"totalCost"`
}

// API request/response shapes.

type OptimizeRequest struct {
	ScenarioID      string             `json:"scenarioId"`
	Algorithm       string             `json:"algorithm,omitempty"` // greedy | alns
	TimeBudgetMs    int                `json:"timeBudgetMs,omitempty"`
	MaxIterations   int                `json:"maxIterations,omitempty"`
	StagnationLimit int                `json:"stagnationLimit,omitempty"`
	InitTemp        float64            `json:"initTemp,omitempty"`
	Cooling         float64            `json:"cooling,omitempty"`
	Seed            int64              `json:"seed,omitempty"`
	NodeBudget      int                `json:"nodeBudget,omitempty"`
	OperatorWeights map[string]float64 `json:"operatorWeights,omitempty"`
	FixedWeights    bool               `json:"fixedWeights,omitempty"`
	Problem         Problem            `json:"problem"`
}

type OptimizeResponse struct {
	RunID   string         `json:"runId"`
	Plan    Plan           `json:"plan"`
	Metrics map[string]any `json:"metrics,omitempty"`
}
