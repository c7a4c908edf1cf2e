package scenario

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fleetplan/internal/model"
)

func small() model.Problem {
	return model.Problem{
		Nodes:      []model.Node{{ID: 1}, {ID: 2}},
		Edges:      []model.Edge{{From: 1, To: 2, Distance: 3}, {From: 2, To: 1, Distance: 3}},
		SKUs:       []model.SKU{{ID: "A", Weight: 1, Volume: 1}},
		Orders:     []model.Order{{ID: "O1", Node: 2, Items: map[string]int{"A": 2}}},
		Vehicles:   []model.Vehicle{{ID: "V1", HomeWarehouseID: "W1", CapWeight: 10, CapVolume: 10, MaxDistance: 50, CostPerDistance: 1}},
		Warehouses: []model.Warehouse{{ID: "W1", Node: 1, Inventory: map[string]int{"A": 5}}},
	}
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("a/b.JSON")
	require.NoError(t, err)
	require.Equal(t, JSON, f)
	f, err = FormatOf("x.yml")
	require.NoError(t, err)
	require.Equal(t, YAML, f)
	_, err = FormatOf("x.csv")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEncodeDecode(t *testing.T) {
	for _, f := range []Format{JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, small(), f))
			got, err := Decode(&buf, f)
			require.NoError(t, err)
			require.Equal(t, small(), got)
		})
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"nodes":[],"bogus":1}`), JSON)
	require.Error(t, err)
	_, err = Decode(strings.NewReader("nodes: []\nbogus: 1\n"), YAML)
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(small()))

	p := small()
	p.Orders = append(p.Orders, model.Order{ID: "O1", Node: 1, Items: map[string]int{"Z": 1}})
	p.Vehicles[0].HomeWarehouseID = "nowhere"
	p.Edges = append(p.Edges, model.Edge{From: 1, To: 2, Distance: -1})
	p.Orders = append(p.Orders, model.Order{ID: "O2", Node: 7, Items: map[string]int{"A": 1}})
	p.Warehouses[0].Node = 8
	p.Vehicles[0].MaxDistance = -1
	err := Check(p)
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, `duplicate order "O1"`)
	require.Contains(t, msg, `unknown sku "Z"`)
	require.Contains(t, msg, `unknown home warehouse "nowhere"`)
	require.Contains(t, msg, "negative distance")
	require.Contains(t, msg, `order "O2" targets unknown node 7`)
	require.Contains(t, msg, `warehouse "W1" sits on unknown node 8`)
	require.Contains(t, msg, `vehicle "V1" has a negative capacity, range or cost`)

	// an isolated but declared node is left for the solver to report as
	// unreachable
	p = small()
	p.Nodes = append(p.Nodes, model.Node{ID: 9})
	p.Orders = append(p.Orders, model.Order{ID: "O9", Node: 9, Items: map[string]int{"A": 1}})
	require.NoError(t, Check(p))

	// a zero range is legal
	p = small()
	p.Vehicles[0].MaxDistance = 0
	require.NoError(t, Check(p))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, small(), YAML))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	src := FileSource{Path: path}
	require.Equal(t, "file:"+path, src.Name())
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, small(), got)

	_, err = FileSource{Path: filepath.Join(dir, "missing.json")}.Load(context.Background())
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGenerate(t *testing.T) {
	o := GenerateOptions{GridSize: 6, Warehouses: 2, VehiclesPerDepot: 3, Orders: 15}
	a := Generate(7, o)
	b := Generate(7, o)
	require.Equal(t, a, b)
	require.NoError(t, Check(a))
	require.Len(t, a.Nodes, 36)
	require.Len(t, a.Warehouses, 2)
	require.Len(t, a.Vehicles, 6)
	require.Len(t, a.Orders, 15)

	depots := map[int]bool{}
	for _, w := range a.Warehouses {
		depots[w.Node] = true
	}
	for _, ord := range a.Orders {
		require.False(t, depots[ord.Node], ord.ID)
		require.NotEmpty(t, ord.Items)
	}
	for _, e := range a.Edges {
		require.Greater(t, e.Distance, 0.0)
	}
	require.NotEqual(t, a.Orders, Generate(8, o).Orders)
}
