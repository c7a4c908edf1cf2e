package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"fleetplan/internal/model"
)

func diamond(t *testing.T) *Graph {
	t.Helper()
	// 1 -> 2 -> 4 costs 5, 1 -> 3 -> 4 costs 3, 1 -> 4 direct costs 10
	g, err := New(nil, []model.Edge{
		{From: 1, To: 2, Distance: 2},
		{From: 2, To: 4, Distance: 3},
		{From: 1, To: 3, Distance: 1},
		{From: 3, To: 4, Distance: 2},
		{From: 1, To: 4, Distance: 10},
		{From: 4, To: 1, Distance: 4},
	}, true)
	require.NoError(t, err)
	return g
}

func TestShortestPathPicksCheapest(t *testing.T) {
	g := diamond(t)
	p, err := g.ShortestPath(1, 4, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3, 4}, p.Nodes)
	require.InDelta(t, 3.0, p.Distance, 1e-9)
	require.True(t, p.Exact)
}

func TestShortestPathDeterministic(t *testing.T) {
	g := diamond(t)
	first, err := g.ShortestPath(1, 4, 0)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		p, err := g.ShortestPath(1, 4, 0)
		require.NoError(t, err)
		require.Equal(t, first, p)
	}
}

func TestShortestPathDirected(t *testing.T) {
	g := diamond(t)
	_, err := g.ShortestPath(3, 2, 0)
	require.True(t, errors.Is(err, ErrNoPath))
}

func TestShortestPathSameNode(t *testing.T) {
	g := diamond(t)
	p, err := g.ShortestPath(2, 2, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2}, p.Nodes)
	require.Zero(t, p.Distance)
}

func TestShortestPathBudgetExhausted(t *testing.T) {
	edges := []model.Edge{}
	for i := 0; i < 50; i++ {
		edges = append(edges, model.Edge{From: i, To: i + 1, Distance: 1})
	}
	g, err := New(nil, edges, true)
	require.NoError(t, err)

	_, err = g.ShortestPath(0, 50, 10)
	require.ErrorIs(t, err, ErrNoPath)

	p, err := g.ShortestPath(0, 50, 100)
	require.NoError(t, err)
	require.Len(t, p.Nodes, 51)
	require.InDelta(t, 50.0, p.Distance, 1e-9)
}

func TestNegativeWeightRejected(t *testing.T) {
	_, err := New(nil, []model.Edge{{From: 1, To: 2, Distance: -1}}, true)
	require.ErrorIs(t, err, ErrNegativeWeight)
}

func TestParallelEdgesKeepCheapest(t *testing.T) {
	g, err := New(nil, []model.Edge{{From: 1, To: 2, Distance: 9}, {From: 1, To: 2, Distance: 4}}, true)
	require.NoError(t, err)
	w, ok := g.EdgeWeight(1, 2)
	require.True(t, ok)
	require.Equal(t, 4.0, w)
}

func TestBreadthFirstFallback(t *testing.T) {
	nodes := []model.Node{{ID: 1}, {ID: 2}, {ID: 3}}
	g, err := New(nodes, []model.Edge{{From: 1, To: 2}, {From: 2, To: 3}, {From: 1, To: 3}}, false)
	require.NoError(t, err)
	p, err := g.ShortestPath(1, 3, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, p.Nodes)
	require.False(t, p.Exact)
	// no weights and no coordinates: one unit per hop
	require.Equal(t, 1.0, p.Distance)
}

func TestBreadthFirstUsesCoordinates(t *testing.T) {
	nodes := []model.Node{{ID: 1, Lat: 30.0, Lng: 31.0}, {ID: 2, Lat: 30.1, Lng: 31.0}}
	g, err := New(nodes, []model.Edge{{From: 1, To: 2}}, false)
	require.NoError(t, err)
	p, err := g.ShortestPath(1, 2, 0)
	require.NoError(t, err)
	require.InDelta(t, 11.1, p.Distance, 0.1)
}

func TestRouterCachesFailures(t *testing.T) {
	r := NewRouter(diamond(t), 0)
	_, err := r.Path(3, 2)
	require.ErrorIs(t, err, ErrNoPath)
	_, err = r.Path(3, 2)
	require.ErrorIs(t, err, ErrNoPath)
	d, err := r.Distance(1, 4)
	require.NoError(t, err)
	require.InDelta(t, 3.0, d, 1e-9)
	hits, misses := r.Stats()
	require.Equal(t, 1, hits)
	require.Equal(t, 2, misses)
}
