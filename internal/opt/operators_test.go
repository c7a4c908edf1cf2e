package opt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperatorNames(t *testing.T) {
	for op := OpRandomRelocate; op < numOperators; op++ {
		got, ok := ParseOperator(op.String())
		require.True(t, ok)
		require.Equal(t, op, got)
	}
	_, ok := ParseOperator("shaw")
	require.False(t, ok)
	require.Equal(t, "unknown", Operator(42).String())
}

func TestScoreTableSegmentUpdate(t *testing.T) {
	tbl := NewScoreTable(nil, 0.5, false)
	tbl.Reward(OpRegret2, rewardBest)
	tbl.Reward(OpRegret2, rewardBest)
	tbl.Reward(OpRegret3, rewardRejected)
	tbl.EndSegment()

	w := tbl.Weights()
	require.InDelta(t, 2.0, w["regret2"], 1e-12)
	require.InDelta(t, 0.5, w["regret3"], 1e-12)
	require.InDelta(t, 1.0, w["random"], 1e-12) // unused operators keep their weight

	for i := 0; i < 20; i++ {
		tbl.Reward(OpRegret3, rewardRejected)
		tbl.EndSegment()
	}
	require.InDelta(t, weightFloor, tbl.Weights()["regret3"], 1e-12)
}

func TestScoreTableFrozen(t *testing.T) {
	tbl := NewScoreTable(map[string]float64{"worst": 4, "bogus": 9}, 0.5, true)
	tbl.Reward(OpWorstRelocate, rewardBest)
	tbl.EndSegment()
	w := tbl.Weights()
	require.InDelta(t, 4.0, w["worst"], 1e-12)
	require.Len(t, w, int(numOperators))
}

func TestScoreTableDrawFollowsWeights(t *testing.T) {
	tbl := NewScoreTable(map[string]float64{"random": 1e-9, "worst": 1e-9, "related": 1}, 0.2, false)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		require.Equal(t, OpRelatedRelocate, tbl.Draw(selectionFamily, rng))
	}
	require.Equal(t, 50, tbl.Selects()["related"])
}

func TestSelectOpDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	require.Equal(t, 0, selectOp([]float64{0, 0}, rng))
	require.Equal(t, 1, selectOp([]float64{0, 1}, rng))
}
