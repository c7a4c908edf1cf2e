package opt

import (
	"math"
	"math/rand"
)

// Operator tags one weighted move variant.
type Operator int

const (
	OpRandomRelocate Operator = iota
	OpWorstRelocate
	OpRelatedRelocate
	OpRegret2
	OpRegret3
	numOperators
)

var operatorNames = [numOperators]string{"random", "worst", "related", "regret2", "regret3"}

func (o Operator) String() string {
	if o < 0 || o >= numOperators {
		return "unknown"
	}
	return operatorNames[o]
}

// ParseOperator maps a name back to its tag.
func ParseOperator(name string) (Operator, bool) {
	for i, n := range operatorNames {
		if n == name {
			return Operator(i), true
		}
	}
	return 0, false
}

var (
	selectionFamily = []Operator{OpRandomRelocate, OpWorstRelocate, OpRelatedRelocate}
	regretFamily    = []Operator{OpRegret2, OpRegret3}
)

func (o Operator) regretK() int {
	if o == OpRegret3 {
		return 3
	}
	return 2
}

// Rewards per outcome.
const (
	rewardBest     = 3.0
	rewardAccepted = 1.0
	rewardRejected = 0.0
	weightFloor    = 0.05
)

// WeightSnapshot records the table at the end of a segment.
type WeightSnapshot struct {
	Iteration int                `json:"iteration"`
	Weights   map[string]float64 `json:"weights"`
}

// ScoreTable carries adaptive weights for every operator. Frozen tables
// keep their initial weights.
type ScoreTable struct {
	weights [numOperators]float64
	scores  [numOperators]float64
	uses    [numOperators]int
	selects [numOperators]int
	rho     float64
	frozen  bool
}

func NewScoreTable(initial map[string]float64, rho float64, frozen bool) *ScoreTable {
	t := &ScoreTable{rho: rho, frozen: frozen}
	for i := range t.weights {
		t.weights[i] = 1
	}
	for name, w := range initial {
		if op, ok := ParseOperator(name); ok && w > 0 {
			t.weights[op] = w
		}
	}
	if t.rho <= 0 || t.rho > 1 {
		t.rho = 0.2
	}
	return t
}

// Draw picks an operator from family by roulette over current weights.
func (t *ScoreTable) Draw(family []Operator, rng *rand.Rand) Operator {
	w := make([]float64, len(family))
	for i, op := range family {
		w[i] = t.weights[op]
	}
	op := family[selectOp(w, rng)]
	t.selects[op]++
	return op
}

func (t *ScoreTable) Reward(op Operator, r float64) {
	t.scores[op] += r
	t.uses[op]++
}

// EndSegment blends each used operator's average score into its weight and
// clears the segment counters.
func (t *ScoreTable) EndSegment() {
	if !t.frozen {
		for i := range t.weights {
			if t.uses[i] == 0 {
				continue
			}
			avg := t.scores[i] / float64(t.uses[i])
			t.weights[i] = math.Max(weightFloor, (1-t.rho)*t.weights[i]+t.rho*avg)
		}
	}
	t.scores = [numOperators]float64{}
	t.uses = [numOperators]int{}
}

func (t *ScoreTable) Weights() map[string]float64 {
	out := make(map[string]float64, numOperators)
	for i, w := range t.weights {
		out[Operator(i).String()] = w
	}
	return out
}

func (t *ScoreTable) Selects() map[string]int {
	out := make(map[string]int, numOperators)
	for i, n := range t.selects {
		out[Operator(i).String()] = n
	}
	return out
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
