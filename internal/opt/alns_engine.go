package opt

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Stop reasons reported in Metrics.
const (
	StopMaxIterations = "max_iterations"
	StopStagnation    = "stagnation"
	StopTimeBudget    = "time_budget"
	StopCancelled     = "cancelled"
	StopGreedyOnly    = "greedy_only"
)

// Params tunes one solve. Zero values fall back to DefaultParams.
type Params struct {
	Algorithm        string             `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm"` // alns | greedy
	MaxIterations    int                `mapstructure:"max_iterations" json:"maxIterations" yaml:"maxIterations"`
	StagnationLimit  int                `mapstructure:"stagnation_limit" json:"stagnationLimit" yaml:"stagnationLimit"`
	TimeBudget       time.Duration      `mapstructure:"time_budget" json:"timeBudget" yaml:"timeBudget"`
	RecoverEvery     int                `mapstructure:"recover_every" json:"recoverEvery" yaml:"recoverEvery"`
	RegretEvery      int                `mapstructure:"regret_every" json:"regretEvery" yaml:"regretEvery"`
	SegmentLength    int                `mapstructure:"segment_length" json:"segmentLength" yaml:"segmentLength"`
	Reaction         float64            `mapstructure:"reaction" json:"reaction" yaml:"reaction"`
	InitialTemp      float64            `mapstructure:"initial_temp" json:"initialTemp" yaml:"initialTemp"` // 0 derives it from the initial cost
	Cooling          float64            `mapstructure:"cooling" json:"cooling" yaml:"cooling"`
	MinTemp          float64            `mapstructure:"min_temp" json:"minTemp" yaml:"minTemp"`
	MaxBalanceMoves  int                `mapstructure:"max_balance_moves" json:"maxBalanceMoves" yaml:"maxBalanceMoves"`
	TwoOptIterations int                `mapstructure:"two_opt_iterations" json:"twoOptIterations" yaml:"twoOptIterations"`
	Seed             int64              `mapstructure:"seed" json:"seed" yaml:"seed"` // 0 derives one from the clock
	NodeBudget       int                `mapstructure:"node_budget" json:"nodeBudget" yaml:"nodeBudget"`
	OperatorWeights  map[string]float64 `mapstructure:"operator_weights" json:"operatorWeights,omitempty" yaml:"operatorWeights,omitempty"`
	FixedWeights     bool               `mapstructure:"fixed_weights" json:"fixedWeights" yaml:"fixedWeights"`
	Build            BuildOptions       `mapstructure:"build" json:"build" yaml:"build"`

	// OnImprove is called with every new best solution. It runs on the
	// solving goroutine and must not block.
	OnImprove func(Progress) `json:"-" yaml:"-"`
}

func DefaultParams() Params {
	return Params{
		Algorithm:        "alns",
		MaxIterations:    10000,
		StagnationLimit:  5000,
		TimeBudget:       30 * time.Second,
		RecoverEvery:     50,
		RegretEvery:      200,
		SegmentLength:    100,
		Reaction:         0.2,
		Cooling:          0.9995,
		MinTemp:          1e-3,
		MaxBalanceMoves:  DefaultMaxBalanceMoves,
		TwoOptIterations: 2,
		Build:            DefaultBuildOptions(),
	}
}

// withDefaults fills every unset field from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Algorithm == "" {
		p.Algorithm = d.Algorithm
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = d.MaxIterations
	}
	if p.StagnationLimit <= 0 {
		p.StagnationLimit = d.StagnationLimit
	}
	if p.TimeBudget <= 0 {
		p.TimeBudget = d.TimeBudget
	}
	if p.RecoverEvery <= 0 {
		p.RecoverEvery = d.RecoverEvery
	}
	if p.RegretEvery <= 0 {
		p.RegretEvery = d.RegretEvery
	}
	if p.SegmentLength <= 0 {
		p.SegmentLength = d.SegmentLength
	}
	if p.Reaction <= 0 || p.Reaction > 1 {
		p.Reaction = d.Reaction
	}
	if p.Cooling <= 0 || p.Cooling >= 1 {
		p.Cooling = d.Cooling
	}
	if p.MinTemp <= 0 {
		p.MinTemp = d.MinTemp
	}
	if p.MaxBalanceMoves <= 0 {
		p.MaxBalanceMoves = d.MaxBalanceMoves
	}
	if p.TwoOptIterations <= 0 {
		p.TwoOptIterations = d.TwoOptIterations
	}
	if p.Build.MaxOrdersByType == nil && p.Build.DefaultMaxOrders == 0 {
		p.Build = d.Build
	}
	return p
}

// Progress describes a new best-known solution.
type Progress struct {
	Iteration int           `json:"iteration"`
	Fulfilled int           `json:"fulfilled"`
	Cost      float64       `json:"cost"`
	Elapsed   time.Duration `json:"elapsedNs"`
}

// Metrics summarizes one run of the search.
type Metrics struct {
	Seed             int64              `json:"seed"`
	Iterations       int                `json:"iterations"`
	Improvements     int                `json:"improvements"`
	AcceptedWorse    int                `json:"acceptedWorse"`
	Recovered        int                `json:"recovered"`
	BalanceMoves     int                `json:"balanceMoves"`
	OperatorSelects  map[string]int     `json:"operatorSelects"`
	FinalWeights     map[string]float64 `json:"finalWeights"`
	Snapshots        []WeightSnapshot   `json:"snapshots,omitempty"`
	InitialFulfilled int                `json:"initialFulfilled"`
	InitialCost      float64            `json:"initialCost"`
	BestFulfilled    int                `json:"bestFulfilled"`
	BestCost         float64            `json:"bestCost"`
	Dropped          int                `json:"droppedRoutes"`
	StopReason       string             `json:"stopReason"`
	Elapsed          time.Duration      `json:"elapsedNs"`
	CacheHits        int                `json:"pathCacheHits"`
	CacheMisses      int                `json:"pathCacheMisses"`
}

// initialTemp accepts a 5% cost increase with probability one half at the
// start of the search.
func initialTemp(p Params, s *Solution) float64 {
	if p.InitialTemp > 0 {
		return p.InitialTemp
	}
	t := 0.05 * s.TotalCost() / math.Ln2
	if t < 1 {
		t = 1
	}
	return t
}

// accept is the simulated-annealing rule. Fulfillment dominates; within
// equal fulfillment a cost increase delta passes with probability
// exp(-delta/T). worse reports an accepted cost increase.
func accept(cur, cand *Solution, temp float64, rng *rand.Rand) (ok, worse bool) {
	fc, fn := cur.Fulfilled(), cand.Fulfilled()
	if fn > fc {
		return true, false
	}
	if fn < fc {
		return false, false
	}
	delta := cand.TotalCost() - cur.TotalCost()
	if delta <= 0 {
		return true, false
	}
	if temp > 0 && rng.Float64() < math.Exp(-delta/temp) {
		return true, true
	}
	return false, false
}

// Improve runs the adaptive large neighbourhood search from initial and
// returns the best solution seen. initial is not modified.
func Improve(ctx context.Context, inst *Instance, initial *Solution, p Params) (*Solution, Metrics) {
	p = p.withDefaults()
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(p.Seed))
	start := time.Now()
	deadline := start.Add(p.TimeBudget)

	cur := initial.Clone()
	best := newBestHolder(cur)
	table := NewScoreTable(p.OperatorWeights, p.Reaction, p.FixedWeights)
	temp := initialTemp(p, cur)
	m := Metrics{
		Seed:             p.Seed,
		InitialFulfilled: cur.Fulfilled(),
		InitialCost:      cur.TotalCost(),
	}

	sinceBest := 0
	for i := 1; ; i++ {
		if ctx.Err() != nil {
			m.StopReason = StopCancelled
			break
		}
		if !time.Now().Before(deadline) {
			m.StopReason = StopTimeBudget
			break
		}
		if i > p.MaxIterations {
			m.StopReason = StopMaxIterations
			break
		}
		if sinceBest >= p.StagnationLimit {
			m.StopReason = StopStagnation
			break
		}
		m.Iterations = i

		cand := cur.Clone()
		sel := table.Draw(selectionFamily, rng)
		if id := cand.relocationTarget(sel, rng); id != "" {
			cand.relocate(id)
		}
		if i%p.RecoverEvery == 0 {
			m.Recovered += cand.greedyRecover()
		}
		rop := Operator(-1)
		if i%p.RegretEvery == 0 {
			rop = table.Draw(regretFamily, rng)
			m.Recovered += cand.regretInsert(rop.regretK())
			m.BalanceMoves += cand.balance(p.MaxBalanceMoves)
			cand.polish(p.TwoOptIterations)
		}

		reward := rewardRejected
		if ok, worse := accept(cur, cand, temp, rng); ok {
			cur = cand
			reward = rewardAccepted
			if worse {
				m.AcceptedWorse++
			}
		}
		if best.Commit(cur) {
			reward = rewardBest
			m.Improvements++
			sinceBest = 0
			if p.OnImprove != nil {
				b := best.Best()
				p.OnImprove(Progress{Iteration: i, Fulfilled: b.Fulfilled(), Cost: b.TotalCost(), Elapsed: time.Since(start)})
			}
		} else {
			sinceBest++
		}
		table.Reward(sel, reward)
		if rop >= 0 {
			table.Reward(rop, reward)
		}

		temp = math.Max(p.MinTemp, temp*p.Cooling)
		if i%p.SegmentLength == 0 {
			table.EndSegment()
			m.Snapshots = append(m.Snapshots, WeightSnapshot{Iteration: i, Weights: table.Weights()})
		}
	}

	out := best.Best()
	m.BestFulfilled = out.Fulfilled()
	m.BestCost = out.TotalCost()
	m.OperatorSelects = table.Selects()
	m.FinalWeights = table.Weights()
	m.Elapsed = time.Since(start)
	log.Info().
		Int64("seed", p.Seed).
		Int("iterations", m.Iterations).
		Int("improvements", m.Improvements).
		Int("fulfilled", m.BestFulfilled).
		Float64("cost", m.BestCost).
		Str("stop", m.StopReason).
		Dur("elapsed", m.Elapsed).
		Msg("search finished")
	return out.Clone(), m
}
