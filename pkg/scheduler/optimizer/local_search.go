package optimizer

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/garde/garde/pkg/logger"
	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// OptimizationConfig tunes the simulated-annealing/tabu-search loop.
type OptimizationConfig struct {
	MaxIterations    int           `json:"max_iterations"`
	MaxTime          time.Duration `json:"max_time"`
	InitialTemp      float64       `json:"initial_temp"`
	CoolingRate      float64       `json:"cooling_rate"`
	TabuSize         int           `json:"tabu_size"`
	NeighborhoodSize int           `json:"neighborhood_size"`
	StopOnPlateau    bool          `json:"stop_on_plateau"`
	PlateauThreshold int           `json:"plateau_threshold"`
}

// DefaultOptConfig returns the default tuning.
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:    1000,
		MaxTime:          30 * time.Second,
		InitialTemp:      100.0,
		CoolingRate:      0.99,
		TabuSize:         50,
		NeighborhoodSize: 20,
		StopOnPlateau:    true,
		PlateauThreshold: 100,
	}
}

// Solution is one candidate schedule under optimization.
type Solution struct {
	Assignments []model.Assignment
	Score       float64
	Violations  []constraint.ViolationDetail
	Feasible    bool
}

// Clone deep-copies a Solution.
func (s *Solution) Clone() *Solution {
	clone := &Solution{
		Assignments: make([]model.Assignment, len(s.Assignments)),
		Score:       s.Score,
		Violations:  make([]constraint.ViolationDetail, len(s.Violations)),
		Feasible:    s.Feasible,
	}
	copy(clone.Assignments, s.Assignments)
	copy(clone.Violations, s.Violations)
	return clone
}

// LocalSearchOptimizer improves a constructive solution by simulated
// annealing over a tabu-filtered neighbourhood, scoring candidates
// against the same constraint.Manager the constructive solver uses.
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	manager   *constraint.Manager
	neighbors *NeighborhoodGenerator
	tabuList  *TabuList
	rng       *rand.Rand
	logger    *logger.SchedulerLogger
	mu        sync.Mutex
}

// NewLocalSearchOptimizer builds an optimizer bound to a constraint
// manager; config may be nil for the defaults.
func NewLocalSearchOptimizer(config *OptimizationConfig, manager *constraint.Manager) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &LocalSearchOptimizer{
		config:    config,
		manager:   manager,
		neighbors: NewNeighborhoodGenerator(),
		tabuList:  NewTabuList(config.TabuSize),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger.NewSchedulerLogger(),
	}
}

// Optimize runs the annealing loop starting from initial, returning the
// best solution found within the configured iteration and time budget.
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, initial *Solution, schedCtx *constraint.Context) (*Solution, error) {
	start := time.Now()

	current := initial.Clone()
	best := current.Clone()

	temperature := o.config.InitialTemp
	noImprovementCount := 0

	for i := 0; i < o.config.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return best, ctx.Err()
		default:
		}

		if time.Since(start) > o.config.MaxTime {
			break
		}

		neighbors := o.generateNeighbors(current, schedCtx)
		if len(neighbors) == 0 {
			continue
		}

		bestNeighbor := o.evaluateBestNeighbor(neighbors, schedCtx)
		if bestNeighbor == nil {
			continue
		}

		moveKey := hashAssignments(bestNeighbor.Assignments)
		inTabu := o.tabuList.Contains(moveKey)

		accept := false
		if bestNeighbor.Score < current.Score {
			accept = true
		} else if !inTabu {
			delta := bestNeighbor.Score - current.Score
			if o.rng.Float64() < boltzmannProbability(delta, temperature) {
				accept = true
			}
		}

		if accept {
			current = bestNeighbor
			o.tabuList.Add(moveKey)

			if current.Score < best.Score {
				best = current.Clone()
				noImprovementCount = 0
			} else {
				noImprovementCount++
			}
		} else {
			noImprovementCount++
		}

		if o.config.StopOnPlateau && noImprovementCount >= o.config.PlateauThreshold {
			break
		}

		temperature *= o.config.CoolingRate
	}

	return best, nil
}

func (o *LocalSearchOptimizer) generateNeighbors(current *Solution, schedCtx *constraint.Context) []*Solution {
	return o.neighbors.GenerateBatch(current, schedCtx, o.config.NeighborhoodSize)
}

// evaluateBestNeighbor scores every candidate against schedCtx and
// returns the lowest-penalty one. An infeasible neighbour's score carries
// a 1,000,000 surcharge on top of its total penalty, so it is not preferred
// over a feasible one with a worse soft score.
func (o *LocalSearchOptimizer) evaluateBestNeighbor(neighbors []*Solution, schedCtx *constraint.Context) *Solution {
	if len(neighbors) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var best *Solution
	bestPenalty := math.MaxInt64

	for _, neighbor := range neighbors {
		schedCtx.SetAssignments(neighbor.Assignments)
		result := o.manager.Evaluate(schedCtx)

		neighbor.Score = float64(result.TotalPenalty)
		if !result.IsValid {
			neighbor.Score += 1_000_000 // dominate soft-only neighbours
		}
		neighbor.Violations = append(result.HardViolations, result.SoftViolations...)
		neighbor.Feasible = result.IsValid

		if int(neighbor.Score) < bestPenalty {
			best = neighbor
			bestPenalty = int(neighbor.Score)
		}
	}

	return best
}

// hashAssignments fingerprints a candidate schedule with FNV-1a so the
// tabu list can track recently-visited moves cheaply.
func hashAssignments(assignments []model.Assignment) uint64 {
	if len(assignments) == 0 {
		return 0
	}
	h := fnv.New64a()
	for _, a := range assignments {
		h.Write([]byte(a.AgentID))
		h.Write([]byte(a.Shift))
		h.Write([]byte(a.Date))
	}
	return h.Sum64()
}

// boltzmannProbability is the simulated-annealing acceptance probability
// for a worsening move of size delta at the given temperature.
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList is a fixed-capacity FIFO set of recently-visited move
// fingerprints.
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList builds a tabu list with the given capacity.
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
