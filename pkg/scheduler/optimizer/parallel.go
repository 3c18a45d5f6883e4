package optimizer

import (
	"context"
	"sync"

	"github.com/garde/garde/pkg/logger"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// IslandOptimizer runs several independent LocalSearchOptimizer
// annealing runs ("islands") in parallel over their own cloned
// constraint.Context, then keeps the best result — a cheap way to
// hedge against any single run settling into a worse local optimum.
type IslandOptimizer struct {
	config      *OptimizationConfig
	manager     *constraint.Manager
	islandCount int
	logger      *logger.SchedulerLogger
}

// NewIslandOptimizer builds an island-model optimizer over islandCount
// independent runs (minimum 2).
func NewIslandOptimizer(config *OptimizationConfig, manager *constraint.Manager, islandCount int) *IslandOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	if islandCount < 2 {
		islandCount = 2
	}
	return &IslandOptimizer{
		config:      config,
		manager:     manager,
		islandCount: islandCount,
		logger:      logger.NewSchedulerLogger(),
	}
}

// Island is one independent annealing run.
type Island struct {
	ID        int
	Best      *Solution
	Optimizer *LocalSearchOptimizer
	Context   *constraint.Context
}

// OptimizeIslands runs every island concurrently against its own context
// clone and returns the lowest-penalty result across all of them.
func (o *IslandOptimizer) OptimizeIslands(ctx context.Context, initial *Solution, schedCtx *constraint.Context) (*Solution, error) {
	islands := make([]*Island, o.islandCount)
	for i := 0; i < o.islandCount; i++ {
		islands[i] = &Island{
			ID:        i,
			Best:      initial.Clone(),
			Optimizer: NewLocalSearchOptimizer(o.config, o.manager),
			Context:   schedCtx.Clone(),
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, island := range islands {
		wg.Add(1)
		go func(isl *Island) {
			defer wg.Done()
			result, err := isl.Optimizer.Optimize(ctx, initial.Clone(), isl.Context)
			if err == nil {
				mu.Lock()
				isl.Best = result
				mu.Unlock()
			}
		}(island)
	}

	wg.Wait()

	globalBest := islands[0].Best
	for _, island := range islands[1:] {
		if island.Best.Score < globalBest.Score {
			globalBest = island.Best
		}
	}

	if globalBest.Feasible {
		o.logger.SolveFeasible(100 - globalBest.Score)
	}
	return globalBest, nil
}
