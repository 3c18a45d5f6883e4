// Package driver implements build_solution: the single entry point that
// assembles a constraint.Context, runs the constructive solver and the
// local-search optimizer against it, and retries with synthetic
// reinforcement agents when no feasible schedule is found.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/garde/garde/pkg/logger"
	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/calendar"
	"github.com/garde/garde/pkg/scheduler/catalogue"
	"github.com/garde/garde/pkg/scheduler/constraint"
	"github.com/garde/garde/pkg/scheduler/constraint/builtin"
	"github.com/garde/garde/pkg/scheduler/optimizer"
	"github.com/garde/garde/pkg/scheduler/regime"
	scherr "github.com/garde/garde/pkg/scheduler/scheduler_errors"
	"github.com/garde/garde/pkg/scheduler/solver"
)

// Config tunes the solver/optimizer budget the driver runs with. Zero
// value resolves to the same defaults Load() returns.
type Config struct {
	SolverTimeout     time.Duration
	MaxIterations     int
	OptimizationLevel int // 1=fast, 2=balanced, 3=thorough
	IslandCount       int
}

// DefaultConfig returns the §4.6 budget: 10s solver timeout, balanced
// optimization.
func DefaultConfig() Config {
	return Config{
		SolverTimeout:     10 * time.Second,
		MaxIterations:     1000,
		OptimizationLevel: 2,
		IslandCount:       4,
	}
}

// Driver runs build_solution against one request.
type Driver struct {
	config Config
	logger *logger.SchedulerLogger
}

// New builds a driver with the given budget; a zero Config resolves to
// DefaultConfig.
func New(config Config) *Driver {
	if config.SolverTimeout == 0 {
		config = DefaultConfig()
	}
	return &Driver{config: config, logger: logger.NewSchedulerLogger()}
}

// BuildSolution is the scheduling core's entry point, per §4.6: it loops
// up to MaxExtraAgents+1 times, injecting a synthetic reinforcement agent
// between attempts, and returns the first feasible result or the last
// infeasibility encountered.
func (d *Driver) BuildSolution(ctx context.Context, request model.GenerateRequest, baseline model.BaselineMinutes) model.SchedulerResult {
	params := request.Params

	horizon, err := calendar.Build(params.StartDate, params.EndDate)
	if err != nil {
		return infeasibleFrom(scherr.InvalidHorizon(), nil)
	}

	globalAllowed, err := catalogue.GlobalAllowed(params.Mode, params.Shifts)
	if err != nil {
		return infeasibleFrom(scherr.InvalidHorizon(), nil)
	}
	if mismatch := catalogue.CheckCoverageMismatch(params.Mode, params.CoverageRequirements, globalAllowed); mismatch != "" {
		return infeasibleFrom(scherr.ModeCoverageMismatch(string(mismatch)), nil)
	}

	base := append([]model.Agent(nil), request.Agents...)
	var addedAgents []model.Agent

	maxRounds := params.MaxExtraAgents + 1
	if maxRounds < 1 {
		maxRounds = 1
	}

	var lastMessage string

	for attempt := 0; attempt < maxRounds; attempt++ {
		agents := append(append([]model.Agent(nil), base...), addedAgents...)
		allowedShifts := regime.Resolve(agents, params.AgentRegimes, globalAllowed, params.AllowSingle12hException)

		schedCtx := constraint.NewContext(params, horizon, params.Shifts, globalAllowed, agents, allowedShifts, request.LockedAssignments)

		manager := d.buildManager(baseline)

		result, explanation := d.solveOnce(ctx, manager, schedCtx)
		if result != nil {
			return model.OK(result.Assignments, int(result.ConstraintResult.TotalPenalty), addedAgents)
		}

		lastMessage = explanation
		d.logger.SolveInfeasible(explanation)

		if attempt == maxRounds-1 || !params.AutoAddAgentsIfNeeded {
			break
		}

		newAgent := synthesizeReinforcement(attempt+1, params, globalAllowed)
		d.logger.ReinforcementInjected(newAgent.ID, string(newAgent.Regime), attempt+1)
		addedAgents = append(addedAgents, newAgent)
	}

	if lastMessage == "" {
		lastMessage = "Aucune solution faisable sous contraintes"
	}
	return model.Infeasible(lastMessage, addedAgents)
}

// buildManager registers every hard and soft constraint, per §4.4/§4.5.
func (d *Driver) buildManager(baseline model.BaselineMinutes) *constraint.Manager {
	m := constraint.NewManager()

	m.Register(builtin.NewAvailabilityConstraint())
	m.Register(builtin.NewRegimeAllowedConstraint())
	m.Register(builtin.NewLockedAssignmentConstraint())
	m.Register(builtin.NewCoverageConstraint())
	m.Register(builtin.NewOneShiftPerDayConstraint())
	m.Register(builtin.NewDailyRestConstraint())
	m.Register(builtin.NewConsecutive12hConstraint())
	m.Register(builtin.NewException12hCapConstraint())
	m.Register(builtin.NewPatternBanConstraint())
	m.Register(builtin.NewRolling7dConstraint())
	m.Register(builtin.NewWeeklyRestBlockConstraint())
	m.Register(builtin.NewCycleWeekCapConstraint())

	m.Register(builtin.NewPreferenceMissConstraint())
	m.Register(builtin.NewSoirFairnessConstraint())
	m.Register(builtin.NewWeekendFairnessConstraint())
	m.Register(builtin.NewConsecutiveWeekendsConstraint())
	m.Register(builtin.NewReinforcementUsageConstraint())
	m.Register(builtin.NewShiftSwitchConstraint())
	m.Register(builtin.NewIsolatedWorkdayConstraint())
	m.Register(builtin.NewPeriodTargetDevConstraint())
	m.Register(builtin.NewAnnualTargetDevConstraint(baseline))

	return m
}

// solveOnce runs the constructive solver then, if it found a feasible
// schedule, the local-search optimizer on top of it, bounded by the
// configured solver timeout. Returns nil and an explanation on failure.
func (d *Driver) solveOnce(ctx context.Context, manager *constraint.Manager, schedCtx *constraint.Context) (*solver.Result, string) {
	solveCtx, cancel := context.WithTimeout(ctx, d.config.SolverTimeout)
	defer cancel()

	gs := solver.NewGreedySolver(manager)
	gs.SetMaxIterations(d.config.MaxIterations)

	result, err := gs.Solve(solveCtx, schedCtx)
	if err != nil {
		return nil, fmt.Sprintf("Aucune solution faisable sous contraintes: %v", err)
	}
	if !result.Success {
		return nil, "Aucune solution faisable sous contraintes"
	}

	optimized := d.optimize(solveCtx, manager, schedCtx, result)
	return optimized, ""
}

// optimize refines a feasible constructive result with the configured
// optimization level: 1 skips local search entirely, 2 runs a single
// LocalSearchOptimizer pass, 3 runs the island model.
func (d *Driver) optimize(ctx context.Context, manager *constraint.Manager, schedCtx *constraint.Context, result *solver.Result) *solver.Result {
	if d.config.OptimizationLevel <= 1 {
		return result
	}

	initial := &optimizer.Solution{
		Assignments: append([]model.Assignment(nil), result.Assignments...),
		Score:       float64(result.ConstraintResult.TotalPenalty),
		Feasible:    result.ConstraintResult.IsValid,
	}

	optCfg := optimizer.DefaultOptConfig()
	optCfg.MaxIterations = d.config.MaxIterations
	optCfg.MaxTime = d.config.SolverTimeout

	var best *optimizer.Solution
	var err error

	if d.config.OptimizationLevel >= 3 {
		islands := optimizer.NewIslandOptimizer(optCfg, manager, d.config.IslandCount)
		best, err = islands.OptimizeIslands(ctx, initial, schedCtx)
	} else {
		ls := optimizer.NewLocalSearchOptimizer(optCfg, manager)
		best, err = ls.Optimize(ctx, initial, schedCtx)
	}
	if err != nil || best == nil || !best.Feasible {
		return result
	}

	schedCtx.SetAssignments(best.Assignments)
	finalEval := manager.Evaluate(schedCtx)
	result.Assignments = best.Assignments
	result.ConstraintResult = finalEval
	return result
}

// synthesizeReinforcement builds the next synthetic reinforcement agent,
// per §4.6's regime fallback chain.
func synthesizeReinforcement(seq int, params model.PlanningParams, globalAllowed map[model.ShiftCode]bool) model.Agent {
	regimeCode := pickReinforcementRegime(params)
	return model.NewReinforcementAgent(seq, regimeCode)
}

func pickReinforcementRegime(params model.PlanningParams) model.RegimeCode {
	if params.Mode == model.ModeJour12h {
		return model.RegimeJour12h
	}

	needsJour12h := params.CoverageRequirements[model.ShiftJour12h] > 0
	if needsJour12h {
		if _, ok := params.AgentRegimes[model.RegimePolyvalent]; ok {
			return model.RegimePolyvalent
		}
		if _, ok := params.AgentRegimes[model.RegimeJour12h]; ok {
			return model.RegimeJour12h
		}
	}
	if _, ok := params.AgentRegimes[model.RegimeMixte]; ok {
		return model.RegimeMixte
	}
	if _, ok := params.AgentRegimes[model.RegimeMatinOnly]; ok {
		return model.RegimeMatinOnly
	}
	for code := range params.AgentRegimes {
		return code
	}
	return model.RegimeMixte
}

func infeasibleFrom(err *scherr.AppError, addedAgents []model.Agent) model.SchedulerResult {
	explanation := err.Message
	if err.Details != "" {
		explanation = err.Details
	}
	return model.Infeasible(explanation, addedAgents)
}
