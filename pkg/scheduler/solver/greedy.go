// Package solver holds the constructive solver that builds an initial
// candidate schedule for the local-search optimizer to refine.
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garde/garde/pkg/logger"
	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// Solver builds a candidate schedule against a constraint Context.
type Solver interface {
	Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error)
	Name() string
}

// Result is the outcome of one constructive solve.
type Result struct {
	Assignments      []model.Assignment  `json:"assignments"`
	Statistics       *Statistics         `json:"statistics"`
	ConstraintResult *constraint.Result  `json:"constraint_result"`
	Duration         time.Duration       `json:"duration"`
	Success          bool                `json:"success"`
	Message          string              `json:"message,omitempty"`
}

// Statistics summarizes one constructive solve.
type Statistics struct {
	TotalAssignments   int     `json:"total_assignments"`
	FilledSlots         int     `json:"filled_slots"`
	TotalSlots          int     `json:"total_slots"`
	FillRate            float64 `json:"fill_rate"`
	TotalMinutes        int     `json:"total_minutes"`
	AvgMinutesPerAgent  float64 `json:"avg_minutes_per_agent"`
	Iterations          int     `json:"iterations"`
}

// slot is one (date, shift) coverage requirement the solver tries to fill.
type slot struct {
	date     string
	shift    model.ShiftCode
	required int
}

// GreedySolver fills each coverage slot with the least-loaded eligible
// agent, earliest date first and largest requirement first within a date,
// short-circuiting on the registered hard constraints.
type GreedySolver struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
	maxIterations     int
}

// NewGreedySolver builds a constructive solver bound to a constraint
// manager.
func NewGreedySolver(cm *constraint.Manager) *GreedySolver {
	return &GreedySolver{
		constraintManager: cm,
		logger:            logger.NewSchedulerLogger(),
		maxIterations:     10000,
	}
}

func (s *GreedySolver) Name() string { return "GreedySolver" }

// SetMaxIterations bounds the number of slot-fill attempts.
func (s *GreedySolver) SetMaxIterations(max int) {
	s.maxIterations = max
}

// Solve fills every (date, globally-allowed shift) coverage slot, one
// agent at a time, preferring the agent with the fewest minutes assigned
// so far to keep the workload balanced from the start.
func (s *GreedySolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()
	s.logger.SolveStarted(len(schedCtx.Agents), schedCtx.Horizon.Len())

	result := &Result{
		Assignments: make([]model.Assignment, 0),
		Statistics:  &Statistics{},
		Success:     false,
	}

	if len(schedCtx.Agents) == 0 {
		return result, fmt.Errorf("aucun agent disponible")
	}

	slots := buildSlots(schedCtx)
	if len(slots) == 0 {
		result.Success = true
		result.Message = "aucune exigence de couverture"
		result.Duration = time.Since(startTime)
		return result, nil
	}

	agentMinutes := make(map[string]int, len(schedCtx.Agents))
	for _, a := range schedCtx.Agents {
		agentMinutes[a.ID] = 0
	}

	iterations := 0
	filled := 0

	for _, sl := range slots {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		assignedCount := schedCtx.CountOnDateShift(sl.date, sl.shift)
		candidates := s.candidatesFor(schedCtx, sl, agentMinutes)

		for _, agent := range candidates {
			if assignedCount >= sl.required {
				break
			}
			iterations++
			if iterations > s.maxIterations {
				break
			}

			candidate := model.Assignment{AgentID: agent.ID, Date: sl.date, Shift: sl.shift}
			canAssign, reason := s.constraintManager.CanAssign(schedCtx, candidate)
			if !canAssign {
				s.logger.ConstraintViolation("constructive_fill", fmt.Sprintf("agent %s: %s", agent.ID, reason))
				continue
			}

			schedCtx.AddAssignment(candidate)
			result.Assignments = append(result.Assignments, candidate)
			agentMinutes[agent.ID] += schedCtx.Duration(sl.shift)
			assignedCount++
		}

		if assignedCount >= sl.required {
			filled++
		}
	}

	result.ConstraintResult = s.constraintManager.Evaluate(schedCtx)
	result.Success = result.ConstraintResult.IsValid
	result.Duration = time.Since(startTime)

	result.Statistics.TotalAssignments = len(result.Assignments)
	result.Statistics.FilledSlots = filled
	result.Statistics.TotalSlots = len(slots)
	result.Statistics.Iterations = iterations
	if len(slots) > 0 {
		result.Statistics.FillRate = float64(filled) / float64(len(slots)) * 100
	}

	totalMinutes := 0
	activeAgents := 0
	for _, m := range agentMinutes {
		totalMinutes += m
		if m > 0 {
			activeAgents++
		}
	}
	result.Statistics.TotalMinutes = totalMinutes
	if activeAgents > 0 {
		result.Statistics.AvgMinutesPerAgent = float64(totalMinutes) / float64(activeAgents)
	}

	if !result.Success {
		result.Message = fmt.Sprintf("%d violations de contraintes dures", len(result.ConstraintResult.HardViolations))
		s.logger.SolveInfeasible(result.Message)
	} else {
		result.Message = fmt.Sprintf("couverture remplie à %.1f%%", result.Statistics.FillRate)
		s.logger.SolveFeasible(result.ConstraintResult.Score)
	}

	return result, nil
}

// buildSlots expands every day's coverage requirement into a slot,
// earliest date first and largest requirement first within a date so the
// hardest-to-fill shifts get first pick of the least-loaded agents.
func buildSlots(ctx *constraint.Context) []slot {
	var slots []slot
	for _, day := range ctx.Horizon.Days {
		for shiftCode := range ctx.GlobalAllowed {
			required := ctx.Params.CoverageRequirements[shiftCode]
			if required <= 0 {
				continue
			}
			slots = append(slots, slot{date: day.Date, shift: shiftCode, required: required})
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].date != slots[j].date {
			return slots[i].date < slots[j].date
		}
		return slots[i].required > slots[j].required
	})
	return slots
}

// candidatesFor returns the agents eligible for a slot, honouring locked
// assignments first, then sorted by current minute load ascending.
func (s *GreedySolver) candidatesFor(ctx *constraint.Context, sl slot, minutes map[string]int) []model.Agent {
	var locked, free []model.Agent
	for _, agent := range ctx.Agents {
		if agent.IsUnavailable(sl.date) {
			continue
		}
		if !ctx.IsAllowed(agent.ID, sl.shift, sl.date) {
			continue
		}
		if _, already := ctx.ShiftOn(agent.ID, sl.date); already {
			continue
		}
		if wanted, ok := ctx.LockedShift(agent.ID, sl.date); ok {
			if wanted == sl.shift {
				locked = append(locked, agent)
			}
			continue
		}
		free = append(free, agent)
	}
	sort.Slice(free, func(i, j int) bool {
		return minutes[free[i].ID] < minutes[free[j].ID]
	})
	return append(locked, free...)
}
