// Package builtin provides the concrete hard and soft constraint
// implementations the scheduling core registers on its Manager.
package builtin

import (
	"fmt"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// AvailabilityConstraint forbids assigning any shift on a date an agent
// declared unavailable.
type AvailabilityConstraint struct{ *BaseConstraint }

func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{NewBaseConstraint("availability", constraint.TypeAvailability, constraint.CategoryHard, 0)}
}

func (c *AvailabilityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, a := range ctx.Assignments {
		agent := ctx.AgentByID[a.AgentID]
		if agent.IsUnavailable(a.Date) {
			details = append(details, c.CreateViolation(a.AgentID, a.Date,
				fmt.Sprintf("agent %s indisponible le %s", a.AgentID, a.Date), 1))
		}
	}
	return len(details) == 0, len(details), details
}

func (c *AvailabilityConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	agent := ctx.AgentByID[a.AgentID]
	if agent.IsUnavailable(a.Date) {
		return false, 1
	}
	return true, 0
}

// RegimeAllowedConstraint forbids assigning a shift outside the agent's
// resolved allowed-shift set (regime ∩ global-allowed, with the MIXTE
// 12h-exception-date override applied by Context.IsAllowed).
type RegimeAllowedConstraint struct{ *BaseConstraint }

func NewRegimeAllowedConstraint() *RegimeAllowedConstraint {
	return &RegimeAllowedConstraint{NewBaseConstraint("regime_allowed", constraint.TypeRegimeAllowed, constraint.CategoryHard, 0)}
}

func (c *RegimeAllowedConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, a := range ctx.Assignments {
		if !ctx.IsAllowed(a.AgentID, a.Shift, a.Date) {
			details = append(details, c.CreateViolation(a.AgentID, a.Date,
				fmt.Sprintf("shift %s incompatible avec le régime de %s", a.Shift, a.AgentID), 1))
		}
	}
	return len(details) == 0, len(details), details
}

func (c *RegimeAllowedConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if !ctx.IsAllowed(a.AgentID, a.Shift, a.Date) {
		return false, 1
	}
	return true, 0
}

// LockedAssignmentConstraint forbids deviating from a LockedAssignment on
// the (agent, date) pairs the caller pinned ahead of solving.
type LockedAssignmentConstraint struct{ *BaseConstraint }

func NewLockedAssignmentConstraint() *LockedAssignmentConstraint {
	return &LockedAssignmentConstraint{NewBaseConstraint("locked_assignment", constraint.TypeLockedAssignment, constraint.CategoryHard, 0)}
}

func (c *LockedAssignmentConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for key, wanted := range ctx.Locked {
		got, ok := ctx.ShiftOn(key.AgentID, key.Date)
		if !ok || got != wanted {
			details = append(details, c.CreateViolation(key.AgentID, key.Date,
				fmt.Sprintf("affectation verrouillée non respectée pour %s le %s", key.AgentID, key.Date), 1))
		}
	}
	return len(details) == 0, len(details), details
}

func (c *LockedAssignmentConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	wanted, ok := ctx.LockedShift(a.AgentID, a.Date)
	if ok && a.Shift != wanted {
		return false, 1
	}
	return true, 0
}

// CoverageConstraint enforces the equality coverage requirement of §4.4:
// for every day and every globally-allowed shift, the assignment count
// must equal the declared requirement exactly. This is checked on the
// whole schedule; the constructive solver is responsible for building
// towards the equality rather than this constraint pruning single moves
// (exceeding coverage is still flagged by EvaluateAssignment so the
// optimizer never walks past the requirement).
type CoverageConstraint struct{ *BaseConstraint }

func NewCoverageConstraint() *CoverageConstraint {
	return &CoverageConstraint{NewBaseConstraint("coverage", constraint.TypeCoverage, constraint.CategoryHard, 0)}
}

func (c *CoverageConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, day := range ctx.Horizon.Days {
		for shift := range ctx.GlobalAllowed {
			required := ctx.Params.CoverageRequirements[shift]
			got := ctx.CountOnDateShift(day.Date, shift)
			if got != required {
				details = append(details, c.CreateViolation("", day.Date,
					fmt.Sprintf("couverture %s le %s: %d/%d", shift, day.Date, got, required), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

func (c *CoverageConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	required := ctx.Params.CoverageRequirements[a.Shift]
	if ctx.CountOnDateShift(a.Date, a.Shift) >= required {
		return false, 1
	}
	return true, 0
}
