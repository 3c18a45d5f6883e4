package builtin

import (
	"fmt"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// OneShiftPerDayConstraint forbids assigning an agent more than one shift
// on the same date. ctx.byAgentDate already collapses duplicates, so this
// walks the raw Assignments slice to catch a solver bug that would
// otherwise go unnoticed.
type OneShiftPerDayConstraint struct{ *BaseConstraint }

func NewOneShiftPerDayConstraint() *OneShiftPerDayConstraint {
	return &OneShiftPerDayConstraint{NewBaseConstraint("one_shift_per_day", constraint.TypeOneShiftPerDay, constraint.CategoryHard, 0)}
}

func (c *OneShiftPerDayConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	seen := make(map[string]map[string]int)
	var details []constraint.ViolationDetail
	for _, a := range ctx.Assignments {
		if seen[a.AgentID] == nil {
			seen[a.AgentID] = make(map[string]int)
		}
		seen[a.AgentID][a.Date]++
		if seen[a.AgentID][a.Date] > 1 {
			details = append(details, c.CreateViolation(a.AgentID, a.Date,
				fmt.Sprintf("plus d'une affectation pour %s le %s", a.AgentID, a.Date), 1))
		}
	}
	return len(details) == 0, len(details), details
}

func (c *OneShiftPerDayConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if _, ok := ctx.ShiftOn(a.AgentID, a.Date); ok {
		return false, 1
	}
	return true, 0
}

// Rolling7dConstraint caps, for every agent and every 7-day window of the
// horizon, the total assigned minutes at RulesetDefaults.MaxMinutesRolling7d.
type Rolling7dConstraint struct{ *BaseConstraint }

func NewRolling7dConstraint() *Rolling7dConstraint {
	return &Rolling7dConstraint{NewBaseConstraint("max_minutes_rolling_7d", constraint.TypeRolling7d, constraint.CategoryHard, 0)}
}

func windowMinutes(ctx *constraint.Context, agentID string, start, window int) int {
	total := 0
	for k := 0; k < window && start+k < ctx.Horizon.Len(); k++ {
		if s, ok := ctx.ShiftOn(agentID, ctx.Horizon.DateAt(start+k)); ok {
			total += ctx.Duration(s)
		}
	}
	return total
}

func (c *Rolling7dConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	limit := ctx.Params.RulesetDefaults.MaxMinutesRolling7d
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for start := 0; start < ctx.Horizon.Len(); start++ {
			if total := windowMinutes(ctx, agent.ID, start, 7); total > limit {
				details = append(details, c.CreateViolation(agent.ID, ctx.Horizon.DateAt(start),
					fmt.Sprintf("%d minutes sur 7 jours glissants pour %s dépassent %d", total, agent.ID, limit), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

func (c *Rolling7dConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	limit := ctx.Params.RulesetDefaults.MaxMinutesRolling7d
	pos := ctx.Horizon.PositionOf(a.Date)
	if pos < 0 {
		return true, 0
	}
	added := ctx.Duration(a.Shift)
	for start := pos - 6; start <= pos; start++ {
		if start < 0 {
			continue
		}
		if windowMinutes(ctx, a.AgentID, start, 7)+added > limit {
			return false, 1
		}
	}
	return true, 0
}

// WeeklyRestBlockConstraint requires at least one block of rest (two
// consecutive unassigned days, or a single unassigned day bridging two
// working spans) within every rolling 7-day window for every agent.
type WeeklyRestBlockConstraint struct{ *BaseConstraint }

func NewWeeklyRestBlockConstraint() *WeeklyRestBlockConstraint {
	return &WeeklyRestBlockConstraint{NewBaseConstraint("weekly_rest_block", constraint.TypeWeeklyRestBlock, constraint.CategoryHard, 0)}
}

// bridgesRest reports whether day i is worked, day i+1 is off, day i+2 is
// worked, and the rest spanning end(shift on i) through all of day i+1 to
// start(shift on i+2) is at least WeeklyRestMinMinutes: a single off day
// can still satisfy the weekly rest block if it's long enough end to end.
func bridgesRest(ctx *constraint.Context, agentID string, i int) bool {
	return bridgesRestExcludingDate(ctx, agentID, i, "")
}

// bridgesRestExcludingDate is bridgesRest, but treats excludeDate as
// worked regardless of its actual current state in ctx. Used to ask
// "does this bridge still hold if excludeDate is no longer a rest day",
// simulating a pending assignment on excludeDate before it commits.
func bridgesRestExcludingDate(ctx *constraint.Context, agentID string, i int, excludeDate string) bool {
	if i+2 >= ctx.Horizon.Len() {
		return false
	}
	dateMid := ctx.Horizon.DateAt(i + 1)
	if dateMid == excludeDate {
		return false
	}
	s1, workedA := ctx.ShiftOn(agentID, ctx.Horizon.DateAt(i))
	_, workedMid := ctx.ShiftOn(agentID, dateMid)
	s2, workedB := ctx.ShiftOn(agentID, ctx.Horizon.DateAt(i+2))
	if !workedA || workedMid || !workedB {
		return false
	}
	d1 := ctx.Catalogue[s1]
	d2 := ctx.Catalogue[s2]
	combinedRest := (1440 - d1.EndMinute) + 1440 + d2.StartMinute
	return combinedRest >= ctx.Params.RulesetDefaults.WeeklyRestMinMinutes
}

// hasRestBlock reports whether the 7-day window starting at start contains
// at least one rest block for agentID: either a double-off (two consecutive
// rest days), or a single off day bridging two shifts whose combined rest
// reaches WeeklyRestMinMinutes.
func hasRestBlock(ctx *constraint.Context, agentID string, start int) bool {
	return hasRestBlockExcludingDate(ctx, agentID, start, "")
}

// hasRestBlockExcludingDate is hasRestBlock, but treats excludeDate as
// worked regardless of its actual current state: it answers "does a rest
// block still exist in this window if excludeDate stops counting as off",
// i.e. independently of excludeDate. Passing "" excludes nothing.
func hasRestBlockExcludingDate(ctx *constraint.Context, agentID string, start int, excludeDate string) bool {
	for k := 0; k+1 < 7 && start+k+1 < ctx.Horizon.Len(); k++ {
		date1 := ctx.Horizon.DateAt(start + k)
		date2 := ctx.Horizon.DateAt(start + k + 1)
		_, workedA := ctx.ShiftOn(agentID, date1)
		_, workedB := ctx.ShiftOn(agentID, date2)
		a := !workedA && date1 != excludeDate
		b := !workedB && date2 != excludeDate
		// z = a AND b, via the standard boolean-AND linearization:
		// z<=a, z<=b, z>=a+b-1. With a,b booleans this reduces to a&&b.
		z := a && b
		if z {
			return true
		}
		if bridgesRestExcludingDate(ctx, agentID, start+k, excludeDate) {
			return true
		}
	}
	return false
}

func (c *WeeklyRestBlockConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for start := 0; start+7 <= ctx.Horizon.Len(); start++ {
			if !hasRestBlock(ctx, agent.ID, start) {
				details = append(details, c.CreateViolation(agent.ID, ctx.Horizon.DateAt(start),
					fmt.Sprintf("aucun bloc de repos sur 7 jours pour %s à partir du %s", agent.ID, ctx.Horizon.DateAt(start)), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

// EvaluateAssignment cannot cheaply confirm a rest block exists without
// scanning the surrounding window; it rejects a move unless every window
// covering a.Date keeps a rest block that doesn't depend on a.Date itself
// staying off, since a is about to take that day's rest away.
func (c *WeeklyRestBlockConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	pos := ctx.Horizon.PositionOf(a.Date)
	if pos < 0 {
		return true, 0
	}
	for start := pos - 6; start <= pos; start++ {
		if start < 0 || start+7 > ctx.Horizon.Len() {
			continue
		}
		if hasRestBlockExcludingDate(ctx, a.AgentID, start, a.Date) {
			continue
		}
		// No rest block in this window once a.Date is counted as worked;
		// committing a would leave the window with no rest block at all.
		return false, 1
	}
	return true, 0
}

// CycleWeekCapConstraint caps total assigned minutes per ISO week at
// RulesetDefaults.MaxMinutesPerWeekExcludingOvertime when cycle mode is
// enabled on the ruleset.
type CycleWeekCapConstraint struct{ *BaseConstraint }

func NewCycleWeekCapConstraint() *CycleWeekCapConstraint {
	return &CycleWeekCapConstraint{NewBaseConstraint("cycle_week_cap", constraint.TypeCycleWeekCap, constraint.CategoryHard, 0)}
}

func (c *CycleWeekCapConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	if !ctx.Params.RulesetDefaults.CycleModeEnabled {
		return true, 0, nil
	}
	limit := ctx.Params.RulesetDefaults.MaxMinutesPerWeekExcludingOvertime
	weeks, byWeek := ctx.Horizon.GroupByISOWeek()
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for _, wk := range weeks {
			total := 0
			for _, idx := range byWeek[wk] {
				if s, ok := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(idx)); ok {
					total += ctx.Duration(s)
				}
			}
			if total > limit {
				details = append(details, c.CreateViolation(agent.ID, "",
					fmt.Sprintf("semaine ISO %d-%d: %d minutes pour %s dépassent %d", wk.Year, wk.Week, total, agent.ID, limit), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

func (c *CycleWeekCapConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if !ctx.Params.RulesetDefaults.CycleModeEnabled {
		return true, 0
	}
	pos := ctx.Horizon.PositionOf(a.Date)
	if pos < 0 {
		return true, 0
	}
	limit := ctx.Params.RulesetDefaults.MaxMinutesPerWeekExcludingOvertime
	_, byWeek := ctx.Horizon.GroupByISOWeek()
	wk := ctx.Horizon.WeekOf(pos)
	total := ctx.Duration(a.Shift)
	for _, idx := range byWeek[wk] {
		if s, ok := ctx.ShiftOn(a.AgentID, ctx.Horizon.DateAt(idx)); ok {
			total += ctx.Duration(s)
		}
	}
	if total > limit {
		return false, 1
	}
	return true, 0
}
