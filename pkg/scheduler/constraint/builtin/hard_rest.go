package builtin

import (
	"fmt"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/calendar"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// forbidden reports whether (s1 on day d, s2 on day d+1) must be forbidden
// for agent a: either explicitly listed in HardForbiddenTransitions, or the
// implied rest between end(s1) and start(s2) falls below the effective
// daily rest floor.
func forbidden(ctx *constraint.Context, s1, s2 model.ShiftCode) bool {
	for _, t := range ctx.Params.HardForbiddenTransitions {
		if t.From == s1 && t.To == s2 {
			return true
		}
	}
	d1 := ctx.Catalogue[s1]
	d2 := ctx.Catalogue[s2]
	impliedRest := (1440 - d1.EndMinute) + d2.StartMinute
	return impliedRest < ctx.Params.EffectiveDailyRestMinutes()
}

// DailyRestConstraint forbids, for every agent and every pair of
// consecutive days, a shift transition that is either explicitly
// forbidden or implies less than the effective minimum daily rest.
type DailyRestConstraint struct{ *BaseConstraint }

func NewDailyRestConstraint() *DailyRestConstraint {
	return &DailyRestConstraint{NewBaseConstraint("daily_rest", constraint.TypeDailyRest, constraint.CategoryHard, 0)}
}

func (c *DailyRestConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for i := 0; i < ctx.Horizon.Len()-1; i++ {
			d, dNext := ctx.Horizon.DateAt(i), ctx.Horizon.DateAt(i+1)
			s1, ok1 := ctx.ShiftOn(agent.ID, d)
			s2, ok2 := ctx.ShiftOn(agent.ID, dNext)
			if ok1 && ok2 && forbidden(ctx, s1, s2) {
				details = append(details, c.CreateViolation(agent.ID, d,
					fmt.Sprintf("repos insuffisant pour %s entre %s (%s) et %s (%s)", agent.ID, d, s1, dNext, s2), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

func (c *DailyRestConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	prev := calendar.PreviousDate(a.Date)
	if s1, ok := ctx.ShiftOn(a.AgentID, prev); ok && forbidden(ctx, s1, a.Shift) {
		return false, 1
	}
	next := calendar.NextDate(a.Date)
	if s2, ok := ctx.ShiftOn(a.AgentID, next); ok && forbidden(ctx, a.Shift, s2) {
		return false, 1
	}
	return true, 0
}

// Consecutive12hConstraint caps consecutive JOUR_12H days per the agent's
// regime-declared max, over any window of M+1 consecutive days.
type Consecutive12hConstraint struct{ *BaseConstraint }

func NewConsecutive12hConstraint() *Consecutive12hConstraint {
	return &Consecutive12hConstraint{NewBaseConstraint("max_consecutive_12h", constraint.TypeConsecutive12h, constraint.CategoryHard, 0)}
}

func (c *Consecutive12hConstraint) maxFor(ctx *constraint.Context, agentID string) int {
	agent := ctx.AgentByID[agentID]
	return ctx.Params.AgentRegimes[agent.Regime].MaxConsecutive12hDays
}

func (c *Consecutive12hConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		m := c.maxFor(ctx, agent.ID)
		if m <= 0 {
			continue
		}
		for start := 0; start+m <= ctx.Horizon.Len(); start++ {
			count := 0
			for k := 0; k <= m; k++ {
				if start+k >= ctx.Horizon.Len() {
					break
				}
				if s, ok := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(start+k)); ok && s == model.ShiftJour12h {
					count++
				}
			}
			if count > m {
				details = append(details, c.CreateViolation(agent.ID, ctx.Horizon.DateAt(start),
					fmt.Sprintf("plus de %d JOUR_12H consécutifs pour %s", m, agent.ID), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

func (c *Consecutive12hConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if a.Shift != model.ShiftJour12h {
		return true, 0
	}
	m := c.maxFor(ctx, a.AgentID)
	if m <= 0 {
		return true, 0
	}
	// Count the run of consecutive JOUR_12H days that would include a.Date.
	run := 1
	d := calendar.PreviousDate(a.Date)
	for {
		s, ok := ctx.ShiftOn(a.AgentID, d)
		if !ok || s != model.ShiftJour12h {
			break
		}
		run++
		d = calendar.PreviousDate(d)
	}
	d = calendar.NextDate(a.Date)
	for {
		s, ok := ctx.ShiftOn(a.AgentID, d)
		if !ok || s != model.ShiftJour12h {
			break
		}
		run++
		d = calendar.NextDate(d)
	}
	if run > m {
		return false, 1
	}
	return true, 0
}

// Exception12hCapConstraint caps the total number of JOUR_12H assignments
// a REGIME_MIXTE agent may take under the single-12h-exception policy.
type Exception12hCapConstraint struct{ *BaseConstraint }

func NewException12hCapConstraint() *Exception12hCapConstraint {
	return &Exception12hCapConstraint{NewBaseConstraint("max_12h_exceptions", constraint.TypeException12hCap, constraint.CategoryHard, 0)}
}

func (c *Exception12hCapConstraint) applies(ctx *constraint.Context, agent model.Agent) bool {
	return agent.Regime == model.RegimeMixte && ctx.Params.AllowSingle12hException
}

func (c *Exception12hCapConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		if !c.applies(ctx, agent) {
			continue
		}
		count := 0
		for _, day := range ctx.Horizon.Days {
			if s, ok := ctx.ShiftOn(agent.ID, day.Date); ok && s == model.ShiftJour12h {
				count++
			}
		}
		if count > ctx.Params.Max12hExceptionsPerAgent {
			details = append(details, c.CreateViolation(agent.ID, "",
				fmt.Sprintf("plus de %d exceptions JOUR_12H pour %s", ctx.Params.Max12hExceptionsPerAgent, agent.ID), 1))
		}
	}
	return len(details) == 0, len(details), details
}

func (c *Exception12hCapConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if a.Shift != model.ShiftJour12h {
		return true, 0
	}
	agent := ctx.AgentByID[a.AgentID]
	if !c.applies(ctx, agent) {
		return true, 0
	}
	count := 0
	for _, day := range ctx.Horizon.Days {
		if s, ok := ctx.ShiftOn(a.AgentID, day.Date); ok && s == model.ShiftJour12h {
			count++
		}
	}
	if count >= ctx.Params.Max12hExceptionsPerAgent {
		return false, 1
	}
	return true, 0
}

// PatternBanConstraint forbids the MATIN, SOIR, MATIN pattern across three
// consecutive days when the ruleset enables it.
type PatternBanConstraint struct{ *BaseConstraint }

func NewPatternBanConstraint() *PatternBanConstraint {
	return &PatternBanConstraint{NewBaseConstraint("pattern_ban_matin_soir_matin", constraint.TypePatternBan, constraint.CategoryHard, 0)}
}

func (c *PatternBanConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	if !ctx.Params.ForbidMatinSoirMatin {
		return true, 0, nil
	}
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for i := 0; i+2 < ctx.Horizon.Len(); i++ {
			s0, ok0 := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(i))
			s1, ok1 := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(i+1))
			s2, ok2 := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(i+2))
			if ok0 && ok1 && ok2 && s0 == model.ShiftMatin && s1 == model.ShiftSoir && s2 == model.ShiftMatin {
				details = append(details, c.CreateViolation(agent.ID, ctx.Horizon.DateAt(i),
					fmt.Sprintf("motif MATIN/SOIR/MATIN interdit pour %s", agent.ID), 1))
			}
		}
	}
	return len(details) == 0, len(details), details
}

func (c *PatternBanConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if !ctx.Params.ForbidMatinSoirMatin {
		return true, 0
	}
	// Check the three windows of 3 consecutive days that include a.Date.
	shiftAt := func(date string) (model.ShiftCode, bool) {
		if date == a.Date {
			return a.Shift, true
		}
		return ctx.ShiftOn(a.AgentID, date)
	}
	for start := -2; start <= 0; start++ {
		d0 := offsetDate(a.Date, start)
		d1 := offsetDate(a.Date, start+1)
		d2 := offsetDate(a.Date, start+2)
		s0, ok0 := shiftAt(d0)
		s1, ok1 := shiftAt(d1)
		s2, ok2 := shiftAt(d2)
		if ok0 && ok1 && ok2 && s0 == model.ShiftMatin && s1 == model.ShiftSoir && s2 == model.ShiftMatin {
			return false, 1
		}
	}
	return true, 0
}

func offsetDate(date string, offset int) string {
	d := date
	if offset > 0 {
		for i := 0; i < offset; i++ {
			d = calendar.NextDate(d)
		}
	} else if offset < 0 {
		for i := 0; i < -offset; i++ {
			d = calendar.PreviousDate(d)
		}
	}
	return d
}
