package builtin

import (
	"fmt"
	"math"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// PreferenceMissConstraint penalises an agent-declared preference that the
// schedule doesn't honour, at the agent's own declared weight.
type PreferenceMissConstraint struct{ *BaseConstraint }

func NewPreferenceMissConstraint() *PreferenceMissConstraint {
	return &PreferenceMissConstraint{NewBaseConstraint("preference_miss", constraint.TypePreferenceMiss, constraint.CategorySoft, 1)}
}

func preferenceMissed(ctx *constraint.Context, agentID string, p model.Preference) bool {
	shift, worked := ctx.ShiftOn(agentID, p.Date)
	switch p.Kind {
	case model.PreferencePrefer:
		return !worked || shift != p.Shift
	case model.PreferenceAvoid:
		return worked && shift == p.Shift
	}
	return false
}

func (c *PreferenceMissConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for _, p := range agent.Preferences {
			if preferenceMissed(ctx, agent.ID, p) {
				details = append(details, c.CreateViolation(agent.ID, p.Date,
					fmt.Sprintf("préférence non respectée pour %s le %s", agent.ID, p.Date), p.Weight))
			}
		}
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *PreferenceMissConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	agent := ctx.AgentByID[a.AgentID]
	penalty := 0
	for _, p := range agent.Preferences {
		if p.Date != a.Date {
			continue
		}
		switch p.Kind {
		case model.PreferencePrefer:
			if a.Shift != p.Shift {
				penalty += p.Weight
			}
		case model.PreferenceAvoid:
			if a.Shift == p.Shift {
				penalty += p.Weight
			}
		}
	}
	return penalty == 0, penalty
}

// spread returns max(counts) - min(counts) across the given per-agent
// counts, used by the fairness soft terms to detect an unbalanced split.
func spread(counts map[string]int) int {
	if len(counts) == 0 {
		return 0
	}
	min, max := math.MaxInt64, math.MinInt64
	for _, v := range counts {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}

// SoirFairnessConstraint penalises an unbalanced split of SOIR shifts
// across the roster, weight 5.
type SoirFairnessConstraint struct{ *BaseConstraint }

func NewSoirFairnessConstraint() *SoirFairnessConstraint {
	return &SoirFairnessConstraint{NewBaseConstraint("soir_fairness", constraint.TypeSoirFairness, constraint.CategorySoft, 5)}
}

func (c *SoirFairnessConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	counts := make(map[string]int)
	for _, agent := range ctx.Agents {
		counts[agent.ID] = 0
	}
	for _, a := range ctx.Assignments {
		if a.Shift == model.ShiftSoir {
			counts[a.AgentID]++
		}
	}
	gap := spread(counts)
	penalty := gap * c.Weight()
	if gap == 0 {
		return true, 0, nil
	}
	return false, penalty, []constraint.ViolationDetail{
		c.CreateViolation("", "", fmt.Sprintf("écart de %d gardes SOIR entre agents", gap), penalty),
	}
}

func (c *SoirFairnessConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	return true, 0
}

// WeekendFairnessConstraint penalises an unbalanced split of weekend
// shifts across the roster, weight 12.
type WeekendFairnessConstraint struct{ *BaseConstraint }

func NewWeekendFairnessConstraint() *WeekendFairnessConstraint {
	return &WeekendFairnessConstraint{NewBaseConstraint("weekend_block_fairness", constraint.TypeWeekendFairness, constraint.CategorySoft, 12)}
}

func (c *WeekendFairnessConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	counts := make(map[string]int)
	for _, agent := range ctx.Agents {
		counts[agent.ID] = 0
	}
	for _, a := range ctx.Assignments {
		if pos := ctx.Horizon.PositionOf(a.Date); pos >= 0 && ctx.Horizon.Days[pos].IsWeekend {
			counts[a.AgentID]++
		}
	}
	gap := spread(counts)
	penalty := gap * c.Weight()
	if gap == 0 {
		return true, 0, nil
	}
	return false, penalty, []constraint.ViolationDetail{
		c.CreateViolation("", "", fmt.Sprintf("écart de %d gardes de week-end entre agents", gap), penalty),
	}
}

func (c *WeekendFairnessConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	return true, 0
}

// ConsecutiveWeekendsConstraint penalises an agent working two consecutive
// Saturdays (a proxy for two consecutive weekend blocks), weight 24.
type ConsecutiveWeekendsConstraint struct{ *BaseConstraint }

func NewConsecutiveWeekendsConstraint() *ConsecutiveWeekendsConstraint {
	return &ConsecutiveWeekendsConstraint{NewBaseConstraint("consecutive_weekend_blocks", constraint.TypeConsecutiveWeekends, constraint.CategorySoft, 24)}
}

func saturdayKeys(ctx *constraint.Context, agentID string) map[string]bool {
	keys := make(map[string]bool)
	for _, day := range ctx.Horizon.Days {
		if day.Weekday != 5 { // 0=Monday...5=Saturday
			continue
		}
		if _, worked := ctx.ShiftOn(agentID, day.Date); worked {
			keys[fmt.Sprintf("%d-%02d", day.ISOYear, day.ISOWeek)] = true
		}
	}
	return keys
}

func (c *ConsecutiveWeekendsConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	weeks, _ := ctx.Horizon.GroupByISOWeek()
	for _, agent := range ctx.Agents {
		worked := saturdayKeys(ctx, agent.ID)
		for i := 0; i+1 < len(weeks); i++ {
			k1 := fmt.Sprintf("%d-%02d", weeks[i].Year, weeks[i].Week)
			k2 := fmt.Sprintf("%d-%02d", weeks[i+1].Year, weeks[i+1].Week)
			if worked[k1] && worked[k2] {
				details = append(details, c.CreateViolation(agent.ID, "",
					fmt.Sprintf("week-ends consécutifs travaillés par %s", agent.ID), c.Weight()))
			}
		}
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *ConsecutiveWeekendsConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	return true, 0
}

// ReinforcementUsageConstraint heavily penalises every shift handed to a
// synthetic reinforcement agent, weight 120 — the objective should always
// prefer a feasible schedule that doesn't need one.
type ReinforcementUsageConstraint struct{ *BaseConstraint }

func NewReinforcementUsageConstraint() *ReinforcementUsageConstraint {
	return &ReinforcementUsageConstraint{NewBaseConstraint("reinforcement_usage", constraint.TypeReinforcementUsage, constraint.CategorySoft, 120)}
}

func isReinforcement(agentID string) bool {
	return len(agentID) > 1 && agentID[0] == 'R' && agentID[1] >= '0' && agentID[1] <= '9'
}

func (c *ReinforcementUsageConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, a := range ctx.Assignments {
		if isReinforcement(a.AgentID) {
			details = append(details, c.CreateViolation(a.AgentID, a.Date,
				fmt.Sprintf("affectation de renfort %s le %s", a.AgentID, a.Date), c.Weight()))
		}
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *ReinforcementUsageConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if isReinforcement(a.AgentID) {
		return false, c.Weight()
	}
	return true, 0
}

// ShiftSwitchConstraint penalises an agent changing shift type from one
// worked day to the next (MATIN to SOIR or vice versa), weight 4.
type ShiftSwitchConstraint struct{ *BaseConstraint }

func NewShiftSwitchConstraint() *ShiftSwitchConstraint {
	return &ShiftSwitchConstraint{NewBaseConstraint("shift_switch", constraint.TypeShiftSwitch, constraint.CategorySoft, 4)}
}

func (c *ShiftSwitchConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for i := 0; i+1 < ctx.Horizon.Len(); i++ {
			s1, ok1 := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(i))
			s2, ok2 := ctx.ShiftOn(agent.ID, ctx.Horizon.DateAt(i+1))
			if ok1 && ok2 && s1 != s2 {
				details = append(details, c.CreateViolation(agent.ID, ctx.Horizon.DateAt(i+1),
					fmt.Sprintf("changement de type de garde pour %s", agent.ID), c.Weight()))
			}
		}
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *ShiftSwitchConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	penalty := 0
	if prev, ok := ctx.ShiftOn(a.AgentID, prevOf(ctx, a.Date)); ok && prev != a.Shift {
		penalty += c.Weight()
	}
	if next, ok := ctx.ShiftOn(a.AgentID, nextOf(ctx, a.Date)); ok && next != a.Shift {
		penalty += c.Weight()
	}
	return penalty == 0, penalty
}

func prevOf(ctx *constraint.Context, date string) string {
	if pos := ctx.Horizon.PositionOf(date); pos > 0 {
		return ctx.Horizon.DateAt(pos - 1)
	}
	return ""
}

func nextOf(ctx *constraint.Context, date string) string {
	if pos := ctx.Horizon.PositionOf(date); pos >= 0 && pos+1 < ctx.Horizon.Len() {
		return ctx.Horizon.DateAt(pos + 1)
	}
	return ""
}

// IsolatedWorkdayConstraint penalises a single worked day surrounded by
// rest on both sides, weight 6.
type IsolatedWorkdayConstraint struct{ *BaseConstraint }

func NewIsolatedWorkdayConstraint() *IsolatedWorkdayConstraint {
	return &IsolatedWorkdayConstraint{NewBaseConstraint("isolated_workday", constraint.TypeIsolatedWorkday, constraint.CategorySoft, 6)}
}

func isIsolated(ctx *constraint.Context, agentID, date string) bool {
	if _, worked := ctx.ShiftOn(agentID, date); !worked {
		return false
	}
	pos := ctx.Horizon.PositionOf(date)
	if pos <= 0 || pos+1 >= ctx.Horizon.Len() {
		return false
	}
	_, prevWorked := ctx.ShiftOn(agentID, ctx.Horizon.DateAt(pos-1))
	_, nextWorked := ctx.ShiftOn(agentID, ctx.Horizon.DateAt(pos+1))
	return !prevWorked && !nextWorked
}

func (c *IsolatedWorkdayConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		for _, day := range ctx.Horizon.Days {
			if isIsolated(ctx, agent.ID, day.Date) {
				details = append(details, c.CreateViolation(agent.ID, day.Date,
					fmt.Sprintf("journée de travail isolée pour %s le %s", agent.ID, day.Date), c.Weight()))
			}
		}
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *IsolatedWorkdayConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	if isIsolated(ctx, a.AgentID, a.Date) {
		return false, c.Weight()
	}
	return true, 0
}

// desiredShareMinutes allocates, for each shift, that shift's total
// demand minutes proportionally to quotity among only the agents
// eligible for that shift, then sums each agent's per-shift shares into
// one desired total: the share for shift s must come from s's own
// eligible pool, not from quotity summed over the whole roster, or an
// agent ineligible for s would still absorb credit toward s's budget.
func desiredShareMinutes(ctx *constraint.Context, agents []model.Agent, agentID string) int {
	share := 0.0
	for shift := range ctx.GlobalAllowed {
		demand := shiftDemandMinutes(ctx, shift)
		if demand == 0 {
			continue
		}
		eligibleQuotity := 0
		for _, a := range agents {
			if ctx.AllowedShifts[a.ID][shift] {
				eligibleQuotity += int(a.Quotity)
			}
		}
		if eligibleQuotity == 0 || !ctx.AllowedShifts[agentID][shift] {
			continue
		}
		agent := agentFor(agents, agentID)
		share += float64(demand) * float64(agent.Quotity) / float64(eligibleQuotity)
	}
	return roundHalfAwayFromZero(share)
}

func agentFor(agents []model.Agent, id string) model.Agent {
	for _, a := range agents {
		if a.ID == id {
			return a
		}
	}
	return model.Agent{}
}

func roundHalfAwayFromZero(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return -int(math.Floor(-v + 0.5))
}

// PeriodTargetDevConstraint penalises, per agent, the absolute deviation
// between minutes assigned over the horizon and the quotity-proportional
// share of total demand, weight 2.
type PeriodTargetDevConstraint struct{ *BaseConstraint }

func NewPeriodTargetDevConstraint() *PeriodTargetDevConstraint {
	return &PeriodTargetDevConstraint{NewBaseConstraint("period_target_deviation", constraint.TypePeriodTargetDev, constraint.CategorySoft, 2)}
}

// shiftDemandMinutes totals one shift's required minutes across the
// whole horizon: coverage count times duration times the number of
// days it's required on.
func shiftDemandMinutes(ctx *constraint.Context, shift model.ShiftCode) int {
	return ctx.Params.CoverageRequirements[shift] * ctx.Duration(shift) * ctx.Horizon.Len()
}

func assignedMinutes(ctx *constraint.Context, agentID string) int {
	total := 0
	for _, day := range ctx.Horizon.Days {
		if s, ok := ctx.ShiftOn(agentID, day.Date); ok {
			total += ctx.Duration(s)
		}
	}
	return total
}

func (c *PeriodTargetDevConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		desired := desiredShareMinutes(ctx, ctx.Agents, agent.ID)
		actual := assignedMinutes(ctx, agent.ID)
		dev := abs(actual - desired)
		if dev == 0 {
			continue
		}
		details = append(details, c.CreateViolation(agent.ID, "",
			fmt.Sprintf("écart de %d minutes par rapport à la part cible de %s", dev, agent.ID), dev*c.Weight()))
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *PeriodTargetDevConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	return true, 0
}

// AnnualTargetDevConstraint penalises, per agent with a declared annual
// target, the deviation between baseline-plus-assigned minutes and the
// target, weight 1.
type AnnualTargetDevConstraint struct {
	*BaseConstraint
	baseline model.BaselineMinutes
}

func NewAnnualTargetDevConstraint(baseline model.BaselineMinutes) *AnnualTargetDevConstraint {
	return &AnnualTargetDevConstraint{
		BaseConstraint: NewBaseConstraint("annual_target_deviation", constraint.TypeAnnualTargetDev, constraint.CategorySoft, 1),
		baseline:       baseline,
	}
}

func (c *AnnualTargetDevConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var details []constraint.ViolationDetail
	for _, agent := range ctx.Agents {
		if agent.AnnualTargetMinutes == nil {
			continue
		}
		actual := c.baseline.Get(agent.ID) + assignedMinutes(ctx, agent.ID)
		dev := abs(actual - *agent.AnnualTargetMinutes)
		if dev == 0 {
			continue
		}
		details = append(details, c.CreateViolation(agent.ID, "",
			fmt.Sprintf("écart de %d minutes par rapport à l'objectif annuel de %s", dev, agent.ID), dev*c.Weight()))
	}
	total := 0
	for _, d := range details {
		total += d.Penalty
	}
	return len(details) == 0, total, details
}

func (c *AnnualTargetDevConstraint) EvaluateAssignment(ctx *constraint.Context, a model.Assignment) (bool, int) {
	return true, 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
