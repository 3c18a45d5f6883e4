package builtin

import (
	"testing"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/calendar"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

func buildCtx(t *testing.T, start, end string, agents []model.Agent, catalogue model.Catalogue, params model.PlanningParams) *constraint.Context {
	t.Helper()
	h, err := calendar.Build(start, end)
	if err != nil {
		t.Fatalf("calendar.Build: %v", err)
	}
	global := map[model.ShiftCode]bool{}
	for code := range catalogue {
		global[code] = true
	}
	allowed := map[string]map[model.ShiftCode]bool{}
	for _, a := range agents {
		allowed[a.ID] = global
	}
	params.Shifts = catalogue
	return constraint.NewContext(params, h, catalogue, global, agents, allowed, nil)
}

func TestAvailabilityConstraint(t *testing.T) {
	agents := []model.Agent{{ID: "A1", UnavailabilityDates: []string{"2026-02-10"}}}
	ctx := buildCtx(t, "2026-02-09", "2026-02-11", agents, model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}, model.PlanningParams{})
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-10", Shift: model.ShiftMatin})

	c := NewAvailabilityConstraint()
	valid, penalty, details := c.Evaluate(ctx)
	if valid || penalty != 1 || len(details) != 1 {
		t.Fatalf("expected one violation, got valid=%v penalty=%d details=%v", valid, penalty, details)
	}
}

func TestCoverageConstraint_ExactMatchPasses(t *testing.T) {
	agents := []model.Agent{{ID: "A1"}, {ID: "A2"}}
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}
	params := model.PlanningParams{CoverageRequirements: map[model.ShiftCode]int{model.ShiftMatin: 2}}
	ctx := buildCtx(t, "2026-02-09", "2026-02-09", agents, catalogue, params)
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftMatin})
	ctx.AddAssignment(model.Assignment{AgentID: "A2", Date: "2026-02-09", Shift: model.ShiftMatin})

	c := NewCoverageConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if !valid || penalty != 0 {
		t.Fatalf("expected exact coverage to pass, got valid=%v penalty=%d", valid, penalty)
	}
}

func TestCoverageConstraint_UnderstaffedFails(t *testing.T) {
	agents := []model.Agent{{ID: "A1"}}
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}
	params := model.PlanningParams{CoverageRequirements: map[model.ShiftCode]int{model.ShiftMatin: 2}}
	ctx := buildCtx(t, "2026-02-09", "2026-02-09", agents, catalogue, params)
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftMatin})

	c := NewCoverageConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty == 0 {
		t.Fatalf("expected understaffed coverage to fail, got valid=%v penalty=%d", valid, penalty)
	}
}

func TestDailyRestConstraint_ForbidsInsufficientRest(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftSoir:  {Code: model.ShiftSoir, StartMinute: 1140, EndMinute: 1440, DurationMinutes: 300},
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}
	params := model.PlanningParams{RulesetDefaults: model.DefaultRulesetDefaults()}
	ctx := buildCtx(t, "2026-02-09", "2026-02-10", []model.Agent{{ID: "A1"}}, catalogue, params)
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftSoir})
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-10", Shift: model.ShiftMatin})

	c := NewDailyRestConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty == 0 {
		t.Fatalf("expected SOIR->MATIN to violate daily rest, got valid=%v penalty=%d", valid, penalty)
	}
}

func TestConsecutive12hConstraint_CapsRun(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftJour12h: {Code: model.ShiftJour12h, StartMinute: 420, EndMinute: 1140, DurationMinutes: 720},
	}
	params := model.PlanningParams{
		AgentRegimes: model.RegimeSet{
			model.RegimeJour12h: {AllowedShifts: []model.ShiftCode{model.ShiftJour12h}, MaxConsecutive12hDays: 3},
		},
	}
	agents := []model.Agent{{ID: "A1", Regime: model.RegimeJour12h}}
	ctx := buildCtx(t, "2026-02-09", "2026-02-13", agents, catalogue, params)
	for _, d := range []string{"2026-02-09", "2026-02-10", "2026-02-11", "2026-02-12"} {
		ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: d, Shift: model.ShiftJour12h})
	}

	c := NewConsecutive12hConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty == 0 {
		t.Fatalf("expected 4 consecutive JOUR_12H days to exceed max of 3, got valid=%v penalty=%d", valid, penalty)
	}
}

func TestOneShiftPerDayConstraint_RejectsDuplicate(t *testing.T) {
	ctx := buildCtx(t, "2026-02-09", "2026-02-09", []model.Agent{{ID: "A1"}}, model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}, model.PlanningParams{})
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftMatin})

	c := NewOneShiftPerDayConstraint()
	valid, _ := c.EvaluateAssignment(ctx, model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftMatin})
	if valid {
		t.Fatal("expected a second assignment on the same day to be rejected")
	}
}

// TestPeriodTargetDevConstraint_SharePerShiftIgnoresIneligibleAgents covers
// a MATIN_ONLY / SOIR_ONLY mixed roster: a MATIN-only agent must not
// absorb any of SOIR's minute budget just because it's summed into the
// roster's total quotity.
func TestPeriodTargetDevConstraint_SharePerShiftIgnoresIneligibleAgents(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
		model.ShiftSoir:  {Code: model.ShiftSoir, StartMinute: 780, EndMinute: 1260, DurationMinutes: 480},
	}
	params := model.PlanningParams{
		CoverageRequirements: map[model.ShiftCode]int{model.ShiftMatin: 1, model.ShiftSoir: 1},
	}
	h, err := calendar.Build("2026-02-09", "2026-02-09")
	if err != nil {
		t.Fatalf("calendar.Build: %v", err)
	}
	global := map[model.ShiftCode]bool{model.ShiftMatin: true, model.ShiftSoir: true}
	agents := []model.Agent{
		{ID: "MATIN1", Quotity: model.QuotityFull},
		{ID: "SOIR1", Quotity: model.QuotityFull},
	}
	allowed := map[string]map[model.ShiftCode]bool{
		"MATIN1": {model.ShiftMatin: true},
		"SOIR1":  {model.ShiftSoir: true},
	}
	params.Shifts = catalogue
	ctx := constraint.NewContext(params, h, catalogue, global, agents, allowed, nil)
	ctx.AddAssignment(model.Assignment{AgentID: "MATIN1", Date: "2026-02-09", Shift: model.ShiftMatin})
	ctx.AddAssignment(model.Assignment{AgentID: "SOIR1", Date: "2026-02-09", Shift: model.ShiftSoir})

	c := NewPeriodTargetDevConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if !valid || penalty != 0 {
		t.Fatalf("each agent is the sole eligible worker for their own shift and fully covers its demand, expected no deviation, got valid=%v penalty=%d", valid, penalty)
	}
}

// TestPeriodTargetDevConstraint_EqualQuotityAgentsSplitOneShift checks
// that one shift's demand is split between its eligible agents in
// proportion to quotity, and that the deviation from that share is
// penalized at the constraint's weight.
func TestPeriodTargetDevConstraint_EqualQuotityAgentsSplitOneShift(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}
	params := model.PlanningParams{
		CoverageRequirements: map[model.ShiftCode]int{model.ShiftMatin: 1},
	}
	h, err := calendar.Build("2026-02-09", "2026-02-09")
	if err != nil {
		t.Fatalf("calendar.Build: %v", err)
	}
	global := map[model.ShiftCode]bool{model.ShiftMatin: true}
	agents := []model.Agent{
		{ID: "A1", Quotity: model.QuotityFull},
		{ID: "A2", Quotity: model.QuotityFull},
	}
	allowed := map[string]map[model.ShiftCode]bool{
		"A1": {model.ShiftMatin: true},
		"A2": {model.ShiftMatin: true},
	}
	params.Shifts = catalogue
	ctx := constraint.NewContext(params, h, catalogue, global, agents, allowed, nil)
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftMatin})

	c := NewPeriodTargetDevConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	// Demand is 360 minutes split evenly between two equally-quotity
	// eligible agents: 180 each. A1 got all 360 (+180 over), A2 got
	// none (-180 under): 360 minutes of deviation at weight 2.
	if valid || penalty != 720 {
		t.Fatalf("expected a penalty of 720 (180 over + 180 under, x weight 2), got valid=%v penalty=%d", valid, penalty)
	}
}

// weeklyRestCtx builds a 7-day horizon where one agent works every day
// except index 3, with the given shift bounds, so the only candidate
// rest block in the window is the single off day bridging two shifts.
func weeklyRestCtx(t *testing.T, startMinute, endMinute int) *constraint.Context {
	t.Helper()
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: startMinute, EndMinute: endMinute, DurationMinutes: endMinute - startMinute},
	}
	params := model.PlanningParams{RulesetDefaults: model.DefaultRulesetDefaults()}
	ctx := buildCtx(t, "2026-02-09", "2026-02-15", []model.Agent{{ID: "A1"}}, catalogue, params)
	for i, d := range ctx.Horizon.Days {
		if i == 3 {
			continue
		}
		ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: d.Date, Shift: model.ShiftMatin})
	}
	return ctx
}

func TestWeeklyRestBlockConstraint_BridgeOffSatisfiesRest(t *testing.T) {
	// (1440-1200) + 1440 + 480 = 2160, exactly WeeklyRestMinMinutes.
	ctx := weeklyRestCtx(t, 480, 1200)
	c := NewWeeklyRestBlockConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if !valid || penalty != 0 {
		t.Fatalf("single off day bridging two shifts with combined rest >= weekly_rest_min_minutes should satisfy the rest block, got valid=%v penalty=%d", valid, penalty)
	}
}

func TestWeeklyRestBlockConstraint_ShortBridgeOffStillViolates(t *testing.T) {
	// (1440-1260) + 1440 + 300 = 1920, short of WeeklyRestMinMinutes (2160).
	ctx := weeklyRestCtx(t, 300, 1260)
	c := NewWeeklyRestBlockConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty == 0 {
		t.Fatalf("a single off day whose bridged rest falls short of weekly_rest_min_minutes must not satisfy the rest block, got valid=%v penalty=%d", valid, penalty)
	}
}

func TestReinforcementUsageConstraint_Penalises(t *testing.T) {
	ctx := buildCtx(t, "2026-02-09", "2026-02-09", []model.Agent{{ID: "R1"}}, model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}, model.PlanningParams{})
	ctx.AddAssignment(model.Assignment{AgentID: "R1", Date: "2026-02-09", Shift: model.ShiftMatin})

	c := NewReinforcementUsageConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty != 120 {
		t.Fatalf("expected reinforcement usage penalty of 120, got valid=%v penalty=%d", valid, penalty)
	}
}

// TestSoirFairnessConstraint_PenalizesGapOfOne guards against
// reintroducing a >=2 threshold: spec.md's formula is the unconditional
// max-min gap times weight 5, with no minimum gap to start penalising.
func TestSoirFairnessConstraint_PenalizesGapOfOne(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftSoir: {Code: model.ShiftSoir, StartMinute: 780, EndMinute: 1260, DurationMinutes: 480},
	}
	agents := []model.Agent{{ID: "A1"}, {ID: "A2"}}
	ctx := buildCtx(t, "2026-02-09", "2026-02-09", agents, catalogue, model.PlanningParams{})
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftSoir})

	c := NewSoirFairnessConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty != 5 {
		t.Fatalf("a SOIR-count gap of 1 must still be penalised unconditionally at weight 5, got valid=%v penalty=%d", valid, penalty)
	}
}

// TestWeekendFairnessConstraint_PenalizesGapOfOne is the weekend-count
// analogue of TestSoirFairnessConstraint_PenalizesGapOfOne, at weight 12.
func TestWeekendFairnessConstraint_PenalizesGapOfOne(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}
	agents := []model.Agent{{ID: "A1"}, {ID: "A2"}}
	// 2026-02-14 is a Saturday.
	ctx := buildCtx(t, "2026-02-14", "2026-02-14", agents, catalogue, model.PlanningParams{})
	ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: "2026-02-14", Shift: model.ShiftMatin})

	c := NewWeekendFairnessConstraint()
	valid, penalty, _ := c.Evaluate(ctx)
	if valid || penalty != 12 {
		t.Fatalf("a weekend-count gap of 1 must still be penalised unconditionally at weight 12, got valid=%v penalty=%d", valid, penalty)
	}
}

// TestWeeklyRestBlockConstraint_EvaluateAssignment_RejectsRemovingOnlyRestDay
// covers the incremental check against a window whose only rest block is
// the double-off pair being evaluated for assignment: days 2 and 3 are both
// off, day 1 and day 4 are worked, and the candidate assignment lands on
// day 3. Approving it would leave day 2 an isolated, partnerless off day
// and the window would end up with no rest block at all.
func TestWeeklyRestBlockConstraint_EvaluateAssignment_RejectsRemovingOnlyRestDay(t *testing.T) {
	catalogue := model.Catalogue{
		model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 780, DurationMinutes: 360},
	}
	params := model.PlanningParams{RulesetDefaults: model.DefaultRulesetDefaults()}
	ctx := buildCtx(t, "2026-02-09", "2026-02-15", []model.Agent{{ID: "A1"}}, catalogue, params)
	for i, d := range ctx.Horizon.Days {
		if i == 2 || i == 3 {
			continue
		}
		ctx.AddAssignment(model.Assignment{AgentID: "A1", Date: d.Date, Shift: model.ShiftMatin})
	}

	c := NewWeeklyRestBlockConstraint()
	valid, _ := c.EvaluateAssignment(ctx, model.Assignment{AgentID: "A1", Date: ctx.Horizon.Days[3].Date, Shift: model.ShiftMatin})
	if valid {
		t.Fatal("assigning the last day of the window's only rest block must be rejected")
	}
}
