package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garde/garde/pkg/model"
)

func baseParams() model.PlanningParams {
	return model.PlanningParams{
		StartDate: "2026-02-09",
		EndDate:   "2026-02-10",
		Mode:      model.ModeMatinSoir,
		CoverageRequirements: map[model.ShiftCode]int{
			model.ShiftMatin: 1,
			model.ShiftSoir:  1,
		},
		Shifts: model.Catalogue{
			model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 810, DurationMinutes: 390},
			model.ShiftSoir:  {Code: model.ShiftSoir, StartMinute: 810, EndMinute: 1290, DurationMinutes: 480},
		},
		RulesetDefaults: model.DefaultRulesetDefaults(),
		AgentRegimes: model.RegimeSet{
			model.RegimeMixte: {AllowedShifts: []model.ShiftCode{model.ShiftMatin, model.ShiftSoir}},
		},
	}
}

// TestScenario1_MixteBasicFeasible is §8 scenario 1: a REGIME_MIXTE roster
// sized generously over a 4-day MATIN/SOIR horizon solves to an ok result
// with exact coverage every day.
func TestScenario1_MixteBasicFeasible(t *testing.T) {
	params := baseParams()
	params.EndDate = "2026-02-12" // 4 days

	agents := []model.Agent{
		{ID: "A1", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A2", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A3", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A4", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A5", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A6", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A7", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A8", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
	}
	req := model.GenerateRequest{Params: params, Agents: agents}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	require.Equal(t, model.StatusOK, result.Status, "explanation: %v", result.Explanation)
	for _, day := range []string{"2026-02-09", "2026-02-10", "2026-02-11", "2026-02-12"} {
		counts := map[model.ShiftCode]int{}
		for _, a := range result.Assignments {
			if a.Date == day {
				counts[a.Shift]++
			}
		}
		assert.Equal(t, 1, counts[model.ShiftMatin], "day %s MATIN coverage", day)
		assert.Equal(t, 1, counts[model.ShiftSoir], "day %s SOIR coverage", day)
	}
}

func TestBuildSolution_InvalidHorizon(t *testing.T) {
	params := baseParams()
	params.StartDate = "2026-02-12"
	params.EndDate = "2026-02-09"
	req := model.GenerateRequest{Params: params, Agents: []model.Agent{{ID: "A1", Regime: model.RegimeMixte}}}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	require.Equal(t, model.StatusInfeasible, result.Status)
	require.NotNil(t, result.Explanation)
	assert.Equal(t, "Période invalide", *result.Explanation)
}

func TestBuildSolution_ModeCoverageMismatch(t *testing.T) {
	params := baseParams()
	params.Mode = model.ModeJour12h
	req := model.GenerateRequest{Params: params, Agents: []model.Agent{{ID: "A1", Regime: model.RegimeMixte}}}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	assert.Equal(t, model.StatusInfeasible, result.Status, "coverage demands a shift outside the mode")
}

// TestScenario2_RegimeClashOnCoverageInfeasible is §8 scenario 2: every
// agent's declared regime is eligible for only one of the two required
// shifts, so no candidate exists for the other and the request is
// infeasible even though the mode itself permits both shifts.
func TestScenario2_RegimeClashOnCoverageInfeasible(t *testing.T) {
	params := baseParams()
	params.AgentRegimes = model.RegimeSet{
		model.RegimeMatinOnly: {AllowedShifts: []model.ShiftCode{model.ShiftMatin}},
	}
	agents := []model.Agent{
		{ID: "A1", Regime: model.RegimeMatinOnly, Quotity: model.QuotityFull},
		{ID: "A2", Regime: model.RegimeMatinOnly, Quotity: model.QuotityFull},
	}
	req := model.GenerateRequest{Params: params, Agents: agents}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	assert.Equal(t, model.StatusInfeasible, result.Status, "no agent is eligible for SOIR, so coverage can't be met")
}

// TestScenario3_ForbiddenTransitionRespected is §8 scenario 3: a declared
// hard transition (SOIR followed by MATIN) never appears back to back for
// the same agent in the produced schedule, even though honouring it costs
// the solver a spare agent it would otherwise reuse.
func TestScenario3_ForbiddenTransitionRespected(t *testing.T) {
	params := baseParams()
	params.EndDate = "2026-02-11" // 3 days
	params.HardForbiddenTransitions = []model.TransitionRule{
		{From: model.ShiftSoir, To: model.ShiftMatin, Reason: "repos insuffisant"},
	}
	agents := []model.Agent{
		{ID: "A1", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A2", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A3", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A4", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A5", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A6", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
	}
	req := model.GenerateRequest{Params: params, Agents: agents}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	require.Equal(t, model.StatusOK, result.Status, "explanation: %v", result.Explanation)

	byAgentDate := map[string]map[string]model.ShiftCode{}
	for _, a := range result.Assignments {
		if byAgentDate[a.AgentID] == nil {
			byAgentDate[a.AgentID] = map[string]model.ShiftCode{}
		}
		byAgentDate[a.AgentID][a.Date] = a.Shift
	}
	days := []string{"2026-02-09", "2026-02-10", "2026-02-11"}
	for agentID, byDate := range byAgentDate {
		for i := 0; i+1 < len(days); i++ {
			s1, ok1 := byDate[days[i]]
			s2, ok2 := byDate[days[i+1]]
			if ok1 && ok2 {
				assert.Falsef(t, s1 == model.ShiftSoir && s2 == model.ShiftMatin,
					"agent %s worked SOIR on %s then MATIN on %s, a forbidden transition", agentID, days[i], days[i+1])
			}
		}
	}
}

// TestScenario4_MaxConsecutive12hInfeasible is §8 scenario 4: a
// REGIME_12H_JOUR cap of 2 consecutive days, one agent, and four days of
// required JOUR_12H coverage with no reinforcement allowed forces a gap
// the lone agent can't legally fill.
func TestScenario4_MaxConsecutive12hInfeasible(t *testing.T) {
	params := model.PlanningParams{
		StartDate: "2026-02-09",
		EndDate:   "2026-02-12", // 4 days
		Mode:      model.ModeJour12h,
		CoverageRequirements: map[model.ShiftCode]int{
			model.ShiftJour12h: 1,
		},
		Shifts: model.Catalogue{
			model.ShiftJour12h: {Code: model.ShiftJour12h, StartMinute: 420, EndMinute: 1140, DurationMinutes: 720},
		},
		RulesetDefaults: model.DefaultRulesetDefaults(),
		AgentRegimes: model.RegimeSet{
			model.RegimeJour12h: {AllowedShifts: []model.ShiftCode{model.ShiftJour12h}, MaxConsecutive12hDays: 2},
		},
	}
	agents := []model.Agent{{ID: "A1", Regime: model.RegimeJour12h, Quotity: model.QuotityFull}}
	req := model.GenerateRequest{Params: params, Agents: agents}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	assert.Equal(t, model.StatusInfeasible, result.Status,
		"the lone agent can cover at most 2 consecutive JOUR_12H days and nobody else is eligible")
}

// TestScenario5_LockedAssignmentHonored is §8 scenario 5: a pinned
// (agent, date, shift) decision variable survives solving unchanged.
func TestScenario5_LockedAssignmentHonored(t *testing.T) {
	params := baseParams()
	agents := []model.Agent{
		{ID: "A1", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A2", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A3", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
		{ID: "A4", Regime: model.RegimeMixte, Quotity: model.QuotityFull},
	}
	req := model.GenerateRequest{
		Params: params,
		Agents: agents,
		LockedAssignments: []model.LockedAssignment{
			{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftSoir},
		},
	}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	require.Equal(t, model.StatusOK, result.Status, "explanation: %v", result.Explanation)
	found := false
	for _, a := range result.Assignments {
		if a.AgentID == "A1" && a.Date == "2026-02-09" {
			assert.Equal(t, model.ShiftSoir, a.Shift, "locked assignment must not be overridden")
			found = true
		}
	}
	assert.True(t, found, "locked assignment for A1 on 2026-02-09 must appear in the result")
}

// TestScenario6_Rolling7dCapBitesInfeasible is §8 scenario 6: a single
// agent required to cover every day of a 7-day horizon breaches the
// rolling 7-day minute cap partway through, and with no other agent
// eligible the request is infeasible.
func TestScenario6_Rolling7dCapBitesInfeasible(t *testing.T) {
	params := model.PlanningParams{
		StartDate: "2026-02-09",
		EndDate:   "2026-02-15", // 7 days
		Mode:      model.ModeMatinSoir,
		CoverageRequirements: map[model.ShiftCode]int{
			model.ShiftMatin: 1,
		},
		Shifts: model.Catalogue{
			model.ShiftMatin: {Code: model.ShiftMatin, StartMinute: 420, EndMinute: 810, DurationMinutes: 390},
		},
		RulesetDefaults: func() model.RulesetDefaults {
			d := model.DefaultRulesetDefaults()
			d.MaxMinutesRolling7d = 2000 // 7 * 390 = 2730, comfortably over the cap
			return d
		}(),
		AgentRegimes: model.RegimeSet{
			model.RegimeMixte: {AllowedShifts: []model.ShiftCode{model.ShiftMatin}},
		},
	}
	agents := []model.Agent{{ID: "A1", Regime: model.RegimeMixte, Quotity: model.QuotityFull}}
	req := model.GenerateRequest{Params: params, Agents: agents}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	assert.Equal(t, model.StatusInfeasible, result.Status,
		"the lone agent can't cover every day without breaching the rolling 7-day cap")
}

func TestBuildSolution_InsufficientRosterInjectsReinforcement(t *testing.T) {
	params := baseParams()
	params.AutoAddAgentsIfNeeded = true
	params.MaxExtraAgents = 2
	req := model.GenerateRequest{
		Params: params,
		Agents: []model.Agent{{ID: "A1", Regime: model.RegimeMixte, Quotity: model.QuotityFull}},
	}

	d := New(DefaultConfig())
	result := d.BuildSolution(context.Background(), req, nil)

	if result.Status == model.StatusOK && len(result.AddedAgents) == 0 {
		t.Skip("single agent happened to cover all slots across the short horizon")
	}
	if result.Status == model.StatusOK {
		for _, a := range result.AddedAgents {
			assert.Equal(t, "Renfort", a.FirstName, "synthesized agents must be named Renfort")
		}
	}
}
