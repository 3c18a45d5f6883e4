package compliance

import (
	"testing"

	"github.com/garde/garde/pkg/model"
)

func params() model.PlanningParams {
	return model.PlanningParams{
		StartDate: "2026-02-09",
		EndDate:   "2026-02-09",
		CoverageRequirements: map[model.ShiftCode]int{
			model.ShiftMatin: 1,
		},
		RulesetDefaults: model.DefaultRulesetDefaults(),
		AgentRegimes: model.RegimeSet{
			model.RegimeMixte: {AllowedShifts: []model.ShiftCode{model.ShiftMatin, model.ShiftSoir}},
		},
	}
}

func TestBuild_NoViolationsOnExactCoverage(t *testing.T) {
	assignments := []model.Assignment{{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftMatin}}
	agents := []model.Agent{{ID: "A1", Regime: model.RegimeMixte}}

	r := Build(params(), assignments, agents)
	if len(r.HardViolations) != 0 {
		t.Errorf("expected no hard violations, got %v", r.HardViolations)
	}
}

func TestBuild_FlagsUnderstaffedCoverage(t *testing.T) {
	r := Build(params(), nil, []model.Agent{{ID: "A1", Regime: model.RegimeMixte}})
	if len(r.HardViolations) == 0 {
		t.Fatal("expected a coverage violation when no assignments cover the required shift")
	}
}

func TestBuild_FlagsRegimeMismatch(t *testing.T) {
	assignments := []model.Assignment{{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftJour12h}}
	agents := []model.Agent{{ID: "A1", Regime: model.RegimeMixte}}

	r := Build(params(), assignments, agents)
	found := false
	for _, v := range r.HardViolations {
		if v != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a regime/shift mismatch violation")
	}
}

func TestBuild_FlagsSoirFairnessWarning(t *testing.T) {
	p := params()
	p.EndDate = "2026-02-12"
	assignments := []model.Assignment{
		{AgentID: "A1", Date: "2026-02-09", Shift: model.ShiftSoir},
		{AgentID: "A1", Date: "2026-02-10", Shift: model.ShiftSoir},
		{AgentID: "A1", Date: "2026-02-11", Shift: model.ShiftSoir},
		{AgentID: "A2", Date: "2026-02-12", Shift: model.ShiftSoir},
	}
	agents := []model.Agent{{ID: "A1", Regime: model.RegimeMixte}, {ID: "A2", Regime: model.RegimeMixte}}

	r := Build(p, assignments, agents)
	if len(r.Warnings) == 0 {
		t.Fatal("expected a fairness warning on a 3-vs-1 SOIR split")
	}
}
