package model

// PlanningScope restricts the planning horizon to a single-day-only scope
// and names the service window; carried for fidelity with the external
// contract but not consumed by any hard constraint in this module.
type PlanningScope struct {
	DayOnly       bool              `json:"day_only"`
	ServiceWindow map[string]string `json:"service_window,omitempty"`
}

// Assumptions records whether transmission time and breaks are already
// folded into a shift's declared duration.
type Assumptions struct {
	TransmissionsIncluded bool `json:"transmissions_included"`
	PauseIncludedInShift  bool `json:"pause_included_in_shift"`
}

// AdminParams carries administrative minute budgets surfaced in compliance
// reports; informational only, no hard constraint reads them.
type AdminParams struct {
	TransmissionsMinutes int `json:"transmissions_minutes"`
	PauseMinMinutes      int `json:"pause_min_minutes"`
}

// RulesetDefaults holds the labor-law minute thresholds the hard
// constraints of §4.4 are built from.
type RulesetDefaults struct {
	DailyRestMinMinutes                int  `json:"daily_rest_min_minutes"`
	DailyRestMinMinutesWithAgreement    int  `json:"daily_rest_min_minutes_with_agreement"`
	WeeklyRestMinMinutes                int  `json:"weekly_rest_min_minutes"`
	MaxMinutesRolling7d                 int  `json:"max_minutes_rolling_7d"`
	CycleModeEnabled                    bool `json:"cycle_mode_enabled"`
	CycleWeeks                          int  `json:"cycle_weeks"`
	MaxMinutesPerWeekExcludingOvertime  int  `json:"max_minutes_per_week_excluding_overtime"`
}

// DefaultRulesetDefaults returns the labor-law defaults carried over from
// the reference implementation.
func DefaultRulesetDefaults() RulesetDefaults {
	return RulesetDefaults{
		DailyRestMinMinutes:                720,
		DailyRestMinMinutesWithAgreement:   660,
		WeeklyRestMinMinutes:               2160,
		MaxMinutesRolling7d:                2880,
		CycleModeEnabled:                   false,
		CycleWeeks:                         4,
		MaxMinutesPerWeekExcludingOvertime: 2640,
	}
}

// PlanningParams is the immutable parameter block of a scheduling request.
type PlanningParams struct {
	ServiceUnit          string            `json:"service_unit"`
	StartDate            string            `json:"start_date"`
	EndDate              string            `json:"end_date"`
	Mode                 ModeCode          `json:"mode"`
	CoverageRequirements map[ShiftCode]int `json:"coverage_requirements"`
	PlanningScope        PlanningScope     `json:"planning_scope"`
	Shifts               Catalogue         `json:"shifts"`
	Assumptions          Assumptions       `json:"assumptions"`
	AdminParams          AdminParams       `json:"admin_params"`
	RulesetDefaults      RulesetDefaults   `json:"ruleset_defaults"`
	AgentRegimes         RegimeSet         `json:"agent_regimes"`

	HardForbiddenTransitions []TransitionRule `json:"hard_forbidden_transitions,omitempty"`
	LegalProfile             LegalProfile     `json:"legal_profile"`

	Agreement11hEnabled       bool     `json:"agreement_11h_enabled"`
	AllowSingle12hException   bool     `json:"allow_single_12h_exception"`
	Max12hExceptionsPerAgent  int      `json:"max_12h_exceptions_per_agent"`
	Allowed12hExceptionDates  []string `json:"allowed_12h_exception_dates,omitempty"`

	ForbidMatinSoirMatin bool `json:"forbid_matin_soir_matin"`

	UseTracker  bool `json:"use_tracker"`
	TrackerYear int  `json:"tracker_year"`

	AutoAddAgentsIfNeeded   bool `json:"auto_add_agents_if_needed"`
	MaxExtraAgents          int  `json:"max_extra_agents"`
	RecordTrackerOnGenerate bool `json:"record_tracker_on_generate"`
}

// EffectiveDailyRestMinutes returns the minimum daily rest floor in effect
// for this request, per §4.4: min(default, with-agreement) when the
// agreement flag is set, else the default.
func (p PlanningParams) EffectiveDailyRestMinutes() int {
	if p.Agreement11hEnabled {
		d := p.RulesetDefaults.DailyRestMinMinutes
		w := p.RulesetDefaults.DailyRestMinMinutesWithAgreement
		if w < d {
			return w
		}
		return d
	}
	return p.RulesetDefaults.DailyRestMinMinutes
}
