// Package compliance builds the diagnostic report a schedule-generation
// call returns alongside its assignments: the ruleset actually in
// effect, any hard violation that slipped past the solver, and fairness
// warnings that don't block the result but are worth a human's
// attention.
package compliance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/calendar"
)

// Report is returned alongside an "ok" SchedulerResult.
type Report struct {
	HardViolations []string               `json:"hard_violations"`
	Warnings       []string               `json:"warnings"`
	RulesetUsed    map[string]interface{} `json:"ruleset_used"`
}

// Build re-derives the ruleset snapshot and re-checks coverage and
// regime compatibility independently of the constraint manager, then
// adds fairness warnings. A non-empty HardViolations on an otherwise
// "ok" result means the solver and this report disagree and is worth
// raising, not silently trusting either one.
func Build(params model.PlanningParams, assignments []model.Assignment, agents []model.Agent) *Report {
	report := &Report{
		HardViolations: []string{},
		Warnings:       []string{},
		RulesetUsed:    rulesetSnapshot(params),
	}

	checkCoverage(params, assignments, report)
	checkRegimeCompatibility(params, assignments, agents, report)
	checkFairness(assignments, agents, report)

	return report
}

func rulesetSnapshot(params model.PlanningParams) map[string]interface{} {
	return map[string]interface{}{
		"daily_rest_min_minutes":                  params.RulesetDefaults.DailyRestMinMinutes,
		"daily_rest_min_minutes_with_agreement":    params.RulesetDefaults.DailyRestMinMinutesWithAgreement,
		"weekly_rest_min_minutes":                  params.RulesetDefaults.WeeklyRestMinMinutes,
		"max_minutes_rolling_7d":                   params.RulesetDefaults.MaxMinutesRolling7d,
		"cycle_mode_enabled":                        params.RulesetDefaults.CycleModeEnabled,
		"cycle_weeks":                               params.RulesetDefaults.CycleWeeks,
		"max_minutes_per_week_excluding_overtime":   params.RulesetDefaults.MaxMinutesPerWeekExcludingOvertime,
		"transmissions_minutes":                     params.AdminParams.TransmissionsMinutes,
		"pause_min_minutes":                         params.AdminParams.PauseMinMinutes,
		"agreement_11h_enabled":                      params.Agreement11hEnabled,
		"legal_profile":                              params.LegalProfile,
		"allow_single_12h_exception":                 params.AllowSingle12hException,
		"max_12h_exceptions_per_agent":                params.Max12hExceptionsPerAgent,
		"allowed_12h_exception_dates":                 params.Allowed12hExceptionDates,
		"forbid_matin_soir_matin":                     params.ForbidMatinSoirMatin,
	}
}

func checkCoverage(params model.PlanningParams, assignments []model.Assignment, report *Report) {
	horizon, err := calendar.Build(params.StartDate, params.EndDate)
	if err != nil {
		return
	}
	for _, day := range horizon.Days {
		for shift, required := range params.CoverageRequirements {
			if required <= 0 {
				continue
			}
			count := 0
			for _, a := range assignments {
				if a.Date == day.Date && a.Shift == shift {
					count++
				}
			}
			if count < required {
				report.HardViolations = append(report.HardViolations,
					sprintCoverage(string(shift), day.Date, count, required))
			}
		}
	}
}

func checkRegimeCompatibility(params model.PlanningParams, assignments []model.Assignment, agents []model.Agent, report *Report) {
	regimeByAgent := make(map[string]model.RegimeCode, len(agents))
	for _, a := range agents {
		regimeByAgent[a.ID] = a.Regime
	}

	for _, a := range assignments {
		regimeCode, ok := regimeByAgent[a.AgentID]
		if !ok {
			continue
		}
		def, ok := params.AgentRegimes[regimeCode]
		if !ok {
			continue
		}

		allowed := def.AllowedShifts
		if regimeCode == model.RegimeMixte {
			allowed = []model.ShiftCode{model.ShiftMatin, model.ShiftSoir}
			if params.AllowSingle12hException {
				allowed = append(allowed, model.ShiftJour12h)
			}
		}

		if !containsShift(allowed, a.Shift) {
			report.HardViolations = append(report.HardViolations, sprintRegimeMismatch(a.AgentID, a.Date, string(a.Shift)))
		}

		if regimeCode == model.RegimeMixte && a.Shift == model.ShiftJour12h &&
			params.AllowSingle12hException && len(params.Allowed12hExceptionDates) > 0 &&
			!containsDate(params.Allowed12hExceptionDates, a.Date) {
			report.HardViolations = append(report.HardViolations, sprintExceptionDateMismatch(a.AgentID, a.Date))
		}
	}
}

// checkFairness flags SOIR and weekend-count spreads of 2 or more, and
// any agent whose weekend blocks land on two consecutive ISO weeks.
func checkFairness(assignments []model.Assignment, agents []model.Agent, report *Report) {
	soirCounts := make(map[string]int, len(agents))
	weekendCounts := make(map[string]int, len(agents))
	weekendBlocks := make(map[string]map[string]bool, len(agents))
	for _, a := range agents {
		soirCounts[a.ID] = 0
		weekendCounts[a.ID] = 0
		weekendBlocks[a.ID] = make(map[string]bool)
	}

	for _, a := range assignments {
		if a.Shift == model.ShiftSoir {
			soirCounts[a.AgentID]++
		}
		d, err := time.Parse("2006-01-02", a.Date)
		if err != nil {
			continue
		}
		wd := (int(d.Weekday()) + 6) % 7 // 0=Monday ... 6=Sunday
		if wd >= 5 {
			weekendCounts[a.AgentID]++
			saturday := d
			if wd == 6 {
				saturday = d.AddDate(0, 0, -1)
			}
			if weekendBlocks[a.AgentID] == nil {
				weekendBlocks[a.AgentID] = make(map[string]bool)
			}
			weekendBlocks[a.AgentID][saturday.Format("2006-01-02")] = true
		}
	}

	if spread(soirCounts) >= 2 {
		report.Warnings = append(report.Warnings, "Équité: écart important de nombre de soirs entre agents")
	}
	if spread(weekendCounts) >= 2 {
		report.Warnings = append(report.Warnings, "Équité: écart important de week-ends entre agents")
	}

	var consecutive []string
	for agentID, blocks := range weekendBlocks {
		dates := make([]time.Time, 0, len(blocks))
		for s := range blocks {
			if t, err := time.Parse("2006-01-02", s); err == nil {
				dates = append(dates, t)
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		for i := 0; i+1 < len(dates); i++ {
			if dates[i+1].Sub(dates[i]) == 7*24*time.Hour {
				consecutive = append(consecutive, agentID)
				break
			}
		}
	}
	if len(consecutive) > 0 {
		sort.Strings(consecutive)
		report.Warnings = append(report.Warnings, sprintConsecutiveWeekends(consecutive))
	}
}

func spread(counts map[string]int) int {
	if len(counts) == 0 {
		return 0
	}
	max, min := -1, -1
	for _, c := range counts {
		if max == -1 || c > max {
			max = c
		}
		if min == -1 || c < min {
			min = c
		}
	}
	return max - min
}

func containsShift(list []model.ShiftCode, shift model.ShiftCode) bool {
	for _, s := range list {
		if s == shift {
			return true
		}
	}
	return false
}

func containsDate(list []string, date string) bool {
	for _, d := range list {
		if d == date {
			return true
		}
	}
	return false
}

func sprintCoverage(shift, date string, count, required int) string {
	return fmt.Sprintf("Couverture insuffisante %s le %s: %d/%d", shift, date, count, required)
}

func sprintRegimeMismatch(agentID, date, shift string) string {
	return fmt.Sprintf("Incompatibilité régime/poste pour %s le %s: %s", agentID, date, shift)
}

func sprintExceptionDateMismatch(agentID, date string) string {
	return fmt.Sprintf("12h non autorisé hors dates d'exception pour %s le %s", agentID, date)
}

func sprintConsecutiveWeekends(agentIDs []string) string {
	return fmt.Sprintf("Rotation week-end: certains agents ont des week-ends consécutifs (%s)", strings.Join(agentIDs, ", "))
}
