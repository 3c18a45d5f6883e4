// Package constraint defines the constraint interface and the context the
// hard and soft constraints of the scheduling core evaluate against.
package constraint

import (
	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/calendar"
)

// Type identifies a constraint implementation.
type Type string

const (
	TypeOneShiftPerDay      Type = "one_shift_per_day"
	TypeAvailability        Type = "availability"
	TypeRegimeAllowed       Type = "regime_allowed"
	TypeLockedAssignment    Type = "locked_assignment"
	TypeCoverage            Type = "coverage"
	TypeForbiddenTransition Type = "forbidden_transition"
	TypeDailyRest           Type = "daily_rest"
	TypeConsecutive12h      Type = "max_consecutive_12h"
	TypeException12hCap     Type = "max_12h_exceptions"
	TypePatternBan          Type = "pattern_ban_matin_soir_matin"
	TypeRolling7d           Type = "max_minutes_rolling_7d"
	TypeWeeklyRestBlock     Type = "weekly_rest_block"
	TypeCycleWeekCap        Type = "cycle_week_cap"

	TypePreferenceMiss       Type = "preference_miss"
	TypeSoirFairness         Type = "soir_fairness"
	TypeWeekendFairness      Type = "weekend_block_fairness"
	TypeConsecutiveWeekends  Type = "consecutive_weekend_blocks"
	TypeReinforcementUsage   Type = "reinforcement_usage"
	TypeShiftSwitch          Type = "shift_switch"
	TypeIsolatedWorkday      Type = "isolated_workday"
	TypePeriodTargetDev      Type = "period_target_deviation"
	TypeAnnualTargetDev      Type = "annual_target_deviation"
)

// Category distinguishes constraints whose violation makes a schedule
// infeasible (hard) from those that only add to the minimised objective
// (soft).
type Category string

const (
	CategoryHard Category = "hard"
	CategorySoft Category = "soft"
)

// Constraint evaluates either a whole candidate schedule or a single
// prospective assignment.
type Constraint interface {
	Name() string
	Type() Type
	Category() Category
	Weight() int

	// Evaluate scores the full set of assignments currently held by ctx.
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateAssignment checks whether adding a single assignment to ctx
	// would violate this constraint, without re-scanning the whole
	// schedule. Used by the constructive solver and local-search moves.
	EvaluateAssignment(ctx *Context, a model.Assignment) (valid bool, penalty int)
}

// ViolationDetail describes one constraint violation.
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	AgentID        string `json:"agent_id,omitempty"`
	Date           string `json:"date,omitempty"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
	Penalty        int    `json:"penalty"`
}

// Context is the working state constraints evaluate against: the request,
// the resolved calendar and catalogue, per-agent allowed-shift sets, and
// the candidate assignments built so far, with indexes for fast lookup.
type Context struct {
	Params    model.PlanningParams
	Horizon   calendar.Horizon
	Catalogue model.Catalogue

	GlobalAllowed  map[model.ShiftCode]bool
	AllowedShifts  map[string]map[model.ShiftCode]bool // agentID -> allowed shift set
	Agents         []model.Agent
	AgentByID      map[string]model.Agent
	Locked         map[lockedKey]model.ShiftCode

	Assignments       []model.Assignment
	byAgentDate       map[string]map[string]model.ShiftCode // agentID -> date -> shift
	byDateShiftCount  map[string]map[model.ShiftCode]int    // date -> shift -> count
}

type lockedKey struct {
	AgentID string
	Date    string
}

// NewContext builds an empty Context wired to the given request-derived
// calendar, catalogue and agent allowed-shift sets.
func NewContext(params model.PlanningParams, horizon calendar.Horizon, catalogue model.Catalogue, globalAllowed map[model.ShiftCode]bool, agents []model.Agent, allowedShifts map[string]map[model.ShiftCode]bool, locked []model.LockedAssignment) *Context {
	agentByID := make(map[string]model.Agent, len(agents))
	for _, a := range agents {
		agentByID[a.ID] = a
	}
	lockedMap := make(map[lockedKey]model.ShiftCode, len(locked))
	for _, l := range locked {
		lockedMap[lockedKey{AgentID: l.AgentID, Date: l.Date}] = l.Shift
	}
	return &Context{
		Params:           params,
		Horizon:          horizon,
		Catalogue:        catalogue,
		GlobalAllowed:    globalAllowed,
		AllowedShifts:    allowedShifts,
		Agents:           agents,
		AgentByID:        agentByID,
		Locked:           lockedMap,
		byAgentDate:      make(map[string]map[string]model.ShiftCode),
		byDateShiftCount: make(map[string]map[model.ShiftCode]int),
	}
}

// Clone returns a Context sharing this one's static request data (params,
// horizon, catalogue, allowed-shift sets, locked assignments) but with its
// own independent assignment indexes, safe to mutate concurrently with the
// original.
func (c *Context) Clone() *Context {
	clone := NewContext(c.Params, c.Horizon, c.Catalogue, c.GlobalAllowed, c.Agents, c.AllowedShifts, nil)
	clone.Locked = c.Locked
	clone.SetAssignments(append([]model.Assignment(nil), c.Assignments...))
	return clone
}

// SetAssignments replaces the candidate schedule and rebuilds indexes.
func (c *Context) SetAssignments(assignments []model.Assignment) {
	c.Assignments = assignments
	c.rebuildIndexes()
}

// AddAssignment appends one assignment and updates the indexes
// incrementally.
func (c *Context) AddAssignment(a model.Assignment) {
	c.Assignments = append(c.Assignments, a)
	if c.byAgentDate[a.AgentID] == nil {
		c.byAgentDate[a.AgentID] = make(map[string]model.ShiftCode)
	}
	c.byAgentDate[a.AgentID][a.Date] = a.Shift
	if c.byDateShiftCount[a.Date] == nil {
		c.byDateShiftCount[a.Date] = make(map[model.ShiftCode]int)
	}
	c.byDateShiftCount[a.Date][a.Shift]++
}

func (c *Context) rebuildIndexes() {
	c.byAgentDate = make(map[string]map[string]model.ShiftCode)
	c.byDateShiftCount = make(map[string]map[model.ShiftCode]int)
	for _, a := range c.Assignments {
		if c.byAgentDate[a.AgentID] == nil {
			c.byAgentDate[a.AgentID] = make(map[string]model.ShiftCode)
		}
		c.byAgentDate[a.AgentID][a.Date] = a.Shift
		if c.byDateShiftCount[a.Date] == nil {
			c.byDateShiftCount[a.Date] = make(map[model.ShiftCode]int)
		}
		c.byDateShiftCount[a.Date][a.Shift]++
	}
}

// ShiftOn returns the shift assigned to an agent on a date, and whether one
// exists.
func (c *Context) ShiftOn(agentID, date string) (model.ShiftCode, bool) {
	m, ok := c.byAgentDate[agentID]
	if !ok {
		return "", false
	}
	s, ok := m[date]
	return s, ok
}

// CountOnDateShift returns how many agents are assigned a given shift on a
// given date.
func (c *Context) CountOnDateShift(date string, shift model.ShiftCode) int {
	m, ok := c.byDateShiftCount[date]
	if !ok {
		return 0
	}
	return m[shift]
}

// IsAllowed reports whether an agent may work a shift at all (regime ∩
// global-allowed, plus per-date exception whitelisting).
func (c *Context) IsAllowed(agentID string, shift model.ShiftCode, date string) bool {
	allowed, ok := c.AllowedShifts[agentID]
	if !ok || !allowed[shift] {
		return false
	}
	if shift == model.ShiftJour12h {
		agent := c.AgentByID[agentID]
		if agent.Regime == model.RegimeMixte && c.Params.AllowSingle12hException && len(c.Params.Allowed12hExceptionDates) > 0 {
			for _, d := range c.Params.Allowed12hExceptionDates {
				if d == date {
					return true
				}
			}
			return false
		}
	}
	return true
}

// LockedShift returns the locked shift for (agentID, date), if any.
func (c *Context) LockedShift(agentID, date string) (model.ShiftCode, bool) {
	s, ok := c.Locked[lockedKey{AgentID: agentID, Date: date}]
	return s, ok
}

// Duration returns the duration in minutes of a catalogue shift.
func (c *Context) Duration(shift model.ShiftCode) int {
	return c.Catalogue[shift].DurationMinutes
}

// Result aggregates an Evaluate() call over every registered constraint.
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
	Score          float64           `json:"score"`
}

// CalculateScore derives a 0-100 score from the total penalty relative to
// a caller-supplied ceiling.
func (r *Result) CalculateScore(maxPenalty int) {
	if maxPenalty == 0 {
		r.Score = 100.0
		return
	}
	r.Score = 100.0 * float64(maxPenalty-r.TotalPenalty) / float64(maxPenalty)
	if r.Score < 0 {
		r.Score = 0
	}
}
