// Package regime resolves, for every agent in a request, the set of
// shift codes that agent may be assigned on any given date, by
// intersecting the agent's regime-declared shifts with the mode's
// globally allowed shifts and applying the REGIME_MIXTE 12h-exception
// override.
package regime

import "github.com/garde/garde/pkg/model"

// Resolve builds the agentID -> allowed-shift-set map the constraint
// Context is constructed from. allowSingle12hException mirrors
// PlanningParams.AllowSingle12hException: when set, a REGIME_MIXTE
// agent's declared shifts also include JOUR_12H (subject to the
// per-date exception whitelist enforced later by
// constraint.Context.IsAllowed), regardless of what the regime
// definition itself happens to list.
func Resolve(agents []model.Agent, regimes model.RegimeSet, globalAllowed map[model.ShiftCode]bool, allowSingle12hException bool) map[string]map[model.ShiftCode]bool {
	out := make(map[string]map[model.ShiftCode]bool, len(agents))
	for _, agent := range agents {
		out[agent.ID] = allowedFor(agent, regimes, globalAllowed, allowSingle12hException)
	}
	return out
}

func allowedFor(agent model.Agent, regimes model.RegimeSet, globalAllowed map[model.ShiftCode]bool, allowSingle12hException bool) map[model.ShiftCode]bool {
	def, ok := regimes[agent.Regime]
	allowed := make(map[model.ShiftCode]bool)
	if !ok {
		return allowed
	}

	base := def.AllowedShifts
	if agent.Regime == model.RegimeMixte {
		base = mixteShifts(allowSingle12hException)
	}

	for _, s := range base {
		if globalAllowed[s] {
			allowed[s] = true
		}
	}
	return allowed
}

// mixteShifts returns the declared shift set for a REGIME_MIXTE agent:
// MATIN and SOIR always, plus JOUR_12H when allowSingle12hException is
// set on the request (the per-date 12h-exception whitelist is enforced
// later by constraint.Context.IsAllowed, not here).
func mixteShifts(allowSingle12hException bool) []model.ShiftCode {
	out := []model.ShiftCode{model.ShiftMatin, model.ShiftSoir}
	if allowSingle12hException {
		out = append(out, model.ShiftJour12h)
	}
	return out
}
