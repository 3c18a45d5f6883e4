// Package catalogue builds the global allowed-shift set for a planning
// mode and validates coverage requirements against it.
package catalogue

import (
	"fmt"

	"github.com/garde/garde/pkg/model"
)

// GlobalAllowed derives the globally admissible shift set from the
// planning mode, per §4.2.
func GlobalAllowed(mode model.ModeCode, shifts model.Catalogue) (map[model.ShiftCode]bool, error) {
	allowed := make(map[model.ShiftCode]bool)
	switch mode {
	case model.ModeJour12h:
		allowed[model.ShiftJour12h] = true
	case model.ModeMatinSoir:
		allowed[model.ShiftMatin] = true
		allowed[model.ShiftSoir] = true
	case model.ModeMixte:
		for code := range shifts {
			allowed[code] = true
		}
	default:
		return nil, fmt.Errorf("unknown planning mode %q", mode)
	}
	return allowed, nil
}

// CheckCoverageMismatch returns the first shift code demanding coverage
// outside the global allowed set, per §4.2's ModeCoverageMismatch check.
// Returns "" when there is no mismatch.
func CheckCoverageMismatch(mode model.ModeCode, coverage map[model.ShiftCode]int, allowed map[model.ShiftCode]bool) model.ShiftCode {
	for shift, required := range coverage {
		if required > 0 && !allowed[shift] {
			return shift
		}
	}
	return ""
}
