// Package builtin provides the concrete hard and soft constraint
// implementations the scheduling core registers on its Manager.
package builtin

import (
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// BaseConstraint carries the fields common to every constraint
// implementation: identity, category, weight, and an optional
// free-form config bag for constraints that need tunable thresholds.
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	weight   int
	config   map[string]interface{}
}

// NewBaseConstraint builds a BaseConstraint to embed in a concrete
// constraint type.
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, weight int) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		weight:   weight,
		config:   make(map[string]interface{}),
	}
}

func (c *BaseConstraint) Name() string { return c.name }

func (c *BaseConstraint) Type() constraint.Type { return c.typ }

func (c *BaseConstraint) Category() constraint.Category { return c.category }

func (c *BaseConstraint) Weight() int { return c.weight }

func (c *BaseConstraint) SetConfig(config map[string]interface{}) {
	c.config = config
}

func (c *BaseConstraint) GetConfig() map[string]interface{} {
	return c.config
}

func (c *BaseConstraint) GetConfigInt(key string, defaultVal int) int {
	if val, ok := c.config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case int64:
			return int(v)
		}
	}
	return defaultVal
}

func (c *BaseConstraint) GetConfigFloat(key string, defaultVal float64) float64 {
	if val, ok := c.config[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return defaultVal
}

func (c *BaseConstraint) GetConfigString(key string, defaultVal string) string {
	if val, ok := c.config[key].(string); ok {
		return val
	}
	return defaultVal
}

func (c *BaseConstraint) GetConfigBool(key string, defaultVal bool) bool {
	if val, ok := c.config[key].(bool); ok {
		return val
	}
	return defaultVal
}

// CreateViolation builds a ViolationDetail carrying this constraint's
// identity and the severity implied by its category.
func (c *BaseConstraint) CreateViolation(agentID, date, message string, penalty int) constraint.ViolationDetail {
	severity := "warning"
	if c.category == constraint.CategoryHard {
		severity = "error"
	}

	return constraint.ViolationDetail{
		ConstraintType: c.typ,
		ConstraintName: c.name,
		AgentID:        agentID,
		Date:           date,
		Message:        message,
		Severity:       severity,
		Penalty:        penalty,
	}
}
