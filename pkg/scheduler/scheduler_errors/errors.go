// Package scheduler_errors carries the five error kinds a schedule
// generation call can fail with, each with the HTTP status and French
// explanation string the caller sees.
package scheduler_errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one error kind.
type Code string

const (
	CodeInvalidHorizon          Code = "INVALID_HORIZON"
	CodeModeCoverageMismatch    Code = "MODE_COVERAGE_MISMATCH"
	CodeInfeasible              Code = "INFEASIBLE"
	CodeBaselineMalformed       Code = "BASELINE_MALFORMED"
	CodePreferenceOutsideHorizon Code = "PREFERENCE_OUTSIDE_HORIZON"
)

// AppError is the error type every scheduling-core entry point returns.
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New builds an AppError from a code and message, with the status implied
// by the code.
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidHorizon, CodeBaselineMalformed, CodePreferenceOutsideHorizon:
		return http.StatusBadRequest
	case CodeModeCoverageMismatch, CodeInfeasible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns the HTTP status implied by err, defaulting to 500
// for a non-AppError.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// InvalidHorizon reports a reversed or otherwise unparsable planning
// horizon.
func InvalidHorizon() *AppError {
	return New(CodeInvalidHorizon, "Période invalide")
}

// ModeCoverageMismatch reports a coverage requirement declared for a
// shift the request's mode doesn't globally allow.
func ModeCoverageMismatch(shift string) *AppError {
	return New(CodeModeCoverageMismatch, fmt.Sprintf("exigence de couverture pour %s incompatible avec le mode déclaré", shift))
}

// Infeasible reports that no feasible schedule was found, even after
// exhausting the reinforcement-agent budget.
func Infeasible(explanation string) *AppError {
	err := New(CodeInfeasible, "Aucune solution faisable sous contraintes")
	if explanation != "" {
		err.Details = explanation
	}
	return err
}

// BaselineMalformed reports a baseline-minutes map with a negative or
// otherwise invalid value.
func BaselineMalformed(agentID string) *AppError {
	return New(CodeBaselineMalformed, fmt.Sprintf("solde horaire de référence invalide pour %s", agentID)).
		WithField("agent_id", agentID)
}

// PreferenceOutsideHorizon reports an agent preference dated outside the
// request's planning horizon.
func PreferenceOutsideHorizon(agentID, date string) *AppError {
	return New(CodePreferenceOutsideHorizon, fmt.Sprintf("préférence de %s datée hors période: %s", agentID, date)).
		WithField("agent_id", agentID).
		WithField("date", date)
}
