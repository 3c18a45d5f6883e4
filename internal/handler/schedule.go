// Package handler implements the scheduling core's HTTP surface: one
// route to generate a schedule, one to report health.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/garde/garde/internal/store"
	"github.com/garde/garde/pkg/compliance"
	"github.com/garde/garde/pkg/logger"
	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/driver"
)

// generateScheduleResponse wraps the core result with the diagnostic
// report a human reviews alongside it. The core itself never produces
// or depends on a compliance.Report; it's derived here, read-only,
// from whatever the core returned.
type generateScheduleResponse struct {
	model.SchedulerResult
	Compliance *compliance.Report `json:"compliance"`
}

// GenerateScheduleRequest is the wire shape of a POST /v1/schedule/generate
// body: the planning request plus the tracker year to resolve baseline
// minutes from, when the request opts into the tracker.
type GenerateScheduleRequest struct {
	Params            model.PlanningParams     `json:"params" validate:"required"`
	Agents            []model.Agent            `json:"agents" validate:"required,min=1,dive"`
	LockedAssignments []model.LockedAssignment `json:"locked_assignments,omitempty" validate:"dive"`
}

// ScheduleHandler serves the schedule-generation endpoint.
type ScheduleHandler struct {
	driver   *driver.Driver
	tracker  *store.TrackerStore
	audit    *store.AuditSink
	validate *validator.Validate
	logger   *logger.SchedulerLogger
}

// NewScheduleHandler builds a schedule handler. tracker and audit may be
// nil, in which case baseline minutes default to empty and no audit
// event is recorded.
func NewScheduleHandler(d *driver.Driver, tracker *store.TrackerStore, audit *store.AuditSink) *ScheduleHandler {
	return &ScheduleHandler{
		driver:   d,
		tracker:  tracker,
		audit:    audit,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.NewSchedulerLogger(),
	}
}

// Generate decodes, validates and runs one build_solution call.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "méthode non autorisée")
		return
	}

	var req GenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MALFORMED_BODY", "corps de requête invalide")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	baseline := h.resolveBaseline(r.Context(), req.Params)

	genReq := model.GenerateRequest{
		Params:            req.Params,
		Agents:            req.Agents,
		LockedAssignments: req.LockedAssignments,
	}

	result := h.driver.BuildSolution(r.Context(), genReq, baseline)

	h.recordAudit(r.Context(), result)

	resp := generateScheduleResponse{SchedulerResult: result}
	if result.Status == model.StatusInfeasible {
		// Mirrors the original's infeasible path: wrap the explanation as
		// the sole violation rather than re-running the real checks against
		// a schedule that was never produced.
		explanation := ""
		if result.Explanation != nil {
			explanation = *result.Explanation
		}
		resp.Compliance = &compliance.Report{
			HardViolations: []string{explanation},
			Warnings:       []string{},
			RulesetUsed:    map[string]interface{}{},
		}
	} else {
		resp.Compliance = compliance.Build(req.Params, result.Assignments, req.Agents)
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == model.StatusInfeasible {
		w.WriteHeader(http.StatusUnprocessableEntity)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *ScheduleHandler) resolveBaseline(ctx context.Context, params model.PlanningParams) model.BaselineMinutes {
	if !params.UseTracker || h.tracker == nil {
		return nil
	}
	return h.tracker.BaselineMinutes(ctx, params.TrackerYear)
}

func (h *ScheduleHandler) recordAudit(ctx context.Context, result model.SchedulerResult) {
	if h.audit == nil {
		return
	}
	action := "generate_ok"
	if result.Status == model.StatusInfeasible {
		action = "generate_infeasible"
	}
	_ = h.audit.Record(ctx, action, result)
}

// Health reports process liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "garde"})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
