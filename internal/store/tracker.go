// Package store holds the read-only collaborators the scheduling core
// consults ahead of a build_solution call: the hours tracker (baseline
// minutes per agent per year) and the append-only audit sink. Neither
// is touched by the scheduling core itself — both live here because the
// HTTP surface owns the request lifecycle the core doesn't.
package store

import (
	"context"
	"fmt"

	"github.com/garde/garde/internal/database"
	"github.com/garde/garde/pkg/model"
)

// AgentMinutes is one agent's row within a tracker year: minutes
// already logged plus the display name they were logged under.
type AgentMinutes struct {
	AgentID   string
	AgentName string
	Minutes   int
}

// TrackerYear is a snapshot of every agent's logged minutes for one
// tracker year, mirroring the original's year -> agent_id -> {minutes,
// name} structure as a concrete Go type instead of a loose map.
type TrackerYear struct {
	Year int
	Rows []AgentMinutes
}

// Baseline flattens a TrackerYear into the agent_id -> minutes shape
// build_solution actually consumes.
func (t TrackerYear) Baseline() model.BaselineMinutes {
	baseline := model.BaselineMinutes{}
	for _, row := range t.Rows {
		baseline[row.AgentID] = row.Minutes
	}
	return baseline
}

// TrackerStore yields baseline_minutes for a tracker year: minutes
// already worked by each agent before the request's planning horizon
// opens, keyed by agent id. The scheduling core is oblivious to how
// this is persisted.
type TrackerStore struct {
	db *database.DB
}

// NewTrackerStore builds a tracker store over an open connection pool.
func NewTrackerStore(db *database.DB) *TrackerStore {
	return &TrackerStore{db: db}
}

// EnsureSchema creates the tracker table if it doesn't exist yet.
func (s *TrackerStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tracker_minutes (
			tracker_year INTEGER NOT NULL,
			agent_id     TEXT NOT NULL,
			agent_name   TEXT NOT NULL DEFAULT '',
			minutes      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (tracker_year, agent_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure tracker schema: %w", err)
	}
	return nil
}

// LoadYear loads every agent's row for a tracker year. A malformed or
// missing year yields a year with no rows rather than an error, per
// the BaselineMalformed recovery policy of §7.
func (s *TrackerStore) LoadYear(ctx context.Context, trackerYear int) TrackerYear {
	year := TrackerYear{Year: trackerYear}

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, agent_name, minutes FROM tracker_minutes WHERE tracker_year = $1`,
		trackerYear,
	)
	if err != nil {
		return year
	}
	defer rows.Close()

	for rows.Next() {
		var row AgentMinutes
		if err := rows.Scan(&row.AgentID, &row.AgentName, &row.Minutes); err != nil {
			continue
		}
		if row.Minutes < 0 {
			continue
		}
		year.Rows = append(year.Rows, row)
	}
	return year
}

// BaselineMinutes loads every agent's baseline minutes for a tracker
// year, flattened to the map build_solution consumes directly.
func (s *TrackerStore) BaselineMinutes(ctx context.Context, trackerYear int) model.BaselineMinutes {
	return s.LoadYear(ctx, trackerYear).Baseline()
}

// RecordMinutes upserts one agent's worked minutes for a tracker year,
// called by the caller after a generate_ok to roll the tracker forward.
func (s *TrackerStore) RecordMinutes(ctx context.Context, trackerYear int, agentID, agentName string, minutes int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracker_minutes (tracker_year, agent_id, agent_name, minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tracker_year, agent_id)
		DO UPDATE SET minutes = tracker_minutes.minutes + EXCLUDED.minutes, agent_name = EXCLUDED.agent_name
	`, trackerYear, agentID, agentName, minutes)
	if err != nil {
		return fmt.Errorf("record tracker minutes for %s: %w", agentID, err)
	}
	return nil
}
