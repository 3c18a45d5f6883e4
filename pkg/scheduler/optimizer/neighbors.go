// Package optimizer refines a constructive schedule with simulated
// annealing plus tabu-search local moves, standing in for the CP-SAT
// search an ILP-based implementation would run — the corpus carries no
// constraint-programming library, so neighbourhood search over
// assignment moves fills the same role.
package optimizer

import (
	"math/rand"
	"time"

	"github.com/garde/garde/pkg/model"
	"github.com/garde/garde/pkg/scheduler/constraint"
)

// MoveType identifies a neighbourhood move.
type MoveType int

const (
	MoveSwap     MoveType = iota // swap the shifts of two agents on two dates
	MoveRelocate                 // change one agent's shift on one date
	MoveInsert                   // fill an empty (agent, date) slot
	MoveRemove                   // vacate a filled slot
)

// NeighborhoodGenerator builds candidate neighbour solutions from a
// current one, weighted towards the moves most likely to help: swapping
// and relocating shifts rather than growing or shrinking the schedule.
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	moveWeights map[MoveType]float64
}

// NewNeighborhoodGenerator builds a generator with the default move mix.
func NewNeighborhoodGenerator() *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		moveWeights: map[MoveType]float64{
			MoveSwap:     0.40,
			MoveRelocate: 0.35,
			MoveInsert:   0.15,
			MoveRemove:   0.10,
		},
	}
}

// GenerateNeighbor builds one neighbour of current, or nil if the chosen
// move had nothing to act on.
func (n *NeighborhoodGenerator) GenerateNeighbor(current *Solution, ctx *constraint.Context) *Solution {
	if current == nil || len(current.Assignments) == 0 {
		return nil
	}

	switch n.selectMoveType() {
	case MoveSwap:
		return n.generateSwapMove(current)
	case MoveRelocate:
		return n.generateRelocateMove(current, ctx)
	case MoveInsert:
		return n.generateInsertMove(current, ctx)
	case MoveRemove:
		return n.generateRemoveMove(current)
	default:
		return n.generateSwapMove(current)
	}
}

func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	r := n.rng.Float64()
	cumulative := 0.0
	for _, mt := range []MoveType{MoveSwap, MoveRelocate, MoveInsert, MoveRemove} {
		cumulative += n.moveWeights[mt]
		if r < cumulative {
			return mt
		}
	}
	return MoveSwap
}

// generateSwapMove exchanges the agents of two distinct assignments,
// leaving the (date, shift) pairs themselves untouched.
func (n *NeighborhoodGenerator) generateSwapMove(current *Solution) *Solution {
	if len(current.Assignments) < 2 {
		return nil
	}
	neighbor := current.Clone()
	i := n.rng.Intn(len(neighbor.Assignments))
	j := n.rng.Intn(len(neighbor.Assignments))
	for j == i {
		j = n.rng.Intn(len(neighbor.Assignments))
	}
	neighbor.Assignments[i].AgentID, neighbor.Assignments[j].AgentID =
		neighbor.Assignments[j].AgentID, neighbor.Assignments[i].AgentID
	return neighbor
}

// generateRelocateMove changes the shift of one existing assignment to a
// different shift code drawn from the catalogue.
func (n *NeighborhoodGenerator) generateRelocateMove(current *Solution, ctx *constraint.Context) *Solution {
	if len(current.Assignments) == 0 || len(ctx.Catalogue) == 0 {
		return nil
	}
	codes := make([]model.ShiftCode, 0, len(ctx.Catalogue))
	for code := range ctx.Catalogue {
		codes = append(codes, code)
	}

	neighbor := current.Clone()
	idx := n.rng.Intn(len(neighbor.Assignments))
	newShift := codes[n.rng.Intn(len(codes))]
	if neighbor.Assignments[idx].Shift == newShift {
		return nil
	}
	neighbor.Assignments[idx].Shift = newShift
	return neighbor
}

// generateInsertMove assigns a random agent to a random unfilled
// (date, shift) slot.
func (n *NeighborhoodGenerator) generateInsertMove(current *Solution, ctx *constraint.Context) *Solution {
	if len(ctx.Agents) == 0 || ctx.Horizon.Len() == 0 {
		return nil
	}

	neighbor := current.Clone()
	occupied := make(map[string]bool, len(neighbor.Assignments))
	for _, a := range neighbor.Assignments {
		occupied[a.AgentID+"|"+a.Date] = true
	}

	agent := ctx.Agents[n.rng.Intn(len(ctx.Agents))]
	day := ctx.Horizon.Days[n.rng.Intn(ctx.Horizon.Len())]
	if occupied[agent.ID+"|"+day.Date] {
		return nil
	}
	codes := make([]model.ShiftCode, 0, len(ctx.Catalogue))
	for code := range ctx.Catalogue {
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil
	}
	shift := codes[n.rng.Intn(len(codes))]

	neighbor.Assignments = append(neighbor.Assignments, model.Assignment{
		AgentID: agent.ID,
		Date:    day.Date,
		Shift:   shift,
	})
	return neighbor
}

// generateRemoveMove vacates one randomly chosen assignment.
func (n *NeighborhoodGenerator) generateRemoveMove(current *Solution) *Solution {
	if len(current.Assignments) <= 1 {
		return nil
	}
	neighbor := current.Clone()
	idx := n.rng.Intn(len(neighbor.Assignments))
	neighbor.Assignments = append(neighbor.Assignments[:idx], neighbor.Assignments[idx+1:]...)
	return neighbor
}

// GenerateBatch builds up to count neighbours of current.
func (n *NeighborhoodGenerator) GenerateBatch(current *Solution, ctx *constraint.Context, count int) []*Solution {
	results := make([]*Solution, 0, count)
	for i := 0; i < count; i++ {
		if neighbor := n.GenerateNeighbor(current, ctx); neighbor != nil {
			results = append(results, neighbor)
		}
	}
	return results
}

// SetMoveWeights overrides the default move-selection distribution.
func (n *NeighborhoodGenerator) SetMoveWeights(weights map[MoveType]float64) {
	n.moveWeights = weights
}
