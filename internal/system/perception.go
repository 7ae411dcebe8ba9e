package system

import (
	"context"

	coresys "github.com/gridclash/arena/internal/core/system"
	"github.com/gridclash/arena/internal/world"
)

// Agents perceive one round for every two simulation rounds: a perceived
// round opens on an odd round and closes on the following even round.

func PerceivedStart(round int) bool { return round%2 == 1 }

func PerceivedEnd(round int) bool { return round%2 == 0 }

// ActiveTeam is the side that moves in round: A on odd rounds, B on even.
func ActiveTeam(round int) world.Team {
	return world.Teams[(round-1)%2]
}

// PerceptionSystem clears per-round agent state when a perceived round opens.
// Phase 0 (RoundBegin).
type PerceptionSystem struct {
	state *world.State
}

func NewPerceptionSystem(ws *world.State) *PerceptionSystem {
	return &PerceptionSystem{state: ws}
}

func (s *PerceptionSystem) Phase() coresys.Phase { return coresys.PhaseRoundBegin }

func (s *PerceptionSystem) Update(_ context.Context, round int) error {
	if PerceivedStart(round) {
		s.state.BeginRound()
	}
	return nil
}
