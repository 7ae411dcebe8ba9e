package system

import (
	"context"
	"math"

	coresys "github.com/gridclash/arena/internal/core/system"
	"github.com/gridclash/arena/internal/world"
)

// ArbiterSystem decides the match at perceived round ends. Annihilation is
// checked every perceived round; the tie-break cascade runs once the round
// limit is reached, or at once if both teams are wiped out together.
// Phase 3 (Arbitrate).
type ArbiterSystem struct {
	state *world.State
}

func NewArbiterSystem(ws *world.State) *ArbiterSystem {
	return &ArbiterSystem{state: ws}
}

func (s *ArbiterSystem) Phase() coresys.Phase { return coresys.PhaseArbitrate }

func (s *ArbiterSystem) Update(_ context.Context, round int) error {
	if !PerceivedEnd(round) || s.state.Outcome().Final() {
		return nil
	}
	reg := s.state.Registry()
	a := reg.Count(world.TeamA, world.KindCombat)
	b := reg.Count(world.TeamB, world.KindCombat)
	switch {
	case a == 0 && b == 0:
		return s.tiebreak()
	case a == 0:
		return s.state.SetWinner(world.TeamB, world.Annihilation)
	case b == 0:
		return s.state.SetWinner(world.TeamA, world.Annihilation)
	}
	if round >= s.state.RoundLimit() {
		return s.tiebreak()
	}
	return nil
}

// tiebreak runs net worth, then harvested, then the second mover. Each rule
// either names a winner or defers.
func (s *ArbiterSystem) tiebreak() error {
	if t, ok := s.byNetWorth(); ok {
		return s.state.SetWinner(t, world.MoreNetWorth)
	}
	if t, ok := s.byHarvested(); ok {
		return s.state.SetWinner(t, world.MoreHarvested)
	}
	return s.state.SetWinner(ActiveTeam(2), world.DefaultTiebreak)
}

func (s *ArbiterSystem) byNetWorth() (world.Team, bool) {
	a := s.state.NetWorth(world.TeamA)
	b := s.state.NetWorth(world.TeamB)
	if math.Abs(a-b) < s.state.Rules().NetWorthEpsilon {
		return world.TeamNone, false
	}
	if a > b {
		return world.TeamA, true
	}
	return world.TeamB, true
}

func (s *ArbiterSystem) byHarvested() (world.Team, bool) {
	l := s.state.Ledger()
	a, b := l.Harvested(world.TeamA), l.Harvested(world.TeamB)
	switch {
	case a > b:
		return world.TeamA, true
	case b > a:
		return world.TeamB, true
	}
	return world.TeamNone, false
}
