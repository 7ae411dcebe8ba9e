package system

import (
	"context"

	coresys "github.com/gridclash/arena/internal/core/system"
	"github.com/gridclash/arena/internal/world"
)

// LedgerSystem captures each team's round delta for the round record, then
// closes the ledger round. Phase 2 (RoundEnd), registered last.
type LedgerSystem struct {
	state *world.State
	last  [2]world.TeamStats
}

func NewLedgerSystem(ws *world.State) *LedgerSystem {
	return &LedgerSystem{state: ws}
}

func (s *LedgerSystem) Phase() coresys.Phase { return coresys.PhaseRoundEnd }

func (s *LedgerSystem) Update(_ context.Context, _ int) error {
	for _, t := range world.Teams {
		s.last[t] = s.state.Ledger().RoundDelta(t)
	}
	return s.state.Ledger().EndRound()
}

// Last returns the deltas captured by the most recent round.
func (s *LedgerSystem) Last() [2]world.TeamStats { return s.last }
