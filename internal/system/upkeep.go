package system

import (
	"context"

	coresys "github.com/gridclash/arena/internal/core/system"
	"github.com/gridclash/arena/internal/world"
)

// IncomeSystem credits the passive trickle to both teams every round.
// Phase 2 (RoundEnd).
type IncomeSystem struct {
	state *world.State
}

func NewIncomeSystem(ws *world.State) *IncomeSystem {
	return &IncomeSystem{state: ws}
}

func (s *IncomeSystem) Phase() coresys.Phase { return coresys.PhaseRoundEnd }

func (s *IncomeSystem) Update(_ context.Context, _ int) error {
	income := s.state.Rules().PassiveIncome
	for _, t := range world.Teams {
		if err := s.state.Ledger().Credit(t, income); err != nil {
			return err
		}
	}
	return nil
}

// DecaySystem applies health decay and retires agents below their kind's
// minimum health. Phase 2 (RoundEnd), after income.
type DecaySystem struct {
	state *world.State
}

func NewDecaySystem(ws *world.State) *DecaySystem {
	return &DecaySystem{state: ws}
}

func (s *DecaySystem) Phase() coresys.Phase { return coresys.PhaseRoundEnd }

func (s *DecaySystem) Update(_ context.Context, _ int) error {
	s.state.Decay()
	return nil
}

// DepositSystem grows every non-empty resource cell on a fixed interval.
// Phase 2 (RoundEnd), after decay.
type DepositSystem struct {
	state *world.State
}

func NewDepositSystem(ws *world.State) *DepositSystem {
	return &DepositSystem{state: ws}
}

func (s *DepositSystem) Phase() coresys.Phase { return coresys.PhaseRoundEnd }

func (s *DepositSystem) Update(_ context.Context, round int) error {
	rules := s.state.Rules()
	if round%rules.DepositInterval == 0 {
		s.state.GrowDeposits(rules.DepositGrowth)
	}
	return nil
}
