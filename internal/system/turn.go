package system

import (
	"context"
	"fmt"

	"github.com/gridclash/arena/internal/core/ecs"
	coresys "github.com/gridclash/arena/internal/core/system"
	"github.com/gridclash/arena/internal/world"
)

// AgentRunner hands control to the driver. RunAgent blocks for the whole
// turn; a returned error is a driver fault and ends the match.
type AgentRunner interface {
	RoundStarted(round int)
	RunAgent(ctx context.Context, a *world.Agent) error
	IsTerminated(a *world.Agent) bool
	RoundEnded(round int)
}

// TurnSystem walks a snapshot of the exec order and gives each agent of the
// active team its turn. Agents destroyed mid-turn are skipped when their id
// comes up. Combat agents end their turn after every coordinator of the team
// has run, so annotations set on them this turn are the ones flushed.
// Phase 1 (Turn).
type TurnSystem struct {
	state  *world.State
	runner AgentRunner
}

func NewTurnSystem(ws *world.State, runner AgentRunner) *TurnSystem {
	return &TurnSystem{state: ws, runner: runner}
}

func (s *TurnSystem) Phase() coresys.Phase { return coresys.PhaseTurn }

func (s *TurnSystem) Update(ctx context.Context, round int) error {
	s.runner.RoundStarted(round)
	active := ActiveTeam(round)
	rules := s.state.Rules()
	reg := s.state.Registry()

	var pending []ecs.EntityID
	for _, id := range reg.ExecOrder() {
		a, ok := reg.Get(id)
		if !ok || a.Team != active {
			continue
		}
		a.BeginTurn(rules)
		if !a.Kind.Spec().RunsCode {
			pending = append(pending, id)
			continue
		}
		if err := s.runner.RunAgent(ctx, a); err != nil {
			return fmt.Errorf("agent %d: %w", id, err)
		}
		if _, ok := reg.Get(id); !ok {
			continue
		}
		s.state.EndTurn(a)
		if s.runner.IsTerminated(a) {
			s.state.DieException(id)
		}
	}
	for _, id := range pending {
		if a, ok := reg.Get(id); ok {
			s.state.EndTurn(a)
		}
	}

	s.runner.RoundEnded(round)
	return nil
}
