package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/event"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

func newState(t *testing.T, rounds int, build func(*world.MapBuilder)) *world.State {
	t.Helper()
	mb := world.NewMapBuilder("sys", 20, 20, grid.Loc(0, 0), 1).SetRounds(rounds)
	mb.SetSymmetricSpawn(grid.Loc(2, 2))
	if build != nil {
		build(mb)
	}
	s, err := world.NewState(mb.Descriptor(), world.DefaultRules(), event.NewBus())
	require.NoError(t, err)
	require.NoError(t, s.Populate())
	return s
}

func TestCadence(t *testing.T) {
	assert.Equal(t, world.TeamA, ActiveTeam(1))
	assert.Equal(t, world.TeamB, ActiveTeam(2))
	assert.Equal(t, world.TeamA, ActiveTeam(3))
	assert.True(t, PerceivedStart(1))
	assert.False(t, PerceivedStart(2))
	assert.True(t, PerceivedEnd(2))
	assert.False(t, PerceivedEnd(3))
}

func TestTiebreakCascade(t *testing.T) {
	symmetric := func(mb *world.MapBuilder) { mb.AddSymmetricAgent(grid.Loc(4, 4), 3) }

	cases := []struct {
		name   string
		setup  func(*world.State)
		winner world.Team
		factor world.DominationFactor
	}{
		{
			name:   "greater net worth",
			setup:  func(s *world.State) { require.NoError(t, s.Ledger().Credit(world.TeamA, 2)) },
			winner: world.TeamA,
			factor: world.MoreNetWorth,
		},
		{
			name: "equal net worth, more harvested",
			setup: func(s *world.State) {
				require.NoError(t, s.Ledger().Harvest(world.TeamA, 3))
				require.NoError(t, s.Ledger().Credit(world.TeamB, 3))
			},
			winner: world.TeamA,
			factor: world.MoreHarvested,
		},
		{
			name:   "all equal",
			setup:  func(*world.State) {},
			winner: world.TeamB,
			factor: world.DefaultTiebreak,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newState(t, 4, symmetric)
			c.setup(s)
			arb := NewArbiterSystem(s)

			require.NoError(t, arb.Update(context.Background(), 2))
			assert.False(t, s.Outcome().Final(), "limit not reached")

			require.NoError(t, arb.Update(context.Background(), 4))
			out := s.Outcome()
			assert.Equal(t, c.winner, out.Winner)
			assert.Equal(t, c.factor, out.Factor)

			// A decided match is never re-arbitrated.
			require.NoError(t, arb.Update(context.Background(), 6))
			assert.Equal(t, out, s.Outcome())
		})
	}
}

func TestNetWorthEpsilon(t *testing.T) {
	s := newState(t, 2, func(mb *world.MapBuilder) {
		mb.AddAgent(world.TeamA, grid.Loc(4, 4), 3)
		mb.AddAgent(world.TeamB, grid.Loc(15, 15), 3+1e-9)
	})
	require.NoError(t, NewArbiterSystem(s).Update(context.Background(), 2))
	assert.Equal(t, world.DefaultTiebreak, s.Outcome().Factor)
}

func TestAnnihilationPrecedence(t *testing.T) {
	s := newState(t, 2000, func(mb *world.MapBuilder) {
		mb.AddAgent(world.TeamA, grid.Loc(4, 4), 1)
	})
	arb := NewArbiterSystem(s)

	require.NoError(t, arb.Update(context.Background(), 3))
	assert.False(t, s.Outcome().Final(), "odd rounds never arbitrate")

	require.NoError(t, arb.Update(context.Background(), 4))
	assert.Equal(t, world.TeamA, s.Outcome().Winner)
	assert.Equal(t, world.Annihilation, s.Outcome().Factor)
}

func TestMutualAnnihilationRunsCascade(t *testing.T) {
	s := newState(t, 2000, nil)
	require.NoError(t, s.Ledger().Harvest(world.TeamB, 1))
	require.NoError(t, NewArbiterSystem(s).Update(context.Background(), 2))
	assert.Equal(t, world.TeamB, s.Outcome().Winner)
	assert.Equal(t, world.MoreNetWorth, s.Outcome().Factor)
}

type fakeRunner struct {
	state     *world.State
	ran       []ecs.EntityID
	started   []int
	ended     []int
	terminate map[ecs.EntityID]bool
	onRun     func(a *world.Agent) error
}

func (r *fakeRunner) RoundStarted(round int) { r.started = append(r.started, round) }
func (r *fakeRunner) RoundEnded(round int)   { r.ended = append(r.ended, round) }

func (r *fakeRunner) RunAgent(_ context.Context, a *world.Agent) error {
	r.ran = append(r.ran, a.ID)
	if r.onRun != nil {
		return r.onRun(a)
	}
	return nil
}

func (r *fakeRunner) IsTerminated(a *world.Agent) bool { return r.terminate[a.ID] }

func TestTurnSystemRunsActiveCoordinator(t *testing.T) {
	s := newState(t, 2000, func(mb *world.MapBuilder) {
		mb.AddSymmetricAgent(grid.Loc(4, 4), 3)
	})
	a, _ := s.Registry().Get(0)
	a.Cooldown = 10
	runner := &fakeRunner{state: s}
	turns := NewTurnSystem(s, runner)

	require.NoError(t, turns.Update(context.Background(), 1))
	assert.Equal(t, []ecs.EntityID{s.Coordinator(world.TeamA)}, runner.ran)
	assert.Equal(t, []int{1}, runner.started)
	assert.Equal(t, []int{1}, runner.ended)
	assert.Equal(t, 0, a.Cooldown, "team A agent took a turn")

	b, _ := s.Registry().Get(1)
	b.Cooldown = 10
	require.NoError(t, turns.Update(context.Background(), 3))
	assert.Equal(t, 10, b.Cooldown, "team B untouched on odd rounds")
}

func TestTurnSystemFaultAndTermination(t *testing.T) {
	s := newState(t, 2000, nil)
	boom := errors.New("boom")
	runner := &fakeRunner{state: s, onRun: func(*world.Agent) error { return boom }}
	err := NewTurnSystem(s, runner).Update(context.Background(), 2)
	require.ErrorIs(t, err, boom)

	runner = &fakeRunner{state: s, terminate: map[ecs.EntityID]bool{s.Coordinator(world.TeamA): true}}
	require.NoError(t, NewTurnSystem(s, runner).Update(context.Background(), 1))
	_, ok := s.Registry().Get(s.Coordinator(world.TeamA))
	assert.False(t, ok, "terminated coordinator is removed")

	var died bool
	for _, r := range s.Bus().Drain() {
		if ap, ok := r.Data.(event.ActionPerformed); ok && ap.Action == event.ActionDieException {
			died = true
		}
	}
	assert.True(t, died)
}

func TestTurnSystemSkipsDestroyedMidTurn(t *testing.T) {
	s := newState(t, 2000, func(mb *world.MapBuilder) {
		mb.AddAgent(world.TeamA, grid.Loc(4, 4), 3)
	})
	runner := &fakeRunner{state: s}
	runner.onRun = func(a *world.Agent) error {
		s.Resign(a.Team)
		return nil
	}
	require.NoError(t, NewTurnSystem(s, runner).Update(context.Background(), 1))
	assert.Len(t, runner.ran, 1)
	assert.Equal(t, 0, s.Registry().Count(world.TeamA, world.KindCombat))
}

func TestTurnSystemFlushesAnnotationsAfterCoordinator(t *testing.T) {
	s := newState(t, 2000, func(mb *world.MapBuilder) {
		mb.AddAgent(world.TeamA, grid.Loc(4, 4), 3)
	})
	veteran, ok := s.Registry().Get(0)
	require.True(t, ok)
	veteran.RoundsAlive = 7
	runner := &fakeRunner{state: s, onRun: func(*world.Agent) error {
		veteran.SetDebug("hold", s.Rules().IndicatorMaxLength)
		return nil
	}}
	require.NoError(t, NewTurnSystem(s, runner).Update(context.Background(), 1))

	var flushed []string
	for _, r := range s.Bus().Drain() {
		if ds, ok := r.Data.(event.DebugString); ok && ds.ID == veteran.ID {
			flushed = append(flushed, ds.Value)
		}
	}
	assert.Equal(t, []string{"hold"}, flushed)
}

func TestUpkeep(t *testing.T) {
	s := newState(t, 2000, func(mb *world.MapBuilder) {
		mb.SetSymmetricResource(grid.Loc(6, 6), 2)
		mb.SetResource(grid.Loc(8, 8), 0)
	})
	ctx := context.Background()
	income := NewIncomeSystem(s)
	deposits := NewDepositSystem(s)
	ledger := NewLedgerSystem(s)

	require.NoError(t, income.Update(ctx, 19))
	require.NoError(t, deposits.Update(ctx, 19))
	require.NoError(t, ledger.Update(ctx, 19))
	assert.Equal(t, 2, s.Resource(grid.Loc(6, 6)))
	assert.Equal(t, world.TeamStats{ReserveDelta: 11}, ledger.Last()[world.TeamA], "initial grant counts in the first round")

	require.NoError(t, income.Update(ctx, 20))
	require.NoError(t, deposits.Update(ctx, 20))
	require.NoError(t, ledger.Update(ctx, 20))
	assert.Equal(t, 7, s.Resource(grid.Loc(6, 6)))
	assert.Equal(t, 0, s.Resource(grid.Loc(8, 8)))
	assert.Equal(t, 12, s.Ledger().Reserve(world.TeamA))
	assert.Equal(t, world.TeamStats{ReserveDelta: 1}, ledger.Last()[world.TeamB])
}
