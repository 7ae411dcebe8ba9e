package world

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/event"
	"github.com/gridclash/arena/internal/core/grid"
)

func newTestState(t *testing.T, build func(b *MapBuilder)) *State {
	t.Helper()
	b := NewMapBuilder("test", 20, 20, grid.Loc(0, 0), 1)
	b.SetSymmetricSpawn(grid.Loc(2, 2))
	if build != nil {
		build(b)
	}
	s, err := NewState(b.Descriptor(), DefaultRules(), event.NewBus())
	require.NoError(t, err)
	require.NoError(t, s.Populate())
	s.Bus().Drain()
	return s
}

// place drops a combat agent straight into the registry, bypassing spawns.
func place(t *testing.T, s *State, team Team, loc grid.Location, health float64) *Agent {
	t.Helper()
	a := &Agent{ID: s.ids.Create(), Team: team, Kind: KindCombat, Location: loc, Health: health}
	require.NoError(t, s.add(a, false))
	return a
}

func alive(s *State, a *Agent) bool {
	_, ok := s.Registry().Get(a.ID)
	return ok
}

func TestPopulateAssignsIDs(t *testing.T) {
	s := newTestState(t, func(b *MapBuilder) {
		b.AddSymmetricAgent(grid.Loc(2, 2), 0)
	})

	// Descriptor agents keep ids 0 and 1; coordinators come after them.
	assert.Equal(t, ecs.EntityID(2), s.Coordinator(TeamA))
	assert.Equal(t, ecs.EntityID(3), s.Coordinator(TeamB))
	assert.Equal(t, 1, s.Registry().Count(TeamA, KindCombat))
	assert.Equal(t, 1, s.Registry().Count(TeamB, KindCombat))
	assert.Equal(t, 10, s.Ledger().Reserve(TeamA))
	assert.Equal(t, 10, s.Ledger().Reserve(TeamB))

	a := s.Registry().At(grid.Loc(2, 2))
	require.NotNil(t, a)
	assert.Equal(t, TeamA, a.Team)
	assert.Equal(t, 1.0, a.Health)
}

func TestNewStateCopiesDescriptor(t *testing.T) {
	b := NewMapBuilder("copy", 20, 20, grid.Loc(0, 0), 1)
	b.SetResource(grid.Loc(5, 5), 3)
	d := b.Descriptor()
	s, err := NewState(d, DefaultRules(), nil)
	require.NoError(t, err)

	d.Resources[b.desc.Bounds().Index(grid.Loc(5, 5))] = 99
	assert.Equal(t, 3, s.Resource(grid.Loc(5, 5)))
}

func TestCollisionSymmetry(t *testing.T) {
	pairs := [][2]float64{{5, 3}, {10, 2.5}, {3, 7}, {4.5, 1}}
	for _, p := range pairs {
		run := func(moverHealth, defenderHealth float64) (moverAlive bool, survivorHealth float64) {
			s := newTestState(t, nil)
			mover := place(t, s, TeamA, grid.Loc(5, 5), moverHealth)
			defender := place(t, s, TeamB, grid.Loc(6, 5), defenderHealth)
			s.MoveAgent(mover, grid.East)

			switch {
			case alive(s, mover):
				assert.False(t, alive(s, defender))
				assert.Equal(t, mover, s.Registry().At(grid.Loc(6, 5)))
				assert.Nil(t, s.Registry().At(grid.Loc(5, 5)))
				return true, mover.Health
			case alive(s, defender):
				assert.Equal(t, defender, s.Registry().At(grid.Loc(6, 5)))
				assert.Equal(t, mover.Location, grid.Loc(5, 5))
				assert.Nil(t, s.Registry().At(grid.Loc(5, 5)))
				return false, defender.Health
			}
			t.Fatalf("no survivor for %v", p)
			return false, 0
		}

		moverWon, h1 := run(p[0], p[1])
		swappedWon, h2 := run(p[1], p[0])
		assert.Equal(t, h1, h2, "survivor health for %v", p)
		assert.NotEqual(t, moverWon, swappedWon, "exactly one role wins for %v", p)
		hi, lo := p[0], p[1]
		if lo > hi {
			hi, lo = lo, hi
		}
		assert.InDelta(t, hi-lo+1, h1, 1e-9)
	}
}

func TestCollisionEquality(t *testing.T) {
	for _, p := range [][2]float64{{3, 3}, {3, 4}, {4, 3}, {2.5, 3.2}} {
		s := newTestState(t, nil)
		mover := place(t, s, TeamA, grid.Loc(5, 5), p[0])
		defender := place(t, s, TeamB, grid.Loc(5, 6), p[1])
		s.MoveAgent(mover, grid.North)

		assert.False(t, alive(s, mover), "%v", p)
		assert.False(t, alive(s, defender), "%v", p)
		assert.Nil(t, s.Registry().At(grid.Loc(5, 5)))
		assert.Nil(t, s.Registry().At(grid.Loc(5, 6)))
	}
}

func TestCollisionEventCardinality(t *testing.T) {
	s := newTestState(t, nil)
	mover := place(t, s, TeamA, grid.Loc(5, 5), 5)
	defender := place(t, s, TeamB, grid.Loc(6, 5), 3)
	s.Bus().Drain()

	s.MoveAgent(mover, grid.East)

	var died, changed, moved int
	for _, r := range s.Bus().Drain() {
		switch ev := r.Data.(type) {
		case event.Died:
			died++
			assert.Equal(t, defender.ID, ev.ID)
		case event.HealthChanged:
			changed++
			assert.Equal(t, 3.0, ev.Health)
			assert.Equal(t, -2.0, ev.Delta)
		case event.Moved:
			moved++
		}
	}
	assert.Equal(t, 1, died)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, moved)
	assert.Equal(t, 10, mover.Cooldown)
}

func TestBuildIntoOccupiedEnemy(t *testing.T) {
	s := newTestState(t, nil)
	enemy := place(t, s, TeamB, s.Spawn(TeamA), 5)

	built, err := s.Build(TeamA, 3)
	require.NoError(t, err)

	assert.False(t, alive(s, built))
	assert.Equal(t, 3.0, enemy.Health)
	assert.Equal(t, enemy, s.Registry().At(s.Spawn(TeamA)))
	assert.Equal(t, 7, s.Ledger().Reserve(TeamA))
}

func TestBuildOverdrawLeavesLedger(t *testing.T) {
	s := newTestState(t, nil)
	_, err := s.Build(TeamA, 11)
	require.ErrorIs(t, err, ErrInsufficientResource)
	assert.Equal(t, 10, s.Ledger().Reserve(TeamA))
	assert.Nil(t, s.Registry().At(s.Spawn(TeamA)))
}

func TestExplodeSparesFriends(t *testing.T) {
	s := newTestState(t, nil)
	bomber := place(t, s, TeamA, grid.Loc(5, 5), 8)
	friend := place(t, s, TeamA, grid.Loc(5, 6), 2)
	weak := place(t, s, TeamB, grid.Loc(4, 5), 3)
	strong := place(t, s, TeamB, grid.Loc(6, 5), 10)
	diagonal := place(t, s, TeamB, grid.Loc(6, 6), 10)

	s.Explode(bomber)

	assert.False(t, alive(s, bomber))
	assert.False(t, alive(s, weak))
	assert.Equal(t, 2.0, friend.Health)
	assert.Equal(t, 6.0, strong.Health)
	assert.Equal(t, 10.0, diagonal.Health)
}

func TestResignDestroysWholeTeam(t *testing.T) {
	s := newTestState(t, func(b *MapBuilder) {
		b.AddSymmetricAgent(grid.Loc(3, 3), 4)
	})
	s.Resign(TeamA)

	assert.Equal(t, 0, s.Registry().Count(TeamA, KindCombat))
	assert.Equal(t, 0, s.Registry().Count(TeamA, KindCoordinator))
	assert.Equal(t, 1, s.Registry().Count(TeamB, KindCombat))
}

func TestDecayDestroysBelowMinimum(t *testing.T) {
	s := newTestState(t, nil)
	healthy := place(t, s, TeamA, grid.Loc(5, 5), 10)
	frail := place(t, s, TeamB, grid.Loc(9, 9), 0.1)

	s.Decay()

	assert.InDelta(t, 10-10*0.0007, healthy.Health, 1e-12)
	assert.Equal(t, 1, healthy.RoundsAlive)
	assert.False(t, alive(s, frail))
	assert.Nil(t, s.Registry().At(grid.Loc(9, 9)))
}

func TestHarvestExclusivity(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Harvest(TeamA, 1))
	require.NoError(t, l.EndRound())
	require.NoError(t, l.Credit(TeamB, 1))
	require.NoError(t, l.Credit(TeamA, 1))
	require.NoError(t, l.EndRound(), "passive income is not harvesting")

	require.NoError(t, l.Harvest(TeamA, 1))
	require.NoError(t, l.Harvest(TeamB, 1))
	require.ErrorIs(t, l.EndRound(), ErrInvariant)
}

func TestLedgerNonNegative(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Credit(TeamA, 4))
	require.ErrorIs(t, l.Debit(TeamA, 5), ErrInsufficientResource)
	assert.Equal(t, 4, l.Reserve(TeamA))
	require.NoError(t, l.Debit(TeamA, 4))
	assert.Equal(t, 0, l.Reserve(TeamA))
	assert.Error(t, l.Debit(TeamA, -1))

	require.NoError(t, l.Harvest(TeamB, 2))
	assert.Equal(t, TeamStats{ReserveDelta: 2, HarvestedDelta: 2}, l.RoundDelta(TeamB))
}

func TestExecOrder(t *testing.T) {
	s := newTestState(t, nil)
	young := place(t, s, TeamA, grid.Loc(1, 1), 5)
	old := place(t, s, TeamA, grid.Loc(1, 2), 5)
	old.RoundsAlive = 3

	order := s.Registry().ExecOrder()
	require.Len(t, order, 4)
	assert.Equal(t, old.ID, order[0])
	assert.Equal(t, []ecs.EntityID{s.Coordinator(TeamA), s.Coordinator(TeamB), young.ID}, order[1:])
}

func TestRegistryMove(t *testing.T) {
	s := newTestState(t, nil)
	a := place(t, s, TeamA, grid.Loc(1, 1), 5)
	b := place(t, s, TeamB, grid.Loc(3, 3), 5)
	reg := s.Registry()

	require.NoError(t, reg.Move(a, grid.Loc(1, 2)))
	assert.Equal(t, grid.Loc(1, 2), a.Location)
	assert.Nil(t, reg.At(grid.Loc(1, 1)))
	assert.Same(t, a, reg.At(grid.Loc(1, 2)))

	assert.Error(t, reg.Move(a, b.Location), "occupied tile")
	assert.Error(t, reg.Move(a, grid.Loc(-1, 2)), "off the map")
	assert.Equal(t, grid.Loc(1, 2), a.Location)
	assert.Same(t, a, reg.At(grid.Loc(1, 2)))
	assert.Same(t, b, reg.At(grid.Loc(3, 3)))

	require.NoError(t, s.MoveAgent(a, grid.East))
	assert.Same(t, a, reg.At(grid.Loc(2, 2)))
	moved := s.Bus().Drain()
	require.Len(t, moved, 1)
	assert.Equal(t, event.Moved{ID: a.ID, To: grid.Loc(2, 2)}, moved[0].Data)
}

func TestSetDebugTruncates(t *testing.T) {
	a := &Agent{Kind: KindCombat}
	a.SetDebug(strings.Repeat("\u00e9", 70), 64)
	assert.Equal(t, 64, len([]rune(a.Debug)))

	// Decomposed e + combining acute composes to one rune.
	a.SetDebug("e\u0301", 64)
	assert.Equal(t, "\u00e9", a.Debug)
}

func TestSetWinnerOnce(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetWinner(TeamA, Annihilation))
	require.ErrorIs(t, s.SetWinner(TeamB, MoreNetWorth), ErrInvariant)
	assert.Equal(t, TeamA, s.Outcome().Winner)

	s.Abort("late")
	assert.False(t, s.Outcome().Aborted)
}

func TestDigestTracksState(t *testing.T) {
	s1 := newTestState(t, func(b *MapBuilder) { b.AddSymmetricAgent(grid.Loc(2, 2), 3) })
	s2 := newTestState(t, func(b *MapBuilder) { b.AddSymmetricAgent(grid.Loc(2, 2), 3) })
	assert.Equal(t, s1.Digest(), s2.Digest())

	s2.GrowDeposits(5)
	assert.Equal(t, s1.Digest(), s2.Digest(), "no deposits to grow")

	require.NoError(t, s2.Ledger().Credit(TeamA, 1))
	assert.NotEqual(t, s1.Digest(), s2.Digest())
}

func TestLocationsWithin(t *testing.T) {
	b := Bounds{Width: 20, Height: 20}
	locs := LocationsWithin(b, grid.Loc(0, 0), 2)
	assert.ElementsMatch(t, []grid.Location{
		grid.Loc(0, 0), grid.Loc(1, 0), grid.Loc(0, 1), grid.Loc(1, 1),
	}, locs)
	assert.Len(t, LocationsWithin(b, grid.Loc(10, 10), 1<<30), 400)
	assert.Empty(t, LocationsWithin(b, grid.Loc(0, 0), -1))
}
