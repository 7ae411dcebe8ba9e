package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/engine"
	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/replay"
	"github.com/gridclash/arena/internal/world"
)

// builder spends its reserve on agents every turn.
type builder struct{}

func (builder) MatchStarted(engine.MatchInfo) error { return nil }
func (builder) RoundStarted(int)                    {}
func (builder) RoundEnded(int)                      {}
func (builder) ComputeUsed(ecs.EntityID) int        { return 7 }
func (builder) IsTerminated(ecs.EntityID) bool      { return false }
func (builder) AgentSpawned(world.AgentInfo)        {}
func (builder) AgentDestroyed(world.AgentInfo)      {}
func (builder) MatchEnded(world.Outcome)            {}

func (builder) RunAgent(_ context.Context, g *gateway.Gateway) error {
	if g.CanBuild(2) {
		_, err := g.Build(2)
		return err
	}
	return nil
}

func record(t *testing.T, rounds int, rec engine.Recorder) world.Outcome {
	t.Helper()
	mb := world.NewMapBuilder("store", 20, 20, grid.Loc(0, 0), 3).SetRounds(rounds)
	mb.SetSymmetricSpawn(grid.Loc(1, 1))
	mb.AddSymmetricAgent(grid.Loc(5, 5), 2)
	e, err := engine.New(mb.Descriptor(), builder{}, rec, engine.Options{MatchID: "db-1"})
	require.NoError(t, err)
	out, err := e.Run(context.Background())
	require.NoError(t, err)
	return out
}

func TestReplayStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "match.sqlite")
	store, err := CreateReplayStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	mem := replay.NewMemoryRecorder()

	// More rounds than one flush batch.
	out := record(t, 2*flushEvery+10, replay.Multi(store, mem))
	require.NoError(t, store.Close())

	got, err := LoadReplay(ctx, path)
	require.NoError(t, err)
	require.NoError(t, got.Verify())

	want := mem.Replay()
	assert.Equal(t, want.Header, got.Header)
	assert.Equal(t, want.Rounds, got.Rounds)
	require.NotNil(t, got.Footer)
	assert.Equal(t, out, got.Footer.Outcome)
	assert.Equal(t, "db-1", got.Footer.MatchID)
}

func TestReplayStoreUnfinished(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "partial.sqlite")
	store, err := CreateReplayStore(ctx, path, nil)
	require.NoError(t, err)

	mem := replay.NewMemoryRecorder()
	record(t, 4, mem)
	rep := mem.Replay()

	require.NoError(t, store.WriteHeader(rep.Header))
	for _, rr := range rep.Rounds[:3] {
		require.NoError(t, store.WriteRound(rr))
	}
	require.NoError(t, store.Close())

	got, err := LoadReplay(ctx, path)
	require.NoError(t, err)
	assert.Len(t, got.Rounds, 3)
	assert.Nil(t, got.Footer)
	assert.ErrorIs(t, got.Verify(), replay.ErrCorrupt)
}

func TestReplayStoreRejectsRoundBeforeHeader(t *testing.T) {
	store, err := CreateReplayStore(context.Background(), filepath.Join(t.TempDir(), "x.sqlite"), nil)
	require.NoError(t, err)
	defer store.Close()
	assert.Error(t, store.WriteRound(engine.RoundRecord{Round: 1}))
}

func TestLoadReplayEmptyDatabase(t *testing.T) {
	_, err := LoadReplay(context.Background(), filepath.Join(t.TempDir(), "empty.sqlite"))
	assert.ErrorIs(t, err, replay.ErrCorrupt)
}
