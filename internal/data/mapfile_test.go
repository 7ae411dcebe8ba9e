package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

func sampleMap(t *testing.T) *world.MapDescriptor {
	t.Helper()
	mb := world.NewMapBuilder("sample", 20, 22, grid.Loc(100, 40), 77).
		SetSymmetry(world.Vertical).
		SetRounds(500)
	mb.SetSymmetricSpawn(grid.Loc(101, 45))
	mb.SetSymmetricWall(grid.Loc(100, 40), true)
	mb.SetSymmetricWall(grid.Loc(105, 50), true)
	mb.SetSymmetricResource(grid.Loc(103, 44), 12)
	mb.AddSymmetricAgent(grid.Loc(102, 46), 3.5)
	mb.AddSymmetricAgent(grid.Loc(104, 61), 1)
	d, err := mb.Build()
	require.NoError(t, err)
	return d
}

func TestMapRoundTrip(t *testing.T) {
	want := sampleMap(t)
	raw, err := EncodeMap(want)
	require.NoError(t, err)

	got, err := DecodeMap(raw, world.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.NoError(t, world.ValidateMap(got, world.DefaultRules()))
}

func TestMirroredFileMatchesBuilder(t *testing.T) {
	raw := []byte(`
name: mirrored
width: 20
height: 20
mirror: true
spawns:
  A: {x: 1, y: 1}
tiles:
` + strings.Repeat("  - \"....................\"\n", 3) +
		"  - \"...#................\"\n" +
		strings.Repeat("  - \"....................\"\n", 16) + `
resources:
  - {x: 5, y: 6, amount: 9}
agents:
  - {team: A, x: 2, y: 2}
`)
	got, err := DecodeMap(raw, world.DefaultRules())
	require.NoError(t, err)

	mb := world.NewMapBuilder("mirrored", 20, 20, grid.Loc(0, 0), 6370)
	mb.SetSymmetricSpawn(grid.Loc(1, 1))
	mb.SetSymmetricWall(grid.Loc(3, 3), true)
	mb.SetSymmetricResource(grid.Loc(5, 6), 9)
	mb.AddSymmetricAgent(grid.Loc(2, 2), 0)
	want, err := mb.Build()
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, 2000, got.Rounds, "default round limit")
	assert.Equal(t, int64(6370), got.Seed, "default seed")
}

func TestSchemaRejects(t *testing.T) {
	base := func(extra string) string {
		return "name: m\nwidth: 20\nheight: 1\nspawns: {A: {x: 0, y: 0}}\ntiles: [\"....................\"]\n" + extra
	}
	cases := map[string]string{
		"unknown field":   base("teleporters: []\n"),
		"bad tile":        "name: m\nwidth: 2\nheight: 1\nspawns: {A: {x: 0, y: 0}}\ntiles: [\".x\"]\n",
		"negative amount": base("resources: [{x: 1, y: 0, amount: -3}]\n"),
		"neutral agent":   base("agents: [{team: NEUTRAL, x: 1, y: 0}]\n"),
		"zero health":     base("agents: [{team: A, x: 1, y: 0, health: 0}]\n"),
		"bad symmetry":    base("symmetry: diagonal\n"),
		"missing tiles":   "name: m\nwidth: 20\nheight: 1\nspawns: {A: {x: 0, y: 0}}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMap([]byte(doc), world.DefaultRules())
			assert.ErrorIs(t, err, world.ErrInvalidMap)
		})
	}
}

func TestDecodeShapeErrors(t *testing.T) {
	cases := map[string]string{
		"row count":       "name: m\nwidth: 3\nheight: 2\nspawns: {A: {x: 0, y: 0}}\ntiles: [\"...\"]\n",
		"row width":       "name: m\nwidth: 3\nheight: 1\nspawns: {A: {x: 0, y: 0}}\ntiles: [\"....\"]\n",
		"resource off":    "name: m\nwidth: 3\nheight: 1\nspawns: {A: {x: 0, y: 0}}\ntiles: [\"...\"]\nresources: [{x: 9, y: 0, amount: 1}]\n",
		"spawn on wall":   "name: m\nwidth: 3\nheight: 1\nspawns: {A: {x: 0, y: 0}}\ntiles: [\"#..\"]\n",
		"mirrored team B": "name: m\nwidth: 3\nheight: 1\nmirror: true\nspawns: {A: {x: 0, y: 0}}\ntiles: [\"...\"]\nagents: [{team: B, x: 1, y: 0}]\n",
		"shared tile":     "name: m\nwidth: 3\nheight: 1\nspawns: {A: {x: 0, y: 0}, B: {x: 2, y: 0}}\ntiles: [\"...\"]\nagents: [{team: A, x: 1, y: 0}, {team: B, x: 1, y: 0}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeMap([]byte(doc), world.DefaultRules())
			assert.ErrorIs(t, err, world.ErrInvalidMap)
		})
	}
}

func TestLoadMapChecksSymmetry(t *testing.T) {
	d := sampleMap(t)
	d.Resources[0] = 4
	raw, err := EncodeMap(d)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = DecodeMap(raw, world.DefaultRules())
	require.NoError(t, err, "decode alone does not check symmetry")
	_, err = LoadMap(path, world.DefaultRules())
	assert.ErrorIs(t, err, world.ErrInvalidMap)
	assert.ErrorContains(t, err, "symmetry")
}

func TestShippedMaps(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "maps", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			d, err := LoadMap(p, world.DefaultRules())
			require.NoError(t, err)
			assert.NotEmpty(t, d.Agents)
		})
	}
}
