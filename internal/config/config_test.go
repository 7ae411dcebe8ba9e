package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/world"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimal = `
[match]
map = "maps/twin_lakes.yaml"

[scripting]
bot_a = "bots/harvester.lua"
bot_b = "bots/raider.lua"
`

func TestLoad_DefaultsFillGaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "maps/twin_lakes.yaml", cfg.Match.Map)
	assert.Empty(t, cfg.Match.Seeds)
	assert.Equal(t, 4, cfg.Match.Parallelism)
	assert.Equal(t, world.DefaultRules(), cfg.Rules.World())
	assert.Equal(t, 250*time.Millisecond, cfg.Scripting.TurnTimeout)
	assert.Equal(t, FormatJSONL, cfg.Replay.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[match]
map = "maps/lanes.yaml"
seeds = [1, 2, 3]
rounds = 500
parallelism = 2

[rules]
initial_reserve = 25
deposit_interval = 10

[scripting]
bot_a = "a.lua"
bot_b = "b.lua"
compute_limit = 300
turn_timeout = "40ms"

[replay]
format = "sqlite"
dir = "out"
`))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Match.Seeds)
	assert.Equal(t, 500, cfg.Match.Rounds)
	assert.Equal(t, 300, cfg.Scripting.ComputeLimit)
	assert.Equal(t, 40*time.Millisecond, cfg.Scripting.TurnTimeout)
	assert.Equal(t, FormatSQLite, cfg.Replay.Format)

	r := cfg.Rules.World()
	assert.Equal(t, 25, r.InitialReserve)
	assert.Equal(t, 10, r.DepositInterval)
	assert.Equal(t, world.DefaultRules().PassiveIncome, r.PassiveIncome)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"no map":      "[scripting]\nbot_a = \"a\"\nbot_b = \"b\"\n",
		"no bots":     "[match]\nmap = \"m.yaml\"\n",
		"format":      minimal + "[replay]\nformat = \"csv\"\n",
		"parallelism": "[match]\nmap = \"m\"\nparallelism = 0\n[scripting]\nbot_a = \"a\"\nbot_b = \"b\"\n",
		"rules":       minimal + "[rules]\ndeposit_interval = 0\n",
		"syntax":      "[match\n",
		"duplicate":   minimal + "[match]\nrounds = 3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, "configs/arena.toml", Path("configs/arena.toml"))
	t.Setenv(EnvPath, "/etc/gridclash.toml")
	assert.Equal(t, "/etc/gridclash.toml", Path("configs/arena.toml"))
}

func TestShippedConfig(t *testing.T) {
	cfg, err := Load("../../configs/arena.toml")
	require.NoError(t, err)
	assert.Equal(t, world.DefaultRules(), cfg.Rules.World())
	assert.Equal(t, []int64{6370, 1, 2, 3}, cfg.Match.Seeds)
	assert.Equal(t, 250*time.Millisecond, cfg.Scripting.TurnTimeout)
}
