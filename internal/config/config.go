package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gridclash/arena/internal/world"
)

// EnvPath names the variable that overrides the config file location.
const EnvPath = "GRIDCLASH_CONFIG"

// Replay formats.
const (
	FormatJSONL  = "jsonl.zst"
	FormatSQLite = "sqlite"
)

type Config struct {
	Match     MatchConfig     `toml:"match"`
	Rules     RulesConfig     `toml:"rules"`
	Scripting ScriptingConfig `toml:"scripting"`
	Replay    ReplayConfig    `toml:"replay"`
	Logging   LoggingConfig   `toml:"logging"`
}

type MatchConfig struct {
	Map         string  `toml:"map"`
	Seeds       []int64 `toml:"seeds"`       // empty plays the map's own seed once
	Rounds      int     `toml:"rounds"`      // overrides the map's round limit when > 0
	Parallelism int     `toml:"parallelism"` // matches run at once
}

// RulesConfig mirrors world.Rules. Map size bounds are fixed and not exposed.
type RulesConfig struct {
	InitialReserve     int     `toml:"initial_reserve"`
	PassiveIncome      int     `toml:"passive_income"`
	DepositInterval    int     `toml:"deposit_interval"`
	DepositGrowth      int     `toml:"deposit_growth"`
	CooldownLimit      int     `toml:"cooldown_limit"`
	CooldownsPerTurn   int     `toml:"cooldowns_per_turn"`
	CollisionThreshold float64 `toml:"collision_threshold"`
	InitialHealth      float64 `toml:"initial_health"`
	IndicatorMaxLength int     `toml:"indicator_max_length"`
	DefaultRoundLimit  int     `toml:"default_round_limit"`
	DefaultSeed        int64   `toml:"default_seed"`
}

type ScriptingConfig struct {
	BotA            string        `toml:"bot_a"`
	BotB            string        `toml:"bot_b"`
	ComputeLimit    int           `toml:"compute_limit"` // gateway calls per turn, 0 = unmetered
	CallCost        int           `toml:"call_cost"`
	TurnTimeout     time.Duration `toml:"turn_timeout"`
	CallStackSize   int           `toml:"call_stack_size"`
	RegistryMaxSize int           `toml:"registry_max_size"`
}

type ReplayConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Format  string `toml:"format"` // "jsonl.zst" or "sqlite"
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config location: $GRIDCLASH_CONFIG if set, else def.
func Path(def string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return def
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Match.Map == "" {
		return fmt.Errorf("match.map is required")
	}
	if c.Match.Parallelism < 1 {
		return fmt.Errorf("match.parallelism must be at least 1, got %d", c.Match.Parallelism)
	}
	if c.Match.Rounds < 0 {
		return fmt.Errorf("match.rounds must be non-negative, got %d", c.Match.Rounds)
	}
	if c.Scripting.BotA == "" || c.Scripting.BotB == "" {
		return fmt.Errorf("scripting.bot_a and scripting.bot_b are required")
	}
	if c.Scripting.ComputeLimit < 0 || c.Scripting.CallCost < 0 || c.Scripting.TurnTimeout < 0 {
		return fmt.Errorf("scripting limits must be non-negative")
	}
	switch c.Replay.Format {
	case FormatJSONL, FormatSQLite:
	default:
		return fmt.Errorf("replay.format %q: want %q or %q", c.Replay.Format, FormatJSONL, FormatSQLite)
	}
	if err := c.Rules.World().Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

// World converts the section to engine rules, keeping the fixed map bounds
// and net worth epsilon of world.DefaultRules.
func (r RulesConfig) World() world.Rules {
	w := world.DefaultRules()
	w.InitialReserve = r.InitialReserve
	w.PassiveIncome = r.PassiveIncome
	w.DepositInterval = r.DepositInterval
	w.DepositGrowth = r.DepositGrowth
	w.CooldownLimit = r.CooldownLimit
	w.CooldownsPerTurn = r.CooldownsPerTurn
	w.CollisionThreshold = r.CollisionThreshold
	w.InitialHealth = r.InitialHealth
	w.IndicatorMaxLength = r.IndicatorMaxLength
	w.DefaultRoundLimit = r.DefaultRoundLimit
	w.DefaultSeed = r.DefaultSeed
	return w
}

func defaults() *Config {
	w := world.DefaultRules()
	return &Config{
		Match: MatchConfig{
			Parallelism: 4,
		},
		Rules: RulesConfig{
			InitialReserve:     w.InitialReserve,
			PassiveIncome:      w.PassiveIncome,
			DepositInterval:    w.DepositInterval,
			DepositGrowth:      w.DepositGrowth,
			CooldownLimit:      w.CooldownLimit,
			CooldownsPerTurn:   w.CooldownsPerTurn,
			CollisionThreshold: w.CollisionThreshold,
			InitialHealth:      w.InitialHealth,
			IndicatorMaxLength: w.IndicatorMaxLength,
			DefaultRoundLimit:  w.DefaultRoundLimit,
			DefaultSeed:        w.DefaultSeed,
		},
		Scripting: ScriptingConfig{
			ComputeLimit:    10000,
			CallCost:        1,
			TurnTimeout:     250 * time.Millisecond,
			CallStackSize:   256,
			RegistryMaxSize: 256 * 1024,
		},
		Replay: ReplayConfig{
			Enabled: true,
			Dir:     "replays",
			Format:  FormatJSONL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
