package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/gridclash/arena/internal/config"
	"github.com/gridclash/arena/internal/data"
	"github.com/gridclash/arena/internal/engine"
	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/persist"
	"github.com/gridclash/arena/internal/replay"
	"github.com/gridclash/arena/internal/scripting"
	"github.com/gridclash/arena/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Display helpers ───────────────────────────────────────────────

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	val := fmt.Sprint(value)
	dotsLen := max(42-len(label)-len(val), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), val)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printFail(msg string) {
	fmt.Printf("  \033[31m✗\033[0m %s\n", msg)
}

// ── Match batch ───────────────────────────────────────────────────

type result struct {
	matchID string
	seed    int64
	outcome world.Outcome
	replay  string
	elapsed time.Duration
}

func run() error {
	cfgPath := flag.String("config", "configs/arena.toml", "config file ($"+config.EnvPath+" overrides)")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(config.Path(*cfgPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load map
	rules := cfg.Rules.World()
	desc, err := data.LoadMap(cfg.Match.Map, rules)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	if cfg.Match.Rounds > 0 {
		desc.Rounds = cfg.Match.Rounds
	}
	seeds := cfg.Match.Seeds
	if len(seeds) == 0 {
		seeds = []int64{desc.Seed}
	}

	printSection("Map")
	printStat("name", desc.Name)
	printStat("size", fmt.Sprintf("%dx%d", desc.Width, desc.Height))
	printStat("symmetry", desc.Symmetry)
	printStat("rounds", desc.Rounds)
	printStat("agents", len(desc.Agents))
	printStat("matches", len(seeds))
	fmt.Println()

	// 4. Play one match per seed
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := make([]result, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Match.Parallelism)
	for i, seed := range seeds {
		g.Go(func() error {
			r, err := playMatch(gctx, cfg, rules, desc, seed, log)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// 5. Report
	printSection("Results")
	wins := map[world.Team]int{}
	for _, r := range results {
		out := r.outcome
		line := fmt.Sprintf("seed %-8d %s wins by %s in round %d (%s)",
			r.seed, out.Winner, out.Factor, out.Round, r.elapsed.Round(time.Millisecond))
		if out.Aborted {
			printFail(fmt.Sprintf("seed %-8d aborted: %s", r.seed, out.Reason))
			continue
		}
		wins[out.Winner]++
		printOK(line)
		if r.replay != "" {
			fmt.Printf("      \033[90m%s\033[0m\n", r.replay)
		}
	}
	fmt.Println()
	printStat("team A wins", wins[world.TeamA])
	printStat("team B wins", wins[world.TeamB])
	return nil
}

func playMatch(ctx context.Context, cfg *config.Config, rules world.Rules, base *world.MapDescriptor, seed int64, log *zap.Logger) (res result, err error) {
	desc := base.Clone()
	desc.Seed = seed
	matchID := uuid.NewString()
	mlog := log.With(zap.Int64("seed", seed))

	rec, path, err := openRecorder(ctx, cfg.Replay, desc.Name, seed, matchID, mlog)
	if err != nil {
		return result{}, err
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close replay: %w", cerr)
		}
	}()

	driver := scripting.NewDriver(scripting.Options{
		Bots: [2]scripting.Bot{
			{Path: cfg.Scripting.BotA},
			{Path: cfg.Scripting.BotB},
		},
		TurnTimeout:     cfg.Scripting.TurnTimeout,
		CallStackSize:   cfg.Scripting.CallStackSize,
		RegistryMaxSize: cfg.Scripting.RegistryMaxSize,
	}, mlog)

	start := time.Now()
	e, err := engine.New(desc, driver, rec, engine.Options{
		Rules: &rules,
		Gateway: gateway.Options{
			ComputeLimit: cfg.Scripting.ComputeLimit,
			CallCost:     cfg.Scripting.CallCost,
		},
		MatchID: matchID,
		Logger:  mlog,
	})
	if err != nil {
		return result{}, err
	}
	out, err := e.Run(ctx)
	if err != nil {
		return result{}, err
	}
	return result{
		matchID: matchID,
		seed:    seed,
		outcome: out,
		replay:  path,
		elapsed: time.Since(start),
	}, nil
}

// openRecorder picks the replay sink for one match. Disabled replays still
// get a recorder so the engine path is the same.
func openRecorder(ctx context.Context, cfg config.ReplayConfig, mapName string, seed int64, matchID string, log *zap.Logger) (engine.Recorder, string, error) {
	if !cfg.Enabled {
		return engine.Discard, "", nil
	}
	base := filepath.Join(cfg.Dir, fmt.Sprintf("%s-%d-%s", mapName, seed, matchID[:8]))
	switch cfg.Format {
	case config.FormatSQLite:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("replay dir: %w", err)
		}
		path := base + ".db"
		// the footer of a cancelled match must still land
		s, err := persist.CreateReplayStore(context.WithoutCancel(ctx), path, log)
		if err != nil {
			return nil, "", fmt.Errorf("replay store: %w", err)
		}
		return s, path, nil
	default:
		f, err := replay.Create(base + replay.Ext)
		if err != nil {
			return nil, "", fmt.Errorf("replay file: %w", err)
		}
		return f, f.Path(), nil
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
