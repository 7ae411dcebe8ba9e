// Package engine runs one match: it owns the world state, the phase runner,
// the driver and the replay recorder, and advances them one round at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/event"
	coresys "github.com/gridclash/arena/internal/core/system"
	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/system"
	"github.com/gridclash/arena/internal/world"
)

// ErrMatchOver is returned by RunRound once the outcome is final.
var ErrMatchOver = errors.New("match over")

// Options tunes a match. The zero value runs with the default rules, an
// unmetered gateway, a random match id and no logging.
type Options struct {
	Rules   *world.Rules
	Gateway gateway.Options
	MatchID string
	Logger  *zap.Logger
}

// Engine advances one match. Not safe for concurrent use except AbortTurn.
type Engine struct {
	log    *zap.Logger
	state  *world.State
	runner *coresys.Runner
	ledger *system.LedgerSystem
	driver Driver
	rec    Recorder
	rng    *rand.Rand
	opts   Options
	header Header

	mu      sync.Mutex // protects current
	current *gateway.Gateway

	finished bool
}

// New builds the world from desc, starts the driver, populates the map and
// writes the replay header.
func New(desc *world.MapDescriptor, driver Driver, rec Recorder, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MatchID == "" {
		opts.MatchID = uuid.NewString()
	}
	if rec == nil {
		rec = Discard
	}
	rules := world.DefaultRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	bus := event.NewBus()
	state, err := world.NewState(desc, rules, bus)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:    opts.Logger.With(zap.String("match", opts.MatchID), zap.String("map", state.MapName())),
		state:  state,
		runner: coresys.NewRunner(),
		ledger: system.NewLedgerSystem(state),
		driver: driver,
		rec:    rec,
		rng:    rand.New(rand.NewSource(desc.Seed)),
		opts:   opts,
	}

	turns := &turnRunner{e: e}
	// Phase 0: RoundBegin
	e.runner.Register(system.NewPerceptionSystem(state))
	// Phase 1: Turn
	e.runner.Register(system.NewTurnSystem(state, turns))
	// Phase 2: RoundEnd (ledger snapshot last)
	e.runner.Register(system.NewIncomeSystem(state))
	e.runner.Register(system.NewDecaySystem(state))
	e.runner.Register(system.NewDepositSystem(state))
	e.runner.Register(e.ledger)
	// Phase 3: Arbitrate
	e.runner.Register(system.NewArbiterSystem(state))

	state.SetLifecycle(driver)
	if err := e.safely(func() error {
		return driver.MatchStarted(MatchInfo{
			MatchID:    opts.MatchID,
			Map:        state.MapName(),
			Bounds:     state.Bounds(),
			Seed:       desc.Seed,
			RoundLimit: state.RoundLimit(),
			Rules:      rules,
			Rand:       e.rng,
		})
	}); err != nil {
		return nil, fmt.Errorf("start driver: %w", err)
	}
	if err := e.safely(state.Populate); err != nil {
		return nil, fmt.Errorf("populate: %w", err)
	}

	e.header = e.buildHeader(bus.Drain())
	if err := rec.WriteHeader(e.header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	e.log.Info("match started",
		zap.Int64("seed", desc.Seed),
		zap.Int("round_limit", state.RoundLimit()),
		zap.Int("agents", state.Registry().Len()))
	return e, nil
}

func (e *Engine) buildHeader(initial []event.Record) Header {
	d := e.state.Descriptor()
	return Header{
		Version:      FormatVersion,
		MatchID:      e.opts.MatchID,
		Map:          e.state.MapName(),
		Width:        d.Width,
		Height:       d.Height,
		Origin:       d.Origin,
		Symmetry:     e.state.Symmetry(),
		Seed:         e.state.Seed(),
		Rounds:       e.state.RoundLimit(),
		Walls:        d.Walls,
		Resources:    d.Resources,
		Spawns:       d.Spawns,
		Coordinators: [2]ecs.EntityID{e.state.Coordinator(world.TeamA), e.state.Coordinator(world.TeamB)},
		Rules:        e.state.Rules(),
		Initial:      initial,
	}
}

func (e *Engine) State() *world.State    { return e.state }
func (e *Engine) Outcome() world.Outcome { return e.state.Outcome() }
func (e *Engine) MatchID() string        { return e.opts.MatchID }
func (e *Engine) Header() Header         { return e.header }

// Rand is the match RNG, seeded from the map descriptor.
func (e *Engine) Rand() *rand.Rand { return e.rng }

// RunRound advances the match by one round and writes its record. A driver
// fault or invariant violation aborts the match; the round is still
// recorded. The returned error is reserved for recorder failures and
// ErrMatchOver.
func (e *Engine) RunRound(ctx context.Context) (RoundRecord, error) {
	if e.state.Outcome().Final() {
		return RoundRecord{}, ErrMatchOver
	}
	round := e.state.NextRound()

	if err := e.safely(func() error { return e.runner.Round(ctx, round) }); err != nil {
		e.abort(round, err)
	}

	rr := RoundRecord{
		Round:  round,
		Events: e.state.Bus().Drain(),
		Teams:  e.ledger.Last(),
		Digest: strconv.FormatUint(e.state.Digest(), 16),
	}
	if err := e.rec.WriteRound(rr); err != nil {
		return rr, fmt.Errorf("write round %d: %w", round, err)
	}
	if out := e.state.Outcome(); out.Decided() {
		e.log.Info("match decided",
			zap.Stringer("winner", out.Winner),
			zap.String("factor", string(out.Factor)),
			zap.Int("round", out.Round))
	}
	return rr, nil
}

// Run plays rounds until the outcome is final, then writes the footer and
// notifies the driver. A cancelled context aborts the match.
func (e *Engine) Run(ctx context.Context) (world.Outcome, error) {
	for !e.state.Outcome().Final() {
		if err := ctx.Err(); err != nil {
			e.state.Abort(err.Error())
			e.log.Warn("match cancelled", zap.Int("round", e.state.Round()), zap.Error(err))
			break
		}
		if _, err := e.RunRound(ctx); err != nil {
			return e.state.Outcome(), err
		}
	}
	return e.finish()
}

func (e *Engine) finish() (world.Outcome, error) {
	out := e.state.Outcome()
	if e.finished {
		return out, nil
	}
	e.finished = true
	if err := e.rec.WriteFooter(Footer{MatchID: e.opts.MatchID, Rounds: e.state.Round(), Outcome: out}); err != nil {
		return out, fmt.Errorf("write footer: %w", err)
	}
	if err := e.safely(func() error { e.driver.MatchEnded(out); return nil }); err != nil {
		e.log.Error("driver match end", zap.Error(err))
	}
	e.log.Info("match ended",
		zap.Stringer("winner", out.Winner),
		zap.Bool("aborted", out.Aborted),
		zap.Int("rounds", e.state.Round()))
	return out, nil
}

// AbortTurn closes the gateway of the agent currently running, if it is id.
// Safe to call from any goroutine; the driver sees ErrTurnOver on its next
// call.
func (e *Engine) AbortTurn(id ecs.EntityID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil || e.current.Caller() != id {
		return false
	}
	e.current.Close()
	return true
}

func (e *Engine) setCurrent(g *gateway.Gateway) {
	e.mu.Lock()
	e.current = g
	e.mu.Unlock()
}

func (e *Engine) abort(round int, err error) {
	reason := err.Error()
	if errors.Is(err, world.ErrInvariant) {
		e.log.Error("invariant violation", zap.Int("round", round), zap.Error(err))
	} else {
		e.log.Error("driver fault", zap.Int("round", round), zap.Error(err))
	}
	e.state.Abort(reason)
}

// safely converts a panic in fn into an error.
func (e *Engine) safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
