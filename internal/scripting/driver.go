package scripting

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/engine"
	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/world"
)

// Options configures the bots and the limits of their VMs.
type Options struct {
	Bots [2]Bot // indexed by team

	// TurnTimeout bounds the wall time of one turn. Zero means no limit;
	// the compute budget still applies.
	TurnTimeout time.Duration

	CallStackSize   int // gopher-lua default when zero
	RegistryMaxSize int // zero keeps the registry at its initial size
}

// Driver runs one Lua bot per team behind the engine.Driver contract. A bot
// that raises an error is terminated and its coordinator dies at the end of
// the turn; only a broken VM setup aborts the match.
type Driver struct {
	opts Options
	log  *zap.Logger

	vms        [2]*vm
	teams      map[ecs.EntityID]world.Team // live coordinators
	used       map[ecs.EntityID]int
	terminated map[ecs.EntityID]bool
	round      int
}

var _ engine.Driver = (*Driver)(nil)

func NewDriver(opts Options, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		opts:       opts,
		log:        log,
		teams:      make(map[ecs.EntityID]world.Team),
		used:       make(map[ecs.EntityID]int),
		terminated: make(map[ecs.EntityID]bool),
	}
}

// MatchStarted loads both bots and runs their optional init(match) hook.
func (d *Driver) MatchStarted(info engine.MatchInfo) error {
	for _, t := range world.Teams {
		v, err := newVM(d.opts.Bots[t], d.opts, info.Rand, d.log.With(zap.Stringer("team", t)))
		if err != nil {
			d.closeVMs()
			return fmt.Errorf("team %s: %w", t, err)
		}
		d.vms[t] = v
	}
	for _, t := range world.Teams {
		v := d.vms[t]
		m := v.L.CreateTable(0, 8)
		m.RawSetString("id", lua.LString(info.MatchID))
		m.RawSetString("map", lua.LString(info.Map))
		m.RawSetString("team", lua.LString(t.String()))
		m.RawSetString("seed", lua.LNumber(info.Seed))
		m.RawSetString("rounds", lua.LNumber(info.RoundLimit))
		m.RawSetString("width", lua.LNumber(info.Bounds.Width))
		m.RawSetString("height", lua.LNumber(info.Bounds.Height))
		if _, _, err := v.call("init", 0, m); err != nil {
			d.closeVMs()
			return fmt.Errorf("team %s init: %w", t, err)
		}
	}
	return nil
}

func (d *Driver) RoundStarted(round int) { d.round = round }

func (d *Driver) RoundEnded(int) {}

// RunAgent calls turn(rc, id) in the coordinator's team VM.
func (d *Driver) RunAgent(ctx context.Context, g *gateway.Gateway) error {
	id := g.Caller()
	team, ok := d.teams[id]
	if !ok {
		return fmt.Errorf("agent %d is not a known coordinator", id)
	}
	v := d.vms[team]
	if v == nil {
		return fmt.Errorf("team %s has no bot loaded", team)
	}

	tctx := ctx
	if d.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, d.opts.TurnTimeout)
		defer cancel()
	}
	v.current = g
	v.L.SetContext(tctx)
	defer func() {
		v.L.RemoveContext()
		v.current = nil
		d.used[id] = g.Used()
	}()

	res, _, err := v.call("turn", 1, v.api, lua.LNumber(id))
	switch {
	case err == nil:
		if res == lua.LFalse {
			d.terminate(id, "turn returned false")
		}
		return nil
	case g.Closed() || tctx.Err() != nil:
		d.log.Debug("turn cut short",
			zap.Int32("agent", int32(id)),
			zap.Int("round", d.round),
			zap.Bool("exhausted", g.Exhausted()),
			zap.Error(err))
		return engine.ErrTurnAborted
	default:
		d.terminate(id, err.Error())
		return nil
	}
}

func (d *Driver) terminate(id ecs.EntityID, reason string) {
	d.terminated[id] = true
	d.log.Warn("bot terminated",
		zap.Int32("agent", int32(id)),
		zap.Int("round", d.round),
		zap.String("reason", reason))
}

func (d *Driver) ComputeUsed(id ecs.EntityID) int { return d.used[id] }

func (d *Driver) IsTerminated(id ecs.EntityID) bool { return d.terminated[id] }

func (d *Driver) AgentSpawned(info world.AgentInfo) {
	if info.Kind == world.KindCoordinator {
		d.teams[info.ID] = info.Team
	}
}

func (d *Driver) AgentDestroyed(info world.AgentInfo) {
	delete(d.teams, info.ID)
	delete(d.used, info.ID)
}

// MatchEnded runs the optional finish(winner) hook and releases the VMs.
func (d *Driver) MatchEnded(out world.Outcome) {
	for _, t := range world.Teams {
		v := d.vms[t]
		if v == nil {
			continue
		}
		if _, _, err := v.call("finish", 0, lua.LString(out.Winner.String())); err != nil {
			d.log.Warn("bot finish hook", zap.Stringer("team", t), zap.Error(err))
		}
	}
	d.closeVMs()
}

func (d *Driver) closeVMs() {
	for i, v := range d.vms {
		if v != nil {
			v.close()
			d.vms[i] = nil
		}
	}
}
