// Package gateway is the only surface driver code uses to read or change the
// world. A Gateway is built for one driver call on behalf of one coordinator
// and is useless once the engine closes it.
package gateway

import (
	"sync/atomic"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

// Options meters the calls a driver makes during one turn.
type Options struct {
	ComputeLimit int // 0 means unmetered
	CallCost     int // units charged per call, 1 if zero
}

// Gateway validates and applies requests for one coordinator turn. Not safe
// for concurrent use except Close, which a watchdog may call at any time.
type Gateway struct {
	state  *world.State
	caller ecs.EntityID
	team   world.Team
	opts   Options

	used      int
	exhausted bool
	closed    atomic.Bool
}

// New binds a gateway to the caller's coordinator. The caller's team is
// captured now so a resign mid-turn still reports the right side.
func New(state *world.State, caller ecs.EntityID, opts Options) *Gateway {
	if opts.CallCost <= 0 {
		opts.CallCost = 1
	}
	g := &Gateway{state: state, caller: caller, team: world.TeamNone, opts: opts}
	if a, ok := state.Registry().Get(caller); ok {
		g.team = a.Team
	}
	return g
}

// Close ends the turn: every later call fails with ErrTurnOver.
func (g *Gateway) Close() { g.closed.Store(true) }

func (g *Gateway) Closed() bool { return g.closed.Load() }

// Exhausted reports whether the budget, rather than the engine, closed
// the gateway.
func (g *Gateway) Exhausted() bool { return g.exhausted }

// Used reports the compute units charged so far.
func (g *Gateway) Used() int { return g.used }

func (g *Gateway) Caller() ecs.EntityID { return g.caller }

// enter charges one call and reports whether the turn may continue.
func (g *Gateway) enter() error {
	if g.closed.Load() {
		return fail(ErrTurnOver, "agent %d", g.caller)
	}
	g.used += g.opts.CallCost
	if g.opts.ComputeLimit > 0 && g.used > g.opts.ComputeLimit {
		g.exhausted = true
		g.closed.Store(true)
		return ErrBudgetExceeded
	}
	return nil
}

// live gates the free Can* predicates: they answer false once the turn is
// over but never charge the budget.
func (g *Gateway) live() bool { return !g.closed.Load() }

// coordinator is the caller-kind check shared by every request.
func (g *Gateway) coordinator() (*world.Agent, error) {
	a, ok := g.state.Registry().Get(g.caller)
	if !ok {
		return nil, fail(ErrInvalidRequest, "caller %d no longer exists", g.caller)
	}
	if a.Kind != world.KindCoordinator {
		return nil, fail(ErrInvalidRequest, "only coordinators may issue requests, %d is %s", a.ID, a.Kind)
	}
	return a, nil
}

// own resolves a combat agent the caller may command.
func (g *Gateway) own(id ecs.EntityID) (*world.Agent, error) {
	a, ok := g.state.Registry().Get(id)
	if !ok {
		return nil, fail(ErrIllegalTarget, "agent %d does not exist", id)
	}
	if a.Team != g.team {
		return nil, fail(ErrInvalidRequest, "agent %d belongs to team %s", id, a.Team)
	}
	if !a.Positional() {
		return nil, fail(ErrInvalidRequest, "agent %d is a %s", id, a.Kind)
	}
	return a, nil
}

// sensed resolves any live positional agent.
func (g *Gateway) sensed(id ecs.EntityID) (*world.Agent, error) {
	a, ok := g.state.Registry().Get(id)
	if !ok {
		return nil, fail(ErrCannotSense, "agent %d", id)
	}
	if !a.Positional() {
		return nil, fail(ErrInvalidRequest, "%s agents have no position", a.Kind)
	}
	return a, nil
}

// prologue runs the metering and caller checks every request starts with.
func (g *Gateway) prologue() (*world.Agent, error) {
	if err := g.enter(); err != nil {
		return nil, err
	}
	return g.coordinator()
}

// onMap is the sense-side bounds check.
func (g *Gateway) onMap(loc grid.Location) error {
	if !g.state.OnTheMap(loc) {
		return fail(ErrCannotSense, "%s is not on the map", loc)
	}
	return nil
}

// Unbounded is the radius² sentinel that covers the whole map.
const Unbounded = -1

func radius(r2 int) (int, error) {
	switch {
	case r2 == Unbounded:
		return int(^uint32(0) >> 1), nil
	case r2 < 0:
		return 0, fail(ErrOutOfRange, "radius squared %d is negative", r2)
	}
	return r2, nil
}
