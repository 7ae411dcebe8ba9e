package gateway

import (
	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/event"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

// Every mutation below is a check/apply pair. The check is pure and runs
// the fixed order: caller kind, existence, bounds, readiness, then the
// action's own conditions. Can* runs only the check and is never charged;
// the mutator is charged, re-runs the check and applies nothing unless it
// passes.

func (g *Gateway) ready(a *world.Agent) error {
	if !a.IsReady(g.state.Rules()) {
		return fail(ErrNotReady, "agent %d cooldown %d", a.ID, a.Cooldown)
	}
	return nil
}

// --- move ---

func (g *Gateway) checkMove(id ecs.EntityID, dir grid.Direction) (*world.Agent, error) {
	if _, err := g.coordinator(); err != nil {
		return nil, err
	}
	if !dir.Valid() || dir == grid.Center {
		return nil, fail(ErrInvalidRequest, "direction %d", dir)
	}
	a, err := g.own(id)
	if err != nil {
		return nil, err
	}
	to := a.Location.Add(dir)
	if !g.state.OnTheMap(to) {
		return nil, fail(ErrOutOfRange, "%s is not on the map", to)
	}
	if err := g.ready(a); err != nil {
		return nil, err
	}
	if g.state.Wall(to) {
		return nil, fail(ErrIllegalTarget, "%s is a wall", to)
	}
	if occ := g.state.Registry().At(to); occ != nil && occ.Team == a.Team {
		return nil, fail(ErrIllegalTarget, "%s holds friendly agent %d", to, occ.ID)
	}
	return a, nil
}

func (g *Gateway) CanMove(id ecs.EntityID, dir grid.Direction) bool {
	if !g.live() {
		return false
	}
	_, err := g.checkMove(id, dir)
	return err == nil
}

// Move steps the agent one tile. Moving onto an enemy resolves a collision
// and the agent relocates only if it survives.
func (g *Gateway) Move(id ecs.EntityID, dir grid.Direction) error {
	if err := g.enter(); err != nil {
		return err
	}
	a, err := g.checkMove(id, dir)
	if err != nil {
		return err
	}
	return g.state.MoveAgent(a, dir)
}

// --- harvest ---

func (g *Gateway) checkHarvest(id ecs.EntityID) (*world.Agent, error) {
	if _, err := g.coordinator(); err != nil {
		return nil, err
	}
	a, err := g.own(id)
	if err != nil {
		return nil, err
	}
	if !g.state.OnTheMap(a.Location) {
		return nil, fail(ErrOutOfRange, "%s is not on the map", a.Location)
	}
	if err := g.ready(a); err != nil {
		return nil, err
	}
	if g.state.Resource(a.Location) < 1 {
		return nil, fail(ErrIllegalTarget, "no resource at %s", a.Location)
	}
	return a, nil
}

func (g *Gateway) CanHarvest(id ecs.EntityID) bool {
	if !g.live() {
		return false
	}
	_, err := g.checkHarvest(id)
	return err == nil
}

func (g *Gateway) Harvest(id ecs.EntityID) error {
	if err := g.enter(); err != nil {
		return err
	}
	a, err := g.checkHarvest(id)
	if err != nil {
		return err
	}
	return g.state.Harvest(a)
}

// --- build ---

func (g *Gateway) checkBuild(health int) error {
	if _, err := g.coordinator(); err != nil {
		return err
	}
	if health < 1 {
		return fail(ErrInvalidRequest, "health %d below 1", health)
	}
	if have := g.state.Ledger().Reserve(g.team); have < health {
		return fail(ErrInsufficientResource, "reserve %d, need %d", have, health)
	}
	spawn := g.state.Spawn(g.team)
	if occ := g.state.Registry().At(spawn); occ != nil && occ.Team == g.team {
		return fail(ErrIllegalTarget, "spawn %s holds friendly agent %d", spawn, occ.ID)
	}
	return nil
}

func (g *Gateway) CanBuild(health int) bool {
	if !g.live() {
		return false
	}
	return g.checkBuild(health) == nil
}

// Build spends health from the reserve on a new agent at the team spawn and
// returns its id. The agent may already be dead if an enemy held the spawn.
func (g *Gateway) Build(health int) (ecs.EntityID, error) {
	if err := g.enter(); err != nil {
		return ecs.NoEntity, err
	}
	if err := g.checkBuild(health); err != nil {
		return ecs.NoEntity, err
	}
	a, err := g.state.Build(g.team, health)
	if err != nil {
		return ecs.NoEntity, err
	}
	return a.ID, nil
}

// --- explode ---

func (g *Gateway) checkExplode(id ecs.EntityID) (*world.Agent, error) {
	if _, err := g.coordinator(); err != nil {
		return nil, err
	}
	a, err := g.own(id)
	if err != nil {
		return nil, err
	}
	if err := g.ready(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (g *Gateway) CanExplode(id ecs.EntityID) bool {
	if !g.live() {
		return false
	}
	_, err := g.checkExplode(id)
	return err == nil
}

// Explode damages adjacent enemies for half the agent's health and destroys
// the agent.
func (g *Gateway) Explode(id ecs.EntityID) error {
	if err := g.enter(); err != nil {
		return err
	}
	a, err := g.checkExplode(id)
	if err != nil {
		return err
	}
	g.state.Explode(a)
	return nil
}

// --- disintegrate ---

func (g *Gateway) checkDisintegrate(id ecs.EntityID) (*world.Agent, error) {
	if _, err := g.coordinator(); err != nil {
		return nil, err
	}
	return g.own(id)
}

func (g *Gateway) CanDisintegrate(id ecs.EntityID) bool {
	if !g.live() {
		return false
	}
	_, err := g.checkDisintegrate(id)
	return err == nil
}

func (g *Gateway) Disintegrate(id ecs.EntityID) error {
	if err := g.enter(); err != nil {
		return err
	}
	a, err := g.checkDisintegrate(id)
	if err != nil {
		return err
	}
	g.state.Disintegrate(a)
	return nil
}

// --- resign ---

func (g *Gateway) CanResign() bool {
	if !g.live() {
		return false
	}
	_, err := g.coordinator()
	return err == nil
}

// Resign forfeits: every agent of the team is destroyed, the caller too,
// so every later call on this gateway fails.
func (g *Gateway) Resign() error {
	if _, err := g.prologue(); err != nil {
		return err
	}
	g.state.Resign(g.team)
	return nil
}

// --- indicators ---

func (g *Gateway) checkIndicator(id ecs.EntityID, rgb [3]int) (*world.Agent, error) {
	if _, err := g.coordinator(); err != nil {
		return nil, err
	}
	a, err := g.own(id)
	if err != nil {
		return nil, err
	}
	for _, c := range rgb {
		if c < 0 || c > 255 {
			return nil, fail(ErrInvalidRequest, "colour component %d", c)
		}
	}
	return a, nil
}

func (g *Gateway) CanSetIndicatorString(id ecs.EntityID) bool {
	if !g.live() {
		return false
	}
	_, err := g.checkIndicator(id, [3]int{})
	return err == nil
}

// SetIndicatorString replaces the agent's debug annotation for the current
// perceived round. Overlong strings are truncated, not rejected.
func (g *Gateway) SetIndicatorString(id ecs.EntityID, s string) error {
	if err := g.enter(); err != nil {
		return err
	}
	a, err := g.checkIndicator(id, [3]int{})
	if err != nil {
		return err
	}
	a.SetDebug(s, g.state.Rules().IndicatorMaxLength)
	return nil
}

// checkMark adds the drawing-target bounds check to checkIndicator.
func (g *Gateway) checkMark(id ecs.EntityID, rgb [3]int, locs ...grid.Location) error {
	if _, err := g.checkIndicator(id, rgb); err != nil {
		return err
	}
	for _, loc := range locs {
		if !g.state.OnTheMap(loc) {
			return fail(ErrOutOfRange, "%s is not on the map", loc)
		}
	}
	return nil
}

func (g *Gateway) CanSetIndicatorDot(id ecs.EntityID, loc grid.Location, rgb [3]int) bool {
	if !g.live() {
		return false
	}
	return g.checkMark(id, rgb, loc) == nil
}

// SetIndicatorDot marks one tile for the replay viewer.
func (g *Gateway) SetIndicatorDot(id ecs.EntityID, loc grid.Location, rgb [3]int) error {
	if err := g.enter(); err != nil {
		return err
	}
	if err := g.checkMark(id, rgb, loc); err != nil {
		return err
	}
	event.Emit(g.state.Bus(), event.IndicatorDot{ID: id, Location: loc, RGB: rgb})
	return nil
}

func (g *Gateway) CanSetIndicatorLine(id ecs.EntityID, start, end grid.Location, rgb [3]int) bool {
	if !g.live() {
		return false
	}
	return g.checkMark(id, rgb, start, end) == nil
}

func (g *Gateway) SetIndicatorLine(id ecs.EntityID, start, end grid.Location, rgb [3]int) error {
	if err := g.enter(); err != nil {
		return err
	}
	if err := g.checkMark(id, rgb, start, end); err != nil {
		return err
	}
	event.Emit(g.state.Bus(), event.IndicatorLine{ID: id, Start: start, End: end, RGB: rgb})
	return nil
}
