package scripting

import (
	"errors"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/world"
)

// The rc table is built once per VM; its functions read the gateway of the
// turn in progress. A rejected request returns nil, kind, message. An ended
// turn raises a Lua error so the bot unwinds instead of spinning.

func (v *vm) bindAPI() {
	L := v.L
	v.api = L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		// queries
		"round":          v.round,
		"width":          v.width,
		"height":         v.height,
		"origin":         v.origin,
		"team":           v.team,
		"spawn":          v.spawn,
		"reserve":        v.reserve,
		"harvested":      v.harvested,
		"agent_count":    v.agentCount,
		"agent":          v.agent,
		"can_sense":      v.canSense,
		"location":       v.location,
		"health":         v.health,
		"cooldown":       v.cooldown,
		"is_ready":       v.isReady,
		"adjacent":       v.adjacent,
		"on_map":         v.onMap,
		"occupied":       v.occupied,
		"agent_at":       v.agentAt,
		"wall":           v.wall,
		"resource":       v.resource,
		"nearby":         v.nearby,
		"nearby_of":      v.nearbyOf,
		"resources_near": v.resourcesNear,
		"locations":      v.locations,
		"used":           v.used,

		// actions
		"can_move":             v.canMove,
		"move":                 v.move,
		"can_harvest":          v.canHarvest,
		"harvest":              v.harvest,
		"can_build":            v.canBuild,
		"build":                v.build,
		"can_explode":          v.canExplode,
		"explode":              v.explode,
		"can_disintegrate":     v.canDisintegrate,
		"disintegrate":         v.disintegrate,
		"can_resign":           v.canResign,
		"resign":               v.resign,
		"can_indicator_string": v.canIndicatorString,
		"indicator_string":     v.indicatorString,
		"can_indicator_dot":    v.canIndicatorDot,
		"indicator_dot":        v.indicatorDot,
		"can_indicator_line":   v.canIndicatorLine,
		"indicator_line":       v.indicatorLine,
	})

	dirs := L.NewTable()
	for _, d := range grid.AllDirections {
		dirs.Append(lua.LString(d.String()))
	}
	v.api.RawSetString("directions", dirs)
	v.api.RawSetString("UNBOUNDED", lua.LNumber(gateway.Unbounded))
}

// gw returns the live gateway or raises when no turn is running, e.g. a bot
// calling rc from init.
func (v *vm) gw(L *lua.LState) *gateway.Gateway {
	if v.current == nil {
		L.RaiseError("no turn in progress")
	}
	return v.current
}

// turnOver raises for the two errors that end the turn.
func turnOver(L *lua.LState, err error) {
	if errors.Is(err, gateway.ErrTurnOver) || errors.Is(err, gateway.ErrBudgetExceeded) {
		L.RaiseError("%s", err.Error())
	}
}

// ret pushes vals on success, or nil, kind, message on a rejected request.
func ret(L *lua.LState, err error, vals ...lua.LValue) int {
	if err != nil {
		turnOver(L, err)
		L.Push(lua.LNil)
		L.Push(lua.LString(gateway.KindOf(err)))
		L.Push(lua.LString(err.Error()))
		return 3
	}
	if len(vals) == 0 {
		L.Push(lua.LTrue)
		return 1
	}
	for _, val := range vals {
		L.Push(val)
	}
	return len(vals)
}

// can pushes the answer of a can_ predicate. Predicates are free, but one
// asked after the turn ended raises like any other call.
func can(L *lua.LState, g *gateway.Gateway, ok bool) int {
	if g.Closed() {
		L.RaiseError("%s", gateway.ErrTurnOver.Error())
	}
	L.Push(lua.LBool(ok))
	return 1
}

// --- argument conversion ---

// checkID rejects ids that are not whole numbers in the entity id range.
func checkID(L *lua.LState, n int) ecs.EntityID {
	v := float64(L.CheckNumber(n))
	if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
		L.ArgError(n, "agent id out of range")
	}
	return ecs.EntityID(v)
}

func checkDir(L *lua.LState, n int) grid.Direction {
	d, ok := grid.ParseDirection(L.CheckString(n))
	if !ok {
		L.ArgError(n, "unknown direction")
	}
	return d
}

// checkLoc accepts a {x=, y=} table.
func checkLoc(L *lua.LState, n int) grid.Location {
	t := L.CheckTable(n)
	x, okx := t.RawGetString("x").(lua.LNumber)
	y, oky := t.RawGetString("y").(lua.LNumber)
	if !okx || !oky {
		L.ArgError(n, "location needs numeric x and y")
	}
	if math.Abs(float64(x)) > grid.MaxCoord || math.Abs(float64(y)) > grid.MaxCoord {
		L.ArgError(n, "location out of range")
	}
	return grid.Loc(int(x), int(y))
}

// optTeam reads "A", "B" or nil; def is used for nil.
func optTeam(L *lua.LState, n int, def world.Team) world.Team {
	if L.Get(n) == lua.LNil {
		return def
	}
	t, err := world.ParseTeam(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return t
}

func optRadius(L *lua.LState, n int) int {
	return L.OptInt(n, gateway.Unbounded)
}

func checkRGB(L *lua.LState, n int) [3]int {
	return [3]int{L.CheckInt(n), L.CheckInt(n + 1), L.CheckInt(n + 2)}
}

func pushLoc(L *lua.LState, loc grid.Location) lua.LValue {
	t := L.CreateTable(0, 2)
	t.RawSetString("x", lua.LNumber(loc.X))
	t.RawSetString("y", lua.LNumber(loc.Y))
	return t
}

func pushLocs(L *lua.LState, locs []grid.Location) lua.LValue {
	t := L.CreateTable(len(locs), 0)
	for _, loc := range locs {
		t.Append(pushLoc(L, loc))
	}
	return t
}

func pushAgent(L *lua.LState, info world.AgentInfo) lua.LValue {
	t := L.CreateTable(0, 5)
	t.RawSetString("id", lua.LNumber(info.ID))
	t.RawSetString("team", lua.LString(info.Team.String()))
	t.RawSetString("kind", lua.LString(info.Kind.String()))
	t.RawSetString("health", lua.LNumber(info.Health))
	if info.Location != nil {
		t.RawSetString("location", pushLoc(L, *info.Location))
	}
	return t
}

func pushAgents(L *lua.LState, infos []world.AgentInfo) lua.LValue {
	t := L.CreateTable(len(infos), 0)
	for _, info := range infos {
		t.Append(pushAgent(L, info))
	}
	return t
}

// --- queries ---

func (v *vm) round(L *lua.LState) int {
	n, err := v.gw(L).RoundNum()
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) width(L *lua.LState) int {
	n, err := v.gw(L).MapWidth()
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) height(L *lua.LState) int {
	n, err := v.gw(L).MapHeight()
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) origin(L *lua.LState) int {
	loc, err := v.gw(L).Origin()
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushLoc(L, loc))
}

func (v *vm) team(L *lua.LState) int {
	L.Push(lua.LString(v.gw(L).Team().String()))
	return 1
}

func (v *vm) spawn(L *lua.LState) int {
	loc, err := v.gw(L).SpawnLocation()
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushLoc(L, loc))
}

func (v *vm) reserve(L *lua.LState) int {
	g := v.gw(L)
	n, err := g.TeamReserve(optTeam(L, 1, g.Team()))
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) harvested(L *lua.LState) int {
	g := v.gw(L)
	n, err := g.TeamHarvested(optTeam(L, 1, g.Team()))
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) agentCount(L *lua.LState) int {
	n, err := v.gw(L).AgentCount()
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) agent(L *lua.LState) int {
	info, err := v.gw(L).AgentInfo(checkID(L, 1))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushAgent(L, info))
}

func (v *vm) canSense(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanSenseAgent(checkID(L, 1)))
}

func (v *vm) location(L *lua.LState) int {
	loc, err := v.gw(L).AgentLocation(checkID(L, 1))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushLoc(L, loc))
}

func (v *vm) health(L *lua.LState) int {
	h, err := v.gw(L).AgentHealth(checkID(L, 1))
	return ret(L, err, lua.LNumber(h))
}

func (v *vm) cooldown(L *lua.LState) int {
	n, err := v.gw(L).AgentCooldown(checkID(L, 1))
	return ret(L, err, lua.LNumber(n))
}

func (v *vm) isReady(L *lua.LState) int {
	ok, err := v.gw(L).IsReady(checkID(L, 1))
	return ret(L, err, lua.LBool(ok))
}

func (v *vm) adjacent(L *lua.LState) int {
	loc, err := v.gw(L).AdjacentLocation(checkID(L, 1), checkDir(L, 2))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushLoc(L, loc))
}

func (v *vm) onMap(L *lua.LState) int {
	ok, err := v.gw(L).OnTheMap(checkLoc(L, 1))
	return ret(L, err, lua.LBool(ok))
}

func (v *vm) occupied(L *lua.LState) int {
	ok, err := v.gw(L).IsLocationOccupied(checkLoc(L, 1))
	return ret(L, err, lua.LBool(ok))
}

// agentAt returns false, not nil, for an empty tile so nil keeps meaning
// a rejected request.
func (v *vm) agentAt(L *lua.LState) int {
	info, err := v.gw(L).SenseAgentAtLocation(checkLoc(L, 1))
	if err != nil {
		return ret(L, err)
	}
	if info == nil {
		return ret(L, nil, lua.LFalse)
	}
	return ret(L, nil, pushAgent(L, *info))
}

func (v *vm) wall(L *lua.LState) int {
	ok, err := v.gw(L).SenseWall(checkLoc(L, 1))
	return ret(L, err, lua.LBool(ok))
}

func (v *vm) resource(L *lua.LState) int {
	n, err := v.gw(L).SenseResource(checkLoc(L, 1))
	return ret(L, err, lua.LNumber(n))
}

// nearby(center, r2?, team?)
func (v *vm) nearby(L *lua.LState) int {
	infos, err := v.gw(L).SenseNearbyAgents(checkLoc(L, 1), optRadius(L, 2), optTeam(L, 3, world.TeamNone))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushAgents(L, infos))
}

// nearby_of(id, r2?, team?)
func (v *vm) nearbyOf(L *lua.LState) int {
	infos, err := v.gw(L).SenseNearbyAgentsOf(checkID(L, 1), optRadius(L, 2), optTeam(L, 3, world.TeamNone))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushAgents(L, infos))
}

// resources_near(center, r2?, min?)
func (v *vm) resourcesNear(L *lua.LState) int {
	locs, err := v.gw(L).SenseNearbyLocationsWithResource(checkLoc(L, 1), optRadius(L, 2), L.OptInt(3, 1))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushLocs(L, locs))
}

func (v *vm) locations(L *lua.LState) int {
	locs, err := v.gw(L).AllLocationsWithinRadiusSquared(checkLoc(L, 1), L.CheckInt(2))
	if err != nil {
		return ret(L, err)
	}
	return ret(L, nil, pushLocs(L, locs))
}

// used is free: it reports the units charged so far this turn.
func (v *vm) used(L *lua.LState) int {
	L.Push(lua.LNumber(v.gw(L).Used()))
	return 1
}

// --- actions ---

func (v *vm) canMove(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanMove(checkID(L, 1), checkDir(L, 2)))
}

func (v *vm) move(L *lua.LState) int {
	return ret(L, v.gw(L).Move(checkID(L, 1), checkDir(L, 2)))
}

func (v *vm) canHarvest(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanHarvest(checkID(L, 1)))
}

func (v *vm) harvest(L *lua.LState) int {
	return ret(L, v.gw(L).Harvest(checkID(L, 1)))
}

func (v *vm) canBuild(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanBuild(L.CheckInt(1)))
}

func (v *vm) build(L *lua.LState) int {
	id, err := v.gw(L).Build(L.CheckInt(1))
	return ret(L, err, lua.LNumber(id))
}

func (v *vm) canExplode(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanExplode(checkID(L, 1)))
}

func (v *vm) explode(L *lua.LState) int {
	return ret(L, v.gw(L).Explode(checkID(L, 1)))
}

func (v *vm) canDisintegrate(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanDisintegrate(checkID(L, 1)))
}

func (v *vm) disintegrate(L *lua.LState) int {
	return ret(L, v.gw(L).Disintegrate(checkID(L, 1)))
}

func (v *vm) canResign(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanResign())
}

func (v *vm) resign(L *lua.LState) int {
	return ret(L, v.gw(L).Resign())
}

func (v *vm) canIndicatorString(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanSetIndicatorString(checkID(L, 1)))
}

func (v *vm) indicatorString(L *lua.LState) int {
	return ret(L, v.gw(L).SetIndicatorString(checkID(L, 1), L.CheckString(2)))
}

// can_indicator_dot(id, loc, r, g, b)
func (v *vm) canIndicatorDot(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanSetIndicatorDot(checkID(L, 1), checkLoc(L, 2), checkRGB(L, 3)))
}

// indicator_dot(id, loc, r, g, b)
func (v *vm) indicatorDot(L *lua.LState) int {
	return ret(L, v.gw(L).SetIndicatorDot(checkID(L, 1), checkLoc(L, 2), checkRGB(L, 3)))
}

func (v *vm) canIndicatorLine(L *lua.LState) int {
	g := v.gw(L)
	return can(L, g, g.CanSetIndicatorLine(checkID(L, 1), checkLoc(L, 2), checkLoc(L, 3), checkRGB(L, 4)))
}

// indicator_line(id, from, to, r, g, b)
func (v *vm) indicatorLine(L *lua.LState) int {
	return ret(L, v.gw(L).SetIndicatorLine(checkID(L, 1), checkLoc(L, 2), checkLoc(L, 3), checkRGB(L, 4)))
}
