package gateway

import (
	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

// --- global ---

func (g *Gateway) RoundNum() (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	return g.state.Round(), nil
}

func (g *Gateway) MapWidth() (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	return g.state.Bounds().Width, nil
}

func (g *Gateway) MapHeight() (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	return g.state.Bounds().Height, nil
}

// Origin is the minimum corner of the map.
func (g *Gateway) Origin() (grid.Location, error) {
	if _, err := g.prologue(); err != nil {
		return grid.Location{}, err
	}
	return g.state.Bounds().Origin, nil
}

// Team is the caller's side. It stays answerable after a resign.
func (g *Gateway) Team() world.Team { return g.team }

func (g *Gateway) SpawnLocation() (grid.Location, error) {
	if _, err := g.prologue(); err != nil {
		return grid.Location{}, err
	}
	return g.state.Spawn(g.team), nil
}

func (g *Gateway) TeamReserve(t world.Team) (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	if !t.Valid() {
		return 0, fail(ErrInvalidRequest, "team %s", t)
	}
	return g.state.Ledger().Reserve(t), nil
}

func (g *Gateway) TeamHarvested(t world.Team) (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	if !t.Valid() {
		return 0, fail(ErrInvalidRequest, "team %s", t)
	}
	return g.state.Ledger().Harvested(t), nil
}

// AgentCount is the caller team's live combat agents.
func (g *Gateway) AgentCount() (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	return g.state.Registry().Count(g.team, world.KindCombat), nil
}

// --- per agent ---

// AgentInfo snapshots any live agent.
func (g *Gateway) AgentInfo(id ecs.EntityID) (world.AgentInfo, error) {
	if _, err := g.prologue(); err != nil {
		return world.AgentInfo{}, err
	}
	a, ok := g.state.Registry().Get(id)
	if !ok {
		return world.AgentInfo{}, fail(ErrCannotSense, "agent %d", id)
	}
	return a.Info(), nil
}

func (g *Gateway) CanSenseAgent(id ecs.EntityID) bool {
	if !g.live() {
		return false
	}
	if _, err := g.coordinator(); err != nil {
		return false
	}
	_, ok := g.state.Registry().Get(id)
	return ok
}

func (g *Gateway) AgentLocation(id ecs.EntityID) (grid.Location, error) {
	if _, err := g.prologue(); err != nil {
		return grid.Location{}, err
	}
	a, err := g.sensed(id)
	if err != nil {
		return grid.Location{}, err
	}
	return a.Location, nil
}

func (g *Gateway) AgentHealth(id ecs.EntityID) (float64, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	a, err := g.sensed(id)
	if err != nil {
		return 0, err
	}
	return a.Health, nil
}

// AgentCooldown only answers for the caller's own agents.
func (g *Gateway) AgentCooldown(id ecs.EntityID) (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	a, err := g.own(id)
	if err != nil {
		return 0, err
	}
	return a.Cooldown, nil
}

func (g *Gateway) IsReady(id ecs.EntityID) (bool, error) {
	if _, err := g.prologue(); err != nil {
		return false, err
	}
	a, err := g.own(id)
	if err != nil {
		return false, err
	}
	return a.IsReady(g.state.Rules()), nil
}

// AdjacentLocation is the tile one step from the agent in dir.
func (g *Gateway) AdjacentLocation(id ecs.EntityID, dir grid.Direction) (grid.Location, error) {
	if _, err := g.prologue(); err != nil {
		return grid.Location{}, err
	}
	if !dir.Valid() {
		return grid.Location{}, fail(ErrInvalidRequest, "direction %d", dir)
	}
	a, err := g.sensed(id)
	if err != nil {
		return grid.Location{}, err
	}
	return a.Location.Add(dir), nil
}

// --- tiles ---

func (g *Gateway) OnTheMap(loc grid.Location) (bool, error) {
	if _, err := g.prologue(); err != nil {
		return false, err
	}
	return g.state.OnTheMap(loc), nil
}

func (g *Gateway) IsLocationOccupied(loc grid.Location) (bool, error) {
	if _, err := g.prologue(); err != nil {
		return false, err
	}
	if err := g.onMap(loc); err != nil {
		return false, err
	}
	return g.state.Registry().At(loc) != nil, nil
}

// SenseAgentAtLocation returns nil, nil for an empty tile.
func (g *Gateway) SenseAgentAtLocation(loc grid.Location) (*world.AgentInfo, error) {
	if _, err := g.prologue(); err != nil {
		return nil, err
	}
	if err := g.onMap(loc); err != nil {
		return nil, err
	}
	a := g.state.Registry().At(loc)
	if a == nil {
		return nil, nil
	}
	info := a.Info()
	return &info, nil
}

func (g *Gateway) SenseWall(loc grid.Location) (bool, error) {
	if _, err := g.prologue(); err != nil {
		return false, err
	}
	if err := g.onMap(loc); err != nil {
		return false, err
	}
	return g.state.Wall(loc), nil
}

func (g *Gateway) SenseResource(loc grid.Location) (int, error) {
	if _, err := g.prologue(); err != nil {
		return 0, err
	}
	if err := g.onMap(loc); err != nil {
		return 0, err
	}
	return g.state.Resource(loc), nil
}

// SenseNearbyAgents lists combat agents within r2 of center, optionally
// filtered to one team (TeamNone means both). r2 may be Unbounded.
func (g *Gateway) SenseNearbyAgents(center grid.Location, r2 int, team world.Team) ([]world.AgentInfo, error) {
	if _, err := g.prologue(); err != nil {
		return nil, err
	}
	if err := g.onMap(center); err != nil {
		return nil, err
	}
	rad, err := radius(r2)
	if err != nil {
		return nil, err
	}
	out := []world.AgentInfo{}
	for _, a := range g.state.Registry().Within(center, rad) {
		if team.Valid() && a.Team != team {
			continue
		}
		out = append(out, a.Info())
	}
	return out, nil
}

// SenseNearbyAgentsOf centres the scan on one of the caller's agents and
// leaves that agent out.
func (g *Gateway) SenseNearbyAgentsOf(id ecs.EntityID, r2 int, team world.Team) ([]world.AgentInfo, error) {
	if _, err := g.prologue(); err != nil {
		return nil, err
	}
	a, err := g.own(id)
	if err != nil {
		return nil, err
	}
	rad, err := radius(r2)
	if err != nil {
		return nil, err
	}
	out := []world.AgentInfo{}
	for _, b := range g.state.Registry().Within(a.Location, rad) {
		if b.ID == a.ID || (team.Valid() && b.Team != team) {
			continue
		}
		out = append(out, b.Info())
	}
	return out, nil
}

// SenseNearbyLocationsWithResource lists tiles within r2 of center holding
// at least minAmount.
func (g *Gateway) SenseNearbyLocationsWithResource(center grid.Location, r2, minAmount int) ([]grid.Location, error) {
	if _, err := g.prologue(); err != nil {
		return nil, err
	}
	if err := g.onMap(center); err != nil {
		return nil, err
	}
	rad, err := radius(r2)
	if err != nil {
		return nil, err
	}
	minAmount = max(minAmount, 1)
	out := []grid.Location{}
	for _, loc := range world.LocationsWithin(g.state.Bounds(), center, rad) {
		if g.state.Resource(loc) >= minAmount {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (g *Gateway) AllLocationsWithinRadiusSquared(center grid.Location, r2 int) ([]grid.Location, error) {
	if _, err := g.prologue(); err != nil {
		return nil, err
	}
	if err := g.onMap(center); err != nil {
		return nil, err
	}
	rad, err := radius(r2)
	if err != nil {
		return nil, err
	}
	return world.LocationsWithin(g.state.Bounds(), center, rad), nil
}
