package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
)

// Registry owns the live agents, indexed by id and by tile. A tile holds at
// most one positional agent. Single-goroutine access only (round loop).
type Registry struct {
	bounds Bounds
	agents *ecs.PtrComponentStore[Agent]
	cells  []ecs.EntityID
	counts [2][len(Kinds)]int
}

func NewRegistry(b Bounds) *Registry {
	cells := make([]ecs.EntityID, b.Cells())
	for i := range cells {
		cells[i] = ecs.NoEntity
	}
	return &Registry{
		bounds: b,
		agents: ecs.NewPtrComponentStore[Agent](),
		cells:  cells,
	}
}

func (r *Registry) Bounds() Bounds { return r.bounds }

// Add registers an agent. Positional agents also occupy their tile unless
// detached is set, which build-into-enemy uses before resolving collision.
func (r *Registry) Add(a *Agent, detached bool) error {
	if r.agents.Has(a.ID) {
		return fmt.Errorf("agent %d already registered", a.ID)
	}
	if a.Positional() && !detached {
		if err := r.Occupy(a, a.Location); err != nil {
			return err
		}
	}
	r.agents.Set(a.ID, a)
	if a.Team.Valid() && a.Kind.Valid() {
		r.counts[a.Team][a.Kind]++
	}
	return nil
}

// Remove drops the agent and vacates its tile in the same step.
func (r *Registry) Remove(id ecs.EntityID) (*Agent, bool) {
	a, ok := r.agents.Get(id)
	if !ok {
		return nil, false
	}
	if a.Positional() && r.bounds.OnTheMap(a.Location) && r.cells[r.bounds.Index(a.Location)] == id {
		r.cells[r.bounds.Index(a.Location)] = ecs.NoEntity
	}
	r.agents.Remove(id)
	if a.Team.Valid() && a.Kind.Valid() {
		r.counts[a.Team][a.Kind]--
	}
	return a, true
}

func (r *Registry) Get(id ecs.EntityID) (*Agent, bool) {
	return r.agents.Get(id)
}

// At returns the agent on loc, or nil.
func (r *Registry) At(loc grid.Location) *Agent {
	if !r.bounds.OnTheMap(loc) {
		return nil
	}
	id := r.cells[r.bounds.Index(loc)]
	if id == ecs.NoEntity {
		return nil
	}
	a, _ := r.agents.Get(id)
	return a
}

// Occupy places a positional agent on loc, which must be empty.
func (r *Registry) Occupy(a *Agent, loc grid.Location) error {
	if !r.bounds.OnTheMap(loc) {
		return fmt.Errorf("agent %d: %s off the map", a.ID, loc)
	}
	idx := r.bounds.Index(loc)
	if cur := r.cells[idx]; cur != ecs.NoEntity && cur != a.ID {
		return fmt.Errorf("agent %d: %s held by %d", a.ID, loc, cur)
	}
	r.cells[idx] = a.ID
	a.Location = loc
	return nil
}

// Vacate clears loc if it is held by id.
func (r *Registry) Vacate(loc grid.Location, id ecs.EntityID) {
	if !r.bounds.OnTheMap(loc) {
		return
	}
	idx := r.bounds.Index(loc)
	if r.cells[idx] == id {
		r.cells[idx] = ecs.NoEntity
	}
}

// Move relocates a positional agent to an empty tile.
func (r *Registry) Move(a *Agent, to grid.Location) error {
	from := a.Location
	if err := r.Occupy(a, to); err != nil {
		return err
	}
	if from != to {
		r.Vacate(from, a.ID)
	}
	return nil
}

// Len counts every live agent, coordinators included.
func (r *Registry) Len() int { return r.agents.Len() }

// Count returns the live agents of team t and kind k.
func (r *Registry) Count(t Team, k Kind) int {
	if !t.Valid() || !k.Valid() {
		return 0
	}
	return r.counts[t][k]
}

// Each visits agents in ascending id order.
func (r *Registry) Each(fn func(*Agent)) {
	r.agents.Each(func(_ ecs.EntityID, a *Agent) { fn(a) })
}

// ExecOrder snapshots the ids in turn order: rounds alive descending, then
// id ascending. Callers re-check existence before dispatching each id.
func (r *Registry) ExecOrder() []ecs.EntityID {
	ids := r.agents.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		a, _ := r.agents.Get(ids[i])
		b, _ := r.agents.Get(ids[j])
		if a.RoundsAlive != b.RoundsAlive {
			return a.RoundsAlive > b.RoundsAlive
		}
		return a.ID < b.ID
	})
	return ids
}

// Within returns the positional agents within r2 of center, in row-major
// tile order.
func (r *Registry) Within(center grid.Location, r2 int) []*Agent {
	var out []*Agent
	for _, loc := range LocationsWithin(r.bounds, center, r2) {
		if a := r.At(loc); a != nil {
			out = append(out, a)
		}
	}
	return out
}

// LocationsWithin lists the on-map tiles within r2 of center in row-major
// order. The scan is clipped to the map so huge radii stay cheap.
func LocationsWithin(b Bounds, center grid.Location, r2 int) []grid.Location {
	if r2 < 0 {
		return nil
	}
	minX, maxX := b.Origin.X, b.Origin.X+b.Width-1
	minY, maxY := b.Origin.Y, b.Origin.Y+b.Height-1
	if rad := isqrtCeil(r2); rad < b.Width+b.Height {
		minX = max(minX, center.X-rad)
		maxX = min(maxX, center.X+rad)
		minY = max(minY, center.Y-rad)
		maxY = min(maxY, center.Y+rad)
	}
	var out []grid.Location
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			loc := grid.Loc(x, y)
			if center.DistanceSquaredTo(loc) <= r2 {
				out = append(out, loc)
			}
		}
	}
	return out
}

func isqrtCeil(n int) int {
	return int(math.Ceil(math.Sqrt(float64(n))))
}
