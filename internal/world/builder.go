package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
)

// ErrInvalidMap wraps every descriptor validation failure.
var ErrInvalidMap = errors.New("invalid map")

// MapBuilder assembles a MapDescriptor tile by tile. The Symmetric* setters
// write a tile and its mirror so hand-built maps stay valid.
type MapBuilder struct {
	desc   MapDescriptor
	nextID ecs.EntityID
	rules  Rules
}

// NewMapBuilder starts an empty rotationally symmetric map with both spawns
// at the origin corners.
func NewMapBuilder(name string, width, height int, origin grid.Location, seed int64) *MapBuilder {
	rules := DefaultRules()
	b := &MapBuilder{
		desc: MapDescriptor{
			Name:      name,
			Width:     width,
			Height:    height,
			Origin:    origin,
			Symmetry:  Rotational,
			Seed:      seed,
			Rounds:    rules.DefaultRoundLimit,
			Walls:     make([]bool, width*height),
			Resources: make([]int, width*height),
		},
		rules: rules,
	}
	b.desc.Spawns[TeamA] = origin
	b.desc.Spawns[TeamB] = b.desc.Bounds().Mirror(origin, Rotational)
	return b
}

func (b *MapBuilder) WithRules(r Rules) *MapBuilder {
	b.rules = r
	return b
}

func (b *MapBuilder) SetSymmetry(s Symmetry) *MapBuilder {
	b.desc.Symmetry = s
	return b
}

func (b *MapBuilder) SetRounds(n int) *MapBuilder {
	b.desc.Rounds = n
	return b
}

func (b *MapBuilder) mirror(loc grid.Location) grid.Location {
	return b.desc.Bounds().Mirror(loc, b.desc.Symmetry)
}

func (b *MapBuilder) SetWall(loc grid.Location, wall bool) *MapBuilder {
	b.desc.Walls[b.desc.Bounds().Index(loc)] = wall
	return b
}

func (b *MapBuilder) SetResource(loc grid.Location, amount int) *MapBuilder {
	b.desc.Resources[b.desc.Bounds().Index(loc)] = amount
	return b
}

func (b *MapBuilder) SetSpawn(t Team, loc grid.Location) *MapBuilder {
	b.desc.Spawns[t] = loc
	return b
}

// AddAgent places a combat agent with the next free id. A zero health uses
// the rules' initial health.
func (b *MapBuilder) AddAgent(t Team, loc grid.Location, health float64) ecs.EntityID {
	if health == 0 {
		health = b.rules.InitialHealth
	}
	id := b.nextID
	b.nextID++
	b.desc.Agents = append(b.desc.Agents, InitialAgent{
		ID:       id,
		Team:     t,
		Kind:     KindCombat,
		Location: loc,
		Health:   health,
	})
	return id
}

func (b *MapBuilder) SetSymmetricWall(loc grid.Location, wall bool) *MapBuilder {
	b.SetWall(loc, wall)
	return b.SetWall(b.mirror(loc), wall)
}

func (b *MapBuilder) SetSymmetricResource(loc grid.Location, amount int) *MapBuilder {
	b.SetResource(loc, amount)
	return b.SetResource(b.mirror(loc), amount)
}

// SetSymmetricSpawn sets team A's spawn at loc and team B's at its mirror.
func (b *MapBuilder) SetSymmetricSpawn(loc grid.Location) *MapBuilder {
	b.SetSpawn(TeamA, loc)
	return b.SetSpawn(TeamB, b.mirror(loc))
}

// AddSymmetricAgent places a team A agent at loc and a team B twin at the
// mirror tile. It returns both ids.
func (b *MapBuilder) AddSymmetricAgent(loc grid.Location, health float64) (ecs.EntityID, ecs.EntityID) {
	a := b.AddAgent(TeamA, loc, health)
	o := b.AddAgent(TeamB, b.mirror(loc), health)
	return a, o
}

// Descriptor returns a copy of the map as built so far without validating
// it. Tests use this to stage deliberately lopsided positions.
func (b *MapBuilder) Descriptor() *MapDescriptor {
	d := b.desc.Clone()
	sort.SliceStable(d.Agents, func(i, j int) bool { return d.Agents[i].ID < d.Agents[j].ID })
	return d
}

// Build validates the map and returns it.
func (b *MapBuilder) Build() (*MapDescriptor, error) {
	d := b.Descriptor()
	if err := ValidateMap(d, b.rules); err != nil {
		return nil, err
	}
	return d, nil
}

// CheckShape verifies the structural properties the engine depends on to
// index safely: slice lengths, spawns on the map and agents on distinct
// open tiles. It does not check symmetry.
func CheckShape(d *MapDescriptor) error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidMap, d.Width, d.Height)
	}
	if o := d.Origin; o.X < -grid.MaxCoord || o.Y < -grid.MaxCoord ||
		o.X > grid.MaxCoord-d.Width || o.Y > grid.MaxCoord-d.Height {
		return fmt.Errorf("%w: origin %s outside ±%d", ErrInvalidMap, o, grid.MaxCoord)
	}
	bounds := d.Bounds()
	if len(d.Walls) != bounds.Cells() || len(d.Resources) != bounds.Cells() {
		return fmt.Errorf("%w: cell arrays sized %d/%d, want %d",
			ErrInvalidMap, len(d.Walls), len(d.Resources), bounds.Cells())
	}
	for i, r := range d.Resources {
		if r < 0 {
			return fmt.Errorf("%w: negative resource at %s", ErrInvalidMap, bounds.LocationAt(i))
		}
	}
	if d.Rounds <= 0 {
		return fmt.Errorf("%w: round limit %d", ErrInvalidMap, d.Rounds)
	}
	for _, t := range Teams {
		s := d.Spawns[t]
		if !bounds.OnTheMap(s) {
			return fmt.Errorf("%w: team %s spawn %s off the map", ErrInvalidMap, t, s)
		}
		if d.Walls[bounds.Index(s)] {
			return fmt.Errorf("%w: team %s spawn %s is a wall", ErrInvalidMap, t, s)
		}
	}
	occupied := make(map[grid.Location]ecs.EntityID, len(d.Agents))
	for i, a := range d.Agents {
		if i > 0 && a.ID <= d.Agents[i-1].ID {
			return fmt.Errorf("%w: agent ids not strictly ascending at %d", ErrInvalidMap, a.ID)
		}
		if a.ID < 0 {
			return fmt.Errorf("%w: negative agent id %d", ErrInvalidMap, a.ID)
		}
		if !a.Team.Valid() || a.Kind != KindCombat {
			return fmt.Errorf("%w: agent %d has team %s kind %s", ErrInvalidMap, a.ID, a.Team, a.Kind)
		}
		if a.Health <= 0 {
			return fmt.Errorf("%w: agent %d health %g", ErrInvalidMap, a.ID, a.Health)
		}
		if !bounds.OnTheMap(a.Location) || d.Walls[bounds.Index(a.Location)] {
			return fmt.Errorf("%w: agent %d at %s is off the map or on a wall", ErrInvalidMap, a.ID, a.Location)
		}
		if other, dup := occupied[a.Location]; dup {
			return fmt.Errorf("%w: agents %d and %d share %s", ErrInvalidMap, other, a.ID, a.Location)
		}
		occupied[a.Location] = a.ID
	}
	return nil
}

// ValidateMap runs CheckShape, the size bounds from rules and the symmetry
// check for the declared class.
func ValidateMap(d *MapDescriptor, rules Rules) error {
	if err := CheckShape(d); err != nil {
		return err
	}
	if d.Width < rules.MinMapSize || d.Height < rules.MinMapSize ||
		d.Width > rules.MaxMapSize || d.Height > rules.MaxMapSize {
		return fmt.Errorf("%w: size %dx%d outside [%d,%d]",
			ErrInvalidMap, d.Width, d.Height, rules.MinMapSize, rules.MaxMapSize)
	}
	bounds := d.Bounds()
	if bounds.Mirror(d.Spawns[TeamA], d.Symmetry) != d.Spawns[TeamB] {
		return fmt.Errorf("%w: spawns %s and %s are not %s mirrors",
			ErrInvalidMap, d.Spawns[TeamA], d.Spawns[TeamB], d.Symmetry)
	}
	agents := make([]*InitialAgent, bounds.Cells())
	for i := range d.Agents {
		agents[bounds.Index(d.Agents[i].Location)] = &d.Agents[i]
	}
	for idx := 0; idx < bounds.Cells(); idx++ {
		loc := bounds.LocationAt(idx)
		m := bounds.Index(bounds.Mirror(loc, d.Symmetry))
		if d.Walls[idx] != d.Walls[m] {
			return fmt.Errorf("%w: wall at %s breaks %s symmetry", ErrInvalidMap, loc, d.Symmetry)
		}
		if d.Resources[idx] != d.Resources[m] {
			return fmt.Errorf("%w: resource at %s breaks %s symmetry", ErrInvalidMap, loc, d.Symmetry)
		}
		a, o := agents[idx], agents[m]
		if a == nil && o == nil {
			continue
		}
		if a == nil || o == nil || a.Kind != o.Kind || a.Team != o.Team.Opponent() || a.Health != o.Health {
			return fmt.Errorf("%w: agent layout at %s breaks %s symmetry", ErrInvalidMap, loc, d.Symmetry)
		}
	}
	return nil
}
