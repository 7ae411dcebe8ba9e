package world

import (
	"fmt"
	"strings"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
)

// Symmetry is the mirror class a map's layout must respect.
type Symmetry int8

const (
	Rotational Symmetry = iota
	Horizontal          // mirrored across the horizontal axis: (x, h-1-y)
	Vertical            // mirrored across the vertical axis: (w-1-x, y)
)

var symmetryNames = [...]string{"rotational", "horizontal", "vertical"}

func (s Symmetry) String() string {
	if s < 0 || int(s) >= len(symmetryNames) {
		return "unknown"
	}
	return symmetryNames[s]
}

func (s Symmetry) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Symmetry) UnmarshalText(b []byte) error {
	v, err := ParseSymmetry(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseSymmetry(s string) (Symmetry, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range symmetryNames {
		if n == name {
			return Symmetry(i), nil
		}
	}
	return 0, fmt.Errorf("unknown symmetry %q", s)
}

// Bounds is the rectangle of tiles a map covers, starting at Origin.
type Bounds struct {
	Origin grid.Location
	Width  int
	Height int
}

func (b Bounds) OnTheMap(loc grid.Location) bool {
	return loc.X >= b.Origin.X && loc.Y >= b.Origin.Y &&
		loc.X < b.Origin.X+b.Width && loc.Y < b.Origin.Y+b.Height
}

// Index maps an on-map location to its row-major cell index.
func (b Bounds) Index(loc grid.Location) int {
	return (loc.X - b.Origin.X) + (loc.Y-b.Origin.Y)*b.Width
}

func (b Bounds) LocationAt(idx int) grid.Location {
	return grid.Loc(idx%b.Width+b.Origin.X, idx/b.Width+b.Origin.Y)
}

func (b Bounds) Cells() int { return b.Width * b.Height }

// Mirror returns the tile paired with loc under sym.
func (b Bounds) Mirror(loc grid.Location, sym Symmetry) grid.Location {
	x := loc.X - b.Origin.X
	y := loc.Y - b.Origin.Y
	switch sym {
	case Horizontal:
		y = b.Height - 1 - y
	case Vertical:
		x = b.Width - 1 - x
	default:
		x = b.Width - 1 - x
		y = b.Height - 1 - y
	}
	return grid.Loc(x+b.Origin.X, y+b.Origin.Y)
}

// InitialAgent is one agent placed on the map before round 1.
type InitialAgent struct {
	ID       ecs.EntityID
	Team     Team
	Kind     Kind
	Location grid.Location
	Health   float64
}

// MapDescriptor is the static configuration of a match. The engine clones
// it on construction and never writes to it afterwards.
type MapDescriptor struct {
	Name      string
	Width     int
	Height    int
	Origin    grid.Location
	Symmetry  Symmetry
	Seed      int64
	Rounds    int
	Walls     []bool
	Resources []int
	Spawns    [2]grid.Location
	Agents    []InitialAgent // sorted by id
}

func (m *MapDescriptor) Bounds() Bounds {
	return Bounds{Origin: m.Origin, Width: m.Width, Height: m.Height}
}

func (m *MapDescriptor) Spawn(t Team) grid.Location {
	return m.Spawns[t]
}

// Clone deep-copies the descriptor so the copy shares no slices.
func (m *MapDescriptor) Clone() *MapDescriptor {
	c := *m
	c.Walls = append([]bool(nil), m.Walls...)
	c.Resources = append([]int(nil), m.Resources...)
	c.Agents = append([]InitialAgent(nil), m.Agents...)
	return &c
}
