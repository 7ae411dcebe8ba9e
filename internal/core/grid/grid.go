// Package grid holds the tile geometry shared by the world, the gateway and
// the replay records.
package grid

import "fmt"

// Location is an absolute tile coordinate.
type Location struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func Loc(x, y int) Location { return Location{X: x, Y: y} }

func (l Location) String() string { return fmt.Sprintf("(%d, %d)", l.X, l.Y) }

func (l Location) Translate(dx, dy int) Location {
	return Location{X: l.X + dx, Y: l.Y + dy}
}

// Add returns the tile one step away in dir. Center returns l itself.
func (l Location) Add(dir Direction) Location {
	dx, dy := dir.Delta()
	return l.Translate(dx, dy)
}

// MaxCoord bounds every coordinate a map may use. Distances clamp inputs to
// ±MaxCoord so the squared sum cannot overflow.
const MaxCoord = 1 << 29

func clamp(v int) int { return min(max(v, -MaxCoord), MaxCoord) }

func (l Location) DistanceSquaredTo(o Location) int {
	dx := clamp(l.X) - clamp(o.X)
	dy := clamp(l.Y) - clamp(o.Y)
	return dx*dx + dy*dy
}

func (l Location) IsWithinDistanceSquared(o Location, r2 int) bool {
	return l.DistanceSquaredTo(o) <= r2
}

// IsAdjacentTo reports whether o is one of the eight surrounding tiles.
func (l Location) IsAdjacentTo(o Location) bool {
	return l != o && l.DistanceSquaredTo(o) <= 2
}

// Direction is one of the eight compass headings, or Center.
type Direction int8

const (
	Center Direction = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// AllDirections lists the eight non-center headings clockwise from North.
var AllDirections = []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// CardinalDirections lists the four orthogonal headings.
var CardinalDirections = []Direction{North, East, South, West}

var dirNames = [...]string{"CENTER", "NORTH", "NORTHEAST", "EAST", "SOUTHEAST", "SOUTH", "SOUTHWEST", "WEST", "NORTHWEST"}

var dirShort = map[string]Direction{
	"C": Center, "N": North, "NE": NorthEast, "E": East, "SE": SouthEast,
	"S": South, "SW": SouthWest, "W": West, "NW": NorthWest,
}

func (d Direction) Valid() bool { return d >= Center && d <= NorthWest }

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int8(d))
	}
	return dirNames[d]
}

// Delta returns the x/y offset of one step. North is +y.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 0, 1
	case NorthEast:
		return 1, 1
	case East:
		return 1, 0
	case SouthEast:
		return 1, -1
	case South:
		return 0, -1
	case SouthWest:
		return -1, -1
	case West:
		return -1, 0
	case NorthWest:
		return -1, 1
	}
	return 0, 0
}

// ParseDirection accepts either the short ("NE") or long ("NORTHEAST") name.
func ParseDirection(s string) (Direction, bool) {
	if d, ok := dirShort[s]; ok {
		return d, true
	}
	for i, name := range dirNames {
		if name == s {
			return Direction(i), true
		}
	}
	return Center, false
}
