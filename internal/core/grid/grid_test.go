package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_AddAndAdjacency(t *testing.T) {
	origin := Loc(5, 5)
	for _, d := range AllDirections {
		n := origin.Add(d)
		assert.True(t, origin.IsAdjacentTo(n), "direction %s", d)
	}
	assert.Equal(t, origin, origin.Add(Center))
	assert.False(t, origin.IsAdjacentTo(origin))
	assert.False(t, origin.IsAdjacentTo(Loc(7, 5)))
}

func TestDistanceSquaredSaturates(t *testing.T) {
	assert.Equal(t, 25, Loc(1, 1).DistanceSquaredTo(Loc(4, 5)))
	far := Loc(math.MaxInt, math.MinInt)
	d := far.DistanceSquaredTo(Loc(math.MinInt, math.MaxInt))
	assert.Equal(t, 2*(2*MaxCoord)*(2*MaxCoord), d)
	assert.Positive(t, Loc(0, 0).DistanceSquaredTo(far))
	assert.False(t, Loc(0, 0).IsWithinDistanceSquared(far, 1<<40))
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("NE")
	assert.True(t, ok)
	assert.Equal(t, NorthEast, d)

	d, ok = ParseDirection("SOUTHWEST")
	assert.True(t, ok)
	assert.Equal(t, SouthWest, d)

	_, ok = ParseDirection("UP")
	assert.False(t, ok)
}
