package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitOrder(t *testing.T) {
	b := NewBus()

	Emit(b, Spawned{ID: 1, Team: "A", Kind: "ROBOT", Health: 3})
	Emit(b, Died{ID: 1})
	Emit(b, Moved{ID: 2})
	assert.Equal(t, 3, b.Pending())

	recs := b.Drain()
	require.Len(t, recs, 3)
	assert.Equal(t, "spawned", recs[0].Type)
	assert.Equal(t, "died", recs[1].Type)
	assert.Equal(t, "moved", recs[2].Type)
	assert.Zero(t, b.Pending())
}

func TestEmit_NilBusIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Emit[Died](nil, Died{ID: 1}) })
}
