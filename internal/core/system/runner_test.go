package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSystem struct {
	name  string
	phase Phase
	log   *[]string
	err   error
}

func (s recordingSystem) Phase() Phase { return s.phase }

func (s recordingSystem) Update(_ context.Context, _ int) error {
	*s.log = append(*s.log, s.name)
	return s.err
}

func TestRunner_PhaseOrderIsStable(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recordingSystem{name: "decay", phase: PhaseRoundEnd, log: &log})
	r.Register(recordingSystem{name: "turn", phase: PhaseTurn, log: &log})
	r.Register(recordingSystem{name: "ledger", phase: PhaseRoundEnd, log: &log})
	r.Register(recordingSystem{name: "begin", phase: PhaseRoundBegin, log: &log})
	r.Register(recordingSystem{name: "arbiter", phase: PhaseArbitrate, log: &log})

	require.NoError(t, r.Round(context.Background(), 1))
	assert.Equal(t, []string{"begin", "turn", "decay", "ledger", "arbiter"}, log)
}

func TestRunner_StopsAtFirstError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := NewRunner()
	r.Register(recordingSystem{name: "turn", phase: PhaseTurn, log: &log, err: boom})
	r.Register(recordingSystem{name: "decay", phase: PhaseRoundEnd, log: &log})

	err := r.Round(context.Background(), 1)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"turn"}, log)
}
