package engine

import (
	"context"
	"errors"
	"math/rand"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/world"
)

// ErrTurnAborted is returned by a driver whose agent ran out of budget. The
// engine treats it as a normal end of turn.
var ErrTurnAborted = errors.New("turn aborted")

// MatchInfo is handed to the driver before the world is populated. Rand is the
// match's only source of randomness; drivers must not keep their own.
type MatchInfo struct {
	MatchID    string
	Map        string
	Bounds     world.Bounds
	Seed       int64
	RoundLimit int
	Rules      world.Rules
	Rand       *rand.Rand
}

// Driver runs the code behind each coordinator. Every method is called on the
// engine goroutine. Returning any error other than ErrTurnAborted from
// RunAgent, or panicking anywhere, aborts the match.
type Driver interface {
	MatchStarted(info MatchInfo) error
	RoundStarted(round int)
	RunAgent(ctx context.Context, g *gateway.Gateway) error
	// ComputeUsed reports the units the agent used in the turn just run.
	ComputeUsed(id ecs.EntityID) int
	IsTerminated(id ecs.EntityID) bool
	RoundEnded(round int)
	AgentSpawned(info world.AgentInfo)
	AgentDestroyed(info world.AgentInfo)
	MatchEnded(outcome world.Outcome)
}
