package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/gridclash/arena/internal/gateway"
	"github.com/gridclash/arena/internal/world"
)

// turnRunner adapts the driver to the turn system. Each coordinator turn gets
// a fresh gateway that is closed when the driver returns.
type turnRunner struct {
	e *Engine
}

func (t *turnRunner) RoundStarted(round int) { t.e.driver.RoundStarted(round) }
func (t *turnRunner) RoundEnded(round int)   { t.e.driver.RoundEnded(round) }

func (t *turnRunner) RunAgent(ctx context.Context, a *world.Agent) error {
	g := gateway.New(t.e.state, a.ID, t.e.opts.Gateway)
	t.e.setCurrent(g)
	defer func() {
		g.Close()
		t.e.setCurrent(nil)
	}()

	err := t.e.driver.RunAgent(ctx, g)
	if errors.Is(err, ErrTurnAborted) || errors.Is(err, gateway.ErrBudgetExceeded) {
		t.e.log.Debug("turn aborted",
			zap.Int32("agent", int32(a.ID)),
			zap.Int("round", t.e.state.Round()),
			zap.Bool("exhausted", g.Exhausted()))
		err = nil
	}
	a.ComputeUsed = t.e.driver.ComputeUsed(a.ID)
	return err
}

func (t *turnRunner) IsTerminated(a *world.Agent) bool {
	return t.e.driver.IsTerminated(a.ID)
}
