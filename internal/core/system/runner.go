package system

import (
	"context"
	"fmt"
	"sort"
)

// Runner executes systems in phase order each round. Systems sharing a phase
// keep their registration order.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Round runs every system once and stops at the first failure.
func (r *Runner) Round(ctx context.Context, round int) error {
	r.ensureSorted()
	for _, s := range r.systems {
		if err := s.Update(ctx, round); err != nil {
			return fmt.Errorf("%s phase: %w", s.Phase(), err)
		}
	}
	return nil
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
