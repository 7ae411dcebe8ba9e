package event

import (
	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
)

// Action kinds carried by ActionPerformed.
const (
	ActionHarvest      = "harvest"
	ActionBuild        = "build"
	ActionExplode      = "explode"
	ActionDisintegrate = "disintegrate"
	ActionResign       = "resign"
	ActionDieException = "die_exception"
)

type Spawned struct {
	ID       ecs.EntityID   `json:"id"`
	Team     string         `json:"team"`
	Kind     string         `json:"kind"`
	Location *grid.Location `json:"location,omitempty"`
	Health   float64        `json:"health"`
}

type Moved struct {
	ID ecs.EntityID  `json:"id"`
	To grid.Location `json:"to"`
}

type Died struct {
	ID ecs.EntityID `json:"id"`
}

type HealthChanged struct {
	ID     ecs.EntityID `json:"id"`
	Health float64      `json:"health"`
	Delta  float64      `json:"delta"`
}

// ActionPerformed is the generic action-with-payload record. Payload meaning
// depends on Action: the tile index for harvest, the new id for build, -1 otherwise.
type ActionPerformed struct {
	ID      ecs.EntityID `json:"id"`
	Action  string       `json:"action"`
	Payload int          `json:"payload"`
}

type ComputeUsed struct {
	ID    ecs.EntityID `json:"id"`
	Units int          `json:"units"`
}

type DebugString struct {
	ID    ecs.EntityID `json:"id"`
	Value string       `json:"value"`
}

type IndicatorDot struct {
	ID       ecs.EntityID  `json:"id"`
	Location grid.Location `json:"location"`
	RGB      [3]int        `json:"rgb"`
}

type IndicatorLine struct {
	ID    ecs.EntityID  `json:"id"`
	Start grid.Location `json:"start"`
	End   grid.Location `json:"end"`
	RGB   [3]int        `json:"rgb"`
}

func (Spawned) EventType() string         { return "spawned" }
func (Moved) EventType() string           { return "moved" }
func (Died) EventType() string            { return "died" }
func (HealthChanged) EventType() string   { return "health_changed" }
func (ActionPerformed) EventType() string { return "action" }
func (ComputeUsed) EventType() string     { return "compute_used" }
func (DebugString) EventType() string     { return "debug_string" }
func (IndicatorDot) EventType() string    { return "indicator_dot" }
func (IndicatorLine) EventType() string   { return "indicator_line" }
