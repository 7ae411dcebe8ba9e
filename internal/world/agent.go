package world

import (
	"golang.org/x/text/unicode/norm"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/grid"
)

// Agent is the live state of one entity. Owned by the Registry; everything
// else refers to agents by id.
type Agent struct {
	ID          ecs.EntityID
	Team        Team
	Kind        Kind
	Location    grid.Location // meaningless unless Kind is positional
	Health      float64
	Cooldown    int
	RoundsAlive int
	Debug       string
	ComputeUsed int
}

// AgentInfo is the read-only snapshot handed across the driver boundary.
type AgentInfo struct {
	ID       ecs.EntityID   `json:"id"`
	Team     Team           `json:"team"`
	Kind     Kind           `json:"kind"`
	Location *grid.Location `json:"location,omitempty"`
	Health   float64        `json:"health"`
}

func (a *Agent) Positional() bool { return a.Kind.Spec().Positional }

// Position returns the agent's tile, or false for a coordinator.
func (a *Agent) Position() (grid.Location, bool) {
	if !a.Positional() {
		return grid.Location{}, false
	}
	return a.Location, true
}

func (a *Agent) Info() AgentInfo {
	info := AgentInfo{ID: a.ID, Team: a.Team, Kind: a.Kind, Health: a.Health}
	if loc, ok := a.Position(); ok {
		info.Location = &loc
	}
	return info
}

func (a *Agent) IsReady(r Rules) bool {
	return a.Cooldown < r.CooldownLimit
}

// ResetCooldown is applied after every successful move or harvest.
func (a *Agent) ResetCooldown(r Rules) {
	a.Cooldown = r.CooldownLimit
}

// BeginRound runs at each perceived round start.
func (a *Agent) BeginRound() {
	if a.Positional() {
		a.Debug = ""
	}
}

// BeginTurn runs before the agent's team takes its turn.
func (a *Agent) BeginTurn(r Rules) {
	if a.Positional() {
		a.Cooldown = max(0, a.Cooldown-r.CooldownsPerTurn)
	} else {
		a.ComputeUsed = 0
	}
}

// SetDebug stores an NFC-normalized annotation cut to maxRunes runes.
func (a *Agent) SetDebug(s string, maxRunes int) {
	s = norm.NFC.String(s)
	n := 0
	for i := range s {
		if n == maxRunes {
			s = s[:i]
			break
		}
		n++
	}
	a.Debug = s
}

// Decayed returns the health after one round of decay and whether the agent
// falls below its kind's minimum and must be destroyed.
func (a *Agent) Decayed() (float64, bool) {
	spec := a.Kind.Spec()
	if !spec.Positional {
		return a.Health, false
	}
	h := a.Health - spec.DecayFraction*a.Health
	return h, h < spec.MinHealth
}
