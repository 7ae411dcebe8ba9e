package world

import (
	"fmt"
	"math"

	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/event"
	"github.com/gridclash/arena/internal/core/grid"
)

// Lifecycle is notified of every spawn and destruction, coordinators
// included. The engine forwards these to the driver.
type Lifecycle interface {
	AgentSpawned(AgentInfo)
	AgentDestroyed(AgentInfo)
}

// State is the mutable world of one match: live cell arrays, agents and
// ledgers. Single-goroutine access only (round loop).
type State struct {
	rules  Rules
	desc   *MapDescriptor
	bounds Bounds

	walls     []bool
	resources []int

	reg    *Registry
	ledger *Ledger
	ids    *ecs.IDPool
	bus    *event.Bus

	round        int
	outcome      Outcome
	coordinators [2]ecs.EntityID
	lifecycle    Lifecycle
}

// NewState copies the descriptor and its cell arrays. No agents exist until
// Populate runs.
func NewState(desc *MapDescriptor, rules Rules, bus *event.Bus) (*State, error) {
	if err := CheckShape(desc); err != nil {
		return nil, err
	}
	d := desc.Clone()
	ids := ecs.NewIDPool()
	for _, a := range d.Agents {
		ids.Reserve(a.ID)
	}
	return &State{
		rules:        rules,
		desc:         d,
		bounds:       d.Bounds(),
		walls:        append([]bool(nil), d.Walls...),
		resources:    append([]int(nil), d.Resources...),
		reg:          NewRegistry(d.Bounds()),
		ledger:       NewLedger(),
		ids:          ids,
		bus:          bus,
		outcome:      Undecided(),
		coordinators: [2]ecs.EntityID{ecs.NoEntity, ecs.NoEntity},
	}, nil
}

func (s *State) SetLifecycle(l Lifecycle) { s.lifecycle = l }

// Populate spawns the coordinators (team A first), then the descriptor's
// agents, then grants each team its initial reserve.
func (s *State) Populate() error {
	for _, t := range Teams {
		id := s.ids.Create()
		a := &Agent{ID: id, Team: t, Kind: KindCoordinator}
		if err := s.add(a, false); err != nil {
			return err
		}
		s.coordinators[t] = id
	}
	for _, ia := range s.desc.Agents {
		a := &Agent{ID: ia.ID, Team: ia.Team, Kind: ia.Kind, Location: ia.Location, Health: ia.Health}
		if err := s.add(a, false); err != nil {
			return fmt.Errorf("initial agent %d: %w", ia.ID, err)
		}
	}
	for _, t := range Teams {
		if err := s.ledger.Credit(t, s.rules.InitialReserve); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) Rules() Rules               { return s.rules }
func (s *State) Bounds() Bounds             { return s.bounds }
func (s *State) Registry() *Registry        { return s.reg }
func (s *State) Ledger() *Ledger            { return s.ledger }
func (s *State) Bus() *event.Bus            { return s.bus }
func (s *State) Round() int                 { return s.round }
func (s *State) Outcome() Outcome           { return s.outcome }
func (s *State) MapName() string            { return s.desc.Name }
func (s *State) Seed() int64                { return s.desc.Seed }
func (s *State) RoundLimit() int            { return s.desc.Rounds }
func (s *State) Symmetry() Symmetry         { return s.desc.Symmetry }
func (s *State) Spawn(t Team) grid.Location { return s.desc.Spawns[t] }

// Descriptor returns the state's private copy. Callers must not mutate it.
func (s *State) Descriptor() *MapDescriptor { return s.desc }

func (s *State) Coordinator(t Team) ecs.EntityID {
	if !t.Valid() {
		return ecs.NoEntity
	}
	return s.coordinators[t]
}

// NextRound advances the round counter and returns the new round.
func (s *State) NextRound() int {
	s.round++
	return s.round
}

func (s *State) OnTheMap(loc grid.Location) bool { return s.bounds.OnTheMap(loc) }

func (s *State) Wall(loc grid.Location) bool {
	return s.bounds.OnTheMap(loc) && s.walls[s.bounds.Index(loc)]
}

func (s *State) Resource(loc grid.Location) int {
	if !s.bounds.OnTheMap(loc) {
		return 0
	}
	return s.resources[s.bounds.Index(loc)]
}

// GrowDeposits adds amount to every cell that already holds resource.
func (s *State) GrowDeposits(amount int) {
	for i, r := range s.resources {
		if r > 0 {
			s.resources[i] = r + amount
		}
	}
}

// --- spawn / destroy ---

func (s *State) add(a *Agent, detached bool) error {
	if err := s.reg.Add(a, detached); err != nil {
		return err
	}
	ev := event.Spawned{ID: a.ID, Team: a.Team.String(), Kind: a.Kind.String(), Health: a.Health}
	if loc, ok := a.Position(); ok {
		ev.Location = &loc
	}
	event.Emit(s.bus, ev)
	if s.lifecycle != nil {
		s.lifecycle.AgentSpawned(a.Info())
	}
	return nil
}

// Destroy removes the agent and vacates its tile. Destroying a dead id is
// a no-op so collision chains can't double-report a death.
func (s *State) Destroy(id ecs.EntityID) bool {
	a, ok := s.reg.Remove(id)
	if !ok {
		return false
	}
	event.Emit(s.bus, event.Died{ID: id})
	if s.lifecycle != nil {
		s.lifecycle.AgentDestroyed(a.Info())
	}
	return true
}

// DamageHealth subtracts amount, destroying the agent at or below zero.
// Non-lethal changes emit exactly one HealthChanged.
func (s *State) DamageHealth(a *Agent, amount float64) {
	s.setHealth(a, a.Health-amount)
}

func (s *State) setHealth(a *Agent, h float64) {
	if h <= 0 {
		s.Destroy(a.ID)
		return
	}
	if h == a.Health {
		return
	}
	delta := h - a.Health
	a.Health = h
	event.Emit(s.bus, event.HealthChanged{ID: a.ID, Health: h, Delta: delta})
}

func (s *State) action(id ecs.EntityID, kind string, payload int) {
	event.Emit(s.bus, event.ActionPerformed{ID: id, Action: kind, Payload: payload})
}

// --- combat ---

// Collide resolves attacker moving or spawning into defender's tile. The
// survivor, if any, ends on the contested tile with |h1-h2|+1 health. It
// reports whether the attacker won.
func (s *State) Collide(attacker, defender *Agent) bool {
	cell := defender.Location
	s.reg.Vacate(cell, defender.ID)
	diff := math.Abs(attacker.Health - defender.Health)
	if diff <= s.rules.CollisionThreshold {
		s.Destroy(defender.ID)
		s.Destroy(attacker.ID)
		return false
	}
	survivor := diff + 1
	if attacker.Health < defender.Health {
		s.Destroy(attacker.ID)
		s.setHealth(defender, survivor)
		_ = s.reg.Occupy(defender, cell)
		return false
	}
	s.Destroy(defender.ID)
	s.setHealth(attacker, survivor)
	// the contested cell was vacated above
	_ = s.relocate(attacker, cell)
	return true
}

func (s *State) relocate(a *Agent, to grid.Location) error {
	from := a.Location
	if err := s.reg.Move(a, to); err != nil {
		return fmt.Errorf("%w: move: %v", ErrInvariant, err)
	}
	if from != to {
		event.Emit(s.bus, event.Moved{ID: a.ID, To: to})
	}
	return nil
}

// --- actions (preconditions are checked by the gateway) ---

// MoveAgent steps a one tile in dir, colliding with an enemy occupant.
// Cooldown resets only if the agent ends up moving.
func (s *State) MoveAgent(a *Agent, dir grid.Direction) error {
	to := a.Location.Add(dir)
	if occ := s.reg.At(to); occ != nil {
		if !s.Collide(a, occ) {
			return nil
		}
	} else if err := s.relocate(a, to); err != nil {
		return err
	}
	a.ResetCooldown(s.rules)
	return nil
}

// Harvest takes one unit from the agent's tile into its team's ledger.
func (s *State) Harvest(a *Agent) error {
	idx := s.bounds.Index(a.Location)
	if err := s.ledger.Harvest(a.Team, 1); err != nil {
		return err
	}
	s.resources[idx]--
	a.ResetCooldown(s.rules)
	s.action(a.ID, event.ActionHarvest, idx)
	return nil
}

// Build debits health from the team reserve and spawns a combat agent on
// the team spawn, resolving a collision if an enemy stands there.
func (s *State) Build(team Team, health int) (*Agent, error) {
	if err := s.ledger.Debit(team, health); err != nil {
		return nil, err
	}
	spawn := s.Spawn(team)
	occ := s.reg.At(spawn)
	a := &Agent{
		ID:       s.ids.Create(),
		Team:     team,
		Kind:     KindCombat,
		Location: spawn,
		Health:   float64(health),
	}
	if err := s.add(a, occ != nil); err != nil {
		return nil, fmt.Errorf("%w: build: %v", ErrInvariant, err)
	}
	s.action(s.coordinators[team], event.ActionBuild, int(a.ID))
	if occ != nil {
		s.Collide(a, occ)
	}
	return a, nil
}

// Explode deals half the agent's health to every enemy on the four
// orthogonal neighbours, then destroys the agent.
func (s *State) Explode(a *Agent) {
	dmg := a.Health / 2
	for _, dir := range grid.CardinalDirections {
		bot := s.reg.At(a.Location.Add(dir))
		if bot == nil || bot.Team == a.Team {
			continue
		}
		s.DamageHealth(bot, dmg)
	}
	s.action(a.ID, event.ActionExplode, -1)
	s.Destroy(a.ID)
}

func (s *State) Disintegrate(a *Agent) {
	s.action(a.ID, event.ActionDisintegrate, -1)
	s.Destroy(a.ID)
}

// Resign destroys every agent of the team, its coordinator included.
func (s *State) Resign(team Team) {
	s.action(s.coordinators[team], event.ActionResign, -1)
	var doomed []ecs.EntityID
	s.reg.Each(func(a *Agent) {
		if a.Team == team {
			doomed = append(doomed, a.ID)
		}
	})
	for _, id := range doomed {
		s.Destroy(id)
	}
}

// DieException destroys an agent whose driver reported it terminated.
func (s *State) DieException(id ecs.EntityID) {
	if !s.reg.agents.Has(id) {
		return
	}
	s.action(id, event.ActionDieException, -1)
	s.Destroy(id)
}

// --- hooks ---

// BeginRound clears debug annotations at a perceived round start.
func (s *State) BeginRound() {
	s.reg.Each(func(a *Agent) { a.BeginRound() })
}

// EndTurn flushes the agent's debug annotation or compute usage.
func (s *State) EndTurn(a *Agent) {
	if a.Positional() {
		event.Emit(s.bus, event.DebugString{ID: a.ID, Value: a.Debug})
		return
	}
	event.Emit(s.bus, event.ComputeUsed{ID: a.ID, Units: a.ComputeUsed})
}

// Decay applies end-of-round health decay to every agent, destroying those
// that fall below their kind's minimum.
func (s *State) Decay() {
	var ids []ecs.EntityID
	s.reg.Each(func(a *Agent) { ids = append(ids, a.ID) })
	for _, id := range ids {
		a, ok := s.reg.Get(id)
		if !ok || !a.Positional() {
			continue
		}
		h, dead := a.Decayed()
		if dead {
			s.Destroy(id)
			continue
		}
		s.setHealth(a, h)
		a.RoundsAlive++
	}
}

// --- arbitration ---

// NetWorth is the team reserve plus the health of its combat agents.
func (s *State) NetWorth(t Team) float64 {
	total := float64(s.ledger.Reserve(t))
	s.reg.Each(func(a *Agent) {
		if a.Team == t && a.Kind == KindCombat {
			total += a.Health
		}
	})
	return total
}

// SetWinner records the outcome. A second call is an invariant violation.
func (s *State) SetWinner(t Team, f DominationFactor) error {
	if s.outcome.Final() {
		return fmt.Errorf("%w: outcome already set to %s by %s", ErrInvariant, s.outcome.Winner, s.outcome.Factor)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: winner %s", ErrInvariant, t)
	}
	s.outcome = Outcome{Winner: t, Factor: f, Round: s.round}
	return nil
}

// Abort ends the match without a winner.
func (s *State) Abort(reason string) {
	if s.outcome.Final() {
		return
	}
	s.outcome = Outcome{Winner: TeamNone, Round: s.round, Aborted: true, Reason: reason}
}
