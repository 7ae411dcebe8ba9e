package world

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientResource is returned when a debit would overdraw a reserve.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrInvariant marks an engine-internal consistency failure.
	ErrInvariant = errors.New("engine invariant violated")
)

// TeamStats is one team's ledger change over a round.
type TeamStats struct {
	ReserveDelta   int `json:"reserve_delta"`
	HarvestedDelta int `json:"harvested_delta"`
}

// Ledger tracks each team's spendable reserve and lifetime harvested total,
// plus round-start snapshots for delta reporting.
type Ledger struct {
	reserve        [2]int
	harvested      [2]int
	reserveStart   [2]int
	harvestedStart [2]int
}

func NewLedger() *Ledger { return &Ledger{} }

func (l *Ledger) Reserve(t Team) int {
	if !t.Valid() {
		return 0
	}
	return l.reserve[t]
}

func (l *Ledger) Harvested(t Team) int {
	if !t.Valid() {
		return 0
	}
	return l.harvested[t]
}

func (l *Ledger) Credit(t Team, n int) error {
	if !t.Valid() || n < 0 {
		return fmt.Errorf("%w: credit %d to team %s", ErrInvariant, n, t)
	}
	l.reserve[t] += n
	return nil
}

// Debit removes n from the reserve. An overdraw leaves the ledger unchanged.
func (l *Ledger) Debit(t Team, n int) error {
	if !t.Valid() || n < 0 {
		return fmt.Errorf("%w: debit %d from team %s", ErrInvariant, n, t)
	}
	if l.reserve[t] < n {
		return fmt.Errorf("%w: team %s has %d, needs %d", ErrInsufficientResource, t, l.reserve[t], n)
	}
	l.reserve[t] -= n
	return nil
}

// Harvest credits n to both the reserve and the harvested total.
func (l *Ledger) Harvest(t Team, n int) error {
	if err := l.Credit(t, n); err != nil {
		return err
	}
	l.harvested[t] += n
	return nil
}

func (l *Ledger) RoundDelta(t Team) TeamStats {
	if !t.Valid() {
		return TeamStats{}
	}
	return TeamStats{
		ReserveDelta:   l.reserve[t] - l.reserveStart[t],
		HarvestedDelta: l.harvested[t] - l.harvestedStart[t],
	}
}

// EndRound closes the round's snapshot. Only the active team can harvest
// during a round, so both totals moving means the round loop is broken.
func (l *Ledger) EndRound() error {
	a := l.harvested[TeamA] != l.harvestedStart[TeamA]
	b := l.harvested[TeamB] != l.harvestedStart[TeamB]
	l.reserveStart = l.reserve
	l.harvestedStart = l.harvested
	if a && b {
		return fmt.Errorf("%w: both teams harvested in the same round", ErrInvariant)
	}
	return nil
}
