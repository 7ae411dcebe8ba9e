package engine

import (
	"github.com/gridclash/arena/internal/core/ecs"
	"github.com/gridclash/arena/internal/core/event"
	"github.com/gridclash/arena/internal/core/grid"
	"github.com/gridclash/arena/internal/world"
)

// FormatVersion is bumped whenever the record layout changes.
const FormatVersion = 1

// Header opens a replay. Initial holds the events emitted while the world was
// populated, before round 1.
type Header struct {
	Version      int              `json:"version"`
	MatchID      string           `json:"match_id"`
	Map          string           `json:"map"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Origin       grid.Location    `json:"origin"`
	Symmetry     world.Symmetry   `json:"symmetry"`
	Seed         int64            `json:"seed"`
	Rounds       int              `json:"rounds"`
	Walls        []bool           `json:"walls"`
	Resources    []int            `json:"resources"`
	Spawns       [2]grid.Location `json:"spawns"`
	Coordinators [2]ecs.EntityID  `json:"coordinators"`
	Rules        world.Rules      `json:"rules"`
	Initial      []event.Record   `json:"initial,omitempty"`
}

// RoundRecord is everything that happened in one round, in emission order.
type RoundRecord struct {
	Round  int                `json:"round"`
	Events []event.Record     `json:"events"`
	Teams  [2]world.TeamStats `json:"teams"`
	Digest string             `json:"digest"`
}

// Footer closes a replay.
type Footer struct {
	MatchID string        `json:"match_id"`
	Rounds  int           `json:"rounds"`
	Outcome world.Outcome `json:"outcome"`
}

// Recorder consumes the replay stream. Writes happen on the engine goroutine
// in header, rounds, footer order.
type Recorder interface {
	WriteHeader(Header) error
	WriteRound(RoundRecord) error
	WriteFooter(Footer) error
	Close() error
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) WriteHeader(Header) error     { return nil }
func (discard) WriteRound(RoundRecord) error { return nil }
func (discard) WriteFooter(Footer) error     { return nil }
func (discard) Close() error                 { return nil }
