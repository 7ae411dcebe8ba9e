package world

import (
	"fmt"
	"strings"
)

// Team identifies one side of a match. TeamA moves on odd rounds, TeamB on
// even rounds.
type Team int8

const (
	TeamA Team = iota
	TeamB
	TeamNone
)

// Teams lists the two playing sides in index order.
var Teams = [2]Team{TeamA, TeamB}

func (t Team) Valid() bool { return t == TeamA || t == TeamB }

// Opponent returns the other playing side. TeamNone maps to itself.
func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	}
	return TeamNone
}

func (t Team) String() string {
	switch t {
	case TeamA:
		return "A"
	case TeamB:
		return "B"
	}
	return "NEUTRAL"
}

func (t Team) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Team) UnmarshalText(b []byte) error {
	v, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func ParseTeam(s string) (Team, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return TeamA, nil
	case "B":
		return TeamB, nil
	case "", "NEUTRAL", "NONE":
		return TeamNone, nil
	}
	return TeamNone, fmt.Errorf("unknown team %q", s)
}

// Kind is the closed set of agent kinds.
type Kind int8

const (
	KindCoordinator Kind = iota
	KindCombat
)

// KindSpec carries the per-kind constants. Coordinators have no position,
// never decay and are the only kind handed to the driver. Cooldown limits
// are match-wide and live in Rules.
type KindSpec struct {
	Name          string
	Positional    bool
	RunsCode      bool
	DecayFraction float64
	MinHealth     float64
}

// Kinds is indexed by Kind.
var Kinds = [...]KindSpec{
	KindCoordinator: {
		Name:     "COORDINATOR",
		RunsCode: true,
	},
	KindCombat: {
		Name:          "ROBOT",
		Positional:    true,
		DecayFraction: 0.0007,
		MinHealth:     0.1,
	},
}

func (k Kind) Valid() bool { return k >= KindCoordinator && int(k) < len(Kinds) }

func (k Kind) Spec() KindSpec {
	if !k.Valid() {
		return KindSpec{Name: "UNKNOWN"}
	}
	return Kinds[k]
}

func (k Kind) String() string { return k.Spec().Name }

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func ParseKind(s string) (Kind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, spec := range Kinds {
		if spec.Name == name {
			return Kind(i), nil
		}
	}
	if name == "COMBAT" {
		return KindCombat, nil
	}
	return 0, fmt.Errorf("unknown agent kind %q", s)
}
