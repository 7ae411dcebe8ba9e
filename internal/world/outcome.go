package world

// DominationFactor is why a match was decided.
type DominationFactor string

const (
	Annihilation    DominationFactor = "annihilation"
	MoreNetWorth    DominationFactor = "net_worth"
	MoreHarvested   DominationFactor = "harvested"
	DefaultTiebreak DominationFactor = "default_tiebreak"
)

// Outcome is set exactly once per match. An aborted match has no winner.
type Outcome struct {
	Winner  Team             `json:"winner"`
	Factor  DominationFactor `json:"factor,omitempty"`
	Round   int              `json:"round"`
	Aborted bool             `json:"aborted,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

func Undecided() Outcome { return Outcome{Winner: TeamNone} }

func (o Outcome) Decided() bool { return o.Winner.Valid() }

// Final reports whether the match has stopped, by decision or abort.
func (o Outcome) Final() bool { return o.Decided() || o.Aborted }
