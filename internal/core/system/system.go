package system

import "context"

// Phase defines execution ordering within a single simulation round.
type Phase int

const (
	PhaseRoundBegin Phase = iota // 0: perceived round start hooks
	PhaseTurn                    // 1: active team's turn
	PhaseRoundEnd                // 2: trickle, decay, deposits, ledger close
	PhaseArbitrate               // 3: win check on perceived boundaries
)

func (p Phase) String() string {
	switch p {
	case PhaseRoundBegin:
		return "round_begin"
	case PhaseTurn:
		return "turn"
	case PhaseRoundEnd:
		return "round_end"
	case PhaseArbitrate:
		return "arbitrate"
	}
	return "unknown"
}

// System is the interface every round system implements. An error returned
// from Update is fatal to the match.
type System interface {
	Phase() Phase
	Update(ctx context.Context, round int) error
}
