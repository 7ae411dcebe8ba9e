// Package replay stores and reads the round records a match produces.
package replay

import "github.com/gridclash/arena/internal/engine"

const (
	kindHeader = "header"
	kindRound  = "round"
	kindFooter = "footer"
)

// line is one JSONL entry of a replay file.
type line struct {
	Kind   string              `json:"kind"`
	Header *engine.Header      `json:"header,omitempty"`
	Round  *engine.RoundRecord `json:"round,omitempty"`
	Footer *engine.Footer      `json:"footer,omitempty"`
}
