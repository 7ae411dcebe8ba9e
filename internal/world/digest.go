package world

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Digest hashes the replay-relevant state: round, ledgers, resources and
// every agent in id order. Two runs agree on every round's digest iff they
// stayed in lockstep.
func (s *State) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	putInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}

	putInt(int64(s.round))
	for _, t := range Teams {
		putInt(int64(s.ledger.Reserve(t)))
		putInt(int64(s.ledger.Harvested(t)))
	}
	for _, r := range s.resources {
		putInt(int64(r))
	}
	s.reg.Each(func(a *Agent) {
		putInt(int64(a.ID))
		putInt(int64(a.Team)<<8 | int64(a.Kind))
		putInt(int64(a.Location.X))
		putInt(int64(a.Location.Y))
		putFloat(a.Health)
		putInt(int64(a.Cooldown))
		putInt(int64(a.RoundsAlive))
	})
	return h.Sum64()
}
