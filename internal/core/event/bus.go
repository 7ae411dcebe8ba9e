package event

// Event is a single replay-visible occurrence inside a round.
type Event interface {
	EventType() string
}

// Record is the serialized form of an event, kept in emission order.
type Record struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

// Bus collects the events of the round in progress in emission order, so
// callback cardinality in the replay matches emission exactly. Drain is
// called once per round by the engine when it builds the round record.
type Bus struct {
	pending []Record
}

func NewBus() *Bus {
	return &Bus{pending: make([]Record, 0, 64)}
}

// Emit appends the event to the pending log. A nil bus drops it.
func Emit[T Event](b *Bus, ev T) {
	if b == nil {
		return
	}
	b.pending = append(b.pending, Record{Type: ev.EventType(), Data: ev})
}

// Drain returns the pending records and starts a fresh log.
func (b *Bus) Drain() []Record {
	out := b.pending
	b.pending = make([]Record, 0, cap(out))
	return out
}

// Pending reports how many records are waiting to be drained.
func (b *Bus) Pending() int {
	return len(b.pending)
}
