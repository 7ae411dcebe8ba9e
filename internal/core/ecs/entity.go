package ecs

// EntityID identifies an agent for the lifetime of a match. Ids are assigned
// monotonically and never reused, so a stale id can only ever miss.
type EntityID int32

// NoEntity is the zero-value sentinel for "no agent".
const NoEntity EntityID = -1

// IDPool hands out monotonically increasing entity ids.
type IDPool struct {
	next EntityID
}

func NewIDPool() *IDPool {
	return &IDPool{next: 0}
}

// Reserve marks id as taken so every later Create returns a larger id.
// Used for ids that come pre-assigned from a map descriptor.
func (p *IDPool) Reserve(id EntityID) {
	if id >= p.next {
		p.next = id + 1
	}
}

func (p *IDPool) Create() EntityID {
	id := p.next
	p.next++
	return id
}

// Peek returns the id the next Create call will hand out.
func (p *IDPool) Peek() EntityID {
	return p.next
}
