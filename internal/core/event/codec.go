package event

import (
	"encoding/json"
	"fmt"
)

var decoders = map[string]func([]byte) (Event, error){
	Spawned{}.EventType():         decodeAs[Spawned],
	Moved{}.EventType():           decodeAs[Moved],
	Died{}.EventType():            decodeAs[Died],
	HealthChanged{}.EventType():   decodeAs[HealthChanged],
	ActionPerformed{}.EventType(): decodeAs[ActionPerformed],
	ComputeUsed{}.EventType():     decodeAs[ComputeUsed],
	DebugString{}.EventType():     decodeAs[DebugString],
	IndicatorDot{}.EventType():    decodeAs[IndicatorDot],
	IndicatorLine{}.EventType():   decodeAs[IndicatorLine],
}

func decodeAs[T Event](b []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Decode rebuilds a typed event from its replay form.
func Decode(typ string, data []byte) (Event, error) {
	dec, ok := decoders[typ]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", typ)
	}
	ev, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return ev, nil
}

// UnmarshalJSON restores the concrete event type named by the record.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ev, err := Decode(raw.Type, raw.Data)
	if err != nil {
		return err
	}
	r.Type, r.Data = raw.Type, ev
	return nil
}
