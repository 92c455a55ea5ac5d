package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// frame is the wire envelope of a single message
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type validator interface {
	Validate() error
}

// Decode parses a frame sent by a client. Only events a client may send are
// accepted; the header is left empty for the transport to stamp.
func Decode(data []byte) (*Message, error) {
	var f frame
	if err := strictUnmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	var payload any
	switch f.Event {
	case FetchTiles:
		payload = &FetchTilesPayload{}
	case Pointing:
		payload = &PointingPayload{}
	case Moving:
		payload = &MovingPayload{}
	case SetViewSize:
		payload = &SetViewSizePayload{}
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, f.Event)
	}

	if len(f.Payload) == 0 {
		return nil, fmt.Errorf("%w: %s without payload", ErrInvalidMessage, f.Event)
	}
	if err := strictUnmarshal(f.Payload, payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalidMessage, f.Event, err)
	}
	if v, ok := payload.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	return &Message{Event: f.Event, Payload: deref(payload)}, nil
}

// Encode renders the frame a client receives. Multicast and broadcast
// messages are unwrapped to their origin event; headers are never sent.
func Encode(msg *Message) ([]byte, error) {
	name := msg.Event
	if name == Multicast || name == Broadcast {
		name = msg.Header.OriginEvent
	}
	if name == "" {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", name, err)
	}
	return json.Marshal(frame{Event: name, Payload: payload})
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func deref(payload any) any {
	switch p := payload.(type) {
	case *FetchTilesPayload:
		return *p
	case *PointingPayload:
		return *p
	case *MovingPayload:
		return *p
	case *SetViewSizePayload:
		return *p
	}
	return payload
}
