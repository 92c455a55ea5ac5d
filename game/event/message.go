package event

// Header carries routing data. Empty fields are omitted on the wire.
type Header struct {
	// Sender is the connection that caused the message
	Sender string `json:"sender,omitempty"`
	// Receiver is the connection a result is addressed to
	Receiver string `json:"receiver,omitempty"`
	// TargetConns lists the connections a multicast is delivered to
	TargetConns []string `json:"target_conns,omitempty"`
	// OriginEvent is the event a multicast or broadcast delivers
	OriginEvent string `json:"origin_event,omitempty"`
}

// Message is the unit published through the broker
type Message struct {
	Event   string `json:"event"`
	Header  Header `json:"header"`
	Payload any    `json:"payload"`
}

// NewMulticast wraps payload for delivery to the given connections
func NewMulticast(origin string, targets []string, payload any) *Message {
	return &Message{
		Event:   Multicast,
		Header:  Header{TargetConns: targets, OriginEvent: origin},
		Payload: payload,
	}
}

// NewBroadcast wraps payload for delivery to every connection
func NewBroadcast(origin string, payload any) *Message {
	return &Message{
		Event:   Broadcast,
		Header:  Header{OriginEvent: origin},
		Payload: payload,
	}
}
