package event

import "errors"

var (
	ErrNoMatchingReceiver = errors.New("no matching receiver")
	ErrBrokerClosed       = errors.New("broker closed")
	ErrUnknownEvent       = errors.New("unknown event")
	ErrInvalidMessage     = errors.New("invalid message")
)
