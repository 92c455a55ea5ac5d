package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/infinite-sweeper/game/event"
)

var ErrMissingHeader = errors.New("missing header field")

// Publisher is the part of the broker handlers publish through
type Publisher interface {
	Publish(ctx context.Context, msg *event.Message) error
}

// payloadOf extracts the typed payload of msg, by value or by pointer
func payloadOf[T any](msg *event.Message) (T, error) {
	switch p := msg.Payload.(type) {
	case T:
		return p, nil
	case *T:
		if p != nil {
			return *p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s carries %T", event.ErrInvalidMessage, msg.Event, msg.Payload)
}

func sender(msg *event.Message) (string, error) {
	if msg.Header.Sender == "" {
		return "", fmt.Errorf("%w: %s has no sender", ErrMissingHeader, msg.Event)
	}
	return msg.Header.Sender, nil
}

func receiver(msg *event.Message) (string, error) {
	if msg.Header.Receiver == "" {
		return "", fmt.Errorf("%w: %s has no receiver", ErrMissingHeader, msg.Event)
	}
	return msg.Header.Receiver, nil
}

// publishAll publishes msgs in order and stops at the first failure
func publishAll(ctx context.Context, pub Publisher, msgs []*event.Message) error {
	for _, msg := range msgs {
		if err := pub.Publish(ctx, msg); err != nil {
			name := msg.Event
			if msg.Header.OriginEvent != "" {
				name = msg.Event + "/" + msg.Header.OriginEvent
			}
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
	}
	return nil
}

// locked runs fn while holding mu
func locked[T any](mu *sync.Mutex, fn func() (T, error)) (T, error) {
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func componentLogger(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("component", name)
}
