package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ReceiverFunc handles one published message
type ReceiverFunc func(ctx context.Context, msg *Message) error

// Receiver is a registered ReceiverFunc. One receiver may listen to several
// events.
type Receiver struct {
	ID     string
	Events []string
	fn     ReceiverFunc
}

// Broker dispatches published messages to every receiver of their event
type Broker struct {
	mu        sync.RWMutex
	receivers map[string][]*Receiver
	closed    bool
	log       logrus.FieldLogger
}

// NewBroker creates an empty broker
func NewBroker(logger logrus.FieldLogger) *Broker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Broker{
		receivers: make(map[string][]*Receiver),
		log:       logger,
	}
}

// AddReceiver registers fn under each of the given events
func (b *Broker) AddReceiver(fn ReceiverFunc, events ...string) *Receiver {
	r := &Receiver{ID: uuid.NewString(), Events: events, fn: fn}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range events {
		b.receivers[e] = append(b.receivers[e], r)
	}
	return r
}

// Register adds one receiver per entry of a dispatch table
func (b *Broker) Register(table map[string]ReceiverFunc) []*Receiver {
	out := make([]*Receiver, 0, len(table))
	for e, fn := range table {
		out = append(out, b.AddReceiver(fn, e))
	}
	return out
}

// RemoveReceiver unregisters r from all of its events. It reports whether r
// was registered.
func (b *Broker) RemoveReceiver(r *Receiver) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := false
	for _, e := range r.Events {
		list := b.receivers[e]
		for i, cur := range list {
			if cur != r {
				continue
			}
			list = append(list[:i:i], list[i+1:]...)
			removed = true
			break
		}
		if len(list) == 0 {
			delete(b.receivers, e)
		} else {
			b.receivers[e] = list
		}
	}
	return removed
}

// Receivers returns how many receivers listen to event
func (b *Broker) Receivers(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.receivers[event])
}

// Close makes every later Publish fail with ErrBrokerClosed
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Publish runs every receiver of msg.Event concurrently and waits for all of
// them. It returns the first receiver error.
func (b *Broker) Publish(ctx context.Context, msg *Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	receivers := append([]*Receiver(nil), b.receivers[msg.Event]...)
	b.mu.RUnlock()

	if len(receivers) == 0 {
		return fmt.Errorf("%w: %s", ErrNoMatchingReceiver, msg.Event)
	}

	var g errgroup.Group
	for _, r := range receivers {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					b.log.WithFields(logrus.Fields{
						"event":    msg.Event,
						"receiver": r.ID,
					}).Errorf("receiver panic: %v\n%s", p, debug.Stack())
					err = fmt.Errorf("receiver %s panicked on %s: %v", r.ID, msg.Event, p)
				}
			}()
			return r.fn(ctx, msg)
		})
	}
	return g.Wait()
}
