// Package event provides the message envelope, wire codec and pub/sub broker
// that connect the board, the cursors and the transport.
//
// The event package implements:
//   - Event name constants shared by every component
//   - One typed payload struct per event
//   - Decoding of client frames into typed messages
//   - Encoding of outbound multicast and broadcast messages
//   - A broker that fans a message out to all receivers and waits for them
//
// Message Protocol:
//
// Frames are JSON objects {"event": name, "payload": {...}}. Clients may send
// fetch-tiles, pointing, moving and set-view-size. Inside the process a
// message also carries a Header; multicast and broadcast messages name the
// event they deliver in Header.OriginEvent and reach clients as that event.
//
// Usage:
//
//	broker := event.NewBroker(logger)
//	broker.AddReceiver(func(ctx context.Context, msg *event.Message) error {
//		p := msg.Payload.(event.MovingPayload)
//		...
//		return nil
//	}, event.Moving)
//
//	if err := broker.Publish(ctx, msg); err != nil {
//		// ErrNoMatchingReceiver when nothing listens to msg.Event
//	}
//
// Publishing to an event without receivers is an error. A panicking receiver
// fails its publish call only.
package event
