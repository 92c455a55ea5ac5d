// Package websocket provides the WebSocket transport of the sweeper server.
//
// The websocket package implements:
//   - Connection upgrade and cursor spawning
//   - Decoding of client frames into broker messages
//   - Delivery of multicast and broadcast messages to connections
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection. Each client has a read goroutine that publishes its frames to
// the broker and a write goroutine that drains its send buffer. The hub run
// loop is the only writer of the client set.
//
// Message Protocol:
//
// Every frame is one JSON object {"event": ..., "payload": ...}:
//   - Incoming: fetch-tiles, pointing, moving, set-view-size
//   - Outgoing: the origin event of every multicast addressed to the
//     connection, and of every broadcast
//
// A frame that does not decode closes that connection only.
//
// Usage:
//
//	hub := websocket.NewHub(broker, board, websocket.Options{MaxViewSize: 64})
//	broker.Register(hub.Routes())
//	go hub.Run(ctx)
//
//	http.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, 20, 12)
//	})
//
// Connection Lifecycle:
//
// 1. Client connects; a spawn tile is chosen and a connection id assigned
// 2. Connection registered with hub, new-conn published
// 3. Client sends frames, receives multicasts
// 4. Disconnection or a malformed frame publishes conn-closed
package websocket
