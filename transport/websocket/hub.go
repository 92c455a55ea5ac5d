package websocket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/event"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound frames buffered per client before it is dropped.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Publisher is the part of the broker the hub publishes through
type Publisher interface {
	Publish(ctx context.Context, msg *event.Message) error
}

// Spawner picks where a new cursor starts
type Spawner interface {
	GetRandomOpenPosition() (board.Point, error)
}

// Options configures a Hub
type Options struct {
	// MaxViewSize caps requested viewport half extents; 0 means no cap.
	MaxViewSize int
	Logger      logrus.FieldLogger
}

// Client is one websocket connection and the cursor it drives
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// delivery is an encoded frame for the given connections, or for all when
// targets is nil
type delivery struct {
	targets []string
	data    []byte
}

// Hub maintains the set of active clients and routes outbound frames to them
type Hub struct {
	// Registered clients by connection id
	clients map[string]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound frames from the broker
	deliver chan delivery

	done    chan struct{}
	count   atomic.Int64
	pub     Publisher
	spawner Spawner
	maxView int
	log     logrus.FieldLogger
}

// NewHub creates a hub publishing client events through pub
func NewHub(pub Publisher, spawner Spawner, opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery),
		done:       make(chan struct{}),
		pub:        pub,
		spawner:    spawner,
		maxView:    opts.MaxViewSize,
		log:        logger.WithField("component", "hub"),
	}
}

// Routes returns the broker receivers that push frames to clients
func (h *Hub) Routes() map[string]event.ReceiverFunc {
	return map[string]event.ReceiverFunc{
		event.Multicast: h.ReceiveMulticast,
		event.Broadcast: h.ReceiveBroadcast,
	}
}

// Run starts the hub's event loop and closes every client when ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverFrame(d)

		case <-ctx.Done():
			for _, client := range h.clients {
				h.unregisterClient(client)
			}
			return
		}
	}
}

// Clients returns the number of registered connections
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and spawns a cursor with the given viewport
// half extents at a random open tile
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, width, height int) {
	width, height = h.clampView(width, height)
	pos, err := h.spawner.GetRandomOpenPosition()
	if err != nil {
		h.log.WithError(err).Error("no spawn position")
		http.Error(w, "no open tile to spawn on", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   strings.ReplaceAll(uuid.NewString(), "-", ""),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()

	msg := &event.Message{
		Event:  event.NewConn,
		Header: event.Header{Sender: client.id},
		Payload: event.NewConnPayload{
			ConnID:   client.id,
			Position: pos,
			Width:    width,
			Height:   height,
		},
	}
	if err := h.pub.Publish(context.Background(), msg); err != nil {
		h.log.WithError(err).WithField("conn", client.id).Error("failed to announce connection")
	}
	go client.readPump()
}

// ReceiveMulticast queues the encoded origin event for its target connections
func (h *Hub) ReceiveMulticast(ctx context.Context, msg *event.Message) error {
	if len(msg.Header.TargetConns) == 0 {
		return nil
	}
	return h.queue(ctx, msg, msg.Header.TargetConns)
}

// ReceiveBroadcast queues the encoded origin event for every connection
func (h *Hub) ReceiveBroadcast(ctx context.Context, msg *event.Message) error {
	return h.queue(ctx, msg, nil)
}

func (h *Hub) queue(ctx context.Context, msg *event.Message, targets []string) error {
	data, err := event.Encode(msg)
	if err != nil {
		return err
	}
	select {
	case h.deliver <- delivery{targets: targets, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return nil
	}
}

// registerClient adds a client
func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	h.count.Store(int64(len(h.clients)))
	h.log.WithFields(logrus.Fields{"conn": client.id, "clients": len(h.clients)}).Info("client registered")
}

// unregisterClient removes a client and closes its send buffer
func (h *Hub) unregisterClient(client *Client) {
	if current, ok := h.clients[client.id]; !ok || current != client {
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
	h.log.WithFields(logrus.Fields{"conn": client.id, "clients": len(h.clients)}).Info("client unregistered")
}

// deliverFrame sends a frame to its targets, dropping clients that cannot
// keep up
func (h *Hub) deliverFrame(d delivery) {
	send := func(client *Client) {
		select {
		case client.send <- d.data:
		default:
			h.log.WithField("conn", client.id).Warn("send buffer full, dropping client")
			h.unregisterClient(client)
		}
	}

	if d.targets == nil {
		for _, client := range h.clients {
			send(client)
		}
		return
	}
	for _, id := range d.targets {
		if client, ok := h.clients[id]; ok {
			send(client)
		}
	}
}

func (h *Hub) clampView(width, height int) (int, int) {
	width, height = max(width, 0), max(height, 0)
	if h.maxView > 0 {
		width, height = min(width, h.maxView), min(height, h.maxView)
	}
	return width, height
}

// readPump decodes client frames and publishes them until the connection
// fails or sends something malformed
func (c *Client) readPump() {
	log := c.hub.log.WithField("conn", c.id)
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()

		closed := &event.Message{
			Event:   event.ConnClosed,
			Header:  event.Header{Sender: c.id},
			Payload: event.ConnClosedPayload{},
		}
		if err := c.hub.pub.Publish(context.Background(), closed); err != nil {
			log.WithError(err).Warn("failed to announce disconnect")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket error")
			}
			return
		}

		msg, err := event.Decode(data)
		if err != nil {
			log.WithError(err).Warn("closing connection after malformed frame")
			return
		}
		msg.Header.Sender = c.id
		if p, ok := msg.Payload.(event.SetViewSizePayload); ok {
			p.Width, p.Height = c.hub.clampView(p.Width, p.Height)
			msg.Payload = p
		}

		if err := c.hub.pub.Publish(context.Background(), msg); err != nil {
			if errors.Is(err, event.ErrNoMatchingReceiver) {
				log.WithField("event", msg.Event).Debug("no receiver")
				continue
			}
			log.WithError(err).WithField("event", msg.Event).Warn("event failed")
		}
	}
}

// writePump writes queued frames to the connection, one websocket message
// per frame
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
