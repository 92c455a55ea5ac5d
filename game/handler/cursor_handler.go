package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/cursor"
	"github.com/wricardo/infinite-sweeper/game/event"
)

// DefaultReviveCooldown is how long a cursor stays dead after hitting a mine
const DefaultReviveCooldown = 3 * time.Minute

// CursorOptions configures a CursorHandler
type CursorOptions struct {
	ReviveCooldown time.Duration
	Now            func() time.Time
	Logger         logrus.FieldLogger
}

// CursorHandler keeps cursors and their watch graph in step with connection
// events and fans board changes out to the cursors that can see them
type CursorHandler struct {
	mu       sync.Mutex
	cursors  *cursor.Registry
	pub      Publisher
	cooldown time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewCursorHandler creates a handler over reg publishing through pub
func NewCursorHandler(reg *cursor.Registry, pub Publisher, opts CursorOptions) *CursorHandler {
	if opts.ReviveCooldown <= 0 {
		opts.ReviveCooldown = DefaultReviveCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CursorHandler{
		cursors:  reg,
		pub:      pub,
		cooldown: opts.ReviveCooldown,
		now:      opts.Now,
		log:      componentLogger(opts.Logger, "cursor-handler"),
	}
}

// Routes returns the events this handler receives
func (h *CursorHandler) Routes() map[string]event.ReceiverFunc {
	return map[string]event.ReceiverFunc{
		event.NewConn:          h.ReceiveNewConn,
		event.Pointing:         h.ReceivePointing,
		event.PointingResult:   h.ReceivePointingResult,
		event.Moving:           h.ReceiveMoving,
		event.MovableResult:    h.ReceiveMovableResult,
		event.SetViewSize:      h.ReceiveSetViewSize,
		event.ConnClosed:       h.ReceiveConnClosed,
		event.SingleTileOpened: h.ReceiveSingleTileOpened,
		event.TilesOpened:      h.ReceiveTilesOpened,
		event.FlagSet:          h.ReceiveFlagSet,
	}
}

// ReceiveNewConn creates the cursor and links it with every cursor it sees
// or is seen by
func (h *CursorHandler) ReceiveNewConn(ctx context.Context, msg *event.Message) error {
	p, err := payloadOf[event.NewConnPayload](msg)
	if err != nil {
		return err
	}

	msgs, err := locked(&h.mu, func() ([]*event.Message, error) { return h.newConn(p) })
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, msgs)
}

func (h *CursorHandler) newConn(p event.NewConnPayload) ([]*event.Message, error) {
	c := h.cursors.Create(p.ConnID, p.Position, p.Width, p.Height)
	msgs := []*event.Message{
		event.NewMulticast(event.MyCursor, []string{c.ConnID}, event.MyCursorPayload(cursorPayload(c))),
	}

	visible := h.cursors.ExistsRange(c.ViewRect(), []string{c.ConnID}, nil)
	for _, other := range visible {
		if err := h.cursors.AddWatcher(c.ConnID, other.ConnID); err != nil {
			return nil, err
		}
	}
	if len(visible) > 0 {
		msgs = append(msgs, event.NewMulticast(event.Cursors, []string{c.ConnID}, cursorsPayload(visible...)))
	}

	seers := h.cursors.ViewIncludes(c.Position, c.ConnID)
	for _, other := range seers {
		if err := h.cursors.AddWatcher(other.ConnID, c.ConnID); err != nil {
			return nil, err
		}
	}
	if len(seers) > 0 {
		msgs = append(msgs, event.NewMulticast(event.Cursors, connIDs(seers), cursorsPayload(c)))
	}
	return msgs, nil
}

// ReceivePointing forwards a click inside the viewport of a living cursor to
// the board
func (h *CursorHandler) ReceivePointing(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.PointingPayload](msg)
	if err != nil {
		return err
	}

	c, ok, err := h.interactive(id)
	if err != nil || !ok {
		return err
	}
	if !c.CheckInView(p.Position) {
		h.log.WithFields(logrus.Fields{"conn": id, "pointer": p.Position.String()}).Debug("pointer outside view")
		return nil
	}

	return publishAll(ctx, h.pub, []*event.Message{{
		Event:  event.TryPointing,
		Header: event.Header{Sender: id},
		Payload: event.TryPointingPayload{
			CursorPosition: c.Position,
			NewPointer:     p.Position,
			Color:          c.Color,
			ClickType:      p.ClickType,
		},
	}})
}

// ReceivePointingResult stores the new pointer and tells the cursor and its
// watchers
func (h *CursorHandler) ReceivePointingResult(ctx context.Context, msg *event.Message) error {
	id, err := receiver(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.PointingResultPayload](msg)
	if err != nil {
		return err
	}

	out, err := locked(&h.mu, func() (*event.Message, error) { return h.pointingResult(id, p) })
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, []*event.Message{out})
}

func (h *CursorHandler) pointingResult(id string, p event.PointingResultPayload) (*event.Message, error) {
	c, err := h.cursors.Get(id)
	if err != nil {
		return nil, err
	}

	var pointer *board.Point
	if p.Pointable {
		ptr := p.Pointer
		pointer = &ptr
	}
	if err := h.cursors.SetPointer(id, pointer); err != nil {
		return nil, err
	}
	watchers, err := h.cursors.GetWatchers(id)
	if err != nil {
		return nil, err
	}

	return event.NewMulticast(event.PointerSet, append([]string{id}, watchers...), event.PointerSetPayload{
		OriginPosition: c.Pointer,
		NewPosition:    pointer,
		Color:          c.Color,
	}), nil
}

// ReceiveMoving asks the board whether a one-tile step is allowed
func (h *CursorHandler) ReceiveMoving(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.MovingPayload](msg)
	if err != nil {
		return err
	}

	c, ok, err := h.interactive(id)
	if err != nil || !ok {
		return err
	}
	if p.Position == c.Position || !c.CheckInteractable(p.Position) {
		h.log.WithFields(logrus.Fields{"conn": id, "target": p.Position.String()}).Debug("ignoring move")
		return nil
	}

	return publishAll(ctx, h.pub, []*event.Message{{
		Event:   event.CheckMovable,
		Header:  event.Header{Sender: id},
		Payload: event.CheckMovablePayload{Position: p.Position},
	}})
}

// ReceiveMovableResult moves the cursor and repairs its watch edges
func (h *CursorHandler) ReceiveMovableResult(ctx context.Context, msg *event.Message) error {
	id, err := receiver(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.MovableResultPayload](msg)
	if err != nil {
		return err
	}
	if !p.Movable {
		return nil
	}

	msgs, err := locked(&h.mu, func() ([]*event.Message, error) { return h.move(id, p.Position) })
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, msgs)
}

func (h *CursorHandler) move(id string, to board.Point) ([]*event.Message, error) {
	c, err := h.cursors.Get(id)
	if err != nil {
		return nil, err
	}
	from := c.Position
	oldWatchers, err := h.cursors.GetWatchers(id)
	if err != nil {
		return nil, err
	}
	watching, err := h.cursors.GetWatching(id)
	if err != nil {
		return nil, err
	}

	if err := h.cursors.SetPosition(id, to); err != nil {
		return nil, err
	}
	c.Position = to

	// what the mover sees
	for _, t := range watching {
		target, err := h.cursors.Get(t)
		if err != nil {
			return nil, err
		}
		if !c.CheckInView(target.Position) {
			if err := h.cursors.RemoveWatcher(id, t); err != nil {
				return nil, err
			}
		}
	}
	appeared := h.cursors.ExistsRange(c.ViewRect(), append([]string{id}, watching...), nil)
	for _, other := range appeared {
		if err := h.cursors.AddWatcher(id, other.ConnID); err != nil {
			return nil, err
		}
	}

	// who sees the mover
	for _, w := range oldWatchers {
		watcher, err := h.cursors.Get(w)
		if err != nil {
			return nil, err
		}
		if !watcher.CheckInView(to) {
			if err := h.cursors.RemoveWatcher(w, id); err != nil {
				return nil, err
			}
		}
	}
	seers := h.cursors.ViewIncludes(to, append([]string{id}, oldWatchers...)...)
	for _, other := range seers {
		if err := h.cursors.AddWatcher(other.ConnID, id); err != nil {
			return nil, err
		}
	}

	var msgs []*event.Message
	if len(appeared) > 0 {
		msgs = append(msgs, event.NewMulticast(event.Cursors, []string{id}, cursorsPayload(appeared...)))
	}
	if len(oldWatchers) > 0 {
		msgs = append(msgs, event.NewMulticast(event.Moved, oldWatchers, event.MovedPayload{
			OriginPosition: from,
			NewPosition:    to,
			Color:          c.Color,
		}))
	}
	if len(seers) > 0 {
		msgs = append(msgs, event.NewMulticast(event.Cursors, connIDs(seers), cursorsPayload(c)))
	}
	return msgs, nil
}

// ReceiveSetViewSize resizes the viewport and repairs the edges it changes
func (h *CursorHandler) ReceiveSetViewSize(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.SetViewSizePayload](msg)
	if err != nil {
		return err
	}

	msgs, err := locked(&h.mu, func() ([]*event.Message, error) { return h.resize(id, p.Width, p.Height) })
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, msgs)
}

func (h *CursorHandler) resize(id string, width, height int) ([]*event.Message, error) {
	c, err := h.cursors.Get(id)
	if err != nil {
		return nil, err
	}
	oldView := c.ViewRect()
	if err := h.cursors.SetSize(id, width, height); err != nil {
		return nil, err
	}
	c.Width, c.Height = width, height
	newView := c.ViewRect()

	watching, err := h.cursors.GetWatching(id)
	if err != nil {
		return nil, err
	}
	for _, t := range watching {
		target, err := h.cursors.Get(t)
		if err != nil {
			return nil, err
		}
		if !newView.Contains(target.Position) {
			if err := h.cursors.RemoveWatcher(id, t); err != nil {
				return nil, err
			}
		}
	}

	appeared := h.cursors.ExistsRange(newView, append([]string{id}, watching...), &oldView)
	for _, other := range appeared {
		if err := h.cursors.AddWatcher(id, other.ConnID); err != nil {
			return nil, err
		}
	}
	if len(appeared) == 0 {
		return nil, nil
	}
	return []*event.Message{
		event.NewMulticast(event.Cursors, []string{id}, cursorsPayload(appeared...)),
	}, nil
}

// ReceiveConnClosed tells the watchers the cursor quit and removes it
func (h *CursorHandler) ReceiveConnClosed(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}

	out, err := locked(&h.mu, func() (*event.Message, error) { return h.quit(id) })
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return publishAll(ctx, h.pub, []*event.Message{out})
}

func (h *CursorHandler) quit(id string) (*event.Message, error) {
	c, err := h.cursors.Get(id)
	if err != nil {
		return nil, err
	}
	watchers, err := h.cursors.GetWatchers(id)
	if err != nil {
		return nil, err
	}
	if err := h.cursors.Remove(id); err != nil {
		return nil, err
	}
	if len(watchers) == 0 {
		return nil, nil
	}
	return event.NewMulticast(event.CursorQuit, watchers, event.CursorQuitPayload(cursorPayload(c))), nil
}

// ReceiveSingleTileOpened shows an opened tile to everyone who sees it. An
// opened mine kills the cursors next to it.
func (h *CursorHandler) ReceiveSingleTileOpened(ctx context.Context, msg *event.Message) error {
	p, err := payloadOf[event.SingleTileOpenedPayload](msg)
	if err != nil {
		return err
	}
	data, err := board.TilesFromString(p.Tile)
	if err != nil || len(data) != 1 {
		return fmt.Errorf("%w: tile %q", event.ErrInvalidMessage, p.Tile)
	}
	tile, err := board.DecodeTile(data[0])
	if err != nil {
		return err
	}

	msgs, err := locked(&h.mu, func() ([]*event.Message, error) { return h.singleTileOpened(p, tile) })
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, msgs)
}

func (h *CursorHandler) singleTileOpened(p event.SingleTileOpenedPayload, tile board.Tile) ([]*event.Message, error) {
	var msgs []*event.Message
	if viewers := h.cursors.ViewIncludes(p.Position); len(viewers) > 0 {
		msgs = append(msgs, event.NewMulticast(event.SingleTileOpened, connIDs(viewers), p))
	}
	if tile.IsMine {
		died, err := h.explode(p.Position)
		if err != nil {
			return nil, err
		}
		if died != nil {
			msgs = append(msgs, died)
		}
	}
	return msgs, nil
}

func (h *CursorHandler) explode(p board.Point) (*event.Message, error) {
	victims := h.cursors.ExistsRange(board.RectAround(p, 1, 1), nil, nil)
	if len(victims) == 0 {
		return nil, nil
	}
	reviveAt := h.now().Add(h.cooldown)
	for _, v := range victims {
		if err := h.cursors.Kill(v.ConnID, reviveAt); err != nil {
			return nil, err
		}
	}
	h.log.WithFields(logrus.Fields{"mine": p.String(), "victims": len(victims)}).Info("mine exploded")
	return event.NewMulticast(event.YouDied, connIDs(victims), event.YouDiedPayload{
		ReviveAt: reviveAt.UTC().Format(time.RFC3339),
	}), nil
}

// ReceiveTilesOpened shows a cascade to every cursor whose view touches it
func (h *CursorHandler) ReceiveTilesOpened(ctx context.Context, msg *event.Message) error {
	p, err := payloadOf[event.TilesOpenedPayload](msg)
	if err != nil {
		return err
	}

	viewers := h.viewersOf(board.Rect{Start: p.StartP, End: p.EndP})
	if len(viewers) == 0 {
		return nil
	}
	return publishAll(ctx, h.pub, []*event.Message{
		event.NewMulticast(event.TilesOpened, connIDs(viewers), p),
	})
}

// ReceiveFlagSet shows a flag change to everyone who sees the tile
func (h *CursorHandler) ReceiveFlagSet(ctx context.Context, msg *event.Message) error {
	p, err := payloadOf[event.FlagSetPayload](msg)
	if err != nil {
		return err
	}

	viewers := h.viewersOf(board.Rect{Start: p.Position, End: p.Position})
	if len(viewers) == 0 {
		return nil
	}
	return publishAll(ctx, h.pub, []*event.Message{
		event.NewMulticast(event.FlagSet, connIDs(viewers), p),
	})
}

// interactive returns the cursor when it is alive, clearing an expired
// cooldown
func (h *CursorHandler) interactive(id string) (cursor.Cursor, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	alive, err := h.cursors.CheckAlive(id, h.now())
	if err != nil {
		return cursor.Cursor{}, false, err
	}
	if !alive {
		h.log.WithField("conn", id).Debug("ignoring dead cursor")
		return cursor.Cursor{}, false, nil
	}
	c, err := h.cursors.Get(id)
	if err != nil {
		return cursor.Cursor{}, false, err
	}
	return c, true, nil
}

func cursorPayload(c cursor.Cursor) event.CursorPayload {
	return event.CursorPayload{Position: c.Position, Pointer: c.Pointer, Color: c.Color}
}

func cursorsPayload(cs ...cursor.Cursor) event.CursorsPayload {
	out := event.CursorsPayload{Cursors: make([]event.CursorPayload, len(cs))}
	for i, c := range cs {
		out.Cursors[i] = cursorPayload(c)
	}
	return out
}

func connIDs(cs []cursor.Cursor) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ConnID
	}
	return out
}

func (h *CursorHandler) viewersOf(r board.Rect) []cursor.Cursor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursors.ViewOverlaps(r)
}
