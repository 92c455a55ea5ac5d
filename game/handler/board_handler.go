package handler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/event"
)

// DefaultMaxFetchArea bounds the tiles a single fetch-tiles may ask for
const DefaultMaxFetchArea = 200 * 200

var ErrFetchTooLarge = errors.New("fetch area too large")

// BoardOptions configures a BoardHandler
type BoardOptions struct {
	MaxFetchArea int
	Logger       logrus.FieldLogger
}

// BoardHandler answers tile queries and applies clicks to the board
type BoardHandler struct {
	mu           sync.Mutex
	board        *board.Board
	pub          Publisher
	maxFetchArea int
	log          logrus.FieldLogger
}

// NewBoardHandler creates a handler over b publishing through pub
func NewBoardHandler(b *board.Board, pub Publisher, opts BoardOptions) *BoardHandler {
	if opts.MaxFetchArea <= 0 {
		opts.MaxFetchArea = DefaultMaxFetchArea
	}
	return &BoardHandler{
		board:        b,
		pub:          pub,
		maxFetchArea: opts.MaxFetchArea,
		log:          componentLogger(opts.Logger, "board-handler"),
	}
}

// Routes returns the events this handler receives
func (h *BoardHandler) Routes() map[string]event.ReceiverFunc {
	return map[string]event.ReceiverFunc{
		event.NewConn:      h.ReceiveNewConn,
		event.FetchTiles:   h.ReceiveFetchTiles,
		event.TryPointing:  h.ReceiveTryPointing,
		event.CheckMovable: h.ReceiveCheckMovable,
	}
}

// ReceiveNewConn sends the tiles around the spawn point to the new connection
func (h *BoardHandler) ReceiveNewConn(ctx context.Context, msg *event.Message) error {
	p, err := payloadOf[event.NewConnPayload](msg)
	if err != nil {
		return err
	}
	view := board.RectAround(p.Position, p.Width, p.Height)
	out, err := h.tiles(view, p.ConnID)
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, []*event.Message{out})
}

// ReceiveFetchTiles sends the requested rectangle to the sender
func (h *BoardHandler) ReceiveFetchTiles(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.FetchTilesPayload](msg)
	if err != nil {
		return err
	}
	out, err := h.tiles(board.Rect{Start: p.StartP, End: p.EndP}, id)
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, []*event.Message{out})
}

// ReceiveTryPointing decides whether a pointer may land and applies its click
func (h *BoardHandler) ReceiveTryPointing(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.TryPointingPayload](msg)
	if err != nil {
		return err
	}

	msgs, err := locked(&h.mu, func() ([]*event.Message, error) { return h.tryPointing(id, p) })
	if err != nil {
		return err
	}
	return publishAll(ctx, h.pub, msgs)
}

// ReceiveCheckMovable reports whether the sender may stand on a tile
func (h *BoardHandler) ReceiveCheckMovable(ctx context.Context, msg *event.Message) error {
	id, err := sender(msg)
	if err != nil {
		return err
	}
	p, err := payloadOf[event.CheckMovablePayload](msg)
	if err != nil {
		return err
	}

	tile, err := locked(&h.mu, func() (board.Tile, error) { return h.board.GetTile(p.Position) })
	if err != nil {
		return fmt.Errorf("failed to read tile %s: %w", p.Position, err)
	}

	return publishAll(ctx, h.pub, []*event.Message{{
		Event:   event.MovableResult,
		Header:  event.Header{Receiver: id},
		Payload: event.MovableResultPayload{Position: p.Position, Movable: tile.IsOpen && !tile.IsMine},
	}})
}

func (h *BoardHandler) tiles(r board.Rect, target string) (*event.Message, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %s to %s", board.ErrInvalidRect, r.Start, r.End)
	}
	if !r.Fits(h.maxFetchArea) {
		return nil, fmt.Errorf("%w: %dx%d tiles, limit %d", ErrFetchTooLarge, r.Width(), r.Height(), h.maxFetchArea)
	}

	data, err := locked(&h.mu, func() ([]byte, error) { return h.board.Fetch(r.Start, r.End) })
	if err != nil {
		return nil, err
	}

	return event.NewMulticast(event.Tiles, []string{target}, event.TilesPayload{
		StartP: r.Start,
		EndP:   r.End,
		Tiles:  board.TilesToString(data),
	}), nil
}

func (h *BoardHandler) tryPointing(id string, p event.TryPointingPayload) ([]*event.Message, error) {
	ptr := p.NewPointer
	around, err := h.board.Fetch(ptr.Add(-1, 1), ptr.Add(1, -1))
	if err != nil {
		return nil, err
	}
	pointable := false
	for _, v := range around {
		if t, err := board.DecodeTile(v); err == nil && t.IsOpen {
			pointable = true
			break
		}
	}

	msgs := []*event.Message{{
		Event:   event.PointingResult,
		Header:  event.Header{Receiver: id},
		Payload: event.PointingResultPayload{Pointer: ptr, Pointable: pointable},
	}}

	cur := board.RectAround(p.CursorPosition, 1, 1)
	if !pointable || !cur.Contains(ptr) {
		return msgs, nil
	}

	tile, err := h.board.GetTile(ptr)
	if err != nil {
		return nil, err
	}

	var out *event.Message
	switch p.ClickType {
	case event.GeneralClick:
		out, err = h.open(ptr, tile)
	case event.SpecialClick:
		out, err = h.flag(ptr, tile, p.Color)
	default:
		err = fmt.Errorf("%w: click type %q", event.ErrInvalidMessage, p.ClickType)
	}
	if err != nil {
		return nil, err
	}
	if out != nil {
		out.Header.Sender = id
		msgs = append(msgs, out)
	}
	return msgs, nil
}

func (h *BoardHandler) open(p board.Point, tile board.Tile) (*event.Message, error) {
	if !tile.Closed() {
		h.log.WithField("tile", p.String()).Debug("ignoring click on open or flagged tile")
		return nil, nil
	}

	if !tile.Empty() {
		opened, err := h.board.OpenTile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		return &event.Message{
			Event: event.SingleTileOpened,
			Payload: event.SingleTileOpenedPayload{
				Position: p,
				Tile:     board.TilesToString([]byte{opened.Byte()}),
			},
		}, nil
	}

	start, end, data, err := h.board.OpenTilesCascade(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open region at %s: %w", p, err)
	}
	return &event.Message{
		Event: event.TilesOpened,
		Payload: event.TilesOpenedPayload{
			StartP: start,
			EndP:   end,
			Tiles:  board.TilesToString(data),
		},
	}, nil
}

func (h *BoardHandler) flag(p board.Point, tile board.Tile, color board.Color) (*event.Message, error) {
	if tile.IsOpen {
		h.log.WithField("tile", p.String()).Debug("ignoring flag on open tile")
		return nil, nil
	}

	set := !tile.IsFlag
	updated, err := h.board.SetFlagState(p, set, color)
	if err != nil {
		return nil, fmt.Errorf("failed to flag %s: %w", p, err)
	}

	payload := event.FlagSetPayload{Position: p, IsSet: set}
	if set {
		c := updated.Color
		payload.Color = &c
	}
	return &event.Message{Event: event.FlagSet, Payload: payload}, nil
}
