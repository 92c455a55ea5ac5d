package handler

import (
	"context"
	"math/bits"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/infinite-sweeper/game/board"
	"github.com/wricardo/infinite-sweeper/game/event"
)

// islandBoard has an empty section at (0,0) surrounded by closed 1s, with the
// origin tile open
func islandBoard() *board.Board {
	const n = 4
	return board.New(board.Options{
		SectionLength: n,
		Factory: func(p board.Point) *board.Section {
			s := &board.Section{P: p, Length: n, Data: make([]byte, n*n)}
			if p != (board.Point{}) {
				one := board.Tile{Number: 1}.Byte()
				for i := range s.Data {
					s.Data[i] = one
				}
			}
			return s
		},
	})
}

func newTestBoardHandler(opts BoardOptions) (*BoardHandler, *board.Board, *mockPublisher) {
	b := islandBoard()
	pub := &mockPublisher{}
	return NewBoardHandler(b, pub, opts), b, pub
}

func tryPointing(cursorAt, ptr board.Point, click event.ClickType) *event.Message {
	return &event.Message{
		Event:  event.TryPointing,
		Header: event.Header{Sender: "example"},
		Payload: event.TryPointingPayload{
			CursorPosition: cursorAt,
			NewPointer:     ptr,
			Color:          board.Red,
			ClickType:      click,
		},
	}
}

func requirePointingResult(t *testing.T, msg *event.Message, ptr board.Point, pointable bool) {
	t.Helper()
	require.Equal(t, event.PointingResult, msg.Event)
	assert.Equal(t, "example", msg.Header.Receiver)
	assert.Equal(t, event.PointingResultPayload{Pointer: ptr, Pointable: pointable}, msg.Payload)
}

func TestBoardNewConnSendsView(t *testing.T) {
	h, _, pub := newTestBoardHandler(BoardOptions{})
	msg := &event.Message{
		Event:   event.NewConn,
		Payload: event.NewConnPayload{ConnID: "example", Position: board.Point{}, Width: 1, Height: 1},
	}
	require.NoError(t, h.ReceiveNewConn(context.Background(), msg))

	msgs := pub.published()
	require.Len(t, msgs, 1)
	p := requireMulticast[event.TilesPayload](t, msgs[0], event.Tiles, "example")
	assert.Equal(t, board.Point{X: -1, Y: 1}, p.StartP)
	assert.Equal(t, board.Point{X: 1, Y: -1}, p.EndP)

	data, err := board.TilesFromString(p.Tiles)
	require.NoError(t, err)
	require.Len(t, data, 9)
	center, err := board.DecodeTile(data[4])
	require.NoError(t, err)
	assert.True(t, center.IsOpen)
}

func TestBoardFetchTiles(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	start, end := board.Point{X: -2, Y: 3}, board.Point{X: 5, Y: -1}
	msg := &event.Message{
		Event:   event.FetchTiles,
		Header:  event.Header{Sender: "example"},
		Payload: event.FetchTilesPayload{StartP: start, EndP: end},
	}
	require.NoError(t, h.ReceiveFetchTiles(context.Background(), msg))

	msgs := pub.published()
	require.Len(t, msgs, 1)
	p := requireMulticast[event.TilesPayload](t, msgs[0], event.Tiles, "example")

	want, err := b.Fetch(start, end)
	require.NoError(t, err)
	assert.Equal(t, board.TilesToString(want), p.Tiles)
}

func TestBoardFetchTilesErrors(t *testing.T) {
	side := 1 << (bits.UintSize / 2)
	tests := []struct {
		name    string
		header  event.Header
		payload event.FetchTilesPayload
		want    error
	}{
		{
			name:    "no sender",
			payload: event.FetchTilesPayload{EndP: board.Point{X: 1, Y: -1}},
			want:    ErrMissingHeader,
		},
		{
			name:    "inverted",
			header:  event.Header{Sender: "example"},
			payload: event.FetchTilesPayload{StartP: board.Point{X: 1}, EndP: board.Point{}},
			want:    board.ErrInvalidRect,
		},
		{
			name:    "too large",
			header:  event.Header{Sender: "example"},
			payload: event.FetchTilesPayload{StartP: board.Point{X: -2, Y: 2}, EndP: board.Point{X: 2, Y: -2}},
			want:    ErrFetchTooLarge,
		},
		{
			name:    "area wraps to zero",
			header:  event.Header{Sender: "example"},
			payload: event.FetchTilesPayload{StartP: board.Point{X: 0, Y: side - 1}, EndP: board.Point{X: side - 1, Y: 0}},
			want:    ErrFetchTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, pub := newTestBoardHandler(BoardOptions{MaxFetchArea: 16})
			msg := &event.Message{Event: event.FetchTiles, Header: tt.header, Payload: tt.payload}
			assert.ErrorIs(t, h.ReceiveFetchTiles(context.Background(), msg), tt.want)
			assert.Empty(t, pub.published())
		})
	}
}

func TestBoardFetchTilesAfterRejectedFetch(t *testing.T) {
	h, _, pub := newTestBoardHandler(BoardOptions{MaxFetchArea: 16})
	side := 1 << (bits.UintSize / 2)
	huge := &event.Message{
		Event:   event.FetchTiles,
		Header:  event.Header{Sender: "greedy"},
		Payload: event.FetchTilesPayload{StartP: board.Point{X: 0, Y: side - 1}, EndP: board.Point{X: side - 1, Y: 0}},
	}
	require.ErrorIs(t, h.ReceiveFetchTiles(context.Background(), huge), ErrFetchTooLarge)

	// other connections keep being served
	done := make(chan error, 1)
	go func() {
		done <- h.ReceiveFetchTiles(context.Background(), &event.Message{
			Event:   event.FetchTiles,
			Header:  event.Header{Sender: "example"},
			Payload: event.FetchTilesPayload{},
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("fetch-tiles blocked after a rejected fetch")
	}
	msgs := pub.published()
	require.Len(t, msgs, 1)
	requireMulticast[event.TilesPayload](t, msgs[0], event.Tiles, "example")
}

func TestBoardTryPointingCascade(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	ptr := board.Point{X: 1, Y: 1}

	require.NoError(t, h.ReceiveTryPointing(context.Background(), tryPointing(board.Point{}, ptr, event.GeneralClick)))

	msgs := pub.published()
	require.Len(t, msgs, 2)
	requirePointingResult(t, msgs[0], ptr, true)

	require.Equal(t, event.TilesOpened, msgs[1].Event)
	assert.Equal(t, "example", msgs[1].Header.Sender)
	p, ok := msgs[1].Payload.(event.TilesOpenedPayload)
	require.True(t, ok)
	assert.Equal(t, board.Point{X: -1, Y: 4}, p.StartP)
	assert.Equal(t, board.Point{X: 4, Y: -1}, p.EndP)

	data, err := board.TilesFromString(p.Tiles)
	require.NoError(t, err)
	require.Len(t, data, 36)
	for i, v := range data {
		tile, err := board.DecodeTile(v)
		require.NoError(t, err)
		assert.True(t, tile.IsOpen, "tile %d", i)
	}

	outside, err := b.GetTile(board.Point{X: 5, Y: 5})
	require.NoError(t, err)
	assert.False(t, outside.IsOpen)
}

func TestBoardTryPointingSingleTile(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	ptr := board.Point{X: -1, Y: 0}

	require.NoError(t, h.ReceiveTryPointing(context.Background(), tryPointing(board.Point{}, ptr, event.GeneralClick)))

	msgs := pub.published()
	require.Len(t, msgs, 2)
	requirePointingResult(t, msgs[0], ptr, true)
	assert.Equal(t, &event.Message{
		Event:  event.SingleTileOpened,
		Header: event.Header{Sender: "example"},
		Payload: event.SingleTileOpenedPayload{
			Position: ptr,
			Tile:     board.TilesToString([]byte{board.Tile{IsOpen: true, Number: 1}.Byte()}),
		},
	}, msgs[1])

	tile, err := b.GetTile(ptr)
	require.NoError(t, err)
	assert.True(t, tile.IsOpen)
}

func TestBoardTryPointingMine(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	ptr := board.Point{X: 1, Y: 0}
	require.NoError(t, b.UpdateTile(ptr, board.Tile{IsMine: true}))

	require.NoError(t, h.ReceiveTryPointing(context.Background(), tryPointing(board.Point{}, ptr, event.GeneralClick)))

	msgs := pub.published()
	require.Len(t, msgs, 2)
	p, ok := msgs[1].Payload.(event.SingleTileOpenedPayload)
	require.True(t, ok)
	data, err := board.TilesFromString(p.Tile)
	require.NoError(t, err)
	require.Len(t, data, 1)
	tile, err := board.DecodeTile(data[0])
	require.NoError(t, err)
	assert.Equal(t, board.Tile{IsOpen: true, IsMine: true}, tile)
}

func TestBoardTryPointingFlagToggle(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	ctx := context.Background()
	ptr := board.Point{X: 1, Y: 0}

	require.NoError(t, h.ReceiveTryPointing(ctx, tryPointing(board.Point{}, ptr, event.SpecialClick)))
	msgs := pub.published()
	require.Len(t, msgs, 2)
	red := board.Red
	assert.Equal(t, event.FlagSetPayload{Position: ptr, IsSet: true, Color: &red}, msgs[1].Payload)
	assert.Equal(t, "example", msgs[1].Header.Sender)

	tile, err := b.GetTile(ptr)
	require.NoError(t, err)
	assert.True(t, tile.IsFlag)
	assert.Equal(t, board.Red, tile.Color)

	pub.reset()
	require.NoError(t, h.ReceiveTryPointing(ctx, tryPointing(board.Point{}, ptr, event.SpecialClick)))
	msgs = pub.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, event.FlagSetPayload{Position: ptr, IsSet: false}, msgs[1].Payload)

	tile, err = b.GetTile(ptr)
	require.NoError(t, err)
	assert.False(t, tile.IsFlag)
	assert.Equal(t, board.NoColor, tile.Color)
}

func TestBoardTryPointingFlaggedTileIgnoresOpen(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	ptr := board.Point{X: 1, Y: 0}
	require.NoError(t, b.UpdateTile(ptr, board.Tile{IsFlag: true, Color: board.Blue}))

	require.NoError(t, h.ReceiveTryPointing(context.Background(), tryPointing(board.Point{}, ptr, event.GeneralClick)))

	msgs := pub.published()
	require.Len(t, msgs, 1)
	requirePointingResult(t, msgs[0], ptr, true)
	tile, err := b.GetTile(ptr)
	require.NoError(t, err)
	assert.False(t, tile.IsOpen)
}

func TestBoardTryPointingOnlyResult(t *testing.T) {
	tests := []struct {
		name      string
		cursorAt  board.Point
		ptr       board.Point
		pointable bool
	}{
		{"nothing open nearby", board.Point{X: 10, Y: 9}, board.Point{X: 10, Y: 10}, false},
		{"out of reach", board.Point{X: 3, Y: 3}, board.Point{X: 1, Y: 1}, true},
		{"already open", board.Point{}, board.Point{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, pub := newTestBoardHandler(BoardOptions{})
			require.NoError(t, h.ReceiveTryPointing(context.Background(), tryPointing(tt.cursorAt, tt.ptr, event.GeneralClick)))

			msgs := pub.published()
			require.Len(t, msgs, 1)
			requirePointingResult(t, msgs[0], tt.ptr, tt.pointable)
		})
	}
}

func TestBoardCheckMovable(t *testing.T) {
	h, b, pub := newTestBoardHandler(BoardOptions{})
	require.NoError(t, b.UpdateTile(board.Point{X: 0, Y: 1}, board.Tile{IsOpen: true, IsMine: true}))

	tests := []struct {
		p       board.Point
		movable bool
	}{
		{board.Point{}, true},
		{board.Point{X: 1, Y: 1}, false},
		{board.Point{X: 0, Y: 1}, false},
	}
	for _, tt := range tests {
		pub.reset()
		msg := &event.Message{
			Event:   event.CheckMovable,
			Header:  event.Header{Sender: "example"},
			Payload: event.CheckMovablePayload{Position: tt.p},
		}
		require.NoError(t, h.ReceiveCheckMovable(context.Background(), msg))

		msgs := pub.published()
		require.Len(t, msgs, 1)
		assert.Equal(t, &event.Message{
			Event:   event.MovableResult,
			Header:  event.Header{Receiver: "example"},
			Payload: event.MovableResultPayload{Position: tt.p, Movable: tt.movable},
		}, msgs[0], "position %s", tt.p)
	}
}

func TestBoardPublishErrorSurfaces(t *testing.T) {
	h, _, pub := newTestBoardHandler(BoardOptions{})
	pub.PublishFunc = func(context.Context, *event.Message) error { return event.ErrNoMatchingReceiver }

	msg := &event.Message{
		Event:   event.CheckMovable,
		Header:  event.Header{Sender: "example"},
		Payload: &event.CheckMovablePayload{},
	}
	assert.ErrorIs(t, h.ReceiveCheckMovable(context.Background(), msg), event.ErrNoMatchingReceiver)
}
