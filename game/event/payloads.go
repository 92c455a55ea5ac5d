package event

import (
	"fmt"

	"github.com/wricardo/infinite-sweeper/game/board"
)

// Client payloads

// FetchTilesPayload asks for the tiles of a rectangle
type FetchTilesPayload struct {
	StartP board.Point `json:"start_p"`
	EndP   board.Point `json:"end_p"`
}

// Validate checks the rectangle corners are ordered
func (p FetchTilesPayload) Validate() error {
	if !(board.Rect{Start: p.StartP, End: p.EndP}).Valid() {
		return fmt.Errorf("%w: start_p %s must be north-west of end_p %s", ErrInvalidMessage, p.StartP, p.EndP)
	}
	return nil
}

// PointingPayload moves the pointer and clicks the tile under it
type PointingPayload struct {
	Position  board.Point `json:"position"`
	ClickType ClickType   `json:"click_type"`
}

// Validate checks the click type
func (p PointingPayload) Validate() error {
	if !p.ClickType.Valid() {
		return fmt.Errorf("%w: unknown click_type %q", ErrInvalidMessage, p.ClickType)
	}
	return nil
}

// MovingPayload asks to move the cursor to Position
type MovingPayload struct {
	Position board.Point `json:"position"`
}

// SetViewSizePayload changes the viewport half extents
type SetViewSizePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate rejects negative sizes
func (p SetViewSizePayload) Validate() error {
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: view size %dx%d", ErrInvalidMessage, p.Width, p.Height)
	}
	return nil
}

// Internal and server payloads

// NewConnPayload announces a connection and where it spawns
type NewConnPayload struct {
	ConnID   string      `json:"conn_id"`
	Position board.Point `json:"position"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
}

// ConnClosedPayload announces that the sender disconnected
type ConnClosedPayload struct{}

// TilesPayload carries a fetched rectangle in wire form
type TilesPayload struct {
	StartP board.Point `json:"start_p"`
	EndP   board.Point `json:"end_p"`
	Tiles  string      `json:"tiles"`
}

// CursorPayload is the public view of a cursor
type CursorPayload struct {
	Position board.Point  `json:"position"`
	Pointer  *board.Point `json:"pointer"`
	Color    board.Color  `json:"color"`
}

// MyCursorPayload tells a connection about its own cursor
type MyCursorPayload CursorPayload

// CursorsPayload lists cursors that came into view
type CursorsPayload struct {
	Cursors []CursorPayload `json:"cursors"`
}

// CursorQuitPayload tells watchers a cursor left
type CursorQuitPayload CursorPayload

// TryPointingPayload asks the board whether and how a click lands
type TryPointingPayload struct {
	CursorPosition board.Point `json:"cursor_position"`
	NewPointer     board.Point `json:"new_pointer"`
	Color          board.Color `json:"color"`
	ClickType      ClickType   `json:"click_type"`
}

// PointingResultPayload answers TryPointingPayload
type PointingResultPayload struct {
	Pointer   board.Point `json:"pointer"`
	Pointable bool        `json:"pointable"`
}

// PointerSetPayload tells a connection and its watchers a pointer changed
type PointerSetPayload struct {
	OriginPosition *board.Point `json:"origin_position"`
	NewPosition    *board.Point `json:"new_position"`
	Color          board.Color  `json:"color"`
}

// CheckMovablePayload asks the board whether a tile can be stood on
type CheckMovablePayload struct {
	Position board.Point `json:"position"`
}

// MovableResultPayload answers CheckMovablePayload
type MovableResultPayload struct {
	Position board.Point `json:"position"`
	Movable  bool        `json:"movable"`
}

// MovedPayload tells watchers a cursor moved
type MovedPayload struct {
	OriginPosition board.Point `json:"origin_position"`
	NewPosition    board.Point `json:"new_position"`
	Color          board.Color `json:"color"`
}

// SingleTileOpenedPayload carries one opened tile in wire form
type SingleTileOpenedPayload struct {
	Position board.Point `json:"position"`
	Tile     string      `json:"tile"`
}

// TilesOpenedPayload carries the snapshot of a cascade
type TilesOpenedPayload struct {
	StartP board.Point `json:"start_p"`
	EndP   board.Point `json:"end_p"`
	Tiles  string      `json:"tiles"`
}

// FlagSetPayload tells viewers a flag was placed or removed
type FlagSetPayload struct {
	Position board.Point  `json:"position"`
	IsSet    bool         `json:"is_set"`
	Color    *board.Color `json:"color"`
}

// YouDiedPayload tells a connection when it may interact again
type YouDiedPayload struct {
	ReviveAt string `json:"revive_at"`
}
