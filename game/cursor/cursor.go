package cursor

import (
	"time"

	"github.com/wricardo/infinite-sweeper/game/board"
)

// Cursor is one connected viewer: where it stands, what it points at and how
// far it can see. Width and Height are half extents of the viewport.
type Cursor struct {
	ConnID   string       `json:"conn_id"`
	Position board.Point  `json:"position"`
	Pointer  *board.Point `json:"pointer,omitempty"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Color    board.Color  `json:"color"`
	ReviveAt *time.Time   `json:"revive_at,omitempty"`
}

// ViewRect returns the rectangle visible from the cursor
func (c Cursor) ViewRect() board.Rect {
	return board.RectAround(c.Position, c.Width, c.Height)
}

// CheckInView reports whether p is inside the viewport
func (c Cursor) CheckInView(p board.Point) bool {
	return c.ViewRect().Contains(p)
}

// CheckInteractable reports whether p is within one tile of the cursor
func (c Cursor) CheckInteractable(p board.Point) bool {
	return board.RectAround(c.Position, 1, 1).Contains(p)
}

// IsAlive reports whether the death cooldown, if any, has passed at now
func (c Cursor) IsAlive(now time.Time) bool {
	return c.ReviveAt == nil || !now.Before(*c.ReviveAt)
}

func (c *Cursor) clone() Cursor {
	out := *c
	if c.Pointer != nil {
		p := *c.Pointer
		out.Pointer = &p
	}
	if c.ReviveAt != nil {
		t := *c.ReviveAt
		out.ReviveAt = &t
	}
	return out
}
