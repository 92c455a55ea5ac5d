package event

// Event names as they appear on the wire
const (
	NewConn          = "new-conn"
	MyCursor         = "my-cursor"
	Cursors          = "cursors"
	CursorQuit       = "cursor-quit"
	SetViewSize      = "set-view-size"
	FetchTiles       = "fetch-tiles"
	Tiles            = "tiles"
	Pointing         = "pointing"
	TryPointing      = "try-pointing"
	PointingResult   = "pointing-result"
	PointerSet       = "pointer-set"
	Moving           = "moving"
	CheckMovable     = "check-movable"
	MovableResult    = "movable-result"
	Moved            = "moved"
	SingleTileOpened = "single-tile-opened"
	TilesOpened      = "tiles-opened"
	FlagSet          = "flag-set"
	YouDied          = "you-died"
	ConnClosed       = "conn-closed"

	// Multicast and Broadcast carry an outbound event to the transport layer.
	// The real event name travels in Header.OriginEvent.
	Multicast = "multicast"
	Broadcast = "broadcast"
)

// ClickType distinguishes opening a tile from flagging it
type ClickType string

const (
	GeneralClick ClickType = "GENERAL_CLICK"
	SpecialClick ClickType = "SPECIAL_CLICK"
)

// Valid reports whether c is a known click type
func (c ClickType) Valid() bool {
	return c == GeneralClick || c == SpecialClick
}
