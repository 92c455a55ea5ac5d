// Package handler holds the event-driven game logic.
//
// BoardHandler answers tile fetches, decides whether a pointer may land and
// applies clicks (open, cascade, flag) to the board. CursorHandler owns the
// cursor registry: it creates and removes cursors, keeps the watch graph in
// step with every move and resize, and forwards board changes to the cursors
// that can see them.
//
// The two handlers never call each other. A click travels as
//
//	pointing -> CursorHandler -> try-pointing -> BoardHandler
//	         -> pointing-result -> CursorHandler -> pointer-set (multicast)
//	         -> single-tile-opened | tiles-opened | flag-set -> CursorHandler
//	         -> multicast to viewers
//
// and a step as moving -> check-movable -> movable-result -> moved/cursors.
//
// Register both handlers on one broker:
//
//	broker.Register(handler.NewBoardHandler(b, broker, handler.BoardOptions{}).Routes())
//	broker.Register(handler.NewCursorHandler(reg, broker, handler.CursorOptions{}).Routes())
//
// Each handler holds its own lock while it reads and mutates state and
// releases it before publishing, so chained events never deadlock.
package handler
