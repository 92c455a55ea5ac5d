// Package cursor tracks connected viewers and who can see whom.
//
// The cursor package implements:
//   - Thread-safe cursor storage keyed by connection id
//   - Viewport geometry (view rectangle, interaction reach)
//   - Range queries over cursor positions and viewports
//   - A directed watch graph kept symmetric in both directions
//   - A lazily evaluated death cooldown
//
// Watch Graph:
//
// An edge w -> t means t stands inside w's viewport, so w must be told when
// t moves, points or quits. The registry stores edges explicitly and only
// checks visibility when an edge is added; keeping edges in step with
// movement is the job of the caller (see game/handler).
//
// Usage:
//
//	reg := cursor.NewRegistry(nil)
//	a := reg.Create("a", board.Point{}, 10, 10)
//	reg.Create("b", board.Point{X: 3, Y: 2}, 10, 10)
//
//	if err := reg.AddWatcher(a.ConnID, "b"); err != nil {
//		log.Fatal(err)
//	}
//	watchers, _ := reg.GetWatchers("b") // ["a"]
//
// All query results are copies ordered by connection id.
package cursor
