// Package board provides the infinite, lazily materialized minesweeper grid.
//
// The board package implements:
//   - A one-byte tile codec (open, mine, flag, flag color, neighbor count)
//   - Fixed-size square sections with procedural mine placement
//   - Cross-section count repair when a new section lands next to old ones
//   - A sparse section store with rectangle fetches stitched across sections
//   - Flood-fill opening of empty regions
//   - Random spawn point lookup on open tiles
//
// Coordinates:
//
// Points are absolute tile coordinates with y growing northwards. Section p
// covers tiles p*N through p*N+N-1 on both axes, so tile (-1, -1) belongs to
// section (-1, -1). Rectangles are inclusive and given as a north-west start
// and a south-east end; fetched tiles are returned row by row from north to
// south.
//
// Usage:
//
//	b := board.New(board.Options{SectionLength: 100, MineRatio: 0.2})
//
//	tiles, err := b.Fetch(board.Point{X: -10, Y: 10}, board.Point{X: 10, Y: -10})
//	if err != nil {
//		log.Fatal(err)
//	}
//	wire := board.TilesToString(tiles)
//
//	start, end, opened, err := b.OpenTilesCascade(board.Point{X: 3, Y: 4})
//
// Boundary repair:
//
// Mines are placed so that no count exceeds 7 inside a section. When two
// sections meet, border counts are extended with the mines across the edge.
// A count that would reach 8 demotes one neighboring mine into a plain
// number tile instead; counts stay exact and a mine occasionally disappears
// near a section edge.
package board
