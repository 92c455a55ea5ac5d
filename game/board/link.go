package board

// linker repairs neighbor counts when a fresh section becomes adjacent to
// already materialized ones. Pairs are linked one at a time; while a pair is
// active only the border cells already processed have the cross contribution
// in their number.
type linker struct {
	b         *Board
	fresh     Point
	hasFresh  bool
	linked    map[Point]bool
	active    Point
	hasActive bool
	processed map[Point]bool
}

func newLinker(b *Board, fresh Point) *linker {
	return &linker{b: b, fresh: fresh, hasFresh: true, linked: make(map[Point]bool)}
}

// applyNeighborHorizontal links two sections sharing a vertical edge
func (l *linker) applyNeighborHorizontal(west, east *Section) {
	l.link(west, east)
}

// applyNeighborVertical links two sections sharing a horizontal edge
func (l *linker) applyNeighborVertical(north, south *Section) {
	l.link(north, south)
}

// applyNeighborDiagonal links two sections sharing a single corner
func (l *linker) applyNeighborDiagonal(a, b *Section) {
	l.link(a, b)
}

func (l *linker) link(a, b *Section) {
	fresh, other := a, b
	if other.P == l.fresh {
		fresh, other = b, a
	}
	l.active, l.hasActive = other.P, true
	l.processed = make(map[Point]bool)

	for _, q := range border(fresh, other) {
		l.receive(q, other.P)
	}
	for _, q := range border(other, fresh) {
		l.receive(q, fresh.P)
	}

	l.linked[other.P] = true
	l.hasActive = false
}

// receive adds to q the mines of section across that touch it
func (l *linker) receive(q Point, across Point) {
	if l.processed[q] {
		return
	}
	for {
		v, _ := l.b.byteAt(q)
		if isMine(v) {
			return
		}
		n := numberOf(v) + l.crossMines(q, across)
		if n <= MaxNumber {
			l.b.setByte(q, withNumber(v, n))
			l.processed[q] = true
			return
		}
		m, ok := l.firstMine(q)
		if !ok {
			return
		}
		l.demote(m)
	}
}

func (l *linker) crossMines(q Point, across Point) int {
	count := 0
	for _, d := range neighborOffsets {
		p := q.Add(d[0], d[1])
		if l.b.sectionOf(p) != across {
			continue
		}
		if v, ok := l.b.byteAt(p); ok && isMine(v) {
			count++
		}
	}
	return count
}

func (l *linker) firstMine(q Point) (Point, bool) {
	for _, d := range neighborOffsets {
		p := q.Add(d[0], d[1])
		if v, ok := l.b.byteAt(p); ok && isMine(v) {
			return p, true
		}
	}
	return Point{}, false
}

// demote turns mine m into a number tile and fixes the cells that counted it
func (l *linker) demote(m Point) {
	count := 0
	for _, d := range neighborOffsets {
		p := m.Add(d[0], d[1])
		v, ok := l.b.byteAt(p)
		if !ok {
			continue
		}
		switch {
		case isMine(v):
			if l.related(m, p) {
				count++
			}
		case l.counts(p, m) && numberOf(v) > 0:
			l.b.setByte(p, withNumber(v, numberOf(v)-1))
		}
	}

	v, _ := l.b.byteAt(m)
	l.b.setByte(m, withNumber(v&^mineBit, count))
	if l.hasActive {
		l.processed[m] = true
	}
	l.b.demoted++
	l.b.log.WithField("tile", m.String()).Debugf("demoted mine, number %d", count)
}

// counts reports whether the number of q currently includes mine m
func (l *linker) counts(q, m Point) bool {
	other, pending := l.pendingSection(q, m)
	if !pending {
		return true
	}
	return l.hasActive && other == l.active && l.processed[q]
}

// related reports whether a tile at p may include mine m in its number
// once the active pair is done
func (l *linker) related(p, m Point) bool {
	other, pending := l.pendingSection(p, m)
	if !pending {
		return true
	}
	return l.hasActive && other == l.active
}

// pendingSection returns the non-fresh section of a pair straddling the fresh
// section that has not been linked yet.
func (l *linker) pendingSection(p, q Point) (Point, bool) {
	if !l.hasFresh {
		return Point{}, false
	}
	sp, sq := l.b.sectionOf(p), l.b.sectionOf(q)
	if sp == sq || (sp != l.fresh && sq != l.fresh) {
		return Point{}, false
	}
	other := sp
	if sp == l.fresh {
		other = sq
	}
	if l.linked[other] {
		return Point{}, false
	}
	return other, true
}

// border lists the absolute tiles of s that touch section toward
func border(s, toward *Section) []Point {
	n := s.Length
	span := func(d int) []int {
		switch {
		case d > 0:
			return []int{n - 1}
		case d < 0:
			return []int{0}
		}
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	o := s.Origin()
	xs, ys := span(toward.P.X-s.P.X), span(toward.P.Y-s.P.Y)
	out := make([]Point, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			out = append(out, Point{X: o.X + x, Y: o.Y + y})
		}
	}
	return out
}
