package board

// OpenTilesCascade flood-fills from p: every reached tile is opened, empty
// tiles expand to their 8 neighbors and numbered tiles stop the fill. It
// returns the bounding rectangle of opened tiles and a snapshot of it.
func (b *Board) OpenTilesCascade(p Point) (start, end Point, tiles []byte, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	staged := make(map[Point]bool)
	read := func(q Point) byte {
		v := b.tile(q)
		if staged[q] {
			v = opened(v)
		}
		return v
	}

	visited := map[Point]bool{p: true}
	queue := []Point{p}
	bounds := Rect{Start: p, End: p}

	for len(queue) > 0 && len(staged) < b.maxCascade {
		q := queue[0]
		queue = queue[1:]

		// neighbors must exist before q is read so that later links cannot
		// rewrite tiles this pass already looked at
		sp := b.sectionOf(q)
		for _, d := range neighborOffsets {
			b.getOrCreate(sp.X+d[0], sp.Y+d[1])
		}

		v := read(q)
		if isMine(v) && q != p {
			continue
		}
		staged[q] = true
		bounds = bounds.Expand(q)
		if isMine(v) || numberOf(v) != 0 {
			continue
		}

		for _, d := range neighborOffsets {
			n := q.Add(d[0], d[1])
			if visited[n] {
				continue
			}
			visited[n] = true
			if isOpen(read(n)) {
				continue
			}
			queue = append(queue, n)
		}
	}

	if len(queue) > 0 {
		b.log.WithField("origin", p.String()).Warnf("cascade stopped at %d tiles", len(staged))
	}

	bySection := make(map[Point][]Point)
	for q := range staged {
		sp := b.sectionOf(q)
		bySection[sp] = append(bySection[sp], q)
	}
	for sp, points := range bySection {
		s := b.sections[sp]
		o := s.Origin()
		for _, q := range points {
			x, y := q.X-o.X, q.Y-o.Y
			s.Set(x, y, opened(s.At(x, y)))
		}
	}

	tiles, err = b.fetch(bounds.Start, bounds.End)
	if err != nil {
		return Point{}, Point{}, nil, err
	}
	return bounds.Start, bounds.End, tiles, nil
}

func opened(v byte) byte {
	return (v | openBit) &^ (flagBit | colorMask)
}
