package board

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMineRatio is the share of tiles that are mines in a fresh section
	DefaultMineRatio = 0.2
	// DefaultMaxCascade bounds the number of tiles opened by one cascade
	DefaultMaxCascade = 1 << 18
	// DefaultSpawnAttempts bounds section samples when looking for a spawn point
	DefaultSpawnAttempts = 1024
)

// Options configures a Board. Zero values fall back to the defaults above.
type Options struct {
	SectionLength int
	MineRatio     float64
	Rand          *rand.Rand
	// Factory overrides procedural generation; it must return a section of
	// SectionLength for the given section coordinate.
	Factory       func(p Point) *Section
	MaxCascade    int
	SpawnAttempts int
	Logger        logrus.FieldLogger
}

// Extents is the bounding box of materialized section coordinates
type Extents struct {
	MinX int `json:"min_x"`
	MaxX int `json:"max_x"`
	MinY int `json:"min_y"`
	MaxY int `json:"max_y"`
}

// Stats summarizes the board for inspection endpoints
type Stats struct {
	Sections      int     `json:"sections"`
	SectionLength int     `json:"section_length"`
	MineRatio     float64 `json:"mine_ratio"`
	Extents       Extents `json:"extents"`
	Demoted       int     `json:"demoted_mines"`
}

// Board is the sparse, infinite store of sections. It is safe for concurrent use.
type Board struct {
	mu            sync.Mutex
	length        int
	ratio         float64
	rng           *rand.Rand
	factory       func(p Point) *Section
	maxCascade    int
	spawnAttempts int
	log           logrus.FieldLogger

	sections map[Point]*Section
	extents  Extents
	demoted  int
}

// New creates a board with section (0,0) materialized and its origin tile open
func New(opts Options) *Board {
	b := &Board{
		length:        opts.SectionLength,
		ratio:         opts.MineRatio,
		rng:           opts.Rand,
		factory:       opts.Factory,
		maxCascade:    opts.MaxCascade,
		spawnAttempts: opts.SpawnAttempts,
		log:           opts.Logger,
		sections:      make(map[Point]*Section),
	}
	if b.length <= 0 {
		b.length = DefaultSectionLength
	}
	if b.ratio <= 0 || b.ratio >= 1 {
		b.ratio = DefaultMineRatio
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if b.maxCascade <= 0 {
		b.maxCascade = DefaultMaxCascade
	}
	if b.spawnAttempts <= 0 {
		b.spawnAttempts = DefaultSpawnAttempts
	}
	if b.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		b.log = l
	}

	b.getOrCreate(0, 0)
	origin := Point{}
	if v, _ := b.byteAt(origin); isMine(v) {
		(&linker{b: b}).demote(origin)
	}
	v, _ := b.byteAt(origin)
	b.setByte(origin, v|openBit)
	return b
}

// SectionLength returns the side of every section
func (b *Board) SectionLength() int {
	return b.length
}

// GetOrCreate returns the section at section coordinate (x, y), creating and
// linking it with its materialized neighbors first if needed.
func (b *Board) GetOrCreate(x, y int) *Section {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getOrCreate(x, y)
}

// Fetch returns the tiles of the inclusive rectangle start..end, start being
// the north-west corner. Missing sections are materialized.
func (b *Board) Fetch(start, end Point) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetch(start, end)
}

// GetTile returns the decoded tile at p
func (b *Board) GetTile(p Point) (Tile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return DecodeTile(b.tile(p))
}

// UpdateTile overwrites the tile at p
func (b *Board) UpdateTile(p Point, t Tile) error {
	data, err := EncodeTile(t)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tile(p)
	b.setByte(p, data)
	return nil
}

// OpenTile opens the tile at p, clearing any flag, and returns the result
func (b *Board) OpenTile(p Point) (Tile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := DecodeTile(b.tile(p))
	if err != nil {
		return Tile{}, err
	}
	t.IsOpen = true
	t.IsFlag = false
	t.Color = NoColor
	data, err := EncodeTile(t)
	if err != nil {
		return Tile{}, err
	}
	b.setByte(p, data)
	return t, nil
}

// SetFlagState sets or clears the flag at p. Flagging an open tile fails
// with ErrInvalidTile.
func (b *Board) SetFlagState(p Point, state bool, color Color) (Tile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := DecodeTile(b.tile(p))
	if err != nil {
		return Tile{}, err
	}
	t.IsFlag = state
	t.Color = NoColor
	if state {
		t.Color = color
	}
	data, err := EncodeTile(t)
	if err != nil {
		return Tile{}, err
	}
	b.setByte(p, data)
	return t, nil
}

// GetRandomOpenPosition samples materialized sections for an open, safe tile
func (b *Board) GetRandomOpenPosition() (Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ext := b.extents
	tried := make(map[Point]bool)
	for attempt := 0; attempt < b.spawnAttempts && len(tried) < len(b.sections); attempt++ {
		p := Point{
			X: ext.MinX + b.rng.Intn(ext.MaxX-ext.MinX+1),
			Y: ext.MinY + b.rng.Intn(ext.MaxY-ext.MinY+1),
		}
		if tried[p] {
			continue
		}
		s, ok := b.sections[p]
		if !ok {
			continue
		}
		tried[p] = true

		if x, y, ok := s.findOpen(b.rng); ok {
			o := s.Origin()
			return Point{X: o.X + x, Y: o.Y + y}, nil
		}
	}
	return Point{}, fmt.Errorf("%w after sampling %d sections", ErrNoOpenTile, len(tried))
}

// Extents returns the bounding box of materialized section coordinates
func (b *Board) Extents() Extents {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.extents
}

// Stats returns a snapshot of board metrics
func (b *Board) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Sections:      len(b.sections),
		SectionLength: b.length,
		MineRatio:     b.ratio,
		Extents:       b.extents,
		Demoted:       b.demoted,
	}
}

// internals; callers hold b.mu

func (b *Board) getOrCreate(x, y int) *Section {
	p := Point{X: x, Y: y}
	if s, ok := b.sections[p]; ok {
		return s
	}

	var s *Section
	if b.factory != nil {
		s = b.factory(p)
	} else {
		s = CreateSection(p, b.length, b.ratio, b.rng)
	}
	if want := int(float64(b.length*b.length) * b.ratio); b.factory == nil && s.MineCount() < want {
		b.log.WithField("section", p.String()).Warnf("section placed %d of %d mines", s.MineCount(), want)
	}

	if len(b.sections) == 0 {
		b.extents = Extents{MinX: x, MaxX: x, MinY: y, MaxY: y}
	} else {
		b.extents.MinX = min(b.extents.MinX, x)
		b.extents.MaxX = max(b.extents.MaxX, x)
		b.extents.MinY = min(b.extents.MinY, y)
		b.extents.MaxY = max(b.extents.MaxY, y)
	}
	b.sections[p] = s

	l := newLinker(b, p)
	for _, d := range neighborOffsets {
		np := Point{X: x + d[0], Y: y + d[1]}
		other, ok := b.sections[np]
		if !ok {
			continue
		}
		switch {
		case d[1] == 0 && d[0] > 0:
			l.applyNeighborHorizontal(s, other)
		case d[1] == 0:
			l.applyNeighborHorizontal(other, s)
		case d[0] == 0 && d[1] > 0:
			l.applyNeighborVertical(other, s)
		case d[0] == 0:
			l.applyNeighborVertical(s, other)
		default:
			l.applyNeighborDiagonal(s, other)
		}
	}
	return s
}

func (b *Board) fetch(start, end Point) ([]byte, error) {
	r := Rect{Start: start, End: end}
	if !r.Valid() {
		return nil, fmt.Errorf("%w: start %s must be north-west of end %s", ErrInvalidRect, start, end)
	}
	if !r.Fits(math.MaxInt) {
		return nil, fmt.Errorf("%w: %s to %s overflows", ErrInvalidRect, start, end)
	}
	outWidth := r.Width()
	out := make([]byte, r.Area())

	n := b.length
	for sy := floorDiv(start.Y, n); sy >= floorDiv(end.Y, n); sy-- {
		for sx := floorDiv(start.X, n); sx <= floorDiv(end.X, n); sx++ {
			s := b.getOrCreate(sx, sy)
			o := s.Origin()

			innerStart := Point{X: max(start.X, o.X) - o.X, Y: min(start.Y, o.Y+n-1) - o.Y}
			innerEnd := Point{X: min(end.X, o.X+n-1) - o.X, Y: max(end.Y, o.Y) - o.Y}
			fetched := s.Fetch(innerStart, innerEnd)

			gapX := innerEnd.X - innerStart.X + 1
			gapY := innerStart.Y - innerEnd.Y + 1
			outX := o.X + innerStart.X - start.X
			outY := start.Y - (o.Y + innerStart.Y)
			for row := 0; row < gapY; row++ {
				dst := outWidth*(outY+row) + outX
				copy(out[dst:dst+gapX], fetched[row*gapX:(row+1)*gapX])
			}
		}
	}
	return out, nil
}

// tile returns the raw byte at p, materializing its section
func (b *Board) tile(p Point) byte {
	sp := b.sectionOf(p)
	s := b.getOrCreate(sp.X, sp.Y)
	o := s.Origin()
	return s.At(p.X-o.X, p.Y-o.Y)
}

func (b *Board) sectionOf(p Point) Point {
	return Point{X: floorDiv(p.X, b.length), Y: floorDiv(p.Y, b.length)}
}

// byteAt reads p only if its section is materialized
func (b *Board) byteAt(p Point) (byte, bool) {
	s, ok := b.sections[b.sectionOf(p)]
	if !ok {
		return 0, false
	}
	o := s.Origin()
	return s.At(p.X-o.X, p.Y-o.Y), true
}

// setByte writes p; its section must be materialized
func (b *Board) setByte(p Point, v byte) {
	s := b.sections[b.sectionOf(p)]
	o := s.Origin()
	s.Set(p.X-o.X, p.Y-o.Y, v)
}

func (s *Section) findOpen(rng *rand.Rand) (x, y int, ok bool) {
	total := len(s.Data)
	start := rng.Intn(total)
	step := 1
	if rng.Intn(2) == 0 {
		step = -1
	}
	for i := 0; i < total; i++ {
		idx := ((start+i*step)%total + total) % total
		if v := s.Data[idx]; isOpen(v) && !isMine(v) {
			x, y = s.coord(idx)
			return x, y, true
		}
	}
	return 0, 0, false
}
