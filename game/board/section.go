package board

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultSectionLength is the side of a section in tiles
const DefaultSectionLength = 100

// Section is a fixed-size square of tiles, the unit of lazy materialization.
// Data is row-major with the northernmost row first.
type Section struct {
	P      Point
	Length int
	Data   []byte
}

// NewSection wraps existing tile data for the section at p
func NewSection(p Point, length int, data []byte) (*Section, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: section length must be positive, got %d", ErrInvalidDataLength, length)
	}
	if len(data) != length*length {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDataLength, length*length, len(data))
	}
	return &Section{P: p, Length: length, Data: data}, nil
}

// CreateSection generates a section with floor(length²·ratio) mines.
// Mines are placed one by one so that no tile ever needs a number above 7.
func CreateSection(p Point, length int, ratio float64, rng *rand.Rand) *Section {
	s := &Section{P: p, Length: length, Data: make([]byte, length*length)}
	total := length * length
	mineCount := int(math.Floor(float64(total) * ratio))
	if mineCount > total {
		mineCount = total
	}

	placed := 0
	maxAttempts := 16 * total
	for attempts := 0; placed < mineCount && attempts < maxAttempts; attempts++ {
		idx := rng.Intn(total)
		if isMine(s.Data[idx]) {
			continue
		}
		x, y := s.coord(idx)
		if s.neighborSaturated(x, y) {
			continue
		}
		s.Data[idx] = mineBit
		s.eachNeighbor(x, y, func(nx, ny int) {
			i := s.index(nx, ny)
			if !isMine(s.Data[i]) {
				s.Data[i] = withNumber(s.Data[i], numberOf(s.Data[i])+1)
			}
		})
		placed++
	}
	return s
}

// Origin is the absolute coordinate of the section's south-west tile
func (s *Section) Origin() Point {
	return Point{X: s.P.X * s.Length, Y: s.P.Y * s.Length}
}

// Fetch returns the tiles between two section-local corners, start being the
// north-west one. Rows are returned north to south.
func (s *Section) Fetch(start, end Point) []byte {
	width := end.X - start.X + 1
	out := make([]byte, 0, width*(start.Y-end.Y+1))
	for y := start.Y; y >= end.Y; y-- {
		i := s.index(start.X, y)
		out = append(out, s.Data[i:i+width]...)
	}
	return out
}

// Update writes data into the rectangle between two section-local corners
func (s *Section) Update(data []byte, start, end Point) error {
	width := end.X - start.X + 1
	expected := width * (start.Y - end.Y + 1)
	if len(data) != expected {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDataLength, expected, len(data))
	}
	for row, y := 0, start.Y; y >= end.Y; row, y = row+1, y-1 {
		i := s.index(start.X, y)
		copy(s.Data[i:i+width], data[row*width:(row+1)*width])
	}
	return nil
}

// At returns the raw byte at a section-local coordinate
func (s *Section) At(x, y int) byte {
	return s.Data[s.index(x, y)]
}

// Set writes the raw byte at a section-local coordinate
func (s *Section) Set(x, y int, b byte) {
	s.Data[s.index(x, y)] = b
}

// MineCount counts mines in the section
func (s *Section) MineCount() int {
	n := 0
	for _, b := range s.Data {
		if isMine(b) {
			n++
		}
	}
	return n
}

func (s *Section) index(x, y int) int {
	return s.Length*(s.Length-1-y) + x
}

func (s *Section) coord(idx int) (x, y int) {
	return idx % s.Length, s.Length - 1 - idx/s.Length
}

func (s *Section) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Length && y < s.Length
}

func (s *Section) eachNeighbor(x, y int, fn func(nx, ny int)) {
	for _, d := range neighborOffsets {
		nx, ny := x+d[0], y+d[1]
		if s.inBounds(nx, ny) {
			fn(nx, ny)
		}
	}
}

func (s *Section) neighborSaturated(x, y int) bool {
	for _, d := range neighborOffsets {
		nx, ny := x+d[0], y+d[1]
		if s.inBounds(nx, ny) && numberOf(s.At(nx, ny)) == MaxNumber {
			return true
		}
	}
	return false
}
