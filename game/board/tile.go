package board

import (
	"fmt"
	"strings"
)

// Color identifies a player. Flags carry the color of the player who placed them.
type Color string

const (
	NoColor Color = ""
	Red     Color = "RED"
	Yellow  Color = "YELLOW"
	Blue    Color = "BLUE"
	Purple  Color = "PURPLE"
)

// Colors lists every assignable color in code order
var Colors = []Color{Red, Yellow, Blue, Purple}

// Bit layout of an encoded tile
const (
	openBit    byte = 0b10000000
	mineBit    byte = 0b01000000
	flagBit    byte = 0b00100000
	colorMask  byte = 0b00011000
	colorShift      = 3
	numberMask byte = 0b00000111

	// MaxNumber is the largest neighbor count a tile can carry
	MaxNumber = 7
)

// Valid reports whether c is one of the assignable colors
func (c Color) Valid() bool {
	_, err := colorCode(c)
	return err == nil
}

func colorCode(c Color) (byte, error) {
	switch c {
	case Red:
		return 0, nil
	case Yellow:
		return 1, nil
	case Blue:
		return 2, nil
	case Purple:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: unknown color %q", ErrInvalidTile, string(c))
}

// Tile is the decoded form of a single board cell
type Tile struct {
	IsOpen bool  `json:"is_open"`
	IsMine bool  `json:"is_mine"`
	IsFlag bool  `json:"is_flag"`
	Color  Color `json:"color,omitempty"`
	// Number is the neighbor mine count; 0 means the tile carries no number.
	Number int `json:"number,omitempty"`
}

// EncodeTile packs t into one byte
func EncodeTile(t Tile) (byte, error) {
	if t.Number < 0 || t.Number > MaxNumber {
		return 0, fmt.Errorf("%w: number %d out of range", ErrInvalidTile, t.Number)
	}
	if t.IsMine && t.Number != 0 {
		return 0, fmt.Errorf("%w: mine with number %d", ErrInvalidTile, t.Number)
	}
	if t.IsOpen && t.IsFlag {
		return 0, fmt.Errorf("%w: open tile cannot be flagged", ErrInvalidTile)
	}
	if t.IsFlag && t.Color == NoColor {
		return 0, fmt.Errorf("%w: flag without color", ErrInvalidTile)
	}
	if !t.IsFlag && t.Color != NoColor {
		return 0, fmt.Errorf("%w: color without flag", ErrInvalidTile)
	}

	var b byte
	if t.IsOpen {
		b |= openBit
	}
	if t.IsMine {
		b |= mineBit
	}
	if t.IsFlag {
		code, err := colorCode(t.Color)
		if err != nil {
			return 0, err
		}
		b |= flagBit | code<<colorShift
	}
	b |= byte(t.Number)
	return b, nil
}

// DecodeTile unpacks one byte. An open and flagged byte can only come from a
// corrupted buffer and is reported as ErrInvalidTile.
func DecodeTile(b byte) (Tile, error) {
	t := Tile{
		IsOpen: b&openBit != 0,
		IsMine: b&mineBit != 0,
		IsFlag: b&flagBit != 0,
	}
	if t.IsOpen && t.IsFlag {
		return Tile{}, fmt.Errorf("%w: byte %08b is open and flagged", ErrInvalidTile, b)
	}
	if t.IsFlag {
		t.Color = Colors[(b&colorMask)>>colorShift]
	}
	if !t.IsMine {
		t.Number = int(b & numberMask)
	}
	return t, nil
}

// Byte returns the encoded form of a tile known to be valid, such as one
// obtained from DecodeTile. Invalid tiles encode as 0.
func (t Tile) Byte() byte {
	b, err := EncodeTile(t)
	if err != nil {
		return 0
	}
	return b
}

// Closed reports whether the tile is neither open nor flagged
func (t Tile) Closed() bool {
	return !t.IsOpen && !t.IsFlag
}

// Empty reports whether the tile is a safe tile with no neighboring mines
func (t Tile) Empty() bool {
	return !t.IsMine && t.Number == 0
}

// TilesToString converts raw tile bytes to their wire form: one character per
// tile whose code point equals the byte value.
func TilesToString(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 2)
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

// TilesFromString is the inverse of TilesToString
func TilesFromString(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i, r := range s {
		if r < 0 || r > 0xff {
			return nil, fmt.Errorf("%w: code point %U at offset %d", ErrInvalidTile, r, i)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// field helpers operating directly on encoded bytes

func isMine(b byte) bool { return b&mineBit != 0 }

func isOpen(b byte) bool { return b&openBit != 0 }

func numberOf(b byte) int {
	if isMine(b) {
		return 0
	}
	return int(b & numberMask)
}

func withNumber(b byte, n int) byte {
	return (b &^ numberMask) | byte(n)
}
