package board

import "errors"

var (
	ErrInvalidTile       = errors.New("invalid tile")
	ErrInvalidDataLength = errors.New("invalid data length")
	ErrInvalidRect       = errors.New("invalid rectangle")
	ErrNoOpenTile        = errors.New("no open tile found")
)
