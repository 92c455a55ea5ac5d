package cursor

import "errors"

var (
	ErrNoMatchingCursor = errors.New("no matching cursor")
	ErrAlreadyWatching  = errors.New("already watching")
	ErrNotWatchable     = errors.New("cursor is not in view")
	ErrNotWatching      = errors.New("not watching")
)
