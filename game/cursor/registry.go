package cursor

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/infinite-sweeper/game/board"
)

type idSet map[string]struct{}

// Registry holds every connected cursor and the watch graph between them.
// watchers[t] holds the cursors that see t; watching[w] holds the cursors w
// sees. Both maps always describe the same edges.
type Registry struct {
	mu       sync.RWMutex
	cursors  map[string]*Cursor
	watchers map[string]idSet
	watching map[string]idSet
	rng      *rand.Rand
}

// NewRegistry creates an empty registry. rng picks cursor colors; nil seeds
// one from the clock.
func NewRegistry(rng *rand.Rand) *Registry {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{
		cursors:  make(map[string]*Cursor),
		watchers: make(map[string]idSet),
		watching: make(map[string]idSet),
		rng:      rng,
	}
}

// Create adds a cursor with a random color. An existing cursor with the same
// id is replaced and loses its edges.
func (r *Registry) Create(connID string, position board.Point, width, height int) Cursor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cursors[connID]; ok {
		r.dropEdges(connID)
	}
	c := &Cursor{
		ConnID:   connID,
		Position: position,
		Width:    width,
		Height:   height,
		Color:    board.Colors[r.rng.Intn(len(board.Colors))],
	}
	r.cursors[connID] = c
	return c.clone()
}

// Remove deletes the cursor and every edge touching it
func (r *Registry) Remove(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cursors[connID]; !ok {
		return fmt.Errorf("%w: %s", ErrNoMatchingCursor, connID)
	}
	r.dropEdges(connID)
	delete(r.cursors, connID)
	return nil
}

// Get returns a copy of the cursor
func (r *Registry) Get(connID string) (Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cursors[connID]
	if !ok {
		return Cursor{}, fmt.Errorf("%w: %s", ErrNoMatchingCursor, connID)
	}
	return c.clone(), nil
}

// List returns copies of all cursors ordered by id
func (r *Registry) List() []Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter(func(*Cursor) bool { return true })
}

// Count returns the number of cursors
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cursors)
}

// SetPosition moves the cursor. Watch edges are left to the caller.
func (r *Registry) SetPosition(connID string, p board.Point) error {
	return r.update(connID, func(c *Cursor) { c.Position = p })
}

// SetPointer sets or, with nil, clears the pointer
func (r *Registry) SetPointer(connID string, p *board.Point) error {
	return r.update(connID, func(c *Cursor) {
		if p == nil {
			c.Pointer = nil
			return
		}
		cp := *p
		c.Pointer = &cp
	})
}

// SetSize changes the viewport half extents
func (r *Registry) SetSize(connID string, width, height int) error {
	return r.update(connID, func(c *Cursor) {
		c.Width = width
		c.Height = height
	})
}

// Kill marks the cursor dead until the given time
func (r *Registry) Kill(connID string, until time.Time) error {
	return r.update(connID, func(c *Cursor) { c.ReviveAt = &until })
}

// CheckAlive reports whether the cursor may interact at now, clearing an
// expired cooldown on the way
func (r *Registry) CheckAlive(connID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cursors[connID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoMatchingCursor, connID)
	}
	if !c.IsAlive(now) {
		return false, nil
	}
	c.ReviveAt = nil
	return true, nil
}

// ExistsRange returns the cursors positioned inside rect, skipping excluded
// ids and, when excludeRect is set, cursors positioned inside it
func (r *Registry) ExistsRange(rect board.Rect, exclude []string, excludeRect *board.Rect) []Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := toSet(exclude)
	return r.filter(func(c *Cursor) bool {
		if _, ok := skip[c.ConnID]; ok {
			return false
		}
		if excludeRect != nil && excludeRect.Contains(c.Position) {
			return false
		}
		return rect.Contains(c.Position)
	})
}

// ViewIncludes returns the cursors whose viewport contains p
func (r *Registry) ViewIncludes(p board.Point, exclude ...string) []Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := toSet(exclude)
	return r.filter(func(c *Cursor) bool {
		if _, ok := skip[c.ConnID]; ok {
			return false
		}
		return c.CheckInView(p)
	})
}

// ViewOverlaps returns the cursors whose viewport shares a tile with rect
func (r *Registry) ViewOverlaps(rect board.Rect, exclude ...string) []Cursor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := toSet(exclude)
	return r.filter(func(c *Cursor) bool {
		if _, ok := skip[c.ConnID]; ok {
			return false
		}
		return c.ViewRect().Overlaps(rect)
	})
}

// AddWatcher records that watcher sees watching
func (r *Registry) AddWatcher(watcher, watching string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, t, err := r.pair(watcher, watching)
	if err != nil {
		return err
	}
	if _, ok := r.watching[watcher][watching]; ok {
		return fmt.Errorf("%w: %s -> %s", ErrAlreadyWatching, watcher, watching)
	}
	if !w.CheckInView(t.Position) {
		return fmt.Errorf("%w: %s at %s from %s", ErrNotWatchable, watching, t.Position, watcher)
	}

	add(r.watching, watcher, watching)
	add(r.watchers, watching, watcher)
	return nil
}

// RemoveWatcher deletes the edge watcher -> watching
func (r *Registry) RemoveWatcher(watcher, watching string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, _, err := r.pair(watcher, watching); err != nil {
		return err
	}
	if _, ok := r.watching[watcher][watching]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrNotWatching, watcher, watching)
	}

	remove(r.watching, watcher, watching)
	remove(r.watchers, watching, watcher)
	return nil
}

// GetWatchers returns the ids of cursors that see connID
func (r *Registry) GetWatchers(connID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.cursors[connID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMatchingCursor, connID)
	}
	return sortedIDs(r.watchers[connID]), nil
}

// GetWatching returns the ids of cursors connID sees
func (r *Registry) GetWatching(connID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.cursors[connID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMatchingCursor, connID)
	}
	return sortedIDs(r.watching[connID]), nil
}

func (r *Registry) update(connID string, fn func(c *Cursor)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cursors[connID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoMatchingCursor, connID)
	}
	fn(c)
	return nil
}

func (r *Registry) pair(watcher, watching string) (*Cursor, *Cursor, error) {
	w, ok := r.cursors[watcher]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoMatchingCursor, watcher)
	}
	t, ok := r.cursors[watching]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoMatchingCursor, watching)
	}
	return w, t, nil
}

func (r *Registry) dropEdges(connID string) {
	for t := range r.watching[connID] {
		remove(r.watchers, t, connID)
	}
	for w := range r.watchers[connID] {
		remove(r.watching, w, connID)
	}
	delete(r.watching, connID)
	delete(r.watchers, connID)
}

func (r *Registry) filter(keep func(c *Cursor) bool) []Cursor {
	out := make([]Cursor, 0)
	for _, c := range r.cursors {
		if keep(c) {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}

func add(m map[string]idSet, from, to string) {
	set, ok := m[from]
	if !ok {
		set = make(idSet)
		m[from] = set
	}
	set[to] = struct{}{}
}

func remove(m map[string]idSet, from, to string) {
	set, ok := m[from]
	if !ok {
		return
	}
	delete(set, to)
	if len(set) == 0 {
		delete(m, from)
	}
}

func toSet(ids []string) idSet {
	set := make(idSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedIDs(set idSet) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
