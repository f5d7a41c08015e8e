package grid

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CellFetcher retrieves calendar data from the remote PMS backend.
type CellFetcher interface {
	FetchCells(ctx context.Context, window Window, roomIDs []int64) ([]Cell, error)
	ListRooms(ctx context.Context) ([]RoomSummary, error)
}

// FetchError reports a failed load. The store's prior state is left
// untouched when it occurs.
type FetchError struct {
	Window Window
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching cells %s..%s: %v",
		e.Window.From.Format(DateLayout), e.Window.To.Format(DateLayout), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrCellNotFound is returned by sync-status transitions targeting a
// cell that was never loaded or created.
type ErrCellNotFound struct {
	Key CellKey
}

func (e *ErrCellNotFound) Error() string {
	return fmt.Sprintf("cell not found: room %d date %s", e.Key.RoomID, e.Key.Date)
}

// Subscriber receives the recomputed pending-change summary after every
// store mutation.
type Subscriber func(PendingChangeSummary)

// Store is the authoritative in-memory state for the currently loaded
// calendar window. It is the single writer of cell state; all other
// components read it or request mutations through its methods.
type Store struct {
	mu    sync.RWMutex
	cells map[CellKey]*Cell
	rooms map[int64]RoomSummary

	fetcher CellFetcher
	logger  *zap.Logger

	subsMu sync.Mutex
	subs   []Subscriber
}

// NewStore creates an empty store backed by the given fetcher.
func NewStore(fetcher CellFetcher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cells:   make(map[CellKey]*Cell),
		rooms:   make(map[int64]RoomSummary),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Subscribe registers a callback invoked with the fresh pending-change
// summary after every mutation.
func (s *Store) Subscribe(fn Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

// Load replaces the loaded cell set with data fetched for the window
// and requested rooms. Cells from a previously loaded window are
// evicted, so the pending summary always describes the window on
// screen. On fetch failure the prior state is left untouched and a
// FetchError is returned; there is never a partial overwrite. A load
// whose context was cancelled before commit aborts without touching
// state, so a superseded fetch can never overwrite fresher data.
func (s *Store) Load(ctx context.Context, window Window, roomIDs []int64) ([]Cell, error) {
	fetched, err := s.fetcher.FetchCells(ctx, window, roomIDs)
	if err != nil {
		return nil, &FetchError{Window: window, Err: err}
	}

	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.cells = make(map[CellKey]*Cell, len(fetched))
	for i := range fetched {
		c := fetched[i]
		if c.SyncStatus == "" {
			c.SyncStatus = SyncStatusSynced
		}
		s.cells[c.Key()] = &c
	}
	s.mu.Unlock()

	s.logger.Info("calendar window loaded",
		zap.String("from", window.From.Format(DateLayout)),
		zap.String("to", window.To.Format(DateLayout)),
		zap.Int("rooms", len(roomIDs)),
		zap.Int("cells", len(fetched)),
	)

	s.notify()
	return fetched, nil
}

// LoadRooms refreshes the room summaries from the backend.
func (s *Store) LoadRooms(ctx context.Context) error {
	rooms, err := s.fetcher.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing rooms: %w", err)
	}
	s.SetRooms(rooms)
	return nil
}

// SetRooms replaces the known room summaries.
func (s *Store) SetRooms(rooms []RoomSummary) {
	s.mu.Lock()
	s.rooms = make(map[int64]RoomSummary, len(rooms))
	for _, r := range rooms {
		s.rooms[r.RoomID] = r
	}
	s.mu.Unlock()
}

// Room returns the summary for a single room.
func (s *Store) Room(roomID int64) (RoomSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	return r, ok
}

// Rooms returns all known room summaries sorted by room ID.
func (s *Store) Rooms() []RoomSummary {
	s.mu.RLock()
	out := make([]RoomSummary, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// ApplyLocalUpdate optimistically mutates one cell's fields and marks
// it pending. The cell is created with defaults when a bulk edit
// targets a date outside the loaded window. Last write wins when the
// same cell is updated twice.
func (s *Store) ApplyLocalUpdate(roomID int64, date time.Time, fields FieldChanges) (Cell, error) {
	date = truncateToDate(date)
	key := CellKey{RoomID: roomID, Date: date.Format(DateLayout)}

	s.mu.Lock()
	c, ok := s.cells[key]
	if !ok {
		c = &Cell{RoomID: roomID, Date: date, MinStay: 1}
		s.cells[key] = c
	}
	if fields.Rate != nil {
		c.Rate = *fields.Rate
	}
	if fields.Units != nil {
		c.Units = *fields.Units
	}
	if fields.MinStay != nil {
		c.MinStay = *fields.MinStay
	}
	if fields.ClosedToArrival != nil {
		c.ClosedToArrival = *fields.ClosedToArrival
	}
	if fields.ClosedToDeparture != nil {
		c.ClosedToDeparture = *fields.ClosedToDeparture
	}
	c.SyncStatus = SyncStatusPending
	c.UpdatedAt = time.Now().UTC()
	updated := *c
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// MarkSynced transitions a cell to synced after the channel confirmed it.
func (s *Store) MarkSynced(roomID int64, date time.Time) error {
	return s.setStatus(roomID, date, SyncStatusSynced)
}

// MarkError transitions a cell to error after a failed sync attempt.
func (s *Store) MarkError(roomID int64, date time.Time) error {
	return s.setStatus(roomID, date, SyncStatusError)
}

func (s *Store) setStatus(roomID int64, date time.Time, status SyncStatus) error {
	key := CellKey{RoomID: roomID, Date: truncateToDate(date).Format(DateLayout)}

	s.mu.Lock()
	c, ok := s.cells[key]
	if !ok {
		s.mu.Unlock()
		return &ErrCellNotFound{Key: key}
	}
	c.SyncStatus = status
	c.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Cell returns a copy of a single cell.
func (s *Store) Cell(roomID int64, date time.Time) (Cell, bool) {
	key := CellKey{RoomID: roomID, Date: truncateToDate(date).Format(DateLayout)}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cells[key]
	if !ok {
		return Cell{}, false
	}
	return *c, true
}

// Snapshot returns a copy of all loaded cells ordered by room then date.
func (s *Store) Snapshot() []Cell {
	s.mu.RLock()
	out := make([]Cell, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, *c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RoomID != out[j].RoomID {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// PendingCellsIn returns copies of cells inside the window whose status
// is not synced.
func (s *Store) PendingCellsIn(window Window) []Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Cell
	for _, c := range s.cells {
		if c.SyncStatus != SyncStatusSynced && window.Contains(c.Date) {
			out = append(out, *c)
		}
	}
	return out
}

// Summary recomputes the pending-change summary for the full loaded set.
func (s *Store) Summary() PendingChangeSummary {
	return Recompute(s.Snapshot())
}

// notify recomputes the summary and fans it out to subscribers. Called
// outside the state lock so subscribers may read the store.
func (s *Store) notify() {
	summary := s.Summary()

	s.subsMu.Lock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(summary)
	}
}
