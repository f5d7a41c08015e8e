package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/grid"
)

// State is the engine's position in the bulk-edit workflow.
type State string

const (
	StateIdle       State = "idle"
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateApplying   State = "applying"
	StateError      State = "error"
)

// InvalidStateError reports an operation called outside the state that
// permits it.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %q", e.Op, e.State)
}

// PartialApplyError reports a batch where some cells were applied and
// others failed. Applied cells stay pending; nothing is rolled back.
// Callers retry or reconcile the failed cells manually.
type PartialApplyError struct {
	Applied []grid.CellKey          `json:"applied"`
	Failed  []grid.CellKey          `json:"failed"`
	Reasons map[grid.CellKey]string `json:"-"`
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("bulk apply partially failed: %d applied, %d failed", len(e.Applied), len(e.Failed))
}

// Result summarizes a fully successful bulk apply.
type Result struct {
	Applied      []grid.CellKey `json:"applied"`
	SkippedRooms []int64        `json:"skipped_rooms"`
}

// CellUpdater pushes a single cell change to the remote backend.
type CellUpdater interface {
	UpdateCell(ctx context.Context, roomID int64, date time.Time, fields grid.FieldChanges) error
}

// Engine drives the bulk-edit workflow:
// idle -> editing -> validating -> applying -> idle on success, or
// -> error -> editing when the user corrects and resubmits.
type Engine struct {
	mu      sync.Mutex
	state   State
	request Request

	store   *grid.Store
	updater CellUpdater
	logger  *zap.Logger
}

// NewEngine creates an idle bulk-edit engine over the given store.
func NewEngine(store *grid.Store, updater CellUpdater, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		state:   StateIdle,
		store:   store,
		updater: updater,
		logger:  logger,
	}
}

// State returns the engine's current workflow state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Request returns a copy of the request being composed.
func (e *Engine) Request() Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request
}

// StartBulkEdit enters editing and seeds the request with the provided
// selection, which may be empty.
func (e *Engine) StartBulkEdit(initial Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return &InvalidStateError{Op: "startBulkEdit", State: e.state}
	}
	e.state = StateEditing
	e.request = initial
	return nil
}

// UpdateRequest merges the set fields of patch into the in-progress
// request. Allowed while editing or after a failed attempt; calling it
// in any other state fails with InvalidStateError.
func (e *Engine) UpdateRequest(patch Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateEditing:
	case StateError:
		e.state = StateEditing
	default:
		return &InvalidStateError{Op: "updateRequest", State: e.state}
	}
	e.request.merge(patch)
	return nil
}

// Cancel abandons the in-progress request and returns to idle.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateEditing, StateError:
		e.state = StateIdle
		e.request = Request{}
		return nil
	default:
		return &InvalidStateError{Op: "cancel", State: e.state}
	}
}

// Validate checks the in-progress request without mutating state.
func (e *Engine) Validate() []FieldError {
	e.mu.Lock()
	req := e.request
	e.mu.Unlock()
	return Validate(req)
}

// Execute validates and applies the in-progress request as a batch of
// per-cell updates. Rooms without a channel mapping are silently
// excluded. On partial failure the already-applied cells remain pending
// and a PartialApplyError enumerates both sets.
func (e *Engine) Execute(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.state != StateEditing {
		state := e.state
		e.mu.Unlock()
		return nil, &InvalidStateError{Op: "execute", State: state}
	}
	e.state = StateValidating
	req := e.request
	e.mu.Unlock()

	if fieldErrs := Validate(req); len(fieldErrs) > 0 {
		e.setState(StateError)
		return nil, &ValidationError{Fields: fieldErrs}
	}

	e.setState(StateApplying)

	window := req.Window()
	result := &Result{}
	var failed []grid.CellKey
	reasons := make(map[grid.CellKey]string)

	for _, roomID := range req.RoomIDs {
		room, ok := e.store.Room(roomID)
		if !ok || !room.HasChannelMapping {
			// Documented policy: unmapped rooms are skipped, not an error.
			result.SkippedRooms = append(result.SkippedRooms, roomID)
			continue
		}

		for _, date := range window.Days() {
			fields := e.resolveFields(req, roomID, date)
			key := grid.CellKey{RoomID: roomID, Date: date.Format(grid.DateLayout)}

			if err := e.updater.UpdateCell(ctx, roomID, date, fields); err != nil {
				e.logger.Warn("bulk cell update failed",
					zap.Int64("room_id", roomID),
					zap.String("date", key.Date),
					zap.Error(err),
				)
				failed = append(failed, key)
				reasons[key] = err.Error()
				continue
			}

			if _, err := e.store.ApplyLocalUpdate(roomID, date, fields); err != nil {
				failed = append(failed, key)
				reasons[key] = err.Error()
				continue
			}
			result.Applied = append(result.Applied, key)
		}
	}

	if len(failed) > 0 {
		e.setState(StateError)
		return nil, &PartialApplyError{Applied: result.Applied, Failed: failed, Reasons: reasons}
	}

	e.mu.Lock()
	e.state = StateIdle
	e.request = Request{}
	e.mu.Unlock()

	e.logger.Info("bulk edit applied",
		zap.Int("cells", len(result.Applied)),
		zap.Int64s("skipped_rooms", result.SkippedRooms),
	)
	return result, nil
}

// resolveFields computes the concrete field changes for one cell,
// deriving the new rate from the cell's current value in percent mode.
func (e *Engine) resolveFields(req Request, roomID int64, date time.Time) grid.FieldChanges {
	fields := req.Fields
	if req.Mode != ModeIncrementRateByPercent || req.RatePercent == 0 {
		return fields
	}

	var base float64
	if cell, ok := e.store.Cell(roomID, date); ok {
		base = cell.Rate
	}
	rate := base * (1 + req.RatePercent/100)
	if rate < 0 {
		rate = 0
	}
	fields.Rate = &rate
	return fields
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
