// Package syncer pushes the window's pending cell changes to the
// external channel and reconciles local sync status afterwards.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/grid"
)

// SyncInProgressError rejects a sync requested while another is still
// in flight. Concurrent syncs are neither queued nor merged.
type SyncInProgressError struct{}

func (e *SyncInProgressError) Error() string {
	return "a channel sync is already in progress"
}

// SyncError reports a failed sync attempt. The affected cells remain
// pending.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("channel sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Result summarizes a completed sync.
type Result struct {
	Synced      int       `json:"synced"`
	CompletedAt time.Time `json:"completed_at"`
}

// ChannelSyncer triggers the external channel synchronization endpoint.
type ChannelSyncer interface {
	TriggerChannelSync(ctx context.Context, window grid.Window, cells []grid.Cell) error
}

// Trigger invokes channel sync for the current window. At most one sync
// runs at a time.
type Trigger struct {
	store  *grid.Store
	gw     ChannelSyncer
	logger *zap.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewTrigger creates a sync trigger over the given store and gateway.
func NewTrigger(store *grid.Store, gw ChannelSyncer, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{store: store, gw: gw, logger: logger}
}

// Sync pushes the window's pending cells to the channel. With nothing
// pending it returns {synced: 0} without calling the backend. On
// success every previously-pending cell in the window is marked synced;
// on failure they stay pending and a SyncError is returned.
func (t *Trigger) Sync(ctx context.Context, window grid.Window) (*Result, error) {
	t.mu.Lock()
	if t.inFlight {
		t.mu.Unlock()
		return nil, &SyncInProgressError{}
	}

	pending := t.store.PendingCellsIn(window)
	if len(pending) == 0 {
		t.mu.Unlock()
		return &Result{Synced: 0, CompletedAt: time.Now().UTC()}, nil
	}

	t.inFlight = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inFlight = false
		t.mu.Unlock()
	}()

	t.logger.Info("triggering channel sync",
		zap.String("from", window.From.Format(grid.DateLayout)),
		zap.String("to", window.To.Format(grid.DateLayout)),
		zap.Int("pending", len(pending)),
	)

	if err := t.gw.TriggerChannelSync(ctx, window, pending); err != nil {
		t.logger.Error("channel sync failed", zap.Error(err))
		return nil, &SyncError{Err: err}
	}

	for i := range pending {
		if err := t.store.MarkSynced(pending[i].RoomID, pending[i].Date); err != nil {
			t.logger.Warn("marking cell synced failed",
				zap.Int64("room_id", pending[i].RoomID),
				zap.Error(err),
			)
		}
	}

	return &Result{Synced: len(pending), CompletedAt: time.Now().UTC()}, nil
}

// InFlight reports whether a sync is currently running.
func (t *Trigger) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}
