package websocket

import (
	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/grid"
)

// EventBroadcaster serializes typed calendar events onto the hub.
type EventBroadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewEventBroadcaster creates a broadcaster for the hub.
func NewEventBroadcaster(hub *Hub, logger *zap.Logger) *EventBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBroadcaster{hub: hub, logger: logger}
}

// BroadcastCellsLoaded announces that a window load replaced the grid.
func (b *EventBroadcaster) BroadcastCellsLoaded(window grid.Window, cells int) {
	b.send(NewMessage(TypeCellsLoaded, CellsLoadedPayload{
		From:  window.From.Format(grid.DateLayout),
		To:    window.To.Format(grid.DateLayout),
		Cells: cells,
	}))
}

// BroadcastCellUpdated pushes a single changed cell.
func (b *EventBroadcaster) BroadcastCellUpdated(cell grid.Cell) {
	b.send(NewMessage(TypeCellUpdated, CellUpdatedPayload{Cell: cell}))
}

// BroadcastPendingChanges pushes the recomputed pending-change summary.
func (b *EventBroadcaster) BroadcastPendingChanges(summary grid.PendingChangeSummary) {
	b.send(NewMessage(TypePendingChangesUpdated, summary))
}

// BroadcastBulkApplyCompleted announces the outcome of a bulk apply.
func (b *EventBroadcaster) BroadcastBulkApplyCompleted(applied, failed int, skippedRooms []int64) {
	b.send(NewMessage(TypeBulkApplyCompleted, BulkApplyPayload{
		Applied:      applied,
		Failed:       failed,
		SkippedRooms: skippedRooms,
	}))
}

// BroadcastSyncCompleted announces a successful channel sync.
func (b *EventBroadcaster) BroadcastSyncCompleted(window grid.Window, synced int) {
	b.send(NewMessage(TypeSyncCompleted, SyncCompletedPayload{
		Synced: synced,
		From:   window.From.Format(grid.DateLayout),
		To:     window.To.Format(grid.DateLayout),
	}))
}

// BroadcastSyncError announces a failed channel sync.
func (b *EventBroadcaster) BroadcastSyncError(window grid.Window, err error) {
	b.send(NewMessage(TypeSyncError, SyncErrorPayload{
		From:    window.From.Format(grid.DateLayout),
		To:      window.To.Format(grid.DateLayout),
		Message: err.Error(),
	}))
}

// BroadcastNotification pushes a toast to all clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.send(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) send(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encoding websocket message failed", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
