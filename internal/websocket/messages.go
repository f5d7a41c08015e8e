package websocket

import (
	"encoding/json"
	"time"

	"github.com/channel-manager/backend/internal/grid"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeCellsLoaded           MessageType = "calendar.cells_loaded"
	TypeCellUpdated           MessageType = "calendar.cell_updated"
	TypePendingChangesUpdated MessageType = "calendar.pending_changes_updated"
	TypeBulkApplyCompleted    MessageType = "calendar.bulk_apply_completed"
	TypeSyncCompleted         MessageType = "channel.sync_completed"
	TypeSyncError             MessageType = "channel.sync_error"
	TypeNotification          MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong MessageType = "pong"
)

// Message is the WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// CellsLoadedPayload is sent after a window load completes.
type CellsLoadedPayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Cells int    `json:"cells"`
}

// CellUpdatedPayload carries one updated cell.
type CellUpdatedPayload struct {
	Cell grid.Cell `json:"cell"`
}

// BulkApplyPayload summarizes a finished bulk apply.
type BulkApplyPayload struct {
	Applied      int     `json:"applied"`
	Failed       int     `json:"failed"`
	SkippedRooms []int64 `json:"skipped_rooms,omitempty"`
}

// SyncCompletedPayload is sent after a successful channel sync.
type SyncCompletedPayload struct {
	Synced      int       `json:"synced"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	CompletedAt time.Time `json:"completed_at"`
}

// SyncErrorPayload is sent when a channel sync fails.
type SyncErrorPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// NotificationPayload is a user-facing toast.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}
