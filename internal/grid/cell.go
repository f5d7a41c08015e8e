// Package grid holds the in-memory channel-manager calendar state: the
// per (room, date) cells for the currently loaded window and the derived
// pending-change summary.
package grid

import (
	"time"
)

// DateLayout is the wire and key format for calendar dates.
const DateLayout = "2006-01-02"

// SyncStatus tracks whether a cell's local value matches what the
// external channel last confirmed.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// CellKey uniquely identifies a cell in the calendar grid.
type CellKey struct {
	RoomID int64  `json:"room_id"`
	Date   string `json:"date"`
}

// Cell is the atomic unit of the grid: rate, inventory and restrictions
// for one room on one date, plus its channel sync status.
type Cell struct {
	RoomID            int64      `json:"room_id"`
	Date              time.Time  `json:"date"`
	Rate              float64    `json:"rate"`
	Units             int        `json:"units"`
	MinStay           int        `json:"min_stay"`
	ClosedToArrival   bool       `json:"closed_to_arrival"`
	ClosedToDeparture bool       `json:"closed_to_departure"`
	SyncStatus        SyncStatus `json:"sync_status"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Key returns the cell's grid key.
func (c *Cell) Key() CellKey {
	return CellKey{RoomID: c.RoomID, Date: c.Date.Format(DateLayout)}
}

// FieldChanges is a partial cell update: only non-nil fields are applied.
type FieldChanges struct {
	Rate              *float64 `json:"rate,omitempty"`
	Units             *int     `json:"units,omitempty"`
	MinStay           *int     `json:"min_stay,omitempty"`
	ClosedToArrival   *bool    `json:"closed_to_arrival,omitempty"`
	ClosedToDeparture *bool    `json:"closed_to_departure,omitempty"`
}

// IsZero reports whether no field is set.
func (f FieldChanges) IsZero() bool {
	return f.Rate == nil && f.Units == nil && f.MinStay == nil &&
		f.ClosedToArrival == nil && f.ClosedToDeparture == nil
}

// RoomSummary describes one room of the property as the remote backend
// reports it. Rooms without a channel mapping are excluded from bulk
// operations and sync.
type RoomSummary struct {
	RoomID            int64  `json:"room_id"`
	RoomNumber        string `json:"room_number"`
	RoomType          string `json:"room_type,omitempty"`
	HasChannelMapping bool   `json:"has_channel_mapping"`
}

// Window is an inclusive date range. From and To are date-only values
// normalized to midnight UTC.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewWindow normalizes from/to to date-only UTC values. If to precedes
// from the bounds are swapped.
func NewWindow(from, to time.Time) Window {
	f := truncateToDate(from)
	t := truncateToDate(to)
	if t.Before(f) {
		f, t = t, f
	}
	return Window{From: f, To: t}
}

// Days returns every date in the window, in order.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.From; !d.After(w.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the given date falls inside the window.
func (w Window) Contains(date time.Time) bool {
	d := truncateToDate(date)
	return !d.Before(w.From) && !d.After(w.To)
}

// Shift returns the window moved by the given number of days.
func (w Window) Shift(days int) Window {
	return Window{From: w.From.AddDate(0, 0, days), To: w.To.AddDate(0, 0, days)}
}

// Span returns the number of days in the window.
func (w Window) Span() int {
	return int(w.To.Sub(w.From).Hours()/24) + 1
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
