package grid

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRecomputeEmpty(t *testing.T) {
	s := Recompute(nil)
	if s.Count != 0 {
		t.Errorf("Count: got %d, want 0", s.Count)
	}
	if s.DateFrom != nil || s.DateTo != nil {
		t.Errorf("date bounds should be nil for empty input, got %v..%v", s.DateFrom, s.DateTo)
	}
	if len(s.RoomsAffected) != 0 {
		t.Errorf("RoomsAffected: got %v, want empty", s.RoomsAffected)
	}
}

func TestRecomputeAllSynced(t *testing.T) {
	cells := []Cell{
		{RoomID: 101, Date: date("2025-06-01"), SyncStatus: SyncStatusSynced},
		{RoomID: 102, Date: date("2025-06-02"), SyncStatus: SyncStatusSynced},
	}
	s := Recompute(cells)
	if s.Count != 0 {
		t.Errorf("Count: got %d, want 0", s.Count)
	}
	if len(s.RoomsAffected) != 0 {
		t.Errorf("RoomsAffected: got %v, want empty", s.RoomsAffected)
	}
}

func TestRecomputeCountsPendingAndError(t *testing.T) {
	cells := []Cell{
		{RoomID: 101, Date: date("2025-06-03"), SyncStatus: SyncStatusPending},
		{RoomID: 101, Date: date("2025-06-05"), SyncStatus: SyncStatusError},
		{RoomID: 102, Date: date("2025-06-01"), SyncStatus: SyncStatusPending},
		{RoomID: 103, Date: date("2025-06-04"), SyncStatus: SyncStatusSynced},
	}
	s := Recompute(cells)

	if s.Count != 3 {
		t.Errorf("Count: got %d, want 3", s.Count)
	}
	if s.DateFrom == nil || !s.DateFrom.Equal(date("2025-06-01")) {
		t.Errorf("DateFrom: got %v, want 2025-06-01", s.DateFrom)
	}
	if s.DateTo == nil || !s.DateTo.Equal(date("2025-06-05")) {
		t.Errorf("DateTo: got %v, want 2025-06-05", s.DateTo)
	}
	want := []int64{101, 102}
	if len(s.RoomsAffected) != len(want) {
		t.Fatalf("RoomsAffected: got %v, want %v", s.RoomsAffected, want)
	}
	for i, id := range want {
		if s.RoomsAffected[i] != id {
			t.Errorf("RoomsAffected[%d]: got %d, want %d", i, s.RoomsAffected[i], id)
		}
	}
}

func TestRecomputeRoomSetSemantics(t *testing.T) {
	// Several pending cells in the same room must yield one entry.
	cells := []Cell{
		{RoomID: 101, Date: date("2025-06-01"), SyncStatus: SyncStatusPending},
		{RoomID: 101, Date: date("2025-06-02"), SyncStatus: SyncStatusPending},
		{RoomID: 101, Date: date("2025-06-03"), SyncStatus: SyncStatusError},
	}
	s := Recompute(cells)
	if s.Count != 3 {
		t.Errorf("Count: got %d, want 3", s.Count)
	}
	if len(s.RoomsAffected) != 1 || s.RoomsAffected[0] != 101 {
		t.Errorf("RoomsAffected: got %v, want [101]", s.RoomsAffected)
	}
}

func TestWindowDaysAndSpan(t *testing.T) {
	w := NewWindow(date("2025-06-01"), date("2025-06-07"))
	if w.Span() != 7 {
		t.Errorf("Span: got %d, want 7", w.Span())
	}
	days := w.Days()
	if len(days) != 7 {
		t.Fatalf("Days: got %d, want 7", len(days))
	}
	if !days[0].Equal(date("2025-06-01")) || !days[6].Equal(date("2025-06-07")) {
		t.Errorf("Days bounds: got %v..%v", days[0], days[6])
	}
}

func TestWindowSwapsReversedBounds(t *testing.T) {
	w := NewWindow(date("2025-06-07"), date("2025-06-01"))
	if !w.From.Equal(date("2025-06-01")) || !w.To.Equal(date("2025-06-07")) {
		t.Errorf("bounds not normalized: %v..%v", w.From, w.To)
	}
}
