package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned cells and rooms, or fails on demand.
type fakeFetcher struct {
	cells []Cell
	rooms []RoomSummary
	err   error
	calls int
}

func (f *fakeFetcher) FetchCells(ctx context.Context, window Window, roomIDs []int64) ([]Cell, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cells, nil
}

func (f *fakeFetcher) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rooms, nil
}

func weekCells(roomIDs []int64, from, to string) []Cell {
	w := NewWindow(date(from), date(to))
	var cells []Cell
	for _, roomID := range roomIDs {
		for _, d := range w.Days() {
			cells = append(cells, Cell{
				RoomID: roomID, Date: d, Rate: 100, Units: 1, MinStay: 1,
				SyncStatus: SyncStatusSynced,
			})
		}
	}
	return cells
}

func TestLoadWeekForTwoRooms(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101, 102}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())

	cells, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-07")), []int64{101, 102})
	require.NoError(t, err)
	assert.Len(t, cells, 14)

	snapshot := store.Snapshot()
	assert.Len(t, snapshot, 14)
	for _, c := range snapshot {
		assert.Equal(t, SyncStatusSynced, c.SyncStatus)
	}
	assert.Equal(t, 0, store.Summary().Count)
}

func TestLoadFailureLeavesStateUntouched(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())
	window := NewWindow(date("2025-06-01"), date("2025-06-07"))

	_, err := store.Load(context.Background(), window, []int64{101})
	require.NoError(t, err)
	require.Len(t, store.Snapshot(), 7)

	fetcher.err = errors.New("backend down")
	_, err = store.Load(context.Background(), window, []int64{101})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Len(t, store.Snapshot(), 7, "failed load must not discard prior state")
}

func TestLoadReplacesWindowContents(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())
	window := NewWindow(date("2025-06-01"), date("2025-06-07"))

	_, err := store.Load(context.Background(), window, []int64{101})
	require.NoError(t, err)

	// Dirty a cell, then reload: the fetched copy wins.
	rate := 999.0
	_, err = store.ApplyLocalUpdate(101, date("2025-06-03"), FieldChanges{Rate: &rate})
	require.NoError(t, err)
	require.Equal(t, 1, store.Summary().Count)

	_, err = store.Load(context.Background(), window, []int64{101})
	require.NoError(t, err)

	cell, ok := store.Cell(101, date("2025-06-03"))
	require.True(t, ok)
	assert.Equal(t, 100.0, cell.Rate)
	assert.Equal(t, SyncStatusSynced, cell.SyncStatus)
	assert.Equal(t, 0, store.Summary().Count)
}

func TestLoadEvictsPreviousWindow(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-07")), []int64{101})
	require.NoError(t, err)

	rate := 300.0
	_, err = store.ApplyLocalUpdate(101, date("2025-06-03"), FieldChanges{Rate: &rate})
	require.NoError(t, err)
	require.Equal(t, 1, store.Summary().Count)

	// Navigate to the next week: the old window's cells, pending ones
	// included, must not linger in the summary.
	nextWeek := NewWindow(date("2025-06-08"), date("2025-06-14"))
	fetcher.cells = weekCells([]int64{101}, "2025-06-08", "2025-06-14")
	_, err = store.Load(context.Background(), nextWeek, []int64{101})
	require.NoError(t, err)

	assert.Equal(t, 0, store.Summary().Count)
	assert.Empty(t, store.PendingCellsIn(nextWeek))
	for _, c := range store.Snapshot() {
		assert.True(t, nextWeek.Contains(c.Date), "cell %s is outside the loaded window", c.Date.Format(DateLayout))
	}
}

func TestLoadAbortsWhenContextCancelled(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-07")), []int64{101})
	require.NoError(t, err)
	require.Len(t, store.Snapshot(), 7)

	// A cancelled load must not commit even when the fetch itself
	// returned data.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher.cells = weekCells([]int64{101}, "2025-06-08", "2025-06-14")
	_, err = store.Load(ctx, NewWindow(date("2025-06-08"), date("2025-06-14")), []int64{101})

	require.ErrorIs(t, err, context.Canceled)
	cells := store.Snapshot()
	require.Len(t, cells, 7)
	assert.True(t, cells[0].Date.Equal(date("2025-06-01")))
}

func TestApplyLocalUpdateMarksPending(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101, 102}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-07")), []int64{101, 102})
	require.NoError(t, err)

	rate := 250.0
	cell, err := store.ApplyLocalUpdate(101, date("2025-06-03"), FieldChanges{Rate: &rate})
	require.NoError(t, err)

	assert.Equal(t, 250.0, cell.Rate)
	assert.Equal(t, SyncStatusPending, cell.SyncStatus)

	summary := store.Summary()
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, []int64{101}, summary.RoomsAffected)
}

func TestApplyLocalUpdateIsPartial(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-01")}
	store := NewStore(fetcher, zap.NewNop())

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-01")), []int64{101})
	require.NoError(t, err)

	units := 3
	cell, err := store.ApplyLocalUpdate(101, date("2025-06-01"), FieldChanges{Units: &units})
	require.NoError(t, err)

	// Untouched fields keep their loaded values.
	assert.Equal(t, 3, cell.Units)
	assert.Equal(t, 100.0, cell.Rate)
	assert.Equal(t, 1, cell.MinStay)
}

func TestMarkSyncedAndMarkError(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-02")}
	store := NewStore(fetcher, zap.NewNop())

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-02")), []int64{101})
	require.NoError(t, err)

	rate := 120.0
	_, err = store.ApplyLocalUpdate(101, date("2025-06-01"), FieldChanges{Rate: &rate})
	require.NoError(t, err)
	_, err = store.ApplyLocalUpdate(101, date("2025-06-02"), FieldChanges{Rate: &rate})
	require.NoError(t, err)
	require.Equal(t, 2, store.Summary().Count)

	require.NoError(t, store.MarkSynced(101, date("2025-06-01")))
	require.NoError(t, store.MarkError(101, date("2025-06-02")))

	first, _ := store.Cell(101, date("2025-06-01"))
	second, _ := store.Cell(101, date("2025-06-02"))
	assert.Equal(t, SyncStatusSynced, first.SyncStatus)
	assert.Equal(t, SyncStatusError, second.SyncStatus)

	// Error cells still count as unsynced.
	assert.Equal(t, 1, store.Summary().Count)
}

func TestMarkSyncedUnknownCell(t *testing.T) {
	store := NewStore(&fakeFetcher{}, zap.NewNop())

	err := store.MarkSynced(999, date("2025-06-01"))
	var notFound *ErrCellNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestSubscribersNotifiedOnEveryMutation(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-01")}
	store := NewStore(fetcher, zap.NewNop())

	var summaries []PendingChangeSummary
	store.Subscribe(func(s PendingChangeSummary) {
		summaries = append(summaries, s)
	})

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-01")), []int64{101})
	require.NoError(t, err)

	rate := 180.0
	_, err = store.ApplyLocalUpdate(101, date("2025-06-01"), FieldChanges{Rate: &rate})
	require.NoError(t, err)
	require.NoError(t, store.MarkSynced(101, date("2025-06-01")))

	require.Len(t, summaries, 3)
	assert.Equal(t, 0, summaries[0].Count)
	assert.Equal(t, 1, summaries[1].Count)
	assert.Equal(t, 0, summaries[2].Count)
}

func TestPendingCellsInWindow(t *testing.T) {
	fetcher := &fakeFetcher{cells: weekCells([]int64{101}, "2025-06-01", "2025-06-07")}
	store := NewStore(fetcher, zap.NewNop())

	_, err := store.Load(context.Background(), NewWindow(date("2025-06-01"), date("2025-06-07")), []int64{101})
	require.NoError(t, err)

	rate := 200.0
	_, err = store.ApplyLocalUpdate(101, date("2025-06-02"), FieldChanges{Rate: &rate})
	require.NoError(t, err)
	_, err = store.ApplyLocalUpdate(101, date("2025-06-06"), FieldChanges{Rate: &rate})
	require.NoError(t, err)

	narrow := NewWindow(date("2025-06-01"), date("2025-06-03"))
	assert.Len(t, store.PendingCellsIn(narrow), 1)

	full := NewWindow(date("2025-06-01"), date("2025-06-07"))
	assert.Len(t, store.PendingCellsIn(full), 2)
}
