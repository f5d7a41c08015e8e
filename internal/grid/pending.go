package grid

import (
	"sort"
	"time"
)

// PendingChangeSummary is the derived aggregate over the loaded cell
// set: how many cells still differ from what the channel confirmed,
// across which dates and rooms.
type PendingChangeSummary struct {
	Count         int        `json:"count"`
	DateFrom      *time.Time `json:"date_from"`
	DateTo        *time.Time `json:"date_to"`
	RoomsAffected []int64    `json:"rooms_affected"`
}

// Recompute derives a pending-change summary from a cell set. It is a
// pure function: a single O(n) scan with no side effects. An empty
// input yields a zero count with nil date bounds and an empty room set.
func Recompute(cells []Cell) PendingChangeSummary {
	summary := PendingChangeSummary{RoomsAffected: []int64{}}

	rooms := make(map[int64]struct{})
	for _, c := range cells {
		if c.SyncStatus == SyncStatusSynced {
			continue
		}

		summary.Count++
		rooms[c.RoomID] = struct{}{}

		d := c.Date
		if summary.DateFrom == nil || d.Before(*summary.DateFrom) {
			from := d
			summary.DateFrom = &from
		}
		if summary.DateTo == nil || d.After(*summary.DateTo) {
			to := d
			summary.DateTo = &to
		}
	}

	for id := range rooms {
		summary.RoomsAffected = append(summary.RoomsAffected, id)
	}
	sort.Slice(summary.RoomsAffected, func(i, j int) bool {
		return summary.RoomsAffected[i] < summary.RoomsAffected[j]
	})

	return summary
}
