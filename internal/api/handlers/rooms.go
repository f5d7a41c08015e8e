package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/grid"
)

// ListRooms returns the property's room summaries. Pass ?refresh=true
// to re-fetch them from the backend first.
func ListRooms(store *grid.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") == "true" {
			if err := store.LoadRooms(r.Context()); err != nil {
				middleware.WriteError(w, http.StatusBadGateway, middleware.ErrFetchFailed, err.Error())
				return
			}
		}

		rooms := store.Rooms()
		if rooms == nil {
			rooms = []grid.RoomSummary{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rooms)
	}
}
