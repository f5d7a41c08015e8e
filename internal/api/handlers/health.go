package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/channel-manager/backend/internal/grid"
	"github.com/channel-manager/backend/internal/storage"
	"github.com/channel-manager/backend/internal/syncer"
	"github.com/channel-manager/backend/internal/websocket"
)

// HealthResponse is the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck reports liveness and local database connectivity.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse summarizes the running system for the dashboard.
type StatusResponse struct {
	CellsLoaded        int  `json:"cells_loaded"`
	PendingChanges     int  `json:"pending_changes"`
	RoomsKnown         int  `json:"rooms_known"`
	SyncInFlight       bool `json:"sync_in_flight"`
	ConnectedClients   int  `json:"connected_clients"`
	ChannelConnections int  `json:"channel_connections"`
}

// Status reports grid, sync and connection counts.
func Status(db *storage.DB, store *grid.Store, trigger *syncer.Trigger, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var channelCount int
		db.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM channel_connections").Scan(&channelCount)

		response := StatusResponse{
			CellsLoaded:        len(store.Snapshot()),
			PendingChanges:     store.Summary().Count,
			RoomsKnown:         len(store.Rooms()),
			SyncInFlight:       trigger.InFlight(),
			ConnectedClients:   hub.ClientCount(),
			ChannelConnections: channelCount,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
