package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/storage"
)

// ChannelConnectionRequest creates or updates a sync-target connection.
type ChannelConnectionRequest struct {
	Name            string `json:"name"`
	BaseURL         string `json:"base_url"`
	PropertyCode    string `json:"property_code"`
	SyncIntervalMin int    `json:"sync_interval_min"`
	Enabled         bool   `json:"enabled"`
}

// ListChannelConnections returns all configured sync targets.
func ListChannelConnections(channels *storage.ChannelRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conns, err := channels.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query channel connections")
			return
		}
		if conns == nil {
			conns = []storage.ChannelConnection{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conns)
	}
}

// CreateChannelConnection adds a new sync target.
func CreateChannelConnection(channels *storage.ChannelRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChannelConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" || req.BaseURL == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name and base URL are required")
			return
		}
		if req.SyncIntervalMin < 5 {
			req.SyncIntervalMin = 15
		}

		conn := storage.ChannelConnection{
			Name:            req.Name,
			BaseURL:         req.BaseURL,
			PropertyCode:    req.PropertyCode,
			SyncIntervalMin: req.SyncIntervalMin,
			Enabled:         req.Enabled,
		}

		id, err := channels.Create(r.Context(), conn)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create channel connection")
			return
		}
		conn.ID = id
		conn.LastSyncStatus = "pending"

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(conn)
	}
}

// GetChannelConnection returns one sync target by ID.
func GetChannelConnection(channels *storage.ChannelRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		conn, err := channels.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query channel connection")
			return
		}
		if conn == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Channel connection not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conn)
	}
}

// UpdateChannelConnection modifies an existing sync target.
func UpdateChannelConnection(channels *storage.ChannelRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var req ChannelConnectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		updated, err := channels.Update(r.Context(), storage.ChannelConnection{
			ID:              id,
			Name:            req.Name,
			BaseURL:         req.BaseURL,
			PropertyCode:    req.PropertyCode,
			SyncIntervalMin: req.SyncIntervalMin,
			Enabled:         req.Enabled,
		})
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update channel connection")
			return
		}
		if !updated {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Channel connection not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteChannelConnection removes a sync target.
func DeleteChannelConnection(channels *storage.ChannelRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		deleted, err := channels.Delete(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete channel connection")
			return
		}
		if !deleted {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Channel connection not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
