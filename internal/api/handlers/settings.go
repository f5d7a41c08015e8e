package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/storage"
)

// SettingsResponse represents dashboard settings in API responses.
type SettingsResponse struct {
	RefreshIntervalMin string `json:"refresh_interval_min"`
	WindowDays         string `json:"window_days"`
	DefaultMinStay     string `json:"default_min_stay"`
	Currency           string `json:"currency"`
}

// GetSettings returns all settings.
func GetSettings(settings *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := settings.All(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query settings")
			return
		}

		response := SettingsResponse{
			RefreshIntervalMin: all["refresh_interval_min"],
			WindowDays:         all["window_days"],
			DefaultMinStay:     all["default_min_stay"],
			Currency:           all["currency"],
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// UpdateSettings updates the provided settings; empty fields are left
// unchanged.
func UpdateSettings(settings *storage.SettingsRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		values := map[string]string{
			"refresh_interval_min": req.RefreshIntervalMin,
			"window_days":          req.WindowDays,
			"default_min_stay":     req.DefaultMinStay,
			"currency":             req.Currency,
		}

		for key, value := range values {
			if value == "" {
				continue
			}
			if err := settings.Set(r.Context(), key, value); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(req)
	}
}
