// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/grid"
	"github.com/channel-manager/backend/internal/websocket"
	"github.com/channel-manager/backend/internal/window"
)

// CellUpdater pushes a single-cell change to the remote backend before
// it is applied locally.
type CellUpdater interface {
	UpdateCell(ctx context.Context, roomID int64, date time.Time, fields grid.FieldChanges) error
}

// CalendarStateResponse is the full grid state for rendering.
type CalendarStateResponse struct {
	Window  grid.Window               `json:"window"`
	Filters window.Filters            `json:"filters"`
	Cells   []grid.Cell               `json:"cells"`
	Pending grid.PendingChangeSummary `json:"pending"`
}

// GetCalendar returns the current window, filters, cells and pending
// summary.
func GetCalendar(store *grid.Store, controller *window.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := CalendarStateResponse{
			Window:  controller.Window(),
			Filters: controller.Filters(),
			Cells:   store.Snapshot(),
			Pending: store.Summary(),
		}
		if resp.Cells == nil {
			resp.Cells = []grid.Cell{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// SetWindowRequest selects a new visible date range.
type SetWindowRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SetWindow replaces the visible date range and reloads it.
func SetWindow(store *grid.Store, controller *window.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetWindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		from, err1 := parseDate(req.From)
		to, err2 := parseDate(req.To)
		if err1 != nil || err2 != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Dates must be formatted YYYY-MM-DD")
			return
		}

		if err := controller.SetDateRange(r.Context(), from, to); err != nil {
			writeLoadError(w, err)
			return
		}
		writeCalendarState(w, store, controller)
	}
}

// NavigateRequest moves the window relative to its current position.
type NavigateRequest struct {
	Direction string `json:"direction"` // "prev", "next", "today"
}

// Navigate shifts the visible window a week at a time or back to today.
func Navigate(store *grid.Store, controller *window.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NavigateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		var err error
		switch req.Direction {
		case "prev":
			err = controller.GoToPreviousWeek(r.Context())
		case "next":
			err = controller.GoToNextWeek(r.Context())
		case "today":
			err = controller.GoToToday(r.Context())
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Direction must be prev, next or today")
			return
		}

		if err != nil {
			writeLoadError(w, err)
			return
		}
		writeCalendarState(w, store, controller)
	}
}

// SetFilters replaces the room filters and reloads the window.
func SetFilters(store *grid.Store, controller *window.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filters window.Filters
		if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := controller.SetFilters(r.Context(), filters); err != nil {
			writeLoadError(w, err)
			return
		}
		writeCalendarState(w, store, controller)
	}
}

// RefreshCalendar re-issues a load for the current window.
func RefreshCalendar(store *grid.Store, controller *window.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := controller.Refresh(r.Context()); err != nil {
			writeLoadError(w, err)
			return
		}
		writeCalendarState(w, store, controller)
	}
}

// GetPending returns just the pending-change summary.
func GetPending(store *grid.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(store.Summary())
	}
}

// UpdateCell applies an inline single-cell edit: the change is pushed
// to the backend first, then applied locally and marked pending.
func UpdateCell(store *grid.Store, updater CellUpdater, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		roomID, err := strconv.ParseInt(vars["roomID"], 10, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Invalid room ID")
			return
		}
		date, err := parseDate(vars["date"])
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Date must be formatted YYYY-MM-DD")
			return
		}

		var fields grid.FieldChanges
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if fieldErrs := validateFields(fields); len(fieldErrs) > 0 {
			middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity,
				middleware.ErrValidation, "Invalid cell update", fieldErrs)
			return
		}

		if err := updater.UpdateCell(r.Context(), roomID, date, fields); err != nil {
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrFetchFailed, err.Error())
			return
		}

		cell, err := store.ApplyLocalUpdate(roomID, date, fields)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastCellUpdated(cell)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cell)
	}
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateFields(f grid.FieldChanges) []fieldError {
	var errs []fieldError
	if f.IsZero() {
		errs = append(errs, fieldError{Field: "fields", Message: "at least one field must be set"})
	}
	if f.Rate != nil && *f.Rate < 0 {
		errs = append(errs, fieldError{Field: "rate", Message: "rate must be >= 0"})
	}
	if f.Units != nil && *f.Units < 0 {
		errs = append(errs, fieldError{Field: "units", Message: "units must be >= 0"})
	}
	if f.MinStay != nil && *f.MinStay < 1 {
		errs = append(errs, fieldError{Field: "min_stay", Message: "min_stay must be >= 1"})
	}
	return errs
}

func writeCalendarState(w http.ResponseWriter, store *grid.Store, controller *window.Controller) {
	resp := CalendarStateResponse{
		Window:  controller.Window(),
		Filters: controller.Filters(),
		Cells:   store.Snapshot(),
		Pending: store.Summary(),
	}
	if resp.Cells == nil {
		resp.Cells = []grid.Cell{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeLoadError(w http.ResponseWriter, err error) {
	var fetchErr *grid.FetchError
	if errors.As(err, &fetchErr) {
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrFetchFailed, fetchErr.Error())
		return
	}
	middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(grid.DateLayout, s, time.UTC)
}
