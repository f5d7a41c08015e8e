package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/bulk"
	"github.com/channel-manager/backend/internal/websocket"
)

// BulkEditStateResponse exposes the engine's workflow state and the
// request being composed.
type BulkEditStateResponse struct {
	State   bulk.State   `json:"state"`
	Request bulk.Request `json:"request"`
}

// GetBulkEdit returns the engine's current state and request.
func GetBulkEdit(engine *bulk.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(BulkEditStateResponse{
			State:   engine.State(),
			Request: engine.Request(),
		})
	}
}

// StartBulkEdit opens a new bulk edit seeded with the given selection.
func StartBulkEdit(engine *bulk.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var initial bulk.Request
		if err := json.NewDecoder(r.Body).Decode(&initial); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := engine.StartBulkEdit(initial); err != nil {
			writeBulkError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(BulkEditStateResponse{
			State:   engine.State(),
			Request: engine.Request(),
		})
	}
}

// UpdateBulkEdit merges a partial request into the one being composed.
func UpdateBulkEdit(engine *bulk.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch bulk.Request
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if err := engine.UpdateRequest(patch); err != nil {
			writeBulkError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(BulkEditStateResponse{
			State:   engine.State(),
			Request: engine.Request(),
		})
	}
}

// ValidateBulkEdit reports field-level problems without mutating state.
func ValidateBulkEdit(engine *bulk.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fieldErrs := engine.Validate()
		if fieldErrs == nil {
			fieldErrs = []bulk.FieldError{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"valid":  len(fieldErrs) == 0,
			"errors": fieldErrs,
		})
	}
}

// ExecuteBulkEdit applies the composed request as a batch.
func ExecuteBulkEdit(engine *bulk.Engine, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := engine.Execute(r.Context())
		if err != nil {
			var partial *bulk.PartialApplyError
			if errors.As(err, &partial) && broadcaster != nil {
				broadcaster.BroadcastBulkApplyCompleted(len(partial.Applied), len(partial.Failed), nil)
			}
			writeBulkError(w, err)
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastBulkApplyCompleted(len(result.Applied), 0, result.SkippedRooms)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// CancelBulkEdit abandons the in-progress request.
func CancelBulkEdit(engine *bulk.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Cancel(); err != nil {
			writeBulkError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeBulkError(w http.ResponseWriter, err error) {
	var validationErr *bulk.ValidationError
	if errors.As(err, &validationErr) {
		middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity,
			middleware.ErrValidation, "Bulk edit request is invalid", validationErr.Fields)
		return
	}

	var stateErr *bulk.InvalidStateError
	if errors.As(err, &stateErr) {
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, stateErr.Error())
		return
	}

	var partialErr *bulk.PartialApplyError
	if errors.As(err, &partialErr) {
		middleware.WriteErrorWithDetails(w, http.StatusBadGateway,
			middleware.ErrPartialApply, partialErr.Error(), map[string]any{
				"applied": partialErr.Applied,
				"failed":  partialErr.Failed,
			})
		return
	}

	middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
}
