// Package bulk implements the channel-manager bulk-edit workflow:
// composing a multi-field change over a room/date selection, validating
// it, and applying it as a batch of per-cell updates.
package bulk

import (
	"fmt"
	"strings"
	"time"

	"github.com/channel-manager/backend/internal/grid"
)

// ApplyMode selects how the requested fields are applied to each cell.
type ApplyMode string

const (
	// ModeOverwrite replaces each selected field with the given value.
	ModeOverwrite ApplyMode = "overwrite"
	// ModeIncrementRateByPercent adjusts each cell's current rate by
	// RatePercent; other selected fields are still overwritten.
	ModeIncrementRateByPercent ApplyMode = "increment_rate_by_percent"
)

// Request is a bulk edit being composed: the target selection plus the
// partial field set to apply.
type Request struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	RoomIDs     []int64           `json:"room_ids"`
	Fields      grid.FieldChanges `json:"fields"`
	Mode        ApplyMode         `json:"apply_mode"`
	RatePercent float64           `json:"rate_percent,omitempty"`
}

// Window returns the normalized target date range.
func (r Request) Window() grid.Window {
	return grid.NewWindow(r.From, r.To)
}

// merge folds the set fields of patch into r.
func (r *Request) merge(patch Request) {
	if !patch.From.IsZero() {
		r.From = patch.From
	}
	if !patch.To.IsZero() {
		r.To = patch.To
	}
	if patch.RoomIDs != nil {
		r.RoomIDs = patch.RoomIDs
	}
	if patch.Mode != "" {
		r.Mode = patch.Mode
	}
	if patch.RatePercent != 0 {
		r.RatePercent = patch.RatePercent
	}
	f := patch.Fields
	if f.Rate != nil {
		r.Fields.Rate = f.Rate
	}
	if f.Units != nil {
		r.Fields.Units = f.Units
	}
	if f.MinStay != nil {
		r.Fields.MinStay = f.MinStay
	}
	if f.ClosedToArrival != nil {
		r.Fields.ClosedToArrival = f.ClosedToArrival
	}
	if f.ClosedToDeparture != nil {
		r.Fields.ClosedToDeparture = f.ClosedToDeparture
	}
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports why a bulk edit request was rejected before
// any cell was touched.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid bulk edit request: " + strings.Join(msgs, "; ")
}

// Validate checks a request without mutating any state. It returns the
// full list of field-level problems, empty when the request is valid.
func Validate(r Request) []FieldError {
	var errs []FieldError

	changesRate := r.Mode == ModeIncrementRateByPercent && r.RatePercent != 0
	if r.Fields.IsZero() && !changesRate {
		errs = append(errs, FieldError{Field: "fields", Message: "at least one field must be set"})
	}

	if len(r.RoomIDs) == 0 {
		errs = append(errs, FieldError{Field: "room_ids", Message: "at least one room must be targeted"})
	}
	if r.From.IsZero() || r.To.IsZero() {
		errs = append(errs, FieldError{Field: "date_range", Message: "a date range must be targeted"})
	} else if r.To.Before(r.From) {
		errs = append(errs, FieldError{Field: "date_range", Message: "end date precedes start date"})
	}

	switch r.Mode {
	case "", ModeOverwrite:
	case ModeIncrementRateByPercent:
		if r.RatePercent <= -100 {
			errs = append(errs, FieldError{Field: "rate_percent", Message: "adjustment cannot be -100% or lower"})
		}
		if r.Fields.Rate != nil {
			errs = append(errs, FieldError{Field: "rate", Message: "rate is computed from rate_percent in this mode"})
		}
	default:
		errs = append(errs, FieldError{Field: "apply_mode", Message: fmt.Sprintf("unknown apply mode %q", r.Mode)})
	}

	if r.Fields.Rate != nil && *r.Fields.Rate < 0 {
		errs = append(errs, FieldError{Field: "rate", Message: "rate must be >= 0"})
	}
	if r.Fields.Units != nil && *r.Fields.Units < 0 {
		errs = append(errs, FieldError{Field: "units", Message: "units must be >= 0"})
	}
	if r.Fields.MinStay != nil && *r.Fields.MinStay < 1 {
		errs = append(errs, FieldError{Field: "min_stay", Message: "min_stay must be >= 1"})
	}

	return errs
}
