// Package gateway is the REST client for the remote PMS backend, which
// owns persistence, pricing and availability. The calendar core only
// reads cell rows, pushes cell updates, and triggers channel sync
// through it.
package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/grid"
)

// Config holds the connection parameters for the remote backend.
type Config struct {
	BaseURL      string
	APIKey       string
	PropertyCode string
	Timeout      time.Duration
}

// Client talks JSON to the remote PMS backend.
type Client struct {
	http         *resty.Client
	propertyCode string
	logger       *zap.Logger
}

// NewClient creates a gateway client with retries and bearer auth.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		http.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		http:         http,
		propertyCode: cfg.PropertyCode,
		logger:       logger,
	}
}

// cellRow is the backend's wire shape for one calendar cell.
type cellRow struct {
	RoomID            int64   `json:"room_id"`
	Date              string  `json:"date"`
	Rate              float64 `json:"rate"`
	Units             int     `json:"units"`
	MinStay           int     `json:"min_stay"`
	ClosedToArrival   bool    `json:"closed_to_arrival"`
	ClosedToDeparture bool    `json:"closed_to_departure"`
	SyncStatus        string  `json:"sync_status,omitempty"`
}

type cellsResponse struct {
	Cells []cellRow `json:"cells"`
}

type roomsResponse struct {
	Rooms []grid.RoomSummary `json:"rooms"`
}

type syncRequest struct {
	From  string         `json:"from"`
	To    string         `json:"to"`
	Cells []grid.CellKey `json:"cells"`
}

type syncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// FetchCells retrieves calendar rows for a date range and room set.
func (c *Client) FetchCells(ctx context.Context, window grid.Window, roomIDs []int64) ([]grid.Cell, error) {
	var body cellsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("from", window.From.Format(grid.DateLayout)).
		SetQueryParam("to", window.To.Format(grid.DateLayout)).
		SetQueryParam("rooms", joinIDs(roomIDs)).
		SetResult(&body).
		Get(c.path("/calendar"))
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("fetching calendar", resp)
	}

	cells := make([]grid.Cell, 0, len(body.Cells))
	for _, row := range body.Cells {
		cell, err := row.toCell()
		if err != nil {
			c.logger.Warn("skipping malformed calendar row",
				zap.Int64("room_id", row.RoomID),
				zap.String("date", row.Date),
				zap.Error(err),
			)
			continue
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// UpdateCell pushes a single-cell change to the backend.
func (c *Client) UpdateCell(ctx context.Context, roomID int64, date time.Time, fields grid.FieldChanges) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fields).
		Patch(c.path(fmt.Sprintf("/calendar/%d/%s", roomID, date.Format(grid.DateLayout))))
	if err != nil {
		return fmt.Errorf("updating cell: %w", err)
	}
	if resp.IsError() {
		return apiError("updating cell", resp)
	}
	return nil
}

// ListRooms retrieves the property's room summaries.
func (c *Client) ListRooms(ctx context.Context) ([]grid.RoomSummary, error) {
	var body roomsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(c.path("/rooms"))
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("listing rooms", resp)
	}
	return body.Rooms, nil
}

// TriggerChannelSync asks the backend to push the given pending cells
// to the external channel.
func (c *Client) TriggerChannelSync(ctx context.Context, window grid.Window, cells []grid.Cell) error {
	req := syncRequest{
		From:  window.From.Format(grid.DateLayout),
		To:    window.To.Format(grid.DateLayout),
		Cells: make([]grid.CellKey, 0, len(cells)),
	}
	for i := range cells {
		req.Cells = append(req.Cells, cells[i].Key())
	}

	var body syncResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post(c.path("/channel/sync"))
	if err != nil {
		return fmt.Errorf("triggering channel sync: %w", err)
	}
	if resp.IsError() {
		return apiError("triggering channel sync", resp)
	}
	if body.Status != "" && body.Status != "ok" && body.Status != "success" {
		return fmt.Errorf("channel sync rejected: %s %s", body.Status, body.Message)
	}
	return nil
}

func (c *Client) path(suffix string) string {
	return "/api/v1/properties/" + c.propertyCode + suffix
}

func (r cellRow) toCell() (grid.Cell, error) {
	date, err := time.ParseInLocation(grid.DateLayout, r.Date, time.UTC)
	if err != nil {
		return grid.Cell{}, fmt.Errorf("parsing date %q: %w", r.Date, err)
	}

	status := grid.SyncStatus(r.SyncStatus)
	switch status {
	case grid.SyncStatusSynced, grid.SyncStatusPending, grid.SyncStatusError:
	default:
		status = grid.SyncStatusSynced
	}

	return grid.Cell{
		RoomID:            r.RoomID,
		Date:              date,
		Rate:              r.Rate,
		Units:             r.Units,
		MinStay:           r.MinStay,
		ClosedToArrival:   r.ClosedToArrival,
		ClosedToDeparture: r.ClosedToDeparture,
		SyncStatus:        status,
	}, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func apiError(op string, resp *resty.Response) error {
	return fmt.Errorf("%s: backend returned status %d: %s", op, resp.StatusCode(), resp.String())
}
