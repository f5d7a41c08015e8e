package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/api/handlers"
	"github.com/channel-manager/backend/internal/bulk"
	"github.com/channel-manager/backend/internal/grid"
	"github.com/channel-manager/backend/internal/syncer"
	ws "github.com/channel-manager/backend/internal/websocket"
	"github.com/channel-manager/backend/internal/window"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation(grid.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeFetcher serves one synced cell per room per day of the requested
// window.
type fakeFetcher struct{}

func (f *fakeFetcher) FetchCells(ctx context.Context, w grid.Window, roomIDs []int64) ([]grid.Cell, error) {
	var cells []grid.Cell
	for _, roomID := range roomIDs {
		for _, d := range w.Days() {
			cells = append(cells, grid.Cell{
				RoomID: roomID, Date: d, Rate: 100, Units: 1, MinStay: 1,
				SyncStatus: grid.SyncStatusSynced,
			})
		}
	}
	return cells, nil
}

func (f *fakeFetcher) ListRooms(ctx context.Context) ([]grid.RoomSummary, error) {
	return nil, nil
}

type fakeUpdater struct {
	calls int
}

func (u *fakeUpdater) UpdateCell(ctx context.Context, roomID int64, d time.Time, fields grid.FieldChanges) error {
	u.calls++
	return nil
}

type fakeSyncer struct {
	calls int
}

func (s *fakeSyncer) TriggerChannelSync(ctx context.Context, w grid.Window, cells []grid.Cell) error {
	s.calls++
	return nil
}

type fixture struct {
	store      *grid.Store
	controller *window.Controller
	engine     *bulk.Engine
	trigger    *syncer.Trigger
	updater    *fakeUpdater
	gw         *fakeSyncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := grid.NewStore(&fakeFetcher{}, zap.NewNop())
	store.SetRooms([]grid.RoomSummary{
		{RoomID: 101, RoomNumber: "101", HasChannelMapping: true},
		{RoomID: 102, RoomNumber: "102", HasChannelMapping: true},
	})

	controller := window.NewController(store, 7, 0, zap.NewNop())
	require.NoError(t, controller.SetDateRange(context.Background(), date("2025-06-01"), date("2025-06-07")))

	updater := &fakeUpdater{}
	gw := &fakeSyncer{}
	return &fixture{
		store:      store,
		controller: controller,
		engine:     bulk.NewEngine(store, updater, zap.NewNop()),
		trigger:    syncer.NewTrigger(store, gw, zap.NewNop()),
		updater:    updater,
		gw:         gw,
	}
}

func TestGetCalendar(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar", nil)
	rec := httptest.NewRecorder()
	handlers.GetCalendar(f.store, f.controller)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.CalendarStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Cells, 14)
	assert.Equal(t, 0, resp.Pending.Count)
	assert.True(t, resp.Window.From.Equal(date("2025-06-01")))
}

func TestUpdateCellEndpoint(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"rate": 250}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/calendar/cells/101/2025-06-03", body)
	req = mux.SetURLVars(req, map[string]string{"roomID": "101", "date": "2025-06-03"})
	rec := httptest.NewRecorder()
	handlers.UpdateCell(f.store, f.updater, nil)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.updater.calls)

	var cell grid.Cell
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cell))
	assert.Equal(t, 250.0, cell.Rate)
	assert.Equal(t, grid.SyncStatusPending, cell.SyncStatus)
	assert.Equal(t, 1, f.store.Summary().Count)
}

func TestUpdateCellRejectsInvalidFields(t *testing.T) {
	f := newFixture(t)

	body := strings.NewReader(`{"rate": -5}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/calendar/cells/101/2025-06-03", body)
	req = mux.SetURLVars(req, map[string]string{"roomID": "101", "date": "2025-06-03"})
	rec := httptest.NewRecorder()
	handlers.UpdateCell(f.store, f.updater, nil)(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, f.updater.calls, "backend must not be called for an invalid update")
	assert.Equal(t, 0, f.store.Summary().Count)
}

func TestBulkEditWorkflowOverHTTP(t *testing.T) {
	f := newFixture(t)

	start := strings.NewReader(`{
		"from": "2025-06-01T00:00:00Z",
		"to": "2025-06-03T00:00:00Z",
		"room_ids": [101, 102],
		"fields": {"min_stay": 2}
	}`)
	rec := httptest.NewRecorder()
	handlers.StartBulkEdit(f.engine)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit", start))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handlers.ValidateBulkEdit(f.engine)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit/validate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var validation struct {
		Valid  bool              `json:"valid"`
		Errors []bulk.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validation))
	assert.True(t, validation.Valid)

	rec = httptest.NewRecorder()
	handlers.ExecuteBulkEdit(f.engine, nil)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit/execute", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result bulk.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Applied, 6)
	assert.Equal(t, 6, f.store.Summary().Count)
}

func TestStartBulkEditConflict(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	handlers.StartBulkEdit(f.engine)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handlers.StartBulkEdit(f.engine)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExecuteInvalidBulkEditReturnsFieldErrors(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	handlers.StartBulkEdit(f.engine)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handlers.ExecuteBulkEdit(f.engine, nil)(rec, httptest.NewRequest(http.MethodPost, "/api/bulk-edit/execute", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Error   string            `json:"error"`
		Details []bulk.FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestTriggerSyncEndpoint(t *testing.T) {
	f := newFixture(t)

	// Nothing pending: backend untouched.
	rec := httptest.NewRecorder()
	handlers.TriggerSync(f.trigger, f.controller, nil, nil, zap.NewNop())(rec,
		httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var result syncer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 0, result.Synced)
	assert.Equal(t, 0, f.gw.calls)

	// Dirty two cells, then sync for real.
	rate := 180.0
	_, err := f.store.ApplyLocalUpdate(101, date("2025-06-02"), grid.FieldChanges{Rate: &rate})
	require.NoError(t, err)
	_, err = f.store.ApplyLocalUpdate(102, date("2025-06-04"), grid.FieldChanges{Rate: &rate})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	handlers.TriggerSync(f.trigger, f.controller, nil, nil, zap.NewNop())(rec,
		httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, f.gw.calls)
	assert.Equal(t, 0, f.store.Summary().Count)
}

func TestTriggerSyncBroadcastsEvents(t *testing.T) {
	f := newFixture(t)

	hub := ws.NewHub(zap.NewNop())
	go hub.Run()
	client := ws.NewClient(hub)
	hub.Register(client)
	broadcaster := ws.NewEventBroadcaster(hub, zap.NewNop())

	rate := 150.0
	_, err := f.store.ApplyLocalUpdate(101, date("2025-06-02"), grid.FieldChanges{Rate: &rate})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handlers.TriggerSync(f.trigger, f.controller, nil, broadcaster, zap.NewNop())(rec,
		httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	types := make(map[ws.MessageType]bool)
	for i := 0; i < 2; i++ {
		select {
		case data := <-client.Send():
			var msg ws.Message
			require.NoError(t, json.Unmarshal(data, &msg))
			types[msg.Type] = true
		case <-time.After(time.Second):
			t.Fatal("expected two broadcast messages")
		}
	}

	assert.True(t, types[ws.TypeSyncCompleted])
	assert.True(t, types[ws.TypeNotification])
}
