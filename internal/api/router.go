// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/api/handlers"
	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/bulk"
	"github.com/channel-manager/backend/internal/grid"
	"github.com/channel-manager/backend/internal/storage"
	"github.com/channel-manager/backend/internal/syncer"
	"github.com/channel-manager/backend/internal/websocket"
	"github.com/channel-manager/backend/internal/window"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Logger      *zap.Logger
	DB          *storage.DB
	Store       *grid.Store
	Controller  *window.Controller
	Engine      *bulk.Engine
	Trigger     *syncer.Trigger
	Updater     handlers.CellUpdater
	Hub         *websocket.Hub
	Broadcaster *websocket.EventBroadcaster
	Settings    *storage.SettingsRepository
	Channels    *storage.ChannelRepository
	StaticDir   string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.ErrorRecovery(d.Logger))

	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Store, d.Trigger, d.Hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.Logger)).Methods("GET")

	// Calendar window endpoints
	api.HandleFunc("/calendar", handlers.GetCalendar(d.Store, d.Controller)).Methods("GET")
	api.HandleFunc("/calendar/window", handlers.SetWindow(d.Store, d.Controller)).Methods("PUT")
	api.HandleFunc("/calendar/navigate", handlers.Navigate(d.Store, d.Controller)).Methods("POST")
	api.HandleFunc("/calendar/filters", handlers.SetFilters(d.Store, d.Controller)).Methods("PUT")
	api.HandleFunc("/calendar/refresh", handlers.RefreshCalendar(d.Store, d.Controller)).Methods("POST")
	api.HandleFunc("/calendar/pending", handlers.GetPending(d.Store)).Methods("GET")
	api.HandleFunc("/calendar/cells/{roomID}/{date}", handlers.UpdateCell(d.Store, d.Updater, d.Broadcaster)).Methods("PATCH")
	api.HandleFunc("/calendar/export", handlers.ExportCalendar(d.Store, d.Controller)).Methods("GET")

	// Bulk edit endpoints
	api.HandleFunc("/bulk-edit", handlers.GetBulkEdit(d.Engine)).Methods("GET")
	api.HandleFunc("/bulk-edit", handlers.StartBulkEdit(d.Engine)).Methods("POST")
	api.HandleFunc("/bulk-edit", handlers.UpdateBulkEdit(d.Engine)).Methods("PATCH")
	api.HandleFunc("/bulk-edit", handlers.CancelBulkEdit(d.Engine)).Methods("DELETE")
	api.HandleFunc("/bulk-edit/validate", handlers.ValidateBulkEdit(d.Engine)).Methods("POST")
	api.HandleFunc("/bulk-edit/execute", handlers.ExecuteBulkEdit(d.Engine, d.Broadcaster)).Methods("POST")

	// Channel sync
	api.HandleFunc("/sync", handlers.TriggerSync(d.Trigger, d.Controller, d.Channels, d.Broadcaster, d.Logger)).Methods("POST")

	// Rooms
	api.HandleFunc("/rooms", handlers.ListRooms(d.Store)).Methods("GET")

	// Settings endpoints
	api.HandleFunc("/settings", handlers.GetSettings(d.Settings)).Methods("GET")
	api.HandleFunc("/settings", handlers.UpdateSettings(d.Settings)).Methods("PUT")

	// Channel connection endpoints
	api.HandleFunc("/channels", handlers.ListChannelConnections(d.Channels)).Methods("GET")
	api.HandleFunc("/channels", handlers.CreateChannelConnection(d.Channels)).Methods("POST")
	api.HandleFunc("/channels/{id}", handlers.GetChannelConnection(d.Channels)).Methods("GET")
	api.HandleFunc("/channels/{id}", handlers.UpdateChannelConnection(d.Channels)).Methods("PUT")
	api.HandleFunc("/channels/{id}", handlers.DeleteChannelConnection(d.Channels)).Methods("DELETE")

	// Serve static frontend files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))

	return r
}
