// Package main is the entry point for the channel-manager calendar server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/api"
	"github.com/channel-manager/backend/internal/bulk"
	"github.com/channel-manager/backend/internal/config"
	"github.com/channel-manager/backend/internal/gateway"
	"github.com/channel-manager/backend/internal/grid"
	"github.com/channel-manager/backend/internal/storage"
	"github.com/channel-manager/backend/internal/syncer"
	"github.com/channel-manager/backend/internal/websocket"
	"github.com/channel-manager/backend/internal/window"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	devMode := flag.Bool("dev", false, "Use human-readable development logging")
	flag.Parse()

	cfg := config.Load()

	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	logger, err := newLogger(*devMode)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	logger.Info("starting channel-manager calendar server", zap.String("version", version))

	// Local settings database
	dbPath := cfg.DataDir + "/channel-manager.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		logger.Fatal("opening database failed", zap.Error(err))
	}
	defer db.Close()

	if err := storage.RunMigrations(db, logger); err != nil {
		logger.Fatal("running migrations failed", zap.Error(err))
	}

	settingsRepo := storage.NewSettingsRepository(db)
	channelRepo := storage.NewChannelRepository(db)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()
	broadcaster := websocket.NewEventBroadcaster(hub, logger)

	// Remote PMS gateway
	gw := gateway.NewClient(gateway.Config{
		BaseURL:      cfg.GatewayBaseURL,
		APIKey:       cfg.GatewayAPIKey,
		PropertyCode: cfg.PropertyCode,
		Timeout:      cfg.GatewayTimeout(),
	}, logger)

	// Calendar core
	store := grid.NewStore(gw, logger)
	store.Subscribe(broadcaster.BroadcastPendingChanges)

	controller := window.NewController(store, windowSpan(settingsRepo, cfg), refreshInterval(settingsRepo, cfg), logger)
	controller.OnLoad(broadcaster.BroadcastCellsLoaded)
	engine := bulk.NewEngine(store, gw, logger)
	trigger := syncer.NewTrigger(store, gw, logger)

	// Prime rooms and the initial window; the dashboard can retry via
	// the API if the backend is down at startup.
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.LoadRooms(startCtx); err != nil {
		logger.Warn("initial room load failed", zap.Error(err))
	}
	if err := controller.Refresh(startCtx); err != nil {
		logger.Warn("initial window load failed", zap.Error(err))
	}
	cancelStart()

	if err := controller.StartAutoRefresh(); err != nil {
		logger.Warn("starting auto-refresh failed", zap.Error(err))
	}

	router := api.NewRouter(api.Deps{
		Logger:      logger,
		DB:          db,
		Store:       store,
		Controller:  controller,
		Engine:      engine,
		Trigger:     trigger,
		Updater:     gw,
		Hub:         hub,
		Broadcaster: broadcaster,
		Settings:    settingsRepo,
		Channels:    channelRepo,
		StaticDir:   cfg.StaticDir,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	controller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// windowSpan prefers the persisted window_days setting over the
// environment default.
func windowSpan(settings *storage.SettingsRepository, cfg *config.Config) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if value, err := settings.Get(ctx, "window_days"); err == nil && value != "" {
		if days, err := strconv.Atoi(value); err == nil && days > 0 {
			return days
		}
	}
	return cfg.WindowDays
}

// refreshInterval prefers the persisted setting over the environment
// default.
func refreshInterval(settings *storage.SettingsRepository, cfg *config.Config) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if value, err := settings.Get(ctx, "refresh_interval_min"); err == nil && value != "" {
		if minutes, err := strconv.Atoi(value); err == nil && minutes >= 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return cfg.RefreshInterval()
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runHealthCheck probes the running server, for container HEALTHCHECK.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
