// Package window owns the visible calendar date range and filters, and
// drives loads of the cell store, including auto-refresh and stale-load
// cancellation.
package window

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/grid"
)

// Filters narrow which rooms participate in the loaded window.
type Filters struct {
	RoomType   string `json:"room_type,omitempty"`
	MappedOnly bool   `json:"mapped_only,omitempty"`
}

// Controller holds the current window and filters, and re-triggers
// store loads when either changes. Each load carries a generation
// token; starting a new load cancels the in-flight one so a stale
// response can never overwrite fresher data.
type Controller struct {
	store  *grid.Store
	logger *zap.Logger

	mu      sync.Mutex
	window  grid.Window
	filters Filters
	onLoad  func(grid.Window, int)

	loadToken  uuid.UUID
	loadCancel context.CancelFunc

	cron         *cron.Cron
	refreshEntry cron.EntryID
	refreshEvery time.Duration
}

// NewController creates a controller whose initial window starts today
// and spans the given number of days (one week when spanDays < 1).
func NewController(store *grid.Store, spanDays int, refreshEvery time.Duration, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spanDays < 1 {
		spanDays = 7
	}
	today := time.Now().UTC()
	return &Controller{
		store:        store,
		logger:       logger,
		window:       grid.NewWindow(today, today.AddDate(0, 0, spanDays-1)),
		cron:         cron.New(),
		refreshEvery: refreshEvery,
	}
}

// OnLoad registers a callback invoked after every successful load with
// the loaded window and cell count.
func (c *Controller) OnLoad(fn func(window grid.Window, cells int)) {
	c.mu.Lock()
	c.onLoad = fn
	c.mu.Unlock()
}

// Window returns the currently visible date range.
func (c *Controller) Window() grid.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// Filters returns the active room filters.
func (c *Controller) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// SetDateRange replaces the visible window and reloads it.
func (c *Controller) SetDateRange(ctx context.Context, from, to time.Time) error {
	c.mu.Lock()
	c.window = grid.NewWindow(from, to)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// GoToPreviousWeek shifts the window back seven days and reloads.
func (c *Controller) GoToPreviousWeek(ctx context.Context) error {
	return c.shift(ctx, -7)
}

// GoToNextWeek shifts the window forward seven days and reloads.
func (c *Controller) GoToNextWeek(ctx context.Context) error {
	return c.shift(ctx, 7)
}

// GoToToday re-anchors the window at today, keeping its span, and
// reloads.
func (c *Controller) GoToToday(ctx context.Context) error {
	c.mu.Lock()
	span := c.window.Span()
	today := time.Now().UTC()
	c.window = grid.NewWindow(today, today.AddDate(0, 0, span-1))
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// SetFilters replaces the room filters and reloads the window.
func (c *Controller) SetFilters(ctx context.Context, f Filters) error {
	c.mu.Lock()
	c.filters = f
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh re-issues a load for the current window, cancelling any load
// still in flight. Cancellation is honored by the store before it
// commits, so a superseded load can never overwrite fresher data; it
// reports no error either.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.loadCancel != nil {
		c.loadCancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	token := uuid.New()
	c.loadToken = token
	c.loadCancel = cancel
	window := c.window
	c.mu.Unlock()

	roomIDs := c.roomIDs()
	cells, err := c.store.Load(loadCtx, window, roomIDs)

	c.mu.Lock()
	stale := c.loadToken != token
	if !stale {
		c.loadCancel = nil
	}
	fn := c.onLoad
	c.mu.Unlock()
	cancel()

	if stale || errors.Is(err, context.Canceled) {
		// Superseded by a newer load; its result is authoritative.
		return nil
	}
	if err != nil {
		return fmt.Errorf("refreshing window: %w", err)
	}

	if fn != nil {
		fn(window, len(cells))
	}
	return nil
}

func (c *Controller) shift(ctx context.Context, days int) error {
	c.mu.Lock()
	c.window = c.window.Shift(days)
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// roomIDs resolves the active filters against the known room summaries.
func (c *Controller) roomIDs() []int64 {
	c.mu.Lock()
	f := c.filters
	c.mu.Unlock()

	var ids []int64
	for _, r := range c.store.Rooms() {
		if f.RoomType != "" && r.RoomType != f.RoomType {
			continue
		}
		if f.MappedOnly && !r.HasChannelMapping {
			continue
		}
		ids = append(ids, r.RoomID)
	}
	return ids
}

// StartAutoRefresh schedules a periodic reload of the current window.
// It is a no-op when the interval is zero or a job is already running.
func (c *Controller) StartAutoRefresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshEvery <= 0 || c.refreshEntry != 0 {
		return nil
	}

	entry, err := c.cron.AddFunc("@every "+c.refreshEvery.String(), func() {
		if err := c.Refresh(context.Background()); err != nil {
			c.logger.Warn("auto-refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling auto-refresh: %w", err)
	}
	c.refreshEntry = entry
	c.cron.Start()

	c.logger.Info("auto-refresh started", zap.Duration("interval", c.refreshEvery))
	return nil
}

// Stop halts auto-refresh and cancels any in-flight load. Safe to call
// more than once.
func (c *Controller) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()

	c.mu.Lock()
	if c.refreshEntry != 0 {
		c.cron.Remove(c.refreshEntry)
		c.refreshEntry = 0
	}
	if c.loadCancel != nil {
		c.loadCancel()
		c.loadCancel = nil
	}
	c.mu.Unlock()
}
