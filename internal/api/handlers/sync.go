package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/storage"
	"github.com/channel-manager/backend/internal/syncer"
	"github.com/channel-manager/backend/internal/websocket"
	"github.com/channel-manager/backend/internal/window"
)

// TriggerSync pushes the current window's pending changes to the
// external channel. With nothing pending it responds {"synced": 0}
// without touching the backend.
func TriggerSync(
	trigger *syncer.Trigger,
	controller *window.Controller,
	channels *storage.ChannelRepository,
	broadcaster *websocket.EventBroadcaster,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := controller.Window()

		result, err := trigger.Sync(r.Context(), win)
		if err != nil {
			var inProgress *syncer.SyncInProgressError
			if errors.As(err, &inProgress) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrSyncInProgress, inProgress.Error())
				return
			}

			recordSyncOutcome(r, channels, "error", err, logger)
			if broadcaster != nil {
				broadcaster.BroadcastSyncError(win, err)
				broadcaster.BroadcastNotification("error", "Channel sync failed", err.Error())
			}
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrSyncFailed, err.Error())
			return
		}

		if result.Synced > 0 {
			recordSyncOutcome(r, channels, "success", nil, logger)
			if broadcaster != nil {
				broadcaster.BroadcastSyncCompleted(win, result.Synced)
				broadcaster.BroadcastNotification("success", "Channel sync complete",
					fmt.Sprintf("%d change(s) pushed to the channel", result.Synced))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

// recordSyncOutcome stamps the latest sync result on every enabled
// channel connection.
func recordSyncOutcome(r *http.Request, channels *storage.ChannelRepository, status string, syncErr error, logger *zap.Logger) {
	if channels == nil {
		return
	}

	conns, err := channels.List(r.Context())
	if err != nil {
		logger.Warn("listing channel connections failed", zap.Error(err))
		return
	}
	for _, conn := range conns {
		if !conn.Enabled {
			continue
		}
		if err := channels.RecordSyncResult(r.Context(), conn.ID, status, syncErr); err != nil {
			logger.Warn("recording sync result failed",
				zap.String("connection_id", conn.ID),
				zap.Error(err),
			)
		}
	}
}
