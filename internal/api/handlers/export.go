package handlers

import (
	"fmt"
	"net/http"

	"github.com/channel-manager/backend/internal/api/middleware"
	"github.com/channel-manager/backend/internal/export"
	"github.com/channel-manager/backend/internal/grid"
	"github.com/channel-manager/backend/internal/window"
)

// ExportCalendar streams the loaded window as an Excel workbook.
func ExportCalendar(store *grid.Store, controller *window.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := controller.Window()

		workbook, err := export.BuildWorkbook(win, store.Rooms(), store.Snapshot())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		filename := fmt.Sprintf("calendar_%s_%s.xlsx",
			win.From.Format(grid.DateLayout), win.To.Format(grid.DateLayout))

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := workbook.Write(w); err != nil {
			// Headers are already out; nothing useful left to send.
			return
		}
	}
}
