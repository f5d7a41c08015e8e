// Package export renders the loaded calendar window as an Excel
// workbook for the dashboard's report download.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/channel-manager/backend/internal/grid"
)

const sheetName = "Calendar"

// BuildWorkbook writes one row per loaded cell plus a pending-change
// summary header. Room numbers come from the given summaries when
// known.
func BuildWorkbook(window grid.Window, rooms []grid.RoomSummary, cells []grid.Cell) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	roomNumbers := make(map[int64]string, len(rooms))
	for _, r := range rooms {
		roomNumbers[r.RoomID] = r.RoomNumber
	}

	summary := grid.Recompute(cells)
	title := fmt.Sprintf("Channel calendar %s to %s, %d pending change(s)",
		window.From.Format(grid.DateLayout), window.To.Format(grid.DateLayout), summary.Count)
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, fmt.Errorf("writing title: %w", err)
	}

	headers := []string{"Room", "Room ID", "Date", "Rate", "Units", "Min Stay", "CTA", "CTD", "Status"}
	for i, h := range headers {
		axis, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, axis, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, c := range cells {
		row := i + 3
		values := []any{
			roomNumbers[c.RoomID],
			c.RoomID,
			c.Date.Format(grid.DateLayout),
			c.Rate,
			c.Units,
			c.MinStay,
			c.ClosedToArrival,
			c.ClosedToDeparture,
			string(c.SyncStatus),
		}
		for col, v := range values {
			axis, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, axis, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	return f, nil
}
