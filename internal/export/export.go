// =============================================================================
// Ticket Sheets - XLSX Export
// =============================================================================
//
// This module renders the breakdown and tally views as Excel workbooks for
// the staff who want a spreadsheet rather than a printout. The workbooks
// mirror the web views: one sheet per breakdown table, and one grid sheet per
// tally day with the capacity row filled and family ends underlined.
//
// =============================================================================

package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eldermoor-railway/ticket-sheets/internal/breakdown"
	"github.com/eldermoor-railway/ticket-sheets/internal/tally"
)

// BreakdownWorkbook renders the aggregated totals as a workbook with one
// sheet each for event totals, day totals, grand totals and, when the pivots
// are supplied, the two present cross-tabs.
func BreakdownWorkbook(
	events []breakdown.EventTotal,
	days []breakdown.DayTotal,
	grand *breakdown.GrandTotal,
	byAge, byTrain *breakdown.Pivot,
) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeEventSheet(f, events); err != nil {
		return nil, err
	}
	if err := writeDaySheet(f, days); err != nil {
		return nil, err
	}
	if err := writeGrandSheet(f, grand); err != nil {
		return nil, err
	}
	if byAge != nil {
		if err := writePivotSheet(f, "Presents by age", byAge); err != nil {
			return nil, err
		}
	}
	if byTrain != nil {
		if err := writePivotSheet(f, "Presents by train", byTrain); err != nil {
			return nil, err
		}
	}

	// Drop the default sheet left over from NewFile.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	return f, nil
}

func writeEventSheet(f *excelize.File, events []breakdown.EventTotal) error {
	const sheet = "Events"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headers := []any{
		"Date", "Event", "Orders", "Tickets",
		"Full price", "Reduced", "Income", "Savings",
	}
	if err := writeHeaderRow(f, sheet, headers); err != nil {
		return err
	}

	for i, ev := range events {
		row := []any{
			ev.Date,
			ev.Event,
			ev.Orders,
			ev.NumTickets,
			ticketMapText(ev.TicketTypes, ev.FullValue),
			ticketMapText(ev.TicketTypes, ev.Reduced),
			ev.TotalValue.InexactFloat64(),
			ev.TotalSaving.InexactFloat64(),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeDaySheet(f *excelize.File, days []breakdown.DayTotal) error {
	const sheet = "Days"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headers := []any{"Date", "Orders", "Tickets", "Breakdown", "Income", "Savings"}
	if err := writeHeaderRow(f, sheet, headers); err != nil {
		return err
	}

	for i, day := range days {
		row := []any{
			day.Date,
			day.Orders,
			day.NumTickets,
			ticketMapText(day.TicketTypes, day.Tickets),
			day.TotalValue.InexactFloat64(),
			day.TotalSaving.InexactFloat64(),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeGrandSheet(f *excelize.File, grand *breakdown.GrandTotal) error {
	const sheet = "Totals"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := [][]any{
		{"Orders", grand.Orders},
		{"Tickets", grand.NumTickets},
		{"Breakdown", ticketMapText(grand.TicketTypes, grand.Tickets)},
		{"Total income", grand.TotalValue.InexactFloat64()},
		{"Online income", grand.OnlineValue.InexactFloat64()},
		{"Walk-in income", grand.WalkInValue.InexactFloat64()},
	}
	for i, row := range rows {
		if err := writeRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writePivotSheet(f *excelize.File, sheet string, pivot *breakdown.Pivot) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	headers := make([]any, 0, len(pivot.Columns)+1)
	headers = append(headers, "Date")
	for _, col := range pivot.Columns {
		headers = append(headers, col)
	}
	if err := writeHeaderRow(f, sheet, headers); err != nil {
		return err
	}

	for i, row := range pivot.Rows {
		values := make([]any, 0, len(row.Counts)+1)
		values = append(values, row.Date)
		for _, n := range row.Counts {
			values = append(values, n)
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TALLY WORKBOOK
// =============================================================================

// TallyWorkbook renders one day's tally grid. The capacity row of each train
// is shaded and the last present of every order carries a bottom border, so
// the printed workbook reads like the pre-ruled paper sheets.
func TallyWorkbook(date string, sheet *tally.Sheet) (*excelize.File, error) {
	f := excelize.NewFile()
	name := "Tally " + strings.ReplaceAll(date, "/", "-")
	if _, err := f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	limitStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create limit style: %w", err)
	}
	familyStyle, err := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{{Type: "bottom", Style: 2, Color: "000000"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create family style: %w", err)
	}

	headers := make([]any, 0, len(sheet.Trains)+1)
	headers = append(headers, date)
	for _, train := range sheet.Trains {
		headers = append(headers, train)
	}
	if err := writeHeaderRow(f, name, headers); err != nil {
		return nil, err
	}

	for r, row := range sheet.Rows {
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(name, axis, r+1); err != nil {
			return nil, fmt.Errorf("failed to write cell %s: %w", axis, err)
		}

		for c, cell := range row {
			axis, err := excelize.CoordinatesToCellName(c+2, r+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell name: %w", err)
			}

			text := cell.Present
			if cell.Present != "" {
				text = fmt.Sprintf("%s  #%s", cell.Present, cell.OrderID)
				if cell.Needs != "" {
					text += " " + cell.Needs
				}
			}
			if err := f.SetCellValue(name, axis, text); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", axis, err)
			}

			switch {
			case cell.TrainLimit:
				err = f.SetCellStyle(name, axis, axis, limitStyle)
			case cell.EndFamily:
				err = f.SetCellStyle(name, axis, axis, familyStyle)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to style cell %s: %w", axis, err)
			}
		}
	}

	return f, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeHeaderRow(f *excelize.File, sheet string, headers []any) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header row: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	for i, v := range values {
		axis, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", axis, err)
		}
	}
	return nil
}

func ticketMapText(order []string, counts map[string]int) string {
	var parts []string
	for _, name := range order {
		if qty, ok := counts[name]; ok && qty != 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", name, qty))
		}
	}
	return strings.Join(parts, "\n")
}
