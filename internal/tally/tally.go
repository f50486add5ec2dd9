// =============================================================================
// Ticket Sheets - Present Tally Sheets
// =============================================================================
//
// This module lays out the printable present tally grid for one event day:
// one column per train, one row per present slot. Elves work down a column
// handing out presents, so each cell carries the order it belongs to, a
// family-end marker under the order's last present, and the booking's needs
// code. The row matching the train's seat limit is flagged so the printed
// sheet shows the capacity line whether or not the train is full.
//
// =============================================================================

package tally

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// minRows keeps short days printable on the pre-ruled sheets.
const minRows = 26

// Cell is one slot of the tally grid.
type Cell struct {
	Present string

	// EndFamily marks the last present of an order, where the distribution
	// line is drawn.
	EndFamily bool

	// TrainLimit marks the seat-capacity row of the column.
	TrainLimit bool

	OrderID string
	Needs   string
}

// Sheet is the laid-out tally grid for one day.
type Sheet struct {
	// Trains holds the column headings in configured order.
	Trains []string

	// Rows is indexed [row][column], aligned with Trains.
	Rows [][]Cell
}

// ParseDate splits a "dd/mm" day selector.
func ParseDate(s string) (day, month int, err error) {
	if _, err := fmt.Sscanf(s, "%d/%d", &day, &month); err != nil {
		return 0, 0, fmt.Errorf("invalid tally date %q: %w", s, err)
	}
	return day, month, nil
}

// Generate lays out the tally sheet for one calendar day.
//
// Bookings are ordered by order number, then start date, so a family's
// presents sit together and the column order is reproducible. Bookings
// without presents are skipped; trains without a configured limit are not
// shown. The grid is at least minRows tall, always one row taller than the
// largest limit, and grows further if a column overflows its limit.
func Generate(ctx *bookings.Context, ds *table.Dataset, day, month int, limits []config.TrainLimit) *Sheet {
	rows := append([]table.Row(nil), ds.Rows()...)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := table.CompareCells(
			a["Order ID"+bookings.FormattedSuffix],
			b["Order ID"+bookings.FormattedSuffix],
		); c != 0 {
			return c < 0
		}
		at, _ := a.Time(bookings.StartDateColumn + bookings.FormattedSuffix)
		bt, _ := b.Time(bookings.StartDateColumn + bookings.FormattedSuffix)
		return at.Before(bt)
	})

	colIndex := make(map[string]int, len(limits))
	trains := make([]string, len(limits))
	for i, tl := range limits {
		trains[i] = tl.Time
		colIndex[tl.Time] = i
	}

	columns := make([][]Cell, len(limits))
	for _, row := range rows {
		start, ok := row.Time(bookings.StartDateColumn + bookings.FormattedSuffix)
		if !ok || start.Day() != day || int(start.Month()) != month {
			continue
		}
		presents := row.Strings(ctx.PresentsColumn)
		if len(presents) == 0 {
			continue
		}
		col, ok := colIndex[start.Format("15:04")]
		if !ok {
			continue
		}

		needs := row.Str(ctx.Config.NeedsColumn)
		// Keep the code, drop any free-text comment after it.
		needs, _, _ = strings.Cut(needs, ":")

		for i, present := range presents {
			columns[col] = append(columns[col], Cell{
				Present:   present,
				EndFamily: i == len(presents)-1,
				OrderID:   row.Str("Order ID"),
				Needs:     needs,
			})
		}
	}

	numRows := minRows
	for i, tl := range limits {
		if tl.Seats+1 > numRows {
			numRows = tl.Seats + 1
		}
		if len(columns[i]) > numRows {
			numRows = len(columns[i])
		}
	}

	sheet := &Sheet{Trains: trains, Rows: make([][]Cell, numRows)}
	for r := range sheet.Rows {
		sheet.Rows[r] = make([]Cell, len(limits))
		for c := range limits {
			if r < len(columns[c]) {
				sheet.Rows[r][c] = columns[c][r]
			}
		}
	}

	// Capacity markers are positional: row L (1-indexed) for a limit of L,
	// present or not.
	for c, tl := range limits {
		if tl.Seats >= 1 && tl.Seats <= numRows {
			sheet.Rows[tl.Seats-1][c].TrainLimit = true
		}
	}

	return sheet
}

// NeedsLegend collects the distinct needs codes per train for the sheet
// footer, in first-seen order down each column.
func (s *Sheet) NeedsLegend() map[string][]string {
	legend := make(map[string][]string)
	for c, train := range s.Trains {
		seen := make(map[string]struct{})
		for _, row := range s.Rows {
			cell := row[c]
			if cell.Needs == "" {
				continue
			}
			if _, dup := seen[cell.Needs]; dup {
				continue
			}
			seen[cell.Needs] = struct{}{}
			legend[train] = append(legend[train], cell.Needs)
		}
	}
	return legend
}
