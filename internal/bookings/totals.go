// =============================================================================
// Ticket Sheets - Day Total Methods
// =============================================================================
//
// Total methods reduce one column of a day's bookings to the cell shown in
// that day's totals row. Their output is display markup: templates render the
// cell verbatim, so anything data-derived is escaped here.
//
// =============================================================================

package bookings

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// Cell is one rendered cell of an output row. Colspan lets a totals label
// stretch over neighbouring blank columns.
type Cell struct {
	Text    string
	Align   string
	Colspan int
}

// totalFunc reduces one column of a day group to a totals cell.
type totalFunc func(ctx *Context, rows []table.Row, column string) Cell

// totalMethods is the static registry of total method names accepted in a
// table layout. Config validation checks column specs against this map at
// load time.
var totalMethods = map[string]totalFunc{
	"sum":           totalSum,
	"price_sum":     totalPriceSum,
	"order_count":   totalOrderCount,
	"order_count_2": totalOrderCount2,
	"label":         totalLabel,
	"label_2":       totalLabel2,
	"label_3":       totalLabel3,
	"category_sum":  totalCategorySum,
	"present_sum":   totalPresentSum,
}

func totalSum(_ *Context, rows []table.Row, column string) Cell {
	sum := 0
	for _, row := range rows {
		sum += row.Int(column)
	}
	return Cell{Text: fmt.Sprintf("<b>%d</b>", sum), Colspan: 1}
}

func totalPriceSum(_ *Context, rows []table.Row, column string) Cell {
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(row.Decimal(column))
	}
	return Cell{Text: fmt.Sprintf("<b>%s</b>", sum.StringFixed(2)), Colspan: 1}
}

func totalOrderCount(_ *Context, rows []table.Row, _ string) Cell {
	return Cell{Text: fmt.Sprintf("<b>Orders:</b> %d", len(rows)), Colspan: 1}
}

func totalOrderCount2(ctx *Context, rows []table.Row, column string) Cell {
	cell := totalOrderCount(ctx, rows, column)
	cell.Colspan = 2
	return cell
}

func totalLabel(_ *Context, _ []table.Row, _ string) Cell {
	return Cell{Text: "<b>Totals</b>", Colspan: 1}
}

func totalLabel2(ctx *Context, rows []table.Row, column string) Cell {
	cell := totalLabel(ctx, rows, column)
	cell.Colspan = 2
	return cell
}

func totalLabel3(ctx *Context, rows []table.Row, column string) Cell {
	cell := totalLabel(ctx, rows, column)
	cell.Colspan = 3
	return cell
}

// totalCategorySum sums the day's ticket lines per type, in display order.
func totalCategorySum(_ *Context, rows []table.Row, column string) Cell {
	counts := make(map[string]int)
	var names []string
	for _, row := range rows {
		for _, t := range ParseTicketLines(row.Str(column)) {
			if _, seen := counts[t.Type]; !seen {
				names = append(names, t.Type)
			}
			counts[t.Type] += t.Qty
		}
	}

	OrderTicketNames(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", html.EscapeString(name), counts[name])
	}
	return Cell{Text: strings.Join(parts, "<br>"), Colspan: 1}
}

// totalPresentSum sums the day's present codes into child and infant counts.
func totalPresentSum(ctx *Context, rows []table.Row, column string) Cell {
	var child, infant int
	for _, row := range rows {
		c, i := categorisePresents(row.Strings(column), ctx.infantCodes)
		child += c
		infant += i
	}
	return Cell{Text: fmt.Sprintf("Child: %d<br>Infant: %d", child, infant), Colspan: 1}
}
