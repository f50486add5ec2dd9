// =============================================================================
// Ticket Sheets - Booking Breakdowns
// =============================================================================
//
// This module aggregates a derived booking dataset into the financial and
// ticket-count summaries: per-event totals (keyed by date and product, with
// full-value and reduced sub-counts), per-day totals, grand totals with extra
// statistics, and the seasonal present pivots.
//
// Every entry point requires that ticket extraction has run; a dataset with
// no "ticket_" columns is a caller contract violation, not bad input.
//
// =============================================================================

package breakdown

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// dayKeyLayout renders the date component of event and day keys.
const dayKeyLayout = "02/01/06"

// EventTotal summarises the bookings of one (date, event) group.
//
// Tickets are split by value: a booking whose regular rate equals its paid
// price contributes to FullValue, any positive saving moves all of its
// tickets to Reduced. Multi-child lines are counted as "Family Child" here;
// the fold back into "Child" happens only at the grand-total level.
type EventTotal struct {
	Date  string
	Event string

	FullValue map[string]int
	Reduced   map[string]int

	// TicketTypes lists the types seen in this group, in display order.
	TicketTypes []string

	NumTickets  int
	TotalValue  decimal.Decimal
	TotalSaving decimal.Decimal

	// ExtraCost is the value above a regular service, needed for tax
	// reporting. Never computed; retained so the report layout is stable.
	ExtraCost decimal.Decimal

	Orders int
}

// DayTotal summarises all bookings of one date.
type DayTotal struct {
	Date string

	Tickets     map[string]int
	TicketTypes []string

	NumTickets  int
	TotalValue  decimal.Decimal
	TotalSaving decimal.Decimal
	Orders      int
}

// GrandTotal summarises the whole dataset.
type GrandTotal struct {
	// Tickets holds per-type counts with "Family Child" folded into "Child".
	Tickets     map[string]int
	TicketTypes []string

	NumTickets int
	TotalValue decimal.Decimal
	Orders     int

	// OnlineValue is the value paid through the platform; WalkInValue is the
	// remainder reconstructed for walk-in orders. Without walk-in pricing the
	// whole value counts as online.
	OnlineValue decimal.Decimal
	WalkInValue decimal.Decimal

	Extra *ExtraStats
}

// ExtraStats carries the curiosity statistics shown under the grand totals.
type ExtraStats struct {
	MaxPriceOrder  int
	MaxPrice       decimal.Decimal
	MaxPriceMakeup string // markup

	AverageValue  decimal.Decimal
	AverageMakeup string // markup

	// Present stats are zero outside the seasonal mode.
	MaxPresents      int
	MaxPresentsOrder int
}

func errNoTicketColumns() error {
	return &bookings.ContractError{Msg: "no ticket columns found: extract_tickets must be in the input format"}
}

// =============================================================================
// PER-EVENT TOTALS
// =============================================================================

// PerEvent aggregates the dataset into per-(date, event) totals, ordered by
// date then event name.
func PerEvent(ctx *bookings.Context, ds *table.Dataset) ([]EventTotal, error) {
	if len(ds.TicketColumns()) == 0 {
		return nil, errNoTicketColumns()
	}

	type groupKey struct {
		day   time.Time
		event string
	}
	groups := make(map[groupKey][]table.Row)
	var keys []groupKey
	for _, row := range ds.Rows() {
		start, _ := row.Time(bookings.StartDateColumn + bookings.FormattedSuffix)
		key := groupKey{
			day:   time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()),
			event: row.Str("Product title" + bookings.FormattedSuffix),
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].day.Equal(keys[j].day) {
			return keys[i].day.Before(keys[j].day)
		}
		return keys[i].event < keys[j].event
	})

	hasWalkIn := ds.HasColumn(bookings.WalkInPriceColumn)
	out := make([]EventTotal, 0, len(keys))
	for _, key := range keys {
		total := subtotal(ctx, groups[key], hasWalkIn)
		total.Date = key.day.Format(dayKeyLayout)
		total.Event = key.event
		out = append(out, total)
	}
	return out, nil
}

// subtotal totals one booking group, classifying each booking's tickets as
// full value or reduced by comparing the regular rate against the price paid.
func subtotal(ctx *bookings.Context, rows []table.Row, hasWalkIn bool) EventTotal {
	total := EventTotal{
		FullValue: make(map[string]int),
		Reduced:   make(map[string]int),
		Orders:    len(rows),
	}

	for _, row := range rows {
		tickets := bookings.ParseTickets(row.Str("Price categories"), true)
		values := ctx.TicketValues(row)

		regular := decimal.Zero
		for _, t := range tickets {
			if unit, ok := values[t.Type]; ok {
				regular = regular.Add(unit.Mul(decimal.NewFromInt(int64(t.Qty))))
			}
		}

		paid := bookingValue(row, hasWalkIn)
		saving := regular.Sub(paid)
		if saving.IsNegative() {
			saving = decimal.Zero
		}

		total.TotalValue = total.TotalValue.Add(paid)
		total.TotalSaving = total.TotalSaving.Add(saving)

		bucket := total.FullValue
		if saving.IsPositive() {
			bucket = total.Reduced
		}
		for _, t := range tickets {
			bucket[t.Type] += t.Qty
			total.NumTickets += t.Qty
			if !contains(total.TicketTypes, t.Type) {
				total.TicketTypes = append(total.TicketTypes, t.Type)
			}
		}
	}

	bookings.OrderTicketNames(total.TicketTypes)
	return total
}

// =============================================================================
// PER-DAY AND GRAND TOTALS
// =============================================================================

// PerDay folds the per-event totals into one total per date. Summing the
// event totals (rather than re-walking the rows) keeps the day totals equal
// to their event partition by construction.
func PerDay(events []EventTotal) []DayTotal {
	var out []DayTotal
	index := make(map[string]int)

	for _, ev := range events {
		i, ok := index[ev.Date]
		if !ok {
			i = len(out)
			index[ev.Date] = i
			out = append(out, DayTotal{Date: ev.Date, Tickets: make(map[string]int)})
		}
		day := &out[i]

		for _, bucket := range []map[string]int{ev.FullValue, ev.Reduced} {
			for name, qty := range bucket {
				day.Tickets[name] += qty
			}
		}
		for _, name := range ev.TicketTypes {
			if !contains(day.TicketTypes, name) {
				day.TicketTypes = append(day.TicketTypes, name)
			}
		}
		day.NumTickets += ev.NumTickets
		day.TotalValue = day.TotalValue.Add(ev.TotalValue)
		day.TotalSaving = day.TotalSaving.Add(ev.TotalSaving)
		day.Orders += ev.Orders
	}

	for i := range out {
		bookings.OrderTicketNames(out[i].TicketTypes)
	}
	return out
}

// Grand computes the grand totals and extra statistics for the dataset.
func Grand(ctx *bookings.Context, ds *table.Dataset) (*GrandTotal, error) {
	ticketCols := ds.TicketColumns()
	if len(ticketCols) == 0 {
		return nil, errNoTicketColumns()
	}

	total := &GrandTotal{
		Tickets: make(map[string]int),
		Orders:  ds.Len(),
	}

	for _, col := range ticketCols {
		name := strings.TrimPrefix(col, "ticket_")
		// Family groups only matter within an event; at the grand level they
		// are ordinary children.
		if name == "Family Child" {
			name = "Child"
		}
		for _, row := range ds.Rows() {
			total.Tickets[name] += row.Int(col)
		}
	}
	for name, qty := range total.Tickets {
		total.NumTickets += qty
		if !contains(total.TicketTypes, name) {
			total.TicketTypes = append(total.TicketTypes, name)
		}
	}
	bookings.OrderTicketNames(total.TicketTypes)

	hasWalkIn := ds.HasColumn(bookings.WalkInPriceColumn)
	for _, row := range ds.Rows() {
		total.TotalValue = total.TotalValue.Add(bookingValue(row, hasWalkIn))
		total.OnlineValue = total.OnlineValue.Add(row.Decimal("Product price" + bookings.FormattedSuffix))
	}
	if hasWalkIn {
		total.WalkInValue = total.TotalValue.Sub(total.OnlineValue)
	} else {
		total.OnlineValue = total.TotalValue
	}

	total.Extra = extraStats(ds, ticketCols, hasWalkIn, ctx.PresentsColumn)
	return total, nil
}

func extraStats(ds *table.Dataset, ticketCols []string, hasWalkIn bool, presentsColumn string) *ExtraStats {
	stats := &ExtraStats{}
	if ds.Len() == 0 {
		return stats
	}

	// Most expensive order.
	var maxRow table.Row
	for _, row := range ds.Rows() {
		value := bookingValue(row, hasWalkIn)
		if maxRow == nil || value.GreaterThan(stats.MaxPrice) {
			maxRow = row
			stats.MaxPrice = value
		}
	}
	stats.MaxPriceOrder = maxRow.Int("Order ID" + bookings.FormattedSuffix)
	stats.MaxPriceMakeup = ticketMakeup(ticketCols, func(col string) string {
		return fmt.Sprintf("%d", maxRow.Int(col))
	})

	// Averages across all bookings.
	count := decimal.NewFromInt(int64(ds.Len()))
	sum := decimal.Zero
	for _, row := range ds.Rows() {
		sum = sum.Add(bookingValue(row, hasWalkIn))
	}
	stats.AverageValue = sum.Div(count)
	stats.AverageMakeup = ticketMakeup(ticketCols, func(col string) string {
		total := 0
		for _, row := range ds.Rows() {
			total += row.Int(col)
		}
		avg := decimal.NewFromInt(int64(total)).Div(count)
		return avg.StringFixed(4)
	})

	if presentsColumn != "" && ds.HasColumn(presentsColumn) {
		stats.MaxPresentsOrder, stats.MaxPresents = MaxPresents(ds, presentsColumn)
	}
	return stats
}

// ticketMakeup renders a one-line ticket composition, abbreviating each type
// to its initial: "<b>A</b>: 2, <b>C</b>: 3".
func ticketMakeup(ticketCols []string, render func(col string) string) string {
	names := make([]string, len(ticketCols))
	byName := make(map[string]string, len(ticketCols))
	for i, col := range ticketCols {
		name := strings.TrimPrefix(col, "ticket_")
		names[i] = name
		byName[name] = col
	}
	bookings.OrderTicketNames(names)

	parts := make([]string, len(names))
	for i, name := range names {
		initial := html.EscapeString(name[:1])
		parts[i] = fmt.Sprintf("<b>%s</b>: %s", initial, render(byName[name]))
	}
	return strings.Join(parts, ", ")
}

// MaxPresents returns the order with the most presents and its count.
func MaxPresents(ds *table.Dataset, presentsColumn string) (orderID, count int) {
	for _, row := range ds.Rows() {
		if n := len(row.Strings(presentsColumn)); n > count {
			count = n
			orderID = row.Int("Order ID" + bookings.FormattedSuffix)
		}
	}
	return orderID, count
}

// bookingValue is the effective price of one booking: the reconstructed
// walk-in price when that derivation ran, the tidied raw price otherwise.
func bookingValue(row table.Row, hasWalkIn bool) decimal.Decimal {
	if hasWalkIn {
		return row.Decimal(bookings.WalkInPriceColumn)
	}
	return row.Decimal("Product price" + bookings.FormattedSuffix)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
