// =============================================================================
// Ticket Sheets - Column Extractions
// =============================================================================
//
// An extraction derives new columns (or rewrites an existing one) across the
// whole dataset. Unlike conversions, extractions may read and write several
// columns, so their relative order in the input format is a hard dependency
// contract: the seasonal pipeline must run accompanying parsing, present
// extraction, accompanying folding, infant splitting, ticket extraction and
// walk-in pricing in exactly that order.
//
// =============================================================================

package bookings

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// Derived column names written by the walk-in pricing step.
const (
	WalkInPriceColumn = "Walk-in price"
	WalkInFlagColumn  = "Walk-in"
)

// extractionFunc derives columns across the dataset in place.
type extractionFunc func(ctx *Context, ds *table.Dataset, column string)

// extractions is the static registry of extraction names accepted in an input
// format. Config validation checks rule names against this map at load time.
var extractions = map[string]extractionFunc{
	"extract_tickets":            extractTickets,
	"extract_present_details":    extractPresentDetails,
	"include_additional_adults":  includeAdditionalAdults,
	"include_additional_seniors": includeAdditionalSeniors,
	"include_accompanying":       includeAccompanying,
	"split_infant_presents":      splitInfantPresents,
	"walk_in_price":              walkInPrice,
}

// =============================================================================
// TICKET COUNTS
// =============================================================================

// extractTickets adds one "ticket_<type>" integer column per ticket type seen
// in the price-categories field. Rows without a given type read back as zero
// through the typed getter.
func extractTickets(_ *Context, ds *table.Dataset, column string) {
	for _, row := range ds.Rows() {
		for _, t := range ParseTicketLines(row.Str(column)) {
			col := "ticket_" + t.Type
			ds.AddColumn(col)
			row[col] = row.Int(col) + t.Qty
		}
	}
}

// =============================================================================
// PRESENT DETAILS
// =============================================================================

// extractPresentDetails derives the per-attendee present codes.
//
// The source column lists one attendee per line as "#<n>: Boy" / "#<n>: Girl";
// the matching ages live in the "Child Age *" columns as "#<n>: 7 yrs old".
// Each attendee becomes a code of gender letter plus leading age number:
// "B7", "G3", "BU1" (under one year), "?3" for an unrecognised gender, and
// "GChoose" when no age was supplied for the attendee.
func extractPresentDetails(_ *Context, ds *table.Dataset, column string) {
	ds.AddColumn(column + FormattedSuffix)

	var ageColumns []string
	for _, col := range ds.Columns() {
		if strings.HasPrefix(col, "Child Age") {
			ageColumns = append(ageColumns, col)
		}
	}

	for _, row := range ds.Rows() {
		row[column+FormattedSuffix] = presentCodes(row, column, ageColumns)
	}
}

func presentCodes(row table.Row, column string, ageColumns []string) []string {
	raw := row.Str(column)
	if raw == "" {
		return []string{}
	}

	ages := make(map[string]string)
	for _, col := range ageColumns {
		for num, val := range numberedEntries(row.Str(col)) {
			ages[num] = val
		}
	}

	var codes []string
	for _, line := range strings.Split(raw, "\n") {
		num, gender, ok := splitNumberedEntry(line)
		if !ok {
			continue
		}

		char := "?"
		switch gender {
		case "Boy":
			char = "B"
		case "Girl":
			char = "G"
		}

		// A missing or blank age entry degrades to the unchosen marker.
		fields := strings.Fields(ages[num])
		if len(fields) == 0 {
			codes = append(codes, char+"Choose")
			continue
		}
		// "0 to 1 yrs old" -> "0" -> "U1"; "7 yrs old" -> "7".
		ageNum := fields[0]
		if ageNum == "0" {
			ageNum = "U1"
		}
		codes = append(codes, char+ageNum)
	}

	if codes == nil {
		return []string{}
	}
	return codes
}

// numberedEntries parses a multi-line "#<n>: <value>" field into a map.
func numberedEntries(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		if num, val, ok := splitNumberedEntry(line); ok {
			out[num] = val
		}
	}
	return out
}

func splitNumberedEntry(line string) (num, value string, ok bool) {
	num, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.Trim(strings.TrimSpace(num), "#"), strings.TrimSpace(value), true
}

// =============================================================================
// ACCOMPANYING ADULTS AND SENIORS
// =============================================================================

// includeAdditionalAdults moves companion-only bookings into the accompanying
// count. Products titled "... Additional ..." sell companion tickets rather
// than grotto passes, so their Adult ticket count is added to the accompanying
// column and removed from the pass quantity.
func includeAdditionalAdults(ctx *Context, ds *table.Dataset, column string) {
	includeAdditional(ctx, ds, column, "Adult")
}

func includeAdditionalSeniors(ctx *Context, ds *table.Dataset, column string) {
	includeAdditional(ctx, ds, column, "Senior")
}

func includeAdditional(_ *Context, ds *table.Dataset, column, ticketType string) {
	if !ds.HasColumn("Price categories") {
		return
	}

	for _, row := range ds.Rows() {
		if !strings.Contains(row.Str("Product title"), "Additional") {
			continue
		}

		var qty int
		for _, t := range ParseTicketLines(row.Str("Price categories")) {
			if t.Type == ticketType {
				qty += t.Qty
			}
		}
		if qty == 0 {
			continue
		}

		row[column+FormattedSuffix] = row.Int(column+FormattedSuffix) + qty

		if ds.HasColumn("Quantity" + FormattedSuffix) {
			remaining := row.Int("Quantity"+FormattedSuffix) - qty
			if remaining < 0 {
				remaining = 0
			}
			row["Quantity"+FormattedSuffix] = remaining
		}
	}
}

// includeAccompanying folds the accompanying adult and senior counts into the
// price-categories field as priced ticket lines, so every downstream consumer
// of the field sees the companions.
func includeAccompanying(_ *Context, ds *table.Dataset, column string) {
	fold := func(row table.Row, lines []string, source, ticketType string) []string {
		qty := row.Int(source + FormattedSuffix)
		if qty == 0 {
			return lines
		}
		_, unitPrice := parseAccompanying(row.Str(source))
		return appendTicketLine(lines, ticketType, qty, unitPrice)
	}

	for _, row := range ds.Rows() {
		lines := splitLines(row.Str(column))
		lines = fold(row, lines, "Accompanying Adult", "Adult")
		lines = fold(row, lines, "Accompanying Senior", "Senior")
		row[column] = strings.Join(lines, "\n")
	}
}

// =============================================================================
// INFANT SPLITTING
// =============================================================================

// splitInfantPresents rewrites the Child ticket line using the present codes:
// attendees in the configured infant age brackets become a separate Infant
// line and the Child line is reduced to the remaining attendees. The rewritten
// lines carry no price; breakdowns price the booking as a whole.
func splitInfantPresents(ctx *Context, ds *table.Dataset, column string) {
	if ctx.PresentsColumn == "" || !ds.HasColumn(ctx.PresentsColumn) {
		return
	}

	for _, row := range ds.Rows() {
		child, infant := categorisePresents(row.Strings(ctx.PresentsColumn), ctx.infantCodes)

		lines := splitLines(row.Str(column))
		lines = updateTicketLines(lines, "Child", child)
		if infant != 0 {
			lines = updateTicketLines(lines, "Infant", infant)
		}
		row[column] = strings.Join(lines, "\n")
	}
}

// =============================================================================
// WALK-IN PRICING
// =============================================================================

// walkInPrice derives the effective paid price for every booking.
//
// A booking with a non-zero raw price keeps it. A zero price marks a walk-in
// order: the price is reconstructed from the event price table by valuing each
// ticket line at the event's unit price, charging folded-in companions at
// their own accompanying rate instead, and subtracting the seasonal per-infant
// discount for the event's calendar month. When no table entry matches or a
// ticket type has no configured price, the zero price stands and only the
// walk-in flag survives for display.
func walkInPrice(ctx *Context, ds *table.Dataset, column string) {
	ds.AddColumn(WalkInPriceColumn)
	ds.AddColumn(WalkInFlagColumn)

	for _, row := range ds.Rows() {
		paid := row.Decimal("Product price" + FormattedSuffix)
		if !paid.IsZero() {
			row[WalkInPriceColumn] = paid
			row[WalkInFlagColumn] = false
			continue
		}

		row[WalkInFlagColumn] = true
		price, ok := reconstructPrice(ctx, row, column)
		if !ok {
			row[WalkInPriceColumn] = decimal.Zero
			continue
		}
		row[WalkInPriceColumn] = price
	}
}

func reconstructPrice(ctx *Context, row table.Row, column string) (decimal.Decimal, bool) {
	entry, ok := ctx.priceEntry(row)
	if !ok {
		return decimal.Zero, false
	}

	accompanying := map[string]int{
		"Adult":  row.Int("Accompanying Adult" + FormattedSuffix),
		"Senior": row.Int("Accompanying Senior" + FormattedSuffix),
	}

	total := decimal.Zero
	for _, t := range ParseTicketLines(row.Str(column)) {
		qty := t.Qty

		// Companions were folded into these lines earlier; they are charged
		// at the accompanying rate, not the event rate.
		if extra := accompanying[t.Type]; extra > 0 {
			charge := extra
			if charge > qty {
				charge = qty
			}
			qty -= charge
			_, unitPrice := parseAccompanying(row.Str("Accompanying " + t.Type))
			total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(charge))))
		}

		if qty == 0 {
			continue
		}
		unit, ok := entry.EventPrices[t.Type]
		if !ok {
			return decimal.Zero, false
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(qty))))

		if t.Type == "Infant" {
			if start, ok := row.Time(StartDateColumn + FormattedSuffix); ok {
				if discount, ok := entry.InfantDiscount[start.Month().String()]; ok {
					total = total.Sub(discount.Mul(decimal.NewFromInt(int64(qty))))
				}
			}
		}
	}

	if total.IsNegative() {
		total = decimal.Zero
	}
	return total, true
}

// TicketValues returns the configured event unit prices applying to a
// booking, or nil when no price table entry matches.
func (ctx *Context) TicketValues(row table.Row) map[string]decimal.Decimal {
	entry, ok := ctx.priceEntry(row)
	if !ok {
		return nil
	}
	return entry.EventPrices
}

// priceEntry resolves the event price table entry for a booking: first the
// exact "<dd/mm/yy> <product>" key, then any entry whose match string appears
// in the product title. Entries are scanned in sorted key order so a multiple
// match resolves the same way on every run.
func (ctx *Context) priceEntry(row table.Row) (config.PriceEntry, bool) {
	product := row.Str("Product title")

	if start, ok := row.Time(StartDateColumn + FormattedSuffix); ok {
		if entry, ok := ctx.Prices[start.Format("02/01/06")+" "+product]; ok {
			return entry, true
		}
	}

	keys := make([]string, 0, len(ctx.Prices))
	for k := range ctx.Prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lowered := strings.ToLower(product)
	for _, k := range keys {
		entry := ctx.Prices[k]
		if entry.Match != "" && strings.Contains(lowered, strings.ToLower(entry.Match)) {
			return entry, true
		}
	}

	// A "default" entry applies when nothing more specific does.
	if entry, ok := ctx.Prices["default"]; ok {
		return entry, true
	}

	return config.PriceEntry{}, false
}

// splitLines splits a field into lines, treating an empty field as no lines
// rather than one empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
