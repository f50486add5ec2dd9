// =============================================================================
// Ticket Sheets - Ticket Line Parser
// =============================================================================
//
// The export's "Price categories" field packs the ticket make-up of a booking
// into a newline-delimited mini-grammar, one ticket type per line:
//
//     Adult: 2 (£9.00)
//     Child: 3 (£7.00)
//
// The currency glyph appears as "£", as the HTML entity "&pound;", or as the
// mis-encoded byte pair "Â£" depending on which export produced the file.
// Lines rewritten by earlier derivation steps may omit the price ("Child: 2").
// Parsing is defensive throughout: a malformed line degrades to a zero-value
// record and never aborts the rest of the field.
//
// =============================================================================

package bookings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Ticket is one parsed line of the price-categories field.
type Ticket struct {
	Type  string
	Qty   int
	Price decimal.Decimal
}

// currencyGlyphs lists the forms the pound sign takes in real exports.
var currencyGlyphs = []string{"&pound;", "Â£", "£"}

func stripCurrency(s string) string {
	for _, glyph := range currencyGlyphs {
		s = strings.ReplaceAll(s, glyph, "")
	}
	return s
}

// ParseTicketLines parses a price-categories field into ticket records.
//
// Each non-empty line must carry "<name>:"; the quantity is the first
// whitespace token after the colon and the unit price is read from the
// parenthesised token when present. Lines without a colon or without a name
// before it are dropped; a missing quantity yields a zero-quantity record; a
// missing price yields a zero price.
func ParseTicketLines(text string) []Ticket {
	var out []Ticket

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, rest, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		t := Ticket{Type: strings.TrimSpace(name), Price: decimal.Zero}

		fields := strings.Fields(rest)
		if len(fields) > 0 {
			if qty, err := strconv.Atoi(fields[0]); err == nil {
				t.Qty = qty
			}
		}
		if len(fields) > 1 {
			raw := strings.Trim(stripCurrency(fields[1]), "()")
			if price, err := decimal.NewFromString(raw); err == nil {
				t.Price = price
			}
		}

		out = append(out, t)
	}

	return out
}

// ParseTickets parses a price-categories field, optionally synthesizing the
// "Family Child" type for multi-child lines with no per-child age breakdown.
// The breakdown views value family groups at a distinct rate, so they ask for
// synthesis; ticket-count extraction keeps the raw names.
func ParseTickets(text string, familyChild bool) []Ticket {
	tickets := ParseTicketLines(text)
	if !familyChild {
		return tickets
	}
	for i, t := range tickets {
		if t.Type == "Child" && t.Qty > 1 {
			tickets[i].Type = "Family Child"
		}
	}
	return tickets
}

// updateTicketLines sets the quantity of the named ticket line, appending a
// bare "<name>: <qty>" line when no such line exists. Quantities are written
// as absolute values, so re-running a split over an already-split field is a
// no-op rather than a double subtraction.
func updateTicketLines(lines []string, name string, qty int) []string {
	prefix := name + ":"
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			lines[i] = fmt.Sprintf("%s: %d", name, qty)
			return lines
		}
	}
	return append(lines, fmt.Sprintf("%s: %d", name, qty))
}

// appendTicketLine folds a synthetic priced ticket line into the field,
// adding to an existing line's quantity when one is already present.
func appendTicketLine(lines []string, name string, qty int, price decimal.Decimal) []string {
	prefix := name + ":"
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			existing := ParseTicketLines(line)
			if len(existing) == 1 {
				merged := existing[0]
				if merged.Price.IsZero() {
					lines[i] = fmt.Sprintf("%s: %d", name, merged.Qty+qty)
				} else {
					lines[i] = fmt.Sprintf("%s: %d (£%s)", name, merged.Qty+qty, merged.Price.StringFixed(2))
				}
				return lines
			}
		}
	}
	return append(lines, fmt.Sprintf("%s: %d (£%s)", name, qty, price.StringFixed(2)))
}

// parseAccompanying reads an accompanying adult/senior field of the form
// "<qty>£<unit price>". A blank or unreadable field counts as zero.
func parseAccompanying(value string) (int, decimal.Decimal) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, decimal.Zero
	}

	for _, glyph := range currencyGlyphs {
		if qtyStr, priceStr, ok := strings.Cut(value, glyph); ok {
			qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
			if err != nil {
				return 0, decimal.Zero
			}
			price, err := decimal.NewFromString(strings.TrimSpace(priceStr))
			if err != nil {
				price = decimal.Zero
			}
			return qty, price
		}
	}

	// No glyph: treat the whole field as a count.
	qty, err := strconv.Atoi(value)
	if err != nil {
		return 0, decimal.Zero
	}
	return qty, decimal.Zero
}

// categorisePresents splits a booking's present codes into child and infant
// counts. The infant bracket is configured per event mode.
func categorisePresents(presents []string, infantCodes map[string]struct{}) (child, infant int) {
	for _, code := range presents {
		if _, ok := infantCodes[code]; ok {
			infant++
		} else {
			child++
		}
	}
	return child, infant
}

// =============================================================================
// DISPLAY ORDERING
// =============================================================================

// ticketPriority fixes the display order of the common ticket types; any
// other types follow in lexical order.
var ticketPriority = map[string]int{
	"Adult":        0,
	"Senior":       1,
	"Child":        2,
	"Family Child": 3,
	"Infant":       4,
}

// OrderTicketNames sorts ticket type names into the fixed display order.
func OrderTicketNames(names []string) []string {
	sort.SliceStable(names, func(i, j int) bool {
		pi, iok := ticketPriority[names[i]]
		pj, jok := ticketPriority[names[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		case jok:
			return false
		}
		return names[i] < names[j]
	})
	return names
}
