// =============================================================================
// Ticket Sheets - Column Conversions
// =============================================================================
//
// A conversion turns one raw export cell into a typed value, written back to
// the row under "<column>_formatted". The raw cell is never modified, so later
// extractions can still read the original text.
//
// Conversions are row-level and defensive: an unreadable cell degrades to the
// type's zero value rather than failing the batch. The one exception is the
// start date, which the pipeline parses up front through ParseBookingDate and
// treats as fatal, because every grouping and sort downstream hangs off it.
//
// =============================================================================

package bookings

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// FormattedSuffix is appended to a column name to form its derived column.
const FormattedSuffix = "_formatted"

// conversionFunc derives a typed value from one raw cell.
type conversionFunc func(value string) any

// conversions is the static registry of conversion names accepted in an input
// format. Config validation checks rule names against this map at load time.
var conversions = map[string]conversionFunc{
	"parse_int":          convParseInt,
	"parse_date":         convParseDate,
	"tidy_price":         convTidyPrice,
	"simplify_product":   convSimplifyProduct,
	"parse_accompanying": convParseAccompanying,
}

// applyConversion runs the named conversion over a row, writing the derived
// cell. The caller guarantees the name is registered.
func applyConversion(row table.Row, column, name string) {
	row[column+FormattedSuffix] = conversions[name](row.Str(column))
}

func convParseInt(value string) any {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func convTidyPrice(value string) any {
	raw := strings.TrimSpace(stripCurrency(value))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// convSimplifyProduct shortens a product title for the printed sheet:
// "Weekend" becomes "w/e" and the redundant ticket suffixes are dropped.
func convSimplifyProduct(value string) any {
	value = strings.ReplaceAll(value, "Weekend", "w/e")
	for _, noise := range []string{"- Day Ticket", "Tickets", "Ticket"} {
		value = strings.ReplaceAll(value, noise, "")
	}
	return strings.TrimSpace(value)
}

// convParseAccompanying reduces an accompanying field ("2£10.00") to its
// count; the unit price is re-read from the raw cell by the folding step.
func convParseAccompanying(value string) any {
	qty, _ := parseAccompanying(value)
	return qty
}

func convParseDate(value string) any {
	t, err := ParseBookingDate(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// DATE PARSING
// =============================================================================

// bookingDateLayout matches the export's long date form once ordinal suffixes
// and commas are stripped: "Monday November 30 2026 11:30 AM".
const bookingDateLayout = "Monday January 2 2006 3:04 PM"

var ordinalSuffix = regexp.MustCompile(`([0-9]+)(st|nd|rd|th)`)

// ParseBookingDate parses the export's long-form start date.
func ParseBookingDate(value string) (time.Time, error) {
	cleaned := ordinalSuffix.ReplaceAllString(value, "$1")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return time.Parse(bookingDateLayout, cleaned)
}
