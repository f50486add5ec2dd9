// =============================================================================
// Ticket Sheets - Display Formatters
// =============================================================================
//
// Formatters turn a single typed cell into the display string for one table
// cell. They are the last step before the presentation layer, so markup-
// producing formatters escape the raw value themselves; templates render their
// output verbatim.
//
// =============================================================================

package bookings

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// formatterFunc renders one cell for display.
type formatterFunc func(value any) string

// formatters is the static registry of formatter names accepted in a table
// layout. Config validation checks column specs against this map at load time.
var formatters = map[string]formatterFunc{
	"title_case":           fmtTitleCase,
	"comma_sep":            fmtCommaSep,
	"train_time":           fmtTrainTime,
	"train_date":           fmtTrainDate,
	"simple_date":          fmtSimpleDate,
	"format_price":         fmtPrice,
	"insert_html_newlines": fmtInsertHTMLNewlines,
}

// applyFormatter renders a cell with the named formatter, or with the plain
// fallback when no formatter is configured. The caller guarantees a non-empty
// name is registered.
func applyFormatter(name string, value any) string {
	if name == "" {
		return fmtPlain(value)
	}
	return formatters[name](value)
}

// fmtPlain renders an unformatted cell. Cell text is treated as markup by the
// presentation layer, so data-derived strings are escaped here.
func fmtPlain(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return html.EscapeString(v)
	case decimal.Decimal:
		return v.String()
	case []string:
		return html.EscapeString(strings.Join(v, ", "))
	default:
		return fmt.Sprint(v)
	}
}

// fmtTitleCase upper-cases the first letter of each word and lower-cases the
// rest, so shouty or all-lower customer names print consistently.
func fmtTitleCase(value any) string {
	raw, _ := value.(string)
	var b strings.Builder
	prevLetter := false
	for _, r := range raw {
		switch {
		case !unicode.IsLetter(r):
			b.WriteRune(r)
			prevLetter = false
		case prevLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		}
	}
	return html.EscapeString(b.String())
}

func fmtCommaSep(value any) string {
	list, _ := value.([]string)
	return html.EscapeString(strings.Join(list, ", "))
}

func fmtTrainTime(value any) string {
	t, ok := value.(time.Time)
	if !ok {
		return ""
	}
	return t.Format("15:04")
}

func fmtTrainDate(value any) string {
	t, ok := value.(time.Time)
	if !ok {
		return ""
	}
	return t.Format("02/01")
}

func fmtSimpleDate(value any) string {
	t, ok := value.(time.Time)
	if !ok {
		return ""
	}
	return t.Format("Mon 02/01")
}

func fmtPrice(value any) string {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return "0.00"
	}
	return d.StringFixed(2)
}

// fmtInsertHTMLNewlines escapes the cell and converts its newlines to <br>,
// so a multi-line field renders stacked inside one table cell.
func fmtInsertHTMLNewlines(value any) string {
	return strings.ReplaceAll(fmtPlain(value), "\n", "<br>")
}

// HeadingDate renders a date group heading, e.g. "SATURDAY NOVEMBER 30TH".
func HeadingDate(t time.Time) string {
	day := t.Day()
	suffix := "th"
	if day < 10 || day > 13 {
		switch day % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strings.ToUpper(fmt.Sprintf("%s %s %d%s", t.Weekday(), t.Month(), day, suffix))
}
