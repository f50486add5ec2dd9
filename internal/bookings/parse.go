// =============================================================================
// Ticket Sheets - Booking Pipeline
// =============================================================================
//
// This module orchestrates one pipeline run over a parsed booking table:
//
//   PrepareDates -> ApplyFilters -> ParseBookings -> FormatForTable
//
// A run operates on its own dataset clone with an immutable Context built
// from one configuration snapshot, so concurrent runs (one per request) never
// observe each other's derived columns or settings changes.
//
// =============================================================================

package bookings

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// StartDateColumn is the raw export column holding the event date and train
// time. Its parsed form under "_formatted" drives every grouping and sort.
const StartDateColumn = "Start date"

// Context carries the configuration one pipeline run operates under.
type Context struct {
	Config *config.DataConfig
	Prices map[string]config.PriceEntry

	// PresentsColumn mirrors Config for convenience; empty outside the
	// seasonal mode.
	PresentsColumn string

	infantCodes map[string]struct{}
}

// NewContext builds the run context from a data configuration and a settings
// snapshot.
func NewContext(dc *config.DataConfig, settings config.Settings) *Context {
	ctx := &Context{
		Config:         dc,
		Prices:         settings.TicketPrices,
		PresentsColumn: dc.PresentsColumn,
		infantCodes:    make(map[string]struct{}, 2*len(dc.InfantAges)),
	}
	for _, age := range dc.InfantAges {
		ctx.infantCodes["B"+age] = struct{}{}
		ctx.infantCodes["G"+age] = struct{}{}
	}
	return ctx
}

// InfantPresent reports whether a present code falls in the configured infant
// age brackets.
func (ctx *Context) InfantPresent(code string) bool {
	_, ok := ctx.infantCodes[code]
	return ok
}

// =============================================================================
// DATE PREPARATION AND FILTERS
// =============================================================================

// PrepareDates parses the start-date column up front. An unparseable start
// date is fatal: every grouping, sort and tally downstream depends on it.
func PrepareDates(ds *table.Dataset) error {
	ds.AddColumn(StartDateColumn + FormattedSuffix)
	for _, row := range ds.Rows() {
		raw := row.Str(StartDateColumn)
		t, err := ParseBookingDate(raw)
		if err != nil {
			return &DataError{Column: StartDateColumn, Value: raw, Err: err}
		}
		row[StartDateColumn+FormattedSuffix] = t
	}
	return nil
}

// ApplyFilters narrows the dataset per the settings snapshot: an optional
// inclusive start-date cutoff and an optional case-insensitive substring
// filter on the product title.
func ApplyFilters(ds *table.Dataset, settings config.Settings) (*table.Dataset, error) {
	if settings.HideOldOrders {
		cutoff, err := time.Parse("2006-01-02", settings.OldOrderDate)
		if err != nil {
			return nil, fmt.Errorf("invalid old order date %q: %w", settings.OldOrderDate, err)
		}
		ds = ds.Filter(func(row table.Row) bool {
			start, ok := row.Time(StartDateColumn + FormattedSuffix)
			return ok && !start.Before(cutoff)
		})
	}

	if settings.ProductFilter != "" {
		ds = ds.Filter(func(row table.Row) bool {
			return containsFold(row.Str("Product title"), settings.ProductFilter)
		})
	}

	return ds, nil
}

// =============================================================================
// DERIVATION
// =============================================================================

// ParseBookings applies the configured derivation rules to the dataset in
// declared order. Rules naming a column the export does not carry are
// skipped, so one configuration serves exports with optional columns.
func ParseBookings(ctx *Context, ds *table.Dataset) error {
	if ds.Len() == 0 {
		return ErrEmptyTable
	}

	for _, rule := range ctx.Config.InputFormat {
		if !ds.HasColumn(rule.Column) {
			continue
		}

		if rule.Conversion != "" {
			if _, ok := conversions[rule.Conversion]; !ok {
				return &ConfigError{Kind: "conversion", Name: rule.Conversion}
			}
			ds.AddColumn(rule.Column + FormattedSuffix)
			for _, row := range ds.Rows() {
				applyConversion(row, rule.Column, rule.Conversion)
			}
		}

		for _, name := range rule.Extractions {
			fn, ok := extractions[name]
			if !ok {
				return &ConfigError{Kind: "extraction", Name: name}
			}
			fn(ctx, ds, rule.Column)
		}
	}

	return nil
}

// Dates returns the distinct event dates in the dataset, ascending, rendered
// as "dd/mm".
func Dates(ds *table.Dataset) []string {
	var days []time.Time
	seen := make(map[time.Time]struct{})
	for _, row := range ds.Rows() {
		start, ok := row.Time(StartDateColumn + FormattedSuffix)
		if !ok {
			continue
		}
		day := dayOf(start)
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sortTimes(days)
	out := make([]string, len(days))
	for i, day := range days {
		out[i] = day.Format("02/01")
	}
	return out
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// RowKind discriminates the row types of a display table.
type RowKind string

const (
	RowDate    RowKind = "date"    // date group heading
	RowBooking RowKind = "booking" // one booking
	RowTotals  RowKind = "totals"  // day totals
	RowDivider RowKind = "divider" // train separator rule
)

// TableRow is one display-ready row handed to the presentation layer.
type TableRow struct {
	Kind    RowKind
	Heading string // date rows only
	Cells   []Cell // booking and totals rows
}

// FormatForTable sorts, groups and renders the dataset into display rows.
//
// Sorts apply sequentially with a stable sort, so the last listed rule is the
// primary key; rules naming absent columns are skipped. With date grouping
// enabled each calendar day opens with a heading row, trains are separated by
// divider rows, and dailyTotals closes each day with a totals row.
func FormatForTable(ctx *Context, ds *table.Dataset, spec config.TableSpec, dailyTotals bool) ([]TableRow, error) {
	if err := validateTableSpec(&spec); err != nil {
		return nil, err
	}

	applySorts(ds, spec.Sorts)

	if !spec.GroupByDate {
		rows := make([]TableRow, 0, ds.Len())
		for _, row := range ds.Rows() {
			rows = append(rows, TableRow{Kind: RowBooking, Cells: formatRow(row, spec)})
		}
		return rows, nil
	}

	var out []TableRow
	for _, day := range groupRows(ds.Rows(), dayOf) {
		heading, _ := day[0].Time(StartDateColumn + FormattedSuffix)
		out = append(out, TableRow{Kind: RowDate, Heading: HeadingDate(heading)})

		for _, train := range groupRows(day, func(t time.Time) time.Time { return t }) {
			for _, row := range train {
				out = append(out, TableRow{Kind: RowBooking, Cells: formatRow(row, spec)})
			}
			if spec.DemarkTrain {
				out = append(out, TableRow{Kind: RowDivider})
			}
		}

		if dailyTotals {
			// No divider directly above the day totals.
			if out[len(out)-1].Kind == RowDivider {
				out = out[:len(out)-1]
			}
			out = append(out, TableRow{Kind: RowTotals, Cells: formatTotalRow(ctx, day, spec)})
			out = append(out, TableRow{Kind: RowDivider})
		}
	}

	return out, nil
}

func applySorts(ds *table.Dataset, sorts []config.SortRule) {
	for _, rule := range sorts {
		if !ds.HasColumn(rule.Column) {
			continue
		}
		col, reverse := rule.Column, rule.Reverse
		ds.SortStable(func(a, b table.Row) bool {
			c := table.CompareCells(a[col], b[col])
			if reverse {
				return c > 0
			}
			return c < 0
		})
	}
}

// groupRows partitions rows by a function of their start date, preserving row
// order within a group and ordering groups by key.
func groupRows(rows []table.Row, keyFn func(time.Time) time.Time) [][]table.Row {
	groups := make(map[time.Time][]table.Row)
	var keys []time.Time
	for _, row := range rows {
		start, _ := row.Time(StartDateColumn + FormattedSuffix)
		key := keyFn(start)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], row)
	}

	sortTimes(keys)
	out := make([][]table.Row, len(keys))
	for i, key := range keys {
		out[i] = groups[key]
	}
	return out
}

func formatRow(row table.Row, spec config.TableSpec) []Cell {
	cells := make([]Cell, len(spec.Columns))
	for i, col := range spec.Columns {
		cell := Cell{Align: col.Align, Colspan: 1}
		if col.Input != "" {
			cell.Text = applyFormatter(col.Formatter, row[col.Input])
		}
		cells[i] = cell
	}
	return cells
}

func formatTotalRow(ctx *Context, rows []table.Row, spec config.TableSpec) []Cell {
	var cells []Cell
	skip := 0
	for _, col := range spec.Columns {
		// Columns swallowed by a preceding multi-column cell.
		if skip > 0 {
			skip--
			continue
		}
		if col.Input == "" || col.TotalMethod == "" {
			cells = append(cells, Cell{Align: col.Align, Colspan: 1})
			continue
		}
		cell := totalMethods[col.TotalMethod](ctx, rows, col.Input)
		cell.Align = col.Align
		cells = append(cells, cell)
		skip = cell.Colspan - 1
	}
	return cells
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sortTimes(ts []time.Time) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
}

// containsFold reports whether substr occurs in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
