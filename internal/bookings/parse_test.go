package bookings

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

var santaColumns = []string{
	"Order ID", "Booking ID", "Product title", "Quantity",
	"Accompanying Adult", "Accompanying Senior", "Product price",
	"Present Type", "Child Age", "Price categories", "Start date",
	"Customer first name", "Customer last name", "Special Needs",
}

func santaDataset(rows ...map[string]string) *table.Dataset {
	ds := table.New(santaColumns)
	for _, cells := range rows {
		row := make(table.Row, len(santaColumns))
		for _, col := range santaColumns {
			row[col] = cells[col]
		}
		ds.Append(row)
	}
	return ds
}

func runSanta(t *testing.T, settings config.Settings, ds *table.Dataset) *Context {
	t.Helper()
	if err := PrepareDates(ds); err != nil {
		t.Fatalf("PrepareDates: %v", err)
	}
	ctx := NewContext(config.Builtin()["santa"], settings)
	if err := ParseBookings(ctx, ds); err != nil {
		t.Fatalf("ParseBookings: %v", err)
	}
	return ctx
}

func TestSeasonalPipeline(t *testing.T) {
	ds := santaDataset(map[string]string{
		"Order ID":           "101",
		"Booking ID":         "7",
		"Product title":      "Santa Special - Day Ticket",
		"Quantity":           "5",
		"Accompanying Adult": "1£10.00",
		"Product price":      "£46.00",
		"Present Type":       "#1: Boy\n#2: Girl\n#3: Girl",
		"Child Age":          "#1: 0 to 1 yrs old\n#2: 4 yrs old\n#3: 7 yrs old",
		"Price categories":   "Adult: 2 (£9.00)\nChild: 3 (£7.00)",
		"Start date":         "Saturday December 6th 2025 11:30 AM",
	})
	runSanta(t, config.Settings{}, ds)
	row := ds.Rows()[0]

	if got := row.Int("Accompanying Adult_formatted"); got != 1 {
		t.Fatalf("accompanying adults: expected 1, got %d", got)
	}

	wantCodes := []string{"BU1", "G4", "G7"}
	if got := row.Strings("Present Type_formatted"); !reflect.DeepEqual(got, wantCodes) {
		t.Fatalf("present codes: expected %v, got %v", wantCodes, got)
	}

	// Accompanying adult folded into the existing line (keeping its price),
	// one under-one attendee split off the child line.
	wantCategories := "Adult: 3 (£9.00)\nChild: 2\nInfant: 1"
	if got := row.Str("Price categories"); got != wantCategories {
		t.Fatalf("price categories:\nexpected %q\ngot      %q", wantCategories, got)
	}

	for col, want := range map[string]int{
		"ticket_Adult":  3,
		"ticket_Child":  2,
		"ticket_Infant": 1,
	} {
		if got := row.Int(col); got != want {
			t.Fatalf("%s: expected %d, got %d", col, want, got)
		}
	}

	// A paid booking keeps its price and is not flagged.
	if got := row.Decimal(WalkInPriceColumn); !got.Equal(decimal.RequireFromString("46")) {
		t.Fatalf("paid price: expected 46, got %s", got)
	}
	if row.Bool(WalkInFlagColumn) {
		t.Fatal("paid booking must not carry the walk-in flag")
	}
}

func TestWalkInReconstruction(t *testing.T) {
	settings := config.Settings{
		TicketPrices: map[string]config.PriceEntry{
			"santa 2025": {
				Match: "Santa",
				EventPrices: map[string]decimal.Decimal{
					"Adult":  decimal.RequireFromString("9"),
					"Senior": decimal.RequireFromString("8"),
					"Child":  decimal.RequireFromString("7"),
					"Infant": decimal.RequireFromString("5"),
				},
				InfantDiscount: map[string]decimal.Decimal{
					"December": decimal.RequireFromString("5"),
				},
			},
		},
	}

	ds := santaDataset(map[string]string{
		"Order ID":           "102",
		"Product title":      "Santa Special - Day Ticket",
		"Quantity":           "4",
		"Accompanying Adult": "1£10.00",
		"Product price":      "&pound;0.00",
		"Present Type":       "#1: Boy\n#2: Girl",
		"Child Age":          "#1: 0 to 1 yrs old\n#2: 4 yrs old",
		"Price categories":   "Adult: 2 (£0.00)\nChild: 2 (£0.00)",
		"Start date":         "Saturday December 6th 2025 11:30 AM",
	})
	runSanta(t, settings, ds)
	row := ds.Rows()[0]

	if !row.Bool(WalkInFlagColumn) {
		t.Fatal("zero-priced booking must carry the walk-in flag")
	}

	// 1 accompanying adult at £10, 2 adults at £9, 1 child at £7,
	// 1 infant at £5 less the £5 December discount.
	want := decimal.RequireFromString("35")
	if got := row.Decimal(WalkInPriceColumn); !got.Equal(want) {
		t.Fatalf("reconstructed price: expected %s, got %s", want, got)
	}
}

func TestNamelessCategoryLine(t *testing.T) {
	ds := santaDataset(map[string]string{
		"Order ID":         "105",
		"Product title":    "Santa Special",
		"Product price":    "£9.00",
		"Price categories": ": 2 (£9.00)\nAdult: 1 (£9.00)",
		"Start date":       "Saturday December 6th 2025 11:30 AM",
	})
	runSanta(t, config.Settings{}, ds)

	// The malformed line must not leave a nameless ticket column behind.
	for _, col := range ds.TicketColumns() {
		if strings.TrimPrefix(col, "ticket_") == "" {
			t.Fatalf("nameless ticket column derived: %q", col)
		}
	}
	if got := ds.Rows()[0].Int("ticket_Adult"); got != 1 {
		t.Fatalf("expected 1 adult ticket, got %d", got)
	}
}

func TestWalkInSingleAdult(t *testing.T) {
	settings := config.Settings{
		TicketPrices: map[string]config.PriceEntry{
			"06/12/25 Santa Special": {
				EventPrices: map[string]decimal.Decimal{"Adult": decimal.RequireFromString("9")},
			},
		},
	}
	ds := santaDataset(map[string]string{
		"Order ID":         "110",
		"Product title":    "Santa Special",
		"Product price":    "&pound;0.00",
		"Price categories": "Adult: 1 (£0.00)",
		"Start date":       "Saturday December 6th 2025 11:30 AM",
	})
	runSanta(t, settings, ds)
	row := ds.Rows()[0]

	if !row.Bool(WalkInFlagColumn) {
		t.Fatal("expected the walk-in flag")
	}
	if got := row.Decimal(WalkInPriceColumn); !got.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("expected the exact-key entry to price the adult at 9, got %s", got)
	}
}

func TestWalkInWithoutPriceEntry(t *testing.T) {
	ds := santaDataset(map[string]string{
		"Order ID":         "103",
		"Product title":    "Santa Special",
		"Product price":    "£0.00",
		"Price categories": "Adult: 1 (£0.00)",
		"Start date":       "Saturday December 6th 2025 11:30 AM",
	})
	runSanta(t, config.Settings{}, ds)
	row := ds.Rows()[0]

	if !row.Bool(WalkInFlagColumn) {
		t.Fatal("expected the walk-in flag to survive")
	}
	if got := row.Decimal(WalkInPriceColumn); !got.IsZero() {
		t.Fatalf("unpriceable walk-in must stay at zero, got %s", got)
	}
}

func TestTicketCountsWithinQuantity(t *testing.T) {
	ds := santaDataset(
		map[string]string{
			"Order ID":           "106",
			"Product title":      "Santa Special",
			"Quantity":           "5",
			"Accompanying Adult": "1£10.00",
			"Product price":      "£46.00",
			"Present Type":       "#1: Boy\n#2: Girl\n#3: Girl",
			"Child Age":          "#1: 0 to 1 yrs old\n#2: 4 yrs old\n#3: 7 yrs old",
			"Price categories":   "Adult: 2 (£9.00)\nChild: 3 (£7.00)",
			"Start date":         "Saturday December 6th 2025 11:30 AM",
		},
		map[string]string{
			"Order ID":         "107",
			"Product title":    "Santa Special",
			"Quantity":         "2",
			"Product price":    "£18.00",
			"Price categories": "Adult: 2 (£9.00)",
			"Start date":       "Saturday December 6th 2025 2:00 PM",
		},
	)
	runSanta(t, config.Settings{}, ds)

	// Derived ticket counts never exceed the booked quantity once the
	// folded-in companions are put back out of the count.
	for _, row := range ds.Rows() {
		sum := 0
		for _, col := range ds.TicketColumns() {
			sum += row.Int(col)
		}
		sum -= row.Int("Accompanying Adult" + FormattedSuffix)
		sum -= row.Int("Accompanying Senior" + FormattedSuffix)

		if qty := row.Int("Quantity" + FormattedSuffix); sum > qty {
			t.Fatalf("order %s: %d tickets against quantity %d",
				row.Str("Order ID"), sum, qty)
		}
	}
}

func TestCompanionOnlyProduct(t *testing.T) {
	ds := santaDataset(map[string]string{
		"Order ID":         "104",
		"Product title":    "Santa Special - Additional Adult",
		"Quantity":         "2",
		"Product price":    "£20.00",
		"Price categories": "Adult: 2 (£10.00)",
		"Start date":       "Saturday December 6th 2025 11:30 AM",
	})
	runSanta(t, config.Settings{}, ds)
	row := ds.Rows()[0]

	if got := row.Int("Accompanying Adult_formatted"); got != 2 {
		t.Fatalf("expected 2 accompanying adults, got %d", got)
	}
	if got := row.Int("Quantity_formatted"); got != 0 {
		t.Fatalf("companion tickets must leave no grotto passes, got %d", got)
	}
}

func TestApplyFilters(t *testing.T) {
	ds := santaDataset(
		map[string]string{"Order ID": "1", "Product title": "Santa Special", "Start date": "Saturday November 30th 2025 11:30 AM"},
		map[string]string{"Order ID": "2", "Product title": "Santa Special", "Start date": "Monday December 1st 2025 11:30 AM"},
		map[string]string{"Order ID": "3", "Product title": "Steam Gala", "Start date": "Saturday December 6th 2025 11:30 AM"},
	)
	if err := PrepareDates(ds); err != nil {
		t.Fatalf("PrepareDates: %v", err)
	}

	// The cutoff is inclusive.
	got, err := ApplyFilters(ds, config.Settings{HideOldOrders: true, OldOrderDate: "2025-12-01"})
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	if got.Len() != 2 || got.Rows()[0].Str("Order ID") != "2" {
		t.Fatalf("cutoff filter: expected orders 2 and 3, got %d rows", got.Len())
	}

	// The product filter is a case-insensitive substring match.
	got, err = ApplyFilters(ds, config.Settings{ProductFilter: "santa"})
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	if got.Len() != 2 || got.Rows()[1].Str("Order ID") != "2" {
		t.Fatalf("product filter: expected orders 1 and 2, got %d rows", got.Len())
	}

	if _, err := ApplyFilters(ds, config.Settings{HideOldOrders: true, OldOrderDate: "yesterday"}); err == nil {
		t.Fatal("expected error for unparseable cutoff date")
	}
}

func TestPrepareDatesRejectsBadDate(t *testing.T) {
	ds := santaDataset(map[string]string{"Start date": "sometime in December"})
	err := PrepareDates(ds)
	var de *DataError
	if !errors.As(err, &de) || de.Column != StartDateColumn {
		t.Fatalf("expected DataError on %s, got %v", StartDateColumn, err)
	}
}

func TestParseBookingsEmptyTable(t *testing.T) {
	ctx := NewContext(config.Builtin()["santa"], config.Settings{})
	if err := ParseBookings(ctx, table.New(santaColumns)); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestParseBookingsUnknownRule(t *testing.T) {
	ds := santaDataset(map[string]string{"Order ID": "1"})
	dc := &config.DataConfig{
		InputFormat: []config.FieldRule{{Column: "Order ID", Conversion: "bogus"}},
	}
	err := ParseBookings(NewContext(dc, config.Settings{}), ds)
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Kind != "conversion" || ce.Name != "bogus" {
		t.Fatalf("expected conversion ConfigError, got %v", err)
	}
}

func TestParseBookingsSkipsAbsentColumns(t *testing.T) {
	ds := table.New([]string{"Order ID"})
	ds.Append(table.Row{"Order ID": "5"})
	// The santa configuration names many columns this export lacks.
	if err := ParseBookings(NewContext(config.Builtin()["santa"], config.Settings{}), ds); err != nil {
		t.Fatalf("rules for absent columns must be skipped, got %v", err)
	}
	if got := ds.Rows()[0].Int("Order ID_formatted"); got != 5 {
		t.Fatalf("present column must still convert, got %d", got)
	}
}

func TestDates(t *testing.T) {
	ds := santaDataset(
		map[string]string{"Start date": "Saturday December 6th 2025 11:30 AM"},
		map[string]string{"Start date": "Sunday November 30th 2025 1:00 PM"},
		map[string]string{"Start date": "Saturday December 6th 2025 2:30 PM"},
	)
	if err := PrepareDates(ds); err != nil {
		t.Fatalf("PrepareDates: %v", err)
	}
	want := []string{"30/11", "06/12"}
	if got := Dates(ds); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApplySortsLastRulePrimary(t *testing.T) {
	ds := table.New([]string{"First", "Last"})
	for _, cells := range [][2]string{
		{"zoe", "Archer"},
		{"Amy", "Baker"},
		{"amy", "Archer"},
	} {
		ds.Append(table.Row{"First": cells[0], "Last": cells[1]})
	}

	applySorts(ds, []config.SortRule{
		{Column: "Last"},
		{Column: "Missing column"}, // skipped
		{Column: "First"},
	})

	// First name is the primary key (last rule), last name breaks ties,
	// both case-insensitively.
	var got []string
	for _, row := range ds.Rows() {
		got = append(got, row.Str("First")+" "+row.Str("Last"))
	}
	want := []string{"amy Archer", "Amy Baker", "zoe Archer"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Sorting an already sorted dataset must not reorder ties.
	applySorts(ds, []config.SortRule{{Column: "Last"}, {Column: "First"}})
	var again []string
	for _, row := range ds.Rows() {
		again = append(again, row.Str("First")+" "+row.Str("Last"))
	}
	if !reflect.DeepEqual(again, want) {
		t.Fatalf("resort changed order: %v", again)
	}
}

func TestFormatForTableGrouping(t *testing.T) {
	ds := table.New([]string{"Order ID", "Quantity_formatted", StartDateColumn + FormattedSuffix})
	add := func(order string, qty int, start time.Time) {
		ds.Append(table.Row{
			"Order ID":                        order,
			"Quantity_formatted":              qty,
			StartDateColumn + FormattedSuffix: start,
		})
	}
	day1 := time.Date(2025, time.December, 6, 11, 30, 0, 0, time.UTC)
	add("3", 4, day1.Add(90*time.Minute)) // 13:00 train, sorted after the others
	add("1", 2, day1)
	add("2", 3, day1)
	add("4", 5, time.Date(2025, time.December, 7, 11, 30, 0, 0, time.UTC))

	spec := config.TableSpec{
		Columns: []config.ColumnSpec{
			{Title: "Order", Input: "Order ID", TotalMethod: "label"},
			{Title: "Train", Input: StartDateColumn + FormattedSuffix, Formatter: "train_time"},
			{Title: "Qty.", Input: "Quantity_formatted", TotalMethod: "sum"},
		},
		Sorts:       []config.SortRule{{Column: StartDateColumn + FormattedSuffix}},
		GroupByDate: true,
		DemarkTrain: true,
	}

	ctx := NewContext(config.Builtin()["santa"], config.Settings{})
	rows, err := FormatForTable(ctx, ds, spec, true)
	if err != nil {
		t.Fatalf("FormatForTable: %v", err)
	}

	wantKinds := []RowKind{
		RowDate, RowBooking, RowBooking, RowDivider, RowBooking, RowTotals, RowDivider,
		RowDate, RowBooking, RowTotals, RowDivider,
	}
	var gotKinds []RowKind
	for _, r := range rows {
		gotKinds = append(gotKinds, r.Kind)
	}
	if !reflect.DeepEqual(gotKinds, wantKinds) {
		t.Fatalf("row kinds:\nexpected %v\ngot      %v", wantKinds, gotKinds)
	}

	if rows[0].Heading != "SATURDAY DECEMBER 6TH" {
		t.Fatalf("unexpected heading %q", rows[0].Heading)
	}
	if got := rows[1].Cells[0].Text; got != "1" {
		t.Fatalf("expected order 1 first after sorting, got %q", got)
	}
	if got := rows[4].Cells[1].Text; got != "13:00" {
		t.Fatalf("expected the 13:00 train last in the day, got %q", got)
	}

	totals := rows[5].Cells
	if totals[0].Text != "<b>Totals</b>" || totals[2].Text != "<b>9</b>" {
		t.Fatalf("unexpected day totals %+v", totals)
	}

	// Unknown layout names are a configuration error.
	bad := spec
	bad.Columns = append([]config.ColumnSpec{}, spec.Columns...)
	bad.Columns[0].TotalMethod = "bogus"
	var ce *ConfigError
	if _, err := FormatForTable(ctx, ds, bad, true); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestFormatTotalRowColspan(t *testing.T) {
	ds := table.New([]string{"Order ID", "Booking ID", "Quantity_formatted", StartDateColumn + FormattedSuffix})
	ds.Append(table.Row{
		"Order ID":                        "1",
		"Booking ID":                      "9",
		"Quantity_formatted":              4,
		StartDateColumn + FormattedSuffix: time.Date(2025, time.December, 6, 11, 30, 0, 0, time.UTC),
	})

	spec := config.TableSpec{
		Columns: []config.ColumnSpec{
			{Title: "Order", Input: "Order ID", TotalMethod: "label_2"},
			{Title: "Booking", Input: "Booking ID"},
			{Title: "Qty.", Input: "Quantity_formatted", TotalMethod: "sum"},
		},
	}
	ctx := NewContext(config.Builtin()["santa"], config.Settings{})
	cells := formatTotalRow(ctx, ds.Rows(), spec)

	// The two-column label swallows the booking column.
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d: %+v", len(cells), cells)
	}
	if cells[0].Colspan != 2 || cells[0].Text != "<b>Totals</b>" {
		t.Fatalf("unexpected label cell %+v", cells[0])
	}
	if cells[1].Text != "<b>4</b>" {
		t.Fatalf("unexpected sum cell %+v", cells[1])
	}
}
