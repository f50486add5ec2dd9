package tally

import (
	"reflect"
	"testing"
	"time"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

var (
	startCol    = bookings.StartDateColumn + bookings.FormattedSuffix
	presentsCol = "Present Type_formatted"
)

func testContext() *bookings.Context {
	return bookings.NewContext(config.Builtin()["santa"], config.Settings{})
}

func tallyDataset(rows ...table.Row) *table.Dataset {
	ds := table.New([]string{
		"Order ID", "Order ID" + bookings.FormattedSuffix,
		startCol, presentsCol, "Special Needs",
	})
	for _, row := range rows {
		ds.Append(row)
	}
	return ds
}

func booking(order int, start time.Time, presents []string, needs string) table.Row {
	return table.Row{
		"Order ID":                              "100",
		"Order ID" + bookings.FormattedSuffix:   order,
		startCol:                                start,
		presentsCol:                             presents,
		"Special Needs":                         needs,
	}
}

func TestParseDate(t *testing.T) {
	day, month, err := ParseDate("06/12")
	if err != nil || day != 6 || month != 12 {
		t.Fatalf("expected 6/12, got %d/%d (%v)", day, month, err)
	}
	if _, _, err := ParseDate("next saturday"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestGenerateLayout(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2025, time.December, 6, hour, min, 0, 0, time.UTC)
	}
	ds := tallyDataset(
		// Out of order on purpose: the sheet sorts by order number.
		booking(12, at(11, 30), []string{"G7"}, ""),
		booking(11, at(11, 30), []string{"BU1", "G4"}, "W: wheelchair"),
		booking(13, at(14, 0), []string{"B2"}, ""),
		booking(14, at(14, 0), nil, ""),             // no presents
		booking(15, at(13, 0), []string{"B9"}, ""),  // unconfigured train
		booking(16, at(11, 30).AddDate(0, 0, 1), []string{"G1"}, ""), // other day
	)

	limits := []config.TrainLimit{{Time: "11:30", Seats: 2}, {Time: "14:00", Seats: 40}}
	sheet := Generate(testContext(), ds, 6, 12, limits)

	if !reflect.DeepEqual(sheet.Trains, []string{"11:30", "14:00"}) {
		t.Fatalf("unexpected trains %v", sheet.Trains)
	}

	// One more row than the largest limit, even when mostly empty.
	if len(sheet.Rows) != 41 {
		t.Fatalf("expected 41 rows, got %d", len(sheet.Rows))
	}

	first := func(r, c int) Cell { return sheet.Rows[r][c] }

	// Order 11's presents come first, its family line under the second.
	if first(0, 0).Present != "BU1" || first(0, 0).EndFamily {
		t.Fatalf("unexpected cell %+v", first(0, 0))
	}
	if first(1, 0).Present != "G4" || !first(1, 0).EndFamily {
		t.Fatalf("unexpected cell %+v", first(1, 0))
	}
	if first(2, 0).Present != "G7" || !first(2, 0).EndFamily {
		t.Fatalf("unexpected cell %+v", first(2, 0))
	}

	// Needs keep only the code before the colon.
	if first(0, 0).Needs != "W" {
		t.Fatalf("expected needs code W, got %q", first(0, 0).Needs)
	}

	// The capacity marker sits at row L (1-indexed) whether the column
	// is full or not.
	if !first(1, 0).TrainLimit {
		t.Fatal("expected the capacity marker on row 2 of the 11:30 column")
	}
	if !first(39, 1).TrainLimit {
		t.Fatal("expected the capacity marker on row 40 of the 14:00 column")
	}

	// The 13:00 booking has no configured column; the other-day and
	// no-present bookings are skipped too.
	if first(0, 1).Present != "B2" || first(1, 1).Present != "" {
		t.Fatalf("unexpected 14:00 column head %+v / %+v", first(0, 1), first(1, 1))
	}
}

func TestGenerateMinimumHeight(t *testing.T) {
	ds := tallyDataset()
	limits := []config.TrainLimit{{Time: "11:30", Seats: 10}}
	sheet := Generate(testContext(), ds, 6, 12, limits)

	if len(sheet.Rows) != 26 {
		t.Fatalf("expected the 26-row minimum, got %d", len(sheet.Rows))
	}
	if !sheet.Rows[9][0].TrainLimit {
		t.Fatal("expected the capacity marker on row 10")
	}
}

func TestGenerateOverflowGrowsSheet(t *testing.T) {
	start := time.Date(2025, time.December, 6, 11, 30, 0, 0, time.UTC)
	var rows []table.Row
	for i := 0; i < 30; i++ {
		rows = append(rows, booking(i, start, []string{"B4"}, ""))
	}
	ds := tallyDataset(rows...)

	limits := []config.TrainLimit{{Time: "11:30", Seats: 20}}
	sheet := Generate(testContext(), ds, 6, 12, limits)

	// 30 presents overflow both the limit and the minimum height.
	if len(sheet.Rows) != 30 {
		t.Fatalf("expected 30 rows, got %d", len(sheet.Rows))
	}
	if !sheet.Rows[19][0].TrainLimit {
		t.Fatal("expected the capacity marker to stay on row 20")
	}
	if sheet.Rows[29][0].Present != "B4" {
		t.Fatal("expected the overflow present on the last row")
	}
}

func TestNeedsLegend(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2025, time.December, 6, hour, min, 0, 0, time.UTC)
	}
	ds := tallyDataset(
		booking(1, at(11, 30), []string{"B4"}, "W: wheelchair"),
		booking(2, at(11, 30), []string{"G7"}, "D"),
		booking(3, at(11, 30), []string{"B1"}, "W: another wheelchair"),
		booking(4, at(14, 0), []string{"G2"}, ""),
	)

	limits := []config.TrainLimit{{Time: "11:30", Seats: 40}, {Time: "14:00", Seats: 40}}
	sheet := Generate(testContext(), ds, 6, 12, limits)

	legend := sheet.NeedsLegend()
	if !reflect.DeepEqual(legend["11:30"], []string{"W", "D"}) {
		t.Fatalf("expected [W D] for 11:30, got %v", legend["11:30"])
	}
	if _, ok := legend["14:00"]; ok {
		t.Fatalf("expected no legend entries for 14:00, got %v", legend["14:00"])
	}
}
