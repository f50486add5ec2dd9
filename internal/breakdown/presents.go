// =============================================================================
// Ticket Sheets - Present Pivot Tables
// =============================================================================

package breakdown

import (
	"fmt"
	"sort"
	"time"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

// PresentAges is the fixed column order of the presents-by-age pivot: boys
// then girls, under-one first, ages one to fourteen.
var PresentAges = presentAges()

func presentAges() []string {
	var out []string
	for _, gender := range []string{"B", "G"} {
		out = append(out, gender+"U1")
		for age := 1; age <= 14; age++ {
			out = append(out, fmt.Sprintf("%s%d", gender, age))
		}
	}
	return out
}

// Pivot is a cross-tabulation with one row per event date.
type Pivot struct {
	// Columns holds the column labels (age codes or train times).
	Columns []string
	Rows    []PivotRow
}

// PivotRow is one date's counts, aligned with the pivot's columns.
type PivotRow struct {
	Date   string
	Counts []int
}

// PresentsByAge counts presents per age code per event date. Columns follow
// PresentAges regardless of which codes the data contains; codes outside the
// list (unchosen ages, unrecognised genders) are dropped from this view.
func PresentsByAge(ds *table.Dataset, presentsColumn string) *Pivot {
	counts := make(map[time.Time]map[string]int)
	colIndex := make(map[string]int, len(PresentAges))
	for i, code := range PresentAges {
		colIndex[code] = i
	}

	for _, row := range ds.Rows() {
		day := bookingDay(row)
		for _, code := range row.Strings(presentsColumn) {
			if _, known := colIndex[code]; !known {
				continue
			}
			if counts[day] == nil {
				counts[day] = make(map[string]int)
			}
			counts[day][code]++
		}
	}

	pivot := &Pivot{Columns: PresentAges}
	for _, day := range sortedDays(counts) {
		row := PivotRow{Date: day.Format(dayKeyLayout), Counts: make([]int, len(PresentAges))}
		for code, n := range counts[day] {
			row.Counts[colIndex[code]] = n
		}
		pivot.Rows = append(pivot.Rows, row)
	}
	return pivot
}

// PresentsByTrain counts presents per train time per event date. Columns are
// the configured train times, so a train with no bookings still shows as a
// zero column and an unconfigured departure is dropped.
func PresentsByTrain(ds *table.Dataset, trainTimes []string, presentsColumn string) *Pivot {
	counts := make(map[time.Time]map[string]int)
	colIndex := make(map[string]int, len(trainTimes))
	for i, t := range trainTimes {
		colIndex[t] = i
	}

	for _, row := range ds.Rows() {
		start, _ := row.Time(bookings.StartDateColumn + bookings.FormattedSuffix)
		train := start.Format("15:04")
		if _, known := colIndex[train]; !known {
			continue
		}
		day := bookingDay(row)
		if counts[day] == nil {
			counts[day] = make(map[string]int)
		}
		counts[day][train] += len(row.Strings(presentsColumn))
	}

	pivot := &Pivot{Columns: trainTimes}
	for _, day := range sortedDays(counts) {
		row := PivotRow{Date: day.Format(dayKeyLayout), Counts: make([]int, len(trainTimes))}
		for train, n := range counts[day] {
			row.Counts[colIndex[train]] = n
		}
		pivot.Rows = append(pivot.Rows, row)
	}
	return pivot
}

func bookingDay(row table.Row) time.Time {
	start, _ := row.Time(bookings.StartDateColumn + bookings.FormattedSuffix)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
}

func sortedDays(counts map[time.Time]map[string]int) []time.Time {
	days := make([]time.Time, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
