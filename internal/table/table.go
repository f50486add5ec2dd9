// =============================================================================
// Ticket Sheets - Dataset Module
// =============================================================================
//
// This module provides the in-memory table that the booking pipeline operates
// on. A Dataset is a rectangular table of cells keyed by column name, with an
// explicit, ordered column list. Raw CSV cells are strings; derivation steps
// add typed cells (times, integers, decimals, string slices) under new column
// names, conventionally "<column>_formatted" and "ticket_<type>".
//
// Cell access is through typed getters that return a documented zero value
// when the cell is absent or holds a different type. Row-level data defects
// therefore degrade to zero/default values instead of aborting a batch.
//
// =============================================================================

package table

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row holds the cells of a single booking, keyed by column name.
// Values are one of: string, int, bool, time.Time, decimal.Decimal, []string.
type Row map[string]any

// Has reports whether the row has a cell in the named column.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Str returns the cell as a string, or "" when absent or not a string.
func (r Row) Str(col string) string {
	s, _ := r[col].(string)
	return s
}

// Int returns the cell as an int, or 0 when absent or not an int.
func (r Row) Int(col string) int {
	n, _ := r[col].(int)
	return n
}

// Bool returns the cell as a bool, or false when absent or not a bool.
func (r Row) Bool(col string) bool {
	b, _ := r[col].(bool)
	return b
}

// Decimal returns the cell as a decimal, or zero when absent or mistyped.
func (r Row) Decimal(col string) decimal.Decimal {
	d, ok := r[col].(decimal.Decimal)
	if !ok {
		return decimal.Zero
	}
	return d
}

// Time returns the cell as a time and whether it was present.
func (r Row) Time(col string) (time.Time, bool) {
	t, ok := r[col].(time.Time)
	return t, ok
}

// Strings returns the cell as a string slice, or nil when absent or mistyped.
func (r Row) Strings(col string) []string {
	s, _ := r[col].([]string)
	return s
}

// Clone returns a copy of the row. Slice cells are copied so derivations on
// one run never leak into another run's rows.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if s, ok := v.([]string); ok {
			cp := make([]string, len(s))
			copy(cp, s)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// =============================================================================
// DATASET
// =============================================================================

// Dataset is an ordered collection of rows sharing a column list.
type Dataset struct {
	cols    []string
	colSeen map[string]struct{}
	rows    []Row
}

// New creates an empty dataset with the given column order.
func New(columns []string) *Dataset {
	d := &Dataset{colSeen: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		d.AddColumn(c)
	}
	return d
}

// Columns returns the column names in order of first registration.
func (d *Dataset) Columns() []string { return d.cols }

// HasColumn reports whether the named column has been registered.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.colSeen[name]
	return ok
}

// AddColumn registers a column name. Registering an existing name is a no-op,
// so derivation steps can be re-run without disturbing column order.
func (d *Dataset) AddColumn(name string) {
	if _, ok := d.colSeen[name]; ok {
		return
	}
	d.colSeen[name] = struct{}{}
	d.cols = append(d.cols, name)
}

// TicketColumns returns the registered "ticket_" derived columns in order.
func (d *Dataset) TicketColumns() []string {
	var out []string
	for _, c := range d.cols {
		if strings.HasPrefix(c, "ticket_") {
			out = append(out, c)
		}
	}
	return out
}

// Append adds a row to the dataset.
func (d *Dataset) Append(r Row) { d.rows = append(d.rows, r) }

// Rows returns the underlying row slice. Mutations affect the dataset.
func (d *Dataset) Rows() []Row { return d.rows }

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Clone deep-copies the dataset. Each pipeline run derives on its own clone
// so concurrent runs never share mutable rows.
func (d *Dataset) Clone() *Dataset {
	out := New(d.cols)
	out.rows = make([]Row, len(d.rows))
	for i, r := range d.rows {
		out.rows[i] = r.Clone()
	}
	return out
}

// Filter returns a new dataset holding the rows the predicate keeps.
// Rows are shared, not copied; callers filtering a clone may mutate freely.
func (d *Dataset) Filter(keep func(Row) bool) *Dataset {
	out := New(d.cols)
	for _, r := range d.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// SortStable sorts rows in place with a stable sort, so ties keep their
// original relative order and sequential multi-key sorts behave predictably.
func (d *Dataset) SortStable(less func(a, b Row) bool) {
	sort.SliceStable(d.rows, func(i, j int) bool { return less(d.rows[i], d.rows[j]) })
}

// CompareCells orders two cells of the same column. Strings compare
// case-insensitively; times, ints and decimals compare by value. Mixed or
// unknown types compare equal, which a stable sort leaves in input order.
func CompareCells(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
		}
	case int:
		if bv, ok := b.(int); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case decimal.Decimal:
		if bv, ok := b.(decimal.Decimal); ok {
			return av.Cmp(bv)
		}
	}
	return 0
}
