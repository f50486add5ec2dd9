// =============================================================================
// Ticket Sheets - Data Configuration Module
// =============================================================================
//
// A DataConfig is the declarative description of one event mode: which
// derivations run over the raw export (and in what order), how the ticket
// sheet and alphabetical listing are laid out, and where the seasonal
// present/needs data lives.
//
// Two configurations are built in: "default" for generic ticketed events and
// "santa" for the seasonal present-giving trains. Additional configurations
// (or overrides of the built-ins) load from YAML files in a configs
// directory; the file name (minus extension) is the configuration name. The
// active configuration is selected by name through the runtime settings.
//
// DERIVATION ORDER IS A CONTRACT. The input format is an ordered list, and
// later rules may read columns produced by earlier ones. The santa ordering
// is fixed as: accompanying-count parsing, present extraction, accompanying
// folding into the price categories, infant splitting, ticket extraction,
// walk-in pricing. Reordering these rules silently corrupts derived columns.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnSpec describes one column of an output table.
type ColumnSpec struct {
	// Title is the display heading. May contain "<br>" for stacked headings.
	Title string `yaml:"title"`

	// Input names the dataset column the value comes from. Empty means a
	// blank placeholder column reserved for manual annotation on the printed
	// sheet.
	Input string `yaml:"input,omitempty"`

	// Align is a rendering hint: "left", "center" or "right".
	Align string `yaml:"align,omitempty"`

	// Formatter names the display formatter applied to the cell value.
	Formatter string `yaml:"formatter,omitempty"`

	// TotalMethod names the total function used for this column in day-total
	// rows. Empty means the totals row leaves this column blank.
	TotalMethod string `yaml:"total_method,omitempty"`
}

// FieldRule describes the derivations for one input column.
type FieldRule struct {
	Column      string   `yaml:"column"`
	Conversion  string   `yaml:"conversion,omitempty"`
	Extractions []string `yaml:"extractions,omitempty"`
}

// SortRule is one key of a multi-key sort. Sorts apply sequentially with a
// stable sort, so the last listed rule is the primary key.
type SortRule struct {
	Column  string `yaml:"column"`
	Reverse bool   `yaml:"reverse,omitempty"`
}

// TableSpec is the layout of one output table.
type TableSpec struct {
	Columns     []ColumnSpec `yaml:"columns"`
	Sorts       []SortRule   `yaml:"sorts"`
	GroupByDate bool         `yaml:"group_by_date,omitempty"`
	DemarkTrain bool         `yaml:"demark_train,omitempty"`
}

// DataConfig is the full declarative configuration for one event mode.
type DataConfig struct {
	Name string `yaml:"-"`

	// InputFormat lists the per-column derivation rules in application order.
	InputFormat []FieldRule `yaml:"input_format"`

	TicketSheet  TableSpec `yaml:"ticket_sheet"`
	Alphabetical TableSpec `yaml:"alphabetical"`

	// PresentsColumn names the derived column of present codes, empty when
	// the mode has no seasonal presents.
	PresentsColumn string `yaml:"presents_column,omitempty"`

	// NeedsColumn names the special-needs free-text column.
	NeedsColumn string `yaml:"needs_column,omitempty"`

	// InfantAges lists the age bucket codes counted as infants. The age
	// cutoff differs between seasons, so it is configured rather than fixed.
	InfantAges []string `yaml:"infant_ages,omitempty"`
}

// =============================================================================
// BUILT-IN CONFIGURATIONS
// =============================================================================

// Builtin returns the built-in data configurations keyed by name.
func Builtin() map[string]*DataConfig {
	return map[string]*DataConfig{
		"default": defaultConfig(),
		"santa":   santaConfig(),
	}
}

func defaultConfig() *DataConfig {
	return &DataConfig{
		Name: "default",
		InputFormat: []FieldRule{
			// Start date is converted when the CSV is loaded.
			{Column: "Order ID", Conversion: "parse_int"},
			{Column: "Product title", Conversion: "simplify_product"},
			{Column: "Quantity", Conversion: "parse_int"},
			{Column: "Product price", Conversion: "tidy_price"},
			{Column: "Price categories", Extractions: []string{"extract_tickets"}},
		},
		TicketSheet: TableSpec{
			Columns: []ColumnSpec{
				{Title: "Order", Input: "Order ID", TotalMethod: "label"},
				{Title: "Booking", Input: "Booking ID", TotalMethod: "order_count"},
				{Title: "Train", Input: "Start date_formatted", Formatter: "train_time"},
				{Title: "First name", Input: "Customer first name", Align: "right", Formatter: "title_case"},
				{Title: "Last name", Input: "Customer last name", Align: "left", Formatter: "title_case"},
				{Title: "Qty.", Input: "Quantity_formatted", TotalMethod: "sum"},
				{Title: "Issued"},
				{Title: "Infants"},
				{Title: "Paid", Input: "Product price_formatted", Formatter: "format_price", TotalMethod: "price_sum"},
				{Title: "Price categories", Input: "Price categories", Align: "left", Formatter: "insert_html_newlines", TotalMethod: "category_sum"},
				{Title: "Notes", Input: "Special Needs", Align: "left"},
			},
			Sorts: []SortRule{
				{Column: "Booking ID"},
				{Column: "Order ID"},
				{Column: "Start date_formatted"},
			},
			GroupByDate: true,
			DemarkTrain: true,
		},
		Alphabetical: TableSpec{
			Columns: []ColumnSpec{
				{Title: "Order", Input: "Order ID"},
				{Title: "Booking", Input: "Booking ID"},
				{Title: "Date", Input: "Start date_formatted", Formatter: "train_date"},
				{Title: "Train", Input: "Start date_formatted", Formatter: "train_time"},
				{Title: "First name", Input: "Customer first name", Align: "right", Formatter: "title_case"},
				{Title: "Last name", Input: "Customer last name", Align: "left", Formatter: "title_case"},
				{Title: "Qty.", Input: "Quantity_formatted"},
				{Title: "Paid", Input: "Product price_formatted", Formatter: "format_price"},
				{Title: "Price categories", Input: "Price categories", Align: "left", Formatter: "insert_html_newlines"},
				{Title: "Notes", Input: "Special Needs", Align: "left"},
			},
			Sorts: []SortRule{
				{Column: "Customer first name"},
				{Column: "Customer last name"},
			},
		},
	}
}

func santaConfig() *DataConfig {
	return &DataConfig{
		Name: "santa",
		InputFormat: []FieldRule{
			{Column: "Order ID", Conversion: "parse_int"},
			{Column: "Product title", Conversion: "simplify_product"},
			{Column: "Quantity", Conversion: "parse_int"},
			{Column: "Accompanying Adult", Conversion: "parse_accompanying", Extractions: []string{"include_additional_adults"}},
			{Column: "Accompanying Senior", Conversion: "parse_accompanying", Extractions: []string{"include_additional_seniors"}},
			{Column: "Product price", Conversion: "tidy_price"},
			{Column: "Present Type", Extractions: []string{"extract_present_details"}},
			// Each of these reads columns produced by the rules above; the
			// order within the list is just as significant.
			{Column: "Price categories", Extractions: []string{
				"include_accompanying",
				"split_infant_presents",
				"extract_tickets",
				"walk_in_price",
			}},
		},
		TicketSheet: TableSpec{
			Columns: []ColumnSpec{
				{Title: "Order", Input: "Order ID", TotalMethod: "label"},
				{Title: "Booking", Input: "Booking ID", TotalMethod: "order_count"},
				{Title: "Train", Input: "Start date_formatted", Formatter: "train_time"},
				{Title: "First name", Input: "Customer first name", Align: "right", Formatter: "title_case"},
				{Title: "Last name", Input: "Customer last name", Align: "left", Formatter: "title_case"},
				{Title: "Adults", Input: "Accompanying Adult_formatted", TotalMethod: "sum"},
				{Title: "Seniors", Input: "Accompanying Senior_formatted", TotalMethod: "sum"},
				{Title: "Grotto<br>passes", Input: "Quantity_formatted", TotalMethod: "sum"},
				{Title: "Paid", Input: "Walk-in price", Formatter: "format_price", TotalMethod: "price_sum"},
				{Title: "Presents", Input: "Present Type_formatted", Align: "left", Formatter: "comma_sep", TotalMethod: "present_sum"},
				{Title: "Notes", Input: "Special Needs", Align: "left"},
			},
			Sorts: []SortRule{
				{Column: "Booking ID"},
				{Column: "Order ID"},
				{Column: "Start date_formatted"},
			},
			GroupByDate: true,
			DemarkTrain: true,
		},
		Alphabetical: TableSpec{
			Columns: []ColumnSpec{
				{Title: "Order", Input: "Order ID"},
				{Title: "Booking", Input: "Booking ID"},
				{Title: "Date", Input: "Start date_formatted", Formatter: "train_date"},
				{Title: "Train", Input: "Start date_formatted", Formatter: "train_time"},
				{Title: "First name", Input: "Customer first name", Align: "right", Formatter: "title_case"},
				{Title: "Last name", Input: "Customer last name", Align: "left", Formatter: "title_case"},
				{Title: "Adults", Input: "Accompanying Adult_formatted"},
				{Title: "Seniors", Input: "Accompanying Senior_formatted"},
				{Title: "Grotto<br>passes", Input: "Quantity_formatted"},
				{Title: "Paid", Input: "Walk-in price", Formatter: "format_price"},
				{Title: "Presents", Input: "Present Type_formatted", Align: "left", Formatter: "comma_sep"},
				{Title: "Notes", Input: "Special Needs", Align: "left"},
			},
			Sorts: []SortRule{
				{Column: "Customer first name"},
				{Column: "Customer last name"},
			},
		},
		PresentsColumn: "Present Type_formatted",
		NeedsColumn:    "Special Needs",
		InfantAges:     []string{"U1", "1"},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadDataConfigs returns the built-in configurations overlaid with any YAML
// files found in configsDir. A missing directory yields just the built-ins.
func LoadDataConfigs(configsDir string) (map[string]*DataConfig, error) {
	configs := Builtin()

	if configsDir == "" {
		return configs, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matched, err := filepath.Glob(filepath.Join(configsDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list config files: %w", err)
		}
		files = append(files, matched...)
	}

	for _, file := range files {
		dc, err := loadDataConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		configs[dc.Name] = dc
	}

	return configs, nil
}

func loadDataConfig(path string) (*DataConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var dc DataConfig
	if err := yaml.Unmarshal(data, &dc); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	base := filepath.Base(path)
	dc.Name = strings.TrimSuffix(base, filepath.Ext(base))
	applyDataConfigDefaults(&dc)

	return &dc, nil
}

func applyDataConfigDefaults(dc *DataConfig) {
	if len(dc.InfantAges) == 0 && dc.PresentsColumn != "" {
		dc.InfantAges = []string{"U1", "1"}
	}
	for _, spec := range [...]*TableSpec{&dc.TicketSheet, &dc.Alphabetical} {
		for i := range spec.Columns {
			if spec.Columns[i].Align == "" {
				spec.Columns[i].Align = "center"
			}
		}
	}
}
