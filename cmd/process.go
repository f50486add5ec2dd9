// =============================================================================
// Ticket Sheets - Process Command
// =============================================================================
//
// COMMAND USAGE:
//   ticket-sheets process bookings.csv
//   ticket-sheets process -A 9.50 -C 7.50 bookings.csv
//   ticket-sheets process --sheet out.csv bookings.csv
//
// Batch mode for working without the web front end: prints the per-event and
// grand breakdowns for an export, and optionally writes the grouped ticket
// sheet as CSV. The ticket value flags feed the savings calculation when no
// price table is configured.
//
// =============================================================================

package cmd

import (
	"encoding/csv"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/breakdown"
	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/csvio"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

var (
	adultValue  float64
	seniorValue float64
	childValue  float64
	familyValue float64

	dataConfigName string
	sheetOut       string
)

var processCmd = &cobra.Command{
	Use:   "process <csv-file>",
	Short: "Print the breakdown for a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		ds, err := csvio.Read(f)
		if err != nil {
			return err
		}
		if err := bookings.PrepareDates(ds); err != nil {
			return err
		}

		store, err := config.Open(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to open config: %w", err)
		}
		snap := store.Snapshot()
		if _, ok := snap.TicketPrices["default"]; !ok {
			snap.TicketPrices["default"] = config.PriceEntry{
				EventPrices: map[string]decimal.Decimal{
					"Adult":        decimal.NewFromFloat(adultValue),
					"Senior":       decimal.NewFromFloat(seniorValue),
					"Child":        decimal.NewFromFloat(childValue),
					"Family Child": decimal.NewFromFloat(familyValue),
				},
			}
		}

		dataConfigs, err := config.LoadDataConfigs(configsDir)
		if err != nil {
			return err
		}
		name := dataConfigName
		if name == "" {
			name = snap.ActiveDataConfig
		}
		dc, ok := dataConfigs[name]
		if !ok {
			return fmt.Errorf("unknown data config %q", name)
		}
		if err := bookings.ValidateDataConfig(dc); err != nil {
			return err
		}

		ds, err = bookings.ApplyFilters(ds, snap)
		if err != nil {
			return err
		}
		ctx := bookings.NewContext(dc, snap)
		if err := bookings.ParseBookings(ctx, ds); err != nil {
			return err
		}

		if sheetOut != "" {
			if err := writeSheetCSV(ctx, ds, dc.TicketSheet, sheetOut); err != nil {
				return err
			}
			fmt.Printf("Ticket sheet written to %s\n\n", sheetOut)
		}

		return printBreakdown(ctx, ds)
	},
}

func printBreakdown(ctx *bookings.Context, ds *table.Dataset) error {
	events, err := breakdown.PerEvent(ctx, ds)
	if err != nil {
		return err
	}
	grand, err := breakdown.Grand(ctx, ds)
	if err != nil {
		return err
	}

	lastDate := ""
	for _, ev := range events {
		if ev.Date != lastDate {
			if lastDate != "" {
				fmt.Println(strings.Repeat("-", 30))
			}
			fmt.Printf("Totals for %s\n", ev.Date)
			lastDate = ev.Date
		}
		fmt.Printf("Totals for %s\n", ev.Event)

		fmt.Println("  Full-price tickets")
		printTicketMap(ev.TicketTypes, ev.FullValue)
		fmt.Println("  Reduced tickets")
		printTicketMap(ev.TicketTypes, ev.Reduced)

		fmt.Printf("  Orders: %4d\n", ev.Orders)
		fmt.Printf("  Income:        £%s\n", ev.TotalValue.StringFixed(2))
		fmt.Printf("  Total savings: £%s\n", ev.TotalSaving.StringFixed(2))
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 30))
	fmt.Printf("Orders:  %d\n", grand.Orders)
	fmt.Printf("Tickets: %d\n", grand.NumTickets)
	printTicketMap(grand.TicketTypes, grand.Tickets)
	fmt.Printf("Total income:   £%s\n", grand.TotalValue.StringFixed(2))
	fmt.Printf("Online income:  £%s\n", grand.OnlineValue.StringFixed(2))
	fmt.Printf("Walk-in income: £%s\n", grand.WalkInValue.StringFixed(2))
	return nil
}

func printTicketMap(order []string, counts map[string]int) {
	for _, name := range order {
		if qty, ok := counts[name]; ok && qty != 0 {
			fmt.Printf("  %-12s: %4d\n", name, qty)
		}
	}
}

// writeSheetCSV renders the grouped ticket sheet as CSV, flattening the
// display markup back to plain text.
func writeSheetCSV(ctx *bookings.Context, ds *table.Dataset, spec config.TableSpec, path string) error {
	rows, err := bookings.FormatForTable(ctx, ds, spec, true)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	header := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		header[i] = stripMarkup(col.Title)
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		var record []string
		switch row.Kind {
		case bookings.RowDate:
			record = []string{row.Heading}
		case bookings.RowDivider:
			continue
		default:
			for _, cell := range row.Cells {
				record = append(record, stripMarkup(cell.Text))
				for i := 1; i < cell.Colspan; i++ {
					record = append(record, "")
				}
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<b>", "")
	s = strings.ReplaceAll(s, "</b>", "")
	return html.UnescapeString(s)
}

func init() {
	processCmd.Flags().Float64VarP(&adultValue, "adult", "A", 9.0, "Value of adult tickets")
	processCmd.Flags().Float64VarP(&seniorValue, "senior", "S", 8.0, "Value of senior tickets")
	processCmd.Flags().Float64VarP(&childValue, "child", "C", 7.0, "Value of child tickets")
	processCmd.Flags().Float64VarP(&familyValue, "family", "F", 6.0, "Value of family child tickets")
	processCmd.Flags().StringVar(&dataConfigName, "data-config", "", "Data configuration to use (default: the active one)")
	processCmd.Flags().StringVar(&sheetOut, "sheet", "", "Also write the grouped ticket sheet to this CSV file")
	rootCmd.AddCommand(processCmd)
}
