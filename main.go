// =============================================================================
// Ticket Sheets - Main Entry Point
// =============================================================================
//
// USAGE:
//   ticket-sheets serve          - Run the web front end
//   ticket-sheets process <csv>  - Print the breakdown for a CSV export
//   ticket-sheets version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Core pipeline, aggregation and web server
//   - pkg/       : Shared utilities
//   - configs/   : YAML data configurations for additional event modes
//
// =============================================================================

package main

import (
	"github.com/eldermoor-railway/ticket-sheets/cmd"
)

func main() {
	cmd.Execute()
}
