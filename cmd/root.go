// =============================================================================
// Ticket Sheets - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ticket-sheets)
//   ├── serveCmd   (ticket-sheets serve)
//   ├── processCmd (ticket-sheets process)
//   └── versionCmd (ticket-sheets version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the runtime configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// configsDir holds the directory of YAML data configurations overlaying the
// built-in "default" and "santa" modes.
var configsDir string

// verbose enables debug logging when set to true.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ticket-sheets",
	Short: "Ticket Sheets - Turn booking exports into printable sheets and breakdowns",
	Long: `Ticket Sheets ingests the booking platform's CSV export and produces the
paperwork the railway runs its event days from: grouped ticket sheets,
alphabetical listings, financial breakdowns and the seasonal present tally
grids.

Example Usage:
  ticket-sheets serve                       # Run the web front end
  ticket-sheets process bookings.csv        # Print the breakdown for an export
  ticket-sheets process -C 7.50 export.csv  # Override the child ticket value`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.json",
		"Path to the runtime configuration file",
	)
	rootCmd.PersistentFlags().StringVar(
		&configsDir,
		"configs-dir",
		"configs",
		"Directory of YAML data configurations",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
