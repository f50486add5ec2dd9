// =============================================================================
// Ticket Sheets - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   ticket-sheets serve [--addr :8080]
//
// Runs the web front end: upload or fetch a booking export, then browse the
// ticket sheets, breakdowns and tally sheets.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/server"
	"github.com/eldermoor-railway/ticket-sheets/pkg/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ticket sheets web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Local deployments keep the listen address in a .env file.
		_ = godotenv.Load()

		log := logger.Must(logger.New(verbose))
		defer log.Sync()

		store, err := config.Open(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to open config: %w", err)
		}

		dataConfigs, err := config.LoadDataConfigs(configsDir)
		if err != nil {
			return fmt.Errorf("failed to load data configs: %w", err)
		}
		for name, dc := range dataConfigs {
			if err := bookings.ValidateDataConfig(dc); err != nil {
				return fmt.Errorf("data config %q: %w", name, err)
			}
		}

		addr := serveAddr
		if addr == "" {
			addr = ":" + envOr("PORT", "8080")
		}

		srv := server.New(store, dataConfigs, logger.Named(log, "server"))
		log.Info("configuration loaded",
			zap.String("config", cfgFile),
			zap.Int("data_configs", len(dataConfigs)))
		return srv.Run(addr)
	},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :$PORT or :8080)")
	rootCmd.AddCommand(serveCmd)
}
