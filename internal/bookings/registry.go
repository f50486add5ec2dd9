// =============================================================================
// Ticket Sheets - Configuration Validation
// =============================================================================

package bookings

import (
	"github.com/eldermoor-railway/ticket-sheets/internal/config"
)

// ValidateDataConfig checks every function name a data configuration refers
// to against the static registries, so a typo in a YAML file surfaces at load
// time instead of halfway through a run.
func ValidateDataConfig(dc *config.DataConfig) error {
	for _, rule := range dc.InputFormat {
		if rule.Conversion != "" {
			if _, ok := conversions[rule.Conversion]; !ok {
				return &ConfigError{Kind: "conversion", Name: rule.Conversion}
			}
		}
		for _, name := range rule.Extractions {
			if _, ok := extractions[name]; !ok {
				return &ConfigError{Kind: "extraction", Name: name}
			}
		}
	}

	for _, spec := range []*config.TableSpec{&dc.TicketSheet, &dc.Alphabetical} {
		if err := validateTableSpec(spec); err != nil {
			return err
		}
	}
	return nil
}

func validateTableSpec(spec *config.TableSpec) error {
	for _, col := range spec.Columns {
		if col.Formatter != "" {
			if _, ok := formatters[col.Formatter]; !ok {
				return &ConfigError{Kind: "formatter", Name: col.Formatter}
			}
		}
		if col.TotalMethod != "" {
			if _, ok := totalMethods[col.TotalMethod]; !ok {
				return &ConfigError{Kind: "total method", Name: col.TotalMethod}
			}
		}
	}
	return nil
}
