package bookings

import (
	"errors"
	"testing"

	"github.com/eldermoor-railway/ticket-sheets/internal/config"
)

func TestValidateDataConfigBuiltins(t *testing.T) {
	for name, dc := range config.Builtin() {
		if err := ValidateDataConfig(dc); err != nil {
			t.Fatalf("built-in %q failed validation: %v", name, err)
		}
	}
}

func TestValidateDataConfigRejectsUnknownNames(t *testing.T) {
	cases := []struct {
		name string
		dc   config.DataConfig
		kind string
	}{
		{
			name: "conversion",
			dc: config.DataConfig{
				InputFormat: []config.FieldRule{{Column: "x", Conversion: "parse_everything"}},
			},
			kind: "conversion",
		},
		{
			name: "extraction",
			dc: config.DataConfig{
				InputFormat: []config.FieldRule{{Column: "x", Extractions: []string{"extract_gold"}}},
			},
			kind: "extraction",
		},
		{
			name: "formatter",
			dc: config.DataConfig{
				TicketSheet: config.TableSpec{
					Columns: []config.ColumnSpec{{Title: "x", Input: "x", Formatter: "sparkle"}},
				},
			},
			kind: "formatter",
		},
		{
			name: "total method",
			dc: config.DataConfig{
				Alphabetical: config.TableSpec{
					Columns: []config.ColumnSpec{{Title: "x", Input: "x", TotalMethod: "guess"}},
				},
			},
			kind: "total method",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDataConfig(&tc.dc)
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Kind != tc.kind {
				t.Fatalf("expected %s ConfigError, got %v", tc.kind, err)
			}
		})
	}
}
