// =============================================================================
// Ticket Sheets - Page Templates
// =============================================================================

package server

import (
	"embed"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageTemplates parses the embedded page templates. Pipeline cell text is
// pre-escaped markup; everything else relies on the default auto-escaping.
func pageTemplates() *template.Template {
	funcs := template.FuncMap{
		"price": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"inc":   func(n int) int { return n + 1 },
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
