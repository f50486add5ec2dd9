// =============================================================================
// Ticket Sheets - Web Server
// =============================================================================
//
// The web front end: staff upload (or fetch) the booking export once per
// session, then browse the ticket sheet, alphabetical listing, breakdowns and
// tally sheets, and download the spreadsheet exports. All pipeline work
// happens per request on a clone of the session's dataset with a fresh
// configuration snapshot, so concurrent requests never share mutable state.
//
// =============================================================================

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/eldermoor-railway/ticket-sheets/internal/config"
)

// Server owns the HTTP surface and its collaborators.
type Server struct {
	store       *config.Store
	dataConfigs map[string]*config.DataConfig
	sessions    *sessionStore
	fetcher     *resty.Client
	logger      *zap.Logger
}

// New builds the server around an opened configuration store and the loaded
// data configurations.
func New(store *config.Store, dataConfigs map[string]*config.DataConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:       store,
		dataConfigs: dataConfigs,
		sessions:    newSessionStore(store.Snapshot().SecretKey),
		fetcher: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2),
		logger: logger,
	}
}

// Router wires the Gin engine with routes and middleware.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(s.logger))
	r.SetHTMLTemplate(pageTemplates())

	r.GET("/", s.uploadPage)
	r.GET("/upload", s.uploadPage)
	r.POST("/upload", s.uploadCSV)
	r.POST("/fetch", s.fetchCSV)

	r.POST("/config", s.updateFilters)
	r.POST("/config-url", s.updateCSVURL)

	r.GET("/tickets", s.ticketTable)
	r.GET("/alpha", s.alphabeticalTable)
	r.GET("/breakdown", s.breakdownPage)
	r.GET("/breakdown.xlsx", s.breakdownExport)
	// Tally dates render as "dd/mm", so the selector spans two segments.
	r.GET("/tally", s.tallyIndex)
	r.GET("/tally/:day/:month", s.tallySheet)
	r.GET("/tally/:day/:month/export", s.tallyExport)

	s.logger.Info("router initialized")
	return r
}

// Run serves HTTP on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.Router().Run(addr)
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
