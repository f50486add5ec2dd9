// =============================================================================
// Ticket Sheets - HTTP Handlers
// =============================================================================

package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/eldermoor-railway/ticket-sheets/internal/bookings"
	"github.com/eldermoor-railway/ticket-sheets/internal/breakdown"
	"github.com/eldermoor-railway/ticket-sheets/internal/config"
	"github.com/eldermoor-railway/ticket-sheets/internal/csvio"
	"github.com/eldermoor-railway/ticket-sheets/internal/export"
	"github.com/eldermoor-railway/ticket-sheets/internal/table"
	"github.com/eldermoor-railway/ticket-sheets/internal/tally"
)

// pageVars carries the navigation and filter state every page shows.
type pageVars struct {
	Active   string
	CSVName  string
	Uploaded string
	CSVURL   string
	Filter   string
	HideOld  bool
	OldDate  string
	Error    string
	Detail   string
}

func (s *Server) vars(c *gin.Context, active string) pageVars {
	snap := s.store.Snapshot()
	v := pageVars{
		Active:  active,
		CSVURL:  snap.CSVURL,
		Filter:  snap.ProductFilter,
		HideOld: snap.HideOldOrders,
		OldDate: snap.OldOrderDate,
	}
	if sess := s.sessions.get(c); sess != nil {
		v.CSVName = sess.csvName
		v.Uploaded = sess.uploaded
	}
	return v
}

func (s *Server) renderError(c *gin.Context, status int, msg, detail string) {
	v := s.vars(c, "")
	v.Error = msg
	v.Detail = detail
	c.HTML(status, "error.html", v)
}

// =============================================================================
// UPLOAD AND FETCH
// =============================================================================

func (s *Server) uploadPage(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", s.vars(c, "upload"))
}

func (s *Server) uploadCSV(c *gin.Context) {
	file, err := c.FormFile("fileupload")
	if err != nil {
		s.uploadFailed(c, "Please upload a CSV file", err)
		return
	}
	src, err := file.Open()
	if err != nil {
		s.uploadFailed(c, "Please upload a CSV file", err)
		return
	}
	defer src.Close()

	if !s.storeDataset(c, src, file.Filename) {
		return
	}
	c.Redirect(http.StatusSeeOther, "/tickets")
}

// fetchCSV pulls the export from the configured URL instead of an upload.
func (s *Server) fetchCSV(c *gin.Context) {
	url := s.store.Snapshot().CSVURL
	if url == "" {
		s.uploadFailed(c, "No CSV URL configured", nil)
		return
	}

	resp, err := s.fetcher.R().SetContext(c.Request.Context()).Get(url)
	if err != nil {
		s.uploadFailed(c, "Failed to fetch the CSV", err)
		return
	}
	if resp.IsError() {
		s.uploadFailed(c, "Failed to fetch the CSV",
			fmt.Errorf("unexpected status %s", resp.Status()))
		return
	}

	if !s.storeDataset(c, bytes.NewReader(resp.Body()), url) {
		return
	}
	c.Redirect(http.StatusSeeOther, "/tickets")
}

// storeDataset parses, date-prepares and stores a CSV in the session,
// reporting success. Failures render the upload page themselves.
func (s *Server) storeDataset(c *gin.Context, src io.Reader, name string) bool {
	ds, err := csvio.Read(src)
	if err != nil {
		s.uploadFailed(c, "Please upload a CSV file", err)
		return false
	}
	if ds.Len() == 0 {
		s.uploadFailed(c, "No Ticket Data Found", nil)
		return false
	}
	if err := bookings.PrepareDates(ds); err != nil {
		s.uploadFailed(c, "Could not read the booking dates", err)
		return false
	}

	s.sessions.put(c, &session{
		dataset:  ds,
		csvName:  name,
		uploaded: time.Now().Format("02-Jan 15:04"),
	})
	s.logger.Info("dataset stored",
		zap.String("source", name),
		zap.Int("rows", ds.Len()))
	return true
}

func (s *Server) uploadFailed(c *gin.Context, msg string, err error) {
	if err != nil {
		s.logger.Warn("upload rejected", zap.String("reason", msg), zap.Error(err))
	}
	v := s.vars(c, "upload")
	v.Error = msg
	if err != nil {
		v.Detail = err.Error()
	}
	c.HTML(http.StatusBadRequest, "upload.html", v)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func (s *Server) updateFilters(c *gin.Context) {
	err := s.store.Update(func(settings *config.Settings) {
		settings.ProductFilter = c.PostForm("filter")
		settings.HideOldOrders = c.PostForm("hideOld") == "hide"
		if date := c.PostForm("filterDate"); date != "" {
			settings.OldOrderDate = date
		}
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to save the configuration", err.Error())
		return
	}
	redirectBack(c)
}

func (s *Server) updateCSVURL(c *gin.Context) {
	err := s.store.Update(func(settings *config.Settings) {
		settings.CSVURL = c.PostForm("csvUrl")
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to save the configuration", err.Error())
		return
	}
	redirectBack(c)
}

func redirectBack(c *gin.Context) {
	target := c.Request.Referer()
	if target == "" {
		target = "/tickets"
	}
	c.Redirect(http.StatusSeeOther, target)
}

// =============================================================================
// PIPELINE RUNS
// =============================================================================

// run executes the derivation pipeline for one request: fresh settings
// snapshot, active data configuration, session dataset clone, filters and
// derivations. A false return means the error page has been rendered.
func (s *Server) run(c *gin.Context) (*bookings.Context, *table.Dataset, config.Settings, bool) {
	// Another process may have written the config file since our snapshot.
	if err := s.store.Reload(); err != nil {
		s.logger.Warn("config reload failed", zap.Error(err))
	}
	snap := s.store.Snapshot()

	dc, ok := s.dataConfigs[snap.ActiveDataConfig]
	if !ok {
		s.renderError(c, http.StatusInternalServerError, "Configuration error",
			fmt.Sprintf("unknown data config %q", snap.ActiveDataConfig))
		return nil, nil, snap, false
	}

	sess := s.sessions.get(c)
	if sess == nil || sess.dataset == nil {
		s.renderError(c, http.StatusOK, "Please upload a CSV", "")
		return nil, nil, snap, false
	}

	ds, err := bookings.ApplyFilters(sess.dataset.Clone(), snap)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Configuration error", err.Error())
		return nil, nil, snap, false
	}

	ctx := bookings.NewContext(dc, snap)
	if err := bookings.ParseBookings(ctx, ds); err != nil {
		s.renderPipelineError(c, err)
		return nil, nil, snap, false
	}
	return ctx, ds, snap, true
}

func (s *Server) renderPipelineError(c *gin.Context, err error) {
	var (
		configErr   *bookings.ConfigError
		contractErr *bookings.ContractError
		dataErr     *bookings.DataError
	)
	switch {
	case errors.Is(err, bookings.ErrEmptyTable):
		s.renderError(c, http.StatusOK, "No Ticket Data Found", "")
	case errors.As(err, &configErr):
		s.renderError(c, http.StatusInternalServerError, "Configuration error", configErr.Error())
	case errors.As(err, &contractErr):
		s.renderError(c, http.StatusInternalServerError, "Internal Server Error", contractErr.Error())
	case errors.As(err, &dataErr):
		s.renderError(c, http.StatusBadRequest, "Could not read the booking data", dataErr.Error())
	default:
		s.renderError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

// =============================================================================
// TABLE VIEWS
// =============================================================================

// viewCell and viewRow are the template-side projections of pipeline rows:
// cell text is pre-escaped markup by contract.
type viewCell struct {
	Text    template.HTML
	Align   string
	Colspan int
}

type viewRow struct {
	Kind    bookings.RowKind
	Heading string
	Cells   []viewCell
}

type tablePage struct {
	pageVars
	Header      []template.HTML
	Columns     int
	Rows        []viewRow
	DemarkTrain bool
	ShowFilter  bool
}

func (s *Server) ticketTable(c *gin.Context) {
	s.renderTable(c, "tickets", func(dc *config.DataConfig) config.TableSpec { return dc.TicketSheet }, true)
}

func (s *Server) alphabeticalTable(c *gin.Context) {
	s.renderTable(c, "alpha", func(dc *config.DataConfig) config.TableSpec { return dc.Alphabetical }, false)
}

func (s *Server) renderTable(c *gin.Context, active string, pick func(*config.DataConfig) config.TableSpec, dailyTotals bool) {
	ctx, ds, _, ok := s.run(c)
	if !ok {
		return
	}

	spec := pick(ctx.Config)
	rows, err := bookings.FormatForTable(ctx, ds, spec, dailyTotals)
	if err != nil {
		s.renderPipelineError(c, err)
		return
	}

	page := tablePage{
		pageVars:    s.vars(c, active),
		Columns:     len(spec.Columns),
		DemarkTrain: spec.DemarkTrain,
		ShowFilter:  !dailyTotals,
	}
	for _, col := range spec.Columns {
		page.Header = append(page.Header, template.HTML(col.Title))
	}
	for _, row := range rows {
		vr := viewRow{Kind: row.Kind, Heading: row.Heading}
		for _, cell := range row.Cells {
			vr.Cells = append(vr.Cells, viewCell{
				Text:    template.HTML(cell.Text),
				Align:   cell.Align,
				Colspan: cell.Colspan,
			})
		}
		page.Rows = append(page.Rows, vr)
	}

	c.HTML(http.StatusOK, "ticket_table.html", page)
}

// =============================================================================
// BREAKDOWN VIEWS
// =============================================================================

type breakdownPage struct {
	pageVars
	Events  []breakdown.EventTotal
	Days    []breakdown.DayTotal
	Grand   *breakdown.GrandTotal
	ByAge   *breakdown.Pivot
	ByTrain *breakdown.Pivot

	MaxMakeup template.HTML
	AvgMakeup template.HTML
}

func (s *Server) breakdownData(c *gin.Context) (*breakdownPage, bool) {
	ctx, ds, snap, ok := s.run(c)
	if !ok {
		return nil, false
	}

	events, err := breakdown.PerEvent(ctx, ds)
	if err != nil {
		s.renderPipelineError(c, err)
		return nil, false
	}
	grand, err := breakdown.Grand(ctx, ds)
	if err != nil {
		s.renderPipelineError(c, err)
		return nil, false
	}

	page := &breakdownPage{
		Events: events,
		Days:   breakdown.PerDay(events),
		Grand:  grand,
	}
	if ctx.PresentsColumn != "" && ds.HasColumn(ctx.PresentsColumn) {
		page.ByAge = breakdown.PresentsByAge(ds, ctx.PresentsColumn)
		page.ByTrain = breakdown.PresentsByTrain(ds, snap.TrainTimes(), ctx.PresentsColumn)
	}
	if grand.Extra != nil {
		page.MaxMakeup = template.HTML(grand.Extra.MaxPriceMakeup)
		page.AvgMakeup = template.HTML(grand.Extra.AverageMakeup)
	}
	return page, true
}

func (s *Server) breakdownPage(c *gin.Context) {
	page, ok := s.breakdownData(c)
	if !ok {
		return
	}
	page.pageVars = s.vars(c, "breakdown")
	c.HTML(http.StatusOK, "breakdown.html", page)
}

func (s *Server) breakdownExport(c *gin.Context) {
	page, ok := s.breakdownData(c)
	if !ok {
		return
	}

	book, err := export.BreakdownWorkbook(page.Events, page.Days, page.Grand, page.ByAge, page.ByTrain)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to build the export", err.Error())
		return
	}
	s.sendWorkbook(c, book, "breakdown.xlsx")
}

// =============================================================================
// TALLY VIEWS
// =============================================================================

type tallyIndexPage struct {
	pageVars
	Dates []string
}

type tallyPage struct {
	pageVars
	Date   string
	Sheet  *tally.Sheet
	Legend map[string][]string
}

func (s *Server) tallyIndex(c *gin.Context) {
	_, ds, _, ok := s.run(c)
	if !ok {
		return
	}
	page := tallyIndexPage{
		pageVars: s.vars(c, "tally"),
		Dates:    bookings.Dates(ds),
	}
	c.HTML(http.StatusOK, "tally_index.html", page)
}

func (s *Server) tallyData(c *gin.Context) (string, *tally.Sheet, bool) {
	date := c.Param("day") + "/" + c.Param("month")
	day, month, err := tally.ParseDate(date)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, "Invalid tally date", err.Error())
		return "", nil, false
	}

	ctx, ds, snap, ok := s.run(c)
	if !ok {
		return "", nil, false
	}
	if ctx.PresentsColumn == "" {
		s.renderError(c, http.StatusBadRequest, "Tally sheets need a seasonal data config", "")
		return "", nil, false
	}

	return date, tally.Generate(ctx, ds, day, month, snap.TrainLimits), true
}

func (s *Server) tallySheet(c *gin.Context) {
	date, sheet, ok := s.tallyData(c)
	if !ok {
		return
	}
	page := tallyPage{
		pageVars: s.vars(c, "tally"),
		Date:     date,
		Sheet:    sheet,
		Legend:   sheet.NeedsLegend(),
	}
	c.HTML(http.StatusOK, "tally.html", page)
}

func (s *Server) tallyExport(c *gin.Context) {
	date, sheet, ok := s.tallyData(c)
	if !ok {
		return
	}
	book, err := export.TallyWorkbook(date, sheet)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Failed to build the export", err.Error())
		return
	}
	s.sendWorkbook(c, book, "tally-"+strings.ReplaceAll(date, "/", "-")+".xlsx")
}

func (s *Server) sendWorkbook(c *gin.Context, book *excelize.File, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := book.Write(c.Writer); err != nil {
		s.logger.Error("workbook write failed", zap.Error(err))
	}
}
