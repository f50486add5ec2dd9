package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/eldermoor-railway/ticket-sheets/internal/config"
)

const testCSV = `Order ID,Booking ID,Product title,Quantity,Product price,Price categories,Start date,Customer first name,Customer last name,Special Needs
101,7,Santa Special,4,£32.00,"Adult: 2 (£9.00)
Child: 2 (£7.00)",Saturday December 6th 2025 11:30 AM,jane,o'brien,
102,8,Santa Special,2,£18.00,Adult: 2 (£9.00),Saturday December 6th 2025 2:00 PM,TOM,SMITH,
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := config.Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}
	configs, err := config.LoadDataConfigs("")
	if err != nil {
		t.Fatalf("LoadDataConfigs: %v", err)
	}
	return New(store, configs, nil)
}

func uploadCSV(t *testing.T, router *gin.Engine, csv string) []*http.Cookie {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("fileupload", "bookings.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("write form: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload: expected redirect, got %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func get(router *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndTicketSheet(t *testing.T) {
	router := newTestServer(t).Router()
	cookies := uploadCSV(t, router, testCSV)

	rec := get(router, "/tickets", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("tickets: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"SATURDAY DECEMBER 6TH", "O&#39;Brien", "Smith", "<b>Totals</b>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("ticket sheet missing %q:\n%s", want, body)
		}
	}
}

func TestAlphabeticalSheet(t *testing.T) {
	router := newTestServer(t).Router()
	cookies := uploadCSV(t, router, testCSV)

	rec := get(router, "/alpha", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("alpha: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	// Sorted by first name: Jane before Tom.
	if strings.Index(body, "Jane") > strings.Index(body, "Tom") {
		t.Fatal("expected Jane before Tom in the alphabetical listing")
	}
}

func TestBreakdownPage(t *testing.T) {
	router := newTestServer(t).Router()
	cookies := uploadCSV(t, router, testCSV)

	rec := get(router, "/breakdown", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("breakdown: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "06/12/25") {
		t.Fatalf("breakdown missing the event date:\n%s", rec.Body.String())
	}
}

func TestViewsWithoutUpload(t *testing.T) {
	router := newTestServer(t).Router()
	for _, path := range []string{"/tickets", "/alpha", "/breakdown", "/tally"} {
		rec := get(router, path, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Please upload a CSV") {
			t.Fatalf("%s: expected the upload prompt, got %d", path, rec.Code)
		}
	}
}

func TestUploadRejectsEmptyCSV(t *testing.T) {
	router := newTestServer(t).Router()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, _ := form.CreateFormFile("fileupload", "empty.csv")
	part.Write([]byte("Order ID,Start date\n"))
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty export, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No Ticket Data Found") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestTamperedCookieDropsSession(t *testing.T) {
	router := newTestServer(t).Router()
	cookies := uploadCSV(t, router, testCSV)

	for _, c := range cookies {
		if c.Name == sessionCookie {
			c.Value = strings.Replace(c.Value, ".", "x.", 1)
		}
	}
	rec := get(router, "/tickets", cookies)
	if !strings.Contains(rec.Body.String(), "Please upload a CSV") {
		t.Fatal("a tampered cookie must not resolve to a session")
	}
}

func TestSessionSigningRoundTrip(t *testing.T) {
	store := newSessionStore("secret")
	signed := store.sign("abc")
	if !strings.HasPrefix(signed, "abc.") {
		t.Fatalf("unexpected signed form %q", signed)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: sessionCookie, Value: signed})

	id, ok := store.requestID(c)
	if !ok || id != "abc" {
		t.Fatalf("expected verified id abc, got %q (%v)", id, ok)
	}

	other := newSessionStore("different secret")
	if _, ok := other.requestID(c); ok {
		t.Fatal("a cookie signed under another key must not verify")
	}
}
