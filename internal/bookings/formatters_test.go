package bookings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFmtTitleCase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"o'brien", "O'Brien"},
		{"MCGREGOR", "Mcgregor"},
		{"anne-marie", "Anne-Marie"},
		{"smith", "Smith"},
	}
	for _, tc := range cases {
		if got := fmtTitleCase(tc.in); got != tc.want {
			t.Fatalf("fmtTitleCase(%q) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestFmtInsertHTMLNewlinesEscapes(t *testing.T) {
	got := fmtInsertHTMLNewlines("Adult: 2 (£9.00)\n<script>")
	want := "Adult: 2 (£9.00)<br>&lt;script&gt;"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTimeFormatters(t *testing.T) {
	dt := time.Date(2024, time.November, 30, 11, 30, 0, 0, time.UTC)
	if got := fmtTrainTime(dt); got != "11:30" {
		t.Fatalf("train_time expected 11:30, got %s", got)
	}
	if got := fmtTrainDate(dt); got != "30/11" {
		t.Fatalf("train_date expected 30/11, got %s", got)
	}
	if got := fmtSimpleDate(dt); got != "Sat 30/11" {
		t.Fatalf("simple_date expected Sat 30/11, got %s", got)
	}
}

func TestFmtPrice(t *testing.T) {
	if got := fmtPrice(decimal.RequireFromString("9.5")); got != "9.50" {
		t.Fatalf("expected 9.50, got %s", got)
	}
	if got := fmtPrice("not a price"); got != "0.00" {
		t.Fatalf("mistyped cell expected 0.00, got %s", got)
	}
}

func TestHeadingDate(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC), "SATURDAY NOVEMBER 30TH"},
		{time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), "SUNDAY DECEMBER 1ST"},
		{time.Date(2024, time.December, 2, 0, 0, 0, 0, time.UTC), "MONDAY DECEMBER 2ND"},
		{time.Date(2024, time.December, 3, 0, 0, 0, 0, time.UTC), "TUESDAY DECEMBER 3RD"},
		{time.Date(2024, time.December, 12, 0, 0, 0, 0, time.UTC), "THURSDAY DECEMBER 12TH"},
	}
	for _, tc := range cases {
		if got := HeadingDate(tc.in); got != tc.want {
			t.Fatalf("HeadingDate(%v) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
