package bookings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseBookingDate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{
			"Saturday November 30th 2024 11:30 AM",
			time.Date(2024, time.November, 30, 11, 30, 0, 0, time.UTC),
		},
		{
			"Sunday, December 1st, 2024 2:15 PM",
			time.Date(2024, time.December, 1, 14, 15, 0, 0, time.UTC),
		},
		{
			"Monday December 2nd 2024 9:00 AM",
			time.Date(2024, time.December, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			"Friday August 23rd 2024 12:00 PM",
			time.Date(2024, time.August, 23, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		got, err := ParseBookingDate(tc.in)
		if err != nil {
			t.Fatalf("ParseBookingDate(%q) error: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseBookingDate(%q) expected %v, got %v", tc.in, tc.want, got)
		}
	}

	if _, err := ParseBookingDate("not a date"); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestConvTidyPrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"£25.00", "25"},
		{"&pound;9.50", "9.5"},
		{"Â£0.00", "0"},
		{"12.34", "12.34"},
		{"", "0"},
		{"free", "0"},
	}
	for _, tc := range cases {
		got := convTidyPrice(tc.in).(decimal.Decimal)
		if got.String() != tc.want {
			t.Fatalf("convTidyPrice(%q) expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestConvSimplifyProduct(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Steam Gala Weekend Tickets", "Steam Gala w/e"},
		{"Santa Special - Day Ticket", "Santa Special"},
		{"Footplate Experience Ticket", "Footplate Experience"},
		{"Mince Pie Special", "Mince Pie Special"},
	}
	for _, tc := range cases {
		if got := convSimplifyProduct(tc.in); got != tc.want {
			t.Fatalf("convSimplifyProduct(%q) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestConvParseInt(t *testing.T) {
	if got := convParseInt(" 42 "); got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
	if got := convParseInt("4.5"); got != 0 {
		t.Fatalf("invalid int must degrade to 0, got %v", got)
	}
	if got := convParseInt(""); got != 0 {
		t.Fatalf("empty cell must degrade to 0, got %v", got)
	}
}

func TestConvParseAccompanying(t *testing.T) {
	if got := convParseAccompanying("2£10.00"); got != 2 {
		t.Fatalf("expected count 2, got %v", got)
	}
	if got := convParseAccompanying(""); got != 0 {
		t.Fatalf("expected count 0, got %v", got)
	}
}
