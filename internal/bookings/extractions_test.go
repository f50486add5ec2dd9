package bookings

import (
	"reflect"
	"testing"

	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

func TestPresentCodes(t *testing.T) {
	cases := []struct {
		name     string
		presents string
		ages     string
		want     []string
	}{
		{
			name:     "ages matched by number",
			presents: "#1: Boy\n#2: Girl",
			ages:     "#1: 0 to 1 yrs old\n#2: 7 yrs old",
			want:     []string{"BU1", "G7"},
		},
		{
			name:     "missing age entry",
			presents: "#1: Boy\n#2: Girl",
			ages:     "#2: 4 yrs old",
			want:     []string{"BChoose", "G4"},
		},
		{
			name:     "blank age entry",
			presents: "#1: Boy\n#2: Girl",
			ages:     "#1: \n#2: 4 yrs old",
			want:     []string{"BChoose", "G4"},
		},
		{
			name:     "unrecognised gender",
			presents: "#1: Dinosaur",
			ages:     "#1: 3 yrs old",
			want:     []string{"?3"},
		},
		{
			name:     "no presents",
			presents: "",
			ages:     "#1: 4 yrs old",
			want:     []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := table.Row{"Present Type": tc.presents, "Child Age": tc.ages}
			got := presentCodes(row, "Present Type", []string{"Child Age"})
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
