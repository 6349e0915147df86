package viewmodel

import "testing"

func TestFormatDateForDisplay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"7/20/2025", "July 20, 2025"},
		{"07/04/2025", "July 4, 2025"},
		{"12/31/1999", "December 31, 1999"},
		{"not-a-date", "not-a-date"},
		{"", ""},
		{"13/01/2025", "13/01/2025"},
		{"2025-07-20", "2025-07-20"},
	}
	for _, tt := range tests {
		if got := FormatDateForDisplay(tt.in); got != tt.want {
			t.Errorf("FormatDateForDisplay(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
