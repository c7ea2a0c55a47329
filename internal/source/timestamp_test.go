package source

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T10:00:00Z", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
		{"2025-01-02T10:00:00.123456+01:00", time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)},
		{"2025-01-02T10:00:00", time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local)},
		{"Thu, 02 Jan 2025 10:00:00 +0000", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
		{"Thu, 2 Jan 2025 12:00:00 +0200", time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q): %v", tt.in, err)
			}
			if got != tt.want.Unix() {
				t.Errorf("ParseTimestamp(%q) = %d, want %d", tt.in, got, tt.want.Unix())
			}
		})
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2025-13-45"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Errorf("ParseTimestamp(%q) should fail", in)
		}
	}
}
