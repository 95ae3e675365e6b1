package bolt_test

import (
	"testing"
	"time"

	"roaming-recon/internal/bolt"
)

func TestParseRecordDate(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      time.Time
		expectErr bool
	}{
		{"call month", "202505", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), false},
		{"iso date", "2025-05-03", time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC), false},
		{"iso datetime", "2025-05-03T10:20:30", time.Date(2025, 5, 3, 10, 20, 30, 0, time.UTC), false},
		{"rfc3339", "2025-05-03T10:20:30Z", time.Date(2025, 5, 3, 10, 20, 30, 0, time.UTC), false},
		{"space-separated datetime", "2025-05-03 10:20:30", time.Date(2025, 5, 3, 10, 20, 30, 0, time.UTC), false},
		{"month out of range", "202513", time.Time{}, true},
		{"not a date", "unknown_date", time.Time{}, true},
		{"too short", "2025", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bolt.ParseRecordDate(tt.in)
			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeToFirstOfMonth(t *testing.T) {
	in := time.Date(2025, 5, 17, 13, 45, 30, 999, time.UTC)
	want := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := bolt.NormalizeToFirstOfMonth(in); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
