package main

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		text    string
		want    string
		wantErr bool
	}{
		{"2024-02-29", "2024-02-29", false},
		{" 2024-03-01 ", "2024-03-01", false},
		{"yesterday", "2024-03-13", false},
		{"today", "2024-03-14", false},
		{"zzz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := parseDay(tt.text, now)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseDay(%q) = %v, want error", tt.text, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDay(%q) error: %v", tt.text, err)
			}
			if d := got.Format("2006-01-02"); d != tt.want {
				t.Errorf("parseDay(%q) = %s, want %s", tt.text, d, tt.want)
			}
		})
	}
}
