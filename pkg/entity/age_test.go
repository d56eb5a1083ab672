package entity

import (
	"testing"
	"time"
)

func TestAge(t *testing.T) {
	dob := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before birthday", time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC), 23},
		{"on birthday", time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), 24},
		{"earlier month", time.Date(2024, time.January, 30, 0, 0, 0, 0, time.UTC), 23},
		{"later month", time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Age(dob, tt.now); got != tt.want {
				t.Fatalf("Age() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAgeFromString(t *testing.T) {
	now := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)
	got, err := AgeFromString("2000-06-15", now)
	if err != nil {
		t.Fatalf("age: %v", err)
	}
	if got != 23 {
		t.Fatalf("expected 23, got %d", got)
	}

	if _, err := AgeFromString("not-a-date", now); err == nil {
		t.Fatalf("expected parse error")
	}

	got, err = AgeFromString("2000-06-15T10:00:00Z", now)
	if err != nil || got != 23 {
		t.Fatalf("rfc3339 dob: got %d, %v", got, err)
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, time.March, 9, 23, 30, 0, 0, time.FixedZone("x", -2*3600))
	if got := Today(now); got != "2024-03-10" {
		t.Fatalf("Today() = %q", got)
	}
}
