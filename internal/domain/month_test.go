package domain

import (
	"testing"
	"time"
)

func TestMonthOfKeepsLocalCalendarMonth(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2023-03-01 02:00 in UTC+9 is still February in UTC.
	now := time.Date(2023, 3, 1, 2, 0, 0, 0, loc)
	got := MonthOf(now)
	want := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected MonthOf: got %v want %v", got, want)
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		from, to time.Time
		want     int
	}{
		{time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 22},
		{time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), 27},
		{time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), -3},
	}
	for _, tc := range tests {
		if got := MonthsBetween(tc.from, tc.to); got != tc.want {
			t.Fatalf("MonthsBetween(%s, %s) = %d, want %d", tc.from.Format(MonthFormat), tc.to.Format(MonthFormat), got, tc.want)
		}
	}
}

func TestNameWithLink(t *testing.T) {
	if got := NameWithLink("AZ-900", "https://learn.example.com/az900"); got != "[AZ-900](https://learn.example.com/az900)" {
		t.Fatalf("unexpected linked name: %q", got)
	}
	if got := NameWithLink("AZ-900", ""); got != "AZ-900" {
		t.Fatalf("unexpected plain name: %q", got)
	}
	if got := NameWithLink("AZ-900", "   "); got != "AZ-900" {
		t.Fatalf("blank link should produce plain name, got %q", got)
	}
}

func TestSummaryHeadline(t *testing.T) {
	got := Summary{Total: 12, Years: 2, Months: 3}.Headline()
	if got != "12 Certificates over 2 Years and 3 Months" {
		t.Fatalf("unexpected headline: %q", got)
	}
}
