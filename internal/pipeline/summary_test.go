package pipeline

import (
	"testing"
	"time"

	"certdash/internal/domain"
)

func TestComputeSummary(t *testing.T) {
	tests := []struct {
		name       string
		earliest   time.Time
		now        time.Time
		wantYears  int
		wantMonths int
	}{
		{"two years three months", month(2021, time.June), time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC), 2, 3},
		{"one year ten months", month(2022, time.March), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 1, 10},
		{"same month", month(2024, time.May), time.Date(2024, 5, 28, 0, 0, 0, 0, time.UTC), 0, 0},
		{"exact years", month(2020, time.April), time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), 3, 0},
		{"future earliest clamps", month(2025, time.January), time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 0, 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			records := []domain.CertificateRecord{
				rec("later", tc.earliest.AddDate(0, 2, 0), "Cloud", "A"),
				rec("earliest", tc.earliest, "Cloud", "A"),
			}
			got := ComputeSummary(records, tc.now)
			if got.Total != 2 {
				t.Fatalf("unexpected total: %d", got.Total)
			}
			if got.Years != tc.wantYears || got.Months != tc.wantMonths {
				t.Fatalf("got %dy%dm, want %dy%dm", got.Years, got.Months, tc.wantYears, tc.wantMonths)
			}
			if !got.First.Equal(tc.earliest) {
				t.Fatalf("unexpected first month: %v", got.First)
			}
		})
	}
}

func TestComputeSummaryEmpty(t *testing.T) {
	got := ComputeSummary(nil, time.Now())
	if got.Total != 0 || got.Years != 0 || got.Months != 0 || !got.First.IsZero() {
		t.Fatalf("unexpected empty summary: %+v", got)
	}
}
