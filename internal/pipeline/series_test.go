package pipeline

import (
	"testing"
	"time"

	"certdash/internal/domain"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func rec(name string, date time.Time, group, org string) domain.CertificateRecord {
	return domain.CertificateRecord{Name: name, Date: date, Group: group, Organization: org, NameLink: name}
}

func TestComputeMonthlySeriesFillsGaps(t *testing.T) {
	records := []domain.CertificateRecord{
		rec("a", month(2023, time.January), "Cloud", "A"),
		rec("b", month(2023, time.January), "Cloud", "A"),
		rec("c", month(2023, time.March), "Data", "B"),
	}
	now := time.Date(2023, 5, 17, 10, 0, 0, 0, time.UTC)

	series := ComputeMonthlySeries(records, now)
	if len(series) != 5 {
		t.Fatalf("expected Jan..May = 5 points, got %d", len(series))
	}
	byLabel := make(map[string]domain.MonthPoint)
	for _, p := range series {
		byLabel[p.Label] = p
	}
	if p := byLabel["2023-02"]; p.Count != 0 || p.Cumulative != 2 {
		t.Fatalf("unexpected 2023-02 point: %+v", p)
	}
	if p := byLabel["2023-03"]; p.Count != 1 || p.Cumulative != 3 {
		t.Fatalf("unexpected 2023-03 point: %+v", p)
	}
	if last := series[len(series)-1]; last.Label != "2023-05" || last.Cumulative != 3 {
		t.Fatalf("unexpected last point: %+v", last)
	}
}

func TestComputeMonthlySeriesRangeCompleteness(t *testing.T) {
	records := []domain.CertificateRecord{
		rec("a", month(2021, time.June), "Cloud", "A"),
		rec("b", month(2022, time.December), "Cloud", "A"),
		rec("c", month(2023, time.February), "Data", "B"),
		rec("d", month(2021, time.June), "Data", "B"),
	}
	now := time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC)
	series := ComputeMonthlySeries(records, now)

	start := month(2021, time.January)
	want := domain.MonthsBetween(start, month(2023, time.September)) + 1
	if len(series) != want {
		t.Fatalf("expected %d months, got %d", want, len(series))
	}
	for i, p := range series {
		expected := start.AddDate(0, i, 0)
		if !p.Month.Equal(expected) {
			t.Fatalf("point %d: got month %v want %v", i, p.Month, expected)
		}
		if p.Label != expected.Format(domain.MonthFormat) {
			t.Fatalf("point %d: unexpected label %q", i, p.Label)
		}
		if i > 0 && p.Cumulative < series[i-1].Cumulative {
			t.Fatalf("cumulative decreased at %d: %d < %d", i, p.Cumulative, series[i-1].Cumulative)
		}
		if i > 0 && p.Cumulative != series[i-1].Cumulative+p.Count {
			t.Fatalf("cumulative mismatch at %d: %+v after %+v", i, p, series[i-1])
		}
	}
	if last := series[len(series)-1]; last.Cumulative != len(records) {
		t.Fatalf("final cumulative %d != total %d", last.Cumulative, len(records))
	}
}

func TestComputeMonthlySeriesEmpty(t *testing.T) {
	now := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	series := ComputeMonthlySeries(nil, now)
	if len(series) != 1 {
		t.Fatalf("expected single degenerate point, got %d", len(series))
	}
	if series[0].Label != "2024-02" || series[0].Count != 0 || series[0].Cumulative != 0 {
		t.Fatalf("unexpected degenerate point: %+v", series[0])
	}
}

func TestComputeMonthlySeriesFutureRecordExtendsRange(t *testing.T) {
	records := []domain.CertificateRecord{
		rec("a", month(2023, time.November), "Cloud", "A"),
		rec("b", month(2024, time.February), "Cloud", "A"),
	}
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	series := ComputeMonthlySeries(records, now)
	last := series[len(series)-1]
	if last.Label != "2024-02" || last.Cumulative != 2 {
		t.Fatalf("expected range to reach the future record, got %+v", last)
	}
}

func TestComputeMonthlySeriesUsesNowLocation(t *testing.T) {
	records := []domain.CertificateRecord{rec("a", month(2023, time.January), "Cloud", "A")}
	loc := time.FixedZone("UTC-5", -5*3600)
	// Still March locally even though it is April in UTC.
	now := time.Date(2023, 3, 31, 22, 0, 0, 0, loc)
	series := ComputeMonthlySeries(records, now)
	if last := series[len(series)-1]; last.Label != "2023-03" {
		t.Fatalf("expected series to end at local month 2023-03, got %s", last.Label)
	}
}
