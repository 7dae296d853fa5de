package pipeline

import (
	"time"

	"certdash/internal/domain"
)

// ComputeMonthlySeries counts certificates per month over the contiguous
// range from January of the earliest record's year through now's month,
// filling empty months with zero and carrying a running total.
//
// Records dated after now extend the range to their month so the final
// cumulative value always equals len(records).
func ComputeMonthlySeries(records []domain.CertificateRecord, now time.Time) []domain.MonthPoint {
	end := domain.MonthOf(now)
	if len(records) == 0 {
		return []domain.MonthPoint{{Month: end, Label: end.Format(domain.MonthFormat)}}
	}

	counts := make(map[int]int)
	earliest := domain.MonthOf(records[0].Date)
	for _, rec := range records {
		month := domain.MonthOf(rec.Date)
		counts[monthKey(month)]++
		if month.Before(earliest) {
			earliest = month
		}
		if month.After(end) {
			end = month
		}
	}

	start := domain.YearStart(earliest)
	series := make([]domain.MonthPoint, 0, domain.MonthsBetween(start, end)+1)
	cumulative := 0
	for month := start; !month.After(end); month = month.AddDate(0, 1, 0) {
		count := counts[monthKey(month)]
		cumulative += count
		series = append(series, domain.MonthPoint{
			Month:      month,
			Label:      month.Format(domain.MonthFormat),
			Count:      count,
			Cumulative: cumulative,
		})
	}
	return series
}

func monthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
