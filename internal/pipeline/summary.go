package pipeline

import (
	"time"

	"certdash/internal/domain"
)

// ComputeSummary returns the record count and the calendar time elapsed
// between the earliest certificate and now, as whole years plus 0-11 months.
// Days are ignored; an earliest month after now counts as zero elapsed time.
func ComputeSummary(records []domain.CertificateRecord, now time.Time) domain.Summary {
	summary := domain.Summary{Total: len(records)}
	if len(records) == 0 {
		return summary
	}

	earliest := records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(earliest) {
			earliest = rec.Date
		}
	}
	summary.First = domain.MonthOf(earliest)

	elapsed := domain.MonthsBetween(summary.First, domain.MonthOf(now))
	if elapsed < 0 {
		elapsed = 0
	}
	summary.Years = elapsed / 12
	summary.Months = elapsed % 12
	return summary
}
