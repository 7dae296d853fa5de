package pipeline

import "certdash/internal/domain"

// ToDisplayRows flattens records for the table, keeping input order.
func ToDisplayRows(records []domain.CertificateRecord) []domain.DisplayRow {
	rows := make([]domain.DisplayRow, 0, len(records))
	for _, rec := range records {
		name := rec.NameLink
		if name == "" {
			name = domain.NameWithLink(rec.Name, rec.Link)
		}
		rows = append(rows, domain.DisplayRow{
			Month:        rec.Date.Format(domain.MonthFormat),
			Name:         name,
			Title:        rec.Name,
			Link:         rec.Link,
			Topic:        rec.Group,
			Organization: rec.Organization,
		})
	}
	return rows
}
