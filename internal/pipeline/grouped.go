package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"certdash/internal/domain"
)

// OthersLabel names the bucket that collects low-frequency organizations.
const OthersLabel = "Others"

type Field int

const (
	FieldTopic Field = iota
	FieldOrganization
)

func (f Field) String() string {
	switch f {
	case FieldTopic:
		return "topic"
	case FieldOrganization:
		return "organization"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField maps "topic"/"group" and "organization"/"org" to a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "topic", "group":
		return FieldTopic, nil
	case "organization", "org":
		return FieldOrganization, nil
	}
	return 0, fmt.Errorf("unknown grouping field %q", s)
}

func (f Field) value(rec domain.CertificateRecord) string {
	if f == FieldOrganization {
		return rec.Organization
	}
	return rec.Group
}

// ComputeGrouped counts records per category of field, sorted ascending by
// count with ties kept in first-seen order. For organizations, categories
// below opts.OrgBucketThreshold are folded into OthersLabel before sorting;
// the bucket is omitted when nothing falls into it.
func ComputeGrouped(records []domain.CertificateRecord, field Field, opts Options) []domain.CategoryCount {
	var order []string
	counts := make(map[string]int)
	for _, rec := range records {
		label := field.value(rec)
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	groups := make([]domain.CategoryCount, 0, len(order)+1)
	others := 0
	for _, label := range order {
		count := counts[label]
		// A real category called "Others" merges into the bucket.
		if field == FieldOrganization && (count < opts.OrgBucketThreshold || label == OthersLabel) {
			others += count
			continue
		}
		groups = append(groups, domain.CategoryCount{Label: label, Count: count})
	}
	if others > 0 {
		groups = append(groups, domain.CategoryCount{Label: OthersLabel, Count: others})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count < groups[j].Count
	})
	markShares(groups, opts.HighlightSharePercent)
	return groups
}

// markShares fills Share and Major. A zero total leaves every category minor.
func markShares(groups []domain.CategoryCount, highlightPercent float64) {
	total := 0
	for _, g := range groups {
		total += g.Count
	}
	if total == 0 {
		return
	}
	for i := range groups {
		count := float64(groups[i].Count)
		groups[i].Share = count / float64(total)
		groups[i].Major = count*100 >= highlightPercent*float64(total)
	}
}
