// Package pipeline turns the certificate CSV into the series, groupings,
// table rows and headline numbers shown by the dashboard.
//
// Every function takes the current time explicitly; nothing reads the wall
// clock, so results are reproducible for a fixed now.
package pipeline

import (
	"fmt"
	"time"

	"certdash/internal/domain"
)

const (
	DefaultOrgBucketThreshold    = 5
	DefaultHighlightSharePercent = 20.0
)

type Options struct {
	OrgBucketThreshold    int     `json:"org_bucket_threshold"`
	HighlightSharePercent float64 `json:"highlight_share_percent"`
}

func DefaultOptions() Options {
	return Options{
		OrgBucketThreshold:    DefaultOrgBucketThreshold,
		HighlightSharePercent: DefaultHighlightSharePercent,
	}
}

// Dashboard is one complete, immutable computation over the input file.
type Dashboard struct {
	Summary       domain.Summary         `json:"summary"`
	Series        []domain.MonthPoint    `json:"series"`
	Topics        []domain.CategoryCount `json:"topics"`
	Organizations []domain.CategoryCount `json:"organizations"`
	Rows          []domain.DisplayRow    `json:"rows"`
	Options       Options                `json:"options"`
	Source        string                 `json:"source,omitempty"`
	AsOf          time.Time              `json:"as_of"`
}

// Build loads path and computes every result set. It fails as a unit: any
// load error or an empty file yields no dashboard.
func Build(path string, now time.Time, opts Options) (*Dashboard, error) {
	records, err := Load(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}
	d := BuildFromRecords(records, now, opts)
	d.Source = path
	return d, nil
}

func BuildFromRecords(records []domain.CertificateRecord, now time.Time, opts Options) *Dashboard {
	return &Dashboard{
		Summary:       ComputeSummary(records, now),
		Series:        ComputeMonthlySeries(records, now),
		Topics:        ComputeGrouped(records, FieldTopic, opts),
		Organizations: ComputeGrouped(records, FieldOrganization, opts),
		Rows:          ToDisplayRows(records),
		Options:       opts,
		AsOf:          now,
	}
}
