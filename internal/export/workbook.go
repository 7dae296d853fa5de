// Package export writes the dashboard as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"certdash/internal/domain"
	"certdash/internal/pipeline"
)

const (
	SheetCertificates  = "Certificates"
	SheetTopics        = "By Topic"
	SheetOrganizations = "By Organization"
	SheetTimeline      = "Timeline"
)

// Build assembles the workbook. The caller closes it.
func Build(d *pipeline.Dashboard) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetCertificates); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	link, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "1265BE", Underline: "single"}})
	if err != nil {
		f.Close()
		return nil, err
	}

	steps := []func() error{
		func() error { return writeCertificates(f, d.Rows, bold, link) },
		func() error { return writeCategories(f, SheetTopics, "Topic", d.Topics, bold) },
		func() error { return writeCategories(f, SheetOrganizations, "Organization", d.Organizations, bold) },
		func() error { return writeTimeline(f, d.Series, bold) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for d to w.
func Write(w io.Writer, d *pipeline.Dashboard) error {
	f, err := Build(d)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeCertificates(f *excelize.File, rows []domain.DisplayRow, bold, link int) error {
	sheet := SheetCertificates
	headers := []string{"Date", "Name", "Topic", "Organization", "Link"}
	if err := writeHeader(f, sheet, headers, []float64{10, 44, 18, 24, 50}, bold); err != nil {
		return err
	}
	for i, r := range rows {
		row := i + 2
		values := []any{r.Month, r.Title, r.Topic, r.Organization, r.Link}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		if r.Link == "" {
			continue
		}
		nameCell := fmt.Sprintf("B%d", row)
		if err := f.SetCellHyperLink(sheet, nameCell, r.Link, "External"); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, nameCell, nameCell, link); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return f.AutoFilter(sheet, fmt.Sprintf("A1:E%d", len(rows)+1), nil)
}

// writeCategories lists groups largest first.
func writeCategories(f *excelize.File, sheet, label string, groups []domain.CategoryCount, bold int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, []string{label, "Count", "Share", "Highlighted"}, []float64{28, 10, 10, 12}, bold); err != nil {
		return err
	}
	row := 2
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		highlighted := "no"
		if g.Major {
			highlighted = "yes"
		}
		for col, v := range []any{g.Label, g.Count, g.Share, highlighted} {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
	}
	if row == 2 {
		return nil
	}
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", row-1), pct)
}

func writeTimeline(f *excelize.File, series []domain.MonthPoint, bold int) error {
	if _, err := f.NewSheet(SheetTimeline); err != nil {
		return err
	}
	if err := writeHeader(f, SheetTimeline, []string{"Month", "Count", "Cumulative"}, []float64{10, 10, 12}, bold); err != nil {
		return err
	}
	for i, p := range series {
		row := i + 2
		for col, v := range []any{p.Label, p.Count, p.Cumulative} {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetTimeline, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
