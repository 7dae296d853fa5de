package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"certdash/internal/domain"
	"certdash/internal/pipeline"
)

func sampleDashboard(t *testing.T) *pipeline.Dashboard {
	t.Helper()
	d, err := pipeline.Build(filepath.Join("..", "pipeline", "testdata", "cert_list.csv"),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), pipeline.DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return d
}

func TestRenderSections(t *testing.T) {
	d := sampleDashboard(t)
	out := Render(d, domain.Profile{
		Title:    "Jamie's Certificates",
		Name:     "Jamie Doe",
		Role:     "Data Engineer",
		LinkedIn: "https://www.linkedin.com/in/jamie",
	})

	for _, want := range []string{
		"# Jamie's Certificates",
		"Jamie Doe, Data Engineer | [LinkedIn](https://www.linkedin.com/in/jamie)",
		"**10 Certificates over 1 Years and 10 Months**",
		"As of 2024-01-15.",
		"## Timeline",
		"## By Topic",
		"## By Organization",
		"| **Microsoft** | 6 | 60% |",
		"| **Others** | 4 | 40% |",
		"| **Data** | 5 | 50% |",
		"| Date | Name | Topic | Organization |",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}

	// Largest category first.
	if strings.Index(out, "**Microsoft**") > strings.Index(out, "| **Others** |") {
		t.Fatal("organizations should be listed largest first")
	}
}

func TestRenderTimelineSkipsEmptyMonths(t *testing.T) {
	d := pipeline.BuildFromRecords([]domain.CertificateRecord{
		{Name: "A", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Group: "Cloud", Organization: "X", NameLink: "A"},
		{Name: "B", Date: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), Group: "Cloud", Organization: "X", NameLink: "B"},
	}, time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC), pipeline.DefaultOptions())

	out := Render(d, domain.Profile{})
	if !strings.Contains(out, "| 2023-01 | 1 | 1 |") || !strings.Contains(out, "| 2023-03 | 1 | 2 |") {
		t.Fatalf("expected active months in timeline:\n%s", out)
	}
	if strings.Contains(out, "| 2023-02 |") {
		t.Fatal("months without certificates should be skipped")
	}
	if !strings.HasPrefix(out, "# Certificates\n") {
		t.Fatalf("expected default title, got %q", out[:20])
	}
}

func TestEscapeCell(t *testing.T) {
	if got := escapeCell("a|b"); got != `a\|b` {
		t.Fatalf("unexpected escape: %q", got)
	}
}

func TestWriteReportFile(t *testing.T) {
	outDir := t.TempDir()
	date := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	reportPath, err := WriteReportFile("hello report\n", outDir, date, "certificates")
	if err != nil {
		t.Fatalf("WriteReportFile failed: %v", err)
	}
	if !strings.HasSuffix(reportPath, "certificates_20260220.md") {
		t.Fatalf("unexpected report file path: %s", reportPath)
	}
	if data, err := os.ReadFile(reportPath); err != nil || string(data) != "hello report\n" {
		t.Fatalf("unexpected report file content err=%v content=%q", err, string(data))
	}
}

func TestWriteReportFileSanitizesName(t *testing.T) {
	outDir := t.TempDir()
	date := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		title        string
		expectSuffix string
	}{
		{name: "path separators", title: "../Ops\\Team", expectSuffix: "_Ops_Team_20260220.md"},
		{name: "spaces", title: "Jamie Doe", expectSuffix: "Jamie_Doe_20260220.md"},
		{name: "only dots", title: "..", expectSuffix: "certificates_20260220.md"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			reportPath, err := WriteReportFile("hello report\n", outDir, date, tc.title)
			if err != nil {
				t.Fatalf("WriteReportFile failed: %v", err)
			}
			if filepath.Dir(reportPath) != outDir {
				t.Fatalf("report escaped output dir: %s", reportPath)
			}
			base := filepath.Base(reportPath)
			if base != tc.expectSuffix {
				t.Fatalf("unexpected sanitized name: got %s want %s", base, tc.expectSuffix)
			}
		})
	}
}
