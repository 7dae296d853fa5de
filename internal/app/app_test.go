package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"certdash/internal/pipeline"
)

var sampleCSV = filepath.Join("..", "pipeline", "testdata", "cert_list.csv")

func setTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing-config.yaml"))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REPORT_OUTPUT_DIR", filepath.Join(dir, "reports"))
	t.Setenv("HISTORY_DB_PATH", "")
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_CHANNEL_ID", "")
	return dir
}

func runCmd(t *testing.T, argv ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(argv)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	setTestEnv(t)

	out, err := runCmd(t, "summary", "--data", sampleCSV)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	for _, want := range []string{"10 Certificates over", "Topics:", "Organizations:", "Microsoft", pipeline.OthersLabel} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}
	if strings.Index(out, "Microsoft") > strings.Index(out, pipeline.OthersLabel) {
		t.Fatalf("largest organization should be printed first:\n%s", out)
	}
}

func TestSummaryCommandJSON(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATA_PATH", sampleCSV)

	out, err := runCmd(t, "summary", "--json")
	if err != nil {
		t.Fatalf("summary --json failed: %v", err)
	}
	var d pipeline.Dashboard
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("decode summary json: %v", err)
	}
	if d.Summary.Total != 10 || len(d.Rows) != 10 {
		t.Fatalf("unexpected dashboard: %+v", d.Summary)
	}
}

func TestReportCommand(t *testing.T) {
	dir := setTestEnv(t)

	out, err := runCmd(t, "report", "--data", sampleCSV)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	path := strings.TrimSpace(out)
	if filepath.Dir(path) != filepath.Join(dir, "reports") || !strings.HasPrefix(filepath.Base(path), "Certificates_") {
		t.Fatalf("unexpected report path: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "## By Topic") {
		t.Fatalf("unexpected report content:\n%s", data)
	}

	out, err = runCmd(t, "report", "--data", sampleCSV, "--stdout")
	if err != nil {
		t.Fatalf("report --stdout failed: %v", err)
	}
	if !strings.HasPrefix(out, "# Certificates") {
		t.Fatalf("unexpected stdout report: %q", out)
	}
}

func TestSummaryCommandGroup(t *testing.T) {
	setTestEnv(t)

	out, err := runCmd(t, "summary", "--data", sampleCSV, "--group", "org")
	if err != nil {
		t.Fatalf("summary --group failed: %v", err)
	}
	if !strings.Contains(out, "Organizations:") || strings.Contains(out, "Topics:") {
		t.Fatalf("expected only organizations:\n%s", out)
	}

	if _, err := runCmd(t, "summary", "--data", sampleCSV, "--group", "issuer"); err == nil || !strings.Contains(err.Error(), "unknown grouping field") {
		t.Fatalf("expected unknown grouping error, got %v", err)
	}
}

func TestReportCommandDisabledOutputDir(t *testing.T) {
	setTestEnv(t)
	t.Setenv("REPORT_OUTPUT_DIR", "off")

	if _, err := runCmd(t, "report", "--data", sampleCSV); err == nil || !strings.Contains(err.Error(), "report_output_dir is off") {
		t.Fatalf("expected disabled report error, got %v", err)
	}
	out, err := runCmd(t, "report", "--data", sampleCSV, "--stdout")
	if err != nil || !strings.HasPrefix(out, "# Certificates") {
		t.Fatalf("--stdout should still work: out=%q err=%v", out, err)
	}
}

func TestReportCommandPostNeedsSlack(t *testing.T) {
	setTestEnv(t)
	_, err := runCmd(t, "report", "--data", sampleCSV, "--post")
	if err == nil || !strings.Contains(err.Error(), "slack_bot_token") {
		t.Fatalf("expected slack config error, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	dir := setTestEnv(t)
	output := filepath.Join(dir, "certs.xlsx")

	if _, err := runCmd(t, "export", "--data", sampleCSV, "-o", output); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	f, err := excelize.OpenFile(output)
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Certificates")
	if err != nil || len(rows) != 11 {
		t.Fatalf("unexpected exported rows: %d err=%v", len(rows), err)
	}
}

func TestCommandsReportBuildErrors(t *testing.T) {
	dir := setTestEnv(t)

	_, err := runCmd(t, "summary", "--data", filepath.Join(dir, "nope.csv"))
	if err == nil || !strings.Contains(err.Error(), "certificate file not found") {
		t.Fatalf("expected not-found message, got %v", err)
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("Name,Date,Group,Organization\nA,13-2023,Cloud,X\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	_, err = runCmd(t, "summary", "--data", bad)
	if err == nil || !strings.Contains(err.Error(), "malformed at row 2, column Date") {
		t.Fatalf("expected format message, got %v", err)
	}
}

func TestDescribeBuildError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x.csv", pipeline.ErrFileNotFound), "certificate file not found"},
		{fmt.Errorf("%w: x.csv", pipeline.ErrEmptyDataset), "certificate file has no rows"},
		{&pipeline.DataFormatError{Row: 4, Column: "Date", Value: "x", Err: fmt.Errorf("bad")}, "malformed at row 4, column Date"},
		{fmt.Errorf("boom"), "failed to build dashboard: boom"},
	}
	for _, tc := range tests {
		if got := describeBuildError(tc.err); !strings.Contains(got, tc.want) {
			t.Fatalf("describeBuildError(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}
