package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"certdash/internal/domain"
	"certdash/internal/pipeline"
)

// Render produces the markdown report for d. Categories are listed largest
// first and major ones are bold.
func Render(d *pipeline.Dashboard, profile domain.Profile) string {
	var b strings.Builder

	title := profile.Title
	if title == "" {
		title = "Certificates"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if line := profileLine(profile); line != "" {
		b.WriteString(line + "\n\n")
	}

	fmt.Fprintf(&b, "**%s**\n\n", d.Summary.Headline())
	if !d.Summary.First.IsZero() {
		fmt.Fprintf(&b, "First certificate: %s. ", d.Summary.First.Format("January 2006"))
	}
	fmt.Fprintf(&b, "As of %s.\n\n", d.AsOf.Format("2006-01-02"))

	b.WriteString("## Timeline\n\n")
	b.WriteString("| Month | Count | Cumulative |\n|---|---:|---:|\n")
	active := 0
	for _, p := range d.Series {
		if p.Count == 0 {
			continue
		}
		active++
		fmt.Fprintf(&b, "| %s | %d | %d |\n", p.Label, p.Count, p.Cumulative)
	}
	if active == 0 {
		b.WriteString("| - | 0 | 0 |\n")
	}
	b.WriteString("\n")

	writeCategories(&b, "By Topic", "Topic", d.Topics)
	writeCategories(&b, "By Organization", "Organization", d.Organizations)

	b.WriteString("## Certificates\n\n")
	b.WriteString("| Date | Name | Topic | Organization |\n|---|---|---|---|\n")
	for _, r := range d.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", r.Month, escapeCell(r.Name), escapeCell(r.Topic), escapeCell(r.Organization))
	}
	return b.String()
}

func writeCategories(b *strings.Builder, heading, column string, groups []domain.CategoryCount) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	fmt.Fprintf(b, "| %s | Count | Share |\n|---|---:|---:|\n", column)
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		label := escapeCell(g.Label)
		if g.Major {
			label = "**" + label + "**"
		}
		fmt.Fprintf(b, "| %s | %d | %.0f%% |\n", label, g.Count, g.Share*100)
	}
	b.WriteString("\n")
}

func profileLine(p domain.Profile) string {
	var parts []string
	if p.Name != "" {
		name := p.Name
		if p.Role != "" {
			name += ", " + p.Role
		}
		parts = append(parts, name)
	}
	if p.Email != "" {
		parts = append(parts, p.Email)
	}
	if p.Phone != "" {
		parts = append(parts, p.Phone)
	}
	if p.LinkedIn != "" {
		parts = append(parts, fmt.Sprintf("[LinkedIn](%s)", p.LinkedIn))
	}
	if p.Source != "" {
		parts = append(parts, fmt.Sprintf("[Source](%s)", p.Source))
	}
	return strings.Join(parts, " | ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func WriteReportFile(content, outputDir string, reportDate time.Time, name string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(name), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	s = strings.TrimLeft(replacer.Replace(s), ".")
	if s == "" {
		return "certificates"
	}
	return s
}
