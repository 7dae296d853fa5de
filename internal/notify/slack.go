package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slack-go/slack"

	"certdash/internal/domain"
	"certdash/internal/httpx"
	"certdash/internal/pipeline"
)

// API is the part of *slack.Client the notifier uses.
type API interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2(params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

func NewClient(token string) *slack.Client {
	return slack.New(token, slack.OptionHTTPClient(httpx.ExternalHTTPClient()))
}

// FormatSummaryMessage describes d for a channel post. previousTotal is the
// count before this refresh; a negative value omits the change line.
func FormatSummaryMessage(d *pipeline.Dashboard, title string, previousTotal int) string {
	var b strings.Builder
	if title == "" {
		title = "Certificates"
	}
	fmt.Fprintf(&b, "*%s*: %s", title, d.Summary.Headline())
	if previousTotal >= 0 {
		if diff := d.Summary.Total - previousTotal; diff > 0 {
			fmt.Fprintf(&b, " (+%d since last refresh)", diff)
		} else if diff < 0 {
			fmt.Fprintf(&b, " (%d since last refresh)", diff)
		}
	}

	var tops []string
	if n := len(d.Topics); n > 0 {
		tops = append(tops, fmt.Sprintf("Top topic: %s (%d)", d.Topics[n-1].Label, d.Topics[n-1].Count))
	}
	if n := len(d.Organizations); n > 0 {
		tops = append(tops, fmt.Sprintf("Top organization: %s (%d)", d.Organizations[n-1].Label, d.Organizations[n-1].Count))
	}
	if len(tops) > 0 {
		b.WriteString("\n" + strings.Join(tops, " | "))
	}

	if latest, ok := latestRow(d); ok {
		fmt.Fprintf(&b, "\nLatest: %s (%s, %s)", latest.Title, latest.Organization, latest.Month)
	}
	return b.String()
}

// latestRow returns the most recent certificate; ties go to the later row.
func latestRow(d *pipeline.Dashboard) (domain.DisplayRow, bool) {
	var latest domain.DisplayRow
	ok := false
	for _, r := range d.Rows {
		if !ok || r.Month >= latest.Month {
			latest = r
			ok = true
		}
	}
	return latest, ok
}

func PostSummary(api API, channelID string, d *pipeline.Dashboard, title string, previousTotal int) error {
	text := FormatSummaryMessage(d, title, previousTotal)
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post summary to %s: %w", channelID, err)
	}
	return nil
}

func UploadReport(api API, channelID, filePath, title string) error {
	fi, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}
	if fi.Size() <= 0 {
		return fmt.Errorf("report file is empty: %s", filePath)
	}
	_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
		File:     filePath,
		FileSize: int(fi.Size()),
		Filename: filepath.Base(filePath),
		Channel:  channelID,
		Title:    title,
	})
	if err != nil {
		return fmt.Errorf("upload report to %s: %w", channelID, err)
	}
	return nil
}
