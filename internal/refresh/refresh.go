package refresh

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"certdash/internal/config"
	"certdash/internal/notify"
	"certdash/internal/pipeline"
	"certdash/internal/report"
	sqlitedb "certdash/internal/storage/sqlite"
)

// Job recomputes the dashboard from the data file. DB and Slack are optional.
type Job struct {
	Config config.Config
	Holder *Holder
	DB     *sql.DB
	Slack  notify.API
}

// Result tracks what a single run did. Side-effect failures are collected
// in Warnings and never undo the swap.
type Result struct {
	Total      int
	Previous   int // -1 when neither the holder nor the history knows a total
	ReportPath string
	SnapshotID int64
	Pruned     int64
	Notified   bool
	Warnings   []string
}

func (r Result) Changed() bool {
	return r.Previous >= 0 && r.Previous != r.Total
}

// Run builds a new dashboard for now and installs it. A failed build keeps
// the previous dashboard in place. On the first run after a restart the
// previous total comes from the latest history snapshot.
func (j *Job) Run(now time.Time) (Result, error) {
	result := Result{Previous: -1}

	d, err := pipeline.Build(j.Config.DataPath, now, j.Config.PipelineOptions())
	if err != nil {
		return result, fmt.Errorf("refresh %s: %w", j.Config.DataPath, err)
	}
	prev := j.Holder.Swap(d)
	result.Total = d.Summary.Total
	if prev != nil {
		result.Previous = prev.Summary.Total
	}

	if j.DB != nil {
		if prev == nil {
			last, ok, err := sqlitedb.LatestSnapshot(j.DB)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("history: %v", err))
			} else if ok {
				result.Previous = last.Total
			}
		}
		id, err := sqlitedb.InsertSnapshot(j.DB, sqlitedb.SnapshotFromDashboard(d, now))
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot: %v", err))
		} else {
			result.SnapshotID = id
		}
		if cutoff, ok := j.Config.HistoryCutoff(now); ok {
			n, err := sqlitedb.PruneSnapshots(j.DB, cutoff)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("prune: %v", err))
			} else {
				result.Pruned = n
			}
		}
	}

	if j.Config.ReportsEnabled() {
		content := report.Render(d, j.Config.Profile())
		path, err := report.WriteReportFile(content, j.Config.ReportOutputDir, now, j.Config.Title)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("report: %v", err))
		} else {
			result.ReportPath = path
		}
	}

	if j.Slack != nil && result.Changed() {
		channel := j.Config.SlackChannelID
		if err := notify.PostSummary(j.Slack, channel, d, j.Config.Title, result.Previous); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("slack: %v", err))
		} else {
			result.Notified = true
		}
		if result.ReportPath != "" {
			if err := notify.UploadReport(j.Slack, channel, result.ReportPath, j.Config.Title); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("slack upload: %v", err))
			}
		}
	}

	return result, nil
}

func FormatResult(r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "total=%d", r.Total)
	if r.Previous >= 0 {
		fmt.Fprintf(&b, " previous=%d", r.Previous)
	}
	if r.SnapshotID > 0 {
		fmt.Fprintf(&b, " snapshot=%d", r.SnapshotID)
	}
	if r.Pruned > 0 {
		fmt.Fprintf(&b, " pruned=%d", r.Pruned)
	}
	if r.ReportPath != "" {
		fmt.Fprintf(&b, " report=%s", r.ReportPath)
	}
	if r.Notified {
		b.WriteString(" notified=true")
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, " warnings=%q", strings.Join(r.Warnings, "; "))
	}
	return b.String()
}

// Start runs job on the configured cron schedule until ctx is done. It
// returns false when refresh is disabled or the schedule does not parse.
func Start(ctx context.Context, job *Job) bool {
	cfg := job.Config
	if !cfg.RefreshEnabled() {
		log.Println("Refresh disabled (refresh_schedule is off)")
		return false
	}
	sched, err := config.ParseSchedule(cfg.RefreshSchedule)
	if err != nil {
		log.Printf("Invalid refresh_schedule '%s': %v, refresh disabled", cfg.RefreshSchedule, err)
		return false
	}
	log.Printf("Refresh scheduled (cron: %s) for %s", strings.TrimSpace(cfg.RefreshSchedule), cfg.DataPath)

	go func() {
		for {
			now := cfg.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next refresh at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Println("Refresh scheduler stopped")
				return
			case <-timer.C:
			}

			result, runErr := job.Run(cfg.Now())
			if runErr != nil {
				log.Printf("Refresh error, keeping previous dashboard: %v", runErr)
				continue
			}
			log.Printf("Refresh complete: %s", FormatResult(result))
		}
	}()
	return true
}
