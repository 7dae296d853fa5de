package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"certdash/internal/config"
	"certdash/internal/export"
	"certdash/internal/httpx"
	"certdash/internal/notify"
	"certdash/internal/pipeline"
	"certdash/internal/refresh"
	"certdash/internal/report"
	"certdash/internal/storage/sqlite"
	"certdash/internal/web"
)

type rootArgs struct {
	configPath string
	dataPath   string
}

func Main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	args := &rootArgs{}
	root := &cobra.Command{
		Use:           "certdash",
		Long:          "Serve a dashboard of earned certificates read from a CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return runServe(args)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&args.configPath, "config", "", "Path to config.yaml (overrides CONFIG_PATH)")
	flags.StringVar(&args.dataPath, "data", "", "Path to the certificate CSV (overrides data_path)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the dashboard over HTTP (default)",
			RunE: func(cmd *cobra.Command, argv []string) error {
				return runServe(args)
			},
		},
		newSummaryCmd(args),
		newReportCmd(args),
		newExportCmd(args),
	)
	return root
}

func loadConfig(args *rootArgs) config.Config {
	if args.configPath != "" {
		_ = os.Setenv("CONFIG_PATH", args.configPath)
	}
	cfg := config.LoadConfig()
	if args.dataPath != "" {
		cfg.DataPath = args.dataPath
	}
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Data=%s Listen=%s OrgBucketThreshold=%d HighlightSharePercent=%.1f Timezone=%s Refresh=%s History=%t HistoryRetentionDays=%d Reports=%q Slack=%t ExternalHTTPTimeout=%s",
		cfg.DataPath,
		cfg.ListenAddr,
		cfg.OrgBucketThreshold,
		cfg.HighlightSharePercent,
		cfg.Timezone,
		cfg.RefreshSchedule,
		cfg.HistoryEnabled(),
		cfg.HistoryRetentionDays,
		cfg.ReportOutputDir,
		cfg.SlackConfigured(),
		appliedHTTPTimeout,
	)
	return cfg
}

// describeBuildError turns a pipeline failure into a startup message that
// names what to fix.
func describeBuildError(err error) string {
	var dfe *pipeline.DataFormatError
	switch {
	case errors.Is(err, pipeline.ErrFileNotFound):
		return fmt.Sprintf("certificate file not found (set data_path or DATA_PATH): %v", err)
	case errors.Is(err, pipeline.ErrEmptyDataset):
		return fmt.Sprintf("certificate file has no rows: %v", err)
	case errors.As(err, &dfe):
		return fmt.Sprintf("certificate file is malformed at row %d, column %s: %v", dfe.Row, dfe.Column, err)
	default:
		return fmt.Sprintf("failed to build dashboard: %v", err)
	}
}

func buildDashboard(cfg config.Config) (*pipeline.Dashboard, error) {
	d, err := pipeline.Build(cfg.DataPath, cfg.Now(), cfg.PipelineOptions())
	if err != nil {
		return nil, errors.New(describeBuildError(err))
	}
	return d, nil
}

func runServe(args *rootArgs) error {
	cfg := loadConfig(args)

	var db *sql.DB
	if cfg.HistoryEnabled() {
		var err error
		db, err = sqlite.InitDB(cfg.HistoryDBPath)
		if err != nil {
			log.Fatalf("Failed to init history database: %v", err)
		}
		log.Printf("History database initialized at %s", cfg.HistoryDBPath)
		defer db.Close()
	}

	var api notify.API
	if cfg.SlackConfigured() {
		api = notify.NewClient(cfg.SlackBotToken)
	}

	holder := refresh.NewHolder(nil)
	job := &refresh.Job{Config: cfg, Holder: holder, DB: db, Slack: api}
	result, err := job.Run(cfg.Now())
	if err != nil {
		log.Fatalf("%s", describeBuildError(err))
	}
	log.Printf("Dashboard ready: %s", refresh.FormatResult(result))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	refresh.Start(ctx, job)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           web.NewServer(holder, db, cfg.Profile()).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Serving %s on %s", cfg.Title, cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", cfg.ListenAddr, err)
	}
	log.Println("Server stopped")
	return nil
}

func newSummaryCmd(args *rootArgs) *cobra.Command {
	var asJSON bool
	var group string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the headline, groupings and date range",
		RunE: func(cmd *cobra.Command, argv []string) error {
			fields := []pipeline.Field{pipeline.FieldTopic, pipeline.FieldOrganization}
			if group != "" {
				f, err := pipeline.ParseField(group)
				if err != nil {
					return err
				}
				fields = []pipeline.Field{f}
			}
			d, err := buildDashboard(loadConfig(args))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			writeSummary(cmd.OutOrStdout(), d, fields)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full dashboard as JSON")
	cmd.Flags().StringVar(&group, "group", "", "Print only one grouping: topic or organization")
	return cmd
}

func writeSummary(w io.Writer, d *pipeline.Dashboard, fields []pipeline.Field) {
	fmt.Fprintln(w, d.Summary.Headline())
	if len(d.Series) > 0 {
		fmt.Fprintf(w, "Months: %s to %s\n", d.Series[0].Label, d.Series[len(d.Series)-1].Label)
	}
	for _, f := range fields {
		groups, heading := d.Topics, "Topics:"
		if f == pipeline.FieldOrganization {
			groups, heading = d.Organizations, "Organizations:"
		}
		fmt.Fprintln(w, heading)
		for i := len(groups) - 1; i >= 0; i-- {
			g := groups[i]
			fmt.Fprintf(w, "  %-24s %3d  %5.1f%%%s\n", g.Label, g.Count, g.Share*100, majorMark(g.Major))
		}
	}
}

func majorMark(major bool) string {
	if major {
		return " *"
	}
	return ""
}

func newReportCmd(args *rootArgs) *cobra.Command {
	var toStdout, post bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the markdown report to report_output_dir",
		RunE: func(cmd *cobra.Command, argv []string) error {
			cfg := loadConfig(args)
			d, err := buildDashboard(cfg)
			if err != nil {
				return err
			}
			content := report.Render(d, cfg.Profile())
			if toStdout {
				_, err := io.WriteString(cmd.OutOrStdout(), content)
				return err
			}
			if !cfg.ReportsEnabled() {
				return fmt.Errorf("report_output_dir is off; use --stdout or set REPORT_OUTPUT_DIR")
			}
			path, err := report.WriteReportFile(content, cfg.ReportOutputDir, d.AsOf, cfg.Title)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			log.Printf("report file=%s", path)
			fmt.Fprintln(cmd.OutOrStdout(), path)

			if !post {
				return nil
			}
			if !cfg.SlackConfigured() {
				return fmt.Errorf("--post needs slack_bot_token and slack_channel_id")
			}
			return notify.UploadReport(notify.NewClient(cfg.SlackBotToken), cfg.SlackChannelID, path, cfg.Title)
		},
	}
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the report instead of writing a file")
	cmd.Flags().BoolVar(&post, "post", false, "Upload the written report to the Slack channel")
	return cmd
}

func newExportCmd(args *rootArgs) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the certificates workbook (XLSX)",
		RunE: func(cmd *cobra.Command, argv []string) error {
			d, err := buildDashboard(loadConfig(args))
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := export.Write(f, d); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			log.Printf("export file=%s rows=%d", output, len(d.Rows))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "certificates.xlsx", "Output file")
	return cmd
}
