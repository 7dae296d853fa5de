package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"certdash/internal/domain"
	"certdash/internal/pipeline"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

// RefreshDisabled turns the scheduled recompute off when used as refresh_schedule.
const RefreshDisabled = "off"

// ReportsDisabled stops report files from being written when used as
// report_output_dir. An explicitly empty value does the same.
const ReportsDisabled = "off"

const defaultReportOutputDir = "./reports"

type Config struct {
	DataPath   string `yaml:"data_path"`
	ListenAddr string `yaml:"listen_addr"`

	OrgBucketThreshold    int     `yaml:"org_bucket_threshold"`
	HighlightSharePercent float64 `yaml:"highlight_share_percent"`

	Title         string `yaml:"title"`
	OwnerName     string `yaml:"owner_name"`
	OwnerTitle    string `yaml:"owner_title"`
	OwnerEmail    string `yaml:"owner_email"`
	OwnerPhone    string `yaml:"owner_phone"`
	OwnerLinkedIn string `yaml:"owner_linkedin"`
	SourceURL     string `yaml:"source_url"`

	RefreshSchedule string `yaml:"refresh_schedule"`
	ReportOutputDir string `yaml:"report_output_dir"`

	HistoryDBPath        string `yaml:"history_db_path"`
	HistoryRetentionDays int    `yaml:"history_retention_days"` // 0 keeps every snapshot

	SlackBotToken              string `yaml:"slack_bot_token"`
	SlackChannelID             string `yaml:"slack_channel_id"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	// Set before decoding so an explicit empty report_output_dir survives.
	cfg := Config{ReportOutputDir: defaultReportOutputDir}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.DataPath, "DATA_PATH")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverrideInt(&cfg.OrgBucketThreshold, "ORG_BUCKET_THRESHOLD")
	envOverrideFloat(&cfg.HighlightSharePercent, "HIGHLIGHT_SHARE_PERCENT")
	envOverride(&cfg.Title, "DASHBOARD_TITLE")
	envOverride(&cfg.OwnerName, "OWNER_NAME")
	envOverride(&cfg.OwnerTitle, "OWNER_TITLE")
	envOverride(&cfg.OwnerEmail, "OWNER_EMAIL")
	envOverride(&cfg.OwnerPhone, "OWNER_PHONE")
	envOverride(&cfg.OwnerLinkedIn, "OWNER_LINKEDIN")
	envOverride(&cfg.SourceURL, "SOURCE_URL")
	envOverride(&cfg.RefreshSchedule, "REFRESH_SCHEDULE")
	envOverrideAllowEmpty(&cfg.HistoryDBPath, "HISTORY_DB_PATH")
	envOverrideInt(&cfg.HistoryRetentionDays, "HISTORY_RETENTION_DAYS")
	envOverrideAllowEmpty(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if cfg.DataPath == "" {
		cfg.DataPath = "./data/cert_list.csv"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8050"
	}
	if cfg.OrgBucketThreshold == 0 {
		cfg.OrgBucketThreshold = 5
	}
	if cfg.HighlightSharePercent == 0 {
		cfg.HighlightSharePercent = 20
	}
	if cfg.Title == "" {
		cfg.Title = "Certificates"
	}
	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = "0 0 * * *"
	}
	if strings.EqualFold(strings.TrimSpace(cfg.ReportOutputDir), ReportsDisabled) {
		cfg.ReportOutputDir = ""
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackChannelID == "") {
		log.Fatalf("Partial Slack config: slack_bot_token and slack_channel_id are required together")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.OrgBucketThreshold < 0 {
		log.Fatalf("invalid org_bucket_threshold '%d': must be >= 0", cfg.OrgBucketThreshold)
	}
	if cfg.HighlightSharePercent < 0 || cfg.HighlightSharePercent > 100 {
		log.Fatalf("invalid highlight_share_percent '%f': must be between 0 and 100", cfg.HighlightSharePercent)
	}
	if cfg.HistoryRetentionDays < 0 {
		log.Fatalf("invalid history_retention_days '%d': must be >= 0", cfg.HistoryRetentionDays)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.RefreshEnabled() {
		if _, err := ParseSchedule(cfg.RefreshSchedule); err != nil {
			log.Fatalf("invalid refresh_schedule '%s': %v", cfg.RefreshSchedule, err)
		}
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(spec))
}

func (c Config) RefreshEnabled() bool {
	s := strings.TrimSpace(c.RefreshSchedule)
	return s != "" && !strings.EqualFold(s, RefreshDisabled)
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c Config) HistoryEnabled() bool {
	return strings.TrimSpace(c.HistoryDBPath) != ""
}

func (c Config) ReportsEnabled() bool {
	return strings.TrimSpace(c.ReportOutputDir) != ""
}

// HistoryCutoff returns the oldest snapshot time to keep at now; ok is false
// when retention is unlimited.
func (c Config) HistoryCutoff(now time.Time) (time.Time, bool) {
	if c.HistoryRetentionDays <= 0 {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -c.HistoryRetentionDays), true
}

// Now returns the current time in the configured location.
func (c Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func (c Config) Profile() domain.Profile {
	return domain.Profile{
		Title:    c.Title,
		Name:     c.OwnerName,
		Role:     c.OwnerTitle,
		Email:    c.OwnerEmail,
		Phone:    c.OwnerPhone,
		LinkedIn: c.OwnerLinkedIn,
		Source:   c.SourceURL,
	}
}

func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		OrgBucketThreshold:    c.OrgBucketThreshold,
		HighlightSharePercent: c.HighlightSharePercent,
	}
}
