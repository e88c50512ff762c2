package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./technews.db" description:"Path to the SQLite database file"`

	// Ingestion configuration
	SourcesDir        string  `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	WorkerCount       int     `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for ingestion tasks"`
	SchedulerInterval int     `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"86400" description:"Ingestion interval in seconds"`
	SummaryThreshold  float64 `long:"summary-threshold" env:"SUMMARY_THRESHOLD" default:"0.8" description:"Minimum importance score for LLM summarization"`

	// LLM configuration
	DeepSeekAPIKey   string `long:"deepseek-api-key" env:"DEEPSEEK_API_KEY" description:"DeepSeek API key (required)" required:"true"`
	DeepSeekEndpoint string `long:"deepseek-endpoint" env:"DEEPSEEK_ENDPOINT" default:"https://api.deepseek.com/v1/chat/completions" description:"DeepSeek chat completion endpoint"`
	DeepSeekModel    string `long:"deepseek-model" env:"DEEPSEEK_MODEL" default:"deepseek-chat" description:"DeepSeek model name"`

	// HTTP configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	CronSecret   string `long:"cron-secret" env:"CRON_SECRET" description:"Shared secret for the manual ingestion trigger (required)" required:"true"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Notifications
	SlackWebhookURL string `long:"slack-webhook-url" env:"SLACK_WEBHOOK_URL" description:"Slack webhook URL for run notifications (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; TechNewsBot/1.0;)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Tokyo)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		SummaryThreshold:  raw.SummaryThreshold,
		DeepSeekAPIKey:    raw.DeepSeekAPIKey,
		DeepSeekEndpoint:  raw.DeepSeekEndpoint,
		DeepSeekModel:     raw.DeepSeekModel,
		Port:              raw.Port,
		CronSecret:        raw.CronSecret,
		APIAccessKey:      raw.APIAccessKey,
		SlackWebhookURL:   raw.SlackWebhookURL,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
