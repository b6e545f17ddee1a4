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
	// Apify configuration
	ApifyToken   string `long:"apify-token" env:"APIFY_TOKEN" description:"Apify API token (required to start or resolve runs)"`
	ApifyBaseUrl string `long:"apify-base-url" env:"APIFY_BASE_URL" default:"https://api.apify.com/v2" description:"Apify API base URL"`
	ActorID      string `long:"actor-id" env:"ACTOR_ID" description:"Apify actor used for profile scraping"`

	// Application configuration
	DataDir    string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for per-run records, media and artifacts"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/zinepress.db" description:"SQLite database path for the run registry"`
	PresetsDir string `long:"presets-dir" env:"PRESETS_DIR" default:"./presets" description:"Directory containing scrape preset files"`
	Port       string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl    string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (used for webhook registration)"`

	WorkerCount int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for run processing"`

	// Dataset fetch policy
	DatasetMaxAttempts int `long:"dataset-max-attempts" env:"DATASET_MAX_ATTEMPTS" default:"10" description:"Attempts to fetch a dataset that is not materialized yet"`
	DatasetRetryDelay  int `long:"dataset-retry-delay" env:"DATASET_RETRY_DELAY" default:"2" description:"Initial dataset retry delay in seconds"`

	// Media download policy
	MediaConcurrency int `long:"media-concurrency" env:"MEDIA_CONCURRENCY" default:"3" description:"Maximum simultaneous media downloads per run"`
	MediaMaxItems    int `long:"media-max-items" env:"MEDIA_MAX_ITEMS" default:"15" description:"Maximum media items downloaded per run"`
	MediaRetries     int `long:"media-retries" env:"MEDIA_RETRIES" default:"3" description:"Retries per media item on transient errors"`
	MediaTimeout     int `long:"media-timeout" env:"MEDIA_TIMEOUT" default:"30" description:"Per-request media download timeout in seconds"`

	// Build gating
	BuildWaitTimeout int `long:"build-wait-timeout" env:"BUILD_WAIT_TIMEOUT" default:"20" description:"Seconds to wait for media downloads before building the book anyway"`

	// Text generation
	LLMAPIKey  string `long:"llm-api-key" env:"LLM_API_KEY" description:"API key for the text generation service (optional)"`
	LLMBaseUrl string `long:"llm-base-url" env:"LLM_BASE_URL" default:"https://api.deepseek.com" description:"Text generation API base URL"`
	LLMModel   string `long:"llm-model" env:"LLM_MODEL" default:"deepseek-chat" description:"Text generation model"`

	// Application metadata
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"Zinepress/1.0" description:"User agent string for HTTP requests"`
	Timezone     string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug        bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
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
		ApifyToken:         raw.ApifyToken,
		ApifyBaseUrl:       raw.ApifyBaseUrl,
		ActorID:            raw.ActorID,
		DataDir:            raw.DataDir,
		DBPath:             raw.DBPath,
		PresetsDir:         raw.PresetsDir,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		WorkerCount:        raw.WorkerCount,
		DatasetMaxAttempts: raw.DatasetMaxAttempts,
		DatasetRetryDelay:  raw.DatasetRetryDelay,
		MediaConcurrency:   raw.MediaConcurrency,
		MediaMaxItems:      raw.MediaMaxItems,
		MediaRetries:       raw.MediaRetries,
		MediaTimeout:       raw.MediaTimeout,
		BuildWaitTimeout:   raw.BuildWaitTimeout,
		LLMAPIKey:          raw.LLMAPIKey,
		LLMBaseUrl:         raw.LLMBaseUrl,
		LLMModel:           raw.LLMModel,
		APIAccessKey:       raw.APIAccessKey,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
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
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
