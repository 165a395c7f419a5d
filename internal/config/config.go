package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv        string `yaml:"app_env"`
	HTTPAddr      string `yaml:"http_addr"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	DataDir       string `yaml:"data_dir"`

	SupabaseURL        string `yaml:"-"`
	SupabaseServiceKey string `yaml:"-"`
	SupabaseBucket     string `yaml:"supabase_bucket"`
	SupabasePagesTable string `yaml:"supabase_pages_table"`

	LLMProvider     string `yaml:"llm_provider"`
	GeminiAPIKey    string `yaml:"-"`
	DefaultLLMModel string `yaml:"default_llm_model"`

	TaskMaxRetries    int `yaml:"task_max_retries"`
	TaskTimeoutSec    int `yaml:"task_timeout_sec"`
	WorkerConcurrency int `yaml:"worker_concurrency"`

	// BrowserProfile names the header profile of crawl sessions: "bot",
	// "desktop" or a specific desktop profile.
	BrowserProfile string `yaml:"browser_profile"`

	Crawl CrawlDefaults `yaml:"crawl"`
}

// CrawlDefaults are applied to every crawl request that leaves a field unset.
type CrawlDefaults struct {
	MaxDepth         int  `yaml:"max_depth"`
	MaxPages         int  `yaml:"max_pages"`
	Concurrency      int  `yaml:"concurrency"`
	NavTimeoutMS     int  `yaml:"nav_timeout_ms"`
	StableSamples    int  `yaml:"stable_samples"`
	StableIntervalMS int  `yaml:"stable_interval_ms"`
	StableTimeoutMS  int  `yaml:"stable_timeout_ms"`
	ChallengeWaitMS  int  `yaml:"challenge_wait_ms"`
	MaxHashClicks    int  `yaml:"max_hash_clicks"`
	RespectRobots    bool `yaml:"respect_robots"`
}

// TaskTimeout bounds one crawl task; asynq cancels its context after it.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSec) * time.Second
}

func (c CrawlDefaults) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutMS) * time.Millisecond
}

func (c CrawlDefaults) StableInterval() time.Duration {
	return time.Duration(c.StableIntervalMS) * time.Millisecond
}

func (c CrawlDefaults) StableTimeout() time.Duration {
	return time.Duration(c.StableTimeoutMS) * time.Millisecond
}

func (c CrawlDefaults) ChallengeWait() time.Duration {
	return time.Duration(c.ChallengeWaitMS) * time.Millisecond
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load reads configuration from the environment. When CONFIG_FILE points at
// a YAML file its values are applied first and environment variables win.
func Load() Config {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			panic(fmt.Errorf("config file %s: %w", path, err))
		}
	}
	cfg.applyEnv()
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		AppEnv:             "development",
		HTTPAddr:           ":8081",
		RedisAddr:          "127.0.0.1:6379",
		DataDir:            "./data",
		SupabaseBucket:     "sitemaps",
		SupabasePagesTable: "pages",
		LLMProvider:        "gemini",
		DefaultLLMModel:    "gemini-1.5-flash",
		TaskMaxRetries:     0,
		TaskTimeoutSec:     1800,
		WorkerConcurrency:  4,
		BrowserProfile:     "bot",
		Crawl: CrawlDefaults{
			MaxDepth:         3,
			MaxPages:         500,
			Concurrency:      3,
			NavTimeoutMS:     15000,
			StableSamples:    3,
			StableIntervalMS: 500,
			StableTimeoutMS:  8000,
			ChallengeWaitMS:  5000,
			MaxHashClicks:    5,
			RespectRobots:    true,
		},
	}
}

// MergeFile overlays values from a YAML file onto cfg.
func (c *Config) MergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

func (c *Config) applyEnv() {
	c.AppEnv = getenv("APP_ENV", c.AppEnv)
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")
	c.DataDir = getenv("DATA_DIR", c.DataDir)

	c.SupabaseURL = os.Getenv("NEXT_PUBLIC_SUPABASE_URL")
	c.SupabaseServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	c.SupabaseBucket = getenv("SUPABASE_STORAGE_BUCKET", c.SupabaseBucket)
	c.SupabasePagesTable = getenv("SUPABASE_PAGES_TABLE", c.SupabasePagesTable)

	c.LLMProvider = getenv("LLM_PROVIDER", c.LLMProvider)
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.DefaultLLMModel = getenv("DEFAULT_LLM_MODEL", c.DefaultLLMModel)

	c.TaskMaxRetries = getenvInt("TASK_MAX_RETRIES", c.TaskMaxRetries)
	c.TaskTimeoutSec = getenvInt("TASK_TIMEOUT_SEC", c.TaskTimeoutSec)
	c.WorkerConcurrency = getenvInt("WORKER_CONCURRENCY", c.WorkerConcurrency)
	c.BrowserProfile = getenv("BROWSER_PROFILE", c.BrowserProfile)

	c.Crawl.MaxDepth = getenvInt("CRAWL_MAX_DEPTH", c.Crawl.MaxDepth)
	c.Crawl.MaxPages = getenvInt("CRAWL_MAX_PAGES", c.Crawl.MaxPages)
	c.Crawl.Concurrency = getenvInt("CRAWL_CONCURRENCY", c.Crawl.Concurrency)
	c.Crawl.NavTimeoutMS = getenvInt("CRAWL_NAV_TIMEOUT_MS", c.Crawl.NavTimeoutMS)
	c.Crawl.StableSamples = getenvInt("CRAWL_STABLE_SAMPLES", c.Crawl.StableSamples)
	c.Crawl.StableIntervalMS = getenvInt("CRAWL_STABLE_INTERVAL_MS", c.Crawl.StableIntervalMS)
	c.Crawl.StableTimeoutMS = getenvInt("CRAWL_STABLE_TIMEOUT_MS", c.Crawl.StableTimeoutMS)
	c.Crawl.ChallengeWaitMS = getenvInt("CRAWL_CHALLENGE_WAIT_MS", c.Crawl.ChallengeWaitMS)
	c.Crawl.MaxHashClicks = getenvInt("CRAWL_MAX_HASH_CLICKS", c.Crawl.MaxHashClicks)
	c.Crawl.RespectRobots = getenvBool("CRAWL_RESPECT_ROBOTS", c.Crawl.RespectRobots)
}

// SupabaseEnabled reports whether Supabase credentials are present.
func (c Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}
