package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Bot identity
	BotHandle string // without the leading @

	// Twitter write credentials (OAuth 1.0a user context)
	TwitterConsumerKey    string
	TwitterConsumerSecret string
	TwitterAccessToken    string
	TwitterAccessSecret   string

	// Twitter read credentials + webhook
	TwitterBearerToken   string
	TwitterWebhookSecret string
	TwitterBaseURL       string

	// AI / LLM
	// If both keys are set, Anthropic wins (provider auto-detect order).
	AnthropicAPIKey string
	OpenAIAPIKey    string
	AIModel         string
	AIMaxTokens     int
	LLMBaseURL      string // override for tests / proxies

	// Portfolio analytics
	PortfolioAPIKey  string
	PortfolioBaseURL string

	// Dedup store. Empty path = in-memory only (history is lost on restart).
	DedupDBPath string

	// Time budgets
	BatchBudget    time.Duration
	RequestTimeout time.Duration
	EnrichTimeout  time.Duration

	// Retry
	RetryAttempts int

	// Entry points
	ListenPort     int
	PollSchedule   string // cron spec, e.g. "@every 2m"; empty disables the scheduler
	SearchPageSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotHandle: strings.TrimPrefix(os.Getenv("BOT_HANDLE"), "@"),

		TwitterConsumerKey:    os.Getenv("TWITTER_CONSUMER_KEY"),
		TwitterConsumerSecret: os.Getenv("TWITTER_CONSUMER_SECRET"),
		TwitterAccessToken:    os.Getenv("TWITTER_ACCESS_TOKEN"),
		TwitterAccessSecret:   os.Getenv("TWITTER_ACCESS_SECRET"),
		TwitterBearerToken:    os.Getenv("TWITTER_BEARER_TOKEN"),
		TwitterWebhookSecret:  os.Getenv("TWITTER_WEBHOOK_SECRET"),
		TwitterBaseURL:        envOr("TWITTER_BASE_URL", "https://api.twitter.com"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AIModel:         os.Getenv("AI_MODEL"), // resolved per provider in the reply generator
		AIMaxTokens:     envInt("AI_MAX_TOKENS", 1024),
		LLMBaseURL:      os.Getenv("LLM_BASE_URL"),

		PortfolioAPIKey:  os.Getenv("PORTFOLIO_API_KEY"),
		PortfolioBaseURL: envOr("PORTFOLIO_BASE_URL", "https://api.portfolioscope.io"),

		DedupDBPath: os.Getenv("DEDUP_DB_PATH"),

		BatchBudget:    envDuration("BATCH_BUDGET_MS", 25000),
		RequestTimeout: envDuration("REQUEST_TIMEOUT_MS", 10000),
		EnrichTimeout:  envDuration("ENRICH_TIMEOUT_MS", 8000),

		RetryAttempts: envInt("RETRY_ATTEMPTS", 3),

		ListenPort:     envInt("PORT", 8080),
		PollSchedule:   os.Getenv("POLL_SCHEDULE"),
		SearchPageSize: envInt("SEARCH_PAGE_SIZE", 20),
	}

	return cfg, nil
}

// Validate reports the first missing mandatory credential. It must be called
// before any mention is processed; a failure here is fatal to the invocation.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"BOT_HANDLE", c.BotHandle},
		{"TWITTER_CONSUMER_KEY", c.TwitterConsumerKey},
		{"TWITTER_CONSUMER_SECRET", c.TwitterConsumerSecret},
		{"TWITTER_ACCESS_TOKEN", c.TwitterAccessToken},
		{"TWITTER_ACCESS_SECRET", c.TwitterAccessSecret},
		{"TWITTER_BEARER_TOKEN", c.TwitterBearerToken},
		{"PORTFOLIO_API_KEY", c.PortfolioAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required configuration: %s", r.name)
		}
	}
	if c.AnthropicAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("missing required configuration: ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}
	return nil
}

// helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallbackMillis int) time.Duration {
	return time.Duration(envInt(key, fallbackMillis)) * time.Millisecond
}
