package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds everything the digest bot needs at startup.
type Config struct {
	TopicCount   int            `json:"topic_count"`
	ScheduleTime string         `json:"schedule_time"`
	Timezone     string         `json:"timezone,omitempty"`
	PollInterval string         `json:"poll_interval,omitempty"`
	ServerAddr   string         `json:"server_addr,omitempty"`
	Trends       TrendsConfig   `json:"trends"`
	News         NewsConfig     `json:"news"`
	LLM          *LLMConfig     `json:"llm,omitempty"`
	Webhook      WebhookConfig  `json:"webhook"`
	Report       ReportSettings `json:"report"`
}

// TrendsConfig selects the trending-searches feed.
type TrendsConfig struct {
	FeedURL string `json:"feed_url,omitempty"`
	Geo     string `json:"geo,omitempty"`
}

// NewsConfig configures the NewsAPI client.
type NewsConfig struct {
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	Language string `json:"language,omitempty"`
}

// LLMConfig 摘要模型配置。
type LLMConfig struct {
	Provider      string `json:"provider,omitempty"`
	Model         string `json:"model,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	BaseURL       string `json:"base_url,omitempty"`
	MaxChars      int    `json:"max_chars,omitempty"`
	MaxInputChars int    `json:"max_input_chars,omitempty"`
	Language      string `json:"language,omitempty"`
}

// WebhookConfig describes the DingTalk robot destination.
type WebhookConfig struct {
	URL    string `json:"url,omitempty"`
	Secret string `json:"secret,omitempty"`
	Title  string `json:"title,omitempty"`
}

// ReportSettings controls the fixed text around the report sections.
type ReportSettings struct {
	Heading string `json:"heading,omitempty"`
	Footer  string `json:"footer,omitempty"`
}

const (
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		TopicCount:   3,
		ScheduleTime: "12:40",
		Timezone:     "Local",
		PollInterval: "1m",
		Trends: TrendsConfig{
			FeedURL: "https://trends.google.com/trending/rss",
			Geo:     "US",
		},
		News: NewsConfig{
			BaseURL:  "https://newsapi.org",
			Language: "en",
		},
		LLM: &LLMConfig{
			Provider:      ProviderDeepSeek,
			Model:         "deepseek-chat",
			MaxChars:      50,
			MaxInputChars: 4000,
			Language:      "中文",
		},
		Webhook: WebhookConfig{
			URL: "https://oapi.dingtalk.com/robot/send?access_token=YOUR_TOKEN",
		},
	}
}

// Load builds the configuration from defaults, an optional JSON file, a .env file and
// the process environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// compiled defaults only
		default:
			return Config{}, err
		}
	}
	if cfg.LLM == nil {
		cfg.LLM = Default().LLM
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.News.APIKey, "NEWS_API_KEY")
	setString(&cfg.LLM.APIKey, "DEEPSEEK_API_KEY")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.Webhook.URL, "WEBHOOK_URL")
	setString(&cfg.Webhook.Secret, "WEBHOOK_SECRET")
	setString(&cfg.ScheduleTime, "SCHEDULE_TIME")
	setString(&cfg.Timezone, "TIMEZONE")
	setString(&cfg.ServerAddr, "SERVER_ADDR")
	if v := os.Getenv("TOPIC_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOPIC_COUNT: %w", err)
		}
		cfg.TopicCount = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.TopicCount < 1 {
		return fmt.Errorf("topic_count must be >= 1, got %d", c.TopicCount)
	}
	if _, _, err := ParseClock(c.ScheduleTime); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if _, err := c.Poll(); err != nil {
		return fmt.Errorf("poll_interval %q: %w", c.PollInterval, err)
	}
	if c.LLM == nil {
		return errors.New("llm config missing")
	}
	switch c.LLM.Provider {
	case ProviderDeepSeek, ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	return nil
}

// Location resolves Timezone; empty or "Local" means the process time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Poll returns the scheduler polling interval.
func (c Config) Poll() (time.Duration, error) {
	if c.PollInterval == "" {
		return time.Minute, nil
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

// ParseClock parses a wall-clock time in HH:MM form.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("schedule time %q must be HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}
