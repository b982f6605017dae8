package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.TopicCount)
	assert.Equal(t, "12:40", cfg.ScheduleTime)
	assert.Equal(t, ProviderDeepSeek, cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 50, cfg.LLM.MaxChars)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"topic_count": 5,
		"schedule_time": "08:15",
		"llm": {"provider": "openai", "model": "gpt-4o-mini", "api_key": "from-file"},
		"webhook": {"url": "https://oapi.dingtalk.com/robot/send?access_token=abc"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("TOPIC_COUNT", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.TopicCount)
	assert.Equal(t, "08:15", cfg.ScheduleTime)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "https://oapi.dingtalk.com/robot/send?access_token=abc", cfg.Webhook.URL)
	// untouched sections keep their defaults
	assert.Equal(t, "en", cfg.News.Language)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadTopicCountEnv(t *testing.T) {
	t.Setenv("TOPIC_COUNT", "three")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero topics", mutate: func(c *Config) { c.TopicCount = 0 }, wantErr: true},
		{name: "bad clock", mutate: func(c *Config) { c.ScheduleTime = "25:00" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "bad poll", mutate: func(c *Config) { c.PollInterval = "-1s" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "llama" }, wantErr: true},
		{name: "anthropic", mutate: func(c *Config) { c.LLM.Provider = ProviderAnthropic }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock(" 07:05 ")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseClock("7pm")
	assert.Error(t, err)
}

func TestPoll(t *testing.T) {
	cfg := Default()
	d, err := cfg.Poll()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	cfg.PollInterval = ""
	d, err = cfg.Poll()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.example.json")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", cfg.Timezone)
	assert.Equal(t, "127.0.0.1:8080", cfg.ServerAddr)
	assert.Contains(t, cfg.Webhook.URL, "YOUR_TOKEN")
}
