package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"daily_trend_digest/config"
	"daily_trend_digest/digest"
	"daily_trend_digest/news"
	"daily_trend_digest/pipeline"
	"daily_trend_digest/publisher"
	"daily_trend_digest/scheduler"
	"daily_trend_digest/server"
	"daily_trend_digest/summarizer"
	"daily_trend_digest/trends"
)

var verbose bool

func main() {
	configPath := flag.String("config", "config/config.json", "path to config.json")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	addr := flag.String("addr", "", "ops http listen address (overrides config.server_addr)")
	flag.BoolVar(&verbose, "v", false, "enable debug logs")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *addr, *once, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, addr string, once bool, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		res := runner.Run(ctx)
		return res.Err
	}

	sched, err := buildScheduler(cfg, runner, logger)
	if err != nil {
		return err
	}

	if cfg.ServerAddr != "" {
		srv, err := server.New(sched, runner, logger)
		if err != nil {
			return err
		}
		gin.SetMode(gin.ReleaseMode)
		httpSrv := &http.Server{Addr: cfg.ServerAddr, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("ops server listening", "addr", cfg.ServerAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("digest bot started", "schedule_time", cfg.ScheduleTime, "timezone", cfg.Timezone)
	sched.Start(ctx)
	return nil
}

func buildRunner(cfg config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	sum, err := summarizer.New(llm, summarizer.Options{
		Language:      cfg.LLM.Language,
		MaxChars:      cfg.LLM.MaxChars,
		MaxInputChars: cfg.LLM.MaxInputChars,
	})
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if cfg.News.APIKey == "" {
		logger.Warn("news api key missing; every lookup will fail and topics will be dropped")
	}

	return pipeline.NewRunner(
		trends.NewGoogleTrends(cfg.Trends.FeedURL, cfg.Trends.Geo, nil),
		news.NewClient(cfg.News.APIKey, cfg.News.BaseURL, cfg.News.Language, nil),
		sum,
		publisher.New(cfg.Webhook, nil, os.Stdout, logger),
		pipeline.Options{
			TopicCount: cfg.TopicCount,
			Template:   reportTemplate(cfg),
			Logger:     logger,
			Now:        func() time.Time { return time.Now().In(loc) },
		},
	)
}

func buildScheduler(cfg config.Config, runner *pipeline.Runner, logger *slog.Logger) (*scheduler.Daily, error) {
	hour, minute, err := config.ParseClock(cfg.ScheduleTime)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	poll, err := cfg.Poll()
	if err != nil {
		return nil, err
	}
	return scheduler.NewDaily(scheduler.Clock{Hour: hour, Minute: minute}, loc, poll,
		func(ctx context.Context) { runner.Run(ctx) }, logger), nil
}

// reportTemplate names the configured provider unless heading or footer are set explicitly.
func reportTemplate(cfg config.Config) digest.Template {
	tpl := digest.ProviderTemplate(providerLabels[cfg.LLM.Provider])
	if cfg.Report.Heading != "" {
		tpl.Heading = cfg.Report.Heading
	}
	if cfg.Report.Footer != "" {
		tpl.Footer = cfg.Report.Footer
	}
	return tpl
}

var providerLabels = map[string]string{
	config.ProviderDeepSeek:  "DeepSeek",
	config.ProviderOpenAI:    "OpenAI",
	config.ProviderAnthropic: "Anthropic",
	config.ProviderMock:      "Mock",
}

func buildLLM(cfg config.Config) (summarizer.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	}
	settings := &summarizer.LLMSettings{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: 200, // caps runaway answers
	}
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return summarizer.NewOpenAILLMFromConfig(settings)
	case config.ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口。
		if settings.BaseURL == "" {
			settings.BaseURL = summarizer.DeepSeekBaseURL
		}
		return summarizer.NewOpenAILLMFromConfig(settings)
	case config.ProviderAnthropic:
		return summarizer.NewAnthropicLLMFromConfig(settings)
	case config.ProviderMock:
		return summarizer.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}
