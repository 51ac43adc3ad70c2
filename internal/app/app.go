// Package app wires the bot's services from configuration. Both the HTTP
// server and the serverless entry point build their dependencies here.
package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"weatherbot/internal/bot"
	"weatherbot/internal/config"
	"weatherbot/internal/metrics"
	"weatherbot/internal/speech"
	"weatherbot/internal/telegram"
	"weatherbot/internal/upstream"
	"weatherbot/internal/weather"
	"weatherbot/internal/webhook"
)

// App holds the constructed services
type App struct {
	Metrics    *metrics.Metrics
	Weather    *weather.Service
	Telegram   *telegram.Client
	Speech     *speech.Client
	Dispatcher *bot.Dispatcher
	Processor  *webhook.Processor
}

// New builds every service from cfg. Collectors are registered with reg.
func New(cfg *config.Config, reg prometheus.Registerer, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	m := metrics.New(reg)
	breaker := upstream.BreakerConfig{
		Enabled:          cfg.BreakerEnabled,
		FailureThreshold: uint32(max(cfg.BreakerFailureThreshold, 0)),
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}
	client := func(name string) *http.Client {
		return upstream.NewClient(name, cfg.HTTPClientTimeout, breaker, m, log)
	}

	weatherSvc := weather.NewService(weather.Config{
		Token:    cfg.WeatherToken,
		BaseURL:  cfg.WeatherAPIURL,
		Location: loc,
	}, client("openweather"), log.Named("weather"))

	tg := telegram.NewClient(telegram.Config{
		Token:   cfg.TelegramToken,
		BaseURL: cfg.TelegramAPIURL,
	}, client("telegram"), log.Named("telegram"))

	speechClient := speech.NewClient(speech.Config{
		STTURL:   cfg.STTAPIURL,
		TTSURL:   cfg.TTSAPIURL,
		FolderID: cfg.SpeechFolderID,
	}, tokenSource(cfg, m, log), client("speechkit"), log.Named("speech"))

	dispatcher := bot.NewDispatcher(bot.Config{ZoneLabel: cfg.ZoneLabel},
		weatherSvc, tg, speechClient, tg, log.Named("bot"))

	return &App{
		Metrics:    m,
		Weather:    weatherSvc,
		Telegram:   tg,
		Speech:     speechClient,
		Dispatcher: dispatcher,
		Processor:  webhook.NewProcessor(dispatcher, m, log.Named("webhook")),
	}, nil
}

// tokenSource prefers a configured IAM token and falls back to the metadata
// service of the host the bot runs on.
func tokenSource(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) speech.TokenSource {
	if cfg.SpeechToken != "" {
		return speech.StaticToken(cfg.SpeechToken)
	}
	log.Info("No speech token configured, using metadata service")
	metadata := upstream.NewClient("metadata", cfg.HTTPClientTimeout, upstream.BreakerConfig{}, m, log)
	return speech.NewMetadataTokenSource(cfg.MetadataURL, metadata)
}

// UpdateProcessor accepts raw webhook bodies
type UpdateProcessor interface {
	Process(ctx context.Context, payload []byte) error
}

// Updates returns the synchronous processor, or an async one in
// front of it when WebhookMode is async. stop drains the async queue and is
// a no-op in sync mode.
func (a *App) Updates(cfg *config.Config, log *zap.Logger) (p UpdateProcessor, stop func(context.Context) error) {
	if cfg.WebhookMode != config.WebhookModeAsync {
		return a.Processor, func(context.Context) error { return nil }
	}
	if log == nil {
		log = zap.NewNop()
	}
	async := webhook.NewAsyncProcessor(a.Processor, webhook.AsyncConfig{
		QueueSize: cfg.WebhookQueueSize,
		Workers:   cfg.WebhookWorkers,
	}, a.Metrics, log.Named("webhook"))
	return async, async.Stop
}
