package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	WebhookModeSync  = "sync"
	WebhookModeAsync = "async"
)

// Config holds application configuration
type Config struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	TelegramToken  string `mapstructure:"telegram_bot_token"`
	WeatherToken   string `mapstructure:"weather_token"`
	SpeechToken    string `mapstructure:"speech_iam_token"` // empty: ask the metadata service
	SpeechFolderID string `mapstructure:"speech_folder_id"`

	TelegramAPIURL string `mapstructure:"telegram_api_url"`
	WeatherAPIURL  string `mapstructure:"weather_api_url"`
	STTAPIURL      string `mapstructure:"stt_api_url"`
	TTSAPIURL      string `mapstructure:"tts_api_url"`
	MetadataURL    string `mapstructure:"metadata_url"`

	Timezone  string `mapstructure:"timezone"`
	ZoneLabel string `mapstructure:"zone_label"`

	WebhookMode      string `mapstructure:"webhook_mode"`
	WebhookQueueSize int    `mapstructure:"webhook_queue_size"`
	WebhookWorkers   int    `mapstructure:"webhook_workers"`

	HTTPClientTimeout time.Duration `mapstructure:"http_client_timeout"`

	BreakerEnabled          bool          `mapstructure:"breaker_enabled"`
	BreakerFailureThreshold int           `mapstructure:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `mapstructure:"breaker_open_timeout"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
}

var defaults = map[string]interface{}{
	"port":                      "8080",
	"gin_mode":                  "debug",
	"log_level":                 "info",
	"log_format":                "json",
	"timezone":                  "Europe/Moscow",
	"zone_label":                "МСК",
	"webhook_mode":              WebhookModeSync,
	"webhook_queue_size":        100,
	"webhook_workers":           1,
	"http_client_timeout":       10 * time.Second,
	"breaker_enabled":           true,
	"breaker_failure_threshold": 5,
	"breaker_open_timeout":      30 * time.Second,
	"shutdown_timeout":          10 * time.Second,
	"read_timeout":              15 * time.Second,
	"write_timeout":             60 * time.Second,
	"idle_timeout":              60 * time.Second,
}

// Keys without a default still need binding so Unmarshal sees them.
var envOnly = []string{
	"telegram_bot_token",
	"weather_token",
	"speech_iam_token",
	"speech_folder_id",
	"telegram_api_url",
	"weather_api_url",
	"stt_api_url",
	"tts_api_url",
	"metadata_url",
}

// Load reads configuration from environment variables and, when present,
// a config.yaml in the working directory or ./configs.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envOnly {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.WebhookMode = strings.ToLower(strings.TrimSpace(cfg.WebhookMode))
	return &cfg, nil
}

// Validate checks that the settings needed to answer updates are present.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.WeatherToken == "" {
		errs = append(errs, errors.New("WEATHER_TOKEN is required"))
	}
	if c.WebhookMode != WebhookModeSync && c.WebhookMode != WebhookModeAsync {
		errs = append(errs, fmt.Errorf("WEBHOOK_MODE must be %q or %q, got %q", WebhookModeSync, WebhookModeAsync, c.WebhookMode))
	}
	if c.WebhookQueueSize <= 0 {
		errs = append(errs, errors.New("WEBHOOK_QUEUE_SIZE must be positive"))
	}
	if c.WebhookWorkers <= 0 {
		errs = append(errs, errors.New("WEBHOOK_WORKERS must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
