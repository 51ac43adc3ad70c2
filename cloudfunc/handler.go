// Package cloudfunc exposes the bot as a serverless function. The host calls
// Handler with the raw HTTP event; the reply to Telegram is always an empty 200.
package cloudfunc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"weatherbot/internal/app"
	"weatherbot/internal/config"
	"weatherbot/internal/logging"
)

// Event is the subset of the HTTP trigger envelope the bot reads.
type Event struct {
	HTTPMethod      string `json:"httpMethod"`
	Body            string `json:"body"`
	IsBase64Encoded bool   `json:"isBase64Encoded"`
}

// Response is returned to the trigger and becomes the HTTP reply.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type Processor interface {
	Process(ctx context.Context, payload []byte) error
}

// Function answers one event per invocation
type Function struct {
	processor Processor
	log       *zap.Logger
}

func New(processor Processor, log *zap.Logger) *Function {
	if log == nil {
		log = zap.NewNop()
	}
	return &Function{processor: processor, log: log}
}

// Handle decodes the event body and processes the update synchronously.
// Processing failures are returned so the host records a failed invocation.
func (f *Function) Handle(ctx context.Context, event []byte) (*Response, error) {
	var ev Event
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	body := []byte(ev.Body)
	if ev.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base64 body: %w", err)
		}
		body = decoded
	}

	if err := f.processor.Process(ctx, body); err != nil {
		f.log.Error("process update", zap.Error(err))
		return nil, err
	}
	return &Response{StatusCode: 200, Body: ""}, nil
}

var (
	once    sync.Once
	fn      *Function
	initErr error
)

// Handler is the function entry point. Services are built once per instance
// and reused across invocations.
func Handler(ctx context.Context, event []byte) (*Response, error) {
	once.Do(func() {
		fn, initErr = setup()
	})
	if initErr != nil {
		return nil, initErr
	}
	return fn.Handle(ctx, event)
}

func setup() (*Function, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	// no scrape endpoint in a function; collectors stay local
	a, err := app.New(cfg, prometheus.NewRegistry(), log)
	if err != nil {
		return nil, err
	}
	if a.Processor == nil {
		return nil, errors.New("no update processor")
	}
	return New(a.Processor, log.Named("cloudfunc")), nil
}
