package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"weatherbot/internal/bot"
	"weatherbot/internal/metrics"
	"weatherbot/internal/telegram"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, m *telegram.Message) (bot.Outcome, error)
}

// Processor decodes one Telegram update and answers it in the caller's goroutine
type Processor struct {
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewProcessor(dispatcher Dispatcher, m *metrics.Metrics, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{dispatcher: dispatcher, metrics: m, log: log}
}

// Process handles one webhook body. Updates without a new message are ignored.
func (p *Processor) Process(ctx context.Context, payload []byte) error {
	if p.dispatcher == nil {
		return fmt.Errorf("dispatcher not configured")
	}

	var update telegram.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		return fmt.Errorf("parse update: %w", err)
	}

	log := p.log.With(zap.Int("update_id", update.UpdateID))
	if update.Message == nil {
		log.Debug("update ignored", zap.Error(telegram.ErrNoMessage))
		return nil
	}

	start := time.Now()
	outcome, err := p.dispatcher.Dispatch(ctx, update.Message)
	if p.metrics != nil {
		p.metrics.UpdatesTotal.WithLabelValues(string(outcome)).Inc()
		p.metrics.UpdateDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("dispatch update %d: %w", update.UpdateID, err)
	}
	return nil
}
