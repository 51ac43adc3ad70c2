package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"weatherbot/internal/metrics"
)

var (
	ErrQueueFull = errors.New("webhook queue full")
	ErrStopped   = errors.New("webhook processor stopped")
)

type AsyncConfig struct {
	QueueSize int
	Workers   int
}

// AsyncProcessor acknowledges updates immediately and answers them on a
// fixed pool of workers.
type AsyncProcessor struct {
	processor *Processor
	jobs      chan []byte
	metrics   *metrics.Metrics
	log       *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewAsyncProcessor(processor *Processor, cfg AsyncConfig, m *metrics.Metrics, log *zap.Logger) *AsyncProcessor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &AsyncProcessor{
		processor: processor,
		jobs:      make(chan []byte, cfg.QueueSize),
		metrics:   m,
		log:       log,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Process queues the update. It fails when ctx is already done, the queue is
// full or the processor is stopping; it never waits for the update to be
// answered.
func (p *AsyncProcessor) Process(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.processor == nil {
		return errors.New("webhook processor is nil")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- append([]byte(nil), payload...):
		p.observeDepth()
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new updates and waits for queued ones to be answered.
func (p *AsyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("stop webhook workers: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (p *AsyncProcessor) worker() {
	defer p.wg.Done()
	for payload := range p.jobs {
		p.observeDepth()
		if err := p.processor.Process(context.Background(), payload); err != nil {
			p.log.Error("async update failed", zap.Error(err))
		}
	}
}

func (p *AsyncProcessor) observeDepth() {
	if p.metrics != nil {
		p.metrics.WebhookQueueDepth.Set(float64(len(p.jobs)))
	}
}
