package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// PollerConfig holds configuration for the pending-sync poller.
type PollerConfig struct {
	// PollInterval is how often to look for pending rows (default: 30s).
	PollInterval time.Duration
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{PollInterval: 30 * time.Second}
}

// PendingProcessor is satisfied by MirrorWorker.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (int, error)
}

// Poller periodically re-mirrors rows whose change message never arrived.
type Poller struct {
	processor PendingProcessor
	config    PollerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

var ErrAlreadyRunning = errors.New("poller is already running")

func NewPoller(processor PendingProcessor, config PollerConfig) *Poller {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollerConfig().PollInterval
	}
	return &Poller{processor: processor, config: config}
}

// Start begins the polling loop in a goroutine.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Pending sync poller started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for it to finish or ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Pending sync poller stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Pending sync poller stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.processor.ProcessPending(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Pending sync sweep mirrored rows", "count", n)
			}
		}
	}
}
