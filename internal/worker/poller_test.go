package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct{ calls atomic.Int32 }

func (c *countingProcessor) ProcessPending(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestDefaultPollerConfig(t *testing.T) {
	if got := DefaultPollerConfig().PollInterval; got != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", got)
	}
	p := NewPoller(&countingProcessor{}, PollerConfig{})
	if p.config.PollInterval != 30*time.Second {
		t.Errorf("zero interval should fall back to default, got %v", p.config.PollInterval)
	}
}

func TestPoller_Lifecycle(t *testing.T) {
	proc := &countingProcessor{}
	p := NewPoller(proc, PollerConfig{PollInterval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Fatal("poller should not be running initially")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start should fail, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for proc.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if proc.calls.Load() == 0 {
		t.Fatal("poller never called ProcessPending")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("poller should not be running after Stop")
	}
}

func TestPoller_StopNotRunning(t *testing.T) {
	p := NewPoller(&countingProcessor{}, DefaultPollerConfig())
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on idle poller should be nil, got %v", err)
	}
}
