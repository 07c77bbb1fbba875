package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bloodbank-api/internal/dto"
)

type inventorySweeper interface {
	Sweep(ctx context.Context) (*dto.SweepResult, error)
}

// ExpirySweeper runs the inventory expiry sweep on a fixed interval.
type ExpirySweeper struct {
	inventory inventorySweeper
	interval  time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExpirySweeper constructs a sweeper. A non-positive interval disables it.
func NewExpirySweeper(inventory inventorySweeper, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{inventory: inventory, interval: interval, logger: logger}
}

// Start sweeps once immediately and then on every tick until Stop or ctx cancellation.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("expiry sweeper stopped")
}

func (s *ExpirySweeper) run(ctx context.Context) {
	result, err := s.inventory.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("expiry sweep failed", zap.Error(err))
		}
		return
	}
	if result.Expired > 0 {
		s.logger.Info("expiry sweep finished", zap.Int("expired", result.Expired))
	}
}
