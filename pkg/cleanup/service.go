// Package cleanup provides the periodic history-retention purge loop.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/opera-rt/opera/pkg/config"
	"github.com/opera-rt/opera/pkg/registry"
)

// Service periodically purges history entries older than the configured
// retention window: a ticker-driven background loop with a Start/Stop
// lifecycle.
type Service struct {
	config   *config.RetentionConfig
	registry *registry.Registry

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service bound to registry, using cfg's
// HistoryRetentionSeconds and PurgeInterval.
func NewService(cfg *config.RetentionConfig, reg *registry.Registry) *Service {
	return &Service{config: cfg, registry: reg}
}

// Start launches the background purge loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup: history purge loop started",
		"history_retention_seconds", s.config.HistoryRetentionSeconds,
		"interval", s.config.PurgeInterval)
}

// Stop signals the purge loop to exit and waits for it to finish. It is a
// no-op if the loop was never started.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

// runOnce purges every human history instance older than
// HistoryRetentionSeconds behind the registry's latest observed message
// timestamp.
func (s *Service) runOnce() {
	latest := s.registry.LatestTimestamp()
	cutoffMS := uint64(s.config.HistoryRetentionSeconds) * 1000
	if latest < cutoffMS {
		return
	}
	s.registry.PurgeHistories(latest - cutoffMS)
}
