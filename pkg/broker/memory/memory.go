// Package memory implements an in-process broker.Broker: an append-only
// log per topic guarded by a mutex, with a background goroutine per
// subscriber polling for new entries.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opera-rt/opera/pkg/broker"
)

const defaultPollInterval = 5 * time.Millisecond

// Broker is an in-memory broker.Broker, primarily useful for tests and
// single-process deployments.
type Broker struct {
	mu     sync.Mutex
	logs   map[broker.Topic][][]byte
	closed bool

	pollInterval time.Duration
	cancel       []context.CancelFunc
	wg           sync.WaitGroup
}

// New returns an empty memory broker.
func New() *Broker {
	return &Broker{logs: make(map[broker.Topic][][]byte), pollInterval: defaultPollInterval}
}

// Publish appends payload to topic's log.
func (b *Broker) Publish(ctx context.Context, topic broker.Topic, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.logs[topic] = append(b.logs[topic], payload)
	return nil
}

// Subscribe starts a background goroutine that polls topic's log for
// entries past the subscriber's offset and invokes handler for each, in
// order. The offset starts at the current end of the log: a subscriber
// only sees messages published after it subscribed.
func (b *Broker) Subscribe(ctx context.Context, topic broker.Topic, handler broker.Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = append(b.cancel, cancel)
	offset := len(b.logs[topic])
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.mu.Lock()
				entries := append([][]byte(nil), b.logs[topic][offset:]...)
				b.mu.Unlock()
				for _, entry := range entries {
					if err := handler(ctx, entry); err != nil {
						slog.Warn("memory broker: handler failed", "topic", topic, "error", err)
					}
				}
				offset += len(entries)
			}
		}
	}()
	return nil
}

// Close cancels every subscriber goroutine and waits for them to exit.
func (b *Broker) Close() error {
	b.mu.Lock()
	b.closed = true
	cancels := b.cancel
	b.cancel = nil
	b.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	b.wg.Wait()
	return nil
}
