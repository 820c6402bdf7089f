// Package stream fans tree change events out to subscribers.
package stream

import (
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// AllKeys subscribes to the events of every storage key.
const AllKeys = "*"

// DefaultBuffer is the per-subscriber queue length. Slow subscribers lose events
// beyond it rather than blocking publishers.
const DefaultBuffer = 16

// Manager handles active subscriptions, grouped by storage key.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *domain.TreeEvent]struct{}
	closed      bool
	logger      *slog.Logger
}

// NewManager creates an empty Manager. A nil logger discards diagnostics.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		subscribers: make(map[string]map[chan *domain.TreeEvent]struct{}),
		logger:      logger,
	}
}

// Subscribe registers interest in key (or AllKeys). The returned cancel function
// unregisters and closes the channel; calling it more than once is safe.
func (sm *Manager) Subscribe(key string) (<-chan *domain.TreeEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan *domain.TreeEvent, DefaultBuffer)
	if sm.closed {
		close(ch)
		return ch, func() {}
	}
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan *domain.TreeEvent]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		subs, ok := sm.subscribers[key]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(sm.subscribers, key)
		}
	}
}

// Broadcast delivers e to the subscribers of e.Key and of AllKeys.
func (sm *Manager) Broadcast(e *domain.TreeEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("Stream: Broadcasting", "key", e.Key, "type", e.Type, "payload_size", len(e.Tree))

	for _, key := range []string{e.Key, AllKeys} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- e:
			default:
				sm.logger.Warn("Stream: Subscriber buffer full, dropping event", "key", e.Key)
			}
		}
	}
}

// Count returns the number of subscribers registered for key.
func (sm *Manager) Count(key string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[key])
}

// Close ends every subscription. Later subscriptions receive a closed channel.
func (sm *Manager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.closed {
		return
	}
	sm.closed = true
	for key, subs := range sm.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(sm.subscribers, key)
	}
}
