package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/identity"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to stored trees, one key at a time.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.TreeStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiration of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.TreeStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Load retrieves a stored tree.
func (m *Manager) Load(ctx context.Context, key string) (*domain.Node, error) {
	var root *domain.Node
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		root, err = m.store.Load(ctx, key)
		return err
	})
	return root, err
}

// LoadOrCreate loads the tree stored under key. If there is none, an empty tree is
// created and persisted.
func (m *Manager) LoadOrCreate(ctx context.Context, key string) (root *domain.Node, created bool, err error) {
	err = m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		root, err = m.store.Load(ctx, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTreeNotFound) {
			return fmt.Errorf("failed to check tree existence: %w", err)
		}

		root = domain.NewDecision(identity.FirstID, "", "")
		if err := m.store.Save(ctx, key, root); err != nil {
			return fmt.Errorf("failed to initialize tree: %w", err)
		}
		created = true
		return nil
	})
	return root, created, err
}

// Save persists the tree.
func (m *Manager) Save(ctx context.Context, key string, root *domain.Node) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Save(ctx, key, root)
	})
}

// Update runs a read-modify-write cycle under the key's lock.
// fn receives the stored tree and returns the tree to persist. A missing tree is
// reported as domain.ErrTreeNotFound without calling fn.
func (m *Manager) Update(ctx context.Context, key string, fn func(root *domain.Node) (*domain.Node, error)) (*domain.Node, error) {
	var saved *domain.Node
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, key)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, key, next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	return saved, err
}

// Delete removes the tree from the store.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying tree store.
func (m *Manager) Store() ports.TreeStore {
	return m.store
}

// WithLock executes a function while holding the lock for the key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
