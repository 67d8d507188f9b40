package cache

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Manager owns the named caches of a service and closes them with it.
type Manager interface {
	AddCache(name string, cache RawCache)
	GetRawCache(name string) (RawCache, bool)
	Names() []string
	RemoveCache(name string) error
	Close() error
}

type manager struct {
	mu     sync.RWMutex
	caches map[string]RawCache
}

func NewManager() Manager {
	return &manager{caches: map[string]RawCache{}}
}

// AddCache registers cache under name. A cache previously registered under
// the same name is closed.
func (m *manager) AddCache(name string, cache RawCache) {
	m.mu.Lock()
	previous, replaced := m.caches[name]
	m.caches[name] = cache
	m.mu.Unlock()

	if replaced && previous != cache {
		_ = previous.Close()
	}
}

func (m *manager) GetRawCache(name string) (RawCache, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	return c, ok
}

// Names lists the registered caches in order.
func (m *manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.caches))
}

// RemoveCache unregisters and closes the cache under name.
func (m *manager) RemoveCache(name string) error {
	m.mu.Lock()
	c, ok := m.caches[name]
	delete(m.caches, name)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Close()
}

// Close closes every registered cache and empties the manager.
func (m *manager) Close() error {
	m.mu.Lock()
	caches := m.caches
	m.caches = map[string]RawCache{}
	m.mu.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(caches)) {
		if err := caches[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
