package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager layers the memory cache over the optional disk cache. Reads
// check memory first and promote disk hits; writes go to memory at once
// and to disk in the background.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache // nil when persistence is disabled
	config Config
	logger *log.Logger

	writes sync.WaitGroup

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates hits across tiers.
type ManagerStats struct {
	MemoryHits  int64
	DiskHits    int64
	Misses      int64
	Promotions  int64
	CleanupRuns int64
	LastCleanup time.Time

	Memory Stats
	Disk   Stats
}

// NewManager creates a cache manager. A nil config uses DefaultConfig.
func NewManager(config *Config, logger *log.Logger) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	m := &Manager{
		memory:      NewMemoryCache(config.MemoryCapacity),
		config:      *config,
		logger:      logger,
		cleanupStop: make(chan struct{}),
	}

	if config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
	}

	if config.CleanupInterval > 0 {
		m.startCleanupRoutine()
	}

	return m, nil
}

// Get looks key up in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.mu.Lock()
		m.stats.MemoryHits++
		m.mu.Unlock()
		return data, true
	}

	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			// Promotion is best effort
			_ = m.memory.Put(key, data)

			m.mu.Lock()
			m.stats.DiskHits++
			m.stats.Promotions++
			m.mu.Unlock()
			return data, true
		}
	}

	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
	return nil, false
}

// Put stores value in memory and schedules the disk write.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}

	if m.disk != nil {
		m.writes.Add(1)
		go func() {
			defer m.writes.Done()
			if err := m.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
				m.logger.Warn("disk cache write failed", "key", key, "err", err)
			}
		}()
	}

	return nil
}

// Flush waits for pending disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Delete removes key from every tier.
func (m *Manager) Delete(key string) error {
	m.Flush()
	err := m.memory.Delete(key)
	if m.disk != nil {
		err = errors.Join(err, m.disk.Delete(key))
	}
	return err
}

// Clear empties every tier.
func (m *Manager) Clear() error {
	m.Flush()
	err := m.memory.Clear()
	if m.disk != nil {
		err = errors.Join(err, m.disk.Clear())
	}
	return err
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()

	s.Memory = m.memory.Stats()
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	return s
}

// Close stops the cleanup routine, waits for pending writes and saves the
// disk index.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		m.writes.Wait()

		if m.disk != nil {
			if cerr := m.disk.Close(); cerr != nil {
				err = fmt.Errorf("failed to close disk cache: %w", cerr)
			}
		}
	})
	return err
}

// GenerateCacheKey derives the key for synthesized speech. Text is
// whitespace-normalised so trivially different edits share an entry.
func GenerateCacheKey(engine, voice, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	hash := sha256.Sum256([]byte(engine + "\x00" + voice + "\x00" + normalized))
	return hex.EncodeToString(hash[:16])
}

func (m *Manager) startCleanupRoutine() {
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()

		ticker := time.NewTicker(m.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.performCleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

func (m *Manager) performCleanup() {
	m.mu.Lock()
	m.stats.CleanupRuns++
	m.stats.LastCleanup = time.Now()
	m.mu.Unlock()

	if m.config.TTL > 0 {
		pruned := m.memory.Prune(m.config.TTL)
		removed := 0
		if m.disk != nil {
			removed = m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
		}
		if pruned+removed > 0 {
			m.logger.Debug("cache cleanup", "memory", pruned, "disk", removed)
		}
	}

	if m.disk != nil && m.disk.Size() > m.config.DiskCapacity {
		m.disk.EvictLRU()
	}
}
