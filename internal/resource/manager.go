package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/cache"
)

// ErrReleased is returned when using a handle after Release.
var ErrReleased = errors.New("audio handle has been released")

// DefaultPCMCacheSize bounds decoded clip audio kept in memory.
const DefaultPCMCacheSize = 256 * 1024 * 1024

// Handle is a playable reference to one clip. The zero value is not usable;
// handles come from Manager.Materialize.
type Handle struct {
	id       uint64
	mimeType string
	data     []byte
	hash     string
	released atomic.Bool
}

// ID returns the process-unique handle number.
func (h *Handle) ID() uint64 { return h.id }

// MIMEType returns the media type from the data URI.
func (h *Handle) MIMEType() string { return h.mimeType }

// Size returns the encoded clip size in bytes.
func (h *Handle) Size() int { return len(h.data) }

// Released reports whether the handle has been released.
func (h *Handle) Released() bool { return h.released.Load() }

// Manager creates, decodes and releases handles.
type Manager struct {
	format audio.Format
	pcm    *cache.MemoryCache
	logger *log.Logger

	nextID atomic.Uint64

	mu   sync.Mutex
	live map[uint64]*Handle

	// decoding serialises decodes of the same clip
	decoding sync.Map // hash -> *sync.Mutex
}

// NewManager creates a manager decoding clips to format. A nil pcm cache
// gets a default-sized one.
func NewManager(format audio.Format, pcm *cache.MemoryCache, logger *log.Logger) *Manager {
	if pcm == nil {
		pcm = cache.NewMemoryCache(DefaultPCMCacheSize)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		format: format,
		pcm:    pcm,
		logger: logger,
		live:   make(map[uint64]*Handle),
	}
}

// Materialize parses content and returns a fresh handle. Every call yields
// a distinct handle, even for identical content.
func (m *Manager) Materialize(content string) (*Handle, error) {
	mimeType, data, err := ParseDataURI(content)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	h := &Handle{
		id:       m.nextID.Add(1),
		mimeType: mimeType,
		data:     data,
		hash:     mimeType + ":" + hex.EncodeToString(sum[:]),
	}

	m.mu.Lock()
	m.live[h.id] = h
	m.mu.Unlock()

	m.logger.Debug("materialized", "handle", h.id, "mime", mimeType, "bytes", len(data))
	return h, nil
}

// Release invalidates h. Nil and already released handles are ignored.
func (m *Manager) Release(h *Handle) {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	delete(m.live, h.id)
	m.mu.Unlock()

	m.logger.Debug("released", "handle", h.id)
}

// PCM decodes the clip behind h to the device format. Decoded audio is
// shared by every handle with the same content.
func (m *Manager) PCM(h *Handle) (*audio.PCM, error) {
	if h == nil {
		return nil, errors.New("nil audio handle")
	}
	if h.Released() {
		return nil, ErrReleased
	}

	if data, ok := m.pcm.Get(h.hash); ok {
		return &audio.PCM{Data: data, Format: m.format}, nil
	}

	lock, _ := m.decoding.LoadOrStore(h.hash, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	// Waiters already hold mu; later callers find the cache entry
	defer m.decoding.Delete(h.hash)

	// Another caller may have finished the decode while we waited
	if data, ok := m.pcm.Get(h.hash); ok {
		return &audio.PCM{Data: data, Format: m.format}, nil
	}

	pcm, err := audio.Decode(h.mimeType, h.data, m.format)
	if err != nil {
		return nil, fmt.Errorf("decode handle %d: %w", h.id, err)
	}

	if err := m.pcm.Put(h.hash, pcm.Data); err != nil {
		m.logger.Debug("clip not cached", "handle", h.id, "err", err)
	}
	return pcm, nil
}

// Format returns the PCM format handles decode to.
func (m *Manager) Format() audio.Format {
	return m.format
}

// Live returns the number of unreleased handles.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close releases every live handle and drops decoded audio.
func (m *Manager) Close() error {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.live))
	for _, h := range m.live {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		m.Release(h)
	}
	return m.pcm.Clear()
}
