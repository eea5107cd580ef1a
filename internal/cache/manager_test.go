package cache

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestManager(t *testing.T, memory int64) *Manager {
	t.Helper()

	m, err := NewManager(&Config{
		MemoryCapacity:   memory,
		DiskCapacity:     1 << 20,
		DiskPath:         t.TempDir(),
		CompressionLevel: 3,
	}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_BasicOperations(t *testing.T) {
	m := newTestManager(t, 1024)

	if err := m.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := m.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if err := m.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := m.Get("k"); ok {
		t.Error("key still present after Delete")
	}
}

func TestManager_DiskHitIsPromoted(t *testing.T) {
	m := newTestManager(t, 100)

	_ = m.Put("first", make([]byte, 60))
	m.Flush()
	// Pushes "first" out of memory
	_ = m.Put("second", make([]byte, 60))
	m.Flush()

	if m.memory.Contains("first") {
		t.Fatal("expected first to be evicted from memory")
	}

	if _, ok := m.Get("first"); !ok {
		t.Fatal("expected disk hit")
	}
	if !m.memory.Contains("first") {
		t.Error("disk hit was not promoted to memory")
	}

	s := m.Stats()
	if s.DiskHits != 1 || s.Promotions != 1 {
		t.Errorf("DiskHits/Promotions = %d/%d, want 1/1", s.DiskHits, s.Promotions)
	}
}

func TestManager_MemoryOnly(t *testing.T) {
	m, err := NewManager(&Config{MemoryCapacity: 1024}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	_ = m.Put("k", []byte("v"))
	if _, ok := m.Get("k"); !ok {
		t.Error("memory-only manager lost the entry")
	}
	if _, ok := m.Get("nope"); ok {
		t.Error("unexpected hit")
	}
	if m.Stats().Misses != 1 {
		t.Errorf("Misses = %d, want 1", m.Stats().Misses)
	}
}

func TestManager_Clear(t *testing.T) {
	m := newTestManager(t, 1024)
	_ = m.Put("a", []byte("1"))
	_ = m.Put("b", []byte("2"))

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := m.Get("a"); ok {
		t.Error("entry survived Clear")
	}
}

func TestManager_CleanupRoutine(t *testing.T) {
	m, err := NewManager(&Config{
		MemoryCapacity:  1024,
		TTL:             time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	_ = m.Put("stale", []byte("x"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !m.memory.Contains("stale") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("cleanup routine did not prune the stale entry")
}

func TestGenerateCacheKey(t *testing.T) {
	tests := []struct {
		name  string
		a, b  [3]string
		equal bool
	}{
		{"identical", [3]string{"piper", "amy", "hi"}, [3]string{"piper", "amy", "hi"}, true},
		{"whitespace", [3]string{"piper", "amy", "hi  there"}, [3]string{"piper", "amy", " hi there\n"}, true},
		{"voice differs", [3]string{"piper", "amy", "hi"}, [3]string{"piper", "joe", "hi"}, false},
		{"engine differs", [3]string{"piper", "amy", "hi"}, [3]string{"gtts", "amy", "hi"}, false},
		{"no boundary collisions", [3]string{"a", "bc", "d"}, [3]string{"ab", "c", "d"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := GenerateCacheKey(tt.a[0], tt.a[1], tt.a[2])
			kb := GenerateCacheKey(tt.b[0], tt.b[1], tt.b[2])
			if (ka == kb) != tt.equal {
				t.Errorf("keys equal = %v, want %v", ka == kb, tt.equal)
			}
			if len(ka) != 32 {
				t.Errorf("key length = %d, want 32", len(ka))
			}
		})
	}
}
