package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCache_RoundTripCompressed(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	// Silence compresses well
	value := make([]byte, 8192)
	if err := dc.Put("speech", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if dc.Size() >= int64(len(value)) {
		t.Errorf("Size %d should be smaller than raw %d", dc.Size(), len(value))
	}

	got, ok := dc.Get("speech")
	if !ok {
		t.Fatal("Get failed")
	}
	if !bytes.Equal(got, value) {
		t.Error("decompressed value differs")
	}
}

func TestDiskCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	if err := dc.Put("line", []byte("hello")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, indexFile)); err != nil {
		t.Fatalf("index not written: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("line")
	if !ok || string(got) != "hello" {
		t.Errorf("Get after reopen = %q, %v", got, ok)
	}
}

func TestDiskCache_EvictsWhenFull(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 100, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("a", make([]byte, 60))
	time.Sleep(time.Millisecond)
	_ = dc.Put("b", make([]byte, 60))

	if dc.Contains("a") {
		t.Error("oldest entry should have been evicted")
	}
	if !dc.Contains("b") {
		t.Error("newest entry missing")
	}
	if err := dc.Put("huge", make([]byte, 101)); err != ErrItemTooLarge {
		t.Errorf("Put error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("gone", []byte("data"))
	if err := os.Remove(filepath.Join(dir, fileName("gone"))); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok := dc.Get("gone"); ok {
		t.Error("expected miss for deleted file")
	}
	if dc.Contains("gone") {
		t.Error("index entry should be dropped")
	}
}

func TestDiskCache_RemoveOlderThan(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("old", []byte("1"))
	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("new", []byte("2"))

	if n := dc.RemoveOlderThan(cutoff); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if !dc.Contains("new") {
		t.Error("new entry removed")
	}
}
