package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/resource"
)

// Resources creates and frees playable handles for audio items.
type Resources interface {
	Materialize(content string) (*resource.Handle, error)
	Release(h *resource.Handle)
}

// Store is the ordered, mutable script. Audio items in the store always
// hold exactly one live handle; the store releases it when the item leaves.
// All methods are safe for concurrent use.
type Store struct {
	resources Resources
	logger    *log.Logger

	mu       sync.RWMutex
	items    []Item
	index    map[string]int
	dirty    bool
	revision uint64
}

// NewStore creates an empty store.
func NewStore(resources Resources, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		resources: resources,
		logger:    logger,
		index:     make(map[string]int),
	}
}

// Append validates item and adds it at the end.
func (s *Store) Append(item Item) error {
	item = normalize(item)
	if err := validate(item); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[item.ID()]; ok {
		return &ValidationError{Field: "id", Reason: "duplicate id " + item.ID()}
	}

	item, err := s.ensureHandle(item)
	if err != nil {
		return err
	}

	s.index[item.ID()] = len(s.items)
	s.items = append(s.items, item)
	s.touch()
	return nil
}

// AddSpeech appends a new speech line and returns it.
func (s *Store) AddSpeech(voiceName, text string) (SpeechItem, error) {
	item := NewSpeech(voiceName, text)
	if err := s.Append(item); err != nil {
		return SpeechItem{}, err
	}
	return item, nil
}

// AddAudio appends a new effect clip and returns it with its handle.
func (s *Store) AddAudio(fileName, content string) (AudioItem, error) {
	item := NewAudio(fileName, content, RoleEffect)
	if err := s.Append(item); err != nil {
		return AudioItem{}, err
	}
	stored, _ := s.Get(item.ID())
	return stored.(AudioItem), nil
}

// Remove deletes the item with id and releases its handle.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return &NotFoundError{ID: id}
	}

	removed := s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.reindex()
	s.touch()

	s.releaseItem(removed)
	return nil
}

// Update replaces the item with id by mutate(copy). Id and position are
// preserved. Changing the kind is a TypeMismatchError. When an audio
// item's content changes, the new content is materialized before the old
// handle is released.
func (s *Store) Update(id string, mutate func(Item) Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	old := s.items[i]

	next := mutate(old)
	if next == nil {
		return &ValidationError{Field: "item", Reason: "update returned nil"}
	}
	if next.Kind() != old.Kind() {
		return &TypeMismatchError{ID: id, Want: old.Kind(), Got: next.Kind()}
	}

	next = normalize(withID(next, id))
	if err := validate(next); err != nil {
		return err
	}

	var stale *resource.Handle
	if na, ok := next.(AudioItem); ok {
		oa := old.(AudioItem)
		if na.Content != oa.Content || oa.handle == nil {
			h, err := s.resources.Materialize(na.Content)
			if err != nil {
				return &ValidationError{Field: "audioData", Reason: "cannot load clip", Err: err}
			}
			na.handle = h
			stale = oa.handle
		} else {
			na.handle = oa.handle
		}
		next = na
	}

	s.items[i] = next
	s.touch()

	if stale != nil {
		s.resources.Release(stale)
	}
	return nil
}

// EditText replaces the text of a speech line.
func (s *Store) EditText(id, text string) error {
	return s.updateSpeech(id, func(sp SpeechItem) SpeechItem {
		sp.Text = text
		return sp
	})
}

// SetVoice changes the voice of a speech line.
func (s *Store) SetVoice(id, voiceName string) error {
	return s.updateSpeech(id, func(sp SpeechItem) SpeechItem {
		sp.VoiceName = voiceName
		return sp
	})
}

// SetRole changes the role of an audio clip.
func (s *Store) SetRole(id string, role AudioRole) error {
	if err := s.expectKind(id, KindAudio); err != nil {
		return err
	}
	return s.Update(id, func(item Item) Item {
		a, ok := item.(AudioItem)
		if !ok {
			return item
		}
		a.Role = role
		return a
	})
}

func (s *Store) updateSpeech(id string, fn func(SpeechItem) SpeechItem) error {
	if err := s.expectKind(id, KindSpeech); err != nil {
		return err
	}
	return s.Update(id, func(item Item) Item {
		sp, ok := item.(SpeechItem)
		if !ok {
			return item
		}
		return fn(sp)
	})
}

// expectKind checks the kind of id before an update.
func (s *Store) expectKind(id string, want Kind) error {
	item, ok := s.Get(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	if item.Kind() != want {
		return &TypeMismatchError{ID: id, Want: want, Got: item.Kind()}
	}
	return nil
}

// Duplicate appends a copy of an audio clip named "Copy of <name>". The
// copy gets its own id and handle.
func (s *Store) Duplicate(id string) (AudioItem, error) {
	item, ok := s.Get(id)
	if !ok {
		return AudioItem{}, &NotFoundError{ID: id}
	}
	a, ok := item.(AudioItem)
	if !ok {
		return AudioItem{}, &TypeMismatchError{ID: id, Want: KindAudio, Got: item.Kind()}
	}

	dup := NewAudio("Copy of "+a.FileName, a.Content, a.Role)
	if err := s.Append(dup); err != nil {
		return AudioItem{}, err
	}
	stored, _ := s.Get(dup.ID())
	return stored.(AudioItem), nil
}

// ReplaceAll swaps the whole list. Items without a live handle get one. Every
// handle held by the previous list and not carried into the new one is
// released exactly once after the swap. On error nothing changes.
func (s *Store) ReplaceAll(items []Item) error {
	next := make([]Item, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		item = normalize(item)
		if err := validate(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[item.ID()]; dup {
			return fmt.Errorf("item %d: %w", i, &ValidationError{Field: "id", Reason: "duplicate id " + item.ID()})
		}
		seen[item.ID()] = struct{}{}
		next[i] = item
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created []*resource.Handle
	for i, item := range next {
		a, ok := item.(AudioItem)
		if !ok || hasLiveHandle(a) {
			continue
		}
		h, err := s.resources.Materialize(a.Content)
		if err != nil {
			for _, c := range created {
				s.resources.Release(c)
			}
			return fmt.Errorf("item %d: %w", i, &ValidationError{Field: "audioData", Reason: "cannot load clip", Err: err})
		}
		a.handle = h
		next[i] = a
		created = append(created, h)
	}

	kept := make(map[*resource.Handle]struct{})
	for _, item := range next {
		if a, ok := item.(AudioItem); ok {
			kept[a.handle] = struct{}{}
		}
	}

	previous := s.items
	s.items = next
	s.reindex()
	s.touch()

	for _, item := range previous {
		if a, ok := item.(AudioItem); ok {
			if _, still := kept[a.handle]; !still {
				s.resources.Release(a.handle)
			}
		}
	}
	return nil
}

// Clear empties the script and releases every handle.
func (s *Store) Clear() error {
	return s.ReplaceAll(nil)
}

// Load decodes raw and replaces the script with it. A failure leaves the
// current contents untouched.
func (s *Store) Load(raw []byte) error {
	items, err := Decode(raw)
	if err != nil {
		return err
	}
	if err := s.ReplaceAll(items); err != nil {
		return err
	}
	s.MarkSaved()
	s.logger.Debug("script loaded", "items", len(items))
	return nil
}

// Serialize returns the persisted form of the current script.
func (s *Store) Serialize() ([]byte, error) {
	return Serialize(s.Items())
}

// LoadFile loads a script from path. A missing file loads an empty script.
func (s *Store) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.Clear(); err != nil {
			return err
		}
		s.MarkSaved()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return s.Load(raw)
}

// SaveFile writes the script to path atomically and marks it saved.
func (s *Store) SaveFile(path string) error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save script: %w", err)
	}

	s.MarkSaved()
	s.logger.Debug("script saved", "path", path)
	return nil
}

// Items returns a snapshot of the script.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// At returns the item at a zero-based position.
func (s *Store) At(i int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.items) {
		return nil, false
	}
	return s.items[i], true
}

// Get returns the item with id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Dirty reports unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkSaved clears the dirty flag.
func (s *Store) MarkSaved() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// Revision increases on every change.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Close releases every handle and empties the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		s.releaseItem(item)
	}
	s.items = nil
	s.index = make(map[string]int)
	return nil
}

// must be called with lock held
func (s *Store) ensureHandle(item Item) (Item, error) {
	a, ok := item.(AudioItem)
	if !ok || hasLiveHandle(a) {
		return item, nil
	}

	h, err := s.resources.Materialize(a.Content)
	if err != nil {
		return nil, &ValidationError{Field: "audioData", Reason: "cannot load clip", Err: err}
	}
	a.handle = h
	return a, nil
}

// hasLiveHandle reports whether a still holds a usable handle. Snapshots
// taken before a removal carry handles that are already released.
func hasLiveHandle(a AudioItem) bool {
	return a.handle != nil && !a.handle.Released()
}

func (s *Store) releaseItem(item Item) {
	if a, ok := item.(AudioItem); ok {
		s.resources.Release(a.handle)
	}
}

// must be called with lock held
func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, item := range s.items {
		s.index[item.ID()] = i
	}
}

// must be called with lock held
func (s *Store) touch() {
	s.dirty = true
	s.revision++
}
