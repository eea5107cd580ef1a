package engines

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/speech"
)

// MockFormat is the PCM format the mock engine produces.
var MockFormat = audio.Format{SampleRate: 22050, Channels: 1}

// mockWordDuration is the simulated speaking time per word.
const mockWordDuration = 50 * time.Millisecond

// Mock is a silent engine for tests and dry runs. It produces silence sized
// by word count.
type Mock struct {
	voices []speech.Voice

	mu           sync.Mutex
	delay        time.Duration
	err          error
	onSynthesize func(text string, voice speech.Voice)

	calls atomic.Int64
}

// NewMock creates a mock engine. With no names it offers "Alice" and "Bob".
func NewMock(voiceNames ...string) *Mock {
	if len(voiceNames) == 0 {
		voiceNames = []string{"Alice", "Bob"}
	}
	voices := make([]speech.Voice, len(voiceNames))
	for i, name := range voiceNames {
		voices[i] = speech.Voice{Name: name, Language: "en"}
	}
	return &Mock{voices: voices}
}

// SetDelay makes Synthesize wait before returning.
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// SetError makes Synthesize fail with err. Pass nil to clear.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// OnSynthesize registers a hook called for every request.
func (m *Mock) OnSynthesize(fn func(text string, voice speech.Voice)) {
	m.mu.Lock()
	m.onSynthesize = fn
	m.mu.Unlock()
}

// Calls returns the number of Synthesize calls.
func (m *Mock) Calls() int64 {
	return m.calls.Load()
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Voices(context.Context) ([]speech.Voice, error) {
	out := make([]speech.Voice, len(m.voices))
	copy(out, m.voices)
	return out, nil
}

func (m *Mock) Synthesize(ctx context.Context, text string, voice speech.Voice) (*audio.PCM, error) {
	m.calls.Add(1)

	m.mu.Lock()
	delay, err, hook := m.delay, m.err, m.onSynthesize
	m.mu.Unlock()

	if hook != nil {
		hook(text, voice)
	}
	if err != nil {
		return nil, err
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	words := len(strings.Fields(text))
	if words == 0 {
		return nil, speech.ErrEmptyText
	}
	return audio.Silence(time.Duration(words)*mockWordDuration, MockFormat), nil
}

func (m *Mock) Validate() error { return nil }
func (m *Mock) Close() error    { return nil }

var _ speech.Engine = (*Mock)(nil)
