package sequencer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/resource"
	"github.com/dgnsrekt/scriptplay/internal/script"
	"github.com/dgnsrekt/scriptplay/internal/speech"
)

// Source provides the items to play. Items must return a copy.
type Source interface {
	Items() []script.Item
}

// Synthesizer speaks lines. Speak blocks until the line has been spoken or
// ctx is done. CancelAll aborts every line in flight.
type Synthesizer interface {
	Speak(ctx context.Context, text, voiceName string) error
	CancelAll()
}

// Resources turns clip handles into playable audio.
type Resources interface {
	Materialize(content string) (*resource.Handle, error)
	Release(h *resource.Handle)
	PCM(h *resource.Handle) (*audio.PCM, error)
}

// Prefetcher prepares items that are about to play. Prefetch must not
// block; work for a run is abandoned once its ctx is done.
type Prefetcher interface {
	Prefetch(ctx context.Context, items []script.Item)
	Clear()
}

// Config holds playback levels and limits.
type Config struct {
	// BackgroundVolume is the level of the background slot, 0.0 to 1.0.
	BackgroundVolume float64

	// EffectVolume is the level of sound effects, 0.0 to 1.0.
	EffectVolume float64

	// SpeechTimeout bounds one spoken line. Zero waits forever.
	SpeechTimeout time.Duration

	// Lookahead is how many items past the current one are handed to the
	// prefetcher. Zero disables prefetching.
	Lookahead int
}

// DefaultConfig returns the standard levels.
func DefaultConfig() Config {
	return Config{
		BackgroundVolume: 0.4,
		EffectVolume:     1.0,
		Lookahead:        2,
	}
}

// Sequencer plays scripts. All methods are safe for concurrent use.
type Sequencer struct {
	source Source
	synth  Synthesizer
	out    audio.Output
	res    Resources
	config Config
	logger *log.Logger

	prefetch Prefetcher

	mu         sync.Mutex
	machine    *stateMachine
	generation uint64
	cancel     context.CancelFunc
	foreground audio.Track
	background audio.Track

	listenersMu sync.RWMutex
	listeners   []func(Event)

	runs sync.WaitGroup
}

// New creates an idle sequencer.
func New(source Source, synth Synthesizer, out audio.Output, res Resources, config Config, logger *log.Logger) *Sequencer {
	if logger == nil {
		logger = log.Default()
	}
	s := &Sequencer{
		source:  source,
		synth:   synth,
		out:     out,
		res:     res,
		config:  config,
		logger:  logger,
		machine: newStateMachine(),
	}
	s.machine.OnEnter(StateIdle, func() { s.logger.Debug("idle", "generation", s.generation) })
	s.machine.OnEnter(StatePlaying, func() { s.logger.Debug("playing", "generation", s.generation) })
	return s
}

// SetPrefetcher installs p to warm upcoming items. Call it before Start.
func (s *Sequencer) SetPrefetcher(p Prefetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefetch = p
}

// OnEvent registers fn to receive events. fn runs on the goroutine that
// produced the event and must not block.
func (s *Sequencer) OnEvent(fn func(Event)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// Start plays a snapshot of the source from the top. While playing it acts
// as Stop. It returns ErrEmptyScript when there is nothing to play.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.machine.Current() == StatePlaying {
		s.mu.Unlock()
		s.Stop()
		return nil
	}

	items := s.source.Items()
	if len(items) == 0 {
		s.mu.Unlock()
		return ErrEmptyScript
	}

	s.synth.CancelAll()

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.machine.Transition(StatePlaying)
	prefetch := s.prefetch
	s.runs.Add(1)
	s.mu.Unlock()

	s.logger.Info("playback started", "items", len(items), "generation", gen)
	s.emit(Event{Type: EventStarted, Generation: gen, Total: len(items)})

	go s.run(ctx, gen, items, prefetch)
	return nil
}

// Stop ends the current run immediately, cancelling speech and silencing
// both audio slots. It does not wait for the run goroutine; use Wait for
// that. Stop is a no-op when idle.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.machine.Current() != StatePlaying {
		s.mu.Unlock()
		return
	}

	gen := s.generation
	// A new generation orphans the run so it cannot touch shared state
	s.generation++
	s.teardown()
	s.mu.Unlock()

	s.logger.Info("playback stopped", "generation", gen)
	s.emit(Event{Type: EventStopped, Generation: gen})
}

// Wait blocks until every run goroutine has exited.
func (s *Sequencer) Wait() {
	s.runs.Wait()
}

// teardown silences everything and returns to idle. Callers hold s.mu.
func (s *Sequencer) teardown() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.synth.CancelAll()
	if s.prefetch != nil {
		s.prefetch.Clear()
	}

	if s.foreground != nil {
		s.foreground.Stop()
		s.foreground = nil
	}
	if s.background != nil {
		s.background.Stop()
		s.background = nil
	}
	s.machine.Transition(StateIdle)
}

func (s *Sequencer) run(ctx context.Context, gen uint64, items []script.Item, prefetch Prefetcher) {
	defer s.runs.Done()

	total := len(items)
	for i, item := range items {
		if ctx.Err() != nil {
			return
		}
		if prefetch != nil && s.config.Lookahead > 0 {
			prefetch.Prefetch(ctx, items[i+1:min(total, i+1+s.config.Lookahead)])
		}
		s.emit(Event{Type: EventItemStarted, Generation: gen, Index: i, Total: total, Item: item})

		var err error
		switch v := item.(type) {
		case script.SpeechItem:
			err = s.speak(ctx, v)
		case script.AudioItem:
			if v.Role == script.RoleBackground {
				err = s.startBackground(ctx, gen, i, total, v)
			} else {
				err = s.playEffect(ctx, gen, v)
			}
		}

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("item failed", "index", i, "id", item.ID(), "err", err)
			s.emit(Event{Type: EventItemFailed, Generation: gen, Index: i, Total: total, Item: item, Err: err})
			continue
		}
		s.emit(Event{Type: EventItemDone, Generation: gen, Index: i, Total: total, Item: item})
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.teardown()
	s.mu.Unlock()

	s.logger.Info("playback finished", "items", total, "generation", gen)
	s.emit(Event{Type: EventFinished, Generation: gen, Total: total})
}

func (s *Sequencer) speak(ctx context.Context, item script.SpeechItem) error {
	if s.config.SpeechTimeout <= 0 {
		return s.synth.Speak(ctx, item.Text, item.VoiceName)
	}

	lineCtx, cancel := context.WithTimeout(ctx, s.config.SpeechTimeout)
	defer cancel()

	err := s.synth.Speak(lineCtx, item.Text, item.VoiceName)
	if ctx.Err() == nil && errors.Is(lineCtx.Err(), context.DeadlineExceeded) {
		return &speech.SynthesisStallError{
			Voice:   item.VoiceName,
			Text:    item.Text,
			Timeout: s.config.SpeechTimeout,
		}
	}
	return err
}

func (s *Sequencer) playEffect(ctx context.Context, gen uint64, item script.AudioItem) error {
	pcm, release, err := s.clipPCM(item)
	if err != nil {
		return &PlaybackResourceError{ItemID: item.ID(), FileName: item.FileName, Err: err}
	}
	defer release()

	track, err := s.out.Play(pcm, s.config.EffectVolume)
	if err != nil {
		return &PlaybackResourceError{ItemID: item.ID(), FileName: item.FileName, Err: err}
	}
	if !s.claim(gen, &s.foreground, track) {
		track.Stop()
		return nil
	}

	select {
	case <-track.Done():
		err = track.Err()
	case <-ctx.Done():
	}
	track.Stop()

	s.mu.Lock()
	if s.foreground == track {
		s.foreground = nil
	}
	s.mu.Unlock()

	if err != nil {
		return &PlaybackResourceError{ItemID: item.ID(), FileName: item.FileName, Err: err}
	}
	return nil
}

func (s *Sequencer) startBackground(ctx context.Context, gen uint64, index, total int, item script.AudioItem) error {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return ctx.Err()
	}
	prev := s.background
	s.background = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	pcm, release, err := s.clipPCM(item)
	if err != nil {
		return &PlaybackResourceError{ItemID: item.ID(), FileName: item.FileName, Err: err}
	}
	defer release()

	track, err := s.out.Play(pcm, s.config.BackgroundVolume)
	if err != nil {
		return &PlaybackResourceError{ItemID: item.ID(), FileName: item.FileName, Err: err}
	}
	if !s.claim(gen, &s.background, track) {
		track.Stop()
		return nil
	}

	s.emit(Event{Type: EventBackgroundStarted, Generation: gen, Index: index, Total: total, Item: item})
	return nil
}

// claim stores track in slot if gen is still current.
func (s *Sequencer) claim(gen uint64, slot *audio.Track, track audio.Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	*slot = track
	return true
}

// clipPCM decodes the clip behind item. If the store has already released
// the item's handle a temporary one is made from its content; the returned
// func releases it.
func (s *Sequencer) clipPCM(item script.AudioItem) (*audio.PCM, func(), error) {
	noop := func() {}

	if h := item.Handle(); h != nil {
		pcm, err := s.res.PCM(h)
		if err == nil {
			return pcm, noop, nil
		}
		if !errors.Is(err, resource.ErrReleased) {
			return nil, noop, err
		}
	}

	tmp, err := s.res.Materialize(item.Content)
	if err != nil {
		return nil, noop, err
	}
	pcm, err := s.res.PCM(tmp)
	if err != nil {
		s.res.Release(tmp)
		return nil, noop, err
	}
	return pcm, func() { s.res.Release(tmp) }, nil
}

func (s *Sequencer) emit(e Event) {
	s.listenersMu.RLock()
	listeners := make([]func(Event), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(e)
	}
}
