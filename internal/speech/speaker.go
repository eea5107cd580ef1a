package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/cache"
)

// SpeakerConfig configures a Speaker.
type SpeakerConfig struct {
	// DefaultVoice is used when a line's voice is not available.
	DefaultVoice string

	// HidePrefixes hides voices by name prefix from listings and fallback.
	HidePrefixes []string

	// Volume for spoken lines, 0.0 to 1.0.
	Volume float64
}

// Speaker speaks lines through an engine and an audio output.
type Speaker struct {
	engine Engine
	out    audio.Output
	cache  *cache.Manager
	config SpeakerConfig
	logger *log.Logger

	voicesMu sync.Mutex
	voices   []Voice // nil until first successful listing

	mu     sync.Mutex
	active map[uint64]context.CancelFunc
	nextID uint64
}

// NewSpeaker creates a speaker. cache may be nil.
func NewSpeaker(engine Engine, out audio.Output, c *cache.Manager, config SpeakerConfig, logger *log.Logger) *Speaker {
	if logger == nil {
		logger = log.Default()
	}
	if config.Volume <= 0 || config.Volume > 1 {
		config.Volume = 1.0
	}
	return &Speaker{
		engine: engine,
		out:    out,
		cache:  c,
		config: config,
		logger: logger,
		active: make(map[uint64]context.CancelFunc),
	}
}

// Voices returns the engine's voices with hidden prefixes filtered out.
// The first successful listing is kept.
func (s *Speaker) Voices(ctx context.Context) ([]Voice, error) {
	s.voicesMu.Lock()
	defer s.voicesMu.Unlock()

	if s.voices != nil {
		return s.voices, nil
	}

	all, err := s.engine.Voices(ctx)
	if err != nil {
		return nil, &EngineError{Engine: s.engine.Name(), Op: "list voices", Err: err}
	}
	s.voices = FilterVoices(all, s.config.HidePrefixes)
	if s.voices == nil {
		s.voices = []Voice{}
	}
	return s.voices, nil
}

// Resolve picks the voice for name: the exact match, else the configured
// default, else the first available voice.
func (s *Speaker) Resolve(ctx context.Context, name string) (Voice, error) {
	voices, err := s.Voices(ctx)
	if err != nil {
		return Voice{}, err
	}
	if len(voices) == 0 {
		return Voice{}, ErrNoVoices
	}

	if v, ok := FindVoice(voices, name); ok {
		return v, nil
	}

	fallback := voices[0]
	if v, ok := FindVoice(voices, s.config.DefaultVoice); ok {
		fallback = v
	}
	s.logger.Warn("voice not available, using fallback", "voice", name, "fallback", fallback.Name)
	return fallback, nil
}

// Synthesize returns audio for text in the output format, using the cache
// when possible. Text is keyed in NFC so equal strings typed differently
// share an entry.
func (s *Speaker) Synthesize(ctx context.Context, text string, voice Voice) (*audio.PCM, error) {
	format := s.out.Format()
	key := cache.GenerateCacheKey(
		fmt.Sprintf("%s/%d/%d", s.engine.Name(), format.SampleRate, format.Channels),
		voice.Name, norm.NFC.String(text))

	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			s.logger.Debug("speech cache hit", "voice", voice.Name)
			return &audio.PCM{Data: data, Format: format}, nil
		}
	}

	pcm, err := s.engine.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, &EngineError{Engine: s.engine.Name(), Op: "synthesize", Err: err}
	}

	data, err := audio.Convert(pcm.Data, pcm.Format, format)
	if err != nil {
		return nil, fmt.Errorf("convert speech: %w", err)
	}
	data = data[:len(data)-len(data)%format.FrameSize()]

	if s.cache != nil {
		if err := s.cache.Put(key, data); err != nil {
			s.logger.Debug("speech not cached", "err", err)
		}
	}
	return &audio.PCM{Data: data, Format: format}, nil
}

// Speak synthesizes text with the named voice and plays it, returning when
// playback ends, ctx is done, or CancelAll is called.
func (s *Speaker) Speak(ctx context.Context, text, voiceName string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	ctx, id := s.track(ctx)
	defer s.untrack(id)

	voice, err := s.Resolve(ctx, voiceName)
	if err != nil {
		return err
	}

	pcm, err := s.Synthesize(ctx, text, voice)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(pcm.Data) == 0 {
		return nil
	}

	track, err := s.out.Play(pcm, s.config.Volume)
	if err != nil {
		return fmt.Errorf("play speech: %w", err)
	}

	select {
	case <-track.Done():
		return track.Err()
	case <-ctx.Done():
		track.Stop()
		return ctx.Err()
	}
}

// Warm synthesizes text into the cache so a later Speak starts at once.
// It does nothing when the speaker has no cache.
func (s *Speaker) Warm(ctx context.Context, text, voiceName string) error {
	if s.cache == nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	voice, err := s.Resolve(ctx, voiceName)
	if err != nil {
		return err
	}
	_, err = s.Synthesize(ctx, text, voice)
	return err
}

// CancelAll stops every line currently being synthesized or spoken.
func (s *Speaker) CancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.active))
	for _, cancel := range s.active {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Active returns the number of Speak calls in flight.
func (s *Speaker) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close cancels speech and closes the engine.
func (s *Speaker) Close() error {
	s.CancelAll()
	return s.engine.Close()
}

func (s *Speaker) track(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.active[s.nextID] = cancel
	return ctx, s.nextID
}

func (s *Speaker) untrack(id uint64) {
	s.mu.Lock()
	cancel := s.active[id]
	delete(s.active, id)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsCanceled reports whether err came from CancelAll or a done context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
