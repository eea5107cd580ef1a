package engines

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/speech"
)

const (
	gttsMaxText = 5000

	// gtts-cli returns 24kHz mono MP3
	gttsSampleRate = 24000
)

// GTTSVoicePrefix starts every gTTS voice name.
const GTTSVoicePrefix = "gtts-"

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Binary is the gtts-cli executable (default "gtts-cli").
	Binary string

	// Languages become voices named gtts-<code> (default ["en"]).
	Languages []string

	// Slow enables gtts-cli --slow.
	Slow bool

	// RequestsPerMinute throttles calls to Google (default 50).
	RequestsPerMinute int

	// Timeout per synthesis (default 30s, it is a network call).
	Timeout time.Duration
}

// GTTS speaks through Google Translate using gtts-cli. The MP3 output is
// decoded in process.
type GTTS struct {
	config      GTTSConfig
	rateLimiter *rate.Limiter
}

// NewGTTS creates a gTTS engine.
func NewGTTS(config GTTSConfig) (*GTTS, error) {
	if config.Binary == "" {
		config.Binary = "gtts-cli"
	}
	if len(config.Languages) == 0 {
		config.Languages = []string{"en"}
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 50
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &GTTS{
		config:      config,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

func (g *GTTS) Name() string { return "gtts" }

// Voices returns one voice per configured language.
func (g *GTTS) Voices(context.Context) ([]speech.Voice, error) {
	voices := make([]speech.Voice, 0, len(g.config.Languages))
	for _, lang := range g.config.Languages {
		voices = append(voices, speech.Voice{Name: GTTSVoicePrefix + lang, Language: lang})
	}
	return voices, nil
}

// Synthesize fetches MP3 from gtts-cli and decodes it.
func (g *GTTS) Synthesize(ctx context.Context, text string, voice speech.Voice) (*audio.PCM, error) {
	if strings.TrimSpace(text) == "" {
		return nil, speech.ErrEmptyText
	}
	if len(text) > gttsMaxText {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(text), gttsMaxText)
	}

	lang := voice.Language
	if lang == "" {
		lang = strings.TrimPrefix(voice.Name, GTTSVoicePrefix)
	}

	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	// Text goes on stdin ("-") so it is never parsed as flags
	args := []string{"-", "-l", lang, "-o", "-"}
	if g.config.Slow {
		args = append(args, "--slow")
	}

	mp3Data, err := runProcess(ctx, g.config.Timeout, strings.NewReader(text), g.config.Binary, args...)
	if err != nil {
		return nil, err
	}

	return audio.Decode("audio/mpeg", mp3Data, audio.Format{SampleRate: gttsSampleRate, Channels: 1})
}

// Validate checks that gtts-cli is installed.
func (g *GTTS) Validate() error {
	if _, err := exec.LookPath(g.config.Binary); err != nil {
		return fmt.Errorf("gtts-cli not found in PATH: %w\n\nInstall with: pip install gtts", err)
	}
	return nil
}

func (g *GTTS) Close() error { return nil }

var _ speech.Engine = (*GTTS)(nil)
