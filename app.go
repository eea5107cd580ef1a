package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/cache"
	"github.com/dgnsrekt/scriptplay/internal/config"
	"github.com/dgnsrekt/scriptplay/internal/queue"
	"github.com/dgnsrekt/scriptplay/internal/resource"
	"github.com/dgnsrekt/scriptplay/internal/script"
	"github.com/dgnsrekt/scriptplay/internal/sequencer"
	"github.com/dgnsrekt/scriptplay/internal/speech"
	"github.com/dgnsrekt/scriptplay/internal/speech/engines"
)

// app holds the components opened for one command. close releases them in
// reverse order.
type app struct {
	cfg   config.Config
	res   *resource.Manager
	store *script.Store

	// speechCache is nil when speech is not cached
	speechCache *cache.Manager

	closers []func() error
}

// player is the playback half of the app.
type player struct {
	speaker *speech.Speaker
	seq     *sequencer.Sequencer
}

func openScript(cfg config.Config) (*app, error) {
	pcm := cache.NewMemoryCache(int64(cfg.Cache.MemoryMB) * 1024 * 1024)
	res := resource.NewManager(cfg.Format(), pcm, log.WithPrefix("resource"))
	store := script.NewStore(res, log.WithPrefix("script"))

	a := &app{cfg: cfg, res: res, store: store}
	a.closers = append(a.closers, res.Close, store.Close)

	if err := store.LoadFile(cfg.Script); err != nil {
		_ = a.close()
		return nil, fmt.Errorf("unable to load %s: %w", cfg.Script, err)
	}
	log.Debug("script opened", "path", cfg.Script, "items", store.Len())
	return a, nil
}

// openPlayer wires speech and playback to the script. With dryRun the
// mock engine and a silent device stand in for the real ones.
func (a *app) openPlayer(dryRun bool) (*player, error) {
	out, err := a.openOutput(dryRun)
	if err != nil {
		return nil, err
	}

	speaker, err := a.openSpeaker(out, dryRun)
	if err != nil {
		return nil, err
	}

	seq := sequencer.New(a.store, speaker, out, a.res, a.cfg.SequencerConfig(), log.WithPrefix("sequencer"))
	if a.speechCache != nil && a.cfg.Speech.Lookahead > 0 {
		lookahead := queue.New(speaker, 4*a.cfg.Speech.Lookahead, log.WithPrefix("lookahead"))
		a.closers = append(a.closers, lookahead.Close)
		seq.SetPrefetcher(lookahead)
	}
	a.closers = append(a.closers, func() error {
		seq.Stop()
		seq.Wait()
		return nil
	})
	return &player{speaker: speaker, seq: seq}, nil
}

func (a *app) openOutput(dryRun bool) (audio.Output, error) {
	if dryRun || a.cfg.Speech.Engine == "mock" {
		dev := audio.NewMockDevice(a.cfg.Format(), audio.MockCallbacks{})
		dev.EnableAutoComplete(1.0)
		return dev, nil
	}

	dev, err := audio.NewDevice(a.cfg.DeviceConfig())
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}
	a.closers = append(a.closers, dev.Close)
	return dev, nil
}

// openSpeaker creates the configured engine and its speech cache. out may
// be nil when only voices are needed.
func (a *app) openSpeaker(out audio.Output, dryRun bool) (*speech.Speaker, error) {
	opts := a.cfg.EngineOptions()
	if dryRun {
		opts.Engine = "mock"
	}

	engine, err := engines.New(opts)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("%s engine is not usable: %w", engine.Name(), err)
	}

	if opts.Engine != "mock" {
		speechCache, err := cache.NewManager(a.cfg.CacheConfig(), log.WithPrefix("cache"))
		if err != nil {
			log.Warn("speech cache disabled", "err", err)
		} else {
			a.speechCache = speechCache
			a.closers = append(a.closers, speechCache.Close)
		}
	}

	speaker := speech.NewSpeaker(engine, out, a.speechCache, a.cfg.SpeakerConfig(), log.WithPrefix("speech"))
	a.closers = append(a.closers, speaker.Close)
	return speaker, nil
}

// save writes the script back when it has changed.
func (a *app) save() error {
	if !a.store.Dirty() {
		return nil
	}
	if err := a.store.SaveFile(a.cfg.Script); err != nil {
		return fmt.Errorf("unable to save %s: %w", a.cfg.Script, err)
	}
	log.Debug("script saved", "path", a.cfg.Script, "items", a.store.Len())
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// editScript opens the script, applies fn and saves the result.
func editScript(fn func(store *script.Store) error) error {
	a, err := openScript(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	if err := fn(a.store); err != nil {
		return err
	}
	return a.save()
}

// itemAt resolves a 1-based item number from the command line.
func itemAt(store *script.Store, arg string) (script.Item, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("%q is not an item number", arg)
	}
	item, ok := store.At(n - 1)
	if !ok {
		return nil, fmt.Errorf("no item %d: the script has %d", n, store.Len())
	}
	return item, nil
}
