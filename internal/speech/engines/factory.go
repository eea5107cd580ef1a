package engines

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgnsrekt/scriptplay/internal/speech"
)

// Options selects and configures an engine.
type Options struct {
	Engine string
	Piper  PiperConfig
	GTTS   GTTSConfig
	Exec   ExecConfig
}

var constructors = map[string]func(Options) (speech.Engine, error){
	"piper": func(o Options) (speech.Engine, error) { return NewPiper(o.Piper) },
	"gtts":  func(o Options) (speech.Engine, error) { return NewGTTS(o.GTTS) },
	"exec":  func(o Options) (speech.Engine, error) { return NewExec(o.Exec) },
	"mock":  func(Options) (speech.Engine, error) { return NewMock(), nil },
}

// Names lists the available engines.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the engine named in opts.
func New(opts Options) (speech.Engine, error) {
	ctor, ok := constructors[strings.ToLower(opts.Engine)]
	if !ok {
		return nil, fmt.Errorf("unknown speech engine %q (available: %s)", opts.Engine, strings.Join(Names(), ", "))
	}
	return ctor(opts)
}
