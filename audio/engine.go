package audio

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mrdg/samplerbox/wave"
)

const (
	DefaultBlockSize = 512
	DefaultPolyphony = 80

	maxPolyphony = 256
	ringSize     = 256
)

// Config holds the engine settings fixed at construction.
type Config struct {
	SamplesDir  string
	BlockSize   int
	Polyphony   int
	MinVelocity *int // nil means DefaultMinVelocity
	LevelDB     float64
	Loops       bool // honor smpl loop points
}

// Engine is a MIDI driven sample player. Render belongs to the audio callback;
// everything else may be called from any goroutine.
type Engine struct {
	Props *Props

	store    atomic.Pointer[Store]
	events   *eventBuffer
	pushMu   sync.Mutex
	mixer    *Mixer
	router   *Router
	loader   *Loader
	reloader *Reloader
	logger   *slog.Logger
}

// NewEngine creates an engine with an empty store. Call LoadPreset to load
// samples.
func NewEngine(cfg Config, display Display, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.Polyphony <= 0 {
		cfg.Polyphony = DefaultPolyphony
	}
	minVelocity := DefaultMinVelocity
	if cfg.MinVelocity != nil {
		minVelocity = *cfg.MinVelocity
	}
	e := &Engine{
		Props:  NewProps(),
		events: newEventBuffer(ringSize),
		logger: logger,
	}
	e.store.Store(NewStore(nil, defaultPresetState("")))
	e.mixer = newMixer(e.events, &e.store, e.Props, cfg.BlockSize, cfg.Polyphony)
	e.loader = &Loader{
		Root:    cfg.SamplesDir,
		Options: wave.Options{Loops: cfg.Loops},
		Logger:  logger,
	}
	e.reloader = NewReloader(e.loader.Build, e.store.Store, display, logger)
	e.router = newRouter(&e.store, e, e.reloader, e.Props, logger)

	if err := e.Props.Set(PropMinVelocity, minVelocity); err != nil {
		return nil, err
	}
	if err := e.Props.Set(PropLevel, cfg.LevelDB); err != nil {
		return nil, err
	}
	return e, nil
}

// Render fills out with interleaved stereo frames.
func (e *Engine) Render(out []int16) {
	e.mixer.Render(out)
}

// HandleMessage routes one MIDI message.
func (e *Engine) HandleMessage(msg []byte, timestamp int32) {
	e.router.HandleMessage(msg, timestamp)
}

// LoadPreset starts loading preset in the background.
func (e *Engine) LoadPreset(preset string) {
	e.reloader.Load(preset)
}

// WaitLoaded blocks until the current preset build has finished.
func (e *Engine) WaitLoaded() {
	e.reloader.Wait()
}

// Store returns the published store.
func (e *Engine) Store() *Store {
	return e.store.Load()
}

// Panic stops every voice and forgets held notes and the sustain pedal.
func (e *Engine) Panic() {
	e.router.reset()
	if !e.push(event{kind: eventPanic}) {
		e.logger.Warn("engine: voice queue full, panic dropped")
	}
}

// Voices returns the number of voices mixed in the last block.
func (e *Engine) Voices() int {
	return e.mixer.Voices()
}

// Sustained returns the number of voices held by the sustain pedal.
func (e *Engine) Sustained() int {
	return len(e.router.Sustained())
}

// Close cancels a running preset build and drops the loaded samples and all
// voices. The audio sink must be closed first.
func (e *Engine) Close() error {
	err := e.reloader.Close()
	e.router.reset()
	e.pushMu.Lock()
	e.mixer.clear()
	e.pushMu.Unlock()
	e.store.Store(NewStore(nil, defaultPresetState("")))
	return err
}

func (e *Engine) play(v *Voice) bool {
	if e.push(event{kind: eventTrigger, voice: v}) {
		return true
	}
	v.silence()
	return false
}

func (e *Engine) push(ev event) bool {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()
	return e.events.push(ev)
}
