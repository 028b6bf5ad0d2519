package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// BuildFunc builds the store for a preset. It must return promptly with
// ctx.Err() once ctx is cancelled.
type BuildFunc func(ctx context.Context, preset string) (*Store, error)

// Display shows short status strings, e.g. on a 4 digit 7-segment display.
type Display interface {
	Show(text string)
}

// Reloader runs preset builds in the background. Starting a build cancels the
// one in flight and waits for it before anything else happens, so at most one
// build runs and only the latest request can publish.
type Reloader struct {
	build   BuildFunc
	publish func(*Store)
	display Display
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// pubMu orders cancellation against publishing: a build publishes only if
	// it was not cancelled before it took pubMu.
	pubMu sync.Mutex
}

func NewReloader(build BuildFunc, publish func(*Store), display Display, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		build:   build,
		publish: publish,
		display: display,
		logger:  logger,
	}
}

// Load starts building preset. The current store stays published until the
// build succeeds.
func (r *Reloader) Load(preset string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel, r.done = cancel, done
	r.show("L" + preset)
	go func() {
		defer close(done)
		r.run(ctx, preset)
	}()
}

func (r *Reloader) run(ctx context.Context, preset string) {
	r.logger.Info("reload: loading preset", "preset", preset)
	store, err := r.build(ctx, preset)
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	if ctx.Err() != nil {
		r.logger.Debug("reload: build cancelled", "preset", preset)
		return
	}
	if err != nil {
		r.logger.Error("reload: build failed", "preset", preset, "err", err)
		r.show("Err")
		return
	}
	r.publish(store)
	if store.Empty() {
		r.logger.Info("reload: preset is empty", "preset", preset)
		r.show("E" + preset)
		return
	}
	r.logger.Info("reload: preset loaded", "preset", preset, "samples", store.Bound())
	r.show(presetLabel(preset))
}

// Wait blocks until the current build, if any, has returned.
func (r *Reloader) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close cancels the current build and waits for it.
func (r *Reloader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop()
	return nil
}

func (r *Reloader) stop() {
	if r.cancel == nil {
		return
	}
	r.pubMu.Lock()
	r.cancel()
	r.pubMu.Unlock()
	<-r.done
	r.cancel, r.done = nil, nil
}

func (r *Reloader) show(text string) {
	if r.display != nil {
		r.display.Show(text)
	}
}

// presetLabel formats a loaded preset for the display: numeric ids are zero
// padded to four digits.
func presetLabel(preset string) string {
	if n, err := strconv.Atoi(preset); err == nil {
		return fmt.Sprintf("%04d", n)
	}
	return preset
}
