package midiio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ScanInterval is how often the watcher looks for new or removed MIDI inputs.
const ScanInterval = 2 * time.Second

// Excluded lists port name fragments that are never connected.
var Excluded = []string{"Midi Through"}

type connection struct {
	in   drivers.In
	stop func()
}

// Watcher keeps every available MIDI input connected to a handler. Ports are
// opened when they appear and closed when they go away.
type Watcher struct {
	h      Handler
	logger *slog.Logger

	mu    sync.Mutex
	drv   drivers.Driver
	conns map[string]connection
}

func NewWatcher(h Handler, logger *slog.Logger) (*Watcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		h:      h,
		logger: logger,
		drv:    drv,
		conns:  make(map[string]connection),
	}, nil
}

// Run scans for inputs every ScanInterval until ctx is done. Errors are
// logged and the scan is retried.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(ScanInterval)
	defer ticker.Stop()
	for {
		w.Scan()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Scan connects new inputs and drops those that disappeared.
func (w *Watcher) Scan() {
	w.mu.Lock()
	defer w.mu.Unlock()

	ins, err := w.drv.Ins()
	if err != nil {
		w.logger.Error("midi: list inputs failed", "err", err)
		return
	}
	available := make(map[string]drivers.In, len(ins))
	var names []string
	for _, in := range ins {
		available[in.String()] = in
		names = append(names, in.String())
	}
	add, remove := diffPorts(w.conns, names)
	for _, name := range remove {
		w.logger.Warn("midi: device disappeared", "device", name)
		w.disconnect(name)
	}
	for _, name := range add {
		if err := w.connect(available[name]); err != nil {
			w.logger.Error("midi: connect failed", "device", name, "err", err)
		}
	}
}

// Ports returns the names of the connected inputs.
func (w *Watcher) Ports() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var names []string
	for name := range w.conns {
		names = append(names, name)
	}
	return names
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name := range w.conns {
		w.disconnect(name)
	}
	return w.drv.Close()
}

func (w *Watcher) connect(in drivers.In) error {
	name := in.String()
	if err := in.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestamp int32) {
		w.h.HandleMessage(msg.Bytes(), timestamp)
	}, midi.HandleError(func(err error) {
		w.logger.Warn("midi: listener error", "device", name, "err", err)
	}))
	if err != nil {
		in.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}
	w.conns[name] = connection{in: in, stop: stop}
	w.logger.Info("midi: connected", "device", name)
	return nil
}

func (w *Watcher) disconnect(name string) {
	c, ok := w.conns[name]
	if !ok {
		return
	}
	c.stop()
	c.in.Close()
	delete(w.conns, name)
}

// diffPorts compares the connected ports with the available port names and
// returns the ports to open and the ones to close.
func diffPorts(connected map[string]connection, available []string) (add, remove []string) {
	seen := make(map[string]bool, len(available))
	for _, name := range available {
		if excluded(name) {
			continue
		}
		seen[name] = true
		if _, ok := connected[name]; !ok {
			add = append(add, name)
		}
	}
	for name := range connected {
		if !seen[name] {
			remove = append(remove, name)
		}
	}
	return add, remove
}

func excluded(name string) bool {
	for _, pat := range Excluded {
		if strings.Contains(strings.ToLower(name), strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
