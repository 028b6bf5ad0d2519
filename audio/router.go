package audio

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
)

// MIDI status nibbles and controllers handled by the router.
const (
	statusNoteOff       = 0x8
	statusNoteOn        = 0x9
	statusController    = 0xb
	statusProgramChange = 0xc

	controllerSustain = 64
)

// DefaultMinVelocity is the velocity at or below which note-ons are ignored.
const DefaultMinVelocity = 10

type voicePlayer interface {
	play(v *Voice) bool
}

type presetLoader interface {
	Load(preset string)
}

// Router turns framed MIDI messages into voice operations. It is safe for use
// by several transports at once.
type Router struct {
	store       *atomic.Pointer[Store]
	player      voicePlayer
	presets     presetLoader
	minVelocity *atomic.Value // int
	logger      *slog.Logger

	mu        sync.Mutex
	playing   [numKeys][]*Voice
	sustained []*Voice
	sustain   bool
}

func newRouter(store *atomic.Pointer[Store], player voicePlayer, presets presetLoader, props *Props, logger *slog.Logger) *Router {
	return &Router{
		store:       store,
		player:      player,
		presets:     presets,
		minVelocity: props.MustRegister(PropMinVelocity, "note-ons at or below this velocity are ignored", setMinVelocity, DefaultMinVelocity),
		logger:      logger,
	}
}

// HandleMessage applies one MIDI message (status, data1, data2). The timestamp
// is informational only.
func (r *Router) HandleMessage(msg []byte, timestamp int32) {
	if len(msg) < 2 {
		r.logger.Debug("midi: ignoring malformed message", "msg", msg)
		return
	}
	status := msg[0] >> 4
	if status == statusNoteOn && len(msg) > 2 && msg[2] == 0 {
		status = statusNoteOff
	}
	switch status {
	case statusNoteOn:
		if len(msg) < 3 {
			r.logger.Debug("midi: ignoring short note-on", "msg", msg)
			return
		}
		r.NoteOn(int(msg[1]), int(msg[2]))
	case statusNoteOff:
		if len(msg) < 3 {
			r.logger.Debug("midi: ignoring short note-off", "msg", msg)
			return
		}
		r.NoteOff(int(msg[1]))
	case statusProgramChange:
		program := int(msg[1])
		r.logger.Debug("midi: program change", "program", program, "ts", timestamp)
		r.presets.Load(strconv.Itoa(program))
	case statusController:
		if len(msg) < 3 {
			r.logger.Debug("midi: ignoring short controller message", "msg", msg)
			return
		}
		if msg[1] == controllerSustain {
			r.SetSustain(msg[2] >= 64)
		}
	}
}

// NoteOn triggers a voice for key unless velocity is at or below the minimum
// velocity or the current preset has no sample for the transposed key.
func (r *Router) NoteOn(key, velocity int) {
	if !inRange(key) {
		return
	}
	if velocity <= r.minVelocity.Load().(int) {
		r.logger.Debug("midi: ignoring low velocity note", "note", key, "velocity", velocity)
		return
	}
	store := r.store.Load()
	note, ok := transpose(store, key)
	if !ok {
		return
	}
	smp, ok := store.Lookup(note, velocity)
	if !ok {
		r.logger.Debug("midi: no sample", "note", note, "velocity", velocity)
		return
	}
	v := newVoice(smp, note)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing[key] = append(prune(r.playing[key]), v)
	if !r.player.play(v) {
		r.logger.Warn("midi: voice queue full, dropping note", "note", note)
	}
}

// NoteOff releases every voice started by key, or defers the release while the
// sustain pedal is down. Voices are filed by the key that was pressed, so a
// preset change with a different transpose cannot strand them.
func (r *Router) NoteOff(key int) {
	if !inRange(key) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.playing[key] {
		if r.sustain {
			r.sustained = append(r.sustained, v)
		} else {
			v.Release()
		}
	}
	clear(r.playing[key])
	r.playing[key] = r.playing[key][:0]
}

// SetSustain sets the sustain pedal. Lifting it releases every deferred voice.
func (r *Router) SetSustain(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sustain = on
	if on {
		return
	}
	for _, v := range r.sustained {
		v.Release()
	}
	clear(r.sustained)
	r.sustained = r.sustained[:0]
}

// Sustained returns the voices whose release is held by the sustain pedal.
func (r *Router) Sustained() []*Voice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Voice(nil), r.sustained...)
}

// Playing returns the voices currently held down by key.
func (r *Router) Playing(key int) []*Voice {
	if !inRange(key) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Voice(nil), r.playing[key]...)
}

func (r *Router) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.playing {
		r.playing[i] = nil
	}
	r.sustained = nil
	r.sustain = false
}

func transpose(s *Store, note int) (int, bool) {
	if s != nil {
		note += s.State.Transpose
	}
	return note, inRange(note)
}

// prune drops voices that stopped on their own.
func prune(voices []*Voice) []*Voice {
	kept := voices[:0]
	for _, v := range voices {
		if v.State() != Silent {
			kept = append(kept, v)
		}
	}
	clear(voices[len(kept):])
	return kept
}
