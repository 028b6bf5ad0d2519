package audio

import (
	"math"
	"sync/atomic"
)

// Mixer renders the active voices. Render runs on the audio callback: it does
// not allocate (for blocks up to the configured size), lock or do I/O.
type Mixer struct {
	events    *eventBuffer
	store     *atomic.Pointer[Store]
	polyphony *atomic.Value // int
	level     *atomic.Value // float64, dB

	active []*Voice
	sum    []float32
	curve  fadeCurve
	count  atomic.Int32
}

func newMixer(events *eventBuffer, store *atomic.Pointer[Store], props *Props, blockSize, maxPolyphony int) *Mixer {
	return &Mixer{
		events:    events,
		store:     store,
		polyphony: props.MustRegister(PropPolyphony, "maximum number of voices mixed at once", setPolyphony, maxPolyphony),
		level:     props.MustRegister(PropLevel, "master level in dB", setLevel, 0.),
		active:    make([]*Voice, 0, 256+events.size()),
		sum:       make([]float32, 2*blockSize),
		curve:     fadeout,
	}
}

// Render fills out with len(out)/2 interleaved stereo frames.
func (m *Mixer) Render(out []int16) {
	m.events.drain(m.handle)

	// Keep the newest voices. Dropped voices are cut without a fade.
	if limit := m.polyphony.Load().(int); len(m.active) > limit {
		drop := len(m.active) - limit
		for _, v := range m.active[:drop] {
			v.silence()
		}
		m.remove(func(i int, _ *Voice) bool { return i < drop })
	}

	n := len(out) &^ 1
	if len(m.sum) < n {
		m.sum = make([]float32, n)
	}
	sum := m.sum[:n]

	for _, v := range m.active {
		if v.render(sum, m.curve) {
			v.silence()
		}
	}

	gain := float32(m.volume() * math.Pow(10, m.level.Load().(float64)/20))
	for i, s := range sum {
		out[i] = clip16(s * gain)
		sum[i] = 0
	}

	m.remove(func(_ int, v *Voice) bool { return v.State() == Silent })
	m.count.Store(int32(len(m.active)))
}

func (m *Mixer) handle(ev event) {
	switch ev.kind {
	case eventTrigger:
		if len(m.active) == cap(m.active) {
			m.active[0].silence()
			m.remove(func(i int, _ *Voice) bool { return i == 0 })
		}
		m.active = append(m.active, ev.voice)
	case eventPanic:
		for _, v := range m.active {
			v.silence()
		}
		m.remove(func(int, *Voice) bool { return true })
	}
}

// clear drops queued and active voices. It must not run concurrently with
// Render.
func (m *Mixer) clear() {
	m.events.drain(m.handle)
	m.handle(event{kind: eventPanic})
	m.count.Store(0)
}

// remove compacts the active set in place, dropping voices for which drop
// returns true.
func (m *Mixer) remove(drop func(i int, v *Voice) bool) {
	kept := m.active[:0]
	for i, v := range m.active {
		if !drop(i, v) {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(m.active); i++ {
		m.active[i] = nil
	}
	m.active = kept
}

func (m *Mixer) volume() float64 {
	if s := m.store.Load(); s != nil {
		return s.State.Volume
	}
	return 1
}

// Voices returns the number of voices mixed in the last block.
func (m *Mixer) Voices() int { return int(m.count.Load()) }

func clip16(s float32) int16 {
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	}
	return int16(s)
}
