package audio

import "sync/atomic"

// VoiceState is the lifecycle stage of a voice.
type VoiceState int32

const (
	Triggered VoiceState = iota
	Sustaining
	FadingOut
	Silent
)

func (s VoiceState) String() string {
	switch s {
	case Triggered:
		return "triggered"
	case Sustaining:
		return "sustaining"
	case FadingOut:
		return "fading"
	case Silent:
		return "silent"
	}
	return "unknown"
}

// Voice is one playing instance of a sample. The position fields belong to the
// mixer; other goroutines only touch the atomic fields.
type Voice struct {
	sample *Sample
	note   int
	speed  float64

	pos     float64 // frame position in sample
	fadePos int     // frames rendered since the release was first seen

	fading atomic.Bool
	state  atomic.Int32
}

func newVoice(smp *Sample, note int) *Voice {
	return &Voice{
		sample: smp,
		note:   note,
		speed:  speeds.speed(note, smp.Note),
	}
}

func (v *Voice) Sample() *Sample { return v.sample }

// Note returns the note the voice sounds at.
func (v *Voice) Note() int { return v.note }

// Release starts the fadeout. It is safe to call from any goroutine and more
// than once.
func (v *Voice) Release() {
	v.fading.Store(true)
}

func (v *Voice) State() VoiceState {
	s := VoiceState(v.state.Load())
	if s != Silent && v.fading.Load() {
		return FadingOut
	}
	return s
}

func (v *Voice) silence() {
	v.state.Store(int32(Silent))
}

// render adds the next len(dst)/2 frames of the voice to dst and reports
// whether the voice has finished, either by running past the end of a
// non-looping sample or by completing its fadeout.
func (v *Voice) render(dst []float32, curve fadeCurve) (finished bool) {
	var (
		data   = v.sample.data
		last   = v.sample.Frames - 1 // interpolation reads frame k+1
		loop   = v.sample.Loop
		fading = v.fading.Load()
		frames = len(dst) / 2
		pos    = v.pos
	)
	for i := 0; i < frames; i++ {
		k := int(pos)
		if k >= last {
			if loop < 0 || loop >= last {
				v.pos = pos
				return true
			}
			span := float64(last - loop)
			for k >= last {
				pos -= span
				k = int(pos)
			}
		}
		frac := float32(pos - float64(k))
		l := float32(data[2*k])
		r := float32(data[2*k+1])
		l += frac * (float32(data[2*k+2]) - l)
		r += frac * (float32(data[2*k+3]) - r)
		if fading {
			g := curve.at(v.fadePos + i)
			l *= g
			r *= g
		}
		dst[2*i] += l
		dst[2*i+1] += r
		pos += v.speed
	}
	v.pos = pos
	if fading {
		v.fadePos += frames
		if v.fadePos >= len(curve) {
			return true
		}
	}
	v.state.CompareAndSwap(int32(Triggered), int32(Sustaining))
	return false
}
