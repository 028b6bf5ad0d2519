package audio

import "math"

const (
	SampleRate = 44100

	// fadeLength is the release time in frames.
	fadeLength = 30000
	fadePower  = 6
)

// fadeCurve is the release envelope: (1 - i/(n-1))^6 for i < n, silence after.
type fadeCurve []float32

func newFadeCurve(length int, power float64) fadeCurve {
	c := make(fadeCurve, length)
	for i := range c {
		x := 1.0
		if length > 1 {
			x = 1 - float64(i)/float64(length-1)
		}
		c[i] = float32(math.Pow(x, power))
	}
	return c
}

func (c fadeCurve) at(pos int) float32 {
	if pos < 0 {
		return 1
	}
	if pos >= len(c) {
		return 0
	}
	return c[pos]
}

// speedTable holds the playback rate for every note offset in -127..127.
type speedTable [2*numKeys - 1]float64

func newSpeedTable() *speedTable {
	var t speedTable
	for i := range t {
		t[i] = math.Pow(2, float64(i-(numKeys-1))/12)
	}
	return &t
}

// speed returns the rate at which a sample recorded at native must be played
// to sound at note.
func (t *speedTable) speed(note, native int) float64 {
	d := note - native + numKeys - 1
	if d < 0 || d >= len(t) {
		return 1
	}
	return t[d]
}

var (
	fadeout = newFadeCurve(fadeLength, fadePower)
	speeds  = newSpeedTable()
)
