package audio

import (
	"github.com/mrdg/samplerbox/wave"
)

// Sample is decoded audio bound to a key of the sample table. It is immutable
// and may be shared by any number of voices.
type Sample struct {
	File     string
	Note     int
	Velocity int
	Loop     int // loop start frame, -1 when the sample does not loop
	Frames   int

	data []int16 // interleaved stereo
}

// NewSample wraps decoded PCM. pcm.Data is shared, not copied.
func NewSample(file string, note, velocity int, pcm *wave.PCM) *Sample {
	return &Sample{
		File:     file,
		Note:     note,
		Velocity: velocity,
		Loop:     pcm.Info.LoopStart,
		Frames:   pcm.Info.Frames,
		data:     pcm.Data,
	}
}
