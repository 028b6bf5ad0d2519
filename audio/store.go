package audio

import "math"

const numKeys = 128

// DefaultVolumeDB is the preset volume before any %%volume directive.
const DefaultVolumeDB = -12.0

// PresetState holds the global parameters of one loaded preset.
type PresetState struct {
	Preset    string  // requested preset id
	Name      string  // preset directory name, empty if none was found
	Volume    float64 // linear gain
	Transpose int     // semitones added to incoming notes
}

func defaultPresetState(preset string) PresetState {
	return PresetState{
		Preset: preset,
		Volume: math.Pow(10, DefaultVolumeDB/20),
	}
}

// Store maps every (note, velocity) pair to a sample. It is read-only once
// built and is replaced as a whole when a new preset is loaded.
type Store struct {
	State PresetState

	samples [numKeys][numKeys]*Sample
	bound   int // number of explicitly bound keys
}

// NewStore builds a store from explicitly bound samples and fills the rest of
// the table from them. A later sample for the same key replaces an earlier one;
// samples outside the MIDI range are ignored.
func NewStore(samples []*Sample, state PresetState) *Store {
	s := &Store{State: state}
	var initial [numKeys][numKeys]bool
	for _, smp := range samples {
		if !inRange(smp.Note) || !inRange(smp.Velocity) {
			continue
		}
		if !initial[smp.Note][smp.Velocity] {
			s.bound++
		}
		initial[smp.Note][smp.Velocity] = true
		s.samples[smp.Note][smp.Velocity] = smp
	}
	s.fill(&initial)
	return s
}

// fill propagates the bound samples over the whole table. Within a note,
// velocities below the lowest bound velocity take its sample and every other
// velocity takes the nearest bound velocity below it. A note without any bound
// velocity copies the row of the note below.
func (s *Store) fill(initial *[numKeys][numKeys]bool) {
	for note := 0; note < numKeys; note++ {
		row := &s.samples[note]
		var last *Sample
		for vel := 0; vel < numKeys; vel++ {
			if !initial[note][vel] {
				row[vel] = last
				continue
			}
			if last == nil {
				for v := 0; v < vel; v++ {
					row[v] = row[vel]
				}
			}
			last = row[vel]
		}
		if last == nil && note > 0 {
			*row = s.samples[note-1]
		}
	}
}

// Lookup returns the sample for a key. ok is false when nothing could be
// resolved, which is not an error: the note simply does not sound.
func (s *Store) Lookup(note, velocity int) (smp *Sample, ok bool) {
	if s == nil || !inRange(note) || !inRange(velocity) {
		return nil, false
	}
	smp = s.samples[note][velocity]
	return smp, smp != nil
}

// Bound returns the number of explicitly bound keys.
func (s *Store) Bound() int { return s.bound }

// Empty reports whether the preset resolved no samples at all.
func (s *Store) Empty() bool { return s.bound == 0 }

func inRange(v int) bool { return v >= 0 && v < numKeys }
