// Package wave decodes uncompressed PCM WAV files into interleaved stereo 16 bit
// frames.
package wave

import (
	"bytes"
	"io"
	"os"

	gowav "github.com/go-audio/wav"
	"github.com/pkg/errors"
	wav "github.com/youpy/go-wav"
)

var (
	ErrNotWave     = errors.New("not a RIFF/WAVE file")
	ErrUnsupported = errors.New("unsupported wav format")
)

const formatPCM = 1

// Info describes a decoded file. LoopStart and LoopEnd are -1 when the file has
// no loop or loops were not requested.
type Info struct {
	Channels      int
	BitsPerSample int
	SampleRate    int
	Frames        int
	LoopStart     int
	LoopEnd       int
}

// Options control decoding.
type Options struct {
	// Loops enables reading the first loop of the smpl chunk. When set and a
	// loop is present the data is truncated to LoopEnd+2 frames.
	Loops bool
}

// PCM is decoded audio. Data holds Info.Frames interleaved L/R frames.
type PCM struct {
	Info Info
	Data []int16
}

// DecodeFile opens path and decodes it.
func DecodeFile(path string, opts Options) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pcm, err := Decode(f, opts)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return pcm, nil
}

type readSeekerAt interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// Decode reads a WAV stream. Mono input is duplicated to both channels and 24 bit
// input is reduced to 16 bit.
func Decode(r readSeekerAt, opts Options) (*PCM, error) {
	var header [12]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, errors.Wrap(ErrNotWave, err.Error())
	}
	if !bytes.Equal(header[0:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WAVE")) {
		return nil, ErrNotWave
	}

	wr := wav.NewReader(r)
	format, err := wr.Format()
	if err != nil {
		return nil, errors.Wrap(err, "read format")
	}
	if format.AudioFormat != formatPCM {
		return nil, errors.Wrapf(ErrUnsupported, "audio format %d", format.AudioFormat)
	}
	channels := int(format.NumChannels)
	if channels != 1 && channels != 2 {
		return nil, errors.Wrapf(ErrUnsupported, "%d channels", channels)
	}
	bits := int(format.BitsPerSample)
	if bits != 16 && bits != 24 {
		return nil, errors.Wrapf(ErrUnsupported, "%d bits per sample", bits)
	}

	pcm := &PCM{
		Info: Info{
			Channels:      channels,
			BitsPerSample: bits,
			SampleRate:    int(format.SampleRate),
			LoopStart:     -1,
			LoopEnd:       -1,
		},
	}
	for {
		samples, err := wr.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read samples")
		}
		for _, sample := range samples {
			left := to16(sample.Values[0], bits)
			right := left
			if channels == 2 {
				right = to16(sample.Values[1], bits)
			}
			pcm.Data = append(pcm.Data, left, right)
		}
	}
	pcm.Info.Frames = len(pcm.Data) / 2

	if opts.Loops {
		start, end, ok, err := readLoop(r)
		if err != nil {
			return nil, errors.Wrap(err, "read loop metadata")
		}
		if ok && start < end && start < pcm.Info.Frames {
			pcm.Info.LoopStart = start
			pcm.Info.LoopEnd = end
			if n := end + 2; n < pcm.Info.Frames {
				pcm.Info.Frames = n
				pcm.Data = pcm.Data[:2*n]
			}
		}
	}
	return pcm, nil
}

func to16(v, bits int) int16 {
	if bits == 24 {
		return int16(v >> 8)
	}
	return int16(v)
}

// readLoop returns the first sample loop of the smpl chunk, if any.
func readLoop(r io.ReadSeeker) (start, end int, ok bool, err error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, false, err
	}
	dec := gowav.NewDecoder(r)
	dec.ReadMetadata()
	if err := dec.Err(); err != nil && err != io.EOF {
		return 0, 0, false, err
	}
	if dec.Metadata == nil || dec.Metadata.SamplerInfo == nil {
		return 0, 0, false, nil
	}
	loops := dec.Metadata.SamplerInfo.Loops
	if len(loops) == 0 || loops[0] == nil {
		return 0, 0, false, nil
	}
	return int(loops[0].Start), int(loops[0].End), true, nil
}
