package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Renderer fills interleaved stereo int16 blocks.
type Renderer interface {
	Render(out []int16)
}

// Sink drives a Renderer from an audio device.
type Sink interface {
	Start() error
	Close() error
}

// PortAudioSink plays through portaudio. The stream callback calls Render
// directly.
type PortAudioSink struct {
	stream *portaudio.Stream
}

// NewPortAudioSink opens an output stream on device, or on the default output
// device when device is negative.
func NewPortAudioSink(r Renderer, device, blockSize int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	stream, err := openStream(r, device, blockSize)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &PortAudioSink{stream: stream}, nil
}

func openStream(r Renderer, device, blockSize int) (*portaudio.Stream, error) {
	if device < 0 {
		return portaudio.OpenDefaultStream(0, 2, SampleRate, blockSize, r.Render)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if device >= len(devices) {
		return nil, fmt.Errorf("no audio device %d (have %d)", device, len(devices))
	}
	p := portaudio.LowLatencyParameters(nil, devices[device])
	p.Output.Channels = 2
	p.SampleRate = SampleRate
	p.FramesPerBuffer = blockSize
	return portaudio.OpenStream(p, r.Render)
}

func (s *PortAudioSink) Start() error {
	return s.stream.Start()
}

func (s *PortAudioSink) Close() error {
	s.stream.Close()
	return portaudio.Terminate()
}

// AudioDevices lists the output devices portaudio can see.
func AudioDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var names []string
	for i, d := range devices {
		if d.MaxOutputChannels > 0 {
			names = append(names, fmt.Sprintf("%d: %s (%s)", i, d.Name, d.HostApi.Name))
		}
	}
	return names, nil
}
