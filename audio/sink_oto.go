package audio

import (
	"encoding/binary"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays through oto. oto pulls bytes from a player, so the sink
// renders whole blocks and hands them out as little endian int16 pairs.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	r      Renderer

	block   []int16
	pending []byte
	buf     []byte
}

func NewOtoSink(r Renderer, blockSize int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(blockSize) * time.Second / SampleRate,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	s := &OtoSink{
		ctx:   ctx,
		r:     r,
		block: make([]int16, 2*blockSize),
		buf:   make([]byte, 4*blockSize),
	}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read implements io.Reader for the oto player.
func (s *OtoSink) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			s.r.Render(s.block)
			for i, v := range s.block {
				binary.LittleEndian.PutUint16(s.buf[2*i:], uint16(v))
			}
			s.pending = s.buf
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *OtoSink) Start() error {
	s.player.Play()
	return nil
}

func (s *OtoSink) Close() error {
	return s.player.Close()
}
