// Package midiio connects MIDI transports to a message handler.
package midiio

// Handler receives complete MIDI channel messages.
type Handler interface {
	HandleMessage(msg []byte, timestamp int32)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg []byte, timestamp int32)

func (f HandlerFunc) HandleMessage(msg []byte, timestamp int32) { f(msg, timestamp) }

// Framer splits a raw MIDI byte stream into messages. A status byte starts a
// new message; program change and channel pressure messages are complete after
// two bytes, all others after three. Running status is not supported, and
// system real-time bytes are dropped.
type Framer struct {
	h    Handler
	msg  [3]byte
	n    int
	want int
}

func NewFramer(h Handler) *Framer {
	return &Framer{h: h}
}

// Write feeds p to the framer. It never fails.
func (f *Framer) Write(p []byte) (int, error) {
	for _, b := range p {
		f.feed(b)
	}
	return len(p), nil
}

func (f *Framer) feed(b byte) {
	switch {
	case b >= 0xf8:
		return
	case b&0x80 != 0:
		f.msg[0] = b
		f.n = 1
		f.want = messageLength(b)
		return
	case f.n == 0:
		// data byte without a status byte
		return
	}
	f.msg[f.n] = b
	f.n++
	if f.n == f.want {
		msg := make([]byte, f.n)
		copy(msg, f.msg[:f.n])
		f.n = 0
		f.h.HandleMessage(msg, 0)
	}
}

func messageLength(status byte) int {
	switch status >> 4 {
	case 0xc, 0xd:
		return 2
	}
	return 3
}
