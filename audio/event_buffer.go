package audio

import (
	"sync/atomic"
)

type eventKind int

const (
	eventTrigger eventKind = iota // add voice to the active set
	eventPanic                    // silence every active voice
)

type event struct {
	kind  eventKind
	voice *Voice
}

// eventBuffer is a lock-free spsc queue carrying voices from the midi side to
// the mixer. Producers must be serialized by the caller.
type eventBuffer struct {
	events      []event
	read, write *uint32
}

func newEventBuffer(size int) *eventBuffer {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer{
		events: make([]event, size),
		read:   new(uint32),
		write:  new(uint32),
	}
}

// push adds ev to the queue. It returns false when the queue is full; the
// consumer may not be running, so push never waits for it.
func (b *eventBuffer) push(ev event) bool {
	write := atomic.LoadUint32(b.write)
	if write-atomic.LoadUint32(b.read) == uint32(len(b.events)) {
		return false
	}
	b.events[write%uint32(len(b.events))] = ev
	atomic.StoreUint32(b.write, write+1)
	return true
}

// drain calls f for every queued event.
func (b *eventBuffer) drain(f func(event)) {
	read := atomic.LoadUint32(b.read)
	write := atomic.LoadUint32(b.write)
	for read != write {
		slot := &b.events[read%uint32(len(b.events))]
		ev := *slot
		*slot = event{}
		f(ev)
		read++
	}
	atomic.StoreUint32(b.read, read)
}

func (b *eventBuffer) size() int { return len(b.events) }
