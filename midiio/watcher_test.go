package midiio

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sort"
	"testing"
)

func TestDiffPorts(t *testing.T) {
	tests := []struct {
		name       string
		connected  []string
		available  []string
		add, drops []string
	}{
		{
			name:      "new ports",
			available: []string{"Keystation 49:0", "Midi Through:0"},
			add:       []string{"Keystation 49:0"},
		},
		{
			name:      "unchanged",
			connected: []string{"Keystation 49:0"},
			available: []string{"Keystation 49:0"},
		},
		{
			name:      "unplugged",
			connected: []string{"Keystation 49:0", "nanoKEY2:0"},
			available: []string{"nanoKEY2:0", "MIDI THROUGH port"},
			drops:     []string{"Keystation 49:0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connected := make(map[string]connection)
			for _, name := range tt.connected {
				connected[name] = connection{}
			}
			add, drops := diffPorts(connected, tt.available)
			sort.Strings(add)
			sort.Strings(drops)
			if !reflect.DeepEqual(tt.add, add) {
				t.Errorf("add: want %v, got %v", tt.add, add)
			}
			if !reflect.DeepEqual(tt.drops, drops) {
				t.Errorf("remove: want %v, got %v", tt.drops, drops)
			}
		})
	}
}

type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestReadLoop(t *testing.T) {
	var rec recorder
	r := &chunkReader{
		chunks: [][]byte{{0x90, 60}, {}, {100, 0xc0}, {3}},
		err:    io.EOF,
	}
	if err := readLoop(context.Background(), r, NewFramer(&rec)); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{0x90, 60, 100}, {0xc0, 3}}
	if !reflect.DeepEqual(want, rec.msgs) {
		t.Errorf("want %v, got %v", want, rec.msgs)
	}
}

func TestReadLoopError(t *testing.T) {
	boom := errors.New("unplugged")
	err := readLoop(context.Background(), &chunkReader{err: boom}, io.Discard)
	if !errors.Is(err, boom) {
		t.Errorf("want %v, got %v", boom, err)
	}
}

func TestReadLoopCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &chunkReader{chunks: [][]byte{{0x90, 60, 100}}}
	var rec recorder
	if err := readLoop(ctx, r, NewFramer(&rec)); err != nil {
		t.Fatal(err)
	}
	if len(rec.msgs) != 0 {
		t.Errorf("want nothing read after cancel, got %v", rec.msgs)
	}
}
