package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/mrdg/samplerbox/definition"
)

// writeWAV writes a 16 bit stereo file holding frames copies of value.
func writeWAV(t *testing.T, path string, frames int, value int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := gowav.NewEncoder(f, SampleRate, 16, 2, 1)
	data := make([]int, 2*frames)
	for i := range data {
		data[i] = value
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mkdir(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoaderPresetDir(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "0 Piano"))
	mkdir(t, filepath.Join(root, "1"))
	mkdir(t, filepath.Join(root, "10 Drums"))
	writeFile(t, filepath.Join(root, "2 notes.txt"), "not a preset")

	l := &Loader{Root: root, Logger: discard}
	tests := []struct {
		preset string
		want   string
		ok     bool
	}{
		{"0", "0 Piano", true},
		{"1", "1", true},
		{"10", "10 Drums", true},
		{"0 Piano", "0 Piano", true},
		{"2", "", false},
		{"3", "", false},
	}
	for _, tt := range tests {
		got, ok := l.PresetDir(tt.preset)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PresetDir(%q): want (%q, %v), got (%q, %v)", tt.preset, tt.want, tt.ok, got, ok)
		}
	}
}

func TestLoaderDefinition(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, filepath.Join(root, "0 Kit"))
	writeWAV(t, filepath.Join(dir, "kick_100_C4.wav"), 8, 1000)
	writeWAV(t, filepath.Join(dir, "kick_40_C4.wav"), 8, 500)
	writeWAV(t, filepath.Join(dir, "snare.wav"), 8, 200)
	writeFile(t, filepath.Join(dir, "broken_90_D4.wav"), "not a wav file")
	writeFile(t, filepath.Join(dir, definition.FileName), `kick_%velocity_%notename.wav
broken_%velocity_%notename.wav
snare.wav, midinote=38
%%volume=6
%%transpose=-12
bad, velocity=loud
`)

	l := &Loader{Root: root, Logger: discard}
	store, err := l.Build(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 3, store.Bound(); want != got {
		t.Errorf("want %v bound keys, got %v", want, got)
	}
	if want, got := "0 Kit", store.State.Name; want != got {
		t.Errorf("want name %q, got %q", want, got)
	}
	if want, got := -12, store.State.Transpose; want != got {
		t.Errorf("want transpose %v, got %v", want, got)
	}
	if v := store.State.Volume; v < 0.5 || v > 0.51 {
		t.Errorf("want volume -6 dB (~0.501), got %v", v)
	}

	tests := []struct {
		note, velocity int
		file           string
	}{
		{72, 127, "kick_100_C4.wav"},
		{72, 100, "kick_100_C4.wav"},
		{72, 99, "kick_40_C4.wav"},
		{72, 1, "kick_40_C4.wav"},
		{38, 127, "snare.wav"},
		{50, 60, "snare.wav"},
	}
	for _, tt := range tests {
		smp, ok := store.Lookup(tt.note, tt.velocity)
		if !ok {
			t.Errorf("(%v, %v): no sample", tt.note, tt.velocity)
			continue
		}
		if smp.File != tt.file {
			t.Errorf("(%v, %v): want %v, got %v", tt.note, tt.velocity, tt.file, smp.File)
		}
	}
	smp, _ := store.Lookup(72, 127)
	if want, got := 8, smp.Frames; want != got {
		t.Errorf("want %v frames, got %v", want, got)
	}
	if want, got := -1, smp.Loop; want != got {
		t.Errorf("want no loop, got %v", got)
	}
}

func TestLoaderBareNumbers(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, filepath.Join(root, "3"))
	writeWAV(t, filepath.Join(dir, "60.wav"), 4, 100)
	writeWAV(t, filepath.Join(dir, "64.wav"), 4, 200)
	writeWAV(t, filepath.Join(dir, "hihat.wav"), 4, 300)

	l := &Loader{Root: root, Logger: discard}
	store, err := l.Build(context.Background(), "3")
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 2, store.Bound(); want != got {
		t.Errorf("want %v bound keys, got %v", want, got)
	}
	if smp, ok := store.Lookup(64, 127); !ok || smp.File != "64.wav" || smp.Velocity != 127 {
		t.Errorf("want 64.wav at (64, 127), got %+v", smp)
	}
	if smp, ok := store.Lookup(62, 20); !ok || smp.File != "60.wav" {
		t.Errorf("want 60.wav at (62, 20), got %+v", smp)
	}
	if _, ok := store.Lookup(59, 127); ok {
		t.Errorf("want no sample below note 60")
	}
}

func TestLoaderMissingPreset(t *testing.T) {
	l := &Loader{Root: t.TempDir(), Logger: discard}
	store, err := l.Build(context.Background(), "7")
	if err != nil {
		t.Fatal(err)
	}
	if !store.Empty() {
		t.Errorf("want empty store, got %v bound keys", store.Bound())
	}
	if want, got := "7", store.State.Preset; want != got {
		t.Errorf("want preset %q, got %q", want, got)
	}
}

func TestLoaderCancelled(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, filepath.Join(root, "0"))
	writeWAV(t, filepath.Join(dir, "60.wav"), 4, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loader{Root: root, Logger: discard}
	store, err := l.Build(ctx, "0")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if store != nil {
		t.Errorf("want no store from a cancelled build")
	}
}

func TestLoaderSharesDecodedFiles(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, filepath.Join(root, "0"))
	writeWAV(t, filepath.Join(dir, "pad.wav"), 4, 100)
	writeFile(t, filepath.Join(dir, definition.FileName), "pad.wav, midinote=40\npad.wav, midinote=60\n")

	l := &Loader{Root: root, Logger: discard}
	store, err := l.Build(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := store.Lookup(40, 127)
	b, _ := store.Lookup(60, 127)
	if a == b {
		t.Fatalf("want separate samples per key")
	}
	if &a.data[0] != &b.data[0] {
		t.Errorf("want decoded data shared between keys")
	}
}
