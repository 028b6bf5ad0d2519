package audio

import (
	"path/filepath"
	"testing"
)

func newTestEngine(t *testing.T, disp Display) *Engine {
	t.Helper()
	root := t.TempDir()
	dir := mkdir(t, filepath.Join(root, "0 Test"))
	writeWAV(t, filepath.Join(dir, "60.wav"), 2048, 8000)

	e, err := NewEngine(Config{
		SamplesDir: root,
		BlockSize:  64,
	}, disp, discard)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEnginePlaysPreset(t *testing.T) {
	disp := &recordingDisplay{}
	e := newTestEngine(t, disp)
	out := make([]int16, 128)

	e.HandleMessage([]byte{0x90, 60, 100}, 0)
	e.Render(out)
	if got := e.Voices(); got != 0 {
		t.Errorf("want no voices before a preset is loaded, got %v", got)
	}

	e.LoadPreset("0")
	e.WaitLoaded()
	if want, got := "0 Test", e.Store().State.Name; want != got {
		t.Fatalf("want preset %q, got %q", want, got)
	}

	e.HandleMessage([]byte{0x90, 60, 100}, 0)
	e.Render(out)
	if want, got := 1, e.Voices(); want != got {
		t.Fatalf("want %v voice, got %v", want, got)
	}
	// 8000 at -12 dB
	if got := out[0]; got < 1990 || got > 2010 {
		t.Errorf("want ~2009, got %v", got)
	}

	e.HandleMessage([]byte{0xb0, 64, 127}, 0)
	e.HandleMessage([]byte{0x80, 60, 0}, 0)
	if want, got := 1, e.Sustained(); want != got {
		t.Errorf("want %v sustained voice, got %v", want, got)
	}

	e.Panic()
	e.Render(out)
	if got := e.Voices(); got != 0 {
		t.Errorf("want no voices after panic, got %v", got)
	}
	if got := e.Sustained(); got != 0 {
		t.Errorf("want empty sustain set after panic, got %v", got)
	}
}

func TestEngineProgramChange(t *testing.T) {
	disp := &recordingDisplay{}
	e := newTestEngine(t, disp)
	e.HandleMessage([]byte{0xc0, 0}, 0)
	e.WaitLoaded()
	if e.Store().Empty() {
		t.Fatalf("want preset 0 loaded")
	}

	e.HandleMessage([]byte{0xc0, 9}, 0)
	e.WaitLoaded()
	if !e.Store().Empty() {
		t.Errorf("want empty store for missing preset 9")
	}
	want := []string{"L0", "0000", "L9", "E9"}
	got := disp.shown()
	if len(got) != len(want) {
		t.Fatalf("want display %v, got %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("want display %v, got %v", want, got)
			break
		}
	}
}

func TestEngineRejectsBadConfig(t *testing.T) {
	bad := 200
	_, err := NewEngine(Config{MinVelocity: &bad}, nil, discard)
	if err == nil {
		t.Errorf("want error for min velocity 200")
	}
}

func TestEngineMinVelocity(t *testing.T) {
	zero := 0
	tests := []struct {
		name string
		min  *int
		want int
	}{
		{"default", nil, DefaultMinVelocity},
		{"no threshold", &zero, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(Config{MinVelocity: tt.min}, nil, discard)
			if err != nil {
				t.Fatal(err)
			}
			defer e.Close()
			got, err := e.Props.Get(PropMinVelocity)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEngineCloseDropsVoices(t *testing.T) {
	e := newTestEngine(t, nil)
	e.LoadPreset("0")
	e.WaitLoaded()

	out := make([]int16, 128)
	e.HandleMessage([]byte{0x90, 60, 100}, 0)
	e.Render(out)
	e.HandleMessage([]byte{0x90, 60, 90}, 0)
	if want, got := 1, e.Voices(); want != got {
		t.Fatalf("want %v voice, got %v", want, got)
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if got := len(e.mixer.active); got != 0 {
		t.Errorf("want no active voices after close, got %v", got)
	}
	var queued int
	e.events.drain(func(event) { queued++ })
	if queued != 0 {
		t.Errorf("want empty voice queue after close, got %v events", queued)
	}
	if got := e.Voices(); got != 0 {
		t.Errorf("want voice count 0 after close, got %v", got)
	}
	if !e.Store().Empty() {
		t.Errorf("want empty store after close")
	}
}
