package wave

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// buildWAV assembles a PCM RIFF/WAVE stream. samples holds interleaved values at
// the given bit depth. A non-nil loop appends a smpl chunk with one loop.
func buildWAV(format, channels, bits int, samples []int, loop []uint32) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		switch bits {
		case 8:
			data.WriteByte(byte(s + 128))
		case 16:
			binary.Write(&data, binary.LittleEndian, int16(s))
		case 24:
			data.Write([]byte{byte(s), byte(s >> 8), byte(s >> 16)})
		}
	}

	var body bytes.Buffer
	body.WriteString("WAVE")

	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(16))
	blockAlign := channels * bits / 8
	binary.Write(&body, binary.LittleEndian, uint16(format))
	binary.Write(&body, binary.LittleEndian, uint16(channels))
	binary.Write(&body, binary.LittleEndian, uint32(44100))
	binary.Write(&body, binary.LittleEndian, uint32(44100*blockAlign))
	binary.Write(&body, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&body, binary.LittleEndian, uint16(bits))

	body.WriteString("data")
	binary.Write(&body, binary.LittleEndian, uint32(data.Len()))
	body.Write(data.Bytes())
	if data.Len()%2 == 1 {
		body.WriteByte(0)
	}

	if loop != nil {
		body.WriteString("smpl")
		binary.Write(&body, binary.LittleEndian, uint32(36+24))
		for _, v := range []uint32{0, 0, 22675, 60, 0, 0, 0, 1, 0} {
			binary.Write(&body, binary.LittleEndian, v)
		}
		for _, v := range []uint32{0, 0, loop[0], loop[1], 0, 0} {
			binary.Write(&body, binary.LittleEndian, v)
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestDecodeStereo16(t *testing.T) {
	in := []int{1, -1, 100, -100, 32767, -32768}
	pcm, err := Decode(bytes.NewReader(buildWAV(1, 2, 16, in, nil)), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want, got := []int16{1, -1, 100, -100, 32767, -32768}, pcm.Data; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong data:\nwant: %v\ngot:  %v", want, got)
	}
	want := Info{Channels: 2, BitsPerSample: 16, SampleRate: 44100, Frames: 3, LoopStart: -1, LoopEnd: -1}
	if pcm.Info != want {
		t.Errorf("wrong info:\nwant: %+v\ngot:  %+v", want, pcm.Info)
	}
}

func TestDecodeMonoIsDuplicated(t *testing.T) {
	pcm, err := Decode(bytes.NewReader(buildWAV(1, 1, 16, []int{5, -7, 9}, nil)), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want, got := []int16{5, 5, -7, -7, 9, 9}, pcm.Data; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong data:\nwant: %v\ngot:  %v", want, got)
	}
	if pcm.Info.Frames != 3 {
		t.Errorf("want 3 frames, got %d", pcm.Info.Frames)
	}
}

func TestDecode24BitIsReduced(t *testing.T) {
	in := []int{0x123400, -0x100, 0x7fffff, -0x800000}
	pcm, err := Decode(bytes.NewReader(buildWAV(1, 2, 24, in, nil)), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want, got := []int16{0x1234, -1, 32767, -32768}, pcm.Data; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong data:\nwant: %v\ngot:  %v", want, got)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"not riff", []byte("this is definitely not a wav file"), ErrNotWave},
		{"short", []byte("RIFF"), ErrNotWave},
		{"8 bit", buildWAV(1, 1, 8, []int{1, 2}, nil), ErrUnsupported},
		{"float", buildWAV(3, 2, 16, []int{1, 2}, nil), ErrUnsupported},
		{"surround", buildWAV(1, 4, 16, []int{1, 2, 3, 4}, nil), ErrUnsupported},
	}
	for _, test := range tests {
		_, err := Decode(bytes.NewReader(test.input), Options{})
		if !errors.Is(err, test.want) {
			t.Errorf("%s: want %v, got %v", test.name, test.want, err)
		}
	}
}

func TestDecodeLoops(t *testing.T) {
	samples := make([]int, 20) // 10 stereo frames
	for i := range samples {
		samples[i] = i
	}
	input := buildWAV(1, 2, 16, samples, []uint32{2, 5})

	pcm, err := Decode(bytes.NewReader(input), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if pcm.Info.LoopStart != -1 || pcm.Info.Frames != 10 {
		t.Errorf("loops should be ignored by default: %+v", pcm.Info)
	}

	pcm, err = Decode(bytes.NewReader(input), Options{Loops: true})
	if err != nil {
		t.Fatal(err)
	}
	if pcm.Info.LoopStart != 2 || pcm.Info.LoopEnd != 5 {
		t.Errorf("wrong loop: %+v", pcm.Info)
	}
	if want, got := 7, pcm.Info.Frames; want != got {
		t.Errorf("want %d frames after truncation, got %d", want, got)
	}
	if want, got := 14, len(pcm.Data); want != got {
		t.Errorf("want %d samples, got %d", want, got)
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "60.wav")
	if err := os.WriteFile(path, buildWAV(1, 2, 16, []int{3, 4}, nil), 0o644); err != nil {
		t.Fatal(err)
	}
	pcm, err := DecodeFile(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if want, got := []int16{3, 4}, pcm.Data; !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}

	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.wav"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}
