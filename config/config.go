// Package config assembles the sampler settings from defaults, an optional
// JSON file and command line flags, in increasing order of precedence.
package config

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// Config holds every setting of a sampler process.
type Config struct {
	SamplesDir string
	Preset     string

	Backend   string
	Device    int // -1 selects the default output device
	BlockSize int

	Polyphony   int
	MinVelocity int
	LevelDB     float64
	Loops       bool

	SerialMIDI     string
	SerialMIDIBaud int
	Display        string
	DisplayBaud    int
	USBMIDI        bool
	Console        bool
	Script         string // console commands run after startup

	Debug bool
}

func Default() *Config {
	return &Config{
		SamplesDir:     "samples",
		Preset:         "0",
		Backend:        BackendPortAudio,
		Device:         -1,
		BlockSize:      512,
		Polyphony:      80,
		MinVelocity:    10,
		LevelDB:        0,
		SerialMIDIBaud: 38400,
		DisplayBaud:    9600,
		USBMIDI:        true,
		Console:        true,
	}
}

// File is the JSON schema of a config file. Absent fields keep their
// defaults.
type File struct {
	SamplesDir     *string  `json:"samples_dir"`
	Preset         *string  `json:"preset"`
	Backend        *string  `json:"backend"`
	Device         *int     `json:"device"`
	BlockSize      *int     `json:"block_size"`
	Polyphony      *int     `json:"polyphony"`
	MinVelocity    *int     `json:"min_velocity"`
	LevelDB        *float64 `json:"level_db"`
	HonorLoops     *bool    `json:"honor_loops"`
	SerialMIDI     *string  `json:"serial_midi"`
	SerialMIDIBaud *int     `json:"serial_midi_baud"`
	Display        *string  `json:"display"`
	DisplayBaud    *int     `json:"display_baud"`
	USBMIDI        *bool    `json:"usb_midi"`
	Console        *bool    `json:"console"`
	Script         *string  `json:"script"`
	Debug          *bool    `json:"debug"`
}

// LoadFile reads a JSON config file and applies it on top of the defaults.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c := Default()
	ApplyFile(c, &f)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ApplyFile copies the fields present in f to dst.
func ApplyFile(dst *Config, f *File) {
	setString(&dst.SamplesDir, f.SamplesDir)
	setString(&dst.Preset, f.Preset)
	setString(&dst.Backend, f.Backend)
	setInt(&dst.Device, f.Device)
	setInt(&dst.BlockSize, f.BlockSize)
	setInt(&dst.Polyphony, f.Polyphony)
	setInt(&dst.MinVelocity, f.MinVelocity)
	if f.LevelDB != nil {
		dst.LevelDB = *f.LevelDB
	}
	setBool(&dst.Loops, f.HonorLoops)
	setString(&dst.SerialMIDI, f.SerialMIDI)
	setInt(&dst.SerialMIDIBaud, f.SerialMIDIBaud)
	setString(&dst.Display, f.Display)
	setInt(&dst.DisplayBaud, f.DisplayBaud)
	setBool(&dst.USBMIDI, f.USBMIDI)
	setBool(&dst.Console, f.Console)
	setString(&dst.Script, f.Script)
	setBool(&dst.Debug, f.Debug)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.SamplesDir == "":
		return fmt.Errorf("samples_dir must not be empty")
	case c.Backend != BackendPortAudio && c.Backend != BackendOto:
		return fmt.Errorf("backend must be %s or %s, got %q", BackendPortAudio, BackendOto, c.Backend)
	case c.Device < -1:
		return fmt.Errorf("device must be >= -1")
	case c.BlockSize < 16 || c.BlockSize > 8192:
		return fmt.Errorf("block_size must be in [16,8192]")
	case c.Polyphony < 1 || c.Polyphony > 256:
		return fmt.Errorf("polyphony must be in [1,256]")
	case c.MinVelocity < 0 || c.MinVelocity > 127:
		return fmt.Errorf("min_velocity must be in [0,127]")
	case c.LevelDB < -60 || c.LevelDB > 12:
		return fmt.Errorf("level_db must be in [-60,12]")
	case c.SerialMIDIBaud <= 0 || c.DisplayBaud <= 0:
		return fmt.Errorf("baud rates must be > 0")
	}
	return nil
}

func (c *Config) flagSet(output io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("samplerbox", flag.ContinueOnError)
	fs.SetOutput(output)
	path := fs.String("config", "", "JSON config file")
	fs.StringVar(&c.SamplesDir, "samples", c.SamplesDir, "directory holding the preset directories")
	fs.StringVar(&c.Preset, "preset", c.Preset, "preset loaded at startup")
	fs.StringVar(&c.Backend, "backend", c.Backend, "audio backend: portaudio or oto")
	fs.IntVar(&c.Device, "device", c.Device, "portaudio output device, -1 for the default")
	fs.IntVar(&c.BlockSize, "block", c.BlockSize, "audio block size in frames")
	fs.IntVar(&c.Polyphony, "polyphony", c.Polyphony, "maximum number of voices")
	fs.IntVar(&c.MinVelocity, "min-velocity", c.MinVelocity, "note-ons at or below this velocity are ignored")
	fs.Float64Var(&c.LevelDB, "level", c.LevelDB, "master level in dB")
	fs.BoolVar(&c.Loops, "loops", c.Loops, "honor loop points stored in wav files")
	fs.StringVar(&c.SerialMIDI, "serial-midi", c.SerialMIDI, "serial port to read MIDI from")
	fs.IntVar(&c.SerialMIDIBaud, "serial-midi-baud", c.SerialMIDIBaud, "serial MIDI baud rate")
	fs.StringVar(&c.Display, "display", c.Display, "serial port of a 7-segment display")
	fs.IntVar(&c.DisplayBaud, "display-baud", c.DisplayBaud, "display baud rate")
	fs.BoolVar(&c.USBMIDI, "usb-midi", c.USBMIDI, "connect to USB MIDI inputs")
	fs.BoolVar(&c.Console, "console", c.Console, "read commands from the terminal")
	fs.StringVar(&c.Script, "run", c.Script, "file of console commands to run at startup")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
	return fs, path
}

// Load parses command line arguments. When -config names a file, the file is
// applied first and the flags given on the command line override it.
func Load(args []string, output io.Writer) (*Config, error) {
	c := Default()
	fs, path := c.flagSet(output)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		fromFile, err := LoadFile(*path)
		if err != nil {
			return nil, err
		}
		override, _ := fromFile.flagSet(io.Discard)
		var setErr error
		fs.Visit(func(f *flag.Flag) {
			if setErr == nil && f.Name != "config" {
				setErr = override.Set(f.Name, f.Value.String())
			}
		})
		if setErr != nil {
			return nil, setErr
		}
		c = fromFile
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
