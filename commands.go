package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mrdg/samplerbox/audio"
	"github.com/mrdg/samplerbox/definition"
	"github.com/mrdg/samplerbox/dub"
)

type command struct {
	name  string
	help  string
	run   func(*env, []dub.Node) (string, error)
	arity int // -n means the last of n arguments is optional
}

var commands []command

func init() {
	commands = []command{
		{"preset", "preset <n|name>: load a preset", presetCommand, 1},
		{"note", "note <note> [velocity]: play a note", noteCommand, -2},
		{"off", "off <note>: release a note", offCommand, 1},
		{"sustain", "sustain on|off: set the sustain pedal", sustainCommand, 1},
		{"panic", "panic: silence everything", panicCommand, 0},
		{"set", "set <property> <value>: change a property", setCommand, 2},
		{"get", "get [property]: show one or all properties", getCommand, -1},
		{"status", "status: show the loaded preset and voice count", statusCommand, 0},
		{"devices", "devices: list portaudio output devices", devicesCommand, 0},
		{"help", "help: list commands", helpCommand, 0},
	}
}

func presetCommand(env *env, args []dub.Node) (string, error) {
	var preset string
	if err := readArgs(args, &preset); err != nil {
		return "", err
	}
	if preset == "" {
		return "", errors.New("empty preset")
	}
	env.engine.LoadPreset(preset)
	return "", nil
}

func noteCommand(env *env, args []dub.Node) (string, error) {
	note, err := noteArg(args[0])
	if err != nil {
		return "", err
	}
	velocity := 127
	if len(args) > 1 {
		if err := readArgs(args[1:], &velocity); err != nil {
			return "", err
		}
	}
	if velocity < 0 || velocity > 127 {
		return "", fmt.Errorf("velocity out of range 0-127: %v", velocity)
	}
	env.engine.HandleMessage([]byte{0x90, byte(note), byte(velocity)}, 0)
	return "", nil
}

func offCommand(env *env, args []dub.Node) (string, error) {
	note, err := noteArg(args[0])
	if err != nil {
		return "", err
	}
	env.engine.HandleMessage([]byte{0x80, byte(note), 0}, 0)
	return "", nil
}

func sustainCommand(env *env, args []dub.Node) (string, error) {
	var state string
	if err := readArgs(args, &state); err != nil {
		return "", err
	}
	var value byte
	switch state {
	case "on":
		value = 127
	case "off":
		value = 0
	default:
		return "", fmt.Errorf("want on or off, got %q", state)
	}
	env.engine.HandleMessage([]byte{0xb0, 64, value}, 0)
	return "", nil
}

func panicCommand(env *env, args []dub.Node) (string, error) {
	env.engine.Panic()
	return "", nil
}

func setCommand(env *env, args []dub.Node) (string, error) {
	var prop string
	if err := readArgs(args[:1], &prop); err != nil {
		return "", err
	}
	switch v := args[1].(type) {
	case dub.Int:
		return "", env.engine.Props.Set(prop, int(v))
	case dub.Float:
		return "", env.engine.Props.Set(prop, float64(v))
	default:
		return "", fmt.Errorf("unsupported property value: %v", v)
	}
}

func getCommand(env *env, args []dub.Node) (string, error) {
	props := env.engine.Props
	keys := props.Keys()
	if len(args) > 0 {
		var prop string
		if err := readArgs(args, &prop); err != nil {
			return "", err
		}
		keys = []string{prop}
	}
	var b strings.Builder
	for i, key := range keys {
		v, err := props.Get(key)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s = %v", key, v)
		if len(args) == 0 {
			fmt.Fprintf(&b, " (%s)", props.Help(key))
		}
	}
	return b.String(), nil
}

func statusCommand(env *env, args []dub.Node) (string, error) {
	s := env.engine.Store()
	name := s.State.Name
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("preset %s (%s): %d samples, volume %.1f dB, transpose %d, %d voices, %d sustained",
		s.State.Preset, name, s.Bound(), 20*math.Log10(s.State.Volume), s.State.Transpose,
		env.engine.Voices(), env.engine.Sustained()), nil
}

func devicesCommand(env *env, args []dub.Node) (string, error) {
	devices, err := audio.AudioDevices()
	if err != nil {
		return "", err
	}
	return strings.Join(devices, "\n"), nil
}

func helpCommand(env *env, args []dub.Node) (string, error) {
	var lines []string
	for _, cmd := range commands {
		lines = append(lines, cmd.help)
	}
	return strings.Join(lines, "\n"), nil
}

// noteArg accepts a MIDI note number or a note name such as c#4.
func noteArg(arg dub.Node) (int, error) {
	var note int
	switch v := arg.(type) {
	case dub.Int:
		note = int(v)
	case dub.Identifier:
		n, err := definition.NoteNumber(string(v))
		if err != nil {
			return 0, err
		}
		note = n
	default:
		return 0, fmt.Errorf("argument error: expected a note")
	}
	if note < 0 || note > 127 {
		return 0, fmt.Errorf("note out of range 0-127: %v", note)
	}
	return note, nil
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			case dub.Int:
				*p = strconv.Itoa(int(s))
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			default:
				return fmt.Errorf("argument error: expected a number")
			}
		case *int:
			n, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer")
			}
			*p = int(n)
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
