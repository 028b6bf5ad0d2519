// Package definition parses preset definition files. Each line of a
// definition.txt is either a global directive (%%volume=<dB>, %%transpose=<n>)
// or a file name pattern with optional defaults:
//
//	kick_%velocity_%notename.wav
//	pad_*.wav, %midinote=60, %velocity=100
//
// %midinote and %velocity capture digits, %notename captures a note name such as
// C#4 and * matches anything (non-greedy).
package definition

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// FileName is the name of the definition file inside a preset directory.
const FileName = "definition.txt"

var ErrSyntax = errors.New("syntax error")

const (
	keyMidiNote = "midinote"
	keyVelocity = "velocity"
	keyNoteName = "notename"
)

// Definition is a parsed definition file.
type Definition struct {
	Rules     []*Rule
	VolumeDB  float64 // sum of all %%volume directives
	Transpose int     // sum of all %%transpose directives
}

// Gain returns the linear gain of VolumeDB.
func (d *Definition) Gain() float64 {
	return math.Pow(10, d.VolumeDB/20)
}

// LineError is a problem with a single line. Parsing continues after it.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Parse reads a definition file. Lines that fail to parse are skipped and
// reported in the returned errors; the returned Definition is never nil.
func Parse(r io.Reader) (*Definition, []error) {
	def := &Definition{}
	var errs []error
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := def.parseLine(line); err != nil {
			errs = append(errs, &LineError{Line: n, Text: line, Err: err})
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return def, errs
}

func (d *Definition) parseLine(line string) error {
	switch {
	case strings.Contains(line, "%%volume"):
		v, err := strconv.ParseFloat(directiveValue(line), 64)
		if err != nil {
			return fmt.Errorf("%w: volume: %v", ErrSyntax, err)
		}
		d.VolumeDB += v
	case strings.Contains(line, "%%transpose"):
		v, err := strconv.Atoi(directiveValue(line))
		if err != nil {
			return fmt.Errorf("%w: transpose: %v", ErrSyntax, err)
		}
		d.Transpose += v
	default:
		rule, err := ParseRule(line)
		if err != nil {
			return err
		}
		d.Rules = append(d.Rules, rule)
	}
	return nil
}

func directiveValue(line string) string {
	parts := strings.Split(line, "=")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Rule is one compiled pattern line.
type Rule struct {
	Pattern  string
	MidiNote int
	Velocity int
	NoteName string

	re *regexp.Regexp
}

// ParseRule compiles a "<pattern>[, key=value, ...]" line.
func ParseRule(line string) (*Rule, error) {
	rule := &Rule{MidiNote: 0, Velocity: 127}

	pattern, params, _ := strings.Cut(line, ",")
	rule.Pattern = strings.TrimSpace(pattern)
	if rule.Pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrSyntax)
	}
	if strings.TrimSpace(params) != "" {
		if err := rule.parseDefaults(params); err != nil {
			return nil, err
		}
	}

	re, err := compile(lex(rule.Pattern))
	if err != nil {
		return nil, err
	}
	rule.re = re
	return rule, nil
}

func (r *Rule) parseDefaults(params string) error {
	params = strings.NewReplacer(" ", "", "%", "").Replace(params)
	for _, item := range strings.Split(params, ",") {
		kv := strings.Split(item, "=")
		if len(kv) != 2 {
			return fmt.Errorf("%w: bad parameter %q", ErrSyntax, item)
		}
		key, value := kv[0], kv[1]
		switch key {
		case keyMidiNote:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSyntax, key, err)
			}
			r.MidiNote = n
		case keyVelocity:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSyntax, key, err)
			}
			r.Velocity = n
		case keyNoteName:
			if value != "" {
				if _, err := NoteNumber(value); err != nil {
					return err
				}
			}
			r.NoteName = value
		}
	}
	return nil
}

var groupNames = map[tokenType]string{
	typeMidiNote: keyMidiNote,
	typeVelocity: keyVelocity,
	typeNoteName: keyNoteName,
}

func compile(tokens []token) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	seen := make(map[tokenType]bool)
	for _, t := range tokens {
		switch t.typ {
		case typeLiteral:
			b.WriteString(regexp.QuoteMeta(t.text))
		case typeWildcard:
			b.WriteString(".*?")
		case typeMidiNote, typeVelocity:
			if seen[t.typ] {
				return nil, unexpected(t)
			}
			seen[t.typ] = true
			fmt.Fprintf(&b, `(?P<%s>\d+)`, groupNames[t.typ])
		case typeNoteName:
			if seen[t.typ] {
				return nil, unexpected(t)
			}
			seen[t.typ] = true
			fmt.Fprintf(&b, `(?P<%s>[A-Ga-g]#?[0-9])`, groupNames[t.typ])
		case typeEOF:
		}
	}
	return regexp.Compile(b.String())
}

func unexpected(t token) error {
	return fmt.Errorf("%w: unexpected %q at position %d", ErrSyntax, t.text, t.pos)
}

// Binding ties a file to a key of the sample table.
type Binding struct {
	Note     int
	Velocity int
	File     string
}

// Match tests a file name against the rule. The match is anchored at the start
// of the name only.
func (r *Rule) Match(filename string) (Binding, bool, error) {
	m := r.re.FindStringSubmatch(filename)
	if m == nil {
		return Binding{}, false, nil
	}
	b := Binding{Note: r.MidiNote, Velocity: r.Velocity, File: filename}
	noteName := r.NoteName
	for i, name := range r.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		var err error
		switch name {
		case keyMidiNote:
			b.Note, err = strconv.Atoi(m[i])
		case keyVelocity:
			b.Velocity, err = strconv.Atoi(m[i])
		case keyNoteName:
			noteName = m[i]
		}
		if err != nil {
			return Binding{}, false, fmt.Errorf("%s: %w", filename, err)
		}
	}
	if noteName != "" {
		n, err := NoteNumber(noteName)
		if err != nil {
			return Binding{}, false, fmt.Errorf("%s: %w", filename, err)
		}
		b.Note = n
	}
	return b, true, nil
}

var noteNames = []string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// NoteNumber converts a note name like "C4" or "f#2" to a MIDI note number,
// counting octaves from -2 (C4 is 72).
func NoteNumber(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("%w: bad note name %q", ErrSyntax, name)
	}
	octave := name[len(name)-1]
	if octave < '0' || octave > '9' {
		return 0, fmt.Errorf("%w: bad octave in note name %q", ErrSyntax, name)
	}
	pitch := strings.ToLower(name[:len(name)-1])
	for i, n := range noteNames {
		if n == pitch {
			return i + (int(octave-'0')+2)*12, nil
		}
	}
	return 0, fmt.Errorf("%w: bad note name %q", ErrSyntax, name)
}
