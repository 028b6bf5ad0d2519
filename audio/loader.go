package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mrdg/samplerbox/definition"
	"github.com/mrdg/samplerbox/wave"
)

// Loader builds stores from preset directories below Root.
type Loader struct {
	Root    string
	Options wave.Options
	Logger  *slog.Logger
}

// PresetDir returns the directory holding preset. A preset id matches a
// directory named exactly like it, or one named "<id> <description>".
func (l *Loader) PresetDir(preset string) (string, bool) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if name := e.Name(); name == preset || strings.HasPrefix(name, preset+" ") {
			return name, true
		}
	}
	return "", false
}

// Build loads preset into a new store. A missing preset directory results in
// an empty store. Files that cannot be decoded and definition lines that cannot
// be parsed are logged and skipped. Build returns ctx.Err() as soon as it sees
// ctx cancelled.
func (l *Loader) Build(ctx context.Context, preset string) (*Store, error) {
	state := defaultPresetState(preset)
	name, ok := l.PresetDir(preset)
	if !ok {
		l.logger().Info("loader: preset not found", "preset", preset, "root", l.Root)
		return NewStore(nil, state), nil
	}
	state.Name = name
	dir := filepath.Join(l.Root, name)

	files, err := listWAVs(dir)
	if err != nil {
		return nil, fmt.Errorf("list preset %s: %w", name, err)
	}

	var bindings []definition.Binding
	def, err := l.readDefinition(dir)
	switch {
	case err == nil:
		state.Volume *= def.Gain()
		state.Transpose = def.Transpose
		bindings, err = l.match(ctx, def, files)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		bindings = bareBindings(files)
	default:
		return nil, err
	}

	samples, err := l.decode(ctx, dir, bindings)
	if err != nil {
		return nil, err
	}
	l.logger().Info("loader: preset built", "preset", preset, "dir", name, "samples", len(samples))
	return NewStore(samples, state), nil
}

func (l *Loader) readDefinition(dir string) (*definition.Definition, error) {
	f, err := os.Open(filepath.Join(dir, definition.FileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	def, errs := definition.Parse(f)
	for _, err := range errs {
		l.logger().Warn("loader: skipping definition line", "dir", dir, "err", err)
	}
	return def, nil
}

func (l *Loader) match(ctx context.Context, def *definition.Definition, files []string) ([]definition.Binding, error) {
	var bindings []definition.Binding
	for _, rule := range def.Rules {
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			b, ok, err := rule.Match(file)
			if err != nil {
				l.logger().Warn("loader: bad file name", "pattern", rule.Pattern, "err", err)
				continue
			}
			if ok {
				bindings = append(bindings, b)
			}
		}
	}
	return bindings, nil
}

// decode loads every bound file once, sharing the decoded data between keys
// bound to the same file.
func (l *Loader) decode(ctx context.Context, dir string, bindings []definition.Binding) ([]*Sample, error) {
	cache := make(map[string]*wave.PCM)
	samples := make([]*Sample, 0, len(bindings))
	for _, b := range bindings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !inRange(b.Note) || !inRange(b.Velocity) {
			l.logger().Warn("loader: key out of range", "file", b.File, "note", b.Note, "velocity", b.Velocity)
			continue
		}
		pcm, ok := cache[b.File]
		if !ok {
			var err error
			pcm, err = wave.DecodeFile(filepath.Join(dir, b.File), l.Options)
			if err != nil {
				l.logger().Warn("loader: skipping sample", "file", b.File, "err", err)
				continue
			}
			cache[b.File] = pcm
		}
		samples = append(samples, NewSample(b.File, b.Note, b.Velocity, pcm))
	}
	return samples, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// listWAVs returns the names of the regular .wav files in dir, sorted.
func listWAVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == definition.FileName {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// bareBindings binds every "<note>.wav" file to (note, 127).
func bareBindings(files []string) []definition.Binding {
	var bindings []definition.Binding
	for _, f := range files {
		note, err := strconv.Atoi(strings.TrimSuffix(f, filepath.Ext(f)))
		if err != nil {
			continue
		}
		bindings = append(bindings, definition.Binding{Note: note, Velocity: 127, File: f})
	}
	return bindings
}
