package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mrdg/samplerbox/audio"
	"github.com/mrdg/samplerbox/config"
	"github.com/mrdg/samplerbox/display"
	"github.com/mrdg/samplerbox/midiio"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	initLogger(cfg.Debug)
	logger.Info("samplerbox starting",
		"samples", cfg.SamplesDir,
		"preset", cfg.Preset,
		"backend", cfg.Backend,
		"block", cfg.BlockSize,
		"polyphony", cfg.Polyphony,
	)
	if err := run(cfg); err != nil {
		logger.Error("samplerbox: fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	disp, closeDisplay := openDisplay(cfg)
	defer closeDisplay()

	engine, err := audio.NewEngine(audio.Config{
		SamplesDir:  cfg.SamplesDir,
		BlockSize:   cfg.BlockSize,
		Polyphony:   cfg.Polyphony,
		MinVelocity: &cfg.MinVelocity,
		LevelDB:     cfg.LevelDB,
		Loops:       cfg.Loops,
	}, disp, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	sink, err := openSink(cfg, engine)
	if err != nil {
		return fmt.Errorf("audio output: %w", err)
	}
	defer sink.Close()
	if err := sink.Start(); err != nil {
		return fmt.Errorf("audio output: %w", err)
	}

	engine.LoadPreset(cfg.Preset)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.USBMIDI {
		watcher, err := midiio.NewWatcher(engine, logger)
		if err != nil {
			logger.Error("midi: usb inputs disabled", "err", err)
		} else {
			defer watcher.Close()
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}

	if cfg.SerialMIDI != "" {
		in, err := midiio.OpenSerial(cfg.SerialMIDI, cfg.SerialMIDIBaud, logger)
		if err != nil {
			logger.Error("midi: serial input disabled", "err", err)
		} else {
			defer in.Close()
			g.Go(func() error {
				if err := in.Run(ctx, engine); err != nil {
					logger.Error("midi: serial input stopped", "err", err)
				}
				return nil
			})
		}
	}

	env := &env{engine: engine}
	if cfg.Script != "" {
		engine.WaitLoaded()
		if err := runScript(env, cfg.Script); err != nil {
			return err
		}
	}
	if cfg.Console {
		g.Go(func() error {
			defer stop()
			return repl(ctx, env)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err = g.Wait()
	logger.Info("samplerbox: shutting down")
	return err
}

func openSink(cfg *config.Config, r audio.Renderer) (audio.Sink, error) {
	switch cfg.Backend {
	case config.BackendOto:
		return audio.NewOtoSink(r, cfg.BlockSize)
	default:
		return audio.NewPortAudioSink(r, cfg.Device, cfg.BlockSize)
	}
}

func openDisplay(cfg *config.Config) (audio.Display, func()) {
	log := display.Log{Logger: logger}
	if cfg.Display == "" {
		return log, func() {}
	}
	seg, port, err := display.OpenSevenSegment(cfg.Display, cfg.DisplayBaud, logger)
	if err != nil {
		logger.Error("display: disabled", "err", err)
		return log, func() {}
	}
	return display.Multi{log, seg}, func() { closeQuietly(port) }
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Debug("close failed", "err", err)
	}
}
