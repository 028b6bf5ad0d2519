package midiio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// DefaultSerialBaud is the baud rate of a MIDI interface on a UART with the
// usual 38400 baud clock adjustment.
const DefaultSerialBaud = 38400

const serialReadTimeout = 200 * time.Millisecond

// SerialInput reads MIDI from a serial port.
type SerialInput struct {
	port   io.ReadCloser
	name   string
	logger *slog.Logger
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int, logger *slog.Logger) (*SerialInput, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial midi %s: %w", name, err)
	}
	if err := p.SetReadTimeout(serialReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("serial midi %s: %w", name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("serial: port opened", "device", name, "baud", baud)
	return &SerialInput{port: p, name: name, logger: logger}, nil
}

// Run frames bytes from the port into h until ctx is done or the port fails.
func (s *SerialInput) Run(ctx context.Context, h Handler) error {
	return readLoop(ctx, s.port, NewFramer(h))
}

func (s *SerialInput) Close() error {
	s.logger.Info("serial: closing port", "device", s.name)
	return s.port.Close()
}

// readLoop copies r into w until ctx is done. r must return periodically,
// e.g. through a read timeout, for cancellation to be noticed.
func readLoop(ctx context.Context, r io.Reader, w io.Writer) error {
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			w.Write(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("serial midi read: %w", err)
		}
	}
}
