// Package display shows short status strings such as the loaded preset.
package display

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaud is the baud rate of SparkFun style serial 7-segment displays.
const DefaultBaud = 9600

// clear display, cursor to the first digit
var resetSequence = []byte{0x76, 0x79, 0x00}

// SevenSegment writes to a 4 digit serial 7-segment display.
type SevenSegment struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

func NewSevenSegment(w io.Writer, logger *slog.Logger) *SevenSegment {
	if logger == nil {
		logger = slog.Default()
	}
	return &SevenSegment{w: w, logger: logger}
}

// OpenSevenSegment opens a display on the named serial port.
func OpenSevenSegment(name string, baud int, logger *slog.Logger) (*SevenSegment, io.Closer, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, nil, fmt.Errorf("open display %s: %w", name, err)
	}
	return NewSevenSegment(p, logger), p, nil
}

// Show replaces the displayed text. A failed write is retried once, then
// dropped.
func (d *SevenSegment) Show(text string) {
	msg := append(append([]byte(nil), resetSequence...), text...)
	d.mu.Lock()
	defer d.mu.Unlock()
	for attempt := 0; attempt < 2; attempt++ {
		_, err := d.w.Write(msg)
		if err == nil {
			return
		}
		d.logger.Debug("display: write failed", "attempt", attempt+1, "err", err)
	}
}

// Log writes displayed text to a logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Show(text string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("display", "text", text)
}

// Nop discards displayed text.
type Nop struct{}

func (Nop) Show(string) {}

// Multi shows text on several displays.
type Multi []interface{ Show(string) }

func (m Multi) Show(text string) {
	for _, d := range m {
		d.Show(text)
	}
}
