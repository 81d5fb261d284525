// Package serialport abstracts the point-to-point serial link to the sensor
// so the acquisition code can be exercised without real hardware.
package serialport

import (
	"io"
	"time"
)

// Porter is the minimal interface the acquisition loop needs from a serial
// port.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with a configurable read timeout. Real ports
// implement it; the acquisition loop requires it so no read can block
// indefinitely.
type TimeoutPorter interface {
	Porter
	SetReadTimeout(timeout time.Duration) error
}

// Parity defines serial port parity options.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits defines serial port stop bit options.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Mode defines serial port configuration parameters.
type Mode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultMode returns the sensor's factory communication settings.
func DefaultMode() *Mode {
	return &Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

// Opener is a function type for opening serial ports, allowing the real
// opener to be replaced in tests and dev mode.
type Opener func(path string, mode *Mode) (TimeoutPorter, error)
