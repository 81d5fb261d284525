package serialport

import (
	"fmt"

	"go.bug.st/serial"
)

// Open opens a real serial port at path with the given mode. The returned
// port supports SetReadTimeout.
func Open(path string, mode *Mode) (TimeoutPorter, error) {
	if mode == nil {
		mode = DefaultMode()
	}
	sm, err := serialMode(mode)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, sm)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return port, nil
}

func serialMode(mode *Mode) (*serial.Mode, error) {
	sm := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
	}
	switch mode.Parity {
	case NoParity:
		sm.Parity = serial.NoParity
	case OddParity:
		sm.Parity = serial.OddParity
	case EvenParity:
		sm.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("unsupported parity: %d", mode.Parity)
	}
	switch mode.StopBits {
	case OneStopBit:
		sm.StopBits = serial.OneStopBit
	case TwoStopBits:
		sm.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %d", mode.StopBits)
	}
	return sm, nil
}
