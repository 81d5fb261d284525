package wtvb

import (
	"errors"
	"fmt"
)

// Sentinel causes for frame rejection. Wrap them in a FrameError so callers
// can test with errors.Is while still seeing the offending bytes.
var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnexpectedReply  = errors.New("unexpected address or function")
)

// FrameError reports a response frame that failed validation. The frame is
// retained for diagnostics; it is never repaired or partially decoded.
type FrameError struct {
	Cause error
	Frame []byte
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame error: %v (% X)", e.Cause, e.Frame)
}

func (e *FrameError) Unwrap() error { return e.Cause }

func frameErr(cause error, frame []byte) error {
	return &FrameError{Cause: cause, Frame: append([]byte(nil), frame...)}
}

// CRC16 computes the Modbus RTU checksum (polynomial 0xA001, initial value
// 0xFFFF, reflected) over b.
func CRC16(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, c := range b {
		crc ^= uint16(c)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendCRC appends the checksum of frame to frame, low byte first. The wire
// order is fixed by the sensor's documented example exchange
// (50 03 00 3A 00 03 -> trailer 28 47, CRC 0x4728).
func AppendCRC(frame []byte) []byte {
	crc := CRC16(frame)
	return append(frame, byte(crc&0xFF), byte(crc>>8))
}

// VerifyCRC reports whether the trailing two bytes of frame equal the
// checksum of the preceding bytes.
func VerifyCRC(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	crc := CRC16(frame[:len(frame)-2])
	return frame[len(frame)-2] == byte(crc&0xFF) && frame[len(frame)-1] == byte(crc>>8)
}

// BuildReadRequest assembles a function 0x03 request reading count registers
// starting at reg from the device at addr.
func BuildReadRequest(addr byte, reg, count uint16) []byte {
	return AppendCRC([]byte{
		addr,
		FuncReadRegisters,
		byte(reg >> 8), byte(reg),
		byte(count >> 8), byte(count),
	})
}

// BuildWriteRequest assembles a function 0x06 request writing value to the
// single register reg on the device at addr.
func BuildWriteRequest(addr byte, reg, value uint16) []byte {
	return AppendCRC([]byte{
		addr,
		FuncWriteRegister,
		byte(reg >> 8), byte(reg),
		byte(value >> 8), byte(value),
	})
}

// ReadResponseLen returns the total frame length of a function 0x03 response
// carrying count registers: addr + func + byte count + payload + CRC.
func ReadResponseLen(count uint16) int {
	return 3 + int(count)*2 + 2
}

// ParseReadResponse validates a function 0x03 response against the request
// parameters and returns the raw register values. Address, function code,
// declared byte length and CRC must all match; any violation is a FrameError.
func ParseReadResponse(frame []byte, addr byte, count uint16) ([]uint16, error) {
	if len(frame) != ReadResponseLen(count) {
		return nil, frameErr(ErrMalformedFrame, frame)
	}
	if !VerifyCRC(frame) {
		return nil, frameErr(ErrChecksumMismatch, frame)
	}
	if frame[0] != addr || frame[1] != FuncReadRegisters {
		return nil, frameErr(ErrUnexpectedReply, frame)
	}
	if int(frame[2]) != int(count)*2 {
		return nil, frameErr(ErrMalformedFrame, frame)
	}
	regs := make([]uint16, count)
	for i := range regs {
		hi, lo := frame[3+2*i], frame[4+2*i]
		regs[i] = uint16(hi)<<8 | uint16(lo)
	}
	return regs, nil
}

// ParseWriteEcho validates the echo response to a function 0x06 write. The
// sensor echoes the request frame verbatim.
func ParseWriteEcho(frame []byte, addr byte, reg, value uint16) error {
	if len(frame) != 8 {
		return frameErr(ErrMalformedFrame, frame)
	}
	if !VerifyCRC(frame) {
		return frameErr(ErrChecksumMismatch, frame)
	}
	if frame[0] != addr || frame[1] != FuncWriteRegister {
		return frameErr(ErrUnexpectedReply, frame)
	}
	gotReg := uint16(frame[2])<<8 | uint16(frame[3])
	gotVal := uint16(frame[4])<<8 | uint16(frame[5])
	if gotReg != reg || gotVal != value {
		return frameErr(ErrUnexpectedReply, frame)
	}
	return nil
}

// BuildReadResponse assembles a function 0x03 response frame carrying regs.
// The daemon never sends responses; this exists for the mock transport and
// tests that need well-formed sensor traffic.
func BuildReadResponse(addr byte, regs []uint16) []byte {
	frame := make([]byte, 0, 3+len(regs)*2+2)
	frame = append(frame, addr, FuncReadRegisters, byte(len(regs)*2))
	for _, r := range regs {
		frame = append(frame, byte(r>>8), byte(r))
	}
	return AppendCRC(frame)
}
