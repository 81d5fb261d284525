// Package wtvb implements the Modbus-RTU register protocol spoken by the
// WTVB01-485 vibration sensor: request framing, CRC16 validation, response
// parsing and conversion of raw register values into physical units.
package wtvb

// Modbus function codes used by the sensor.
const (
	FuncReadRegisters  = 0x03
	FuncWriteRegister  = 0x06
	DefaultSlaveID     = 0x50
	UnlockValue        = 0x0069 // written to RegSave before configuration writes
	SaveValue          = 0x0000 // written to RegSave to persist configuration
)

// Register addresses on the sensor. All registers are 16-bit, big-endian on
// the wire.
const (
	RegSave   uint16 = 0x00
	RegBaud   uint16 = 0x04
	RegDevID  uint16 = 0x1A
	RegAccX   uint16 = 0x34
	RegAccY   uint16 = 0x35
	RegAccZ   uint16 = 0x36
	RegVelX   uint16 = 0x3A
	RegVelY   uint16 = 0x3B
	RegVelZ   uint16 = 0x3C
	RegAngleX uint16 = 0x3D
	RegAngleY uint16 = 0x3E
	RegAngleZ uint16 = 0x3F
	RegTemp   uint16 = 0x40
	RegDispX  uint16 = 0x41
	RegDispY  uint16 = 0x42
	RegDispZ  uint16 = 0x43
	RegFreqX  uint16 = 0x44
	RegFreqY  uint16 = 0x45
	RegFreqZ  uint16 = 0x46
)

// PollStart and PollCount describe the single block read that covers every
// register a full Sample needs (0x34 through 0x46 inclusive). Angle
// registers fall inside the span and are simply skipped during decoding.
const (
	PollStart uint16 = RegAccX
	PollCount uint16 = RegFreqZ - RegAccX + 1
)

// pollIndex returns the offset of reg within a PollStart block read.
func pollIndex(reg uint16) int {
	return int(reg - PollStart)
}
