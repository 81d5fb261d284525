package wtvb

import (
	"time"

	"github.com/ezraeffect/vibewatch/internal/sample"
)

// Physical-unit conversions. Registers are signed 16-bit values; scaling
// follows the sensor datasheet.

// Velocity converts a raw register to vibration velocity in mm/s.
func Velocity(raw uint16) float64 { return float64(int16(raw)) }

// Displacement converts a raw register to vibration displacement in µm.
func Displacement(raw uint16) float64 { return float64(int16(raw)) }

// Acceleration converts a raw register to acceleration in g (±16 g range).
func Acceleration(raw uint16) float64 { return float64(int16(raw)) / 32768.0 * 16.0 }

// Angle converts a raw register to an angle in degrees (±180° range).
func Angle(raw uint16) float64 { return float64(int16(raw)) / 32768.0 * 180.0 }

// Frequency converts a raw register to vibration frequency in Hz.
func Frequency(raw uint16) float64 { return float64(int16(raw)) / 10.0 }

// Temperature converts a raw register to chip temperature in °C.
func Temperature(raw uint16) float64 { return float64(int16(raw)) / 100.0 }

// DecodeSample converts the register block returned by a PollStart/PollCount
// read into a Sample stamped with ts. The block must contain exactly
// PollCount registers.
func DecodeSample(regs []uint16, ts time.Time) (sample.Sample, error) {
	if len(regs) != int(PollCount) {
		return sample.Sample{}, frameErr(ErrMalformedFrame, nil)
	}
	s := sample.Sample{Timestamp: ts}
	for axis := 0; axis < 3; axis++ {
		s.Acc[axis] = Acceleration(regs[pollIndex(RegAccX)+axis])
		s.Vel[axis] = Velocity(regs[pollIndex(RegVelX)+axis])
		s.Disp[axis] = Displacement(regs[pollIndex(RegDispX)+axis])
		s.Freq[axis] = Frequency(regs[pollIndex(RegFreqX)+axis])
	}
	s.Temp = Temperature(regs[pollIndex(RegTemp)])
	return s, nil
}
