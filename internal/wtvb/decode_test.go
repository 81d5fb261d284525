package wtvb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(uint16) float64
		raw  uint16
		want float64
	}{
		{"velocity positive", Velocity, 0x0002, 2.0},
		{"velocity negative", Velocity, 0xFFFE, -2.0},
		{"displacement", Displacement, 0x01F4, 500.0},
		{"acceleration full scale", Acceleration, 0x7FFF, 16.0 * 32767.0 / 32768.0},
		{"acceleration negative", Acceleration, 0x8000, -16.0},
		{"angle quarter turn", Angle, 0x4000, 90.0},
		{"frequency", Frequency, 230, 23.0},
		{"temperature", Temperature, 0x0190, 4.0},
		{"temperature room", Temperature, 2550, 25.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.fn(tt.raw), 1e-9)
		})
	}
}

func TestDecodeSample(t *testing.T) {
	regs := make([]uint16, PollCount)
	set := func(reg uint16, v uint16) { regs[pollIndex(reg)] = v }

	set(RegAccX, 0x1000) // 2 g
	set(RegAccY, 0x0800) // 1 g
	set(RegAccZ, 0xF000) // -2 g
	set(RegVelX, 25)
	set(RegVelY, 0xFFFB) // -5 mm/s
	set(RegVelZ, 0)
	set(RegTemp, 2500)
	set(RegDispX, 120)
	set(RegDispY, 60)
	set(RegDispZ, 30)
	set(RegFreqX, 235)
	set(RegFreqY, 120)
	set(RegFreqZ, 0)

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, err := DecodeSample(regs, ts)
	require.NoError(t, err)

	assert.Equal(t, ts, s.Timestamp)
	assert.InDelta(t, 2.0, s.Acc[0], 1e-9)
	assert.InDelta(t, 1.0, s.Acc[1], 1e-9)
	assert.InDelta(t, -2.0, s.Acc[2], 1e-9)
	assert.Equal(t, 25.0, s.Vel[0])
	assert.Equal(t, -5.0, s.Vel[1])
	assert.Equal(t, 0.0, s.Vel[2])
	assert.Equal(t, 120.0, s.Disp[0])
	assert.InDelta(t, 23.5, s.Freq[0], 1e-9)
	assert.InDelta(t, 25.0, s.Temp, 1e-9)
}

func TestDecodeSampleWrongBlockSize(t *testing.T) {
	_, err := DecodeSample(make([]uint16, 5), time.Now())
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

// Identical register blocks must decode to identical samples.
func TestDecodeSampleDeterministic(t *testing.T) {
	regs := make([]uint16, PollCount)
	for i := range regs {
		regs[i] = uint16(i * 1000)
	}
	ts := time.Now()
	a, err := DecodeSample(regs, ts)
	require.NoError(t, err)
	b, err := DecodeSample(regs, ts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
