package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezraeffect/vibewatch/internal/testutil"
)

func TestComputeSpectrumFindsSinePeak(t *testing.T) {
	// 23 Hz unit sine at 100 Hz for 512 samples.
	xs := testutil.Sine(512, 23, 1.0, 100)

	spec, err := ComputeSpectrum(xs, 100, 512)
	require.NoError(t, err)
	require.NotEmpty(t, spec.Mag)

	hz, mag := spec.PeakFrequency()
	// Bin width is 100/512 Hz; the peak must land within one bin of 23 Hz.
	assert.InDelta(t, 23.0, hz, 100.0/512.0)
	// Coherent-gain normalization: a unit sine reports magnitude near 1.
	// Scalloping between bin centres costs up to ~15%.
	assert.InDelta(t, 1.0, mag, 0.2)
}

func TestComputeSpectrumTailWindow(t *testing.T) {
	// Old 5 Hz content followed by recent 30 Hz content; only the tail
	// window must be analysed.
	old := testutil.Sine(512, 5, 1.0, 100)
	recent := testutil.Sine(256, 30, 1.0, 100)
	xs := append(old, recent...)

	spec, err := ComputeSpectrum(xs, 100, 256)
	require.NoError(t, err)
	hz, _ := spec.PeakFrequency()
	assert.InDelta(t, 30.0, hz, 100.0/256.0)
}

func TestComputeSpectrumShortSignal(t *testing.T) {
	_, err := ComputeSpectrum(nil, 100, 512)
	assert.ErrorIs(t, err, ErrShortSignal)

	_, err = ComputeSpectrum([]float64{1}, 100, 512)
	assert.ErrorIs(t, err, ErrShortSignal)

	_, err = ComputeSpectrum([]float64{math.NaN(), math.NaN(), 1}, 100, 512)
	assert.ErrorIs(t, err, ErrShortSignal)
}

func TestComputeSpectrumFiltersInvalid(t *testing.T) {
	xs := testutil.Sine(256, 10, 1.0, 100)
	xs = append(xs, math.NaN(), math.Inf(1))

	spec, err := ComputeSpectrum(xs, 100, 256)
	require.NoError(t, err)
	hz, _ := spec.PeakFrequency()
	assert.InDelta(t, 10.0, hz, 100.0/256.0)
}

func TestNextPow2(t *testing.T) {
	assert.Equal(t, 1, nextPow2(1))
	assert.Equal(t, 2, nextPow2(2))
	assert.Equal(t, 4, nextPow2(3))
	assert.Equal(t, 512, nextPow2(500))
	assert.Equal(t, 512, nextPow2(512))
}
