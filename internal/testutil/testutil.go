// Package testutil provides synthetic vibration data for tests.
package testutil

import (
	"math"
	"math/rand"
	"time"

	"github.com/ezraeffect/vibewatch/internal/sample"
)

// Gaussian returns n values drawn from N(mean, std^2) with a fixed seed so
// tests are deterministic.
func Gaussian(n int, mean, std float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + std*rng.NormFloat64()
	}
	return out
}

// Sine returns n samples of a sine wave at freq Hz sampled at rate Hz.
func Sine(n int, freq, amplitude, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

// SteadySamples returns n samples with constant channel values and timestamps
// spaced dt apart starting at start. Useful for exercising buffer and alarm
// paths without noise.
func SteadySamples(n int, start time.Time, dt time.Duration, acc, vel, disp, temp float64) []sample.Sample {
	out := make([]sample.Sample, n)
	for i := range out {
		out[i] = sample.Sample{
			Timestamp: start.Add(time.Duration(i) * dt),
			Acc:       [3]float64{acc, acc, acc},
			Vel:       [3]float64{vel, vel, vel},
			Disp:      [3]float64{disp, disp, disp},
			Temp:      temp,
		}
	}
	return out
}

// NoisySamples returns n samples whose X channels follow N(mean, std^2) per
// quantity, with deterministic noise from seed.
func NoisySamples(n int, start time.Time, dt time.Duration, accMean, velMean, dispMean, std float64, seed int64) []sample.Sample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]sample.Sample, n)
	for i := range out {
		out[i] = sample.Sample{
			Timestamp: start.Add(time.Duration(i) * dt),
			Acc:       [3]float64{accMean + std*rng.NormFloat64(), accMean, accMean},
			Vel:       [3]float64{velMean + std*rng.NormFloat64(), velMean, velMean},
			Disp:      [3]float64{dispMean + std*rng.NormFloat64(), dispMean, dispMean},
			Temp:      25.0,
		}
	}
	return out
}

// FillBuffer pushes all samples into buf in order.
func FillBuffer(buf *sample.Buffer, samples []sample.Sample) {
	for _, s := range samples {
		buf.Push(s)
	}
}
