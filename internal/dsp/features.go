// Package dsp computes time- and frequency-domain features over sample
// windows and derives baseline statistics and adaptive alarm thresholds.
package dsp

import (
	"math"

	"github.com/ezraeffect/vibewatch/internal/sample"
)

// validValues filters NaN and Inf entries. All statistical reductions run on
// the valid subset only; a missing register read never contributes a fake
// zero.
func validValues(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// RMS returns the root-mean-square of the valid entries of xs, or NaN when
// none are valid.
func RMS(xs []float64) float64 {
	v := validValues(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(v)))
}

// Peak returns the maximum absolute value among the valid entries of xs, or
// NaN when none are valid.
func Peak(xs []float64) float64 {
	v := validValues(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	peak := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

// CrestFactor returns Peak/RMS, defined as 0 when RMS is 0.
func CrestFactor(xs []float64) float64 {
	rms := RMS(xs)
	if math.IsNaN(rms) {
		return math.NaN()
	}
	if rms == 0 {
		return 0
	}
	return Peak(xs) / rms
}

// ChannelFeatures are the time-domain features of one scalar channel.
type ChannelFeatures struct {
	RMS         float64 `json:"rms"`
	Peak        float64 `json:"peak"`
	CrestFactor float64 `json:"crest_factor"`
}

// channelFeatures computes all three features over one pass of helpers.
func channelFeatures(xs []float64) ChannelFeatures {
	return ChannelFeatures{RMS: RMS(xs), Peak: Peak(xs), CrestFactor: CrestFactor(xs)}
}

// WindowFeatures summarises an evaluation window for alarm checking and
// reporting. Alarm evaluation uses the X axis of each quantity, matching the
// channels the baseline learner collects.
type WindowFeatures struct {
	Samples int `json:"samples"`

	Acc  [3]ChannelFeatures `json:"acc"`
	Vel  [3]ChannelFeatures `json:"vel"`
	Disp [3]ChannelFeatures `json:"disp"`

	// Alarm inputs.
	AccRMS   float64 `json:"acc_rms"`   // g, X axis
	VelPeak  float64 `json:"vel_peak"`  // mm/s, X axis
	DispPeak float64 `json:"disp_peak"` // µm, X axis
	Temp     float64 `json:"temp"`      // °C, newest reading
}

// Axis extractors for sample windows.

func axisValues(samples []sample.Sample, pick func(sample.Sample) float64) []float64 {
	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = pick(s)
	}
	return xs
}

// EvaluateWindow computes WindowFeatures over the given samples (typically
// the tail of a buffer snapshot). An empty window yields NaN features.
func EvaluateWindow(samples []sample.Sample) WindowFeatures {
	f := WindowFeatures{Samples: len(samples)}
	for axis := 0; axis < 3; axis++ {
		a := axis
		f.Acc[a] = channelFeatures(axisValues(samples, func(s sample.Sample) float64 { return s.Acc[a] }))
		f.Vel[a] = channelFeatures(axisValues(samples, func(s sample.Sample) float64 { return s.Vel[a] }))
		f.Disp[a] = channelFeatures(axisValues(samples, func(s sample.Sample) float64 { return s.Disp[a] }))
	}
	f.AccRMS = f.Acc[0].RMS
	f.VelPeak = f.Vel[0].Peak
	f.DispPeak = f.Disp[0].Peak
	if len(samples) > 0 {
		f.Temp = samples[len(samples)-1].Temp
	} else {
		f.Temp = math.NaN()
		f.AccRMS = math.NaN()
		f.VelPeak = math.NaN()
		f.DispPeak = math.NaN()
	}
	return f
}
