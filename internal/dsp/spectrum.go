package dsp

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// ErrShortSignal reports that too few valid samples remain to transform.
var ErrShortSignal = errors.New("signal too short for spectrum")

// DefaultFFTWindow is the number of trailing samples fed into the transform.
const DefaultFFTWindow = 512

// Spectrum is a one-sided magnitude spectrum.
type Spectrum struct {
	Freqs []float64 `json:"freqs"` // Hz, bin centres
	Mag   []float64 `json:"mag"`   // amplitude, window-normalized
}

// PeakFrequency returns the frequency and magnitude of the strongest
// non-DC bin.
func (s *Spectrum) PeakFrequency() (hz, mag float64) {
	for i := 1; i < len(s.Mag); i++ {
		if s.Mag[i] > mag {
			mag = s.Mag[i]
			hz = s.Freqs[i]
		}
	}
	return hz, mag
}

// ComputeSpectrum transforms the trailing maxWindow valid samples of xs
// sampled at sampleRate Hz. The signal is Hann-windowed, zero-padded to the
// next power of two (a transform-speed choice that only affects bin
// resolution) and normalized by the window's coherent gain so a unit sine
// reports magnitude ~1 at its bin.
func ComputeSpectrum(xs []float64, sampleRate float64, maxWindow int) (*Spectrum, error) {
	if maxWindow <= 0 {
		maxWindow = DefaultFFTWindow
	}
	v := validValues(xs)
	if len(v) < 2 {
		return nil, ErrShortSignal
	}
	if len(v) > maxWindow {
		v = v[len(v)-maxWindow:]
	}

	// Window before padding: the taper must apply to the measured signal,
	// not to the appended zeros.
	tapered := window.Hann(append([]float64(nil), v...))
	// Coherent gain: the sum of the Hann coefficients 0.5-0.5*cos(2πi/(N-1)).
	var gain float64
	for i := range tapered {
		gain += 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(len(tapered)-1))
	}
	if gain == 0 {
		gain = 1
	}

	n := nextPow2(len(tapered))
	padded := make([]float64, n)
	copy(padded, tapered)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, padded)

	spec := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Mag:   make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		spec.Freqs[i] = fft.Freq(i) * sampleRate
		spec.Mag[i] = cmplx.Abs(c) / (gain / 2)
	}
	return spec, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
