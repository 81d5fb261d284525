package dsp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MinBaselineSamples is the minimum number of valid scalar values a baseline
// may be computed from.
const MinBaselineSamples = 100

// ErrInsufficientData reports that a baseline had fewer than
// MinBaselineSamples valid values after filtering.
var ErrInsufficientData = errors.New("insufficient valid samples for baseline")

// BaselineProfile is the statistical summary of one channel during known
// normal operation. Std is the population standard deviation (divide by n),
// matching how the profiles were defined when thresholds were first tuned.
type BaselineProfile struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	RMS         float64 `json:"rms"`
	CrestFactor float64 `json:"crest_factor"`
}

// ComputeBaseline builds a BaselineProfile from values. NaN/Inf entries are
// filtered first; if fewer than MinBaselineSamples remain it fails rather
// than returning a partial profile.
func ComputeBaseline(values []float64) (BaselineProfile, error) {
	v := validValues(values)
	if len(v) < MinBaselineSamples {
		return BaselineProfile{}, ErrInsufficientData
	}
	return BaselineProfile{
		Mean:        stat.Mean(v, nil),
		Std:         stat.PopStdDev(v, nil),
		Max:         floats.Max(v),
		Min:         floats.Min(v),
		RMS:         RMS(v),
		CrestFactor: CrestFactor(v),
	}, nil
}

// AdaptiveThreshold derives an alarm threshold from a baseline profile:
// the 3-sigma upper bound covers ~99.73% of a normally distributed baseline,
// and the 1.5× observed-max floor guards against baselines collected during
// an unusually quiet interval.
func AdaptiveThreshold(p BaselineProfile) float64 {
	return math.Max(p.Mean+3*p.Std, p.Max*1.5)
}
