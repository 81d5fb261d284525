package alarm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezraeffect/vibewatch/internal/dsp"
)

func normalFeatures() dsp.WindowFeatures {
	return dsp.WindowFeatures{
		Samples:  10,
		AccRMS:   0.5,
		VelPeak:  20,
		DispPeak: 100,
		Temp:     25,
	}
}

func TestStartsDisconnected(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	assert.Equal(t, Disconnected, e.State())
}

func TestReconnectReturnsToNormalImmediately(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	got := e.Evaluate(normalFeatures(), true)
	assert.Equal(t, Normal, got)
}

func TestDisconnectOverridesDebounce(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 130 // above 100 * 1.10, below 100 * 1.5

	e.Evaluate(hot, true)
	e.Evaluate(hot, true)
	// Link drops mid-escalation: the pending Warning must be discarded.
	assert.Equal(t, Disconnected, e.Evaluate(hot, false))
	assert.Empty(t, e.Exceedances())

	// Back online: Normal right away, the old pending count must not leak.
	assert.Equal(t, Normal, e.Evaluate(normalFeatures(), true))
}

func TestSingleExceedingCycleDoesNotAlarm(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 130
	assert.Equal(t, Normal, e.Evaluate(hot, true))
	assert.Equal(t, Normal, e.Evaluate(normalFeatures(), true))
	assert.Equal(t, Normal, e.State())
}

func TestWarningAfterThreeConsecutiveCycles(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 130
	assert.Equal(t, Normal, e.Evaluate(hot, true))
	assert.Equal(t, Normal, e.Evaluate(hot, true))
	assert.Equal(t, Warning, e.Evaluate(hot, true))

	exc := e.Exceedances()
	require.Len(t, exc, 1)
	assert.Equal(t, "vel_peak", exc[0].Channel)
	assert.Equal(t, 130.0, exc[0].Value)
	assert.Equal(t, 100.0, exc[0].Threshold)
	assert.False(t, exc[0].Critical)
}

func TestValueExactlyAtMarginExceeds(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 100 * (1 + 0.10) // exactly threshold plus margin
	e.Evaluate(hot, true)
	e.Evaluate(hot, true)
	assert.Equal(t, Warning, e.Evaluate(hot, true))
}

func TestDangerAboveCriticalFactor(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 160 // above 100 * 1.5
	e.Evaluate(hot, true)
	e.Evaluate(hot, true)
	assert.Equal(t, Danger, e.Evaluate(hot, true))

	exc := e.Exceedances()
	require.Len(t, exc, 1)
	assert.True(t, exc[0].Critical)
}

func TestRecoveryIsDebouncedToo(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 130
	for i := 0; i < 3; i++ {
		e.Evaluate(hot, true)
	}
	require.Equal(t, Warning, e.State())

	assert.Equal(t, Warning, e.Evaluate(normalFeatures(), true))
	assert.Equal(t, Warning, e.Evaluate(normalFeatures(), true))
	assert.Equal(t, Normal, e.Evaluate(normalFeatures(), true))
}

func TestInterruptedEscalationResetsCount(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 130
	e.Evaluate(hot, true)
	e.Evaluate(hot, true)
	e.Evaluate(normalFeatures(), true) // breaks the streak
	e.Evaluate(hot, true)
	e.Evaluate(hot, true)
	assert.Equal(t, Normal, e.State())
	assert.Equal(t, Warning, e.Evaluate(hot, true))
}

func TestTemperatureUsesNarrowerMargin(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	warm := normalFeatures()
	warm.Temp = 62 // below 60 * 1.05 = 63: not an exceedance
	for i := 0; i < 4; i++ {
		assert.Equal(t, Normal, e.Evaluate(warm, true))
	}

	warm.Temp = 64 // above 63
	e.Evaluate(warm, true)
	e.Evaluate(warm, true)
	assert.Equal(t, Warning, e.Evaluate(warm, true))
}

func TestZeroThresholdDisablesChannel(t *testing.T) {
	ts := DefaultThresholds()
	ts.TempMax = 0
	e := NewEngine(ts)
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.Temp = 500
	for i := 0; i < 4; i++ {
		assert.Equal(t, Normal, e.Evaluate(hot, true))
	}
}

func TestDangerOutranksWarning(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	e.Evaluate(normalFeatures(), true)

	hot := normalFeatures()
	hot.VelPeak = 130 // warning-grade
	hot.AccRMS = 4.0  // danger-grade (2.0 * 1.5 = 3.0)
	e.Evaluate(hot, true)
	e.Evaluate(hot, true)
	assert.Equal(t, Danger, e.Evaluate(hot, true))
	assert.Len(t, e.Exceedances(), 2)
}

func TestSetThresholdsConcurrentWithEvaluate(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			e.SetThresholds(ThresholdSet{VelPeakMax: float64(i + 1)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			e.Evaluate(normalFeatures(), true)
		}
	}()
	wg.Wait()
	assert.Equal(t, 500.0, e.Thresholds().VelPeakMax)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "danger", Danger.String())
	assert.Equal(t, 0, Disconnected.StatusCode())
	assert.Equal(t, 3, Danger.StatusCode())
	assert.Equal(t, 0, State(99).StatusCode())
}
