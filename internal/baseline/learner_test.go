package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezraeffect/vibewatch/internal/dsp"
	"github.com/ezraeffect/vibewatch/internal/sample"
	"github.com/ezraeffect/vibewatch/internal/testutil"
)

func seededBuffer(t *testing.T) *sample.Buffer {
	t.Helper()
	buf := sample.NewBuffer(256)
	buf.Push(sample.Sample{
		Timestamp: time.Now(),
		Acc:       [3]float64{0.5, 0, 0},
		Vel:       [3]float64{10, 0, 0},
		Disp:      [3]float64{80, 0, 0},
	})
	return buf
}

func TestStartRequiresData(t *testing.T) {
	l := NewLearner(sample.NewBuffer(8), time.Second)
	_, err := l.Start()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, Idle, l.State())
}

func TestStartRejectsConcurrentSession(t *testing.T) {
	l := NewLearner(seededBuffer(t), time.Minute)
	first, err := l.Start()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	_, err = l.Start()
	assert.ErrorIs(t, err, ErrSessionActive)
	// The running session is untouched.
	assert.Equal(t, Collecting, l.State())
}

func TestAbortReturnsToIdle(t *testing.T) {
	l := NewLearner(seededBuffer(t), time.Minute)
	_, err := l.Start()
	require.NoError(t, err)

	l.Abort()
	assert.Equal(t, Idle, l.State())

	// Aborting twice is harmless.
	l.Abort()
	assert.Equal(t, Idle, l.State())
}

func TestTickIgnoredWhenIdle(t *testing.T) {
	l := NewLearner(seededBuffer(t), time.Second)
	assert.False(t, l.Tick(time.Now()))
}

func TestSuccessfulSession(t *testing.T) {
	buf := sample.NewBuffer(512)
	l := NewLearner(buf, 30*time.Second)

	// Steady machine signature with mild noise.
	samples := testutil.NoisySamples(1, time.Now(), 10*time.Millisecond, 0.5, 10, 80, 0.05, 11)
	testutil.FillBuffer(buf, samples)

	id, err := l.Start()
	require.NoError(t, err)

	// Feed well over the minimum sample count, then jump past the deadline.
	start := time.Now()
	noise := testutil.NoisySamples(dsp.MinBaselineSamples+50, start, 10*time.Millisecond, 0.5, 10, 80, 0.05, 12)
	for i, s := range noise {
		buf.Push(s)
		finished := l.Tick(start.Add(time.Duration(i) * 10 * time.Millisecond))
		assert.False(t, finished)
	}
	require.True(t, l.Tick(start.Add(time.Minute)))

	assert.Equal(t, Succeeded, l.State())
	res, lerr := l.Result()
	require.NoError(t, lerr)
	require.NotNil(t, res)
	assert.Equal(t, id, res.SessionID)
	assert.GreaterOrEqual(t, res.Samples, dsp.MinBaselineSamples)

	assert.InDelta(t, 0.5, res.AccProfile.Mean, 0.05)
	assert.InDelta(t, 10.0, res.VelProfile.Mean, 0.1)
	assert.InDelta(t, 80.0, res.DispProfile.Mean, 0.1)

	// Thresholds follow the adaptive rule per channel.
	assert.InDelta(t, dsp.AdaptiveThreshold(res.VelProfile), res.Thresholds.VelPeakMax, 1e-9)
	assert.Greater(t, res.Thresholds.VelPeakMax, res.VelProfile.Max)
	// Temperature is never learned; it stays disabled in the suggestion.
	assert.Equal(t, 0.0, res.Thresholds.TempMax)
}

func TestSessionFailsOnTooFewSamples(t *testing.T) {
	l := NewLearner(seededBuffer(t), 10*time.Second)
	_, err := l.Start()
	require.NoError(t, err)

	// Only a handful of ticks before the deadline passes.
	now := time.Now()
	for i := 0; i < 5; i++ {
		l.Tick(now)
	}
	require.True(t, l.Tick(now.Add(time.Minute)))

	assert.Equal(t, Failed, l.State())
	res, lerr := l.Result()
	assert.Nil(t, res)
	assert.ErrorIs(t, lerr, dsp.ErrInsufficientData)
}

func TestFailedSessionCanRestart(t *testing.T) {
	l := NewLearner(seededBuffer(t), 10*time.Second)
	_, err := l.Start()
	require.NoError(t, err)
	require.True(t, l.Tick(time.Now().Add(time.Minute)))
	require.Equal(t, Failed, l.State())

	_, err = l.Start()
	assert.NoError(t, err)
	assert.Equal(t, Collecting, l.State())
}

func TestProgress(t *testing.T) {
	l := NewLearner(seededBuffer(t), 42*time.Second)

	elapsed, total := l.Progress()
	assert.Equal(t, time.Duration(0), elapsed)
	assert.Equal(t, 42*time.Second, total)

	_, err := l.Start()
	require.NoError(t, err)
	elapsed, total = l.Progress()
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Less(t, elapsed, 42*time.Second)
	assert.Equal(t, 42*time.Second, total)
}

func TestSessionStateStrings(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "collecting", Collecting.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}
