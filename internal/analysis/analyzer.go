// Package analysis runs the periodic evaluation loop: it snapshots the
// sample buffer, computes window features, drives the learning session,
// evaluates the alarm engine and feeds the display and the history store.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ezraeffect/vibewatch/internal/alarm"
	"github.com/ezraeffect/vibewatch/internal/baseline"
	"github.com/ezraeffect/vibewatch/internal/display"
	"github.com/ezraeffect/vibewatch/internal/dsp"
	"github.com/ezraeffect/vibewatch/internal/monitoring"
	"github.com/ezraeffect/vibewatch/internal/sample"
)

// ConnectionSource reports whether the acquisition side is healthy. The
// sensor reader implements it.
type ConnectionSource interface {
	Connected() bool
}

// EventStore receives alarm transitions, learning outcomes and periodic
// feature rollups. The sqlite store implements it; a nil store disables
// persistence.
type EventStore interface {
	RecordAlarmEvent(ev StoreEvent) error
	RecordBaselineRun(res *baseline.Result) error
	RecordFeatures(at time.Time, f dsp.WindowFeatures, state alarm.State) error
}

// StoreEvent is a persisted alarm transition.
type StoreEvent struct {
	OccurredAt time.Time
	PrevState  alarm.State
	NewState   alarm.State
	Exceedance *alarm.Exceedance
}

// Config tunes the analyzer.
type Config struct {
	// SampleRate is the nominal acquisition rate in Hz, used for spectrum
	// frequency axes.
	SampleRate float64
	// AlarmWindow is how many trailing samples feed the alarm features.
	AlarmWindow int
	// FFTWindow bounds the spectrum input length.
	FFTWindow int
	// RollupEvery is how many ticks pass between feature rollup rows.
	RollupEvery int
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 100.0
	}
	if c.AlarmWindow <= 0 {
		c.AlarmWindow = 10
	}
	if c.FFTWindow <= 0 {
		c.FFTWindow = dsp.DefaultFFTWindow
	}
	if c.RollupEvery <= 0 {
		c.RollupEvery = 30
	}
	return c
}

// Analyzer owns the analysis-side state. All mutation happens on the tick
// goroutine; accessors copy under the mutex.
type Analyzer struct {
	buf     *sample.Buffer
	source  ConnectionSource
	engine  *alarm.Engine
	learner *baseline.Learner
	emitter *display.Emitter
	store   EventStore
	cfg     Config

	mu        sync.Mutex
	latest    dsp.WindowFeatures
	state     alarm.State
	tickCount int
}

// NewAnalyzer wires an Analyzer. emitter and store may be nil.
func NewAnalyzer(buf *sample.Buffer, source ConnectionSource, engine *alarm.Engine,
	learner *baseline.Learner, emitter *display.Emitter, store EventStore, cfg Config) *Analyzer {
	return &Analyzer{
		buf:     buf,
		source:  source,
		engine:  engine,
		learner: learner,
		emitter: emitter,
		store:   store,
		cfg:     cfg.withDefaults(),
		state:   alarm.Disconnected,
	}
}

// Loop ticks the analyzer at the given interval until ctx is cancelled.
func (a *Analyzer) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			a.Tick(now)
		}
	}
}

// Tick runs one evaluation cycle. The snapshot copy is the only moment the
// buffer lock is held; all computation below runs on the copy.
func (a *Analyzer) Tick(now time.Time) {
	if a.learner.Tick(now) {
		a.handleLearningOutcome()
	}

	snap := a.buf.Snapshot()
	window := snap
	if len(window) > a.cfg.AlarmWindow {
		window = window[len(window)-a.cfg.AlarmWindow:]
	}
	features := dsp.EvaluateWindow(window)
	connected := a.source.Connected()
	state := a.engine.Evaluate(features, connected)

	a.mu.Lock()
	prev := a.state
	a.state = state
	a.latest = features
	a.tickCount++
	rollup := a.tickCount%a.cfg.RollupEvery == 0
	a.mu.Unlock()

	if prev != state {
		a.recordTransition(now, prev, state)
	}
	if a.emitter != nil {
		vel := features.VelPeak
		if state == alarm.Disconnected || math.IsNaN(vel) {
			vel = 0
		}
		if err := a.emitter.Emit(vel, state); err != nil {
			monitoring.Logf("analysis: display emit failed: %v", err)
		}
	}
	if rollup && a.store != nil && connected {
		if err := a.store.RecordFeatures(now, features, state); err != nil {
			monitoring.Logf("analysis: feature rollup failed: %v", err)
		}
	}
}

// handleLearningOutcome installs thresholds from a successful session and
// records the run.
func (a *Analyzer) handleLearningOutcome() {
	res, err := a.learner.Result()
	if err != nil {
		monitoring.Logf("analysis: learning session failed: %v", err)
		return
	}
	if res == nil {
		return
	}
	a.engine.SetThresholds(res.Thresholds)
	monitoring.Logf("analysis: installed learned thresholds acc=%.3fg vel=%.1fmm/s disp=%.0fµm",
		res.Thresholds.AccRMSMax, res.Thresholds.VelPeakMax, res.Thresholds.DispPeakMax)
	if a.store != nil {
		if err := a.store.RecordBaselineRun(res); err != nil {
			monitoring.Logf("analysis: failed to record baseline run: %v", err)
		}
	}
}

func (a *Analyzer) recordTransition(now time.Time, prev, next alarm.State) {
	monitoring.Logf("analysis: alarm state %s -> %s", prev, next)
	if a.store == nil {
		return
	}
	ev := StoreEvent{OccurredAt: now, PrevState: prev, NewState: next}
	if ex := a.engine.Exceedances(); len(ex) > 0 {
		dominant := ex[0]
		for _, x := range ex[1:] {
			if x.Critical && !dominant.Critical {
				dominant = x
			}
		}
		ev.Exceedance = &dominant
	}
	if err := a.store.RecordAlarmEvent(ev); err != nil {
		monitoring.Logf("analysis: failed to record alarm event: %v", err)
	}
}

// State returns the current alarm state.
func (a *Analyzer) State() alarm.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Features returns the most recent window features.
func (a *Analyzer) Features() dsp.WindowFeatures {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// Quantity selects a sample channel group for spectrum requests.
type Quantity string

const (
	QuantityAcc  Quantity = "acc"
	QuantityVel  Quantity = "vel"
	QuantityDisp Quantity = "disp"
)

// Spectrum computes the magnitude spectrum of one axis of one quantity over
// the current buffer contents.
func (a *Analyzer) Spectrum(q Quantity, axis int) (*dsp.Spectrum, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("axis out of range: %d", axis)
	}
	snap := a.buf.Snapshot()
	xs := make([]float64, len(snap))
	for i, s := range snap {
		switch q {
		case QuantityAcc:
			xs[i] = s.Acc[axis]
		case QuantityVel:
			xs[i] = s.Vel[axis]
		case QuantityDisp:
			xs[i] = s.Disp[axis]
		default:
			return nil, fmt.Errorf("unknown quantity %q", q)
		}
	}
	return dsp.ComputeSpectrum(xs, a.cfg.SampleRate, a.cfg.FFTWindow)
}
