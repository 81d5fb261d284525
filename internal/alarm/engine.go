package alarm

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ezraeffect/vibewatch/internal/dsp"
)

const (
	// defaultMargin is the hysteresis band: a channel is exceeding only
	// above threshold×(1+margin), suppressing marginal crossings.
	defaultMargin = 0.10
	// tempMargin is the narrower band used for the temperature channel.
	tempMargin = 0.05
	// criticalFactor grades a channel as critical (Danger) above
	// threshold×criticalFactor.
	criticalFactor = 1.5
	// defaultConfirmCycles is the temporal debounce: a candidate state must
	// hold this many consecutive evaluations before becoming visible.
	// Recovery is symmetric and uses the same count.
	defaultConfirmCycles = 3
)

// Exceedance describes one channel crossing its limit, for event logging.
type Exceedance struct {
	Channel   string  `json:"channel"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Critical  bool    `json:"critical"`
}

// Engine is the alarm state machine. Evaluate is called once per analysis
// cycle; SetThresholds may be called concurrently from API handlers or the
// learner.
type Engine struct {
	thresholds atomic.Pointer[ThresholdSet]

	mu            sync.Mutex
	state         State
	pending       State
	pendingCount  int
	confirmCycles int
	exceedances   []Exceedance
}

// NewEngine creates an Engine starting in Disconnected with the given
// initial thresholds.
func NewEngine(ts ThresholdSet) *Engine {
	e := &Engine{state: Disconnected, confirmCycles: defaultConfirmCycles}
	e.SetThresholds(ts)
	return e
}

// SetThresholds atomically replaces the active threshold set.
func (e *Engine) SetThresholds(ts ThresholdSet) {
	e.thresholds.Store(&ts)
}

// Thresholds returns the active threshold set.
func (e *Engine) Thresholds() ThresholdSet {
	return *e.thresholds.Load()
}

// State returns the current externally visible alarm state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Exceedances returns the channel crossings observed on the last evaluation.
func (e *Engine) Exceedances() []Exceedance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Exceedance(nil), e.exceedances...)
}

// Evaluate consumes one cycle of window features. connected=false forces
// Disconnected unconditionally, overriding any debounce in progress. A
// stricter or milder candidate state becomes visible only after it holds for
// the confirmation count; a single exceeding cycle never raises an alarm.
func (e *Engine) Evaluate(f dsp.WindowFeatures, connected bool) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !connected {
		e.state = Disconnected
		e.pending = Disconnected
		e.pendingCount = 0
		e.exceedances = nil
		return e.state
	}

	candidate, exceedances := e.grade(f)
	e.exceedances = exceedances

	if e.state == Disconnected {
		// Samples are flowing again: return to Normal immediately, then let
		// the ordinary debounce handle any escalation.
		e.state = Normal
		e.pending = Normal
		e.pendingCount = 0
	}

	if candidate == e.state {
		e.pending = e.state
		e.pendingCount = 0
		return e.state
	}
	if candidate != e.pending {
		e.pending = candidate
		e.pendingCount = 1
	} else {
		e.pendingCount++
	}
	if e.pendingCount >= e.confirmCycles {
		e.state = e.pending
		e.pendingCount = 0
	}
	return e.state
}

// grade computes the undebounced candidate state for one cycle.
func (e *Engine) grade(f dsp.WindowFeatures) (State, []Exceedance) {
	ts := e.thresholds.Load()
	checks := []struct {
		channel   string
		value     float64
		threshold float64
		margin    float64
	}{
		{"acc_rms", f.AccRMS, ts.AccRMSMax, defaultMargin},
		{"vel_peak", f.VelPeak, ts.VelPeakMax, defaultMargin},
		{"disp_peak", f.DispPeak, ts.DispPeakMax, defaultMargin},
		{"temp", f.Temp, ts.TempMax, tempMargin},
	}

	state := Normal
	var out []Exceedance
	for _, c := range checks {
		if c.threshold <= 0 || math.IsNaN(c.value) {
			continue
		}
		// A value at least margin above the threshold exceeds; the boundary
		// itself counts.
		if c.value < c.threshold*(1+c.margin) {
			continue
		}
		critical := c.value > c.threshold*criticalFactor
		out = append(out, Exceedance{
			Channel:   c.channel,
			Value:     c.value,
			Threshold: c.threshold,
			Critical:  critical,
		})
		if critical {
			state = Danger
		} else if state != Danger {
			state = Warning
		}
	}
	return state, out
}
