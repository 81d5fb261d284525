// Package baseline implements the learning session that collects samples
// during known normal operation and derives the recommended threshold set.
package baseline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ezraeffect/vibewatch/internal/alarm"
	"github.com/ezraeffect/vibewatch/internal/dsp"
	"github.com/ezraeffect/vibewatch/internal/monitoring"
	"github.com/ezraeffect/vibewatch/internal/sample"
)

// SessionState is the lifecycle of a learning session.
type SessionState int

const (
	Idle SessionState = iota
	Collecting
	Finalizing
	Succeeded
	Failed
)

// String returns the state name used in logs and the API.
func (s SessionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Finalizing:
		return "finalizing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrNotReady reports that no live acquisition data exists to learn from.
	ErrNotReady = errors.New("no live sensor data; start acquisition first")
	// ErrSessionActive reports that a session is already collecting; only
	// one session may collect at a time.
	ErrSessionActive = errors.New("a learning session is already active")
)

// DefaultDuration is the nominal learning session length.
const DefaultDuration = 30 * time.Second

// Result is the outcome of a successful session: one profile per monitored
// channel and the derived threshold set, ready to install as active.
type Result struct {
	SessionID   string              `json:"session_id"`
	CompletedAt time.Time           `json:"completed_at"`
	Samples     int                 `json:"samples"`
	AccProfile  dsp.BaselineProfile `json:"acc_profile"`
	VelProfile  dsp.BaselineProfile `json:"vel_profile"`
	DispProfile dsp.BaselineProfile `json:"disp_profile"`
	Thresholds  alarm.ThresholdSet  `json:"thresholds"`
}

// Learner owns at most one learning session. Tick is driven by the analysis
// loop; Start and Abort may be called concurrently from API handlers.
type Learner struct {
	buf      *sample.Buffer
	duration time.Duration

	mu        sync.Mutex
	state     SessionState
	sessionID string
	startedAt time.Time
	accs      []float64
	vels      []float64
	disps     []float64
	result    *Result
	lastErr   error
}

// NewLearner creates a Learner reading from buf. duration <= 0 uses
// DefaultDuration.
func NewLearner(buf *sample.Buffer, duration time.Duration) *Learner {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Learner{buf: buf, duration: duration}
}

// Start begins a session. It fails with ErrSessionActive if one is already
// collecting (leaving that session untouched), and with ErrNotReady when the
// acquisition source has produced no samples yet.
func (l *Learner) Start() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Collecting || l.state == Finalizing {
		return "", ErrSessionActive
	}
	if l.buf.Len() == 0 {
		return "", ErrNotReady
	}
	l.sessionID = uuid.NewString()
	l.startedAt = time.Now()
	l.accs = l.accs[:0]
	l.vels = l.vels[:0]
	l.disps = l.disps[:0]
	l.result = nil
	l.lastErr = nil
	l.state = Collecting
	monitoring.Logf("baseline: session %s collecting for %s", l.sessionID, l.duration)
	return l.sessionID, nil
}

// Abort discards an in-progress session and returns to Idle without touching
// the active thresholds. Aborting an idle learner is a no-op.
func (l *Learner) Abort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Collecting {
		return
	}
	monitoring.Logf("baseline: session %s aborted after %d samples", l.sessionID, len(l.accs))
	l.accs = nil
	l.vels = nil
	l.disps = nil
	l.state = Idle
}

// Tick advances a collecting session: it appends the newest sample's
// monitored channels (X axis of acceleration, velocity and displacement) and
// finalizes once the session duration has elapsed at now. It returns true
// when the session just finished (either outcome).
func (l *Learner) Tick(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Collecting {
		return false
	}
	if s, ok := l.buf.Latest(); ok {
		l.accs = append(l.accs, s.Acc[0])
		l.vels = append(l.vels, s.Vel[0])
		l.disps = append(l.disps, s.Disp[0])
	}
	if now.Sub(l.startedAt) < l.duration {
		return false
	}
	l.state = Finalizing
	l.finalizeLocked(now)
	return true
}

// finalizeLocked computes the profiles and thresholds, or fails the session
// preserving no partial profile.
func (l *Learner) finalizeLocked(now time.Time) {
	accProfile, errA := dsp.ComputeBaseline(l.accs)
	velProfile, errV := dsp.ComputeBaseline(l.vels)
	dispProfile, errD := dsp.ComputeBaseline(l.disps)
	collected := len(l.accs)
	l.accs = nil
	l.vels = nil
	l.disps = nil

	if err := errors.Join(errA, errV, errD); err != nil {
		l.state = Failed
		l.lastErr = err
		monitoring.Logf("baseline: session %s failed: %v", l.sessionID, err)
		return
	}

	l.result = &Result{
		SessionID:   l.sessionID,
		CompletedAt: now,
		Samples:     collected,
		AccProfile:  accProfile,
		VelProfile:  velProfile,
		DispProfile: dispProfile,
		Thresholds: alarm.ThresholdSet{
			AccRMSMax:   dsp.AdaptiveThreshold(accProfile),
			VelPeakMax:  dsp.AdaptiveThreshold(velProfile),
			DispPeakMax: dsp.AdaptiveThreshold(dispProfile),
		},
	}
	l.state = Succeeded
	monitoring.Logf("baseline: session %s succeeded with %d samples", l.sessionID, collected)
}

// State returns the current session state.
func (l *Learner) State() SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Progress reports elapsed collection time and the configured duration.
func (l *Learner) Progress() (elapsed, total time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Collecting {
		return 0, l.duration
	}
	return time.Since(l.startedAt), l.duration
}

// Result returns the last completed session's outcome: the result on
// success, or the failure error. Both are nil when no session has finished.
func (l *Learner) Result() (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, l.lastErr
}
