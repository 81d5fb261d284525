// Package sensor owns the serial transport and runs the acquisition loop:
// poll the sensor on a fixed cadence, retry failed cycles with backoff, and
// publish decoded samples into the shared buffer.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ezraeffect/vibewatch/internal/monitoring"
	"github.com/ezraeffect/vibewatch/internal/sample"
	"github.com/ezraeffect/vibewatch/internal/serialport"
	"github.com/ezraeffect/vibewatch/internal/wtvb"
)

// ErrResponseTimeout reports that no complete response arrived within the
// attempt's deadline.
var ErrResponseTimeout = errors.New("response timeout")

// Config tunes the acquisition loop.
type Config struct {
	// SlaveID is the Modbus address of the sensor.
	SlaveID byte
	// PollInterval is the target cycle period. 10ms gives the nominal
	// 100 Hz sampling rate.
	PollInterval time.Duration
	// ResponseTimeout bounds how long a single attempt waits for a complete
	// response frame.
	ResponseTimeout time.Duration
	// MaxAttempts is the number of tries per cycle before the cycle is
	// abandoned. Attempts after the first are preceded by exponential
	// backoff starting at RetryBackoff.
	MaxAttempts int
	// RetryBackoff is the delay before the second attempt; it doubles for
	// each further attempt (50ms, 100ms, 200ms by default).
	RetryBackoff time.Duration
	// DisconnectAfter is the receive-timeout window: with no valid sample
	// for this long the reader reports a disconnected condition.
	DisconnectAfter time.Duration
}

// withDefaults fills zero fields with the nominal operating values.
func (c Config) withDefaults() Config {
	if c.SlaveID == 0 {
		c.SlaveID = wtvb.DefaultSlaveID
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 200 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	if c.DisconnectAfter <= 0 {
		c.DisconnectAfter = 5 * time.Second
	}
	return c
}

// Stats are cumulative acquisition counters.
type Stats struct {
	TotalCycles  int64
	FailedCycles int64
}

// SuccessRate returns the fraction of cycles that produced a sample, in
// percent.
func (s Stats) SuccessRate() float64 {
	if s.TotalCycles == 0 {
		return 0
	}
	return float64(s.TotalCycles-s.FailedCycles) / float64(s.TotalCycles) * 100
}

// Reader polls the sensor and publishes samples. It is the only goroutine
// that touches the serial port.
type Reader struct {
	port serialport.Porter
	buf  *sample.Buffer
	cfg  Config

	mu         sync.Mutex
	stats      Stats
	lastSample time.Time
	lastErr    error
}

// NewReader creates a Reader publishing into buf. Zero Config fields take
// the nominal defaults.
func NewReader(port serialport.Porter, buf *sample.Buffer, cfg Config) *Reader {
	return &Reader{port: port, buf: buf, cfg: cfg.withDefaults()}
}

// Run polls until ctx is cancelled. A failed cycle never stops the loop;
// persistent failure is observable through Connected. Closing the port makes
// in-flight reads fail fast, so cancellation does not hang on I/O.
func (r *Reader) Run(ctx context.Context) error {
	if tp, ok := r.port.(serialport.TimeoutPorter); ok {
		// Bound individual reads well below the attempt deadline so the
		// accumulation loop can notice cancellation.
		if err := tp.SetReadTimeout(20 * time.Millisecond); err != nil {
			return fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s, err := r.pollCycle(ctx)
		if ctx.Err() != nil {
			// Shutdown interrupted the cycle; not a cycle failure, and the
			// last real error must survive for diagnostics.
			return ctx.Err()
		}
		r.mu.Lock()
		r.stats.TotalCycles++
		if err != nil {
			r.stats.FailedCycles++
			r.lastErr = err
			failed := r.stats.FailedCycles
			r.mu.Unlock()
			if failed%100 == 1 {
				monitoring.Logf("sensor: poll cycle failed (%d so far): %v", failed, err)
			}
			continue
		}
		r.lastSample = s.Timestamp
		r.lastErr = nil
		r.mu.Unlock()
		r.buf.Push(s)
	}
}

// pollCycle issues one block read with bounded retries and decodes the
// result.
func (r *Reader) pollCycle(ctx context.Context) (sample.Sample, error) {
	var lastErr error
	backoff := r.cfg.RetryBackoff
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return sample.Sample{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		regs, err := r.readBlock(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return wtvb.DecodeSample(regs, time.Now())
	}
	return sample.Sample{}, lastErr
}

// readBlock performs one request/response exchange for the full register
// span.
func (r *Reader) readBlock(ctx context.Context) ([]uint16, error) {
	req := wtvb.BuildReadRequest(r.cfg.SlaveID, wtvb.PollStart, wtvb.PollCount)
	if _, err := r.port.Write(req); err != nil {
		return nil, fmt.Errorf("transport write failed: %w", err)
	}

	frame := make([]byte, wtvb.ReadResponseLen(wtvb.PollCount))
	filled := 0
	deadline := time.Now().Add(r.cfg.ResponseTimeout)
	for filled < len(frame) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if time.Now().After(deadline) {
			return nil, ErrResponseTimeout
		}
		n, err := r.port.Read(frame[filled:])
		if err != nil {
			return nil, fmt.Errorf("transport read failed: %w", err)
		}
		filled += n
	}
	return wtvb.ParseReadResponse(frame, r.cfg.SlaveID, wtvb.PollCount)
}

// Connected reports whether a valid sample arrived within the receive-timeout
// window. It distinguishes a persistent outage from a single failed cycle.
func (r *Reader) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastSample.IsZero() {
		return false
	}
	return time.Since(r.lastSample) <= r.cfg.DisconnectAfter
}

// LastSampleAt returns the timestamp of the newest decoded sample.
func (r *Reader) LastSampleAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSample
}

// Stats returns cumulative cycle counters.
func (r *Reader) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// LastError returns the most recent cycle error, or nil after a success.
func (r *Reader) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
