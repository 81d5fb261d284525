// Package display emits the line-framed status messages consumed by the
// downstream LCD/LED firmware.
package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/ezraeffect/vibewatch/internal/alarm"
)

// Emitter writes `<V:<float>,S:<int>>\n` lines. The firmware treats the
// absence of a new line for 5 seconds as disconnection, so the analysis loop
// must call Emit at least that often.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter creates an Emitter writing to w (typically a second serial
// port; io.Discard when no display is attached).
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes one status line. velocity is the synthesized display value in
// mm/s; on Disconnected callers pass 0 so the panel shows a neutral reading.
func (e *Emitter) Emit(velocity float64, state alarm.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.w, "<V:%.2f,S:%d>\n", velocity, state.StatusCode()); err != nil {
		return fmt.Errorf("failed to write display frame: %w", err)
	}
	return nil
}
