package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by mock operations after Close.
var ErrPortClosed = errors.New("serial port closed")

// Responder computes the bytes a MockPort returns for a written request.
// Returning nil simulates a device that stays silent (read timeout).
type Responder func(request []byte) []byte

// MockPort implements TimeoutPorter with scriptable behaviour. Reads serve
// either queued canned responses or the output of a Responder applied to the
// most recent write. An empty mock behaves like a silent line: Read returns
// (0, nil) after the configured read timeout, matching real port semantics.
type MockPort struct {
	mu sync.Mutex

	pending  bytes.Buffer // bytes waiting to be read
	written  bytes.Buffer // everything written to the port
	respond  Responder
	readErr  error
	writeErr error
	closed   bool
	timeout  time.Duration
}

// NewMockPort creates an idle MockPort.
func NewMockPort() *MockPort {
	return &MockPort{timeout: 5 * time.Millisecond}
}

// NewResponderPort creates a MockPort that answers every write through fn.
func NewResponderPort(fn Responder) *MockPort {
	p := NewMockPort()
	p.respond = fn
	return p
}

// QueueRead schedules b to be returned by subsequent Read calls.
func (p *MockPort) QueueRead(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Write(b)
}

// FailReads makes all subsequent reads return err.
func (p *MockPort) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// FailWrites makes all subsequent writes return err.
func (p *MockPort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Written returns a copy of all bytes written so far.
func (p *MockPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	if p.pending.Len() > 0 {
		n, _ := p.pending.Read(buf)
		p.mu.Unlock()
		return n, nil
	}
	timeout := p.timeout
	p.mu.Unlock()

	// Nothing buffered: emulate a read timing out on a quiet line.
	time.Sleep(timeout)
	return 0, nil
}

func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written.Write(b)
	if p.respond != nil {
		if reply := p.respond(append([]byte(nil), b...)); reply != nil {
			p.pending.Write(reply)
		}
	}
	return len(b), nil
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SetReadTimeout sets how long an empty Read blocks before returning (0, nil).
func (p *MockPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	p.timeout = timeout
	return nil
}
