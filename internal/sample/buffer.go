package sample

import "sync"

// DefaultCapacity holds roughly 51 seconds of data at the 100 Hz target
// sampling rate.
const DefaultCapacity = 5120

// Buffer is a fixed-capacity ring buffer with single-writer/multiple-reader
// discipline. The writer appends in O(1), overwriting the oldest entry at
// capacity. Readers take a full copy under one lock acquisition and never
// touch the live storage afterwards.
type Buffer struct {
	mu   sync.Mutex
	data []Sample
	pos  int
	full bool
}

// NewBuffer creates a Buffer with the given capacity. Non-positive
// capacities fall back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest entry when full.
func (b *Buffer) Push(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[b.pos] = s
	b.pos++
	if b.pos == len(b.data) {
		b.pos = 0
		b.full = true
	}
}

// Snapshot returns a copy of the buffer contents in insertion order. The
// returned slice is owned by the caller.
func (b *Buffer) Snapshot() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Sample, b.lenLocked())
	if b.full {
		n := copy(out, b.data[b.pos:])
		copy(out[n:], b.data[:b.pos])
	} else {
		copy(out, b.data[:b.pos])
	}
	return out
}

// Latest returns the most recently pushed sample, if any.
func (b *Buffer) Latest() (Sample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos == 0 {
		if !b.full {
			return Sample{}, false
		}
		return b.data[len(b.data)-1], true
	}
	return b.data[b.pos-1], true
}

// Len returns the number of samples currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Clear discards all buffered samples.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = 0
	b.full = false
}

func (b *Buffer) lenLocked() int {
	if b.full {
		return len(b.data)
	}
	return b.pos
}
