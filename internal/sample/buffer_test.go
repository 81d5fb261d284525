package sample

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stamped(sec int) Sample {
	return Sample{Timestamp: time.Unix(int64(sec), 0), Vel: [3]float64{float64(sec), 0, 0}}
}

func TestPushAndSnapshotOrder(t *testing.T) {
	buf := NewBuffer(8)
	for i := 0; i < 5; i++ {
		buf.Push(stamped(i))
	}

	snap := buf.Snapshot()
	require.Len(t, snap, 5)
	for i, s := range snap {
		assert.Equal(t, time.Unix(int64(i), 0), s.Timestamp)
	}
}

func TestDropOldestAtCapacity(t *testing.T) {
	buf := NewBuffer(4)
	for i := 0; i < 10; i++ {
		buf.Push(stamped(i))
	}

	assert.Equal(t, 4, buf.Len())
	snap := buf.Snapshot()
	require.Len(t, snap, 4)
	// Only the four newest survive, oldest first.
	for i, s := range snap {
		assert.Equal(t, time.Unix(int64(6+i), 0), s.Timestamp)
	}
}

func TestLatest(t *testing.T) {
	buf := NewBuffer(3)

	_, ok := buf.Latest()
	assert.False(t, ok)

	buf.Push(stamped(1))
	got, ok := buf.Latest()
	require.True(t, ok)
	assert.Equal(t, time.Unix(1, 0), got.Timestamp)

	// Latest survives wraparound.
	for i := 2; i <= 7; i++ {
		buf.Push(stamped(i))
	}
	got, ok = buf.Latest()
	require.True(t, ok)
	assert.Equal(t, time.Unix(7, 0), got.Timestamp)
}

func TestSnapshotIsIsolated(t *testing.T) {
	buf := NewBuffer(4)
	buf.Push(stamped(1))
	snap := buf.Snapshot()

	buf.Push(stamped(2))
	snap[0].Vel[0] = 999

	fresh := buf.Snapshot()
	require.Len(t, fresh, 2)
	assert.Equal(t, 1.0, fresh[0].Vel[0])
}

func TestClear(t *testing.T) {
	buf := NewBuffer(4)
	for i := 0; i < 6; i++ {
		buf.Push(stamped(i))
	}
	buf.Clear()

	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Snapshot())
	_, ok := buf.Latest()
	assert.False(t, ok)
}

func TestDefaultCapacityFallback(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewBuffer(0).Cap())
	assert.Equal(t, DefaultCapacity, NewBuffer(-1).Cap())
}

func TestConcurrentReadersSingleWriter(t *testing.T) {
	buf := NewBuffer(64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			buf.Push(stamped(i))
		}
	}()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := buf.Snapshot()
				assert.LessOrEqual(t, len(snap), 64)
				buf.Latest()
				buf.Len()
			}
		}()
	}
	wg.Wait()
	<-done
}
