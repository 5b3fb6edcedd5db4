package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerManager_OneShot(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	m.AddTimer("once", 10*time.Millisecond, 0, func() { calls.Add(1) })

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, m.Len())
}

func TestTimerManager_Recurring(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	m.AddTimer("sweep", 0, 10*time.Millisecond, func() { calls.Add(1) })

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestTimerManager_RemoveTimer(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var calls atomic.Int32
	id := m.AddTimer("never", 50*time.Millisecond, 0, func() { calls.Add(1) })
	m.RemoveTimer(id)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
