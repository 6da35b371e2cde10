package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedStateFlags(t *testing.T) {
	s := NewSharedState()

	assert.False(t, s.Reachable())
	assert.False(t, s.Connected())
	assert.False(t, s.ShutdownRequested())

	s.SetReachable(true)
	assert.True(t, s.Reachable())

	s.SetConnected(true)
	assert.True(t, s.Connected())
}

func TestWaitReachableWakes(t *testing.T) {
	s := NewSharedState()

	done := make(chan bool, 1)
	go func() {
		done <- s.WaitReachable()
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("waiter returned before reachability was published")
	default:
	}

	s.SetReachable(true)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter did not wake on reachability")
	}
}

func TestWaitProbeNeededWakesOnReachabilityLoss(t *testing.T) {
	s := NewSharedState()
	s.SetReachable(true)

	done := make(chan bool, 1)
	go func() {
		done <- s.WaitProbeNeeded()
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("waiter returned while reachable and disconnected")
	default:
	}

	// The supervisor exhausted its connect budget and demands a
	// fresh probing cycle.
	s.SetReachable(false)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter did not wake when reachability was cleared")
	}
}

func TestWaitProbeNeededWakesOnConnect(t *testing.T) {
	s := NewSharedState()
	s.SetReachable(true)

	done := make(chan bool, 1)
	go func() {
		done <- s.WaitProbeNeeded()
	}()

	s.SetConnected(true)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter did not wake when the connection was established")
	}
}

func TestShutdownWakesAllWaiters(t *testing.T) {
	s := NewSharedState()
	s.SetConnected(true)

	results := make(chan bool, 3)
	go func() { results <- s.WaitReachable() }()
	go func() { results <- s.WaitNotConnected() }()
	go func() { results <- s.WaitProbeNeeded() }()

	time.Sleep(20 * time.Millisecond)
	s.RequestShutdown()

	for i := 0; i < 3; i++ {
		select {
		case ok := <-results:
			assert.False(t, ok, "waiters must report shutdown")
		case <-time.After(time.Second):
			t.Fatal("waiter did not wake on shutdown")
		}
	}
}

func TestRequestShutdownIsIdempotent(t *testing.T) {
	s := NewSharedState()

	s.RequestShutdown()
	require.NotPanics(t, s.RequestShutdown)
	assert.True(t, s.ShutdownRequested())

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSleepInterruptedByShutdown(t *testing.T) {
	s := NewSharedState()

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.RequestShutdown()
	}()

	start := time.Now()
	ok := s.Sleep(5 * time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepCompletes(t *testing.T) {
	s := NewSharedState()
	assert.True(t, s.Sleep(time.Millisecond))
	assert.True(t, s.Sleep(0))
}
