package link

import (
	"sync"
	"time"
)

// SharedState is the only cross-task mutable state: three booleans
// guarded by one mutex, with two condition variables the prober and
// supervisor wait on. It is constructed once and injected into both
// task entry points - never a package-level singleton - so tests can
// build isolated instances.
//
// The connection handle itself is never stored here; it lives entirely
// inside the supervisor task.
type SharedState struct {
	mu sync.Mutex

	// reachableCond is signaled when serverReachable transitions or
	// shutdown is requested.
	reachableCond *sync.Cond

	// connectedCond is signaled when clientConnected transitions or
	// shutdown is requested.
	connectedCond *sync.Cond

	serverReachable bool
	clientConnected bool
	shutdown        bool

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewSharedState creates a fresh state record.
func NewSharedState() *SharedState {
	s := &SharedState{
		shutdownCh: make(chan struct{}),
	}
	s.reachableCond = sync.NewCond(&s.mu)
	s.connectedCond = sync.NewCond(&s.mu)
	return s
}

// SetReachable publishes a probe result. Clearing reachability wakes
// both condition queues: the supervisor may be parked waiting for a
// positive signal, and the prober may be parked between probing cycles
// waiting for the connection cycle to resolve.
func (s *SharedState) SetReachable(reachable bool) {
	s.mu.Lock()
	changed := s.serverReachable != reachable
	s.serverReachable = reachable
	s.mu.Unlock()

	if !changed {
		return
	}
	s.reachableCond.Broadcast()
	if !reachable {
		s.connectedCond.Broadcast()
	}
}

// SetConnected publishes whether the supervisor holds a live connection.
func (s *SharedState) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.clientConnected != connected
	s.clientConnected = connected
	s.mu.Unlock()

	if changed {
		s.connectedCond.Broadcast()
	}
}

// Reachable returns the last published probe result.
func (s *SharedState) Reachable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverReachable
}

// Connected returns true while the supervisor holds a live connection.
func (s *SharedState) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientConnected
}

// RequestShutdown asks both tasks to exit. It is idempotent: the flag
// is monotonic and a second call is a no-op. Every waiter and every
// interruptible sleep wakes.
func (s *SharedState) RequestShutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
	s.reachableCond.Broadcast()
	s.connectedCond.Broadcast()
}

// ShutdownRequested returns true once RequestShutdown has been called.
func (s *SharedState) ShutdownRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Done returns a channel closed when shutdown is requested.
func (s *SharedState) Done() <-chan struct{} {
	return s.shutdownCh
}

// WaitReachable blocks until the endpoint is reachable.
// Returns false if shutdown was requested instead.
func (s *SharedState) WaitReachable() bool {
	return s.wait(s.reachableCond, func() bool {
		return s.serverReachable
	})
}

// WaitNotConnected blocks while the supervisor holds a connection.
// Returns false if shutdown was requested instead.
func (s *SharedState) WaitNotConnected() bool {
	return s.wait(s.connectedCond, func() bool {
		return !s.clientConnected
	})
}

// WaitProbeNeeded blocks after a successful probe until the connection
// cycle resolves: either the supervisor connected, or it gave up and
// cleared reachability to demand a fresh probe. Without the second arm
// the prober would sleep forever while the supervisor waits for a
// reachability signal that can no longer come.
// Returns false if shutdown was requested instead.
func (s *SharedState) WaitProbeNeeded() bool {
	return s.wait(s.connectedCond, func() bool {
		return s.clientConnected || !s.serverReachable
	})
}

// Sleep pauses for the given duration, waking early on shutdown.
// Returns false if shutdown interrupted (or preceded) the sleep.
func (s *SharedState) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.ShutdownRequested()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return !s.ShutdownRequested()
	case <-s.shutdownCh:
		return false
	}
}

// wait loops on cond until the predicate holds or shutdown is
// requested, rechecking after every wakeup to guard against spurious
// wakes. The predicate runs with the state lock held.
func (s *SharedState) wait(cond *sync.Cond, pred func() bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !pred() && !s.shutdown {
		cond.Wait()
	}
	return !s.shutdown
}
