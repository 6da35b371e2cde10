package link

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uplink-protocol/uplink-go/pkg/backoff"
	"github.com/uplink-protocol/uplink-go/pkg/wire"
)

var errUnreachable = errors.New("connection refused")

// testConfig returns a manager configuration with timing compressed
// far below the production defaults so the scenarios run quickly.
func testConfig(ft *fakeTransport) Config {
	return Config{
		Endpoint:           "server.test:9470",
		Transport:          ft,
		ProbeBackoff:       backoff.Config{Floor: 5 * time.Millisecond, Ceiling: 20 * time.Millisecond},
		ConnectBackoff:     backoff.Config{Floor: 5 * time.Millisecond, Ceiling: 20 * time.Millisecond},
		MaxConnectAttempts: 5,
		ConnectTimeout:     100 * time.Millisecond,
		HeartbeatInterval:  time.Second,
		PollInterval:       2 * time.Millisecond,
		DrainCooldown:      5 * time.Millisecond,
	}
}

// startManager runs the manager in the background and returns the
// channel its Start result lands on. The manager is shut down and
// awaited when the test finishes.
func startManager(t *testing.T, cfg Config) (*Manager, <-chan error) {
	t.Helper()

	mgr, err := NewManager(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		done <- mgr.Start()
		close(stopped)
	}()

	t.Cleanup(func() {
		mgr.RequestShutdown()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Error("manager did not stop after shutdown request")
		}
	})
	return mgr, done
}

func awaitStop(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop after shutdown request")
	}
}

func TestManagerConnectsAndShutsDown(t *testing.T) {
	conn := newFakeConn("c1", -1)
	ft := &fakeTransport{connectDefault: connectResult{conn: conn}}

	mgr, done := startManager(t, testConfig(ft))

	require.Eventually(t, mgr.Connected, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, PhaseConnected, mgr.Phase())
	assert.True(t, mgr.Reachable())

	mgr.RequestShutdown()
	awaitStop(t, done)

	assert.Equal(t, PhaseShuttingDown, mgr.Phase())
	assert.Equal(t, 1, conn.closeCount())
	assert.Equal(t, []uint8{wire.CloseShutdown}, conn.sentCloseReasons())
	assert.False(t, mgr.Connected())
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	// The first connection dies on its fifth service call; the
	// supervisor must drain and establish a replacement.
	first := newFakeConn("c1", 5)
	second := newFakeConn("c2", -1)
	ft := &fakeTransport{
		connectScript:  []connectResult{{conn: first}, {conn: second}},
		connectDefault: connectResult{err: errUnreachable},
	}

	mgr, done := startManager(t, testConfig(ft))

	require.Eventually(t, func() bool {
		return first.closeCount() == 1 && mgr.Connected() && ft.connectCount() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Exactly one release per established connection.
	assert.Equal(t, 1, first.closeCount())

	mgr.RequestShutdown()
	awaitStop(t, done)
	assert.Equal(t, 1, second.closeCount())
}

func TestProbeBackoffLadder(t *testing.T) {
	conn := newFakeConn("c1", -1)
	ft := &fakeTransport{
		probeScript:    []error{errUnreachable, errUnreachable, nil},
		connectDefault: connectResult{conn: conn},
	}

	cfg := testConfig(ft)
	cfg.ProbeBackoff = backoff.Config{Floor: 20 * time.Millisecond, Ceiling: 200 * time.Millisecond}

	start := time.Now()
	mgr, _ := startManager(t, cfg)

	require.Eventually(t, mgr.Reachable, 2*time.Second, 5*time.Millisecond)

	// Two failures first: the third probe cannot land before 20ms+40ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, 3, ft.probeCount())
}

func TestConnectExhaustionTriggersReprobe(t *testing.T) {
	// Probes always succeed but connects never do: the supervisor must
	// burn its attempt budget, demand a fresh probing cycle and go
	// around again instead of deadlocking.
	ft := &fakeTransport{connectDefault: connectResult{err: errUnreachable}}

	cfg := testConfig(ft)
	cfg.MaxConnectAttempts = 2

	mgr, done := startManager(t, cfg)

	require.Eventually(t, func() bool {
		return ft.connectCount() >= 4 && ft.probeCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	mgr.RequestShutdown()
	awaitStop(t, done)
}

func TestHeartbeatTiming(t *testing.T) {
	conn := newFakeConn("c1", -1)
	ft := &fakeTransport{connectDefault: connectResult{conn: conn}}

	cfg := testConfig(ft)
	cfg.HeartbeatInterval = 300 * time.Millisecond

	mgr, done := startManager(t, cfg)
	require.Eventually(t, mgr.Connected, 2*time.Second, 5*time.Millisecond)

	// Nothing before the idle interval elapses.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, conn.heartbeatCount())

	// Exactly one by the midpoint of the second interval.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, conn.heartbeatCount())

	mgr.RequestShutdown()
	awaitStop(t, done)
}

func TestInboundPayloadsDelivered(t *testing.T) {
	conn := newFakeConn("c1", -1)
	conn.inbound = [][]byte{[]byte("alpha"), []byte("beta")}
	ft := &fakeTransport{connectDefault: connectResult{conn: conn}}

	var mu sync.Mutex
	var got []string
	cfg := testConfig(ft)
	cfg.OnMessage = func(connID string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, connID+":"+string(payload))
	}

	startManager(t, cfg)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"c1:alpha", "c1:beta"}, got)
}

func TestServiceErrorDrainsWithErrorReason(t *testing.T) {
	broken := newFakeConn("c1", -1)
	broken.serviceErr = errors.New("codec desync")
	ft := &fakeTransport{
		connectScript:  []connectResult{{conn: broken}},
		connectDefault: connectResult{err: errUnreachable},
	}

	startManager(t, testConfig(ft))

	require.Eventually(t, func() bool {
		return broken.closeCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []uint8{wire.CloseError}, broken.sentCloseReasons())
}

func TestShutdownWhileUnreachable(t *testing.T) {
	ft := &fakeTransport{probeDefault: errUnreachable}

	mgr, done := startManager(t, testConfig(ft))

	time.Sleep(30 * time.Millisecond)
	mgr.RequestShutdown()
	awaitStop(t, done)

	assert.Equal(t, 0, ft.connectCount())
	assert.Equal(t, PhaseShuttingDown, mgr.Phase())
}

func TestNoBusyLoopWhileUnreachable(t *testing.T) {
	ft := &fakeTransport{probeDefault: errUnreachable}

	cfg := testConfig(ft)
	cfg.ProbeBackoff = backoff.Config{Floor: 30 * time.Millisecond, Ceiling: 30 * time.Millisecond}

	startManager(t, cfg)

	time.Sleep(200 * time.Millisecond)
	probes := ft.probeCount()
	assert.GreaterOrEqual(t, probes, 2, "prober must keep retrying")
	assert.LessOrEqual(t, probes, 9, "prober must pace retries, not spin")
}

func TestSessionPanicsWithoutHandle(t *testing.T) {
	sup := NewSupervisor(NewSharedState(), &fakeTransport{}, "server.test:9470",
		nil, SupervisorConfig{}, nil, nil, nil)

	require.Panics(t, func() {
		_ = sup.runSession(nil)
	})
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Config{Transport: &fakeTransport{}})
	assert.Error(t, err)

	_, err = NewManager(Config{Endpoint: "server.test:9470"})
	assert.Error(t, err)
}

func TestStartTwice(t *testing.T) {
	ft := &fakeTransport{probeDefault: errUnreachable}
	mgr, _ := startManager(t, testConfig(ft))

	require.Eventually(t, func() bool {
		return ft.probeCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, mgr.Start(), ErrAlreadyStarted)
}
