package link

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/uplink-protocol/uplink-go/pkg/backoff"
	"github.com/uplink-protocol/uplink-go/pkg/log"
	"github.com/uplink-protocol/uplink-go/pkg/transport"
)

// Phase identifies where the supervisor is in its lifecycle.
type Phase uint8

const (
	// PhaseWaitingForReachability waits for a positive probe result.
	PhaseWaitingForReachability Phase = iota
	// PhaseConnecting runs a bounded cycle of connect attempts.
	PhaseConnecting
	// PhaseConnected drives the session loop over a live connection.
	PhaseConnected
	// PhaseDraining is the fixed cooldown after a session ends.
	PhaseDraining
	// PhaseShuttingDown is terminal.
	PhaseShuttingDown
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseWaitingForReachability:
		return "WAITING_FOR_REACHABILITY"
	case PhaseConnecting:
		return "CONNECTING"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseDraining:
		return "DRAINING"
	case PhaseShuttingDown:
		return "SHUTTING_DOWN"
	default:
		return "UNKNOWN"
	}
}

// MessageHandler receives application payloads from the session loop.
// It runs on the supervisor goroutine; long work should be handed off.
type MessageHandler func(connectionID string, payload []byte)

// SupervisorConfig tunes the connection supervisor.
type SupervisorConfig struct {
	// MaxConnectAttempts bounds one connecting cycle before the
	// supervisor gives up and demands a fresh probe.
	MaxConnectAttempts int

	// ConnectTimeout bounds a single connect attempt.
	ConnectTimeout time.Duration

	// HeartbeatInterval is the idle time after the last send before a
	// heartbeat goes out.
	HeartbeatInterval time.Duration

	// PollInterval is the session loop's pacing sleep.
	PollInterval time.Duration

	// DrainCooldown is the fixed pause after a session ends, before the
	// supervisor waits for reachability again.
	DrainCooldown time.Duration
}

// Supervisor owns the connection lifecycle: it waits for the prober's
// reachability signal, runs a bounded connect cycle, drives the session
// loop while the connection is healthy, then drains and starts over.
//
// The connection handle is held only on the supervisor's own stack,
// for exactly the duration of one session.
type Supervisor struct {
	state     *SharedState
	transport transport.Transport
	endpoint  string
	backoff   *backoff.Backoff
	cfg       SupervisorConfig
	logger    *slog.Logger
	events    log.Logger
	handler   MessageHandler

	mu    sync.Mutex
	phase Phase
}

// NewSupervisor builds the connection supervisor. The backoff instance
// paces connect retries only; the prober keeps its own.
func NewSupervisor(state *SharedState, tr transport.Transport, endpoint string, bo *backoff.Backoff, cfg SupervisorConfig, logger *slog.Logger, events log.Logger, handler MessageHandler) *Supervisor {
	if bo == nil {
		bo = backoff.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if events == nil {
		events = log.NoopLogger{}
	}
	s := &Supervisor{
		state:     state,
		transport: tr,
		endpoint:  endpoint,
		backoff:   bo,
		cfg:       cfg,
		logger:    logger,
		events:    events,
		handler:   handler,
	}
	if s.cfg.MaxConnectAttempts <= 0 {
		s.cfg.MaxConnectAttempts = DefaultMaxConnectAttempts
	}
	if s.cfg.ConnectTimeout <= 0 {
		s.cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if s.cfg.HeartbeatInterval <= 0 {
		s.cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if s.cfg.PollInterval <= 0 {
		s.cfg.PollInterval = DefaultPollInterval
	}
	if s.cfg.DrainCooldown <= 0 {
		s.cfg.DrainCooldown = DefaultDrainCooldown
	}
	return s
}

// Phase returns the supervisor's current phase.
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Supervisor) setPhase(next Phase, reason string) {
	s.mu.Lock()
	prev := s.phase
	s.phase = next
	s.mu.Unlock()

	if prev == next {
		return
	}
	s.logger.Debug("phase transition",
		"from", prev,
		"to", next,
		"reason", reason)
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		Endpoint:  s.endpoint,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldPhase: prev.String(),
			NewPhase: next.String(),
			Reason:   reason,
		},
	})
}

// Run executes the supervisor loop until shutdown is requested. It is
// meant to be spawned as a goroutine by the manager.
func (s *Supervisor) Run() {
	s.logger.Debug("supervisor started", "endpoint", s.endpoint)
	defer s.logger.Debug("supervisor stopped")
	defer s.setPhase(PhaseShuttingDown, "shutdown requested")

	for {
		s.setPhase(PhaseWaitingForReachability, "")
		if !s.state.WaitReachable() {
			return
		}

		s.setPhase(PhaseConnecting, "endpoint reachable")
		conn, ok := s.connect()
		if !ok {
			return
		}
		if conn == nil {
			// All attempts exhausted. Demand a fresh probing cycle
			// before trying again.
			s.logger.Warn("connect attempts exhausted, requesting re-probe",
				"endpoint", s.endpoint,
				"attempts", s.cfg.MaxConnectAttempts)
			s.state.SetReachable(false)
			continue
		}

		s.setPhase(PhaseConnected, "connection established")
		s.state.SetConnected(true)

		err := s.runSession(conn)
		reason := "connection closed"
		if err != nil {
			reason = err.Error()
			s.logger.Warn("session ended", "conn_id", conn.ID(), "error", err)
		} else {
			s.logger.Info("session ended", "conn_id", conn.ID())
		}

		s.setPhase(PhaseDraining, reason)
		s.state.SetConnected(false)
		if !s.state.Sleep(s.cfg.DrainCooldown) {
			return
		}
	}
}

// connect runs one bounded cycle of connect attempts with backoff.
// Returns (nil, false) on shutdown, (nil, true) when all attempts were
// used up, and a live handle otherwise. The cycle runs to its bound
// even if reachability is lost mid-cycle; the attempts are already
// budgeted and a stale positive probe resolves itself either way.
func (s *Supervisor) connect() (transport.Conn, bool) {
	for attempt := 1; attempt <= s.cfg.MaxConnectAttempts; attempt++ {
		if s.state.ShutdownRequested() {
			return nil, false
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
		conn, err := s.transport.Connect(ctx, s.endpoint)
		cancel()

		if err == nil {
			s.logger.Info("connected",
				"endpoint", s.endpoint,
				"conn_id", conn.ID(),
				"remote", conn.RemoteAddr(),
				"attempt", attempt)
			s.backoff.Reset()
			return conn, true
		}

		s.logger.Warn("connect attempt failed",
			"endpoint", s.endpoint,
			"attempt", attempt,
			"max_attempts", s.cfg.MaxConnectAttempts,
			"error", err)
		s.events.Log(log.Event{
			Timestamp: time.Now(),
			Endpoint:  s.endpoint,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Message:  err.Error(),
				Context:  "connect",
				Attempts: attempt,
			},
		})

		if attempt == s.cfg.MaxConnectAttempts {
			break
		}
		if !s.state.Sleep(s.backoff.Next()) {
			return nil, false
		}
	}
	return nil, true
}
