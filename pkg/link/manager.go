package link

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uplink-protocol/uplink-go/pkg/backoff"
	"github.com/uplink-protocol/uplink-go/pkg/log"
	"github.com/uplink-protocol/uplink-go/pkg/transport"
)

// Defaults applied by NewManager for zero-valued Config fields.
const (
	DefaultMaxConnectAttempts = 5
	DefaultConnectTimeout     = 10 * time.Second
	DefaultHeartbeatInterval  = 10 * time.Second
	DefaultPollInterval       = 100 * time.Millisecond
	DefaultDrainCooldown      = 1 * time.Second
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("manager already started")

// Config configures a Manager.
type Config struct {
	// Endpoint is the remote address as "host:port". Required.
	Endpoint string

	// Transport opens probes and connections. Required.
	Transport transport.Transport

	// ProbeBackoff paces probe retries. Zero value uses the defaults
	// (2s floor, 30s ceiling, doubling).
	ProbeBackoff backoff.Config

	// ConnectBackoff paces connect retries within one connecting cycle.
	ConnectBackoff backoff.Config

	// MaxConnectAttempts bounds one connecting cycle. Default 5.
	MaxConnectAttempts int

	// ConnectTimeout bounds a single connect attempt. Default 10s.
	ConnectTimeout time.Duration

	// HeartbeatInterval is the idle time before a heartbeat. Default 10s.
	HeartbeatInterval time.Duration

	// PollInterval paces the session loop. Default 100ms.
	PollInterval time.Duration

	// DrainCooldown is the pause after a session ends. Default 1s.
	DrainCooldown time.Duration

	// OnMessage receives inbound payloads. When nil, payloads are
	// logged and dropped.
	OnMessage MessageHandler

	// Logger receives operational logs. When nil, logs are discarded.
	Logger *slog.Logger

	// Events receives the structured lifecycle event stream.
	Events log.Logger
}

// Manager wires the prober and supervisor to a shared state record and
// runs them as a pair. Construct with NewManager, run with Start, stop
// with RequestShutdown.
type Manager struct {
	cfg        Config
	state      *SharedState
	prober     *Prober
	supervisor *Supervisor
	logger     *slog.Logger
	started    atomic.Bool
}

// NewManager validates the configuration and builds the task pair.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	events := cfg.Events
	if events == nil {
		events = log.NoopLogger{}
	}

	state := NewSharedState()
	m := &Manager{
		cfg:    cfg,
		state:  state,
		logger: logger,
	}
	m.prober = NewProber(state, cfg.Transport, cfg.Endpoint,
		backoff.NewWithConfig(cfg.ProbeBackoff), logger, events)
	m.supervisor = NewSupervisor(state, cfg.Transport, cfg.Endpoint,
		backoff.NewWithConfig(cfg.ConnectBackoff),
		SupervisorConfig{
			MaxConnectAttempts: cfg.MaxConnectAttempts,
			ConnectTimeout:     cfg.ConnectTimeout,
			HeartbeatInterval:  cfg.HeartbeatInterval,
			PollInterval:       cfg.PollInterval,
			DrainCooldown:      cfg.DrainCooldown,
		},
		logger, events, cfg.OnMessage)
	return m, nil
}

// Start spawns the prober and supervisor and blocks until both have
// exited after RequestShutdown. It may be called once.
func (m *Manager) Start() error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	m.logger.Info("link manager starting", "endpoint", m.cfg.Endpoint)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.prober.Run()
	}()
	go func() {
		defer wg.Done()
		m.supervisor.Run()
	}()
	wg.Wait()

	m.logger.Info("link manager stopped", "endpoint", m.cfg.Endpoint)
	return nil
}

// RequestShutdown asks both tasks to exit. Idempotent and safe to call
// from any goroutine, including signal handlers and the message handler.
func (m *Manager) RequestShutdown() {
	m.state.RequestShutdown()
}

// Phase returns the supervisor's current phase.
func (m *Manager) Phase() Phase {
	return m.supervisor.Phase()
}

// Connected reports whether a session is currently live.
func (m *Manager) Connected() bool {
	return m.state.Connected()
}

// Reachable reports the last published probe result.
func (m *Manager) Reachable() bool {
	return m.state.Reachable()
}
