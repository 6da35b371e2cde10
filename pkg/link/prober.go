package link

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/uplink-protocol/uplink-go/pkg/backoff"
	"github.com/uplink-protocol/uplink-go/pkg/log"
	"github.com/uplink-protocol/uplink-go/pkg/transport"
)

// Prober is the availability task. It runs cheap bounded-time probes
// against the endpoint whenever no connection exists, publishes the
// result through SharedState, then parks until the supervisor's
// connection cycle resolves.
//
// Probe failures are expected steady-state behavior while the server
// is down, so they log at debug level. Only the transition back to
// reachable is notable.
type Prober struct {
	state     *SharedState
	transport transport.Transport
	endpoint  string
	backoff   *backoff.Backoff
	logger    *slog.Logger
	events    log.Logger
}

// NewProber builds the availability task. The backoff instance is
// owned exclusively by this prober and never shared with the
// supervisor's connect retries.
func NewProber(state *SharedState, tr transport.Transport, endpoint string, bo *backoff.Backoff, logger *slog.Logger, events log.Logger) *Prober {
	if bo == nil {
		bo = backoff.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if events == nil {
		events = log.NoopLogger{}
	}
	return &Prober{
		state:     state,
		transport: tr,
		endpoint:  endpoint,
		backoff:   bo,
		logger:    logger,
		events:    events,
	}
}

// Run executes the probing loop until shutdown is requested. It is
// meant to be spawned as a goroutine by the manager.
func (p *Prober) Run() {
	p.logger.Debug("prober started", "endpoint", p.endpoint)
	defer p.logger.Debug("prober stopped")

	for {
		// Never probe while a connection is live.
		if !p.state.WaitNotConnected() {
			return
		}

		p.state.SetReachable(false)
		if !p.probeUntilReachable() {
			return
		}

		// Park until the supervisor either connects or gives up and
		// clears reachability to demand a fresh probing cycle.
		if !p.state.WaitProbeNeeded() {
			return
		}
	}
}

// probeUntilReachable retries the probe with exponential backoff until
// it succeeds. Returns false if shutdown interrupted the cycle.
func (p *Prober) probeUntilReachable() bool {
	for {
		if p.state.ShutdownRequested() {
			return false
		}

		err := p.transport.Probe(context.Background(), p.endpoint)
		if err == nil {
			p.logger.Info("endpoint reachable",
				"endpoint", p.endpoint,
				"failed_attempts", p.backoff.Attempts())
			p.logProbe(true, p.backoff.Attempts(), 0)
			p.backoff.Reset()
			p.state.SetReachable(true)
			return true
		}

		delay := p.backoff.Next()
		p.logger.Debug("probe failed",
			"endpoint", p.endpoint,
			"attempt", p.backoff.Attempts(),
			"retry_in", delay,
			"error", err)
		p.logProbe(false, p.backoff.Attempts(), delay)

		if !p.state.Sleep(delay) {
			return false
		}
	}
}

func (p *Prober) logProbe(success bool, attempt int, nextDelay time.Duration) {
	p.events.Log(log.Event{
		Timestamp: time.Now(),
		Endpoint:  p.endpoint,
		Category:  log.CategoryProbe,
		Probe: &log.ProbeEvent{
			Success:   success,
			Attempt:   attempt,
			NextDelay: nextDelay,
		},
	})
}
