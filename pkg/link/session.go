package link

import (
	"fmt"
	"time"

	"github.com/uplink-protocol/uplink-go/pkg/transport"
	"github.com/uplink-protocol/uplink-go/pkg/wire"
)

// runSession drives a live connection until it dies or shutdown is
// requested. Each iteration services the connection, drains any queued
// inbound payloads, sends a heartbeat when the idle interval since the
// last send has elapsed, then sleeps one poll interval.
//
// The handle is released here, exactly once, no matter how the session
// ends. A graceful close notification goes out first, best-effort.
func (s *Supervisor) runSession(conn transport.Conn) (err error) {
	if conn == nil {
		panic("link: session loop entered without a connection handle")
	}
	connID := conn.ID()

	defer func() {
		reason := wire.CloseNormal
		switch {
		case s.state.ShutdownRequested():
			reason = wire.CloseShutdown
		case err != nil:
			reason = wire.CloseError
		}
		if conn.IsOpen() {
			if cerr := conn.SendClose(reason); cerr != nil {
				s.logger.Debug("close notification failed", "conn_id", connID, "error", cerr)
			}
		}
		if cerr := conn.Close(); cerr != nil {
			s.logger.Debug("connection close failed", "conn_id", connID, "error", cerr)
		}
	}()

	lastSend := time.Now()
	for conn.IsOpen() {
		if s.state.ShutdownRequested() {
			return nil
		}

		if serr := conn.Service(); serr != nil {
			return fmt.Errorf("service failed: %w", serr)
		}

		if rerr := s.drainInbound(conn, connID); rerr != nil {
			return rerr
		}

		if time.Since(lastSend) >= s.cfg.HeartbeatInterval {
			if herr := conn.SendHeartbeat(); herr != nil {
				return fmt.Errorf("heartbeat failed: %w", herr)
			}
			lastSend = time.Now()
		}

		if !s.state.Sleep(s.cfg.PollInterval) {
			return nil
		}
	}

	// The connection reported itself dead; Service holds the cause.
	if serr := conn.Service(); serr != nil {
		return serr
	}
	return nil
}

// drainInbound hands every queued payload to the application handler.
func (s *Supervisor) drainInbound(conn transport.Conn, connID string) error {
	for {
		payload, err := conn.Receive()
		if err != nil {
			return fmt.Errorf("receive failed: %w", err)
		}
		if payload == nil {
			return nil
		}

		if s.handler != nil {
			s.handler(connID, payload)
		} else {
			s.logger.Info("payload received",
				"conn_id", connID,
				"size", len(payload))
		}
	}
}
