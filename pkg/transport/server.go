package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/uplink-protocol/uplink-go/pkg/wire"
)

// ServerConfig configures an uplink server.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":9470").
	Addr string

	// TLS contains TLS settings. Nil selects plaintext TCP.
	TLS *TLSConfig

	// MaxFrameSize is the maximum frame payload size (default: 64KB).
	MaxFrameSize uint32

	// DropAfterFrames abruptly closes each connection after this many
	// inbound frames. Zero disables. Used to exercise reconnection.
	DropAfterFrames int

	// OnData is called with each application payload. Optional.
	OnData func(remote net.Addr, payload []byte)

	// Logger for operational messages. Optional.
	Logger *slog.Logger
}

// Server accepts uplink connections, answers heartbeats and delivers
// application payloads. It exists for the simulator binary and tests;
// the connection manager itself is client-only.
type Server struct {
	config  ServerConfig
	tlsConf *tls.Config
	logger  *slog.Logger

	listener net.Listener
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	conns   map[net.Conn]struct{}
}

// NewServer creates a new uplink server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = DefaultMaxFrameSize
	}

	var tlsConf *tls.Config
	if config.TLS != nil {
		var err error
		tlsConf, err = NewServerTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		config:  config,
		tlsConf: tlsConf,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// Start begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}
	if s.tlsConf != nil {
		listener = tls.NewListener(listener, s.tlsConf)
	}

	s.listener = listener
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	s.logger.Info("server listening", "addr", listener.Addr())
	return nil
}

// Stop closes the listener and every active connection, then waits for
// the handlers to finish. Handlers block in ReadFrame with no deadline,
// so closing their connections is what unblocks them.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	err := listener.Close()
	s.wg.Wait()
	return err
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// track registers a connection for teardown on Stop. Returns false if
// the server is already stopping and the connection should be dropped.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if !s.track(conn) {
		return
	}
	defer s.untrack(conn)

	remote := conn.RemoteAddr()
	s.logger.Info("client connected", "remote", remote)
	defer s.logger.Info("client disconnected", "remote", remote)

	framer := NewFramerWithMaxSize(conn, s.config.MaxFrameSize)

	frames := 0
	for {
		if ctx.Err() != nil {
			return
		}

		payload, err := framer.ReadFrame()
		if err != nil {
			return
		}

		frames++
		if s.config.DropAfterFrames > 0 && frames > s.config.DropAfterFrames {
			// Simulated failure: abrupt close, no Close message
			s.logger.Info("dropping connection", "remote", remote, "frames", frames)
			return
		}

		// Cheap dispatch on the type key; only frames that carry more
		// than their type are fully decoded.
		typ, err := wire.PeekType(payload)
		if err != nil {
			s.logger.Debug("undecodable frame", "remote", remote, "error", err)
			continue
		}

		switch typ {
		case wire.TypePing:
			msg, err := wire.Decode(payload)
			if err != nil {
				s.logger.Debug("malformed ping", "remote", remote, "error", err)
				continue
			}
			pong, err := wire.Encode(wire.NewPong(msg.Seq))
			if err != nil {
				return
			}
			if err := framer.WriteFrame(pong); err != nil {
				return
			}

		case wire.TypeClose:
			return

		case wire.TypeData:
			msg, err := wire.Decode(payload)
			if err != nil {
				s.logger.Debug("malformed data frame", "remote", remote, "error", err)
				continue
			}
			if s.config.OnData != nil {
				s.config.OnData(remote, msg.Payload)
			}
		}
	}
}
