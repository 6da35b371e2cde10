package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/uplink-protocol/uplink-go/pkg/log"
)

// Config configures a TCP transport.
type Config struct {
	// TLS contains TLS settings. Nil selects plaintext TCP.
	TLS *TLSConfig

	// ConnectTimeout bounds one connect attempt (default: 10s).
	ConnectTimeout time.Duration

	// ProbeTimeout bounds one reachability test (default: 3s).
	ProbeTimeout time.Duration

	// MaxFrameSize is the maximum frame payload size (default: 64KB).
	MaxFrameSize uint32

	// ReceiveBuffer is the inbound payload queue depth (default: 64).
	ReceiveBuffer int

	// Logger receives frame and control events. Optional.
	Logger log.Logger
}

// TCP connects to uplink endpoints over TCP, optionally with TLS 1.3.
type TCP struct {
	config  Config
	tlsConf *tls.Config
}

// NewTCP creates a TCP transport.
func NewTCP(config Config) (*TCP, error) {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 3 * time.Second
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = DefaultMaxFrameSize
	}
	if config.ReceiveBuffer <= 0 {
		config.ReceiveBuffer = 64
	}

	var tlsConf *tls.Config
	if config.TLS != nil {
		var err error
		tlsConf, err = NewClientTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	return &TCP{
		config:  config,
		tlsConf: tlsConf,
	}, nil
}

// Probe tests whether the endpoint would currently accept a connection.
// It dials and immediately closes; no handshake is performed, so a probe
// is cheap for both sides.
func (t *TCP) Probe(ctx context.Context, endpoint string) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.ProbeTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return fmt.Errorf("probe dial failed: %w", err)
	}
	return conn.Close()
}

// Connect establishes a connection to the endpoint.
func (t *TCP) Connect(ctx context.Context, endpoint string) (Conn, error) {
	// Apply timeout from config if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if t.tlsConf != nil {
		tlsConn := tls.Client(conn, t.tlsConf)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		if err := VerifyConnection(tlsConn.ConnectionState()); err != nil {
			tlsConn.Close()
			return nil, fmt.Errorf("connection verification failed: %w", err)
		}
		conn = tlsConn
	}

	return newClientConn(conn, t.config), nil
}
