package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/uplink-protocol/uplink-go/pkg/version"
)

// DefaultPort is the default uplink port.
const DefaultPort = 9470

// TLSConfig holds TLS settings for uplink connections.
// A nil TLSConfig selects plaintext TCP.
type TLSConfig struct {
	// Certificate is the TLS certificate for this endpoint.
	// Optional for clients unless the server requires mutual TLS.
	Certificate *tls.Certificate

	// RootCAs is the pool of CA certificates used to verify the peer.
	// Nil falls back to the system pool.
	RootCAs *x509.CertPool

	// ClientCAs is the pool of CA certificates for client authentication.
	// Server-side only; nil disables mutual TLS.
	ClientCAs *x509.CertPool

	// ServerName is the expected server name for client connections.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// Only for testing - never use in production!
	InsecureSkipVerify bool
}

// NewClientTLSConfig creates a TLS configuration for an uplink client.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}

	tlsConfig := &tls.Config{
		// TLS 1.3 only - no fallback
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		RootCAs:    cfg.RootCAs,
		ServerName: cfg.ServerName,

		NextProtos: version.SupportedALPNProtocols(),

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.Certificate != nil {
		tlsConfig.Certificates = []tls.Certificate{*cfg.Certificate}
	}

	return tlsConfig, nil
}

// NewServerTLSConfig creates a TLS configuration for an uplink server.
func NewServerTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if cfg.Certificate == nil || len(cfg.Certificate.Certificate) == 0 {
		return nil, fmt.Errorf("server certificate is required")
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		Certificates: []tls.Certificate{*cfg.Certificate},

		NextProtos: version.SupportedALPNProtocols(),

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		SessionTicketsDisabled: true,
	}

	if cfg.ClientCAs != nil {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = cfg.ClientCAs
	}

	return tlsConfig, nil
}

// VerifyConnection checks that a completed handshake negotiated the
// expected TLS version and a protocol major this module can speak.
func VerifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("unexpected TLS version: %x", state.Version)
	}
	major, err := version.MajorFromALPN(state.NegotiatedProtocol)
	if err != nil {
		return fmt.Errorf("ALPN negotiation failed: %w", err)
	}
	if !version.Current.Compatible(version.SpecVersion{Major: major}) {
		return fmt.Errorf("incompatible protocol major %d (speaking %s)", major, version.Current)
	}
	return nil
}
