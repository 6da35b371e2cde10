// Command uplinkd maintains a resilient connection to one uplink server.
//
// The daemon probes the endpoint until it is reachable, connects, keeps
// the session alive with heartbeats, and reconnects with exponential
// backoff whenever the server goes away. Inbound payloads are logged.
//
// Usage:
//
//	uplinkd [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-endpoint string    Remote endpoint as host:port (overrides config)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-event-log string   Write the CBOR lifecycle event stream to this file
//	-tls                Enable TLS 1.3
//	-cert string        Client certificate file (PEM)
//	-key string         Client key file (PEM)
//	-ca string          CA certificate file for server verification (PEM)
//	-server-name string Expected server name for TLS verification
//	-insecure           Skip TLS certificate verification (testing only)
//
// Examples:
//
//	# Connect to a local simulator
//	uplinkd -endpoint localhost:9470 -log-level debug
//
//	# Production setup from a config file, with an event log
//	uplinkd -config /etc/uplink/uplinkd.yaml -event-log /var/log/uplinkd/events.cborlog
package main

import (
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/uplink-protocol/uplink-go/pkg/backoff"
	"github.com/uplink-protocol/uplink-go/pkg/config"
	"github.com/uplink-protocol/uplink-go/pkg/link"
	"github.com/uplink-protocol/uplink-go/pkg/log"
	"github.com/uplink-protocol/uplink-go/pkg/transport"
)

var flags struct {
	configFile string
	endpoint   string
	logLevel   string
	eventLog   string
	useTLS     bool
	certFile   string
	keyFile    string
	caFile     string
	serverName string
	insecure   bool
}

func init() {
	flag.StringVar(&flags.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.endpoint, "endpoint", "", "Remote endpoint as host:port (overrides config)")
	flag.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.eventLog, "event-log", "", "Write the CBOR lifecycle event stream to this file")
	flag.BoolVar(&flags.useTLS, "tls", false, "Enable TLS 1.3")
	flag.StringVar(&flags.certFile, "cert", "", "Client certificate file (PEM)")
	flag.StringVar(&flags.keyFile, "key", "", "Client key file (PEM)")
	flag.StringVar(&flags.caFile, "ca", "", "CA certificate file for server verification (PEM)")
	flag.StringVar(&flags.serverName, "server-name", "", "Expected server name for TLS verification")
	flag.BoolVar(&flags.insecure, "insecure", false, "Skip TLS certificate verification (testing only)")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "uplinkd: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	events, cleanup, err := newEventLogger(cfg, logger)
	if err != nil {
		logger.Error("failed to open event log", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	tr, err := newTransport(cfg, events)
	if err != nil {
		logger.Error("failed to create transport", "error", err)
		os.Exit(1)
	}

	mgr, err := link.NewManager(link.Config{
		Endpoint:  cfg.Endpoint.Addr(),
		Transport: tr,
		ProbeBackoff: backoff.Config{
			Floor:   cfg.Probe.BackoffFloor.Std(),
			Ceiling: cfg.Probe.BackoffCeiling.Std(),
		},
		ConnectBackoff: backoff.Config{
			Floor:   cfg.Connect.BackoffFloor.Std(),
			Ceiling: cfg.Connect.BackoffCeiling.Std(),
		},
		MaxConnectAttempts: cfg.Connect.MaxAttempts,
		ConnectTimeout:     cfg.Connect.Timeout.Std(),
		HeartbeatInterval:  cfg.Session.HeartbeatInterval.Std(),
		PollInterval:       cfg.Session.PollInterval.Std(),
		DrainCooldown:      cfg.Session.DrainCooldown.Std(),
		Logger:             logger,
		Events:             events,
		OnMessage: func(connID string, payload []byte) {
			logger.Info("payload received", "conn_id", connID, "payload", string(payload))
		},
	})
	if err != nil {
		logger.Error("failed to create manager", "error", err)
		os.Exit(1)
	}

	go handleSignals(logger, mgr)

	if err := mgr.Start(); err != nil {
		logger.Error("manager failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, defaults and flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		var err error
		cfg, err = config.Load(flags.configFile)
		if err != nil {
			return config.Config{}, err
		}
	}

	if flags.endpoint != "" {
		host, portStr, err := net.SplitHostPort(flags.endpoint)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid endpoint %q: %w", flags.endpoint, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid endpoint port %q: %w", portStr, err)
		}
		cfg.Endpoint.Host = host
		cfg.Endpoint.Port = port
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.eventLog != "" {
		cfg.Log.EventFile = flags.eventLog
	}
	if flags.useTLS {
		cfg.TLS.Enabled = true
	}
	if flags.certFile != "" {
		cfg.TLS.CertFile = flags.certFile
	}
	if flags.keyFile != "" {
		cfg.TLS.KeyFile = flags.keyFile
	}
	if flags.caFile != "" {
		cfg.TLS.CAFile = flags.caFile
	}
	if flags.serverName != "" {
		cfg.TLS.ServerName = flags.serverName
	}
	if flags.insecure {
		cfg.TLS.InsecureSkipVerify = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newEventLogger assembles the lifecycle event sink: a CBOR file stream
// when configured, mirrored to the console at debug level.
func newEventLogger(cfg config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	var sinks []log.Logger

	cleanup := func() {}
	if cfg.Log.EventFile != "" {
		sink, err := log.NewFileSink(cfg.Log.EventFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
		cleanup = func() { _ = sink.Close() }
	}
	if cfg.Log.Level == "debug" {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	return log.Tee(sinks...), cleanup, nil
}

func newTransport(cfg config.Config, events log.Logger) (*transport.TCP, error) {
	var tlsCfg *transport.TLSConfig
	if cfg.TLS.Enabled {
		tlsCfg = &transport.TLSConfig{
			ServerName:         cfg.TLS.ServerName,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		}

		if cfg.TLS.CertFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsCfg.Certificate = &cert
		}

		if cfg.TLS.CAFile != "" {
			pem, err := os.ReadFile(cfg.TLS.CAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", cfg.TLS.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	return transport.NewTCP(transport.Config{
		TLS:            tlsCfg,
		ConnectTimeout: cfg.Connect.Timeout.Std(),
		ProbeTimeout:   cfg.Probe.Timeout.Std(),
		Logger:         events,
	})
}

func handleSignals(logger *slog.Logger, mgr *link.Manager) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())
	mgr.RequestShutdown()

	// A second signal skips the graceful drain.
	sig = <-sigCh
	logger.Warn("second signal, exiting immediately", "signal", sig.String())
	os.Exit(1)
}
