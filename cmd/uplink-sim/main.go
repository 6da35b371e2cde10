// Command uplink-sim is a minimal uplink server for exercising uplinkd.
//
// It accepts connections, answers heartbeats and prints application
// payloads. With -drop-after it abruptly drops each connection after a
// number of inbound frames, which exercises the client's failure
// detection and reconnect path.
//
// Usage:
//
//	uplink-sim [flags]
//
// Flags:
//
//	-addr string      Listen address (default ":9470")
//	-cert string      Server certificate file (PEM); enables TLS together with -key
//	-key string       Server key file (PEM)
//	-self-signed      Generate a throwaway self-signed TLS certificate
//	-drop-after int   Drop each connection after this many inbound frames (0 = never)
//	-log-level string Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Plaintext server that drops every connection after 20 frames
//	uplink-sim -addr :9470 -drop-after 20
//
//	# TLS with a generated certificate (clients connect with -insecure)
//	uplink-sim -addr :9470 -self-signed
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/uplink-protocol/uplink-go/pkg/cert"
	"github.com/uplink-protocol/uplink-go/pkg/transport"
)

func main() {
	addr := flag.String("addr", fmt.Sprintf(":%d", transport.DefaultPort), "Listen address")
	certFile := flag.String("cert", "", "Server certificate file (PEM)")
	keyFile := flag.String("key", "", "Server key file (PEM)")
	selfSigned := flag.Bool("self-signed", false, "Generate a throwaway self-signed TLS certificate")
	dropAfter := flag.Int("drop-after", 0, "Drop each connection after this many inbound frames (0 = never)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*logLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	var tlsCfg *transport.TLSConfig
	switch {
	case *selfSigned:
		sc, err := cert.GenerateSelfSigned([]string{"localhost", "127.0.0.1"}, 0)
		if err != nil {
			logger.Error("failed to generate certificate", "error", err)
			os.Exit(1)
		}
		tlsCert := sc.TLSCertificate()
		tlsCfg = &transport.TLSConfig{Certificate: &tlsCert}
		logger.Info("using self-signed certificate", "expires", sc.Leaf.NotAfter)

	case *certFile != "":
		tlsCert, err := tls.LoadX509KeyPair(*certFile, *keyFile)
		if err != nil {
			logger.Error("failed to load server certificate", "error", err)
			os.Exit(1)
		}
		tlsCfg = &transport.TLSConfig{Certificate: &tlsCert}
	}

	srv, err := transport.NewServer(transport.ServerConfig{
		Addr:            *addr,
		TLS:             tlsCfg,
		DropAfterFrames: *dropAfter,
		Logger:          logger,
		OnData: func(remote net.Addr, payload []byte) {
			logger.Info("payload received", "remote", remote, "payload", string(payload))
		},
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	cancel()
	if err := srv.Stop(); err != nil {
		logger.Error("server stop failed", "error", err)
		os.Exit(1)
	}
}
