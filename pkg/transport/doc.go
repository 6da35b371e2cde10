// Package transport provides the connection capability the uplink
// manager consumes: a reachability probe, a connect operation and the
// per-session handle contract (Service/IsOpen/Receive/Send/Close).
//
// # Contract
//
// The manager in pkg/link depends only on the Transport and Conn
// interfaces. The concrete implementation here speaks length-prefixed
// CBOR frames over TCP, optionally wrapped in TLS 1.3 with ALPN
// "uplink/1".
//
// # Polling model
//
// Conn is deliberately poll-based: Receive returns (nil, nil) when no
// payload is pending and Service drains control traffic without
// blocking. A background read pump inside ClientConn feeds bounded
// queues so the session loop can poll cheaply. An implementation with a
// push-capable transport may replace the manager's poll sleep with an
// event wait without changing this contract.
//
// # Probing
//
// Probe is a bounded dial-and-close against the endpoint. It never
// creates a persistent handle and deliberately skips the TLS handshake:
// reachability is a point-in-time judgment, not a credential check.
package transport
