// Package log provides structured event logging for the uplink
// connection manager.
//
// Events capture what the two connection tasks observed: supervisor
// phase transitions, probe outcomes, control messages, raw frames and
// transient errors. Events are encoded as a CBOR stream with integer
// keys, so long-running captures stay compact and can be replayed later
// with ReadFile.
//
// Sinks implement the Logger interface: FileSink appends the CBOR
// stream to disk, SlogAdapter mirrors events into an slog.Logger, and
// Tee fans one event out to several sinks.
//
// This package is for the event trail; operational messages inside the
// tasks use log/slog directly.
package log
