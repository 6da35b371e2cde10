// Package wire defines the uplink control-frame encoding.
//
// Four message types flow over an established connection: Ping (client
// heartbeat), Pong (server echo), Close (graceful teardown) and Data
// (application payload). Messages are CBOR maps with integer keys,
// encoded deterministically so identical messages always produce
// identical bytes.
//
// The connection manager itself never inspects Data payloads; it hands
// them to the application callback unchanged.
package wire
