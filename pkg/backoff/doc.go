// Package backoff implements the retry delay policy for failing
// probe and connect operations.
//
// # Delay ladder
//
// Delays double after each consecutive failure and are clamped:
//
//  1. Floor: 2 seconds
//  2. Doubling: 4s, 8s, 16s
//  3. Ceiling: 30 seconds, held until success
//  4. Reset to the floor on success
//
// The probing and connecting retry contexts each own an independent
// Backoff instance. Probe failures must not slow down connect retries
// and vice versa.
package backoff
