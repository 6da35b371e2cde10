package log

import (
	"time"

	"github.com/uplink-protocol/uplink-go/pkg/wire"
)

// Event records one connection lifecycle occurrence.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the session this event belongs to (UUID).
	// Empty for events outside any session (probes, phase waits).
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Endpoint is the remote address being managed (host:port).
	Endpoint string `cbor:"3,keyasint,omitempty"`

	// Direction indicates message flow for frame and control events.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (one of these will be set).
	StateChange *StateChangeEvent `cbor:"6,keyasint,omitempty"` // Supervisor phase transitions
	Probe       *ProbeEvent       `cbor:"7,keyasint,omitempty"` // Reachability test outcomes
	ControlMsg  *ControlMsgEvent  `cbor:"8,keyasint,omitempty"` // Ping/pong/close
	Frame       *FrameEvent       `cbor:"9,keyasint,omitempty"` // Raw frames
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a supervisor phase transition.
	CategoryState Category = 0
	// CategoryProbe indicates a reachability test outcome.
	CategoryProbe Category = 1
	// CategoryControl indicates a control message (ping/pong/close).
	CategoryControl Category = 2
	// CategoryFrame indicates a raw transport frame.
	CategoryFrame Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryProbe:
		return "PROBE"
	case CategoryControl:
		return "CONTROL"
	case CategoryFrame:
		return "FRAME"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures a supervisor phase transition.
type StateChangeEvent struct {
	// OldPhase is the previous phase (may be empty at startup).
	OldPhase string `cbor:"1,keyasint,omitempty"`

	// NewPhase is the phase being entered.
	NewPhase string `cbor:"2,keyasint"`

	// Reason for the transition (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ProbeEvent captures the outcome of one reachability test.
type ProbeEvent struct {
	// Success is true if a connection could currently be opened.
	Success bool `cbor:"1,keyasint"`

	// Attempt is the consecutive failure count for this probing cycle.
	Attempt int `cbor:"2,keyasint,omitempty"`

	// NextDelay is the wait before the next probe after a failure.
	// Stored as nanoseconds.
	NextDelay time.Duration `cbor:"3,keyasint,omitempty"`
}

// ControlMsgEvent captures a ping, pong or close message.
type ControlMsgEvent struct {
	// Type of control message.
	Type wire.Type `cbor:"1,keyasint"`

	// Seq is the heartbeat sequence number (ping/pong only).
	Seq uint32 `cbor:"2,keyasint,omitempty"`

	// CloseReason is the reason code for close messages.
	CloseReason *uint8 `cbor:"3,keyasint,omitempty"`
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures transient failures surfaced by either task.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`

	// Attempts is the retry counter at the time of the error.
	Attempts int `cbor:"3,keyasint,omitempty"`
}
