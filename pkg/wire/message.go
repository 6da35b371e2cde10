package wire

import (
	"fmt"
)

// CBOR map keys for message encoding.
// All uplink messages use integer keys for efficiency.
const (
	KeyType        = 1
	KeySeq         = 2
	KeySentAt      = 3
	KeyPayload     = 4
	KeyCloseReason = 5
)

// Type distinguishes uplink message types.
type Type uint8

const (
	// TypePing is a client heartbeat.
	TypePing Type = 1

	// TypePong is the server reply to a heartbeat.
	TypePong Type = 2

	// TypeClose announces graceful connection teardown.
	TypeClose Type = 3

	// TypeData carries an application payload.
	TypeData Type = 4
)

// IsValid reports whether the type is a known message type.
func (t Type) IsValid() bool {
	return t >= TypePing && t <= TypeData
}

// String returns the message type name.
func (t Type) String() string {
	switch t {
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	case TypeClose:
		return "CLOSE"
	case TypeData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// CloseReason codes carried by TypeClose messages.
const (
	// CloseNormal indicates an orderly application-level close.
	CloseNormal uint8 = 0

	// CloseShutdown indicates the sender is shutting down.
	CloseShutdown uint8 = 1

	// CloseError indicates the sender observed an unrecoverable error.
	CloseError uint8 = 2
)

// Message is a single uplink frame payload.
//
// CBOR encoding:
//
//	{
//	  1: type,        // uint8: 1=Ping, 2=Pong, 3=Close, 4=Data
//	  2: seq,         // uint32: heartbeat sequence (ping/pong only)
//	  3: sentAt,      // int64: sender unix time in milliseconds (ping only)
//	  4: payload,     // bytes: application data (data only)
//	  5: closeReason  // uint8 (close only)
//	}
type Message struct {
	Type        Type   `cbor:"1,keyasint"`
	Seq         uint32 `cbor:"2,keyasint,omitempty"`
	SentAt      int64  `cbor:"3,keyasint,omitempty"`
	Payload     []byte `cbor:"4,keyasint,omitempty"`
	CloseReason uint8  `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the message is well-formed.
func (m *Message) Validate() error {
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid message type: %d", m.Type)
	}
	if m.Type == TypeData && len(m.Payload) == 0 {
		return fmt.Errorf("data message with empty payload")
	}
	if m.Type != TypeData && len(m.Payload) != 0 {
		return fmt.Errorf("%s message must not carry a payload", m.Type)
	}
	return nil
}

// NewPing builds a heartbeat message with the given sequence number
// and the sender timestamp in unix milliseconds.
func NewPing(seq uint32, sentAtMillis int64) *Message {
	return &Message{Type: TypePing, Seq: seq, SentAt: sentAtMillis}
}

// NewPong builds the reply to a heartbeat, echoing its sequence number.
func NewPong(seq uint32) *Message {
	return &Message{Type: TypePong, Seq: seq}
}

// NewClose builds a graceful close announcement.
func NewClose(reason uint8) *Message {
	return &Message{Type: TypeClose, CloseReason: reason}
}

// NewData builds an application payload message.
func NewData(payload []byte) *Message {
	return &Message{Type: TypeData, Payload: payload}
}
