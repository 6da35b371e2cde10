package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/uplink-protocol/uplink-go/pkg/log"
	"github.com/uplink-protocol/uplink-go/pkg/wire"
)

// Connection errors.
var (
	// ErrConnectionClosed indicates the handle has been released locally.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrRemoteClosed indicates the peer announced or forced teardown.
	ErrRemoteClosed = errors.New("remote closed connection")
)

// ClientConn is one established uplink session over a TCP or TLS stream.
//
// A background read pump feeds inbound frames into bounded queues so
// that Receive and Service never block; the pump is internal and the
// handle is still used by exactly one goroutine.
type ClientConn struct {
	id     string
	conn   net.Conn
	framer *Framer
	logger log.Logger

	// Inbound queues filled by the read pump
	inData chan []byte
	ctrl   chan *wire.Message

	heartbeatSeq atomic.Uint32

	closeOnce sync.Once
	closeCh   chan struct{}

	mu       sync.Mutex
	open     bool
	closeErr error // first fatal error observed
}

func newClientConn(conn net.Conn, cfg Config) *ClientConn {
	c := &ClientConn{
		id:      uuid.NewString(),
		conn:    conn,
		framer:  NewFramerWithMaxSize(conn, cfg.MaxFrameSize),
		logger:  cfg.Logger,
		inData:  make(chan []byte, cfg.ReceiveBuffer),
		ctrl:    make(chan *wire.Message, 16),
		closeCh: make(chan struct{}),
		open:    true,
	}
	c.framer.SetLogger(cfg.Logger, c.id)

	go c.readPump()
	return c
}

// ID returns the unique identifier of this connection.
func (c *ClientConn) ID() string {
	return c.id
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// IsOpen reports whether the connection is still usable.
func (c *ClientConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Service answers peer pings, records pongs and observes remote close.
// Returns nil while the connection is healthy.
func (c *ClientConn) Service() error {
	for {
		select {
		case msg := <-c.ctrl:
			c.logControl(log.DirectionIn, msg)
			if msg.Type == wire.TypePing {
				// Peer heartbeat: echo the sequence back
				if err := c.writeMessage(wire.NewPong(msg.Seq)); err != nil {
					return err
				}
				c.logControl(log.DirectionOut, wire.NewPong(msg.Seq))
			}
			// Pongs need no reply; the event trail records the latency
		default:
			c.mu.Lock()
			open, err := c.open, c.closeErr
			c.mu.Unlock()
			if !open {
				if err == nil {
					err = ErrConnectionClosed
				}
				return err
			}
			return nil
		}
	}
}

// Receive returns the next pending application payload, or (nil, nil)
// when nothing is available. Payloads buffered before a close are still
// delivered.
func (c *ClientConn) Receive() ([]byte, error) {
	select {
	case payload := <-c.inData:
		return payload, nil
	default:
	}

	c.mu.Lock()
	open, err := c.open, c.closeErr
	c.mu.Unlock()
	if !open {
		if err == nil {
			err = ErrConnectionClosed
		}
		return nil, err
	}
	return nil, nil
}

// Send transmits an application payload.
func (c *ClientConn) Send(payload []byte) error {
	return c.writeMessage(wire.NewData(payload))
}

// SendHeartbeat transmits a heartbeat with the next sequence number.
func (c *ClientConn) SendHeartbeat() error {
	msg := wire.NewPing(c.heartbeatSeq.Add(1), time.Now().UnixMilli())
	if err := c.writeMessage(msg); err != nil {
		return err
	}
	c.logControl(log.DirectionOut, msg)
	return nil
}

// SendClose announces graceful teardown. Best-effort.
func (c *ClientConn) SendClose(reason uint8) error {
	msg := wire.NewClose(reason)
	if err := c.writeMessage(msg); err != nil {
		return err
	}
	c.logControl(log.DirectionOut, msg)
	return nil
}

// Close releases the connection. Safe to call more than once.
func (c *ClientConn) Close() error {
	c.mu.Lock()
	if c.open {
		c.open = false
		c.closeErr = ErrConnectionClosed
	}
	c.mu.Unlock()

	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// writeMessage encodes and writes one message. A write failure is
// terminal: the connection is marked dead so IsOpen flips false.
func (c *ClientConn) writeMessage(msg *wire.Message) error {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return ErrConnectionClosed
	}

	data, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	if err := c.framer.WriteFrame(data); err != nil {
		c.fail(fmt.Errorf("write %s: %w", msg.Type, err))
		return err
	}
	return nil
}

// readPump reads frames until the stream dies and routes them into the
// inbound queues.
func (c *ClientConn) readPump() {
	for {
		payload, err := c.framer.ReadFrame()
		if err != nil {
			c.fail(fmt.Errorf("read: %w", err))
			return
		}

		msg, err := wire.Decode(payload)
		if err != nil {
			// Tolerate undecodable frames; the peer may be newer
			c.logError("decode inbound frame", err)
			continue
		}

		switch msg.Type {
		case wire.TypeData:
			select {
			case c.inData <- msg.Payload:
			default:
				// Queue full: drop the oldest payload to keep the
				// newest, matching the poll-based consumer model
				select {
				case <-c.inData:
				default:
				}
				select {
				case c.inData <- msg.Payload:
				default:
				}
			}

		case wire.TypeClose:
			c.logControl(log.DirectionIn, msg)
			c.fail(ErrRemoteClosed)
			return

		default: // ping, pong
			select {
			case c.ctrl <- msg:
			default:
				// Service is behind; dropping a control message is safe
			}
		}
	}
}

// fail marks the connection dead with the given cause and tears down
// the underlying stream.
func (c *ClientConn) fail(err error) {
	c.mu.Lock()
	if c.open {
		c.open = false
		c.closeErr = err
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.conn.Close()
	})
}

func (c *ClientConn) logControl(direction log.Direction, msg *wire.Message) {
	if c.logger == nil {
		return
	}

	event := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    direction,
		Category:     log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{
			Type: msg.Type,
			Seq:  msg.Seq,
		},
	}
	if msg.Type == wire.TypeClose {
		reason := msg.CloseReason
		event.ControlMsg.CloseReason = &reason
	}
	c.logger.Log(event)
}

func (c *ClientConn) logError(context string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
