package link

import (
	"context"
	"net"
	"sync"

	"github.com/uplink-protocol/uplink-go/pkg/transport"
)

// fakeTransport scripts probe and connect outcomes for the tests.
// Scripted results are consumed in order; once a script runs out, the
// default result repeats.
type fakeTransport struct {
	mu sync.Mutex

	probeScript  []error
	probeDefault error
	probes       int

	connectScript  []connectResult
	connectDefault connectResult
	connects       int
}

type connectResult struct {
	conn *fakeConn
	err  error
}

var _ transport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Probe(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if len(f.probeScript) > 0 {
		err := f.probeScript[0]
		f.probeScript = f.probeScript[1:]
		return err
	}
	return f.probeDefault
}

func (f *fakeTransport) Connect(context.Context, string) (transport.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	res := f.connectDefault
	if len(f.connectScript) > 0 {
		res = f.connectScript[0]
		f.connectScript = f.connectScript[1:]
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.conn, nil
}

func (f *fakeTransport) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// fakeConn is a scripted connection handle. openFor bounds how many
// Service calls the connection survives; negative means forever.
type fakeConn struct {
	id      string
	openFor int

	mu           sync.Mutex
	open         bool
	serviceCalls int
	serviceErr   error
	inbound      [][]byte
	sent         [][]byte
	heartbeats   int
	closes       int
	closeReasons []uint8
}

var _ transport.Conn = (*fakeConn)(nil)

func newFakeConn(id string, openFor int) *fakeConn {
	return &fakeConn{id: id, openFor: openFor, open: true}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9470}
}

func (c *fakeConn) Service() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serviceCalls++
	if c.openFor >= 0 && c.serviceCalls >= c.openFor {
		c.open = false
	}
	return c.serviceErr
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Receive() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return nil, nil
	}
	payload := c.inbound[0]
	c.inbound = c.inbound[1:]
	return payload, nil
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) SendHeartbeat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heartbeats++
	return nil
}

func (c *fakeConn) SendClose(reason uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeReasons = append(c.closeReasons, reason)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.open = false
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

func (c *fakeConn) heartbeatCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heartbeats
}

func (c *fakeConn) sentCloseReasons() []uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint8(nil), c.closeReasons...)
}
