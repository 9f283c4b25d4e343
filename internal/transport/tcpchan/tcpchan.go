// Package tcpchan implements the TCP channel (C3): TCP_NODELAY enabled, a
// reduced send buffer, and the same send/recv contract as the reliable-UDP
// channel. Directly adapted from adb/device.go's TCP_NODELAY setup and
// scrcpy_session.go's writeFull deadline/retry-free write loop.
package tcpchan

import (
	"io"
	"net"
	"sync"
	"time"
)

// reducedSendBuffer matches the source's 16 KB send-buffer reduction to
// minimise kernel queuing latency.
const reducedSendBuffer = 16 * 1024

// Channel wraps a connected TCP socket with the non-blocking-contract
// send/recv surface shared with internal/transport/rudp.
type Channel struct {
	conn   net.Conn
	writeMu sync.Mutex
}

// Dial connects to addr and configures it per the C3 contract.
func Dial(addr string, timeout time.Duration) (*Channel, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return wrap(conn)
}

// Wrap adapts an already-accepted net.Conn (e.g. from adb's ServerConn
// listener) into a Channel.
func Wrap(conn net.Conn) (*Channel, error) {
	return wrap(conn)
}

func wrap(conn net.Conn) (*Channel, error) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, err
		}
		_ = tcpConn.SetWriteBuffer(reducedSendBuffer)
	}
	return &Channel{conn: conn}, nil
}

// Send writes b in full with a bounded deadline, matching writeFull's
// retry-free single-attempt write. Returns the number of bytes written;
// on error, Recv callers should treat the channel as broken (C7 propagates
// this to the session as ConnectionLost).
func (c *Channel) Send(b []byte, deadline time.Duration) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(deadline))
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	n, err := c.conn.Write(b)
	return n, err
}

// Recv blocks with a short deadline so shutdown is prompt, matching the
// contract shared with the reliable-UDP channel. A zero-byte, io.EOF
// result signals persistent disconnection to the caller; the demuxer
// passes such a read error on to its stop callback unchanged.
func (c *Channel) Recv(buf []byte, deadline time.Duration) (int, error) {
	if deadline > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	}
	return c.conn.Read(buf)
}

// ReadFull reads exactly len(buf) bytes, as the demuxer needs for fixed-size
// headers.
func (c *Channel) ReadFull(buf []byte) (int, error) {
	return io.ReadFull(c.conn, buf)
}

func (c *Channel) Close() error {
	return c.conn.Close()
}
