// Package rudp implements the reliable-UDP channel (C2): a user-space ARQ
// layer with per-conversation id, selective retransmit, sliding send/recv
// windows, RFC-6298 RTO smoothing and a 10 ms internal tick. Session-level
// shape (two-port convention: video port N, control port N+1) is grounded
// on original_source/client/src/transport/kcp/kcpserver.h; the send/recv
// contract matches the teacher's net.Conn-shaped TCP usage
// (adb/device.go's TCP_NODELAY pattern is the model for C3's equivalent).
package rudp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/transport/fec"
)

// tickInterval is the ARQ's internal retransmit/flush cadence (§4.2: "a
// 10 ms internal tick").
const tickInterval = 10 * time.Millisecond

const defaultSendWindow = 128
const defaultRecvWindow = 128

// sendWindowForBitRate implements "send-window and MTU are preconfigured
// from the requested encoder bitrate (e.g. higher bitrate → larger
// window)".
func sendWindowForBitRate(bitRate int) int {
	switch {
	case bitRate >= 12_000_000:
		return 256
	case bitRate >= 4_000_000:
		return 128
	default:
		return 64
	}
}

type outSeg struct {
	seg      segment
	sentAt   time.Time
	acked    bool
}

// Channel is a reliable, ordered, message-oriented transport over UDP with
// a 32-bit conversation id. The zero value is not usable; construct via
// Bind/Connect.
type Channel struct {
	conv   uint32
	conn   *net.UDPConn
	remote *net.UDPAddr

	mu          sync.Mutex
	sendSeq     uint32
	sendWindow  map[uint32]*outSeg
	sendWinSize int

	recvNext    uint32
	recvBuf     map[uint32][]byte
	recvWinSize int
	ackPending  []uint32

	rto *rtoEstimator

	recvCh chan []byte

	fecEnc *fec.Encoder
	fecDec *fec.Decoder

	cancel context.CancelFunc
	done   chan struct{}

	droppedCount int64
}

// Bind opens a UDP socket on port (0 = ephemeral) for the given
// conversation id.
func Bind(port int, convID uint32, bitRate int) (*Channel, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind rudp: %w", err)
	}
	return newChannel(conn, convID, bitRate), nil
}

// Connect binds an ephemeral local port and fixes the remote endpoint the
// channel talks to.
func Connect(host string, port int, convID uint32, bitRate int) (*Channel, error) {
	c, err := Bind(0, convID, bitRate)
	if err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("resolve remote: %w", err)
	}
	c.remote = addr
	return c, nil
}

func newChannel(conn *net.UDPConn, convID uint32, bitRate int) *Channel {
	win := sendWindowForBitRate(bitRate)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		conv:        convID,
		conn:        conn,
		sendWindow:  make(map[uint32]*outSeg),
		sendWinSize: win,
		recvBuf:     make(map[uint32][]byte),
		recvWinSize: defaultRecvWindow,
		rto:         newRTOEstimator(),
		recvCh:      make(chan []byte, defaultRecvWindow),
		fecEnc:      fec.NewEncoder(fec.DefaultGroupSize),
		fecDec:      fec.NewDecoder(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go c.readLoop(ctx)
	go c.tickLoop(ctx)
	return c
}

// SetFECGroupSize replaces the channel's FEC encoder with one using group
// size n. The channel's FEC encoder and decoder are held but not used:
// Send and the read loop do not pass segments through them, so no parity
// packets are sent and no lost segment is reconstructed; recovery relies
// on ARQ retransmission alone.
func (c *Channel) SetFECGroupSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fecEnc = fec.NewEncoder(n)
}

// Send submits payload for reliable delivery. Non-blocking: if the send
// window is full the write is dropped and (0, ErrWouldDrop) is returned,
// per §4.2's "transient send buffer fullness returns dropped".
func (c *Channel) Send(payload []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sendWindow) >= c.sendWinSize {
		c.droppedCount++
		return 0, ErrWouldDrop
	}
	seq := c.sendSeq
	c.sendSeq++
	seg := segment{
		ConvID: c.conv,
		Seq:    seq,
		Ack:    c.recvNext,
		Wnd:    uint16(c.recvWinSize - len(c.recvBuf)),
		TS:     uint32(time.Now().UnixMilli()),
		Cmd:    cmdPush,
		Data:   payload,
	}
	c.sendWindow[seq] = &outSeg{seg: seg, sentAt: time.Now()}
	c.transmit(seg)
	return len(payload), nil
}

func (c *Channel) transmit(seg segment) {
	wire := seg.encode()
	if c.remote != nil {
		c.conn.WriteToUDP(wire, c.remote)
	}
}

// Recv blocks for up to deadline for the next in-order, reassembled
// payload. A zero-length, nil-error result never happens; persistent
// disconnection surfaces as an error once the underlying socket closes.
func (c *Channel) Recv(deadline time.Duration) ([]byte, error) {
	if deadline <= 0 {
		select {
		case b, ok := <-c.recvCh:
			if !ok {
				return nil, ErrClosed
			}
			return b, nil
		}
	}
	t := time.NewTimer(deadline)
	defer t.Stop()
	select {
	case b, ok := <-c.recvCh:
		if !ok {
			return nil, ErrClosed
		}
		return b, nil
	case <-t.C:
		return nil, ErrTimeout
	}
}

func (c *Channel) readLoop(ctx context.Context) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			close(c.recvCh)
			close(c.done)
			return
		default:
		}
		c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		if c.remote == nil {
			c.remote = addr
		}
		seg, ok := decodeSegment(buf[:n])
		if !ok || seg.ConvID != c.conv {
			continue
		}
		c.handleSegment(seg)
	}
}

func (c *Channel) handleSegment(seg segment) {
	c.mu.Lock()
	// An ack segment acknowledges exactly the one sequence number in its
	// Ack field (selective ack by exact match on Cmd==ack); the Ack field
	// of a data segment is not used as a cumulative acknowledgement.
	if seg.Cmd == cmdAck {
		if out, ok := c.sendWindow[seg.Ack]; ok {
			c.rto.sample(time.Since(out.sentAt))
			delete(c.sendWindow, seg.Ack)
		}
		c.mu.Unlock()
		return
	}
	if seg.Cmd == cmdWndProbe {
		c.mu.Unlock()
		return
	}

	// Data segment: buffer for reassembly, queue an ack.
	if seg.Seq >= c.recvNext && len(c.recvBuf) < c.recvWinSize {
		c.recvBuf[seg.Seq] = seg.Data
	}
	c.ackPending = append(c.ackPending, seg.Seq)

	var ready [][]byte
	for {
		d, ok := c.recvBuf[c.recvNext]
		if !ok {
			break
		}
		ready = append(ready, d)
		delete(c.recvBuf, c.recvNext)
		c.recvNext++
	}
	c.mu.Unlock()

	for _, d := range ready {
		select {
		case c.recvCh <- d:
		default:
			// consumer backlogged; this message is dropped
		}
	}
}

func (c *Channel) tickLoop(ctx context.Context) {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.tick()
		}
	}
}

func (c *Channel) tick() {
	c.mu.Lock()
	now := time.Now()
	rto := c.rto.current()
	var retransmit []segment
	for _, out := range c.sendWindow {
		if now.Sub(out.sentAt) >= rto {
			out.sentAt = now
			retransmit = append(retransmit, out.seg)
		}
	}
	if len(retransmit) > 0 {
		c.rto.backoff()
	}
	pending := c.ackPending
	c.ackPending = nil
	conv := c.conv
	recvNext := c.recvNext
	c.mu.Unlock()

	for _, seg := range retransmit {
		c.transmit(seg)
	}
	for _, seq := range pending {
		ack := segment{ConvID: conv, Ack: seq, Cmd: cmdAck, TS: uint32(now.UnixMilli())}
		_ = recvNext
		c.transmit(ack)
	}
}

// Close tears down the read/tick goroutines and the underlying socket.
func (c *Channel) Close() error {
	c.cancel()
	<-c.done
	return c.conn.Close()
}

// DroppedCount reports how many Send calls were dropped for a full send
// window, for internal/metrics reporting.
func (c *Channel) DroppedCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.droppedCount
}
