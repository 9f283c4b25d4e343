// Package session implements the session controller (C10): the
// connection lifecycle state machine that owns every other component's
// goroutines for the duration of one device connection. Grounded on
// scrcpy_session.go's ScrcpySession/StartScrcpyBoot/StartControlLoops
// lifecycle shape (bootstrap via adb, a control-channel read loop, a
// health-monitor heartbeat), generalized into the full
// Disconnected/Connecting/Handshaking/Streaming/Paused/Disconnecting/Error
// state machine of spec.md §4.10 and made transport-agnostic over both
// the TCP and reliable-UDP channels.
package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/adb"
	"github.com/mirrorctl/scrcpy-go/internal/config"
	"github.com/mirrorctl/scrcpy-go/internal/control"
	"github.com/mirrorctl/scrcpy-go/internal/decoder"
	"github.com/mirrorctl/scrcpy-go/internal/demux"
	"github.com/mirrorctl/scrcpy-go/internal/framepool"
	"github.com/mirrorctl/scrcpy-go/internal/input"
	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/metrics"
	"github.com/mirrorctl/scrcpy-go/internal/render"
	"github.com/mirrorctl/scrcpy-go/internal/screrr"
	"github.com/mirrorctl/scrcpy-go/internal/transport/rudp"
	"github.com/mirrorctl/scrcpy-go/internal/transport/tcpchan"
	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

const (
	deviceNameFieldSize = 64
	videoSizeFieldSize  = 8

	remoteAgentPath = "/data/local/tmp/scrcpy-server.jar"

	// videoConvID/controlConvID tag the two independent reliable-UDP
	// channels a streaming session opens, matching the source's separate
	// KCP conversations for video and control.
	videoConvID   = 0x53435250
	controlConvID = 0x53435251

	teardownJoinDeadline = 500 * time.Millisecond
)

// Machine drives one device connection through the state machine of
// spec.md §4.10, owning the lifetime of every worker goroutine via
// context cancellation instead of the teacher's ad hoc goroutine-per-loop
// style with no shared shutdown signal.
type Machine struct {
	mu    sync.Mutex
	state State

	cfg config.Session
	mon *metrics.Monitor

	renderer *render.Renderer
	mailbox  *framepool.Mailbox

	// Input is valid once Streaming is reached; the GUI event loop reads
	// it after a successful Start to route SDL input.
	Input *input.Converter

	device *adb.Device
	conn   *adb.ServerConn

	tcpVideo  *tcpchan.Channel
	tcpCtrl   *tcpchan.Channel
	rudpVideo *rudp.Channel
	rudpCtrl  *rudp.Channel

	videoSrc demux.Source
	sender   *control.Sender

	stopHeartbeat func()

	pool    *framepool.Pool
	dec     *decoder.Decoder
	demuxer *demux.Demuxer

	// preview, when set via SetPreview, receives every raw access unit
	// alongside the decoder: an optional browser relay, never on the
	// zero-copy render path.
	preview accessUnitSink

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a Machine for one connection attempt. renderer and mailbox
// are owned by the caller (the renderer must be created on the
// OS-locked GUI thread before the session starts) and shared with the
// decoder's output side.
func New(cfg config.Session, renderer *render.Renderer, mailbox *framepool.Mailbox, mon *metrics.Monitor) *Machine {
	return &Machine{cfg: cfg, renderer: renderer, mailbox: mailbox, mon: mon, state: StateDisconnected}
}

// accessUnitSink matches previewrtc.Sink's PushAccessUnit method; kept as
// a small interface so session doesn't import previewrtc (an optional,
// higher-level consumer) directly.
type accessUnitSink interface {
	PushAccessUnit(payload []byte, ptsMicros int64)
}

// SetPreview attaches an optional secondary consumer of every raw access
// unit (e.g. a WebRTC browser preview). Must be called before Start; nil
// disables it.
func (m *Machine) SetPreview(sink accessUnitSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preview = sink
}

// State reports the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition validates and applies from->to per §4.10's diagram, logging
// and rejecting anything not drawn there: an invalid transition means a
// caller bug, never a runtime condition.
func (m *Machine) transition(to State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !canTransition(m.state, to) {
		logging.Errorf("session: rejected transition %s -> %s", m.state, to)
		return false
	}
	logging.Infof("session: %s -> %s", m.state, to)
	m.state = to
	return true
}

// Start takes the machine from Disconnected all the way to Streaming:
// bootstrap (adb push/start or direct UDP connect), handshake (read the
// agent's identity/video-size preamble), then launch the demuxer and
// control loops. On any failure the machine moves to Error and tears
// down whatever was already opened.
func (m *Machine) Start(parent context.Context) error {
	if !m.transition(StateConnecting) {
		return screrr.New(screrr.InvalidParameter)
	}
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	if err := m.bootstrap(); err != nil {
		m.fail(err)
		return err
	}
	if !m.transition(StateHandshaking) {
		err := screrr.New(screrr.InvalidParameter)
		m.fail(err)
		return err
	}
	if err := m.handshake(); err != nil {
		m.fail(err)
		return err
	}
	if !m.transition(StateStreaming) {
		err := screrr.New(screrr.InvalidParameter)
		m.fail(err)
		return err
	}
	m.startWorkers(ctx)
	return nil
}

func (m *Machine) bootstrap() error {
	if m.cfg.Transport == config.TransportReliableUDP {
		return m.bootstrapRUDP()
	}
	return m.bootstrapTCP()
}

func (m *Machine) agentParams() adb.AgentParams {
	p := adb.DefaultAgentParams()
	p.MaxSize = m.cfg.MaxSize
	p.BitRate = m.cfg.BitRate
	p.MaxFPS = m.cfg.MaxFPS
	p.CodecName = m.cfg.CodecName
	p.CaptureOrientationLock = m.cfg.CaptureOrientationLock
	p.CaptureOrientation = m.cfg.CaptureOrientation
	return p
}

// bootstrapTCP mirrors ScrcpySession.Start: push the agent, reverse the
// local port, launch it, and wrap both accepted sockets as channels.
func (m *Machine) bootstrapTCP() error {
	dev, err := adb.NewDevice(adb.Options{
		Serial:     m.cfg.DeviceID,
		ScrcpyPort: m.cfg.VideoPort,
		Agent:      m.agentParams(),
	})
	if err != nil {
		return screrr.Wrap(screrr.AgentStartFailed, err)
	}
	if err := dev.Reverse("localabstract:scrcpy", fmt.Sprintf("tcp:%d", dev.ScrcpyPort())); err != nil {
		return screrr.Wrap(screrr.AgentStartFailed, err)
	}
	agentPath := m.cfg.AgentPath
	if agentPath == "" {
		agentPath = remoteAgentPath
	}
	if err := dev.PushServer(agentPath); err != nil {
		return screrr.Wrap(screrr.AgentStartFailed, err)
	}
	conn, err := dev.StartServer()
	if err != nil {
		return screrr.Wrap(screrr.AgentStartFailed, err)
	}
	m.device, m.conn = dev, conn

	videoConn, ok := conn.VideoStream.(net.Conn)
	if !ok {
		return screrr.New(screrr.ConnectionFailed)
	}
	vch, err := tcpchan.Wrap(videoConn)
	if err != nil {
		return screrr.Wrap(screrr.ConnectionFailed, err)
	}
	m.tcpVideo = vch
	m.videoSrc = demux.TCPSource{Ch: vch}

	if conn.Control != nil {
		ctrlConn, ok := conn.Control.(net.Conn)
		if !ok {
			return screrr.New(screrr.ConnectionFailed)
		}
		cch, err := tcpchan.Wrap(ctrlConn)
		if err != nil {
			return screrr.Wrap(screrr.ConnectionFailed, err)
		}
		m.tcpCtrl = cch
		m.sender = control.New(control.TCPChannel{Ch: cch}, m.mon)
	}
	return nil
}

// bootstrapRUDP connects two independent reliable-UDP conversations
// directly to an already-reachable agent (wifi/network adb, per
// config.SelectTransport's ":"-in-device-id rule), skipping the adb push
// path entirely since the agent is assumed already running.
func (m *Machine) bootstrapRUDP() error {
	host, _, err := net.SplitHostPort(m.cfg.DeviceID)
	if err != nil {
		host = m.cfg.DeviceID
	}
	vch, err := rudp.Connect(host, m.cfg.VideoPort, videoConvID, m.cfg.BitRate)
	if err != nil {
		return screrr.Wrap(screrr.ConnectionFailed, err)
	}
	m.rudpVideo = vch
	m.videoSrc = &demux.RUDPSource{Ch: vch}

	cch, err := rudp.Connect(host, m.cfg.VideoPort+m.cfg.ControlPortOffset, controlConvID, m.cfg.BitRate)
	if err != nil {
		vch.Close()
		return screrr.Wrap(screrr.ConnectionFailed, err)
	}
	m.rudpCtrl = cch
	m.sender = control.New(cch, m.mon)
	return nil
}

func (m *Machine) handshake() error {
	if m.cfg.Transport == config.TransportReliableUDP {
		return m.handshakeRUDP()
	}
	return m.handshakeTCP()
}

// handshakeTCP reads the 64-byte device-name preamble plus an 8-byte
// width/height pair, grounded directly on streaming.go's nameBuf/vHeader
// reads.
func (m *Machine) handshakeTCP() error {
	buf := make([]byte, deviceNameFieldSize+videoSizeFieldSize)
	if _, err := m.videoSrc.ReadFull(buf); err != nil {
		return screrr.Wrap(screrr.HandshakeFailed, err)
	}
	name := strings.TrimRight(string(buf[:deviceNameFieldSize]), "\x00")
	w := int(binary.BigEndian.Uint32(buf[deviceNameFieldSize : deviceNameFieldSize+4]))
	h := int(binary.BigEndian.Uint32(buf[deviceNameFieldSize+4:]))
	logging.Infof("session: connected to %q, video %dx%d", name, w, h)
	if w == 0 || h == 0 {
		w, h = m.cfg.MaxSize, m.cfg.MaxSize
	}
	return m.openPipeline(w, h)
}

// handshakeRUDP reads the first 12-byte video header to confirm the
// stream is alive, then replays those bytes to the demuxer via
// peekSource so its own header parsing sees the same first packet.
func (m *Machine) handshakeRUDP() error {
	buf := make([]byte, wire.HeaderSize)
	if _, err := m.videoSrc.ReadFull(buf); err != nil {
		return screrr.Wrap(screrr.HandshakeFailed, err)
	}
	m.videoSrc = &peekSource{inner: m.videoSrc, saved: append([]byte(nil), buf...)}
	return m.openPipeline(m.cfg.MaxSize, m.cfg.MaxSize)
}

// openPipeline builds the decoder and demuxer at the negotiated (or
// provisional, for reliable-UDP) dimensions and constructs the input
// converter now that a control sender exists.
func (m *Machine) openPipeline(w, h int) error {
	m.pool = framepool.NewPool(framepool.DefaultPoolSize, w, h)

	codec := decoder.CodecH264
	if strings.EqualFold(m.cfg.CodecName, "h265") {
		codec = decoder.CodecH265
	}
	dec, err := decoder.New(codec, m.pool, m.mon)
	if err != nil {
		return err
	}
	m.dec = dec
	m.demuxer = demux.New(m.videoSrc, m.mon, m.onPacket, m.onDemuxStop, m.onConfigDimensions)
	m.Input = input.NewConverter(m.sender, w, h)
	return nil
}

// onConfigDimensions resizes the frame pool and the input converter's
// coordinate space as soon as a CONFIG packet reveals the real video
// size, relevant mainly to the reliable-UDP path whose handshake only
// provides a provisional MaxSize x MaxSize guess.
func (m *Machine) onConfigDimensions(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	if m.pool != nil {
		m.pool.Resize(w, h)
	}
	if m.Input != nil {
		m.Input.SetTargetSize(w, h)
	}
}

// onPacket is the demuxer's per-access-unit callback: decode, then hand
// the newest (or oldest, depending on backlog) pool frame to the
// renderer's mailbox.
func (m *Machine) onPacket(pkt demux.Packet) {
	m.dec.Decode(pkt.Payload, int64(pkt.PTS), pkt.KeyFrame)

	if m.preview != nil {
		m.preview.PushAccessUnit(pkt.Payload, int64(pkt.PTS))
	}

	var f *framepool.Frame
	var ok bool
	if m.pool.ShouldPopLatest() {
		f, ok = m.pool.PopLatest()
	} else {
		f, ok = m.pool.Pop()
	}
	if ok {
		m.mailbox.Put(f)
	}
}

func (m *Machine) onDemuxStop(err error) {
	if err == demux.ErrStreamStopped {
		return
	}
	logging.Errorf("session: demuxer stopped: %v", err)
	m.fail(err)
}

// startWorkers launches the demuxer goroutine, the control-channel read
// loop and the heartbeat, all tied to ctx's cancellation.
func (m *Machine) startWorkers(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.demuxer.Run(ctx)
	}()

	if m.sender != nil {
		m.stopHeartbeat = m.sender.StartHeartbeat(0)
	}

	switch {
	case m.tcpCtrl != nil:
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			controlReadLoopStream(ctx, m.tcpCtrl)
		}()
	case m.rudpCtrl != nil:
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			controlReadLoopMessages(ctx, m.rudpCtrl)
		}()
	}
}

// Pause/Resume implement the Streaming <-> Paused edge for window
// hide/show; the decode pipeline itself never stops so resume is
// instantaneous. Neither call touches the renderer; whoever drives the
// GUI loop keeps draining the mailbox with DrawOnce.
func (m *Machine) Pause() bool  { return m.transition(StatePaused) }
func (m *Machine) Resume() bool { return m.transition(StateStreaming) }

// ControlSender exposes the control channel once Start has completed, for
// callers that want to attach an optional secondary consumer (previewrtc)
// needing both a Send path and a keyframe-request path. Nil before Start
// succeeds.
func (m *Machine) ControlSender() *control.Sender {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sender
}

// Stop tears the session down in reverse build order (control sender ->
// input converter -> demuxer -> decoder -> channel) and returns once
// cleanup completes or teardownJoinDeadline elapses, whichever is first.
func (m *Machine) Stop() {
	if m.State() == StateDisconnected {
		return
	}
	if !m.transition(StateDisconnecting) {
		return
	}
	m.teardown()
	m.transition(StateDisconnected)
}

func (m *Machine) fail(err error) {
	if !m.transition(StateError) {
		return
	}
	logging.Errorf("session: %v", err)
	m.teardown()
	m.transition(StateDisconnected)
}

func (m *Machine) teardown() {
	m.closeOnce.Do(func() {
		if m.sender != nil {
			m.sender.Disconnect()
		}
		if m.stopHeartbeat != nil {
			m.stopHeartbeat()
		}
		m.Input = nil

		if m.cancel != nil {
			m.cancel()
		}
		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(teardownJoinDeadline):
			logging.Errorf("session: worker goroutines did not join within %s", teardownJoinDeadline)
		}

		if m.dec != nil {
			m.dec.Close()
		}
		if m.tcpVideo != nil {
			m.tcpVideo.Close()
		}
		if m.tcpCtrl != nil {
			m.tcpCtrl.Close()
		}
		if m.rudpVideo != nil {
			m.rudpVideo.Close()
		}
		if m.rudpCtrl != nil {
			m.rudpCtrl.Close()
		}
	})
}
