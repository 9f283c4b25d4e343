// Package previewrtc is an optional secondary consumer of the mirrored
// stream: a browser-reachable WebRTC relay, fed the same encoded access
// units the decoder consumes (no re-encode, no detour through the
// decoded frame pool) plus a data channel carrying touch input back in.
// Adapted from handlers_gin.go/webrtc.go/rtp.go/touch.go's multi-device
// hub down to this client's single active device and single browser
// connection at a time.
package previewrtc

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"

	"github.com/mirrorctl/scrcpy-go/internal/input"
	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

const (
	rtpMTU         = 1200
	rtpPayloadType = 96
	rtpClockRate   = 90000
)

// KeyframeRequester is the one control.Sender method previewrtc needs;
// kept narrow so this package doesn't have to import internal/control.
type KeyframeRequester interface {
	RequestKeyframe() bool
}

// touchEvent is the browser data channel payload, trimmed from
// touch.go's touchEvent to the single-device case: no DeviceIP, no
// per-pointer slot allocation, coordinates pre-normalised to 0..1 by
// the page instead of carrying ScreenW/ScreenH.
type touchEvent struct {
	Type     string  `json:"type"` // down|move|up|cancel
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
}

// Sink is one outgoing WebRTC preview connection at a time: a video
// track fed raw access units and a data channel translating browser
// touches into FastMsg events on sender.
type Sink struct {
	sender    input.Sender
	keyframer KeyframeRequester

	mu          sync.Mutex
	connID      string
	pc          *webrtc.PeerConnection
	track       *webrtc.TrackLocalStaticRTP
	packetizer  rtp.Packetizer
	ptsBase     int64
	havePTSBase bool

	touchMu     sync.Mutex
	touchSeq    uint32
	touchActive bool
}

// New builds a Sink forwarding touch input into sender and requesting
// keyframes through kr whenever a connected browser reports loss.
func New(sender input.Sender, kr KeyframeRequester) *Sink {
	return &Sink{sender: sender, keyframer: kr}
}

// PushAccessUnit RTP-packetizes one already-encoded access unit and
// writes it to the current browser connection's video track, a no-op
// when nobody is connected. Grounded on rtp.go's sendNALUAccessUnitAtTS,
// narrowed to this sink's single current peer.
func (s *Sink) PushAccessUnit(payload []byte, ptsMicros int64) {
	s.mu.Lock()
	pk, track := s.packetizer, s.track
	if !s.havePTSBase {
		s.ptsBase = ptsMicros
		s.havePTSBase = true
	}
	base := s.ptsBase
	s.mu.Unlock()
	if pk == nil || track == nil || len(payload) == 0 {
		return
	}

	ts := rtpTimestampFromPTS(ptsMicros, base)
	pkts := pk.Packetize(payload, 0)
	for i, p := range pkts {
		p.Timestamp = ts
		p.Marker = i == len(pkts)-1
		if err := track.WriteRTP(p); err != nil {
			logging.Debugf("previewrtc: write RTP: %v", err)
			return
		}
	}
}

// HandleOffer answers a browser's WebRTC offer, replacing any previous
// connection, grounded on handlers_gin.go's handleOfferGin.
func (s *Sink) HandleOffer(c *gin.Context) {
	var offer webrtc.SessionDescription
	if err := c.ShouldBindJSON(&offer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offer"})
		return
	}

	me := &webrtc.MediaEngine{}
	if err := me.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   rtpClockRate,
			SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
			RTCPFeedback: []webrtc.RTCPFeedback{
				{Type: "nack"},
				{Type: "nack", Parameter: "pli"},
				{Type: "ccm", Parameter: "fir"},
			},
		},
		PayloadType: rtpPayloadType,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register codec"})
		return
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(me))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "peer connection"})
		return
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: rtpClockRate},
		"video", "scrcpy-go",
	)
	if err != nil {
		pc.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "video track"})
		return
	}

	rtpSender, err := pc.AddTrack(track)
	if err != nil {
		pc.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add track"})
		return
	}

	connID := uuid.NewString()

	s.mu.Lock()
	if s.pc != nil {
		s.pc.Close()
	}
	s.connID = connID
	s.pc = pc
	s.track = track
	s.packetizer = rtp.NewPacketizer(rtpMTU, rtpPayloadType, nextSSRC(), &codecs.H264Payloader{}, rtp.NewRandomSequencer(), rtpClockRate)
	s.mu.Unlock()

	logging.Infof("previewrtc: %s: new browser connection", connID)

	go s.readRTCP(rtpSender)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			s.handleTouchMessage(msg.Data)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			logging.Infof("previewrtc: %s: connection %s", connID, state)
			s.clear(pc)
		}
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "set remote description"})
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create answer"})
		return
	}
	gatherDone := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "set local description"})
		return
	}
	<-gatherDone

	if s.keyframer != nil {
		s.keyframer.RequestKeyframe()
	}
	c.JSON(http.StatusOK, pc.LocalDescription())
}

func (s *Sink) clear(pc *webrtc.PeerConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pc == pc {
		s.pc, s.track, s.packetizer = nil, nil, nil
		s.connID = ""
	}
}

// readRTCP watches for PLI/FIR from the browser and asks the device for
// a fresh keyframe, grounded on handlers_gin.go's RTCP reader goroutine.
func (s *Sink) readRTCP(rtpSender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		n, _, err := rtpSender.Read(buf)
		if err != nil {
			return
		}
		pkts, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		for _, pkt := range pkts {
			switch pkt.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				if s.keyframer != nil {
					s.keyframer.RequestKeyframe()
				}
			}
		}
	}
}

// handleTouchMessage decodes one data channel message and relays it as
// a FastMsg touch event, mirroring the down/move/up state machine in
// touch.go's handleTouchEvent without its multi-pointer slot table:
// the browser preview only ever drives a single synthetic finger.
func (s *Sink) handleTouchMessage(data []byte) {
	var ev touchEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		logging.Debugf("previewrtc: malformed touch event: %v", err)
		return
	}
	if s.sender == nil {
		return
	}

	p := input.Point{X: clamp01(ev.X), Y: clamp01(ev.Y)}

	switch ev.Type {
	case "down":
		s.touchMu.Lock()
		s.touchSeq = input.NextFastTouchSeq()
		s.touchActive = true
		seq := s.touchSeq
		s.touchMu.Unlock()
		input.SendFastTouch(s.sender, seq, wire.ActionDown, p)
	case "move":
		s.touchMu.Lock()
		seq, active := s.touchSeq, s.touchActive
		s.touchMu.Unlock()
		if active {
			input.SendFastTouch(s.sender, seq, wire.ActionMove, p)
		}
	case "up", "cancel":
		s.touchMu.Lock()
		seq, active := s.touchSeq, s.touchActive
		s.touchActive = false
		s.touchMu.Unlock()
		if active {
			input.SendFastTouch(s.sender, seq, wire.ActionUp, p)
		}
	default:
		logging.Debugf("previewrtc: unknown touch event type %q", ev.Type)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// rtpTimestampFromPTS converts a scrcpy microsecond PTS into a 90kHz RTP
// timestamp relative to this sink's first access unit, mirroring
// rtp.go's rtpTSFromPTS delta-from-stream-start approach rather than
// scaling the raw (and potentially huge) device PTS directly.
func rtpTimestampFromPTS(ptsMicros, baseMicros int64) uint32 {
	delta := ptsMicros - baseMicros
	if delta < 0 {
		delta = 0
	}
	return uint32((delta * int64(rtpClockRate)) / 1_000_000)
}

var ssrcCounter uint32 = 0x5343

func nextSSRC() uint32 {
	ssrcCounter++
	return ssrcCounter
}
