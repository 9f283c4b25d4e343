// Package config parses and validates session configuration: CLI flags via
// the standard flag package plus JSON session/key-map files, matching the
// teacher's combination (adb.Options via registerADBFlags, JSON-tagged
// touch events).
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/mirrorctl/scrcpy-go/internal/screrr"
)

// Transport identifies which channel carries the video/control streams.
type Transport string

const (
	TransportReliableUDP Transport = "reliable-udp"
	TransportTCP         Transport = "tcp"
)

// Orientation lock modes, named per the source's "capture orientation"
// field (§9 open question).
const (
	OrientationLockNone     = 0
	OrientationLockFixed    = 1
	OrientationLockOriginal = 2
)

// Session holds everything needed to start one device session: device
// identity, requested video parameters, transport selection, renderer
// options and persisted-state paths.
type Session struct {
	DeviceID     string `json:"deviceId"`
	AgentPath    string `json:"agentPath"`
	MaxSize      int    `json:"maxSize"`
	BitRate      int    `json:"bitRate"`
	MaxFPS       int    `json:"maxFps"`
	CodecName    string `json:"codecName"`
	Transport    Transport `json:"transport"`
	VideoPort    int    `json:"videoPort"`
	ControlPortOffset int `json:"controlPortOffset"`

	Fullscreen bool `json:"fullscreen"`
	VSync      bool `json:"vsync"`

	KeyMapPath  string `json:"keyMapPath"`
	ScriptDir   string `json:"scriptDir"`

	CaptureOrientationLock int `json:"captureOrientationLock"`
	CaptureOrientation     int `json:"captureOrientation"`

	// Advisory holds any JSON fields this struct doesn't recognise;
	// unrecognised options are preserved, never rejected (§6).
	Advisory map[string]any `json:"-"`
}

const (
	DefaultVideoPort         = 27183
	DefaultControlPortOffset = 1
	DefaultMaxSize           = 720
	DefaultBitRate           = 8_000_000
	DefaultCodecName         = "h264"
)

// Defaults returns a Session populated with the teacher/source's defaults
// (kcpserver.h's ServerParams: maxSize=720, bitRate=8000000, kcpPort=27185
// with control on kcpPort+1 — video port is renumbered to the TCP scrcpy
// default here since TCP is this project's primary transport).
func Defaults() Session {
	return Session{
		MaxSize:           DefaultMaxSize,
		BitRate:           DefaultBitRate,
		CodecName:         DefaultCodecName,
		Transport:         TransportTCP,
		VideoPort:         DefaultVideoPort,
		ControlPortOffset: DefaultControlPortOffset,
		VSync:             true,
	}
}

// SelectTransport chooses reliable-UDP for network device identifiers
// (containing ':', e.g. "192.168.1.5:5555") and TCP for local/USB serials,
// grounded on adb.Options.Serial's string handling and kcpserver.h's
// IP:PORT convention for wifi/KCP mode.
func SelectTransport(deviceID string) Transport {
	if strings.Contains(deviceID, ":") {
		return TransportReliableUDP
	}
	return TransportTCP
}

// LoadJSON parses raw JSON into a Session seeded with Defaults(), capturing
// unrecognised fields into Advisory rather than rejecting them.
func LoadJSON(raw []byte) (Session, error) {
	s := Defaults()
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, screrr.Wrap(screrr.InvalidParameter, err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err == nil {
		known := map[string]bool{
			"deviceId": true, "agentPath": true, "maxSize": true, "bitRate": true,
			"maxFps": true, "codecName": true, "transport": true, "videoPort": true,
			"controlPortOffset": true, "fullscreen": true, "vsync": true,
			"keyMapPath": true, "scriptDir": true, "captureOrientationLock": true,
			"captureOrientation": true,
		}
		adv := map[string]any{}
		for k, v := range generic {
			if !known[k] {
				adv[k] = v
			}
		}
		if len(adv) > 0 {
			s.Advisory = adv
		}
	}
	return s, s.Validate()
}

// RegisterFlags wires the CLI flag surface, grounded on streaming.go's
// registerADBFlags.
func RegisterFlags(fs *flag.FlagSet, deviceID string) func() Session {
	s := Defaults()
	s.DeviceID = deviceID
	maxSize := fs.Int("max-size", s.MaxSize, "maximum video dimension requested from the agent")
	bitRate := fs.Int("bit-rate", s.BitRate, "requested encoder bitrate in bits/second")
	maxFPS := fs.Int("max-fps", s.MaxFPS, "maximum frames per second requested from the agent (0 = unlimited)")
	codecName := fs.String("codec", s.CodecName, "preferred codec: h264 or h265")
	transport := fs.String("transport", string(s.Transport), "reliable-udp or tcp (empty = auto-select by device id)")
	videoPort := fs.Int("video-port", s.VideoPort, "local port the agent connects back to for video")
	keyMapPath := fs.String("keymap", "", "path to a key-map JSON file")
	scriptDir := fs.String("script-dir", "", "directory of key-map scripts")
	orientLock := fs.Int("orientation-lock", OrientationLockNone, "0=none 1=fixed 2=original")
	orient := fs.Int("orientation", 0, "capture orientation in degrees, only meaningful with -orientation-lock=1")

	return func() Session {
		out := s
		out.MaxSize = *maxSize
		out.BitRate = *bitRate
		out.MaxFPS = *maxFPS
		out.CodecName = *codecName
		if *transport != "" {
			out.Transport = Transport(*transport)
		} else {
			out.Transport = SelectTransport(deviceID)
		}
		out.VideoPort = *videoPort
		out.KeyMapPath = *keyMapPath
		out.ScriptDir = *scriptDir
		out.CaptureOrientationLock = *orientLock
		out.CaptureOrientation = *orient
		return out
	}
}

// Validate rejects configuration combinations the source leaves ambiguous
// rather than guessing: mode "original" (2) paired with a non-zero
// orientation is unspecified behaviour in the source and is rejected here
// per the §9 open-question decision.
func (s Session) Validate() error {
	if s.CaptureOrientationLock == OrientationLockOriginal && s.CaptureOrientation != 0 {
		return screrr.Wrap(screrr.InvalidParameter,
			fmt.Errorf("captureOrientationLock=original (2) with non-zero captureOrientation (%d) is undefined", s.CaptureOrientation))
	}
	if s.Transport != TransportReliableUDP && s.Transport != TransportTCP {
		return screrr.Wrap(screrr.InvalidParameter, fmt.Errorf("unknown transport %q", s.Transport))
	}
	if s.MaxSize < 0 || s.BitRate < 0 || s.MaxFPS < 0 {
		return screrr.New(screrr.InvalidParameter)
	}
	return nil
}
