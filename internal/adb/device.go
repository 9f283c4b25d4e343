// Package adb wraps the minimal subset of adb interactions required to
// bootstrap the on-device agent and channel the resulting connections,
// adapted from the teacher's adb/device.go: the same adb-invocation and
// TCP_NODELAY conventions, generalized to accept the full set of agent
// launch parameters (codec, bitrate, orientation lock) the session
// configuration carries instead of a hardcoded server invocation.
package adb

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultScrcpyPort is the local TCP port the on-device agent connects back
// to. It connects twice: first with the video stream, then the control
// socket for input events.
const DefaultScrcpyPort = 27183

// AgentParams are the launch-time parameters forwarded to the on-device
// agent process, grounded on kcpserver.h's ServerParams (maxSize, bitRate,
// maxFps, captureOrientationLock/Orientation, serverVersion, logLevel,
// control).
type AgentParams struct {
	ServerVersion          string
	MaxSize                int
	BitRate                int
	MaxFPS                 int
	LogLevel               string
	CaptureOrientationLock int
	CaptureOrientation     int
	CodecName              string
	Control                bool
}

func DefaultAgentParams() AgentParams {
	return AgentParams{
		ServerVersion: "3.3.2",
		MaxSize:       720,
		BitRate:       8_000_000,
		LogLevel:      "debug",
		CodecName:     "h264",
		Control:       true,
	}
}

// codecOptions renders the agent's key=value option string from the
// requested codec name, the way real scrcpy servers accept "codec=h265".
func (p AgentParams) codecOptions() string {
	var opts []string
	opts = append(opts, fmt.Sprintf("max_size=%d", p.MaxSize))
	opts = append(opts, fmt.Sprintf("bit_rate=%d", p.BitRate))
	if p.MaxFPS > 0 {
		opts = append(opts, fmt.Sprintf("max_fps=%d", p.MaxFPS))
	}
	if p.CodecName != "" {
		opts = append(opts, fmt.Sprintf("video_codec=%s", p.CodecName))
	}
	if p.CaptureOrientationLock != 0 {
		opts = append(opts, fmt.Sprintf("capture_orientation_lock=%d", p.CaptureOrientationLock))
		opts = append(opts, fmt.Sprintf("capture_orientation=%d", p.CaptureOrientation))
	}
	opts = append(opts, "audio=false")
	opts = append(opts, fmt.Sprintf("control=%t", p.Control))
	return strings.Join(opts, " ")
}

// Options configure how adb is invoked and which local TCP port the agent
// should reach when it connects back to the host.
type Options struct {
	Serial     string
	ServerHost string
	ServerPort int
	ScrcpyPort int
	Agent      AgentParams
}

// Device encapsulates adb interactions with a specific target.
type Device struct {
	opts Options
}

func normalizeOptions(opts Options) Options {
	if opts.ScrcpyPort == 0 {
		opts.ScrcpyPort = DefaultScrcpyPort
	}
	if opts.Agent.ServerVersion == "" {
		opts.Agent = DefaultAgentParams()
	}
	return opts
}

func buildADBArgs(opts Options, includeSerial bool, extra ...string) []string {
	args := make([]string, 0, 4+len(extra))
	if opts.ServerHost != "" {
		args = append(args, "-H", opts.ServerHost)
	}
	if opts.ServerPort != 0 {
		args = append(args, "-P", strconv.Itoa(opts.ServerPort))
	}
	if includeSerial && opts.Serial != "" {
		args = append(args, "-s", opts.Serial)
	}
	args = append(args, extra...)
	return args
}

// NewDevice ensures the adb server is reachable and returns a configured Device.
func NewDevice(opts Options) (*Device, error) {
	opts = normalizeOptions(opts)
	cmd := exec.Command("adb", buildADBArgs(opts, false, "start-server")...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("start adb server: %w (%s)", err, string(out))
	}
	return &Device{opts: opts}, nil
}

const remoteAgentPath = "/data/local/tmp/scrcpy-server.jar"

// PushServer uploads the agent jar into a temporary directory on device.
func (d *Device) PushServer(localPath string) error {
	args := buildADBArgs(d.opts, true, "push", localPath, remoteAgentPath)
	cmd := exec.Command("adb", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("push server: %w (%s)", err, string(out))
	}
	return nil
}

// ServerConn holds both streams created by the agent.
type ServerConn struct {
	VideoStream io.ReadWriteCloser
	Control     io.ReadWriteCloser
}

// StartServer launches the agent through adb shell with the configured
// codec/bitrate/orientation options and waits for both channels to
// connect back.
func (d *Device) StartServer() (*ServerConn, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", d.opts.ScrcpyPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	args := buildADBArgs(d.opts, true,
		"shell",
		"CLASSPATH="+remoteAgentPath,
		"app_process",
		"/",
		"com.genymobile.scrcpy.Server",
		d.opts.Agent.ServerVersion,
		d.opts.Agent.codecOptions(),
	)
	cmd := exec.Command("adb", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server: %w", err)
	}
	go cmd.Wait()

	videoConn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("accept video stream: %w", err)
	}
	if err := setNoDelay(videoConn); err != nil {
		videoConn.Close()
		return nil, fmt.Errorf("set video TCP_NODELAY: %w", err)
	}

	if !d.opts.Agent.Control {
		return &ServerConn{VideoStream: videoConn}, nil
	}

	controlConn, err := ln.Accept()
	if err != nil {
		videoConn.Close()
		return nil, fmt.Errorf("accept control channel: %w", err)
	}
	if err := setNoDelay(controlConn); err != nil {
		videoConn.Close()
		controlConn.Close()
		return nil, fmt.Errorf("set control TCP_NODELAY: %w", err)
	}

	return &ServerConn{
		VideoStream: videoConn,
		Control:     controlConn,
	}, nil
}

func setNoDelay(c net.Conn) error {
	if tcpConn, ok := c.(*net.TCPConn); ok {
		return tcpConn.SetNoDelay(true)
	}
	return nil
}

// ScrcpyPort returns the effective local port used for reverse connections.
func (d *Device) ScrcpyPort() int {
	return d.opts.ScrcpyPort
}

// Forward sets up classic adb forward (kept for parity; unused by the
// reverse-connect flow).
func (d *Device) Forward(local string) error {
	args := buildADBArgs(d.opts, true, "forward", local, "localabstract:scrcpy")
	cmd := exec.Command("adb", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("forward: %w (%s)", err, string(out))
	}
	return nil
}

// Reverse asks the device to connect back to the given local endpoint.
func (d *Device) Reverse(remote, local string) error {
	args := buildADBArgs(d.opts, true, "reverse", remote, local)
	cmd := exec.Command("adb", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("reverse: %w (%s)", err, string(out))
	}
	return nil
}

// ADBDevice represents one device as reported by `adb devices`.
type ADBDevice struct {
	Serial string
	State  string
}

// ListDevices runs `adb devices` and parses the output.
func ListDevices(opts Options) ([]ADBDevice, error) {
	args := buildADBArgs(opts, false, "devices")
	cmd := exec.Command("adb", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w (%s)", err, string(out))
	}
	return parseDevicesOutput(string(out)), nil
}

// parseDevicesOutput parses `adb devices`'s "<serial>\t<state>" lines,
// skipping the "List of devices attached" header.
func parseDevicesOutput(output string) []ADBDevice {
	devices := []ADBDevice{}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			devices = append(devices, ADBDevice{Serial: parts[0], State: parts[1]})
		}
	}
	return devices
}
