// Command scrcpy-go mirrors one Android device's screen and forwards mouse
// and keyboard input back to it. Grounded on main.go's connectToDevice/
// startVideoLoop/initHTTP shape, rebuilt on top of the internal/session
// state machine instead of the teacher's package-level globals.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/mirrorctl/scrcpy-go/internal/adb"
	"github.com/mirrorctl/scrcpy-go/internal/config"
	"github.com/mirrorctl/scrcpy-go/internal/framepool"
	"github.com/mirrorctl/scrcpy-go/internal/keymap"
	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/metrics"
	"github.com/mirrorctl/scrcpy-go/internal/previewrtc"
	"github.com/mirrorctl/scrcpy-go/internal/render"
	"github.com/mirrorctl/scrcpy-go/internal/session"
)

func init() {
	// SDL's window/event APIs must only ever be touched from the thread
	// that created the window.
	runtime.LockOSThread()
}

func main() {
	deviceFlag := flag.String("device", "", "adb serial or ip:port (empty = first device adb reports)")
	previewFlag := flag.Bool("preview", false, "serve a browser WebRTC preview alongside the SDL window")
	previewAddr := flag.String("preview-addr", ":8080", "address the browser preview HTTP server listens on")
	previewWebRoot := flag.String("preview-web-root", "", "directory of static files (preview page + JS) served at /")
	verbose := flag.Bool("v", false, "debug logging")
	buildCfg := config.RegisterFlags(flag.CommandLine, "")
	flag.Parse()

	if *verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	deviceID, err := resolveDeviceID(*deviceFlag)
	if err != nil {
		logging.Fatalf("main: %v", err)
	}

	cfg := buildCfg()
	cfg.DeviceID = deviceID
	if cfg.Transport == "" {
		cfg.Transport = config.SelectTransport(deviceID)
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatalf("main: invalid configuration: %v", err)
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		logging.Fatalf("main: sdl init: %v", err)
	}
	defer sdl.Quit()

	mon := metrics.NewMonitor("scrcpy-go")
	mailbox := &framepool.Mailbox{}

	renderer, err := render.New(fmt.Sprintf("scrcpy-go: %s", deviceID), cfg.MaxSize, cfg.MaxSize, cfg.Fullscreen, cfg.VSync, mailbox, mon)
	if err != nil {
		logging.Fatalf("main: renderer: %v", err)
	}
	defer renderer.Close()

	machine := session.New(cfg, renderer, mailbox, mon)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	goSafe("signal-watch", func() {
		<-sigCh
		logging.Infof("main: signal received, stopping")
		machine.Stop()
		cancel()
	})

	if err := machine.Start(ctx); err != nil {
		logging.Fatalf("main: session start: %v", err)
	}
	defer machine.Stop()
	if machine.Input != nil {
		machine.Input.SetSize(cfg.MaxSize, cfg.MaxSize)
	}

	var previewSrv *previewrtc.Server
	if *previewFlag {
		sender := machine.ControlSender()
		sink := previewrtc.New(sender, sender)
		machine.SetPreview(sink)
		previewSrv = previewrtc.NewServer(sink, *previewAddr, *previewWebRoot)
		goSafe("preview-server", func() {
			logging.Infof("main: browser preview listening on %s", *previewAddr)
			if err := previewSrv.ListenAndServe(); err != nil {
				logging.Errorf("main: preview server: %v", err)
			}
		})
		defer previewSrv.Close(500 * time.Millisecond)
	}

	bindings, keyByCode := loadKeyMap(cfg, machine)

	runEventLoop(ctx, renderer, machine, bindings, keyByCode)
}

// resolveDeviceID returns requested as-is if non-empty, otherwise picks the
// first device `adb devices` reports, mirroring connectToDevice's implicit
// single-device assumption but making the fallback explicit.
func resolveDeviceID(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	devices, err := adb.ListDevices(adb.Options{})
	if err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("no adb devices found; pass -device explicitly")
	}
	return devices[0].Serial, nil
}

// loadKeyMap loads and binds cfg.KeyMapPath's entries, if any, returning
// the bindings plus an SDL-keycode index into them built from each
// androidKey/steerWheel/script entry's Key name.
func loadKeyMap(cfg config.Session, machine *session.Machine) ([]keymap.Binding, map[sdl.Keycode]int) {
	if cfg.KeyMapPath == "" {
		return nil, nil
	}
	km, err := keymap.Load(cfg.KeyMapPath)
	if err != nil {
		logging.Errorf("main: keymap: %v", err)
		return nil, nil
	}
	// find_image is not wired to a frame source here: the renderer has no
	// pixel-readback path, only a GPU-uploaded texture.
	grab := func() ([]byte, int, int) { return nil, 0, 0 }
	host := keymap.NewHost(machine.Input, machine.ControlSender(), grab)
	bindings := keymap.Bind(km, machine.Input, host)

	byCode := make(map[sdl.Keycode]int, len(km.Entries))
	for i, e := range km.Entries {
		if e.Key == "" {
			continue
		}
		if code := sdl.GetKeyFromName(e.Key); code != sdl.K_UNKNOWN {
			byCode[code] = i
		}
	}
	return bindings, byCode
}

// runEventLoop drives the GUI thread: translate SDL events into input
// converter calls and key-map dispatch, draw, repeat until quit or ctx is
// cancelled. Grounded on video/display.go's render loop, generalized past
// its bare Poll-for-quit shape to the full input pipeline.
func runEventLoop(ctx context.Context, renderer *render.Renderer, machine *session.Machine, bindings []keymap.Binding, keyByCode map[sdl.Keycode]int) {
	var lastX, lastY int32
	haveLast := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		quit := false
		for _, ev := range renderer.PollEvents() {
			switch {
			case ev.Quit:
				quit = true
			case ev.MouseMoved:
				dx, dy := int32(0), int32(0)
				if haveLast {
					dx, dy = ev.MouseMoveX-lastX, ev.MouseMoveY-lastY
				}
				lastX, lastY = ev.MouseMoveX, ev.MouseMoveY
				haveLast = true
				if machine.Input != nil {
					machine.Input.OnMouseMove(ev.MouseMoveX, ev.MouseMoveY, dx, dy)
				}
			case ev.MouseButton != nil:
				b := ev.MouseButton
				if machine.Input != nil {
					machine.Input.OnMouseButton(b.Button, b.Down, b.X, b.Y)
				}
			case ev.Key != nil:
				k := ev.Key
				if machine.Input != nil {
					machine.Input.OnKey(k.Keycode, sdl.GetModState(), k.Down, k.Repeat)
				}
				if idx, ok := keyByCode[k.Keycode]; ok && bindings != nil {
					if k.Down && !k.Repeat {
						bindings[idx].KeyDown()
					} else if !k.Down {
						bindings[idx].KeyUp()
					}
				}
			case ev.WindowResized != nil:
				logging.Debugf("main: window resized to %dx%d", ev.WindowResized.W, ev.WindowResized.H)
				if machine.Input != nil {
					machine.Input.SetSize(int(ev.WindowResized.W), int(ev.WindowResized.H))
				}
			}
		}
		if quit {
			return
		}

		if !renderer.DrawOnce() {
			time.Sleep(renderer.HiddenTimerInterval())
			continue
		}
	}
}

// goSafe launches fn on its own goroutine, logging (not crashing the
// process on) any panic, mirroring main.go's goSafe.
func goSafe(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Errorf("panic in %s: %v\n%s", name, r, debug.Stack())
			}
		}()
		fn()
	}()
}
