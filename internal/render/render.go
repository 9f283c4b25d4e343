// Package render implements the renderer (C6): an SDL2 window driving a
// streaming YUV texture fed from the frame-pool mailbox. Grounded on
// video/display.go (sdl.Init/CreateWindow/CreateRenderer/CreateTexture/
// texture.Update/renderer.Copy/Present, the Poll-for-quit loop), expanded
// with a rotating double-staging-buffer upload per plane and NV12 support
// per spec.md §4.6.
package render

import (
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/mirrorctl/scrcpy-go/internal/framepool"
	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/metrics"
)

// hiddenTimerInterval is how long the GUI loop in main waits after a
// DrawOnce that found no frame. The loop calls DrawOnce whether or not the
// window is visible, so the mailbox keeps being drained while hidden.
const hiddenTimerInterval = 100 * time.Millisecond

// InputEvent is a GUI-thread input observation handed to the input
// converter (C8); Renderer only pumps SDL's event queue and translates
// events into this shape, it does not interpret them.
type InputEvent struct {
	Quit          bool
	MouseMoveX    int32
	MouseMoveY    int32
	MouseMoved    bool
	MouseButton   *MouseButtonEvent
	Key           *KeyEvent
	WindowResized *WindowResizedEvent
}

type WindowResizedEvent struct{ W, H int32 }

type MouseButtonEvent struct {
	Button sdl.MouseButtonID
	Down   bool
	X, Y   int32
}

type KeyEvent struct {
	Keycode sdl.Keycode
	Down    bool
	Repeat  bool
}

// Renderer owns the SDL window/renderer/texture and the frame mailbox it
// drains every draw tick.
type Renderer struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	mailbox *framepool.Mailbox
	mon     *metrics.Monitor

	width, height int
	semiPlanar    bool

	// staging holds two alternating byte buffers per plane pipeline stage:
	// stagingNext is filled from the just-acquired frame, stagingPrev is
	// what was uploaded last tick, per §4.6 step 3.
	stagingPrev, stagingNext []byte

	lastFrameAt time.Time
}

// New creates the window sized to w×h. Title/fullscreen/vsync mirror the
// session config's renderer options.
func New(title string, w, h int, fullscreen, vsync bool, mailbox *framepool.Mailbox, mon *metrics.Monitor) (*Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE)
	if fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w), int32(h), flags)
	if err != nil {
		return nil, err
	}
	rendFlags := uint32(sdl.RENDERER_ACCELERATED)
	if vsync {
		rendFlags |= sdl.RENDERER_PRESENTVSYNC
	}
	rend, err := sdl.CreateRenderer(win, -1, rendFlags)
	if err != nil {
		return nil, err
	}
	r := &Renderer{window: win, renderer: rend, mailbox: mailbox, mon: mon}
	if err := r.resizeTexture(w, h, false); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) resizeTexture(w, h int, semiPlanar bool) error {
	if r.texture != nil {
		r.texture.Destroy()
	}
	format := uint32(sdl.PIXELFORMAT_IYUV)
	if semiPlanar {
		format = sdl.PIXELFORMAT_NV12
	}
	tex, err := r.renderer.CreateTexture(format, sdl.TEXTUREACCESS_STREAMING, int32(w), int32(h))
	if err != nil {
		return err
	}
	r.texture = tex
	r.width, r.height, r.semiPlanar = w, h, semiPlanar
	size := planeBytesSize(w, h, semiPlanar)
	r.stagingPrev = make([]byte, size)
	r.stagingNext = make([]byte, size)
	return nil
}

func planeBytesSize(w, h int, semiPlanar bool) int {
	luma := w * h
	chroma := ((w + 1) / 2) * ((h + 1) / 2)
	if semiPlanar {
		return luma + 2*chroma // interleaved UV plane is double-width-per-sample but half the rows
	}
	return luma + 2*chroma
}

// DrawOnce performs one mailbox-take → upload → present cycle, returning
// false if nothing was available (the caller's poll loop should not treat
// this as an error; the renderer never blocks on a new frame).
func (r *Renderer) DrawOnce() bool {
	f := r.mailbox.Take()
	if f == nil {
		return false
	}
	start := time.Now()
	defer f.Release()

	if f.Width != r.width || f.Height != r.height || f.SemiPlanar != r.semiPlanar {
		if err := r.resizeTexture(f.Width, f.Height, f.SemiPlanar); err != nil {
			logging.Errorf("render: resize texture: %v", err)
			return false
		}
	}

	r.packPlanes(f)
	// Pipeline: update the texture from the *previous* tick's staged bytes
	// (stagingPrev), then rotate, so GPU upload of tick N overlaps with CPU
	// packing of tick N+1's plane data, per §4.6 step 3.
	if err := r.texture.Update(nil, r.stagingPrev, r.rowBytes()); err != nil {
		logging.Errorf("render: texture update: %v", err)
	}
	r.stagingPrev, r.stagingNext = r.stagingNext, r.stagingPrev

	r.renderer.Copy(r.texture, nil, nil)
	r.renderer.Present()

	if r.mon != nil {
		r.mon.RenderLatency.Add(int64(time.Since(start)))
	}
	r.lastFrameAt = time.Now()
	return true
}

// Size reports the current texture dimensions, used by the input
// converter to normalise pixel-space mouse coordinates.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

func (r *Renderer) rowBytes() int { return r.width }

// packPlanes concatenates the frame's planes (Y then U,V or Y then UV)
// into stagingNext in the exact layout CreateTexture's streaming format
// expects for Update's single contiguous-pitch argument.
func (r *Renderer) packPlanes(f *framepool.Frame) {
	n := 0
	n += packPlane(r.stagingNext[n:], f.Y, f.StrideY, r.width, f.Height)
	if f.SemiPlanar {
		packPlane(r.stagingNext[n:], f.UV, f.StrideUV, 2*((r.width+1)/2), (f.Height+1)/2)
		return
	}
	n += packPlane(r.stagingNext[n:], f.U, f.StrideU, (r.width+1)/2, (f.Height+1)/2)
	packPlane(r.stagingNext[n:], f.V, f.StrideV, (r.width+1)/2, (f.Height+1)/2)
}

func packPlane(dst, src []byte, srcStride, width, rows int) int {
	n := 0
	for row := 0; row < rows; row++ {
		so := row * srcStride
		if so+width > len(src) {
			break
		}
		n += copy(dst[n:n+width], src[so:so+width])
	}
	return n
}

// PollEvents drains SDL's event queue and returns the translated events
// since the last call. Called from the GUI thread only.
func (r *Renderer) PollEvents() []InputEvent {
	var out []InputEvent
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			out = append(out, InputEvent{Quit: true})
		case *sdl.MouseMotionEvent:
			out = append(out, InputEvent{MouseMoved: true, MouseMoveX: e.X, MouseMoveY: e.Y})
		case *sdl.MouseButtonEvent:
			out = append(out, InputEvent{MouseButton: &MouseButtonEvent{Button: sdl.MouseButtonID(e.Button), Down: e.State == sdl.PRESSED, X: e.X, Y: e.Y}})
		case *sdl.KeyboardEvent:
			out = append(out, InputEvent{Key: &KeyEvent{Keycode: e.Keysym.Sym, Down: e.State == sdl.PRESSED, Repeat: e.Repeat != 0}})
		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				out = append(out, InputEvent{WindowResized: &WindowResizedEvent{W: e.Data1, H: e.Data2}})
			}
		}
	}
	return out
}

// IdleTick runs one DrawOnce cycle. Nothing in this module calls it: the
// GUI loop in main calls DrawOnce directly on every iteration.
func (r *Renderer) IdleTick() { r.DrawOnce() }

func (r *Renderer) HiddenTimerInterval() time.Duration { return hiddenTimerInterval }

func (r *Renderer) Close() {
	if r.texture != nil {
		r.texture.Destroy()
	}
	r.renderer.Destroy()
	r.window.Destroy()
	sdl.Quit()
}
