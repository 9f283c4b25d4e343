package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

// Mode selects which of the three interactive input schemes owns mouse
// motion and buttons.
type Mode int

const (
	ModeCursor Mode = iota
	ModeViewport
	ModeSteerWheel
)

// Converter dispatches render.InputEvent values (via Feed) to the active
// mode's handler and to the shared keyboard translator. It owns no
// transport state beyond the Sender it was built with.
type Converter struct {
	sender   Sender
	registry *touchRegistry
	keyboard *keyboard

	mode Mode

	cursor   *cursorMode
	viewport *Viewport
	wheel    *SteerWheel

	windowW, windowH int // live SDL window pixel size, for mouse normalisation
	targetW, targetH int // negotiated device video resolution
}

// NewConverter builds a converter in cursor mode, seeded with the
// negotiated device video resolution. Call SetSize once the GUI knows
// the real window pixel size, and SetViewport/SetSteerWheel to install
// the other modes' configured state before switching to them with
// SetMode.
func NewConverter(sender Sender, targetW, targetH int) *Converter {
	r := newTouchRegistry()
	return &Converter{
		sender:   sender,
		registry: r,
		keyboard: newKeyboard(sender),
		cursor:   newCursorMode(r),
		windowW:  targetW,
		windowH:  targetH,
		targetW:  targetW,
		targetH:  targetH,
	}
}

// SetSize updates the live SDL window pixel dimensions used to normalise
// mouse coordinates, called at startup and whenever the renderer reports
// a resize.
func (c *Converter) SetSize(w, h int) {
	c.windowW, c.windowH = w, h
}

// SetTargetSize updates the negotiated device video resolution cursor
// mode scales clicks into and viewport mode divides look deltas by,
// called once a CONFIG packet reveals the real size.
func (c *Converter) SetTargetSize(w, h int) {
	c.targetW, c.targetH = w, h
}

// targetSize reports the current device video resolution, read by the
// viewport on every accumulated delta so a later CONFIG resize takes
// effect without rebuilding the viewport.
func (c *Converter) targetSize() (int, int) {
	return c.targetW, c.targetH
}

// SetViewport installs the viewport state machine, anchored at the given
// normalised centre point and scaling look-around deltas by sensX/sensY
// (1 disables scaling on that axis).
func (c *Converter) SetViewport(anchor Point, sensX, sensY float64) {
	c.viewport = NewViewport(anchor, sensX, sensY, c.targetSize, c.sender)
}

// SetSteerWheel installs the steer-wheel virtual joystick, centred at
// center with the given per-direction extend magnitudes.
func (c *Converter) SetSteerWheel(center Point, up, down, left, right float64) {
	c.wheel = NewSteerWheel(center, up, down, left, right, c.sender)
}

// SetMode switches the active mouse-driving mode, leaving the previously
// active viewport (if any) so it lifts any held touch.
func (c *Converter) SetMode(m Mode) {
	if c.mode == ModeViewport && m != ModeViewport && c.viewport != nil {
		c.viewport.Leave()
	}
	c.mode = m
	if m == ModeViewport && c.viewport != nil {
		c.viewport.Enter()
	}
}

func (c *Converter) normalize(x, y int32) Point {
	w, h := c.windowW, c.windowH
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return Point{X: float64(x) / float64(w), Y: float64(y) / float64(h)}
}

// OnMouseButton handles a button transition at pixel coordinates (x, y).
func (c *Converter) OnMouseButton(button sdl.MouseButtonID, down bool, x, y int32) {
	if c.mode != ModeCursor {
		return
	}
	c.cursor.OnButton(c.sender, button == sdl.BUTTON_LEFT, down, c.normalize(x, y), c.targetW, c.targetH)
}

// OnMouseMove handles absolute mouse position (cursor mode) or a relative
// pixel delta (viewport mode), per the active mode. Viewport deltas are
// passed through raw; the viewport itself divides by sensitivity and the
// device target resolution, per spec.md §4.8.
func (c *Converter) OnMouseMove(x, y, dx, dy int32) {
	switch c.mode {
	case ModeCursor:
		c.cursor.OnMove(c.sender, c.normalize(x, y), c.targetW, c.targetH)
	case ModeViewport:
		if c.viewport == nil {
			return
		}
		c.viewport.OnMouseDelta(float64(dx), float64(dy))
	}
}

// OnKey handles a keyboard event, independent of the active mouse mode.
// Direction keys are routed to the steer wheel when that mode is active
// and the key matches an arrow/WASD binding; everything else goes to the
// keyboard-to-Android translator.
func (c *Converter) OnKey(key sdl.Keycode, mods sdl.Keymod, down, repeat bool) {
	if c.mode == ModeSteerWheel && c.wheel != nil && !repeat {
		if dir, ok := steerDirectionFor(key); ok {
			c.wheel.SetKey(dir, down)
			return
		}
	}
	c.keyboard.OnKey(key, mods, down, repeat)
}

func steerDirectionFor(key sdl.Keycode) (Direction, bool) {
	switch key {
	case sdl.K_w, sdl.K_UP:
		return DirUp, true
	case sdl.K_s, sdl.K_DOWN:
		return DirDown, true
	case sdl.K_a, sdl.K_LEFT:
		return DirLeft, true
	case sdl.K_d, sdl.K_RIGHT:
		return DirRight, true
	}
	return 0, false
}

// ResetView returns an active viewport to its anchor, the script host's
// reset_view() primitive.
func (c *Converter) ResetView() {
	if c.viewport != nil {
		c.viewport.ResetView()
	}
}

// SetRadialParam re-tunes the steer wheel's extend magnitudes, the script
// host's set_radial_param() primitive.
func (c *Converter) SetRadialParam(up, down, left, right float64) {
	if c.wheel != nil {
		c.wheel.SetRadialParam(up, down, left, right)
	}
}

// DirectionReset releases the steer wheel's four bound directions, the
// script host's direction_reset() primitive. It clears each direction's
// pressed state on the wheel; if the wheel's touch is down, the wheel
// sends one touch UP, so a script interrupting a held movement can't
// leave it stuck.
func (c *Converter) DirectionReset() {
	if c.wheel == nil {
		return
	}
	c.wheel.SetKey(DirUp, false)
	c.wheel.SetKey(DirDown, false)
	c.wheel.SetKey(DirLeft, false)
	c.wheel.SetKey(DirRight, false)
}

// SendRawKey sends a raw FastMsg key event directly, bypassing keyboard
// translation. The script host's key() primitive uses this to send
// symbolic keys (e.g. "BACK", "HOME") that don't correspond to any SDL
// keycode.
func (c *Converter) SendRawKey(action byte, keycode uint16) {
	msg := wire.FastKey{Action: action, Keycode: keycode}
	c.sender.Send(msg.Encode())
}

// MousePos reports the viewport's last synthetic touch position: the zero
// point before the first touch, and the anchor after a ResetView. No
// script primitive is bound to it.
func (c *Converter) MousePos() Point {
	if c.viewport == nil {
		return Point{}
	}
	c.viewport.mu.Lock()
	defer c.viewport.mu.Unlock()
	return c.viewport.currentPos
}
