package input

import (
	"sync"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

// Viewport timer constants, carried over literally from
// inputconvertgame.cpp's constructor (8 ms move-send timer, 15 ms
// centre-repress delay, 100 ms idle timer) and onMouseMoveTimer's 5%
// edge margin.
const (
	viewportMoveTick      = 8 * time.Millisecond
	viewportCenterRepress = 15 * time.Millisecond
	viewportIdleTimeout   = 100 * time.Millisecond
	viewportEdgeMargin    = 0.05
)

// Viewport drives first-person look-around: mouse motion (not position)
// accumulates into a pending delta, an 8ms timer flushes it into
// touch-MOVE events, and edge/idle conditions trigger the lift-wait-
// redown "recentre" protocol. Grounded 1:1 on onMouseMoveTimer/
// onIdleCenterTimer/onCenterRepressTimer.
type Viewport struct {
	mu sync.Mutex

	anchor Point // configured centre ("startPos" in the source)
	sender Sender

	sensX, sensY float64          // look-around sensitivity divisor, per axis
	targetSize   func() (int, int) // device video resolution, read live

	active         bool // cursor is grabbed / viewport mode entered
	touching       bool
	currentPos     Point
	pendingDelta   Point
	seq            uint32

	waitingRepress  bool
	pendingCenter   Point
	pendingOvershoot Point

	moveTimer   *time.Timer
	idleTimer   *time.Timer
	repressTimer *time.Timer
}

// NewViewport creates a viewport state machine anchored at the given
// normalised centre point. sensX/sensY are the look-around sensitivity
// divisors applied to each accumulated pixel delta (<=0 treated as 1,
// i.e. no scaling); targetSize reports the device video resolution the
// scaled delta is then divided by, read on every call so a later resize
// takes effect without rebuilding the viewport.
func NewViewport(anchor Point, sensX, sensY float64, targetSize func() (int, int), sender Sender) *Viewport {
	return &Viewport{anchor: anchor, sensX: sensX, sensY: sensY, targetSize: targetSize, sender: sender}
}

// Enter activates viewport mode: the cursor is hidden by the caller (GUI
// layer) and motion starts driving the synthetic touch-point.
func (v *Viewport) Enter() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = true
}

// Leave deactivates viewport mode and lifts any held touch.
func (v *Viewport) Leave() {
	v.mu.Lock()
	wasTouching := v.touching
	pos := v.currentPos
	seq := v.seq
	v.touching = false
	v.active = false
	v.waitingRepress = false
	v.pendingOvershoot = Point{}
	v.stopTimersLocked()
	v.mu.Unlock()
	if wasTouching {
		sendFastTouch(v.sender, seq, wire.ActionUp, pos)
	}
}

func (v *Viewport) stopTimersLocked() {
	if v.moveTimer != nil {
		v.moveTimer.Stop()
		v.moveTimer = nil
	}
	if v.idleTimer != nil {
		v.idleTimer.Stop()
	}
	if v.repressTimer != nil {
		v.repressTimer.Stop()
	}
}

// OnMouseDelta accumulates one relative mouse-move event given in raw
// window pixels, normalising it into device-space units as
// delta / sensitivity / target_size (inputconvertgame.cpp's
// processMouseMove: distance.setX(delta.x() / speedRatio.x() /
// targetSize.width())), starting the 8ms flush timer on first
// accumulation, per §4.8.
func (v *Viewport) OnMouseDelta(dxPixels, dyPixels float64) {
	v.mu.Lock()
	if !v.active {
		v.mu.Unlock()
		return
	}
	sx, sy := v.sensX, v.sensY
	if sx <= 0 {
		sx = 1
	}
	if sy <= 0 {
		sy = 1
	}
	w, h := 0, 0
	if v.targetSize != nil {
		w, h = v.targetSize()
	}
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	dx := dxPixels / sx / float64(w)
	dy := dyPixels / sy / float64(h)

	var startSeq uint32
	startTouch := !v.touching && !v.waitingRepress
	if startTouch {
		v.seq = nextFastTouchSeq()
		startSeq = v.seq
		v.currentPos = v.anchor
		v.touching = true
	}
	v.pendingDelta.X += dx
	v.pendingDelta.Y += dy
	if v.moveTimer == nil {
		v.moveTimer = time.AfterFunc(viewportMoveTick, v.onMoveTimer)
	}
	anchor := v.anchor
	v.mu.Unlock()
	if startTouch {
		sendFastTouch(v.sender, startSeq, wire.ActionDown, anchor)
	}
}

// onMoveTimer is the 8ms flush tick (onMouseMoveTimer).
func (v *Viewport) onMoveTimer() {
	v.mu.Lock()
	if !v.active {
		v.moveTimer = nil
		v.mu.Unlock()
		return
	}
	// Re-arm for the next tick unconditionally; the source's QTimer is
	// periodic.
	v.moveTimer = time.AfterFunc(viewportMoveTick, v.onMoveTimer)

	if v.waitingRepress {
		v.pendingOvershoot.X += v.pendingDelta.X
		v.pendingOvershoot.Y += v.pendingDelta.Y
		v.pendingDelta = Point{}
		v.mu.Unlock()
		return
	}
	if v.pendingDelta == (Point{}) {
		v.mu.Unlock()
		return
	}

	v.restartIdleTimerLocked()

	newPos := Point{X: v.currentPos.X + v.pendingDelta.X, Y: v.currentPos.Y + v.pendingDelta.Y}
	v.pendingDelta = Point{}

	if outOfBounds(newPos) && v.touching {
		v.stopIdleTimerLocked()
		edge := clampToEdge(newPos)
		seq := v.seq
		touching := v.touching
		v.touching = false
		v.waitingRepress = true
		v.pendingCenter = v.anchor
		v.pendingOvershoot = Point{X: newPos.X - edge.X, Y: newPos.Y - edge.Y}
		if v.repressTimer != nil {
			v.repressTimer.Stop()
		}
		v.repressTimer = time.AfterFunc(viewportCenterRepress, v.onRepressTimer)
		v.mu.Unlock()
		if touching {
			sendFastTouch(v.sender, seq, wire.ActionMove, edge)
			sendFastTouch(v.sender, seq, wire.ActionUp, edge)
		}
		return
	}

	v.currentPos = newPos
	touching := v.touching
	seq := v.seq
	v.mu.Unlock()
	if touching {
		sendFastTouch(v.sender, seq, wire.ActionMove, newPos)
	}
}

func (v *Viewport) restartIdleTimerLocked() {
	if v.idleTimer != nil {
		v.idleTimer.Stop()
	}
	v.idleTimer = time.AfterFunc(viewportIdleTimeout, v.onIdleTimer)
}

func (v *Viewport) stopIdleTimerLocked() {
	if v.idleTimer != nil {
		v.idleTimer.Stop()
	}
}

// onIdleTimer fires when no motion has arrived for viewportIdleTimeout,
// running the same lift/wait/redown protocol as an edge recentre
// (onIdleCenterTimer).
func (v *Viewport) onIdleTimer() {
	v.mu.Lock()
	if v.waitingRepress || !v.touching {
		v.mu.Unlock()
		return
	}
	seq := v.seq
	pos := v.currentPos
	v.touching = false
	v.waitingRepress = true
	v.pendingCenter = v.anchor
	v.pendingOvershoot = Point{}
	if v.repressTimer != nil {
		v.repressTimer.Stop()
	}
	v.repressTimer = time.AfterFunc(viewportCenterRepress, v.onRepressTimer)
	v.mu.Unlock()
	sendFastTouch(v.sender, seq, wire.ActionUp, pos)
}

// onRepressTimer redowns at the anchor after the centre-repress delay,
// then moves by whatever overshoot accumulated while waiting
// (onCenterRepressTimer).
func (v *Viewport) onRepressTimer() {
	v.mu.Lock()
	if !v.waitingRepress {
		v.mu.Unlock()
		return
	}
	v.seq = nextFastTouchSeq()
	seq := v.seq
	center := v.pendingCenter
	v.touching = true

	newCenter := Point{X: center.X + v.pendingOvershoot.X, Y: center.Y + v.pendingOvershoot.Y}
	if outOfBounds(newCenter) {
		newCenter = clampToEdge(newCenter)
	}
	v.currentPos = newCenter
	v.waitingRepress = false
	v.pendingOvershoot = Point{}
	v.restartIdleTimerLocked()
	v.mu.Unlock()

	sendFastTouch(v.sender, seq, wire.ActionDown, center)
	sendFastTouch(v.sender, seq, wire.ActionMove, newCenter)
}

func outOfBounds(p Point) bool {
	lo, hi := viewportEdgeMargin, 1.0-viewportEdgeMargin
	return p.X < lo || p.X > hi || p.Y < lo || p.Y > hi
}

func clampToEdge(p Point) Point {
	lo, hi := viewportEdgeMargin, 1.0-viewportEdgeMargin
	return Point{X: clampRange(p.X, lo, hi), Y: clampRange(p.Y, lo, hi)}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ResetView lifts any held touch and returns to the idle state, the
// script host's reset_view() primitive (script_resetView). An active
// viewport stays active.
func (v *Viewport) ResetView() {
	v.mu.Lock()
	wasActive := v.active
	v.mu.Unlock()
	v.Leave()
	v.mu.Lock()
	v.active = wasActive
	v.currentPos = v.anchor
	v.pendingDelta = Point{}
	v.waitingRepress = false
	v.pendingOvershoot = Point{}
	v.mu.Unlock()
}
