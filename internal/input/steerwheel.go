package input

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

// Steer-wheel interpolation constants, carried over literally from
// processSteerWheel's getDelayQueue call: 0.01 distance step, 0.002
// position jitter, 2-8ms inter-event delay.
const (
	steerDistanceStep = 0.01
	steerPosJitter    = 0.002
	steerDelayLowMS   = 2
	steerDelayHighMS  = 8
)

// Direction identifies one of the wheel's four bound keys.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// SteerWheel is a virtual joystick centred at a configured point with
// independently boundable up/down/left/right keys, each contributing an
// "extend" offset when held. Grounded on processSteerWheel/
// onSteerWheelTimer/getDelayQueue.
type SteerWheel struct {
	mu sync.Mutex

	center  Point
	extends [4]float64 // indexed by Direction
	pressed [4]bool

	sender Sender
	seq    uint32
	active bool // a DOWN has been sent and not yet matched by UP

	queue      []Point
	queueTimer *time.Timer
	current    Point
}

// NewSteerWheel creates a wheel centred at center with the given
// up/down/left/right extend magnitudes (normalised screen units).
func NewSteerWheel(center Point, extendUp, extendDown, extendLeft, extendRight float64, sender Sender) *SteerWheel {
	return &SteerWheel{
		center:  center,
		extends: [4]float64{extendUp, extendDown, extendLeft, extendRight},
		sender:  sender,
	}
}

// SetRadialParam re-tunes the four extend magnitudes, the script host's
// set_radial_param primitive.
func (w *SteerWheel) SetRadialParam(up, down, left, right float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.extends = [4]float64{up, down, left, right}
}

// SetKey updates one direction's pressed state and recomputes the target
// offset, exactly mirroring processSteerWheel's per-key branch plus the
// shared offset-recompute tail.
func (w *SteerWheel) SetKey(dir Direction, down bool) {
	w.mu.Lock()
	w.pressed[dir] = down

	var offset Point
	pressedNum := 0
	if w.pressed[DirUp] {
		pressedNum++
		offset.Y -= w.extends[DirUp]
	}
	if w.pressed[DirRight] {
		pressedNum++
		offset.X += w.extends[DirRight]
	}
	if w.pressed[DirDown] {
		pressedNum++
		offset.Y += w.extends[DirDown]
	}
	if w.pressed[DirLeft] {
		pressedNum++
		offset.X -= w.extends[DirLeft]
	}

	if pressedNum == 0 {
		w.stopQueueLocked()
		wasActive := w.active
		seq := w.seq
		pos := w.current
		w.active = false
		w.mu.Unlock()
		if wasActive {
			sendFastTouch(w.sender, seq, wire.ActionUp, pos)
		}
		return
	}

	w.stopQueueLocked()
	target := Point{X: w.center.X + offset.X, Y: w.center.Y + offset.Y}

	firstPress := pressedNum == 1 && down
	var from Point
	if firstPress {
		w.seq = nextFastTouchSeq()
		w.current = w.center
		from = w.center
		w.active = true
	} else {
		from = w.current
	}
	queue := buildDelayQueue(from, target, steerDistanceStep, steerPosJitter)
	w.queue = queue
	seq := w.seq
	w.mu.Unlock()

	if firstPress {
		sendFastTouch(w.sender, seq, wire.ActionDown, w.center)
	}
	w.scheduleNext()
}

func (w *SteerWheel) stopQueueLocked() {
	if w.queueTimer != nil {
		w.queueTimer.Stop()
		w.queueTimer = nil
	}
	w.queue = nil
}

// scheduleNext arms the next queued MOVE after a random 2-8ms delay,
// mirroring onSteerWheelTimer's dequeue-then-restart behaviour.
func (w *SteerWheel) scheduleNext() {
	delay := time.Duration(steerDelayLowMS+rand.Intn(steerDelayHighMS-steerDelayLowMS+1)) * time.Millisecond
	w.mu.Lock()
	w.queueTimer = time.AfterFunc(delay, w.onTimer)
	w.mu.Unlock()
}

func (w *SteerWheel) onTimer() {
	w.mu.Lock()
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return
	}
	pos := w.queue[0]
	w.queue = w.queue[1:]
	w.current = pos
	seq := w.seq
	empty := len(w.queue) == 0
	active := w.active
	w.mu.Unlock()

	sendFastTouch(w.sender, seq, wire.ActionMove, pos)

	if empty {
		if !active {
			sendFastTouch(w.sender, seq, wire.ActionUp, pos)
		}
		return
	}
	w.scheduleNext()
}

// buildDelayQueue computes the smoothed waypoint sequence from start to
// end stepped at distanceStep with small jitter, per getDelayQueue.
func buildDelayQueue(start, end Point, distanceStep, jitter float64) []Point {
	dx := end.X - start.X
	dy := end.Y - start.Y
	e := abs(dx)
	if abs(dy) > e {
		e = abs(dy)
	}
	if e == 0 {
		return nil
	}
	steps := e / distanceStep
	dx /= steps
	dy /= steps

	n := int(steps)
	out := make([]Point, 0, n)
	x, y := start.X, start.Y
	for i := 1; i <= n; i++ {
		out = append(out, Point{
			X: x + (rand.Float64()*2-1)*jitter,
			Y: y + (rand.Float64()*2-1)*jitter,
		})
		x += dx
		y += dy
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
