package input

import (
	"sync"
	"testing"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

type fakeSender struct {
	mu  sync.Mutex
	out [][]byte
}

func (f *fakeSender) Send(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.out = append(f.out, cp)
	return true
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

func (f *fakeSender) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		return nil
	}
	return f.out[len(f.out)-1]
}

func TestTouchRegistryAttachDetach(t *testing.T) {
	r := newTouchRegistry()
	s1, ok := r.Attach(1)
	if !ok {
		t.Fatal("expected slot")
	}
	s1b, ok := r.Attach(1)
	if !ok || s1b != s1 {
		t.Fatalf("re-attach should return same slot, got %d want %d", s1b, s1)
	}
	r.Detach(1)
	if _, ok := r.Slot(1); ok {
		t.Fatal("slot should be released")
	}
}

func TestTouchRegistryExhaustion(t *testing.T) {
	r := newTouchRegistry()
	for i := 0; i < maxTouchSlots; i++ {
		if _, ok := r.Attach(i); !ok {
			t.Fatalf("slot %d should have been available", i)
		}
	}
	if _, ok := r.Attach(maxTouchSlots); ok {
		t.Fatal("expected registry exhaustion")
	}
}

func TestCursorModeIgnoresNonPrimaryButton(t *testing.T) {
	s := &fakeSender{}
	c := newCursorMode(newTouchRegistry())
	c.OnButton(s, false, true, Point{0.5, 0.5}, 1920, 1080)
	if s.count() != 0 {
		t.Fatalf("non-primary button should be ignored, got %d sends", s.count())
	}
}

// TestCursorModeDownMoveUp exercises the exact literal property from
// spec.md §8: a click at window (120,80) on an 800x600 window against a
// 1920x1080 device target must inject InjectTouch at device pixel
// (288,144) with pressure 1.0 on down, then pressure 0.0 on up, under the
// fixed generic-finger pointer id.
func TestCursorModeDownMoveUp(t *testing.T) {
	s := &fakeSender{}
	c := newCursorMode(newTouchRegistry())
	p := Point{X: 120.0 / 800.0, Y: 80.0 / 600.0}

	c.OnButton(s, true, true, p, 1920, 1080)
	c.OnMove(s, Point{X: 130.0 / 800.0, Y: 80.0 / 600.0}, 1920, 1080)
	c.OnButton(s, true, false, Point{X: 130.0 / 800.0, Y: 80.0 / 600.0}, 1920, 1080)
	if s.count() != 3 {
		t.Fatalf("expected down+move+up = 3 sends, got %d", s.count())
	}

	down, ok := wire.ParseInjectTouch(s.out[0])
	if !ok {
		t.Fatalf("down event did not decode as InjectTouch")
	}
	if down.PointerID != -2 || down.Action != wire.ActionDown {
		t.Fatalf("down: got pointerID=%d action=%d, want -2/ActionDown", down.PointerID, down.Action)
	}
	if down.Position != (wire.Rect{X: 288, Y: 144, Width: 1920, Height: 1080}) {
		t.Fatalf("down: unexpected rect %+v", down.Position)
	}
	if down.Pressure != 1.0 {
		t.Fatalf("down: expected pressure 1.0, got %v", down.Pressure)
	}
	if down.ActionButton != 1 || down.Buttons != 1 {
		t.Fatalf("down: expected actionButton=buttons=1, got %d/%d", down.ActionButton, down.Buttons)
	}

	up, ok := wire.ParseInjectTouch(s.out[2])
	if !ok {
		t.Fatalf("up event did not decode as InjectTouch")
	}
	if up.Action != wire.ActionUp || up.Pressure != 0 {
		t.Fatalf("up: expected ActionUp/pressure 0, got action=%d pressure=%v", up.Action, up.Pressure)
	}
}

func TestCursorModeMoveWithoutDownIsNoop(t *testing.T) {
	s := &fakeSender{}
	c := newCursorMode(newTouchRegistry())
	c.OnMove(s, Point{0.5, 0.5}, 1920, 1080)
	if s.count() != 0 {
		t.Fatalf("move without prior down should be dropped, got %d", s.count())
	}
}

func fixedTarget(w, h int) func() (int, int) {
	return func() (int, int) { return w, h }
}

// TestViewportDeltaAppliesSensitivityAndTargetSize exercises spec.md §8's
// viewport literal: a 20px x delta with sensitivity 2 against a 1920px
// device width must advance the anchor by 20/2/1920.
func TestViewportDeltaAppliesSensitivityAndTargetSize(t *testing.T) {
	s := &fakeSender{}
	v := NewViewport(Point{0.5, 0.5}, 2, 2, fixedTarget(1920, 1080), s)
	v.Enter()
	v.OnMouseDelta(20, 0)
	time.Sleep(20 * time.Millisecond)
	v.mu.Lock()
	got := v.currentPos.X
	v.mu.Unlock()
	want := 0.5 + 20.0/2/1920
	if diff := got - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected anchor.X advanced to %v, got %v", want, got)
	}
	v.Leave()
}

func TestViewportEdgeRecentreProtocol(t *testing.T) {
	s := &fakeSender{}
	v := NewViewport(Point{0.5, 0.5}, 1, 1, fixedTarget(1, 1), s)
	v.Enter()
	v.OnMouseDelta(10, 10) // huge delta, guaranteed out of bounds next tick
	time.Sleep(30 * time.Millisecond)
	if s.count() < 3 {
		t.Fatalf("expected down+move+up from edge recentre, got %d sends", s.count())
	}
	v.Leave()
}

func TestViewportResetView(t *testing.T) {
	s := &fakeSender{}
	v := NewViewport(Point{0.5, 0.5}, 1, 1, fixedTarget(1, 1), s)
	v.Enter()
	v.OnMouseDelta(0.01, 0.01)
	time.Sleep(20 * time.Millisecond)
	v.ResetView()
	if v.touching {
		t.Fatal("expected touch lifted after reset")
	}
}

func TestBuildDelayQueueMonotonicTowardTarget(t *testing.T) {
	q := buildDelayQueue(Point{0, 0}, Point{0.1, 0}, steerDistanceStep, 0)
	if len(q) == 0 {
		t.Fatal("expected non-empty queue")
	}
	last := q[len(q)-1]
	if last.X < 0.08 || last.X > 0.12 {
		t.Fatalf("last waypoint should approach target, got %v", last)
	}
}

func TestBuildDelayQueueZeroDistance(t *testing.T) {
	q := buildDelayQueue(Point{0.5, 0.5}, Point{0.5, 0.5}, steerDistanceStep, steerPosJitter)
	if q != nil {
		t.Fatalf("expected nil queue for zero distance, got %v", q)
	}
}

func TestSteerWheelSingleKeyPressRelease(t *testing.T) {
	s := &fakeSender{}
	w := NewSteerWheel(Point{0.5, 0.5}, 0.2, 0.2, 0.2, 0.2, s)
	w.SetKey(DirUp, true)
	time.Sleep(50 * time.Millisecond)
	if s.count() == 0 {
		t.Fatal("expected DOWN and at least one MOVE")
	}
	w.SetKey(DirUp, false)
	time.Sleep(20 * time.Millisecond)
}

func TestConvertKeyCodeNavigation(t *testing.T) {
	if got := convertKeyCode(sdl.K_RETURN, 0); got != AndroidKeycodeEnter {
		t.Fatalf("Return: got %d want %d", got, AndroidKeycodeEnter)
	}
	if got := convertKeyCode(sdl.K_LEFT, 0); got != AndroidKeycodeDpadLeft {
		t.Fatalf("Left: got %d want %d", got, AndroidKeycodeDpadLeft)
	}
}

func TestConvertKeyCodeSuppressedUnderAlt(t *testing.T) {
	if got := convertKeyCode(sdl.K_a, sdl.KMOD_LALT); got != AndroidKeycodeUnknown {
		t.Fatalf("expected Alt+A suppressed, got %d", got)
	}
}

func TestConvertKeyCodeLetters(t *testing.T) {
	if got := convertKeyCode(sdl.K_a, 0); got != AndroidKeycodeA {
		t.Fatalf("got %d want %d", got, AndroidKeycodeA)
	}
}

func TestConvertMetastate(t *testing.T) {
	m := convertMetastate(sdl.KMOD_LSHIFT | sdl.KMOD_LCTRL)
	if m&MetaShiftOn == 0 || m&MetaCtrlOn == 0 {
		t.Fatalf("expected shift+ctrl bits set, got %#x", m)
	}
	if m&MetaAltOn != 0 {
		t.Fatalf("alt bit should not be set, got %#x", m)
	}
}

func TestConverterSteerWheelDirectionKeys(t *testing.T) {
	s := &fakeSender{}
	c := NewConverter(s, 800, 600)
	c.SetSteerWheel(Point{0.5, 0.5}, 0.2, 0.2, 0.2, 0.2)
	c.SetMode(ModeSteerWheel)
	c.OnKey(sdl.K_w, 0, true, false)
	time.Sleep(30 * time.Millisecond)
	if s.count() == 0 {
		t.Fatal("expected steer wheel to emit on W key press")
	}
	_ = s.last()
}
