package previewrtc

import (
	"sync"
	"sync/atomic"
	"testing"

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

type fakeKeyframer struct{ n int32 }

func (k *fakeKeyframer) RequestKeyframe() bool {
	atomic.AddInt32(&k.n, 1)
	return true
}

func TestHandleTouchMessageDownMoveUp(t *testing.T) {
	s := &fakeSender{}
	sink := New(s, nil)

	sink.handleTouchMessage([]byte(`{"type":"down","x":0.25,"y":0.5}`))
	if s.count() != 1 {
		t.Fatalf("expected 1 send after down, got %d", s.count())
	}
	down, ok := wire.ParseFastTouch(s.last())
	if !ok || down.Action != wire.ActionDown {
		t.Errorf("expected down action, got %+v (ok=%v)", down, ok)
	}

	sink.handleTouchMessage([]byte(`{"type":"move","x":0.3,"y":0.6}`))
	if s.count() != 2 {
		t.Fatalf("expected 2 sends after move, got %d", s.count())
	}
	moved, ok := wire.ParseFastTouch(s.last())
	if !ok || moved.Action != wire.ActionMove || moved.Seq != down.Seq {
		t.Errorf("expected move to reuse the down sequence, got %+v (ok=%v), want seq=%d", moved, ok, down.Seq)
	}

	sink.handleTouchMessage([]byte(`{"type":"up","x":0.3,"y":0.6}`))
	if s.count() != 3 {
		t.Fatalf("expected 3 sends after up, got %d", s.count())
	}
	up, ok := wire.ParseFastTouch(s.last())
	if !ok || up.Action != wire.ActionUp || up.Seq != down.Seq {
		t.Errorf("expected up to close out the down sequence, got %+v (ok=%v)", up, ok)
	}
}

func TestHandleTouchMessageMoveWithoutDownIsNoop(t *testing.T) {
	s := &fakeSender{}
	sink := New(s, nil)

	sink.handleTouchMessage([]byte(`{"type":"move","x":0.5,"y":0.5}`))
	if s.count() != 0 {
		t.Errorf("expected move with no prior down to be dropped, got %d sends", s.count())
	}
}

func TestHandleTouchMessageCancelActsLikeUp(t *testing.T) {
	s := &fakeSender{}
	sink := New(s, nil)

	sink.handleTouchMessage([]byte(`{"type":"down","x":0.1,"y":0.1}`))
	sink.handleTouchMessage([]byte(`{"type":"cancel","x":0.1,"y":0.1}`))
	cancel, ok := wire.ParseFastTouch(s.last())
	if !ok || cancel.Action != wire.ActionUp {
		t.Errorf("expected cancel to encode as an up action, got %+v (ok=%v)", cancel, ok)
	}

	// A second up/cancel after release should be dropped, not resent.
	before := s.count()
	sink.handleTouchMessage([]byte(`{"type":"up","x":0.1,"y":0.1}`))
	if s.count() != before {
		t.Errorf("expected up after release to be a no-op")
	}
}

func TestHandleTouchMessageMalformedJSONIsIgnored(t *testing.T) {
	s := &fakeSender{}
	sink := New(s, nil)
	sink.handleTouchMessage([]byte(`not json`))
	if s.count() != 0 {
		t.Errorf("expected malformed payload to be ignored, got %d sends", s.count())
	}
}

func TestHandleTouchMessageUnknownTypeIsIgnored(t *testing.T) {
	s := &fakeSender{}
	sink := New(s, nil)
	sink.handleTouchMessage([]byte(`{"type":"hover","x":0.5,"y":0.5}`))
	if s.count() != 0 {
		t.Errorf("expected unknown event type to be ignored, got %d sends", s.count())
	}
}

func TestPushAccessUnitWithoutPeerIsNoop(t *testing.T) {
	sink := New(&fakeSender{}, &fakeKeyframer{})
	// No browser connected yet: packetizer/track are nil, so this must
	// not panic and must simply drop the frame.
	sink.PushAccessUnit([]byte{0, 0, 0, 1, 0x67, 0x42}, 1000)
}

func TestClampToUnitRange(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-1, 0}, {0, 0}, {0.5, 0.5}, {1, 1}, {2, 1},
	}
	for _, c := range cases {
		if got := clamp01(c.in); got != c.want {
			t.Errorf("clamp01(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
