package control

import (
	"errors"
	"testing"

	"github.com/mirrorctl/scrcpy-go/internal/metrics"
)

type fakeChannel struct {
	fail bool
	sent [][]byte
}

func (f *fakeChannel) Send(b []byte) (int, error) {
	if f.fail {
		return 0, errors.New("would drop")
	}
	f.sent = append(f.sent, append([]byte(nil), b...))
	return len(b), nil
}

func TestSendReportsDropOnError(t *testing.T) {
	ch := &fakeChannel{fail: true}
	mon := metrics.NewMonitor("")
	s := New(ch, mon)
	if s.Send([]byte{1, 2, 3}) {
		t.Fatalf("expected Send to report drop")
	}
}

func TestRequestKeyframeSendsResetVideo(t *testing.T) {
	ch := &fakeChannel{}
	s := New(ch, nil)
	if !s.RequestKeyframe() {
		t.Fatalf("expected RequestKeyframe to succeed")
	}
	if len(ch.sent) != 1 {
		t.Fatalf("expected one message sent, got %d", len(ch.sent))
	}
}
