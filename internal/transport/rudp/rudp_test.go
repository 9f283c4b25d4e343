package rudp

import (
	"testing"
	"time"
)

func TestSegmentRoundTrip(t *testing.T) {
	want := segment{ConvID: 7, Seq: 42, Ack: 41, Wnd: 100, TS: 12345, Cmd: cmdPush, Data: []byte("hello")}
	got, ok := decodeSegment(want.encode())
	if !ok {
		t.Fatalf("decode failed")
	}
	if got.ConvID != want.ConvID || got.Seq != want.Seq || got.Ack != want.Ack ||
		got.Wnd != want.Wnd || got.TS != want.TS || got.Cmd != want.Cmd || string(got.Data) != string(want.Data) {
		t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
	}
}

func TestRTOFloor(t *testing.T) {
	e := newRTOEstimator()
	e.sample(1 * time.Millisecond)
	if e.current() < rtoFloor {
		t.Fatalf("expected RTO floor of %v, got %v", rtoFloor, e.current())
	}
}

func TestSendWindowForBitRateScalesUp(t *testing.T) {
	if sendWindowForBitRate(1_000_000) >= sendWindowForBitRate(16_000_000) {
		t.Fatalf("expected larger window for higher bitrate")
	}
}
