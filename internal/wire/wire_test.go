package wire

import "testing"

func TestFastTouchRoundTrip(t *testing.T) {
	cases := []FastTouch{
		{Seq: 1, Action: ActionDown, X: 288, Y: 144},
		{Seq: 1, Action: ActionUp, X: 288, Y: 144},
		{Seq: 42, Action: ActionMove, X: 65535, Y: 0},
	}
	for _, want := range cases {
		got, ok := ParseFastTouch(want.Encode())
		if !ok {
			t.Fatalf("ParseFastTouch failed for %+v", want)
		}
		if got != want {
			t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
		}
	}
}

func TestFastKeyRoundTrip(t *testing.T) {
	cases := []FastKey{
		{Action: ActionDown, Keycode: 29},
		{Action: ActionUp, Keycode: 29},
	}
	for _, want := range cases {
		got, ok := ParseFastKey(want.Encode())
		if !ok {
			t.Fatalf("ParseFastKey failed for %+v", want)
		}
		if got != want {
			t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
		}
	}
}

func TestInjectTouchRoundTrip(t *testing.T) {
	want := InjectTouch{
		PointerID:    -2,
		Action:       ActionDown,
		Position:     Rect{X: 288, Y: 144, Width: 1920, Height: 1080},
		Pressure:     1.0,
		ActionButton: 1,
		Buttons:      1,
	}
	got, ok := ParseInjectTouch(want.Encode())
	if !ok {
		t.Fatalf("ParseInjectTouch failed")
	}
	if got.PointerID != want.PointerID || got.Action != want.Action || got.Position != want.Position ||
		got.ActionButton != want.ActionButton || got.Buttons != want.Buttons {
		t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
	}
	if diff := got.Pressure - want.Pressure; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("pressure mismatch: want %v got %v", want.Pressure, got.Pressure)
	}
}

func TestHeaderConfigThenKeyframe(t *testing.T) {
	cfg := Header{Config: true, PayloadLen: 40}
	buf := EncodeHeader(cfg)
	parsed := ParseHeader(buf)
	if !parsed.Config || parsed.PayloadLen != 40 {
		t.Fatalf("expected config header, got %+v", parsed)
	}

	kf := Header{PTS: 123456, KeyFrame: true, PayloadLen: 500}
	buf = EncodeHeader(kf)
	parsed = ParseHeader(buf)
	if parsed.Config || !parsed.KeyFrame || parsed.PTS != 123456 || parsed.PayloadLen != 500 {
		t.Fatalf("expected keyframe header, got %+v", parsed)
	}
}

func TestHeaderNonKeyNonConfig(t *testing.T) {
	h := Header{PTS: 999, PayloadLen: 10}
	parsed := ParseHeader(EncodeHeader(h))
	if parsed.Config || parsed.KeyFrame || parsed.PTS != 999 {
		t.Fatalf("unexpected flags in %+v", parsed)
	}
}
