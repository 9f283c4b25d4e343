package keymap

import "testing"

func TestParseValidEntries(t *testing.T) {
	raw := []byte(`{
		"name": "test",
		"videoW": 1920, "videoH": 1080,
		"entries": [
			{"type": "androidKey", "key": "Q", "androidKeyName": "BACK"},
			{"type": "steerWheel", "key": "WASD", "centerX": 0.2, "centerY": 0.8, "up": 0.1, "down": 0.1, "left": 0.1, "right": 0.1},
			{"type": "cameraMove", "centerX": 0.5, "centerY": 0.5},
			{"type": "script", "key": "F", "script": "click(0.5, 0.5)"}
		]
	}`)
	km, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(km.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(km.Entries))
	}
}

func TestParseRejectsUnknownType(t *testing.T) {
	raw := []byte(`{"entries": [{"type": "bogus"}]}`)
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for unknown entry type")
	}
}

func TestAndroidKeyByName(t *testing.T) {
	cases := map[string]int{
		"w": 51, "W": 51, "space": 62, "back": 4, "q": 45, "5": 12,
	}
	for name, want := range cases {
		got, ok := androidKeyByName(name)
		if !ok || got != want {
			t.Errorf("androidKeyByName(%q) = %d, %v; want %d", name, got, ok, want)
		}
	}
	if _, ok := androidKeyByName("nonsense-key"); ok {
		t.Fatal("expected unknown name to fail")
	}
}

func TestSimilarityIdenticalIsOne(t *testing.T) {
	tmpl := []byte{10, 20, 30, 40}
	got := similarity(tmpl, 2, 0, 0, tmpl, 2, 2)
	if got != 1 {
		t.Fatalf("expected perfect match score 1, got %f", got)
	}
}

func TestSlidingMatchFindsExactPlacement(t *testing.T) {
	fw, fh := 10, 10
	frame := make([]byte, fw*fh*3)
	// Paint a distinct 2x2 white block at (4,4) against a black frame.
	for y := 4; y < 6; y++ {
		for x := 4; x < 6; x++ {
			i := (y*fw + x) * 3
			frame[i], frame[i+1], frame[i+2] = 255, 255, 255
		}
	}
	tmpl := []byte{255, 255, 255, 255}
	found, x, y, conf := slidingMatch(frame, fw, fh, tmpl, 2, 2, 0, 0, 1, 1, 0.9)
	if !found {
		t.Fatalf("expected a match, confidence=%f", conf)
	}
	if x < 0.3 || x > 0.7 || y < 0.3 || y > 0.7 {
		t.Fatalf("match center (%f,%f) outside expected region", x, y)
	}
}
