package adb

import "testing"

func TestParseDevicesOutput(t *testing.T) {
	out := "List of devices attached\n192.168.66.102:5555\tdevice\nemulator-5554\toffline\n\n"
	got := parseDevicesOutput(out)
	want := []ADBDevice{
		{Serial: "192.168.66.102:5555", State: "device"},
		{Serial: "emulator-5554", State: "offline"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d devices, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("device %d: want %+v got %+v", i, want[i], got[i])
		}
	}
}

func TestAgentParamsCodecOptionsIncludesOrientation(t *testing.T) {
	p := DefaultAgentParams()
	p.CaptureOrientationLock = 1
	p.CaptureOrientation = 90
	opts := p.codecOptions()
	if !contains(opts, "capture_orientation_lock=1") || !contains(opts, "capture_orientation=90") {
		t.Fatalf("expected orientation fields in %q", opts)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
