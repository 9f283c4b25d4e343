package decoder

import (
	"runtime"
	"testing"
)

func TestCopyPlaneHandlesStrideMismatch(t *testing.T) {
	// 2x2 source with stride 4 (padded), destination stride 2 (tight).
	src := []byte{1, 2, 0, 0, 3, 4, 0, 0}
	dst := make([]byte, 4)
	copyPlane(src, 4, dst, 2, 2)
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("copyPlane mismatch at %d: got %d want %d", i, dst[i], want[i])
		}
	}
}

func TestCopyPlaneNilSourceNoOp(t *testing.T) {
	dst := []byte{9, 9}
	copyPlane(nil, 4, dst, 2, 1)
	if dst[0] != 9 || dst[1] != 9 {
		t.Fatalf("expected dst untouched on nil source")
	}
}

func TestHWDeviceCandidatesNonEmptyOnKnownPlatforms(t *testing.T) {
	// On an unlisted platform the list may be empty; on the three listed
	// platforms it must name at least one device type.
	got := hwDeviceCandidates()
	switch runtime.GOOS {
	case "windows", "darwin", "linux":
		if len(got) == 0 {
			t.Fatalf("expected hw device candidates on %s, got none", runtime.GOOS)
		}
	}
}

func TestProbeCacheRoundTrip(t *testing.T) {
	cacheProbe(CodecH264, "vaapi")
	got, ok := cachedProbe(CodecH264)
	if !ok || got != "vaapi" {
		t.Fatalf("expected cached probe result, got %q ok=%v", got, ok)
	}
}
