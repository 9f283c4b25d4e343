package render

import "testing"

func TestPackPlaneStripsPadding(t *testing.T) {
	src := []byte{1, 2, 9, 9, 3, 4, 9, 9} // stride 4, width 2, 2 rows
	dst := make([]byte, 4)
	n := packPlane(dst, src, 4, 2, 2)
	if n != 4 {
		t.Fatalf("expected 4 bytes packed, got %d", n)
	}
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, dst[i], want[i])
		}
	}
}

func TestPlaneBytesSizeOddDimensions(t *testing.T) {
	size := planeBytesSize(7, 5, false)
	// luma 7*5=35, chroma planes each ceil(7/2)*ceil(5/2)=4*3=12, two of them = 24
	if size != 35+24 {
		t.Fatalf("unexpected plane size: %d", size)
	}
}
