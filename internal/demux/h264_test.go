package demux

import "testing"

func TestSplitAnnexBNALUsThreeAndFourByteStartCodes(t *testing.T) {
	b := []byte{
		0, 0, 1, 0x67, 0xAA, 0xBB, // 3-byte start code, SPS-ish
		0, 0, 0, 1, 0x68, 0xCC, // 4-byte start code, PPS-ish
	}
	nalus := splitAnnexBNALUs(b)
	if len(nalus) != 2 {
		t.Fatalf("expected 2 NALUs, got %d", len(nalus))
	}
	if len(nalus[0]) != 3 || nalus[0][0] != 0x67 {
		t.Errorf("unexpected first NALU: % x", nalus[0])
	}
	if len(nalus[1]) != 2 || nalus[1][0] != 0x68 {
		t.Errorf("unexpected second NALU: % x", nalus[1])
	}
}

func TestSplitAnnexBNALUsNoStartCodeIsEmpty(t *testing.T) {
	if got := splitAnnexBNALUs([]byte{1, 2, 3}); len(got) != 0 {
		t.Errorf("expected no NALUs without a start code, got %d", len(got))
	}
}

func TestNaluTypeMasksLowFiveBits(t *testing.T) {
	if got := naluType([]byte{0x67}); got != 7 {
		t.Errorf("expected SPS type 7, got %d", got)
	}
	if got := naluType([]byte{0x68}); got != 8 {
		t.Errorf("expected PPS type 8, got %d", got)
	}
	if got := naluType(nil); got != 0 {
		t.Errorf("expected 0 for empty NALU, got %d", got)
	}
}

func TestConfigDimensionsWithoutSPSIsNotOK(t *testing.T) {
	// A lone PPS NALU (type 8), no SPS present.
	payload := []byte{0, 0, 0, 1, 0x68, 0xCE, 0x3C, 0x80}
	if _, _, ok := configDimensions(payload); ok {
		t.Errorf("expected configDimensions to report not-ok without an SPS NALU")
	}
}
