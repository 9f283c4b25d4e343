package fec

import "testing"

func encodeGroup(t *testing.T, payloads [][]byte) [][]byte {
	t.Helper()
	enc := NewEncoder(len(payloads))
	var wire [][]byte
	for _, p := range payloads {
		enc.Encode(p, func(b []byte) {
			wire = append(wire, append([]byte(nil), b...))
		})
	}
	return wire
}

func TestSingleLossRecovered(t *testing.T) {
	payloads := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc")}
	wire := encodeGroup(t, payloads)
	// wire = [data0, data1, data2, parity]; drop data1.
	dec := NewDecoder()
	var recovered []Recovered
	for i, raw := range wire {
		if i == 1 {
			continue
		}
		pkt, ok := Decode(raw)
		if !ok {
			t.Fatalf("decode failed at %d", i)
		}
		recovered = append(recovered, dec.Feed(pkt)...)
	}
	found := false
	for _, r := range recovered {
		if r.Index == 1 && string(r.Payload[:4]) == "bbbb" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected index 1 to be reconstructed, got %+v", recovered)
	}
}

func TestZeroLossPassesThrough(t *testing.T) {
	payloads := [][]byte{[]byte("xxxx"), []byte("yyyy")}
	wire := encodeGroup(t, payloads)
	dec := NewDecoder()
	var seen int
	for _, raw := range wire {
		pkt, _ := Decode(raw)
		for _, r := range dec.Feed(pkt) {
			if pkt.Type == TypeData {
				_ = r
				seen++
			}
		}
	}
	if seen != len(payloads) {
		t.Fatalf("expected %d data packets passed through, got %d", len(payloads), seen)
	}
}

func TestTwoLossesNotRecovered(t *testing.T) {
	payloads := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dddd")}
	wire := encodeGroup(t, payloads)
	dec := NewDecoder()
	var recovered []Recovered
	for i, raw := range wire {
		if i == 1 || i == 2 { // drop two data packets
			continue
		}
		pkt, _ := Decode(raw)
		recovered = append(recovered, dec.Feed(pkt)...)
	}
	for _, r := range recovered {
		if r.Index == 1 || r.Index == 2 {
			t.Fatalf("did not expect reconstruction with two losses, got %+v", r)
		}
	}
}
