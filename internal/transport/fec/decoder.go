package fec

// group tracks arrivals for one FEC group awaiting either full delivery
// (pass-through) or a single-loss reconstruction once the parity packet
// arrives.
type group struct {
	size    int
	have    map[uint8][]byte
	parity  []byte
	parityLen int
	resolved  bool
}

// Decoder reconstructs at most one missing data packet per group from its
// XOR parity, per FecCodec.h: single-loss only. Groups with zero losses
// pass their packets straight through; groups with two or more losses fall
// through to ARQ (the decoder reports them as unrecoverable and the caller
// relies on retransmission).
type Decoder struct {
	groups map[uint8]*group
}

func NewDecoder() *Decoder {
	return &Decoder{groups: make(map[uint8]*group)}
}

// Recovered is one packet the decoder reconstructed or passed through.
type Recovered struct {
	Index   uint8
	Payload []byte
}

// Feed submits one FEC-framed packet (data or parity) and returns any
// packets now known-good for this group: the packet itself when it is a
// data packet, plus a reconstructed packet if this arrival completes a
// recoverable group. Completed or over-threshold groups are evicted.
func (d *Decoder) Feed(pkt Packet) []Recovered {
	g, ok := d.groups[pkt.GroupID]
	if !ok {
		g = &group{size: int(pkt.GroupSize), have: make(map[uint8][]byte)}
		d.groups[pkt.GroupID] = g
	}

	var out []Recovered
	switch pkt.Type {
	case TypeData:
		if _, dup := g.have[pkt.Index]; !dup {
			g.have[pkt.Index] = pkt.Payload
			out = append(out, Recovered{Index: pkt.Index, Payload: pkt.Payload})
		}
	case TypeParity:
		g.parity = pkt.Payload
		g.parityLen = int(pkt.OriginalLen)
	}

	if rec, ok := d.tryReconstruct(g); ok {
		out = append(out, rec)
	}

	if len(g.have) >= g.size || (g.parity != nil && len(g.have) >= g.size-1) {
		delete(d.groups, pkt.GroupID)
	}
	return out
}

func (d *Decoder) tryReconstruct(g *group) (Recovered, bool) {
	if g.parity == nil || g.size == 0 {
		return Recovered{}, false
	}
	missing := -1
	missCount := 0
	for i := 0; i < g.size; i++ {
		if _, ok := g.have[uint8(i)]; !ok {
			missCount++
			missing = i
		}
	}
	if missCount != 1 {
		return Recovered{}, false
	}
	recovered := make([]byte, g.parityLen)
	copy(recovered, g.parity)
	for idx, payload := range g.have {
		_ = idx
		for i, b := range payload {
			if i < len(recovered) {
				recovered[i] ^= b
			}
		}
	}
	g.have[uint8(missing)] = recovered
	return Recovered{Index: uint8(missing), Payload: recovered}, true
}
