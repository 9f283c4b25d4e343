package demux

// splitAnnexBNALUs splits an Annex-B bitstream (the format CONFIG and
// frame payloads arrive in) into individual NAL units, stripping start
// codes.
func splitAnnexBNALUs(b []byte) [][]byte {
	var nalus [][]byte
	i := 0
	for {
		scStart, scEnd := findStartCode(b, i)
		if scStart < 0 {
			break
		}
		nextStart, _ := findStartCode(b, scEnd)
		if nextStart < 0 {
			if n := b[scEnd:]; len(n) > 0 {
				nalus = append(nalus, n)
			}
			break
		}
		if n := b[scEnd:nextStart]; len(n) > 0 {
			nalus = append(nalus, n)
		}
		i = nextStart
	}
	return nalus
}

func findStartCode(b []byte, from int) (int, int) {
	for i := from; i+3 <= len(b); i++ {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 1 {
			return i, i + 3
		}
		if i+4 <= len(b) && b[i] == 0 && b[i+1] == 0 && b[i+2] == 0 && b[i+3] == 1 {
			return i, i + 4
		}
	}
	return -1, -1
}

func naluType(n []byte) uint8 {
	if len(n) == 0 {
		return 0
	}
	return n[0] & 0x1F
}

// configDimensions pulls width/height out of a CONFIG payload's SPS NAL
// unit when present. The reliable-UDP transport's handshake carries no
// explicit video size (unlike TCP's preamble), so this lets the session
// controller size the frame pool correctly from the very first CONFIG
// packet instead of waiting on the decoder's first reported frame.
func configDimensions(payload []byte) (w, h int, ok bool) {
	for _, nal := range splitAnnexBNALUs(payload) {
		if naluType(nal) != 7 { // SPS
			continue
		}
		if sw, sh, spsOK := spsDimensions(nal); spsOK {
			return int(sw), int(sh), true
		}
	}
	return 0, 0, false
}

// spsDimensions is a minimal H.264 SPS parser: just enough fields to
// recover picture width/height, skipping everything else (scaling
// lists, VUI, etc.) it doesn't need.
func spsDimensions(nal []byte) (w, h uint16, ok bool) {
	if len(nal) < 4 || (nal[0]&0x1F) != 7 {
		return
	}
	rbsp := make([]byte, 0, len(nal)-1)
	for i := 1; i < len(nal); i++ {
		if i+2 < len(nal) && nal[i] == 0 && nal[i+1] == 0 && nal[i+2] == 3 {
			rbsp = append(rbsp, 0, 0)
			i += 2
			continue
		}
		rbsp = append(rbsp, nal[i])
	}
	br := bitReader{b: rbsp}

	if !br.skip(8 + 8 + 8) { // profile_idc, constraint_flags, level_idc
		return
	}
	if _, ok2 := br.ue(); !ok2 { // seq_parameter_set_id
		return
	}

	var chromaFormatIDC uint = 1
	profileIDC := rbsp[0]
	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		v, ok2 := br.ue()
		if !ok2 {
			return
		}
		chromaFormatIDC = v
		if chromaFormatIDC == 3 {
			if _, ok3 := br.u(1); !ok3 {
				return
			}
		}
		if _, ok2 = br.ue(); !ok2 { // bit_depth_luma_minus8
			return
		}
		if _, ok2 = br.ue(); !ok2 { // bit_depth_chroma_minus8
			return
		}
		if !br.skip(1) { // qpprime_y_zero_transform_bypass_flag
			return
		}
		f, ok2 := br.u(1) // seq_scaling_matrix_present_flag
		if !ok2 {
			return
		}
		if f == 1 {
			n := 8
			if chromaFormatIDC == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				g, ok3 := br.u(1)
				if !ok3 {
					return
				}
				if g != 1 {
					continue
				}
				size := 16
				if i >= 6 {
					size = 64
				}
				lastScale, nextScale := 8, 8
				for j := 0; j < size; j++ {
					if nextScale != 0 {
						delta, ok4 := br.se()
						if !ok4 {
							return
						}
						nextScale = (lastScale + int(delta) + 256) % 256
					}
					if nextScale != 0 {
						lastScale = nextScale
					}
				}
			}
		}
	}

	if _, ok2 := br.ue(); !ok2 { // log2_max_frame_num_minus4
		return
	}
	pct, ok2 := br.ue() // pic_order_cnt_type
	if !ok2 {
		return
	}
	switch pct {
	case 0:
		if _, ok2 = br.ue(); !ok2 { // log2_max_pic_order_cnt_lsb_minus4
			return
		}
	case 1:
		if !br.skip(1) { // delta_pic_order_always_zero_flag
			return
		}
		if _, ok2 = br.se(); !ok2 {
			return
		}
		if _, ok2 = br.se(); !ok2 {
			return
		}
		n, ok3 := br.ue()
		if !ok3 {
			return
		}
		for i := uint(0); i < n; i++ {
			if _, ok2 = br.se(); !ok2 {
				return
			}
		}
	}

	if _, ok2 = br.ue(); !ok2 { // max_num_ref_frames
		return
	}
	if !br.skip(1) { // gaps_in_frame_num_value_allowed_flag
		return
	}

	pwMinus1, ok2 := br.ue()
	if !ok2 {
		return
	}
	phMinus1, ok2 := br.ue()
	if !ok2 {
		return
	}
	frameMbsOnlyFlag, ok2 := br.u(1)
	if !ok2 {
		return
	}
	if frameMbsOnlyFlag == 0 {
		if !br.skip(1) { // mb_adaptive_frame_field_flag
			return
		}
	}
	if !br.skip(1) { // direct_8x8_inference_flag
		return
	}

	var cropLeft, cropRight, cropTop, cropBottom uint
	fcrop, ok2 := br.u(1)
	if !ok2 {
		return
	}
	if fcrop == 1 {
		if cropLeft, ok2 = br.ue(); !ok2 {
			return
		}
		if cropRight, ok2 = br.ue(); !ok2 {
			return
		}
		if cropTop, ok2 = br.ue(); !ok2 {
			return
		}
		if cropBottom, ok2 = br.ue(); !ok2 {
			return
		}
	}

	mbWidth := pwMinus1 + 1
	mbHeight := (phMinus1 + 1) * (2 - frameMbsOnlyFlag)

	var subW, subH uint = 1, 1
	switch chromaFormatIDC {
	case 1:
		subW, subH = 2, 2
	case 2:
		subW, subH = 2, 1
	}
	cropUnitX := subW
	cropUnitY := subH * (2 - frameMbsOnlyFlag)

	width := int(mbWidth*16) - int((cropLeft+cropRight)*cropUnitX)
	height := int(mbHeight*16) - int((cropTop+cropBottom)*cropUnitY)
	if width <= 0 || height <= 0 || width > 65535 || height > 65535 {
		return
	}
	return uint16(width), uint16(height), true
}

// bitReader is a big-endian bit-level reader over an H.264 RBSP buffer.
type bitReader struct {
	b []byte
	i int
}

func (br *bitReader) u(n int) (uint, bool) {
	if n <= 0 {
		return 0, true
	}
	var v uint
	for k := 0; k < n; k++ {
		byteIndex := br.i / 8
		if byteIndex >= len(br.b) {
			return 0, false
		}
		bitIndex := 7 - (br.i % 8)
		v = (v << 1) | uint((br.b[byteIndex]>>uint(bitIndex))&1)
		br.i++
	}
	return v, true
}

func (br *bitReader) skip(n int) bool {
	_, ok := br.u(n)
	return ok
}

// ue reads an Exp-Golomb unsigned value.
func (br *bitReader) ue() (uint, bool) {
	var leadingZeros int
	for {
		b, ok := br.u(1)
		if !ok {
			return 0, false
		}
		if b != 0 {
			break
		}
		leadingZeros++
	}
	if leadingZeros == 0 {
		return 0, true
	}
	val, ok := br.u(leadingZeros)
	if !ok {
		return 0, false
	}
	return (1 << leadingZeros) - 1 + val, true
}

// se reads an Exp-Golomb signed value.
func (br *bitReader) se() (int, bool) {
	uev, ok := br.ue()
	if !ok {
		return 0, false
	}
	k := int(uev)
	if k%2 == 0 {
		return -k / 2, true
	}
	return (k + 1) / 2, true
}
