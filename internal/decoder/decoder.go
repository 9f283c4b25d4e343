// Package decoder implements the decoder (C5): goav/FFmpeg H.264/H.265
// decode with hardware-accel preference, GPU→CPU staging transfer, and
// direct writes into framepool slots. Grounded on video/decoder.go's
// avcodec send/receive loop, expanded with hw-accel device probing and
// pool-backed output per spec.md §4.5.
package decoder

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/giorgisio/goav/avcodec"
	"github.com/giorgisio/goav/avutil"

	"github.com/mirrorctl/scrcpy-go/internal/framepool"
	"github.com/mirrorctl/scrcpy-go/internal/logging"
	"github.com/mirrorctl/scrcpy-go/internal/metrics"
	"github.com/mirrorctl/scrcpy-go/internal/screrr"
)

// Codec selects which bitstream the decoder opens.
type Codec int

const (
	CodecH264 Codec = iota
	CodecH265
)

// Decoder wraps an avcodec context opened with LOW_DELAY flags, an
// hw-accel probe result, and the pool it writes decoded frames into.
type Decoder struct {
	codecCtx *avcodec.Context
	frame    *avutil.Frame
	pool     *framepool.Pool
	mon      *metrics.Monitor

	codec      Codec
	hwAccel    string // probe result, "" if software
	lastW      int
	lastH      int
}

// avCodecID maps Codec to the goav codec-id constant.
func avCodecID(c Codec) avcodec.CodecId {
	if c == CodecH265 {
		return avcodec.AV_CODEC_ID_HEVC
	}
	return avcodec.AV_CODEC_ID_H264
}

// New opens a decoder for codec, probing the platform-ordered hardware
// acceleration device list (see hwaccel.go) before falling back to
// software, per §4.5.
func New(codec Codec, pool *framepool.Pool, mon *metrics.Monitor) (*Decoder, error) {
	avc := avcodec.AvcodecFindDecoder(avCodecID(codec))
	if avc == nil {
		return nil, screrr.Wrap(screrr.DecoderOpenFailed, fmt.Errorf("codec %v not found", codec))
	}
	ctx := avc.AvcodecAllocContext3()
	// LOW_DELAY: do not buffer frames beyond what's strictly necessary,
	// per §4.5's "Opens a codec context with LOW_DELAY flags".
	ctx.SetFlags(ctx.Flags() | avcodec.AV_CODEC_FLAG_LOW_DELAY)

	d := &Decoder{codecCtx: ctx, frame: avutil.AvFrameAlloc(), pool: pool, mon: mon, codec: codec}

	hw, cachedOK := cachedProbe(codec)
	if !cachedOK {
		hw = probeHWAccel(codec, ctx)
		cacheProbe(codec, hw)
	}
	d.hwAccel = hw
	if hw == "" {
		logging.Infof("decoder: %v", screrr.New(screrr.HardwareDecoderFallback))
	}

	if ctx.AvcodecOpen2(avc, nil) < 0 {
		return nil, screrr.New(screrr.DecoderOpenFailed)
	}
	return d, nil
}

// HWAccel reports the probe result ("" for software).
func (d *Decoder) HWAccel() string { return d.hwAccel }

// Decode sends one encoded access unit and drains every frame the codec is
// willing to emit, writing each directly into a pool frame. Transient
// "would block" conditions are ignored; a send/receive failure is reported
// as FrameDecodeFailed and the input is dropped (logged, not fatal; no
// counter is incremented).
func (d *Decoder) Decode(data []byte, pts int64, keyFrame bool) {
	start := time.Now()
	pkt := avcodec.AvPacketAlloc()
	pkt.AvInitPacket()
	pkt.SetData(data)
	pkt.SetSize(len(data))

	if ret := avcodec.AvcodecSendPacket(d.codecCtx, pkt); ret < 0 {
		logging.Errorf("decoder: %v", screrr.New(screrr.FrameDecodeFailed))
		return
	}

	for {
		ret := avcodec.AvcodecReceiveFrame(d.codecCtx, d.frame)
		if ret != 0 {
			break // EAGAIN/EOF: no more frames available this call
		}
		d.emit(pts, keyFrame, start)
	}
}

func (d *Decoder) emit(pts int64, keyFrame bool, start time.Time) {
	w, h := d.frame.Width(), d.frame.Height()
	if w != d.lastW || h != d.lastH {
		// Resolution change: drain and resize per §4.5's final paragraph;
		// in-flight frames at the old size keep their allocation until
		// consumed.
		d.pool.Resize(w, h)
		d.lastW, d.lastH = w, h
	}

	f, ok := d.pool.Acquire()
	if !ok {
		logging.Errorf("decoder: frame pool exhausted, dropping frame")
		return
	}
	f.Width, f.Height = w, h
	f.PTS = pts
	f.Seq++
	f.SemiPlanar = isNV12(d.frame)
	copyPlanes(d.frame, f)

	if !d.pool.Push(f, time.Now().UnixNano()) {
		logging.Errorf("decoder: ring full, dropping frame")
	}
	if d.mon != nil {
		d.mon.ReportFrameDecoded()
		d.mon.SetFramePoolUsage(d.pool.UsedCount(), d.pool.Size())
		d.mon.DecodeLatency.Add(int64(time.Since(start)))
	}
	_ = keyFrame
}

// copyPlanes line-by-line scans each decoded plane into the pool frame's
// aligned strides, per §4.5 step 4. NV12 frames carry one interleaved
// chroma plane (copied into UV); planar frames carry two (U, V). Plane
// data comes back from goav as raw C pointers (avutil.Frame.Data()),
// so each plane is first reborrowed as a Go slice bounded by its own
// linesize×rows extent before the row-by-row copy.
func copyPlanes(src *avutil.Frame, dst *framepool.Frame) {
	ls := src.Linesize()
	data := src.Data()
	chromaRows := (dst.Height + 1) / 2

	copyPlane(planeBytes(data[0], int(ls[0]), dst.Height), int(ls[0]), dst.Y, dst.StrideY, dst.Height)
	if dst.SemiPlanar {
		copyPlane(planeBytes(data[1], int(ls[1]), chromaRows), int(ls[1]), dst.UV, dst.StrideUV, chromaRows)
		return
	}
	copyPlane(planeBytes(data[1], int(ls[1]), chromaRows), int(ls[1]), dst.U, dst.StrideU, chromaRows)
	copyPlane(planeBytes(data[2], int(ls[2]), chromaRows), int(ls[2]), dst.V, dst.StrideV, chromaRows)
}

// planeBytes reborrows a decoded plane's C-owned memory as a read-only Go
// slice for the duration of one copy; it must not outlive the AVFrame.
func planeBytes(ptr *uint8, stride, rows int) []byte {
	if ptr == nil || stride <= 0 || rows <= 0 {
		return nil
	}
	return unsafe.Slice(ptr, stride*rows)
}

func copyPlane(src []byte, srcStride int, dst []byte, dstStride, rows int) {
	if len(src) == 0 {
		return
	}
	for row := 0; row < rows; row++ {
		so := row * srcStride
		do := row * dstStride
		if so+dstStride > len(src) || do+dstStride > len(dst) {
			break
		}
		copy(dst[do:do+dstStride], src[so:so+dstStride])
	}
}

// isNV12 reports whether the decoded frame is semi-planar (NV12), in which
// case the renderer samples a two-channel UV texture instead of separate
// U/V planes, per §4.5 step 5.
func isNV12(f *avutil.Frame) bool {
	return f.Format() == int(avutil.AV_PIX_FMT_NV12)
}

func (d *Decoder) Close() {
	if d.frame != nil {
		avutil.AvFrameFree(d.frame)
	}
}
