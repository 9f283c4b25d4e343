package demux

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/wire"
)

type fakeSource struct {
	buf *bytes.Buffer
}

func (f *fakeSource) ReadFull(p []byte) (int, error) {
	return f.buf.Read(p)
}

func TestConfigThenKeyframeConcatenates(t *testing.T) {
	var wirebuf bytes.Buffer
	cfgPayload := bytes.Repeat([]byte{0xAA}, 40)
	framePayload := bytes.Repeat([]byte{0xBB}, 500)

	wirebuf.Write(wire.EncodeHeader(wire.Header{Config: true, PayloadLen: uint32(len(cfgPayload))}))
	wirebuf.Write(cfgPayload)
	wirebuf.Write(wire.EncodeHeader(wire.Header{PTS: 1000, PayloadLen: uint32(len(framePayload))}))
	wirebuf.Write(framePayload)

	var got []Packet
	stopped := make(chan error, 1)
	d := New(&fakeSource{buf: &wirebuf}, nil, func(p Packet) { got = append(got, p) }, func(err error) { stopped <- err }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for demux loop to stop (expected EOF)")
	case <-done:
	}

	if len(got) != 1 {
		t.Fatalf("expected exactly one emitted packet, got %d", len(got))
	}
	p := got[0]
	if !p.KeyFrame {
		t.Fatalf("expected KEY_FRAME set")
	}
	if len(p.Payload) != 540 {
		t.Fatalf("expected 540-byte concatenated payload, got %d", len(p.Payload))
	}
	cancel()
}
