package demux

import (
	"io"
	"time"

	"github.com/mirrorctl/scrcpy-go/internal/transport/rudp"
	"github.com/mirrorctl/scrcpy-go/internal/transport/tcpchan"
)

// Source is the byte-stream contract the demuxer reads fixed-size chunks
// from, satisfied by both C2 and C3 so the demuxer loop is
// transport-agnostic per §4.4.
type Source interface {
	ReadFull(buf []byte) (int, error)
}

// TCPSource adapts *tcpchan.Channel.
type TCPSource struct {
	Ch *tcpchan.Channel
}

func (s TCPSource) ReadFull(buf []byte) (int, error) {
	return s.Ch.ReadFull(buf)
}

// RUDPSource adapts *rudp.Channel's message-oriented Recv into the
// byte-stream contract by concatenating in-order reassembled messages,
// consistent with the ARQ layer's ordered-delivery guarantee.
type RUDPSource struct {
	Ch      *rudp.Channel
	pending []byte
}

func (s *RUDPSource) ReadFull(buf []byte) (int, error) {
	need := len(buf)
	got := 0
	for got < need {
		if len(s.pending) == 0 {
			msg, err := s.Ch.Recv(100 * time.Millisecond)
			if err == rudp.ErrTimeout {
				continue
			}
			if err != nil {
				return got, err
			}
			s.pending = msg
		}
		n := copy(buf[got:], s.pending)
		s.pending = s.pending[n:]
		got += n
	}
	return got, nil
}

var _ io.Reader = (*ioAdapter)(nil)

// ioAdapter lets an io.Reader consumer read from a Source, for components
// that prefer io.ReadFull conventions.
type ioAdapter struct {
	src Source
}

func (a *ioAdapter) Read(p []byte) (int, error) {
	n, err := a.src.ReadFull(p)
	return n, err
}
