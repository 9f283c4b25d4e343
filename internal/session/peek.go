package session

import "github.com/mirrorctl/scrcpy-go/internal/demux"

// peekSource lets the handshake consume the reliable-UDP transport's
// leading 12-byte video header to confirm the stream without losing it:
// the saved bytes are replayed to the demuxer's first read before falling
// through to the underlying source. TCP's handshake preamble (device name
// + video size) has no equivalent need since it is never part of the
// per-packet framed stream the demuxer parses.
type peekSource struct {
	inner demux.Source
	saved []byte
}

func (p *peekSource) ReadFull(buf []byte) (int, error) {
	n := copy(buf, p.saved)
	p.saved = p.saved[n:]
	if n == len(buf) {
		return n, nil
	}
	got, err := p.inner.ReadFull(buf[n:])
	return n + got, err
}
