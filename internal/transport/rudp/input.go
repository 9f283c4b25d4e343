package rudp

import "github.com/mirrorctl/scrcpy-go/internal/wire"

// SendTouch serialises and writes a compact touch message in one call. The
// writer is safe for concurrent use by multiple goroutines (Send locks
// internally).
func (c *Channel) SendTouch(t wire.FastTouch) (int, error) {
	return c.Send(t.Encode())
}

// SendKey serialises and writes a compact key message in one call.
func (c *Channel) SendKey(k wire.FastKey) (int, error) {
	return c.Send(k.Encode())
}
