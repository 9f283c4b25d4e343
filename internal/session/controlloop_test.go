package session

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

type bufReader struct{ r *bytes.Reader }

func (b bufReader) ReadFull(buf []byte) (int, error) {
	return io.ReadFull(b.r, buf)
}

func TestControlReadLoopStreamParsesClipboardThenStopsOnEOF(t *testing.T) {
	// type=0 (clipboard), len=5, "hello"
	raw := []byte{0, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}
	r := bufReader{r: bytes.NewReader(raw)}

	done := make(chan struct{})
	go func() {
		controlReadLoopStream(context.Background(), r)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("controlReadLoopStream did not return after EOF")
	}
}

type pipeReader struct{ r io.Reader }

func (p pipeReader) ReadFull(buf []byte) (int, error) {
	return io.ReadFull(p.r, buf)
}

// TestControlReadLoopStreamStopsWhenChannelCloses mirrors how teardown
// actually unblocks this loop: the underlying channel's Close() breaks a
// pending read with an error, since the loop only re-checks ctx between
// messages rather than during one.
func TestControlReadLoopStreamStopsWhenChannelCloses(t *testing.T) {
	pr, pw := io.Pipe()

	done := make(chan struct{})
	go func() {
		controlReadLoopStream(context.Background(), pipeReader{r: pr})
		close(done)
	}()
	pw.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("controlReadLoopStream did not stop after the channel closed")
	}
}
