package framepool

import "testing"

func TestAcquirePushPopNeverExceedsPoolSize(t *testing.T) {
	p := NewPool(4, 64, 64)
	live := 0
	var held []*Frame
	for i := 0; i < 10; i++ {
		f, ok := p.Acquire()
		if ok {
			live++
			held = append(held, f)
		}
		if live > p.Size() {
			t.Fatalf("live handles %d exceeded pool size %d", live, p.Size())
		}
	}
	for i, f := range held {
		if !p.Push(f, int64(i)*1000) {
			live--
		}
	}
	for {
		f, ok := p.Pop()
		if !ok {
			break
		}
		if live > p.Size() {
			t.Fatalf("live handles %d exceeded pool size %d", live, p.Size())
		}
		f.Release()
		live--
	}
	if live != 0 {
		t.Fatalf("expected every pushed frame to be popped, %d still live", live)
	}
	if p.UsedCount() != 0 {
		t.Fatalf("expected all slots idle after release, got %d used", p.UsedCount())
	}
}

func TestPopLatestDrainsAndRestoresPool(t *testing.T) {
	p := NewPool(4, 64, 64)
	var last *Frame
	for i := 0; i < 3; i++ {
		f, ok := p.Acquire()
		if !ok {
			t.Fatalf("acquire %d failed", i)
		}
		f.Seq = uint64(i)
		p.Push(f, int64(i)*1000)
		last = f
	}
	got, ok := p.PopLatest()
	if !ok {
		t.Fatalf("expected a frame")
	}
	if got.Seq != last.Seq {
		t.Fatalf("expected newest frame (seq %d), got seq %d", last.Seq, got.Seq)
	}
	if _, ok := p.Pop(); ok {
		t.Fatalf("expected queue empty after PopLatest")
	}
	got.Release()
	if p.UsedCount() != 0 {
		t.Fatalf("expected pool restored to idle, got %d used", p.UsedCount())
	}
}

func TestResizeAppliesToIdleSlotsOnly(t *testing.T) {
	p := NewPool(2, 64, 64)
	busy, ok := p.Acquire()
	if !ok {
		t.Fatalf("acquire failed")
	}
	p.Resize(128, 96)

	idle, ok := p.Acquire()
	if !ok {
		t.Fatalf("acquire after resize failed")
	}
	if idle.Width != 128 || idle.Height != 96 {
		t.Fatalf("expected resized dims on newly-acquired idle frame, got %dx%d", idle.Width, idle.Height)
	}
	if busy.Width != 64 || busy.Height != 64 {
		t.Fatalf("expected busy frame to keep old dims, got %dx%d", busy.Width, busy.Height)
	}
	busy.Release()
	idle.Release()
}

func TestMailboxDiscardsDisplacedFrame(t *testing.T) {
	p := NewPool(4, 64, 64)
	var mb Mailbox
	f1, _ := p.Acquire()
	f2, _ := p.Acquire()
	mb.Put(f1)
	mb.Put(f2) // displaces f1, which should be released back to the pool

	if p.UsedCount() != 1 {
		t.Fatalf("expected displaced frame released, used=%d", p.UsedCount())
	}
	got := mb.Take()
	if got != f2 {
		t.Fatalf("expected f2 from mailbox")
	}
	got.Release()
}
