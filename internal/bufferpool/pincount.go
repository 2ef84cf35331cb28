package bufferpool

import "sync/atomic"

// pinCount tracks how many callers currently hold a frame's page pinned.
// Every mutation already happens with the pool latch held, but the counter
// is still bumped atomically so a Frame's pin count can be read (via
// PinCount) without re-acquiring that latch.
type pinCount struct {
	n int32
}

func (p *pinCount) inc() int32 {
	return atomic.AddInt32(&p.n, 1)
}

func (p *pinCount) dec() int32 {
	if atomic.LoadInt32(&p.n) <= 0 {
		panic("bufferpool: pin count decremented below zero")
	}
	return atomic.AddInt32(&p.n, -1)
}

func (p *pinCount) get() int32 {
	return atomic.LoadInt32(&p.n)
}

func (p *pinCount) reset() {
	atomic.StoreInt32(&p.n, 0)
}
