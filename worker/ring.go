// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2022
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package worker implements the FFT Worker and its Frame Ring: a bounded
// pool of B frame slots, filled by a single producer goroutine per
// receiver and drained by any number of consumers that each need to see
// every published frame exactly once.
//
// Unlike stream.RingBuffer (a single-reader byte ring with a read and a
// write cursor), this ring hands out frames by frame number and tracks a
// per-slot remaining-consumer count, so that more than one consumer can
// read the same stream of frames independently. In this module the
// Combiner is the only consumer; the Synchronizer reads the Sources
// directly before any frame is published. A slot cannot be reused by the
// producer until every registered consumer has released it.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/hnez/SoFi"
)

// ErrUnknownFrame is returned by GetFrame when the requested frame number
// has already been recycled by the ring (the caller fell more than B
// frames behind).
var ErrUnknownFrame = fmt.Errorf("worker: frame no longer available")

// Frame is one slot of the ring: an input sample buffer, the transform of
// that buffer, and the bookkeeping the ring needs to know when the slot
// can be reused.
type Frame struct {
	Input  sdr.SamplesC64
	Output []complex64

	frameNo            uint64
	valid              bool
	consumersRemaining int
}

// FrameNo returns the frame number this slot was last published under. It
// is only meaningful while the frame is held (between GetFrame and
// ReleaseFrame).
func (f *Frame) FrameNo() uint64 {
	return f.frameNo
}

// Ring is the Frame Ring described for the FFT Worker: B frame slots of N
// samples each, consumed by C independent consumers.
type Ring struct {
	mu   sync.Mutex
	cond *sync.Cond

	slots []*Frame
	n     int
	b     int
	c     int

	stopped bool
}

// NewRing allocates a ring of b frames, each holding n complex samples of
// input and output.
func NewRing(n, b, c int) (*Ring, error) {
	if n <= 0 || b <= 0 || c <= 0 {
		return nil, fmt.Errorf("%w: worker.NewRing: n, b and c must be positive", sdr.ErrInvalidArgument)
	}

	r := &Ring{
		slots: make([]*Frame, b),
		n:     n,
		b:     b,
		c:     c,
	}
	r.cond = sync.NewCond(&r.mu)

	for i := range r.slots {
		r.slots[i] = &Frame{
			Input:  make(sdr.SamplesC64, n),
			Output: make([]complex64, n),
		}
	}
	return r, nil
}

// N is the per-frame sample count.
func (r *Ring) N() int { return r.n }

// AcquireFreeSlot blocks until a slot with no remaining consumers is
// available, or ctx is done, or the ring is stopped. The returned frame is
// NOT yet visible to GetFrame; the caller must fill it and call Publish.
func (r *Ring) AcquireFreeSlot(ctx context.Context) (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.stopped {
			return nil, sdr.ErrStopped
		}
		for _, f := range r.slots {
			if !f.valid || f.consumersRemaining == 0 {
				return f, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.waitOrCancel(ctx)
	}
}

// Publish makes f visible to GetFrame under frameNo, with consumers
// copies remaining to be released before the slot can be reused.
func (r *Ring) Publish(f *Frame, frameNo uint64, consumers int) {
	r.mu.Lock()
	f.frameNo = frameNo
	f.valid = true
	f.consumersRemaining = consumers
	r.mu.Unlock()
	r.cond.Broadcast()
}

// GetFrame blocks until frameNo has been published, returning it with one
// outstanding reference registered to the caller. The caller must call
// ReleaseFrame exactly once for every successful GetFrame.
func (r *Ring) GetFrame(ctx context.Context, frameNo uint64) (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.stopped {
			return nil, sdr.ErrStopped
		}
		for _, f := range r.slots {
			if f.valid && f.frameNo == frameNo {
				return f, nil
			}
		}
		// If every slot is already ahead of frameNo, it has been
		// recycled and will never arrive.
		allAhead := true
		for _, f := range r.slots {
			if !f.valid || f.frameNo < frameNo {
				allAhead = false
				break
			}
		}
		if allAhead && r.slotCount() > 0 {
			return nil, ErrUnknownFrame
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.waitOrCancel(ctx)
	}
}

func (r *Ring) slotCount() int { return len(r.slots) }

// ReleaseFrame decrements the outstanding-reference count on f. Once it
// reaches zero the slot becomes eligible for reuse by the producer.
func (r *Ring) ReleaseFrame(f *Frame) {
	r.mu.Lock()
	if f.consumersRemaining > 0 {
		f.consumersRemaining--
	}
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Occupied counts the slots currently holding a published, not yet fully
// released frame. Used for ring-occupancy reporting.
func (r *Ring) Occupied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.slots {
		if f.valid && f.consumersRemaining > 0 {
			n++
		}
	}
	return n
}

// Busy reports whether any slot still has outstanding consumer
// references, the condition Destroy refuses to tear down under.
func (r *Ring) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.slots {
		if f.valid && f.consumersRemaining > 0 {
			return true
		}
	}
	return false
}

// Destroy releases the ring. It fails with sdr.ErrBusy if any slot still
// has an outstanding consumer reference.
func (r *Ring) Destroy() error {
	r.mu.Lock()
	for _, f := range r.slots {
		if f.valid && f.consumersRemaining > 0 {
			r.mu.Unlock()
			return sdr.ErrBusy
		}
	}
	r.stopped = true
	r.mu.Unlock()
	r.cond.Broadcast()
	return nil
}

// Stop wakes every blocked AcquireFreeSlot/GetFrame caller with
// sdr.ErrStopped, without requiring the ring to be idle first. Used for
// cooperative shutdown when a receiver has failed and the rest of the
// pipeline must unwind.
func (r *Ring) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// waitOrCancel waits on the ring's condition variable, but also wakes
// periodically to notice ctx cancellation delivered by another goroutine
// (sync.Cond has no native context support).
func (r *Ring) waitOrCancel(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.cond.Broadcast()
		case <-done:
		}
	}()
	r.cond.Wait()
	close(done)
}
