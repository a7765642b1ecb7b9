package worker

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/hnez/SoFi"
	"github.com/hnez/SoFi/fft"
	"github.com/hnez/SoFi/source"
	"github.com/hnez/SoFi/window"
)

// Worker is the FFT Worker: it owns one receiver's Sample Source and one
// producer goroutine that continuously fills frames of a Ring and hands
// them to fft.Plan.
type Worker struct {
	Source source.Source
	Ring   *Ring

	n       int
	window  *window.Cache
	planner fft.Planner

	frameNo uint64
	lastErr error
}

// New builds a Worker reading from src, producing into ring, applying win
// (nil disables windowing) before each forward transform using the
// supplied fft.Planner.
func New(src source.Source, ring *Ring, win *window.Cache, planner fft.Planner) *Worker {
	return &Worker{
		Source:  src,
		Ring:    ring,
		n:       ring.N(),
		window:  win,
		planner: planner,
	}
}

// FrameNo returns the frame number of the next frame this worker will
// publish.
func (w *Worker) FrameNo() uint64 {
	return w.frameNo
}

// Err returns the error that stopped the worker's Run loop, if any.
func (w *Worker) Err() error {
	return w.lastErr
}

// Run is the producer loop described for the FFT Worker: acquire a free
// slot, fill it from the Sample Source, run the forward transform, and
// publish it with one outstanding reference per consumer. It returns when
// ctx is cancelled, the Source fails, or the Ring is stopped.
func (w *Worker) Run(ctx context.Context, consumers int) error {
	bytesPerFrame := w.n * source.BytesPerSample

	for {
		if err := ctx.Err(); err != nil {
			w.lastErr = err
			return err
		}

		raw, err := w.Source.Peek(bytesPerFrame)
		if err != nil {
			w.lastErr = err
			w.Ring.Stop()
			return err
		}
		if len(raw) < bytesPerFrame {
			// Short read: device not keeping up. Wait for the next
			// Peek rather than transforming a partial frame.
			continue
		}

		slot, err := w.Ring.AcquireFreeSlot(ctx)
		if err != nil {
			w.lastErr = err
			return err
		}

		if err := decodeU8(raw, slot.Input); err != nil {
			w.lastErr = err
			w.Ring.Stop()
			return err
		}
		if w.window != nil {
			w.window.Apply(slot.Input)
		}

		plan, err := w.planner(slot.Input, slot.Output, fft.Forward)
		if err != nil {
			w.lastErr = err
			w.Ring.Stop()
			return err
		}
		if err := plan.Transform(); err != nil {
			plan.Close()
			w.lastErr = err
			w.Ring.Stop()
			return err
		}
		plan.Close()

		if err := w.Source.Commit(); err != nil {
			w.lastErr = err
			w.Ring.Stop()
			return err
		}

		w.Ring.Publish(slot, w.frameNo, consumers)
		w.frameNo++
	}
}

// decodeU8 reinterprets raw interleaved u8 IQ bytes as sdr.SamplesU8, with
// no copy, and hands off to sdr.SamplesU8.ToC64 so the hot path uses the
// same conversion every other consumer of this package's IQ types gets.
func decodeU8(raw []byte, dst sdr.SamplesC64) error {
	su8 := bytesAsSamplesU8(raw)
	if su8.Length() > dst.Length() {
		return sdr.ErrDstTooSmall
	}
	_, err := su8.ToC64(dst[:su8.Length()])
	return err
}

// bytesAsSamplesU8 reinterprets a []byte of interleaved IQ bytes as
// sdr.SamplesU8 without copying, the same unsafe-pointer-cast idiom as
// sdr.UnsafeSamplesAsBytes, run in reverse.
func bytesAsSamplesU8(raw []byte) sdr.SamplesU8 {
	n := len(raw) / source.BytesPerSample
	return unsafe.Slice((*[2]uint8)(unsafe.Pointer(&raw[0])), n)
}

// ErrShortFrame documents the short-read condition Run retries on; it is
// never itself returned from Run.
var ErrShortFrame = fmt.Errorf("worker: short frame read")
