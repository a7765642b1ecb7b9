// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020
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

// Package synchronizer estimates and absorbs the sample-clock offset
// between a set of receivers sharing one local oscillator, so that frame
// number k from every receiver covers the same slice of wall-clock time
// before the Combiner ever sees it.
//
// The approach (cross-correlate each receiver's first frame against
// receiver 0's, pick the lag at the correlation's magnitude peak, discard
// that many samples from whichever side is ahead, repeat until the
// measured lag is consistently zero) follows the kerberosSDR alignment
// routine, generalized from hardcoded reader pairs to this module's
// Sample Source and frame-ring based workers.
package synchronizer

import (
	"context"
	"fmt"
	"math"
	"unsafe"

	"github.com/hnez/SoFi"
	"github.com/hnez/SoFi/fft"
	"github.com/hnez/SoFi/source"
	"github.com/hnez/SoFi/window"
	"github.com/hnez/SoFi/worker"
)

// ErrSyncFailed is returned if the iterative alignment loop fails to
// converge within maxRounds.
var ErrSyncFailed = fmt.Errorf("synchronizer: failed to converge")

func conjMult(a, b complex64) complex64 {
	return a * complex(real(b), -imag(b))
}

// crossCorrelator runs one forward/forward/backward FFT triple to compute
// the circular cross-correlation of two N-sample buffers.
type crossCorrelator struct {
	n int

	in1, in2, out       sdr.SamplesC64
	freq1, freq2        []complex64
	plan1, plan2, planO fft.Plan
}

func newCrossCorrelator(planner fft.Planner, n int) (*crossCorrelator, error) {
	cc := &crossCorrelator{
		n:     n,
		in1:   make(sdr.SamplesC64, n),
		in2:   make(sdr.SamplesC64, n),
		out:   make(sdr.SamplesC64, n),
		freq1: make([]complex64, n),
		freq2: make([]complex64, n),
	}

	var err error
	if cc.plan1, err = planner(cc.in1, cc.freq1, fft.Forward); err != nil {
		return nil, err
	}
	if cc.plan2, err = planner(cc.in2, cc.freq2, fft.Forward); err != nil {
		return nil, err
	}
	if cc.planO, err = planner(cc.out, cc.freq1, fft.Backward); err != nil {
		return nil, err
	}
	return cc, nil
}

func (cc *crossCorrelator) close() {
	cc.plan1.Close()
	cc.plan2.Close()
	cc.planO.Close()
}

// correlate writes the circular cross-correlation of a and b into the
// returned slice, overwriting cc.freq1 with the frequency-domain product
// as a side effect.
func (cc *crossCorrelator) correlate(a, b []complex64) ([]complex64, error) {
	copy(cc.in1, a)
	copy(cc.in2, b)

	if err := cc.plan1.Transform(); err != nil {
		return nil, err
	}
	if err := cc.plan2.Transform(); err != nil {
		return nil, err
	}
	for i := range cc.freq1 {
		cc.freq1[i] = conjMult(cc.freq1[i], cc.freq2[i])
	}
	if err := cc.planO.Transform(); err != nil {
		return nil, err
	}

	out := make([]complex64, cc.n)
	copy(out, cc.out)
	return out, nil
}

// lagOf finds the index of the magnitude-squared peak of a correlation
// result, de-biased by win, and converts it to a signed lag: indices in
// [0, n/2) report a leading (negative) lag of -i, indices in [n/2, n)
// report a trailing (positive) lag of n-i.
func lagOf(corr []complex64, win []float32) int {
	n := len(corr)
	best := -1
	bestMag := math.Inf(-1)

	for i, c := range corr {
		mag := float64(real(c)*real(c)+imag(c)*imag(c)) / float64(win[i])
		if mag > bestMag {
			bestMag = mag
			best = i
		}
	}

	if best < n/2 {
		return -best
	}
	return n - best
}

// checkLags cross-correlates frame 0 of every receiver against receiver
// 0's frame 0, returning one lag per receiver (the 0th entry is always 0).
func checkLags(planner fft.Planner, frames [][]complex64, win []float32) ([]int, error) {
	n := len(frames[0])
	cc, err := newCrossCorrelator(planner, n)
	if err != nil {
		return nil, err
	}
	defer cc.close()

	lags := make([]int, len(frames))
	for i := 1; i < len(frames); i++ {
		corr, err := cc.correlate(frames[0], frames[i])
		if err != nil {
			return nil, err
		}
		lags[i] = lagOf(corr, win)
	}
	return lags, nil
}

// Sync implements the synchronizer's convergence loop: it repeatedly reads
// a fresh frame from every worker's Source, measures the pairwise lag
// against receiver 0, and advances the receivers' Sources as absorb
// describes until ten consecutive rounds agree that every lag is zero.
// The lags measured in the first round are not acted on. Every frame read
// here only measures alignment; none of them feeds the Combiner.
//
// Workers must not have had Run started yet: Sync reads directly from
// each worker's Source so the absorbed samples never reach the frame
// ring.
func Sync(ctx context.Context, planner fft.Planner, workers []*worker.Worker, n int) ([]int, error) {
	if len(workers) < 2 {
		return nil, fmt.Errorf("synchronizer: need at least two receivers")
	}

	win := window.Hamming(n)
	const maxRounds = 10_000
	const agreementRounds = 10

	agree := 0
	var lastLags []int

	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frames := make([][]complex64, len(workers))
		for i, w := range workers {
			raw, err := w.Source.Peek(n * source.BytesPerSample)
			if err != nil {
				return nil, err
			}
			if len(raw) < n*source.BytesPerSample {
				return nil, fmt.Errorf("synchronizer: short read from receiver %d", i)
			}
			frames[i], err = decodeC64(raw, n)
			if err != nil {
				return nil, err
			}
			if err := w.Source.Commit(); err != nil {
				return nil, err
			}
		}

		lags, err := checkLags(planner, frames, win)
		if err != nil {
			return nil, err
		}

		if allZero(lags) {
			agree++
			lastLags = lags
			if agree >= agreementRounds {
				return lastLags, nil
			}
			continue
		}
		agree = 0

		// The first round's lags are measured but not absorbed.
		if round == 0 {
			continue
		}
		if err := absorb(workers, lags); err != nil {
			return nil, err
		}
	}

	return nil, ErrSyncFailed
}

func allZero(lags []int) bool {
	for _, l := range lags {
		if l != 0 {
			return false
		}
	}
	return true
}

// absorb discards samples from the receivers that see the signal later: a
// positive lag means receiver i sees it that many samples after receiver
// 0, a negative lag means receiver 0 sees it later. Every lag is rebased
// on the smallest one (receiver 0 counting as 0), and each receiver is
// advanced by its rebased lag, so the earliest receiver is never moved.
func absorb(workers []*worker.Worker, lags []int) error {
	min := 0
	for _, l := range lags {
		if l < min {
			min = l
		}
	}

	if min < 0 {
		if err := workers[0].Source.Seek(-min); err != nil {
			return err
		}
		for i := range lags {
			lags[i] -= min
		}
	}

	// Receiver 0 was already advanced by -min above; lags[0] is now just
	// -min as a bookkeeping artifact of the subtraction, not a real
	// residual offset, so it must not be seeked again here.
	for i := 1; i < len(lags); i++ {
		l := lags[i]
		if l == 0 {
			continue
		}
		if err := workers[i].Source.Seek(l); err != nil {
			return err
		}
	}
	return nil
}

// decodeC64 reinterprets raw interleaved u8 IQ bytes as sdr.SamplesU8,
// then converts through the same sdr.SamplesU8.ToC64 path the FFT Worker
// uses, so the alignment measurement sees bit-identical samples to the
// ones that will later reach the Combiner.
func decodeC64(raw []byte, n int) ([]complex64, error) {
	su8 := unsafe.Slice((*[2]uint8)(unsafe.Pointer(&raw[0])), n)

	out := make(sdr.SamplesC64, n)
	if _, err := su8.ToC64(out); err != nil {
		return nil, err
	}
	return out, nil
}
