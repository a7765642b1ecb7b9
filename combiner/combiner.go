// Package combiner implements the pairwise cross-spectrum accumulation
// stage: for every pair of receivers it accumulates the conjugate product
// of their FFT frames over D input frames, and on the D-th frame it emits
// a combined magnitude spectrum and one phase-difference spectrum per
// pair, then resets.
//
// The accumulation shape (conjugate-multiply every pair, accumulate
// per-pair complex sums, atan2 the accumulated sum for phase, sum
// magnitudes-squared across pairs for the combined output) is ported from
// the original project's cb_run (backend/combiner.c). VOLK's SIMD kernels
// (volk_32fc_x2_multiply_conjugate_32fc and friends) have no Go
// equivalent in this module's dependency pack, so the accumulation loop
// here is plain complex arithmetic; see DESIGN.md for why no SIMD library
// was substituted.
package combiner

import (
	"context"
	"fmt"
	"math/cmplx"

	"github.com/hnez/SoFi"
	"github.com/hnez/SoFi/worker"
)

// Pair identifies one receiver pair by index into the Combiner's ring
// slice, in a fixed lexicographic enumeration order: (0,1) (0,2) ...
// (1,2) ...
type Pair struct {
	A, B int
}

// Combiner accumulates cross-spectra across R receivers and emits a
// decimated, combined output every D input frames.
type Combiner struct {
	n int
	r int
	d int
	e int

	pairs []Pair
	sum   [][]complex64 // one accumulator per pair, N bins each

	frame uint64
}

// New builds a Combiner for r receivers producing n-bin frames, decimated
// by d.
func New(n, r, d int) (*Combiner, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: combiner: n must be positive", sdr.ErrInvalidArgument)
	}
	if r < 2 {
		return nil, fmt.Errorf("%w: combiner: need at least two receivers", sdr.ErrInvalidArgument)
	}
	if d < 1 {
		return nil, fmt.Errorf("%w: combiner: d must be at least 1", sdr.ErrInvalidArgument)
	}

	var pairs []Pair
	for a := 0; a < r; a++ {
		for b := a + 1; b < r; b++ {
			pairs = append(pairs, Pair{A: a, B: b})
		}
	}

	sum := make([][]complex64, len(pairs))
	for i := range sum {
		sum[i] = make([]complex64, n)
	}

	return &Combiner{
		n:     n,
		r:     r,
		d:     d,
		e:     len(pairs),
		pairs: pairs,
		sum:   sum,
	}, nil
}

// PairCount returns E = R*(R-1)/2, the number of receiver pairs.
func (c *Combiner) PairCount() int {
	return c.e
}

// Output is one decimated, combined observation: a magnitude spectrum
// divided by D*E, and one phase-difference spectrum per pair.
type Output struct {
	Magnitude []float32
	Phase     [][]float32 // len == PairCount(), each len == N
}

func conjMult(a, b complex64) complex64 {
	return a * complex(real(b), -imag(b))
}

// Step consumes frame c.frame from each receiver's ring and folds it into
// the running per-pair accumulators. It returns ready=true, along with a
// populated Output, once every D input frames; otherwise it returns a
// zero Output and ready=false. Accumulators reset to zero immediately
// after an Output is emitted.
func (c *Combiner) Step(ctx context.Context, rings []*worker.Ring) (Output, bool, error) {
	if len(rings) != c.r {
		return Output{}, false, fmt.Errorf("%w: combiner: ring count does not match receiver count", sdr.ErrInvalidArgument)
	}

	frames := make([]*worker.Frame, c.r)
	for i := range rings {
		f, err := rings[i].GetFrame(ctx, c.frame)
		if err != nil {
			return Output{}, false, err
		}
		frames[i] = f
	}
	defer func() {
		for i, f := range frames {
			rings[i].ReleaseFrame(f)
		}
	}()

	for pi, p := range c.pairs {
		acc := c.sum[pi]
		a := frames[p.A].Output
		b := frames[p.B].Output
		for i := range acc {
			acc[i] += conjMult(a[i], b[i])
		}
	}

	c.frame++
	ready := c.frame%uint64(c.d) == 0
	if !ready {
		return Output{}, false, nil
	}

	scale := float32(c.d * c.e)
	mag := make([]float32, c.n)
	phase := make([][]float32, c.e)
	for pi := range c.pairs {
		phase[pi] = make([]float32, c.n)
		acc := c.sum[pi]
		for i, v := range acc {
			mag[i] += (real(v)*real(v) + imag(v)*imag(v)) / scale
			phase[pi][i] = float32(cmplx.Phase(complex128(v)))
		}
		for i := range acc {
			acc[i] = 0
		}
	}

	return Output{Magnitude: mag, Phase: phase}, true, nil
}
