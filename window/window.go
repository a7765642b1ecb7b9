// Package window generates analysis windows applied to a block of samples
// before it is handed to an FFT plan. It follows the caching pattern of
// hz.tools/sdr/stream's (experimental) WindowWriter, generalized to more
// than one window function and exposed as plain slices, rather than
// through a wrapped writer: the worker applies them in place, and the
// synchronizer divides its correlation magnitudes by one.
package window

import (
	"math"
	"sync"

	"github.com/hnez/SoFi"
)

const tau = 2 * math.Pi

// Hamming returns an n-sample Hamming window, w[i] = 0.53836 -
// 0.46164*cos(2*pi*i/(n-1)). It is the window used by the synchronizer to
// de-bias the cross-correlation magnitude search.
func Hamming(n int) []float32 {
	w := make([]float32, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = float32(0.53836 - 0.46164*math.Cos(tau*float64(i)/float64(n-1)))
	}
	return w
}

// Blackman returns an n-sample Blackman window, carried over from
// hz.tools/sdr/stream's WindowWriter for parity with the rest of the
// pack; unlike Hamming it is not used by the synchronizer or combiner by
// default, but remains available to callers that configure a different
// window function.
func Blackman(n int) []float32 {
	var (
		buf = make([]float32, n)
		a0  = 0.42
		a1  = 0.5
		a2  = 0.08
	)
	for i := range buf {
		buf[i] = float32(a0 -
			(a1 * math.Cos((tau*float64(i))/float64(n))) +
			(a2 * math.Cos((tau*2*float64(i))/float64(n))))
	}
	return buf
}

// Func generates an n-sample window.
type Func func(n int) []float32

// Cache memoizes a Func by window length, so repeated Apply calls against
// the same frame size do not re-generate the window coefficients.
type Cache struct {
	fn func(int) []float32

	mu      sync.Mutex
	cached  map[int][]float32
}

// NewCache wraps fn with a size-keyed cache.
func NewCache(fn Func) *Cache {
	return &Cache{
		fn:     fn,
		cached: map[int][]float32{},
	}
}

// Get returns the cached window of length n, generating and storing it on
// first use.
func (c *Cache) Get(n int) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.cached[n]; ok {
		return w
	}
	w := c.fn(n)
	c.cached[n] = w
	return w
}

// Apply multiplies s in place by the cached window of matching length.
func (c *Cache) Apply(s sdr.SamplesC64) {
	w := c.Get(s.Length())
	for i := range s {
		s[i] = complex(real(s[i])*w[i], imag(s[i])*w[i])
	}
}
