package window_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hnez/SoFi"
	"github.com/hnez/SoFi/window"
)

func TestHammingEndpoints(t *testing.T) {
	w := window.Hamming(8)
	assert.Len(t, w, 8)

	// w[0] = 0.53836 - 0.46164 = 0.07672
	assert.InDelta(t, 0.07672, w[0], 1e-4)
	// w[n-1] should equal w[0] by symmetry of cos.
	assert.InDelta(t, float64(w[0]), float64(w[len(w)-1]), 1e-6)
}

func TestHammingSingleSample(t *testing.T) {
	w := window.Hamming(1)
	assert.Equal(t, []float32{1}, w)
}

func TestCacheReusesWindow(t *testing.T) {
	calls := 0
	c := window.NewCache(func(n int) []float32 {
		calls++
		return window.Hamming(n)
	})

	c.Get(16)
	c.Get(16)
	c.Get(32)

	assert.Equal(t, 2, calls)
}

func TestApplyScalesSamples(t *testing.T) {
	c := window.NewCache(func(n int) []float32 {
		w := make([]float32, n)
		for i := range w {
			w[i] = 0.5
		}
		return w
	})

	s := sdr.SamplesC64{1 + 2i, 3 + 4i}
	c.Apply(s)

	assert.Equal(t, complex64(0.5+1i), s[0])
	assert.Equal(t, complex64(1.5+2i), s[1])
}
