package source

import (
	"math"

	"github.com/hnez/SoFi"
)

// Generator synthesizes one complex sample at absolute sample index n.
type Generator func(n uint64) complex64

// CW returns a Generator for a continuous sine wave at freqHz sampled at
// sampleRate.
func CW(freqHz float64, sampleRate uint) Generator {
	return func(n uint64) complex64 {
		phase := 2 * math.Pi * freqHz * float64(n) / float64(sampleRate)
		return complex64(complex(math.Cos(phase), math.Sin(phase)))
	}
}

// SimulatedSource is a Source backed by a Generator instead of a real
// device, used by tests and by "cmd/sofi --sim" to exercise the full
// pipeline without hardware. It hands out u8-encoded IQ bytes, the same
// wire format a raw SDR device would produce.
type SimulatedSource struct {
	gen Generator
	n   uint64 // absolute sample index of the next un-committed sample

	peeked []byte
}

// NewSimulatedSource builds a SimulatedSource from gen, starting at sample
// index 0.
func NewSimulatedSource(gen Generator) *SimulatedSource {
	return &SimulatedSource{gen: gen}
}

// Peek implements Source.
func (s *SimulatedSource) Peek(maxBytes int) ([]byte, error) {
	samples := maxBytes / BytesPerSample
	if len(s.peeked) == samples*BytesPerSample {
		return s.peeked, nil
	}

	buf := make(sdr.SamplesC64, samples)
	for i := range buf {
		buf[i] = s.gen(s.n + uint64(i))
	}

	u8 := make(sdr.SamplesU8, samples)
	if err := buf.ToU8(u8); err != nil {
		return nil, err
	}

	raw := make([]byte, samples*BytesPerSample)
	for i, pair := range u8 {
		raw[2*i] = pair[0]
		raw[2*i+1] = pair[1]
	}
	s.peeked = raw
	return raw, nil
}

// Commit implements Source.
func (s *SimulatedSource) Commit() error {
	s.n += uint64(len(s.peeked) / BytesPerSample)
	s.peeked = nil
	return nil
}

// Seek implements Source.
func (s *SimulatedSource) Seek(deltaSamples int) error {
	if deltaSamples < 0 {
		return ErrNegativeSeek
	}
	s.n += uint64(deltaSamples)
	s.peeked = nil
	return nil
}
