// Package wire encodes Combiner output as a flat stream of little-endian
// float32s, for the optional debug sink described for the module's
// external interfaces. The per-frame layout is ported directly from the
// original project's write_flipped_fft_halves: each array (every pair's
// phase spectrum, then the combined magnitude spectrum) is written upper
// half first, then lower half, so a consumer sees 0 Hz centered rather
// than at index 0.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hnez/SoFi/combiner"
)

// Encoder writes combiner.Output values to an underlying io.Writer.
type Encoder struct {
	w   *bufio.Writer
	buf []byte
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// WriteFrame writes one decimated output: each pair's phase spectrum (in
// enumeration order), followed by the combined magnitude spectrum, each
// array written fftshifted (upper half, then lower half).
func (e *Encoder) WriteFrame(out combiner.Output) error {
	for _, phase := range out.Phase {
		if err := e.writeShifted(phase); err != nil {
			return err
		}
	}
	return e.writeShifted(out.Magnitude)
}

// Flush flushes any buffered bytes to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

func (e *Encoder) writeShifted(samples []float32) error {
	n := len(samples)
	if n%2 != 0 {
		return fmt.Errorf("wire: array length %d is not even", n)
	}
	half := n / 2

	if cap(e.buf) < 4*half {
		e.buf = make([]byte, 4*half)
	}
	buf := e.buf[:4*half]

	encode(buf, samples[half:])
	if _, err := e.w.Write(buf); err != nil {
		return err
	}

	encode(buf, samples[:half])
	if _, err := e.w.Write(buf); err != nil {
		return err
	}
	return nil
}

func encode(dst []byte, samples []float32) {
	for i, f := range samples {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(f))
	}
}
