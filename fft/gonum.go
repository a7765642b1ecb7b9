// Package fft's gonum.go adapts gonum's discrete Fourier transform to the
// fft.Planner contract used by the rest of this module.
package fft

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/hnez/SoFi"
)

// gonumPlan binds a gonum CmplxFFT to a fixed pair of IQ and frequency
// buffers, so repeated Transform calls do not re-plan the transform.
type gonumPlan struct {
	fft       *fourier.CmplxFFT
	iq        sdr.SamplesC64
	frequency []complex64
	direction Direction
	scratch   []complex128
}

func (p *gonumPlan) Transform() error {
	switch p.direction {
	case Forward:
		for i, s := range p.iq {
			p.scratch[i] = complex128(s)
		}
		p.fft.Coefficients(p.scratch, p.scratch)
		for i, c := range p.scratch {
			p.frequency[i] = complex64(c)
		}
	case Backward:
		for i, c := range p.frequency {
			p.scratch[i] = complex128(c)
		}
		p.fft.Sequence(p.scratch, p.scratch)
		n := complex(float64(p.fft.Len()), 0)
		for i, c := range p.scratch {
			p.iq[i] = complex64(c / n)
		}
	default:
		return fmt.Errorf("fft: unknown direction")
	}
	return nil
}

func (p *gonumPlan) Close() error {
	return nil
}

// GonumPlanner is a fft.Planner backed by gonum's dsp/fourier package. It is
// the default Planner used by the worker ring and the synchronizer: it needs
// no cgo toolchain and is precise enough for both the forward analysis FFT
// and the inverse FFT used during cross-correlation.
func GonumPlanner(iq sdr.SamplesC64, frequency []complex64, direction Direction) (Plan, error) {
	if len(frequency) < iq.Length() {
		return nil, sdr.ErrDstTooSmall
	}
	if iq.Length() < len(frequency) {
		return nil, sdr.ErrDstTooSmall
	}

	n := iq.Length()
	return &gonumPlan{
		fft:       fourier.NewCmplxFFT(n),
		iq:        iq,
		frequency: frequency[:n],
		direction: direction,
		scratch:   make([]complex128, n),
	}, nil
}

// vim: foldmethod=marker
