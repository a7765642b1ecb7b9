// Package pipeline wires the Sample Source, FFT Worker, Frame Ring,
// Synchronizer and Combiner together behind the small Core API this
// module exposes to a host process: New, PairCount, Step and Close.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hnez/SoFi/combiner"
	"github.com/hnez/SoFi/fft"
	"github.com/hnez/SoFi/metrics"
	"github.com/hnez/SoFi/source"
	"github.com/hnez/SoFi/synchronizer"
	"github.com/hnez/SoFi/window"
	"github.com/hnez/SoFi/worker"
)

// Config describes the tunables of a Pipeline: frame size, ring depth,
// decimation factor, receiver count and where to read each receiver's
// samples from.
type Config struct {
	// N is the FFT frame length, in samples.
	N int

	// B is the number of frame-ring slots per receiver.
	B int

	// D is the combiner's decimation factor.
	D int

	// DevicePaths holds one path per receiver, opened as a
	// source.FileSource. Ignored if Sources is set.
	DevicePaths []string

	// Sources, if set, overrides DevicePaths: each entry is used
	// directly as a receiver's Sample Source (used by tests and by
	// --sim mode).
	Sources []source.Source

	// Window applies an analysis window to each frame before its
	// forward transform. Defaults to window.Hamming if nil.
	Window window.Func

	// Planner supplies the fft.Plan implementation. Defaults to
	// fft.GonumPlanner if nil.
	Planner fft.Planner

	// Metrics, if set, receives ring occupancy and worker error counts as
	// the pipeline runs. Nil disables instrumentation.
	Metrics *metrics.Metrics
}

// Pipeline is the running Core API object: pipeline_new returns one,
// pipeline_step drains it, pipeline_destroy tears it down.
type Pipeline struct {
	cfg      Config
	cancel   context.CancelFunc
	ctx      context.Context
	workers  []*worker.Worker
	rings    []*worker.Ring
	combiner *combiner.Combiner
	files    []io.Closer

	runErrs chan error
}

// New is pipeline_new: it opens every receiver's Sample Source, runs the
// Synchronizer to bring them into sample lock, then starts one FFT Worker
// goroutine per receiver feeding a Frame Ring, and returns a Pipeline
// ready for Step.
func New(cfg Config) (*Pipeline, error) {
	r := len(cfg.DevicePaths)
	if len(cfg.Sources) > 0 {
		r = len(cfg.Sources)
	}
	if r < 2 {
		return nil, fmt.Errorf("pipeline: need at least two receivers")
	}
	if cfg.N <= 0 || cfg.B <= 0 || cfg.D <= 0 {
		return nil, fmt.Errorf("pipeline: N, B and D must be positive")
	}

	planner := cfg.Planner
	if planner == nil {
		planner = fft.GonumPlanner
	}
	winFn := cfg.Window
	if winFn == nil {
		winFn = window.Hamming
	}
	winCache := window.NewCache(winFn)

	srcs := make([]source.Source, r)
	var files []io.Closer
	if len(cfg.Sources) > 0 {
		copy(srcs, cfg.Sources)
	} else {
		for i, path := range cfg.DevicePaths {
			f, err := os.Open(path)
			if err != nil {
				closeAll(files)
				return nil, fmt.Errorf("pipeline: opening receiver %d: %w", i, err)
			}
			files = append(files, f)
			srcs[i] = source.NewFileSource(f)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	rings := make([]*worker.Ring, r)
	workers := make([]*worker.Worker, r)
	for i := range srcs {
		ring, err := worker.NewRing(cfg.N, cfg.B, 1)
		if err != nil {
			cancel()
			closeAll(files)
			return nil, err
		}
		rings[i] = ring
		workers[i] = worker.New(srcs[i], ring, winCache, planner)
	}

	if _, err := synchronizer.Sync(ctx, planner, workers, cfg.N); err != nil {
		cancel()
		closeAll(files)
		return nil, fmt.Errorf("pipeline: synchronizing receivers: %w", err)
	}

	comb, err := combiner.New(cfg.N, r, cfg.D)
	if err != nil {
		cancel()
		closeAll(files)
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		workers:  workers,
		rings:    rings,
		combiner: comb,
		files:    files,
		runErrs:  make(chan error, r),
	}

	for i, w := range workers {
		go func(i int, w *worker.Worker) {
			err := w.Run(p.ctx, 1)
			if err != nil {
				if cfg.Metrics != nil {
					cfg.Metrics.WorkerErrors.WithLabelValues(strconv.Itoa(i)).Inc()
				}
				p.runErrs <- fmt.Errorf("pipeline: receiver %d: %w", i, err)
			}
		}(i, w)
	}

	return p, nil
}

// PairCount is pipeline_pair_count.
func (p *Pipeline) PairCount() int {
	return p.combiner.PairCount()
}

// Step is pipeline_step: it blocks until the Combiner has a decimated
// output ready, or a receiver has failed, or the pipeline's context is
// done. A non-nil error means the pipeline is no longer usable; Close
// should still be called.
func (p *Pipeline) Step() (combiner.Output, bool, error) {
	select {
	case err := <-p.runErrs:
		return combiner.Output{}, false, err
	default:
	}

	for {
		out, ready, err := p.combiner.Step(p.ctx, p.rings)
		if err != nil {
			return combiner.Output{}, false, err
		}
		if p.cfg.Metrics != nil {
			for i, r := range p.rings {
				p.cfg.Metrics.RingOccupancy.WithLabelValues(strconv.Itoa(i)).Set(float64(r.Occupied()))
			}
		}
		if ready {
			return out, true, nil
		}
	}
}

// Close is pipeline_destroy: it stops every worker, tears down every
// ring, and closes any device files this Pipeline opened itself.
func (p *Pipeline) Close() error {
	p.cancel()
	for _, r := range p.rings {
		r.Stop()
	}
	var firstErr error
	for _, r := range p.rings {
		if err := r.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closeAll(p.files)
	return firstErr
}

func closeAll(files []io.Closer) {
	for _, f := range files {
		f.Close()
	}
}
