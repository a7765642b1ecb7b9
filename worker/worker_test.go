package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hnez/SoFi/fft"
	"github.com/hnez/SoFi/source"
	"github.com/hnez/SoFi/worker"
)

func TestWorkerRunPublishesFrames(t *testing.T) {
	const n = 64

	ring, err := worker.NewRing(n, 2, 1)
	require.NoError(t, err)

	src := source.NewSimulatedSource(source.CW(1000, 48000))
	w := worker.New(src, ring, nil, fft.GonumPlanner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 1) }()

	f, err := ring.GetFrame(ctx, 0)
	require.NoError(t, err)
	require.Len(t, f.Output, n)
	ring.ReleaseFrame(f)

	f1, err := ring.GetFrame(ctx, 1)
	require.NoError(t, err)
	ring.ReleaseFrame(f1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
