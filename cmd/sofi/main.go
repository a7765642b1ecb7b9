// Command sofi drives the signal-processing core against a set of
// receiver device files (or, with --sim, synthetic receivers), writing the
// combined output to a wire.Encoder sink and optionally exposing
// Prometheus metrics.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/hnez/SoFi/config"
	"github.com/hnez/SoFi/metrics"
	"github.com/hnez/SoFi/pipeline"
	"github.com/hnez/SoFi/source"
	"github.com/hnez/SoFi/wire"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "path to a YAML configuration file")
		simulate   = pflag.Bool("sim", false, "use synthetic receivers instead of device files")
		receivers  = pflag.StringSlice("receiver", nil, "device path for a receiver; repeatable")
		frameSize  = pflag.Int("frame-size", 0, "FFT frame length, overrides config")
		logLevel   = pflag.String("log-level", "", "debug, info, warn or error; overrides config")
	)
	pflag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("loading configuration", "err", err)
		}
		cfg = loaded
	}
	if len(*receivers) > 0 {
		cfg.Receivers = *receivers
	}
	if *frameSize > 0 {
		cfg.FrameSize = *frameSize
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if lvl, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(lvl)
	}

	if err := run(cfg, *simulate); err != nil {
		logger.Fatal("sofi exited with an error", "err", err)
	}
}

func run(cfg config.Config, simulate bool) error {
	m := metrics.New()

	pcfg := pipeline.Config{
		N:       cfg.FrameSize,
		B:       cfg.RingDepth,
		D:       cfg.Decimation,
		Metrics: m,
	}

	if simulate {
		pcfg.Sources = simulatedSources(len(cfg.Receivers))
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
		pcfg.DevicePaths = cfg.Receivers
	}

	if cfg.MetricsListen != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsListen); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	logger.Info("aligning receivers", "count", len(cfg.Receivers), "frame_size", pcfg.N)
	p, err := pipeline.New(pcfg)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer p.Close()
	logger.Info("receivers in sample lock, starting combiner", "pairs", p.PairCount())

	var enc *wire.Encoder
	if cfg.WireOutput != "" {
		f, err := os.Create(cfg.WireOutput)
		if err != nil {
			return fmt.Errorf("opening wire output: %w", err)
		}
		defer f.Close()
		enc = wire.NewEncoder(f)
		defer enc.Flush()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-sigs
		logger.Info("shutting down")
		close(done)
	}()

	for {
		select {
		case <-done:
			return nil
		default:
		}

		out, ready, err := p.Step()
		if err != nil {
			return fmt.Errorf("pipeline step: %w", err)
		}
		if !ready {
			continue
		}

		m.FramesProcessed.Inc()
		if enc != nil {
			if err := enc.WriteFrame(out); err != nil {
				return fmt.Errorf("writing wire frame: %w", err)
			}
		}
	}
}

func simulatedSources(n int) []source.Source {
	srcs := make([]source.Source, n)
	for i := range srcs {
		srcs[i] = source.NewSimulatedSource(source.CW(1000, 2_400_000))
	}
	return srcs
}
