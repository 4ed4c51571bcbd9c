// Command posemon watches a camera or video file, measures a joint angle of
// the person in view and overlays the posture classification.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swdee/go-posemon/config"
	"github.com/swdee/go-posemon/cpu"
	"github.com/swdee/go-posemon/hub"
	"github.com/swdee/go-posemon/journal"
	"github.com/swdee/go-posemon/logger"
	"github.com/swdee/go-posemon/metrics"
	"github.com/swdee/go-posemon/monitor"
	"github.com/swdee/go-posemon/pose"
	"github.com/swdee/go-posemon/pose/rknn"
	"github.com/swdee/go-posemon/render"
	"github.com/swdee/go-posemon/video"
)

// flags are the command line overrides of the config file
type flags struct {
	configFile string
	source     string
	model      string
	replay     string
	record     string
}

func main() {

	var f flags

	flag.StringVar(&f.configFile, "c", "", "YAML config file, defaults to $"+config.EnvConfigFile)
	flag.StringVar(&f.source, "s", "", "Video source, camera device index or video file")
	flag.StringVar(&f.model, "m", "", "RKNN compiled YOLOv8-pose model file")
	flag.StringVar(&f.replay, "replay", "", "Replay landmarks recorded with -record instead of running the model")
	flag.StringVar(&f.record, "record", "", "Record estimated landmarks to this file for later replay")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		logger.Get().Error(ctx, "posemon failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {

	if f.configFile == "" {
		f.configFile = os.Getenv(config.EnvConfigFile)
	}

	cfg, err := config.Load(ctx, f.configFile)

	if err != nil {
		return err
	}

	if f.source != "" {
		cfg.Source = f.source
	}

	if f.model != "" {
		cfg.Model.File = f.model
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(os.Stderr, cfg.LogFormat); err != nil {
		return err
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	log := logger.Named("posemon")

	if cfg.Model.CPUAffinity != "" {
		aff, err := config.ParseAffinity(cfg.Model.CPUAffinity)

		if err != nil {
			return err
		}

		if err := cpu.Pin(aff); err != nil {
			log.Warn(ctx, "running without cpu affinity", logger.Error(err))
		} else if mask, err := cpu.Current(); err == nil {
			log.Info(ctx, "cpu affinity set", logger.String("mask", fmt.Sprintf("%b", mask)))
		}
	}

	assessor, err := cfg.Assessor()

	if err != nil {
		return err
	}

	est, err := newEstimator(cfg, f)

	if err != nil {
		return err
	}

	defer est.Close()

	capture, err := video.Open(cfg.Source)

	if err != nil {
		return err
	}

	defer capture.Close()

	mgr := metrics.NewManager()

	opts := []monitor.Option{
		monitor.WithAssessor(assessor),
		monitor.WithMetrics(mgr),
		monitor.WithSkeleton(cfg.Display.Skeleton),
		monitor.WithFonts(
			render.AngleFont().Scaled(cfg.Display.FontScale),
			render.LabelFont().Scaled(cfg.Display.FontScale),
		),
		monitor.WithLogger(logger.Named("monitor")),
	}

	var sinks []video.Sink

	if cfg.Display.Window {
		sinks = append(sinks, video.NewWindow(cfg.Display.Title, cfg.Display.WaitMS))
	}

	if cfg.Output.Video != "" {
		fps := cfg.Output.FPS

		if srcFPS := capture.FPS(); srcFPS > 0 {
			fps = srcFPS
		}

		sinks = append(sinks, video.NewWriter(cfg.Output.Video, fps))
	}

	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)

		if err != nil {
			return err
		}

		defer store.Close()

		rec, err := journal.NewRecorder(ctx, store, assessor.Joint.Name, cfg.Source)

		if err != nil {
			return err
		}

		log.Info(ctx, "journal session started",
			logger.String("session", rec.Session().ID),
			logger.String("path", cfg.Journal.Path),
		)

		opts = append(opts, monitor.WithPublishers(rec))
	}

	if cfg.HTTP.Addr != "" {
		stream := video.NewStream()
		h := hub.New()

		sinks = append(sinks, stream)
		opts = append(opts, monitor.WithPublishers(h))

		mux := http.NewServeMux()
		mux.Handle("/metrics", mgr.Handler())
		mux.Handle("/stream", stream)
		mux.Handle("/ws", h)

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Info(ctx, "http server listening", logger.String("addr", cfg.HTTP.Addr))

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "http server failed", logger.Error(err))
			}
		}()

		defer func() {
			// long lived stream and websocket clients are closed first so
			// Shutdown does not wait on them
			stream.Close()
			h.Close()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			srv.Shutdown(shutdownCtx)
		}()
	}

	for _, s := range sinks {
		defer s.Close()
	}

	opts = append(opts, monitor.WithSinks(sinks...))
	mon := monitor.New(capture, est, opts...)

	if f.configFile != "" {
		go func() {
			err := config.Watch(ctx, f.configFile, func(c *config.Config) {
				a, err := c.Assessor()

				if err != nil {
					log.Warn(ctx, "ignoring reloaded config", logger.Error(err))
					return
				}

				mon.SetAssessor(a)
			})

			if err != nil {
				log.Warn(ctx, "config hot reload disabled", logger.Error(err))
			}
		}()
	}

	log.Info(ctx, "monitoring",
		logger.String("source", cfg.Source),
		logger.String("joint", assessor.Joint.Name),
	)

	stats, err := mon.Run(ctx)

	log.Info(ctx, "finished",
		logger.Int("frames", stats.Frames),
		logger.Int("assessed", stats.Assessed),
		logger.Any("skipped", stats.Skipped),
	)

	return err
}

// newEstimator returns the NPU estimator or a fixture replay, optionally
// recording its output
func newEstimator(cfg *config.Config, f flags) (pose.Estimator, error) {

	var (
		est pose.Estimator
		err error
	)

	if f.replay != "" {
		est, err = pose.OpenFixture(f.replay)
	} else {
		if cfg.Model.File == "" {
			return nil, fmt.Errorf("%w: no model file, set model.file or use -m", config.ErrInvalidConfig)
		}

		est, err = rknn.New(rknn.Options{
			Model:        cfg.Model.File,
			Core:         cfg.Model.Core,
			BoxThreshold: float32(cfg.Model.BoxThreshold),
		})
	}

	if err != nil {
		return nil, err
	}

	if f.record == "" {
		return est, nil
	}

	out, err := os.Create(f.record)

	if err != nil {
		est.Close()
		return nil, fmt.Errorf("error creating landmark recording: %w", err)
	}

	return pose.NewFixtureWriter(est, out), nil
}
