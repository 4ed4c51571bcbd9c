// Package monitor drives the frame loop: it reads frames, estimates the
// subject's pose, assesses the selected joint, draws the overlay and hands
// the annotated frame and assessment on.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
	"github.com/swdee/go-posemon/metrics"
	"github.com/swdee/go-posemon/pose"
	"github.com/swdee/go-posemon/render"
	"github.com/swdee/go-posemon/video"
)

// SkipReason explains why a frame has no assessment
type SkipReason string

const (
	// SkipNoDetection means the estimator found nobody in the frame
	SkipNoDetection SkipReason = "no_detection"
	// SkipLowVisibility means a landmark of the joint was not visible enough
	SkipLowVisibility SkipReason = "low_visibility"
	// SkipEstimatorError means pose estimation failed for the frame
	SkipEstimatorError SkipReason = "estimator_error"
)

// Source supplies frames, returning io.EOF at the end of the stream
type Source interface {
	Read(img *gocv.Mat) error
}

// Publisher receives the outcome of every frame
type Publisher interface {
	PublishAssessment(ctx context.Context, frame int, a posemon.Assessment) error
	PublishSkip(ctx context.Context, frame int, reason string) error
}

// Result is the outcome of processing one frame
type Result struct {
	Frame int
	// Assessment is only set when Skip is empty
	Assessment posemon.Assessment
	Skip       SkipReason
	// Detected is true when a subject was found, Landmarks are then set
	Detected  bool
	Landmarks posemon.Landmarks
	// Err is the estimator error for SkipEstimatorError
	Err error
}

// Assessed reports whether the frame produced an assessment
func (r Result) Assessed() bool {
	return r.Skip == ""
}

// Stats counts the outcome of the frames processed by Run
type Stats struct {
	Frames   int
	Assessed int
	Skipped  map[SkipReason]int
}

// Monitor runs a pose Estimator and an Assessor over a video Source
type Monitor struct {
	src       Source
	est       pose.Estimator
	assessor  atomic.Pointer[posemon.Assessor]
	sinks     []video.Sink
	pubs      []Publisher
	log       logger.Logger
	metrics   *metrics.Manager
	skeleton  bool
	angleFont render.Font
	labelFont render.Font
}

// New returns a Monitor reading frames from src
func New(src Source, est pose.Estimator, opts ...Option) *Monitor {

	m := &Monitor{
		src:       src,
		est:       est,
		log:       logger.Named("monitor"),
		angleFont: render.AngleFont(),
		labelFont: render.LabelFont(),
	}

	m.assessor.Store(posemon.DefaultAssessor())

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// SetAssessor replaces the assessor used from the next frame on
func (m *Monitor) SetAssessor(a *posemon.Assessor) {

	if a == nil {
		return
	}

	m.assessor.Store(a)

	m.log.Info(context.Background(), "assessor updated",
		logger.String("joint", a.Joint.Name),
		logger.Float64("standing", a.Classifier.Thresholds.Standing),
		logger.Float64("squat", a.Classifier.Thresholds.Squat),
		logger.Float64("min_visibility", a.MinVisibility),
	)
}

// Assessor returns the assessor currently in use
func (m *Monitor) Assessor() *posemon.Assessor {
	return m.assessor.Load()
}

// Run processes frames until ctx is cancelled, the source ends or a sink
// asks to quit.  None of those are errors, a failing source or sink is.
func (m *Monitor) Run(ctx context.Context) (Stats, error) {

	stats := Stats{Skipped: make(map[SkipReason]int)}

	img := gocv.NewMat()
	defer img.Close()

	for {
		if ctx.Err() != nil {
			m.log.Info(ctx, "monitor stopped", logger.Int("frames", stats.Frames))
			return stats, nil
		}

		err := m.src.Read(&img)

		if errors.Is(err, io.EOF) {
			m.log.Info(ctx, "end of video", logger.Int("frames", stats.Frames))
			return stats, nil
		}

		if err != nil {
			return stats, fmt.Errorf("error reading frame: %w", err)
		}

		stats.Frames++

		res := m.ProcessFrame(ctx, stats.Frames, &img)

		if res.Assessed() {
			stats.Assessed++
		} else {
			stats.Skipped[res.Skip]++
		}

		for _, s := range m.sinks {
			err := s.Show(img)

			if errors.Is(err, video.ErrQuit) {
				m.log.Info(ctx, "quit requested", logger.Int("frames", stats.Frames))
				return stats, nil
			}

			if err != nil {
				return stats, fmt.Errorf("error showing frame: %w", err)
			}
		}
	}
}

// ProcessFrame estimates, assesses and annotates frame n in place
func (m *Monitor) ProcessFrame(ctx context.Context, n int, img *gocv.Mat) Result {

	if m.metrics != nil {
		m.metrics.FrameRead()
	}

	res := Result{Frame: n}
	assessor := m.assessor.Load()

	start := time.Now()
	lms, ok, err := m.est.Estimate(*img)
	m.observe(metrics.StageEstimate, start)

	switch {
	case err != nil:
		m.log.Warn(ctx, "pose estimation failed", logger.Int("frame", n), logger.Error(err))
		res.Skip, res.Err = SkipEstimatorError, err
		m.skipped(ctx, res)
		return res

	case !ok:
		res.Skip = SkipNoDetection
		m.skipped(ctx, res)
		return res
	}

	res.Detected, res.Landmarks = true, lms

	start = time.Now()
	a, ok := assessor.Assess(&res.Landmarks)
	m.observe(metrics.StageAssess, start)

	if !ok {
		res.Skip = SkipLowVisibility
	} else {
		res.Assessment = a
	}

	start = time.Now()

	if m.skeleton {
		render.Skeleton(img, &res.Landmarks, assessor.MinVisibility, 2)
	}

	if ok {
		render.Assessment(img, a, m.angleFont, m.labelFont)
	}

	m.observe(metrics.StageRender, start)

	if !ok {
		m.skipped(ctx, res)
		return res
	}

	if m.metrics != nil {
		m.metrics.Assessed(a)
	}

	m.log.Debug(ctx, "frame assessed",
		logger.Int("frame", n),
		logger.String("joint", a.Joint),
		logger.Float64("angle", a.Angle),
		logger.String("label", a.Label.Key()),
	)

	for _, p := range m.pubs {
		if err := p.PublishAssessment(ctx, n, a); err != nil {
			m.log.Warn(ctx, "error publishing assessment", logger.Int("frame", n), logger.Error(err))
		}
	}

	return res
}

// skipped counts and publishes a frame without assessment
func (m *Monitor) skipped(ctx context.Context, res Result) {

	if m.metrics != nil {
		m.metrics.FrameSkipped(string(res.Skip))
	}

	for _, p := range m.pubs {
		if err := p.PublishSkip(ctx, res.Frame, string(res.Skip)); err != nil {
			m.log.Warn(ctx, "error publishing skip", logger.Int("frame", res.Frame), logger.Error(err))
		}
	}
}

func (m *Monitor) observe(s metrics.Stage, start time.Time) {
	if m.metrics != nil {
		m.metrics.ObserveStage(s, time.Since(start))
	}
}
