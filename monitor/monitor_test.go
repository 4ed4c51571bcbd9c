package monitor

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
	"github.com/swdee/go-posemon/logger"
	"github.com/swdee/go-posemon/metrics"
	"github.com/swdee/go-posemon/pose"
	"github.com/swdee/go-posemon/video"
)

// frames is a Source of n blank 640x480 frames
type frames struct {
	n    int
	read int
	err  error
}

func (f *frames) Read(img *gocv.Mat) error {

	if f.read >= f.n {
		if f.err != nil {
			return f.err
		}
		return io.EOF
	}

	f.read++

	if img.Empty() {
		img.Close()
		*img = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	} else {
		img.SetTo(gocv.NewScalar(0, 0, 0, 0))
	}

	return nil
}

// sink counts frames and quits after quitAfter frames when set
type sink struct {
	shown     int
	quitAfter int
	err       error
}

func (s *sink) Show(gocv.Mat) error {
	s.shown++

	if s.quitAfter > 0 && s.shown >= s.quitAfter {
		return video.ErrQuit
	}

	return s.err
}

func (s *sink) Close() error { return nil }

type event struct {
	frame  int
	label  posemon.Label
	reason string
}

// recorder is a Publisher keeping every event
type recorder struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (r *recorder) PublishAssessment(_ context.Context, frame int, a posemon.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{frame: frame, label: a.Label})
	return r.err
}

func (r *recorder) PublishSkip(_ context.Context, frame int, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{frame: frame, reason: reason})
	return r.err
}

type failing struct{}

func (failing) Estimate(gocv.Mat) (posemon.Landmarks, bool, error) {
	return posemon.Landmarks{}, false, errors.New("npu timeout")
}

func (failing) Close() error { return nil }

func leg(ankle posemon.Point, ankleVis float64) *posemon.Landmarks {
	var lms posemon.Landmarks

	lms[posemon.LeftHip] = posemon.Landmark{X: 0.5, Y: 0.3, Visibility: 0.9}
	lms[posemon.LeftKnee] = posemon.Landmark{X: 0.5, Y: 0.6, Visibility: 0.9}
	lms[posemon.LeftAnkle] = posemon.Landmark{X: ankle.X, Y: ankle.Y, Visibility: ankleVis}

	return &lms
}

var (
	standing = leg(posemon.Point{X: 0.5, Y: 0.9}, 0.9)
	squat    = leg(posemon.Point{X: 0.25, Y: 0.55}, 0.9)
	hidden   = leg(posemon.Point{X: 0.25, Y: 0.55}, 0.2)
)

func TestRun(t *testing.T) {
	convey.Convey("Given a monitor replaying recorded poses", t, func() {
		fx := pose.NewFixture([]*posemon.Landmarks{standing, nil, squat, hidden, squat})
		src := &frames{n: 5}
		out := &sink{}
		pub := &recorder{}
		mgr := metrics.NewManager()

		m := New(src, fx,
			WithSinks(out),
			WithPublishers(pub),
			WithMetrics(mgr),
			WithSkeleton(true),
			WithLogger(logger.Nop()),
		)

		stats, err := m.Run(context.Background())

		convey.Convey("It stops cleanly at the end of the video", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.Frames, convey.ShouldEqual, 5)
			convey.So(out.shown, convey.ShouldEqual, 5)
		})

		convey.Convey("Each frame is assessed or skipped with a reason", func() {
			convey.So(stats.Assessed, convey.ShouldEqual, 3)
			convey.So(stats.Skipped[SkipNoDetection], convey.ShouldEqual, 1)
			convey.So(stats.Skipped[SkipLowVisibility], convey.ShouldEqual, 1)
		})

		convey.Convey("Publishers see every frame in order", func() {
			convey.So(pub.events, convey.ShouldResemble, []event{
				{frame: 1, label: posemon.Standing},
				{frame: 2, reason: "no_detection"},
				{frame: 3, label: posemon.SquatGoodDepth},
				{frame: 4, reason: "low_visibility"},
				{frame: 5, label: posemon.SquatGoodDepth},
			})
		})

		convey.Convey("Metrics count frames and labels", func() {
			rec := httptest.NewRecorder()
			mgr.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			body := rec.Body.String()
			convey.So(body, convey.ShouldContainSubstring, "posemon_monitor_frames_total 5")
			convey.So(body, convey.ShouldContainSubstring,
				`posemon_monitor_assessments_total{joint="left_knee",label="squat_good_depth"} 2`)
			convey.So(body, convey.ShouldContainSubstring,
				`posemon_monitor_frames_skipped_total{reason="low_visibility"} 1`)
		})
	})
}

func TestRunStops(t *testing.T) {
	convey.Convey("Given a monitor over a long video", t, func() {
		fx := pose.NewFixture([]*posemon.Landmarks{squat})
		fx.Loop = true

		convey.Convey("A sink asking to quit ends the run without error", func() {
			out := &sink{quitAfter: 3}
			m := New(&frames{n: 100}, fx, WithSinks(out), WithLogger(logger.Nop()))

			stats, err := m.Run(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.Frames, convey.ShouldEqual, 3)
		})

		convey.Convey("A cancelled context ends the run without error", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			m := New(&frames{n: 100}, fx, WithLogger(logger.Nop()))

			stats, err := m.Run(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(stats.Frames, convey.ShouldEqual, 0)
		})

		convey.Convey("A failing sink ends the run with its error", func() {
			boom := errors.New("disk full")
			m := New(&frames{n: 100}, fx, WithSinks(&sink{err: boom}), WithLogger(logger.Nop()))

			_, err := m.Run(context.Background())
			convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
		})

		convey.Convey("A failing source ends the run with its error", func() {
			boom := errors.New("camera unplugged")
			m := New(&frames{n: 2, err: boom}, fx, WithLogger(logger.Nop()))

			stats, err := m.Run(context.Background())
			convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			convey.So(stats.Frames, convey.ShouldEqual, 2)
		})
	})
}

func TestProcessFrame(t *testing.T) {
	convey.Convey("Given a single frame", t, func() {
		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
		defer img.Close()

		convey.Convey("Estimator errors are reported and skipped", func() {
			pub := &recorder{}
			m := New(&frames{}, failing{}, WithPublishers(pub), WithLogger(logger.Nop()))

			res := m.ProcessFrame(context.Background(), 1, &img)
			convey.So(res.Assessed(), convey.ShouldBeFalse)
			convey.So(res.Skip, convey.ShouldEqual, SkipEstimatorError)
			convey.So(res.Err, convey.ShouldNotBeNil)
			convey.So(pub.events, convey.ShouldResemble, []event{{frame: 1, reason: "estimator_error"}})
		})

		convey.Convey("Frames without detection are left untouched", func() {
			m := New(&frames{}, pose.NewFixture([]*posemon.Landmarks{nil}),
				WithSkeleton(true), WithLogger(logger.Nop()))

			res := m.ProcessFrame(context.Background(), 1, &img)
			convey.So(res.Detected, convey.ShouldBeFalse)
			convey.So(img.Sum().Val1+img.Sum().Val2+img.Sum().Val3, convey.ShouldEqual, 0)
		})

		convey.Convey("Assessed frames carry the overlay", func() {
			m := New(&frames{}, pose.NewFixture([]*posemon.Landmarks{squat}), WithLogger(logger.Nop()))

			res := m.ProcessFrame(context.Background(), 1, &img)
			convey.So(res.Assessed(), convey.ShouldBeTrue)
			convey.So(res.Assessment.Label, convey.ShouldEqual, posemon.SquatGoodDepth)
			convey.So(res.Assessment.DisplayAngle(), convey.ShouldEqual, 78)
			convey.So(img.Sum().Val2, convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("Publisher errors do not stop processing", func() {
			pub := &recorder{err: errors.New("journal locked")}
			m := New(&frames{}, pose.NewFixture([]*posemon.Landmarks{squat}),
				WithPublishers(pub), WithLogger(logger.Nop()))

			res := m.ProcessFrame(context.Background(), 1, &img)
			convey.So(res.Assessed(), convey.ShouldBeTrue)
			convey.So(pub.events, convey.ShouldHaveLength, 1)
		})
	})
}

func TestSetAssessor(t *testing.T) {
	convey.Convey("Given a monitor with the default assessor", t, func() {
		img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
		defer img.Close()

		fx := pose.NewFixture([]*posemon.Landmarks{squat})
		fx.Loop = true

		m := New(&frames{}, fx, WithLogger(logger.Nop()))
		convey.So(m.Assessor().Joint.Name, convey.ShouldEqual, "left_knee")

		res := m.ProcessFrame(context.Background(), 1, &img)
		convey.So(res.Assessment.Label, convey.ShouldEqual, posemon.SquatGoodDepth)

		convey.Convey("A reloaded threshold applies to the next frame", func() {
			a, err := posemon.NewAssessor(posemon.DefaultJoint(),
				posemon.Thresholds{Standing: 160, Squat: 70}, 0.5)
			convey.So(err, convey.ShouldBeNil)

			m.SetAssessor(a)

			res := m.ProcessFrame(context.Background(), 2, &img)
			convey.So(res.Assessment.Label, convey.ShouldEqual, posemon.Neutral)
		})

		convey.Convey("A nil assessor is ignored", func() {
			m.SetAssessor(nil)
			convey.So(m.Assessor(), convey.ShouldNotBeNil)
		})
	})
}
