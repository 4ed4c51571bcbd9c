package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/swdee/go-posemon"
)

func TestManager(t *testing.T) {
	Convey("Given a metrics manager on a fresh registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithNamespace("test"))

		Convey("When frames are read, skipped and assessed", func() {
			m.FrameRead()
			m.FrameRead()
			m.FrameRead()
			m.FrameSkipped("no_detection")
			m.Assessed(posemon.Assessment{Joint: "left_knee", Angle: 172, Label: posemon.Standing})
			m.Assessed(posemon.Assessment{Joint: "left_knee", Angle: 80, Label: posemon.SquatGoodDepth})
			m.ObserveStage(StageEstimate, 12*time.Millisecond)

			Convey("Then the counters reflect each event", func() {
				So(testutil.ToFloat64(m.framesTotal), ShouldEqual, 3)
				So(testutil.ToFloat64(m.framesSkipped.WithLabelValues("no_detection")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.assessments.WithLabelValues("left_knee", "standing")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.assessments.WithLabelValues("left_knee", "squat_good_depth")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.lastAngle.WithLabelValues("left_knee")), ShouldEqual, 80)
			})

			Convey("Then the histograms are populated", func() {
				So(testutil.CollectAndCount(m.jointAngle), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.stageDuration), ShouldEqual, 1)
			})

			Convey("Then the handler exposes them under the namespace", func() {
				rec := httptest.NewRecorder()
				m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

				body, _ := io.ReadAll(rec.Body)
				So(rec.Code, ShouldEqual, 200)
				So(string(body), ShouldContainSubstring, "test_monitor_frames_total 3")
				So(strings.Contains(string(body), `test_monitor_joint_angle_degrees_bucket{joint="left_knee",le="90"} 1`), ShouldBeTrue)
			})
		})
	})
}

func TestDefaultBuckets(t *testing.T) {
	Convey("Given the default manager", t, func() {
		m := NewManager()

		Convey("Then angle buckets span the joint range in 15 degree steps", func() {
			So(m.angleBuckets[0], ShouldEqual, 15)
			So(m.angleBuckets[len(m.angleBuckets)-1], ShouldEqual, 180)
			So(m.Registry(), ShouldNotBeNil)
		})
	})
}
