package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/swdee/go-posemon"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))

	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func assessment(angle float64, label posemon.Label) posemon.Assessment {
	return posemon.Assessment{
		Joint:  "left_knee",
		Angle:  angle,
		Label:  label,
		Vertex: posemon.Point{X: 0.5, Y: 0.6},
	}
}

func TestStore(t *testing.T) {
	Convey("Given an empty journal", t, func() {
		ctx := context.Background()
		s := openTestStore(t)

		Convey("When asking for the latest session", func() {
			_, err := s.LatestSession(ctx)

			Convey("Then no session is found", func() {
				So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When a session records assessments out of frame order", func() {
			rec, err := NewRecorder(ctx, s, "left_knee", "squats.mp4")
			So(err, ShouldBeNil)

			sid := rec.Session().ID
			So(rec.PublishAssessment(ctx, 5, assessment(80, posemon.SquatGoodDepth)), ShouldBeNil)
			So(rec.PublishAssessment(ctx, 2, assessment(175, posemon.Standing)), ShouldBeNil)
			So(rec.PublishSkip(ctx, 3, "no_detection"), ShouldBeNil)

			entries, err := s.Entries(ctx, sid)

			Convey("Then entries come back in frame order with labels intact", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Frame, ShouldEqual, 2)
				So(entries[0].Assessment.Label, ShouldEqual, posemon.Standing)
				So(entries[1].Assessment, ShouldResemble, assessment(80, posemon.SquatGoodDepth))
			})

			Convey("Then the session can be looked up", func() {
				sess, err := s.Session(ctx, sid)
				So(err, ShouldBeNil)
				So(sess.Source, ShouldEqual, "squats.mp4")
				So(sess.Joint, ShouldEqual, "left_knee")
			})
		})

		Convey("When the recorded joint changes part way through", func() {
			rec, err := NewRecorder(ctx, s, "left_knee", "0")
			So(err, ShouldBeNil)

			first := rec.Session()
			So(rec.PublishAssessment(ctx, 1, assessment(170, posemon.Standing)), ShouldBeNil)

			elbow := assessment(45, posemon.SquatGoodDepth)
			elbow.Joint = "left_elbow"
			So(rec.PublishAssessment(ctx, 2, elbow), ShouldBeNil)
			So(rec.PublishAssessment(ctx, 3, elbow), ShouldBeNil)

			second := rec.Session()

			Convey("Then the new joint is journaled in its own session", func() {
				So(second.ID, ShouldNotEqual, first.ID)
				So(second.Joint, ShouldEqual, "left_elbow")
				So(second.Source, ShouldEqual, "0")

				sum, err := s.Summarize(ctx, first.ID)
				So(err, ShouldBeNil)
				So(sum.Frames, ShouldEqual, 1)

				sum, err = s.Summarize(ctx, second.ID)
				So(err, ShouldBeNil)
				So(sum.Frames, ShouldEqual, 2)
			})
		})

		Convey("When several sessions exist", func() {
			base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			step := 0
			s.now = func() time.Time {
				step++
				return base.Add(time.Duration(step) * time.Millisecond)
			}

			first, err := s.StartSession(ctx, "left_knee", "0")
			So(err, ShouldBeNil)
			second, err := s.StartSession(ctx, "right_elbow", "1")
			So(err, ShouldBeNil)

			Convey("Then the newest is the latest and listed first", func() {
				latest, err := s.LatestSession(ctx)
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, second.ID)

				all, err := s.Sessions(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
				So(all[1].ID, ShouldEqual, first.ID)
			})
		})

		Convey("When looking up an unknown session", func() {
			_, err := s.Summarize(ctx, "missing")

			Convey("Then ErrSessionNotFound is returned", func() {
				So(errors.Is(err, ErrSessionNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given a recorded session", t, func() {
		ctx := context.Background()
		s := openTestStore(t)

		sess, err := s.StartSession(ctx, "left_knee", "0")
		So(err, ShouldBeNil)

		for i, a := range []posemon.Assessment{
			assessment(170, posemon.Standing),
			assessment(120, posemon.Neutral),
			assessment(80, posemon.SquatGoodDepth),
			assessment(70, posemon.SquatGoodDepth),
		} {
			So(s.Record(ctx, sess.ID, i+10, a), ShouldBeNil)
		}

		sum, err := s.Summarize(ctx, sess.ID)

		Convey("Then counts and angle statistics are computed", func() {
			So(err, ShouldBeNil)
			So(sum.Frames, ShouldEqual, 4)
			So(sum.FirstFrame, ShouldEqual, 10)
			So(sum.LastFrame, ShouldEqual, 13)
			So(sum.Labels["squat_good_depth"], ShouldEqual, 2)
			So(sum.Labels["standing"], ShouldEqual, 1)
			So(sum.Labels["neutral"], ShouldEqual, 1)
			So(sum.Angle.Mean, ShouldEqual, 110)
			So(sum.Angle.Min, ShouldEqual, 70)
			So(sum.Angle.Max, ShouldEqual, 170)
			So(sum.LabelAngles["squat_good_depth"].Mean, ShouldEqual, 75)
			So(sum.LabelAngles["standing"].StdDev, ShouldEqual, 0)
		})
	})

	Convey("Given a session without assessments", t, func() {
		sum := Summarize(Session{ID: "x"}, nil)

		Convey("Then every label is present with a zero count", func() {
			So(sum.Frames, ShouldEqual, 0)
			So(len(sum.Labels), ShouldEqual, 3)
			So(sum.Labels["neutral"], ShouldEqual, 0)
		})
	})
}
