// Package pose adapts pose estimation models to the landmark set consumed by
// the classification core.
package pose

import (
	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
)

// Estimator extracts the landmarks of the monitored subject from a frame.
// When nobody is detected ok is false, which is not an error, the frame
// simply has no assessment.
type Estimator interface {
	Estimate(img gocv.Mat) (lms posemon.Landmarks, ok bool, err error)
	Close() error
}

// Keypoint is a keypoint in pixel coordinates of the source frame with the
// model's confidence score
type Keypoint struct {
	X     int
	Y     int
	Score float32
}

// Person is one detected body
type Person struct {
	// Score is the person detection confidence
	Score float32
	// Keypoints are in COCO order
	Keypoints []Keypoint
}

// SelectSubject picks the person to assess from all detections in a frame,
// the highest scoring detection with a complete skeleton, and converts its
// keypoints to landmarks normalized by the frame width and height.
func SelectSubject(people []Person, width, height int) (posemon.Landmarks, bool) {

	var lms posemon.Landmarks

	if width <= 0 || height <= 0 {
		return lms, false
	}

	best := -1

	for i, p := range people {
		if len(p.Keypoints) < posemon.NumLandmarks {
			continue
		}

		if best == -1 || p.Score > people[best].Score {
			best = i
		}
	}

	if best == -1 {
		return lms, false
	}

	for j := 0; j < posemon.NumLandmarks; j++ {
		kp := people[best].Keypoints[j]

		lms[j] = posemon.Landmark{
			X:          float64(kp.X) / float64(width),
			Y:          float64(kp.Y) / float64(height),
			Visibility: float64(kp.Score),
		}
	}

	return lms, true
}
