package posemon

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLandmark is returned when a landmark name can not be resolved
var ErrUnknownLandmark = errors.New("unknown landmark")

// LandmarkID identifies a body keypoint.  The values follow the COCO keypoint
// order output by YOLOv8-pose models.
type LandmarkID int

const (
	Nose LandmarkID = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// NumLandmarks is the number of keypoints in a skeleton
	NumLandmarks = 17
)

var landmarkNames = [NumLandmarks]string{
	"NOSE",
	"LEFT_EYE",
	"RIGHT_EYE",
	"LEFT_EAR",
	"RIGHT_EAR",
	"LEFT_SHOULDER",
	"RIGHT_SHOULDER",
	"LEFT_ELBOW",
	"RIGHT_ELBOW",
	"LEFT_WRIST",
	"RIGHT_WRIST",
	"LEFT_HIP",
	"RIGHT_HIP",
	"LEFT_KNEE",
	"RIGHT_KNEE",
	"LEFT_ANKLE",
	"RIGHT_ANKLE",
}

// String returns the upper snake case name of the landmark, eg: LEFT_HIP
func (id LandmarkID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("LandmarkID(%d)", int(id))
	}
	return landmarkNames[id]
}

// Valid reports whether id is one of the defined keypoints
func (id LandmarkID) Valid() bool {
	return id >= 0 && id < NumLandmarks
}

// ParseLandmarkID resolves a landmark name.  Matching ignores case and
// accepts dashes or spaces in place of underscores, so "left-hip" and
// "LEFT_HIP" are the same landmark.
func ParseLandmarkID(name string) (LandmarkID, error) {

	norm := strings.ToUpper(strings.TrimSpace(name))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	for i, n := range landmarkNames {
		if n == norm {
			return LandmarkID(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownLandmark, name)
}

// Landmark is a single keypoint position with the model's confidence that
// the keypoint is visible
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"v"`
}

// Point returns the landmark position
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// Landmarks is the full set of keypoints detected for one subject in a frame,
// indexed by LandmarkID
type Landmarks [NumLandmarks]Landmark

// Get returns the landmark for id, or an unseen zero Landmark when id is not
// a defined keypoint
func (l *Landmarks) Get(id LandmarkID) Landmark {
	if !id.Valid() {
		return Landmark{}
	}
	return l[id]
}

// Visible reports whether every given landmark has a visibility of at least
// minVisibility.  Undefined ids are never visible.
func (l *Landmarks) Visible(minVisibility float64, ids ...LandmarkID) bool {
	for _, id := range ids {
		if !id.Valid() {
			return false
		}
		// written negated so a NaN visibility counts as not visible
		if !(l[id].Visibility >= minVisibility) {
			return false
		}
	}
	return true
}
