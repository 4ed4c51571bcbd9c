package posemon

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidJoint is returned when a joint definition can not be used for
// angle measurement
var ErrInvalidJoint = errors.New("invalid joint")

// Joint selects the three landmarks whose angle is monitored.  Vertex is the
// joint being measured, eg: the knee between hip and ankle.
type Joint struct {
	Name     string
	Proximal LandmarkID
	Vertex   LandmarkID
	Distal   LandmarkID
}

var (
	LeftKneeJoint      = Joint{"left_knee", LeftHip, LeftKnee, LeftAnkle}
	RightKneeJoint     = Joint{"right_knee", RightHip, RightKnee, RightAnkle}
	LeftHipJoint       = Joint{"left_hip", LeftShoulder, LeftHip, LeftKnee}
	RightHipJoint      = Joint{"right_hip", RightShoulder, RightHip, RightKnee}
	LeftElbowJoint     = Joint{"left_elbow", LeftShoulder, LeftElbow, LeftWrist}
	RightElbowJoint    = Joint{"right_elbow", RightShoulder, RightElbow, RightWrist}
	LeftShoulderJoint  = Joint{"left_shoulder", LeftHip, LeftShoulder, LeftElbow}
	RightShoulderJoint = Joint{"right_shoulder", RightHip, RightShoulder, RightElbow}

	// builtinJoints indexes the predefined joints by name
	builtinJoints = map[string]Joint{}
)

func init() {
	for _, j := range []Joint{
		LeftKneeJoint, RightKneeJoint, LeftHipJoint, RightHipJoint,
		LeftElbowJoint, RightElbowJoint, LeftShoulderJoint, RightShoulderJoint,
	} {
		builtinJoints[j.Name] = j
	}
}

// DefaultJoint returns the joint monitored when none is configured, the left
// knee
func DefaultJoint() Joint {
	return LeftKneeJoint
}

// JointNames returns the sorted names of the predefined joints
func JointNames() []string {
	names := make([]string, 0, len(builtinJoints))

	for name := range builtinJoints {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// LookupJoint returns the predefined joint with the given name, eg: left_knee
func LookupJoint(name string) (Joint, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")

	if j, ok := builtinJoints[key]; ok {
		return j, nil
	}

	return Joint{}, fmt.Errorf("%w: no joint named %q, choose from %s",
		ErrInvalidJoint, name, strings.Join(JointNames(), ", "))
}

// NewJoint returns a custom joint built from three landmark names
func NewJoint(name, proximal, vertex, distal string) (Joint, error) {

	ids := make([]LandmarkID, 3)

	for i, lm := range []string{proximal, vertex, distal} {
		id, err := ParseLandmarkID(lm)

		if err != nil {
			return Joint{}, fmt.Errorf("%w: %w", ErrInvalidJoint, err)
		}

		ids[i] = id
	}

	j := Joint{
		Name:     name,
		Proximal: ids[0],
		Vertex:   ids[1],
		Distal:   ids[2],
	}

	if j.Name == "" {
		j.Name = strings.ToLower(j.Vertex.String())
	}

	return j, j.Validate()
}

// Validate checks the joint refers to three distinct known landmarks
func (j Joint) Validate() error {

	for _, id := range []LandmarkID{j.Proximal, j.Vertex, j.Distal} {
		if !id.Valid() {
			return fmt.Errorf("%w: %s has %w %d", ErrInvalidJoint, j.Name,
				ErrUnknownLandmark, int(id))
		}
	}

	if j.Proximal == j.Vertex || j.Vertex == j.Distal || j.Proximal == j.Distal {
		return fmt.Errorf("%w: %s landmarks %s, %s, %s are not distinct",
			ErrInvalidJoint, j.Name, j.Proximal, j.Vertex, j.Distal)
	}

	return nil
}

// Landmarks returns the proximal, vertex and distal landmark ids
func (j Joint) Landmarks() []LandmarkID {
	return []LandmarkID{j.Proximal, j.Vertex, j.Distal}
}

// Triplet extracts the joint's three points from the landmark set.  It
// returns false when any of them has a visibility below minVisibility, in
// which case the frame can not be assessed.
func (j Joint) Triplet(lms *Landmarks, minVisibility float64) (JointTriplet, bool) {

	if !lms.Visible(minVisibility, j.Landmarks()...) {
		return JointTriplet{}, false
	}

	return JointTriplet{
		Proximal: lms.Get(j.Proximal).Point(),
		Vertex:   lms.Get(j.Vertex).Point(),
		Distal:   lms.Get(j.Distal).Point(),
	}, true
}
