package posemon

// DefaultMinVisibility is the landmark confidence required before a joint is
// measured
const DefaultMinVisibility = 0.5

// Assessment is the result of classifying one frame.  It carries everything
// the overlay needs, the angle to print, the label and the vertex position
// to print the angle at.
type Assessment struct {
	Joint  string  `json:"joint"`
	Angle  float64 `json:"angle"`
	Label  Label   `json:"label"`
	Vertex Point   `json:"vertex"`
}

// DisplayAngle returns the angle truncated to whole degrees for display
func (a Assessment) DisplayAngle() int {
	return int(a.Angle)
}

// Assessor measures a single joint and classifies its angle.  Build it with
// NewAssessor, an Assessor whose Joint refers to undefined landmarks never
// produces an assessment.
type Assessor struct {
	Joint         Joint
	Classifier    Classifier
	MinVisibility float64
}

// NewAssessor returns an Assessor for the joint using the given thresholds
func NewAssessor(j Joint, t Thresholds, minVisibility float64) (*Assessor, error) {

	if err := j.Validate(); err != nil {
		return nil, err
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return &Assessor{
		Joint:         j,
		Classifier:    NewClassifier(t),
		MinVisibility: minVisibility,
	}, nil
}

// DefaultAssessor returns an Assessor for the left knee with the default
// thresholds
func DefaultAssessor() *Assessor {
	return &Assessor{
		Joint:         DefaultJoint(),
		Classifier:    NewClassifier(DefaultThresholds()),
		MinVisibility: DefaultMinVisibility,
	}
}

// Assess classifies the posture from the landmarks of a frame.  It returns
// false if the joint's landmarks are not visible enough to be measured, the
// caller must then treat the frame as having no assessment.
func (a *Assessor) Assess(lms *Landmarks) (Assessment, bool) {

	t, ok := a.Joint.Triplet(lms, a.MinVisibility)

	if !ok {
		return Assessment{}, false
	}

	return a.Evaluate(t), true
}

// Evaluate measures the angle of the triplet and classifies it
func (a *Assessor) Evaluate(t JointTriplet) Assessment {

	angle := t.Angle()

	return Assessment{
		Joint:  a.Joint.Name,
		Angle:  angle,
		Label:  a.Classifier.Classify(angle),
		Vertex: t.Vertex,
	}
}
