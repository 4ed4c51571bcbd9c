package posemon

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidThresholds is returned when classifier thresholds are not
	// usable angles
	ErrInvalidThresholds = errors.New("invalid posture thresholds")
	// ErrUnknownLabel is returned when parsing a label key that does not exist
	ErrUnknownLabel = errors.New("unknown posture label")
)

// Label is the posture classification given to a single frame
type Label int

const (
	Neutral Label = iota
	Standing
	SquatGoodDepth
)

// labelKeys are the stable identifiers used when a Label is stored or
// exported, indexed by Label
var labelKeys = [...]string{
	Neutral:        "neutral",
	Standing:       "standing",
	SquatGoodDepth: "squat_good_depth",
}

// Labels returns all posture labels in their declared order
func Labels() []Label {
	return []Label{Neutral, Standing, SquatGoodDepth}
}

// String returns the text shown on the video overlay for the label
func (l Label) String() string {
	switch l {
	case Neutral:
		return "Neutral"
	case Standing:
		return "Standing"
	case SquatGoodDepth:
		return "Squat (Good Depth)"
	}

	return fmt.Sprintf("Label(%d)", int(l))
}

// Key returns the stable lower case identifier of the label
func (l Label) Key() string {
	if l < 0 || int(l) >= len(labelKeys) {
		return ""
	}
	return labelKeys[l]
}

// MarshalText implements encoding.TextMarshaler using the label key
func (l Label) MarshalText() ([]byte, error) {
	key := l.Key()

	if key == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, int(l))
	}

	return []byte(key), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))

	if err != nil {
		return err
	}

	*l = parsed
	return nil
}

// ParseLabel returns the Label for the given key
func ParseLabel(key string) (Label, error) {
	for i, k := range labelKeys {
		if k == key {
			return Label(i), nil
		}
	}

	return Neutral, fmt.Errorf("%w: %q", ErrUnknownLabel, key)
}

// Thresholds are the joint angles in degrees used to classify posture
type Thresholds struct {
	// Standing is the angle the joint must exceed to be classed as Standing
	Standing float64
	// Squat is the angle the joint must be below to be classed as
	// SquatGoodDepth
	Squat float64
}

// DefaultThresholds returns the thresholds used for knee flexion, a near
// straight leg above 160 degrees and a squat below 90 degrees
func DefaultThresholds() Thresholds {
	return Thresholds{
		Standing: 160.0,
		Squat:    90.0,
	}
}

// Validate checks both thresholds are angles in the range [0, 180].
// Overlapping thresholds are permitted, in which case the squat rule takes
// precedence.
func (t Thresholds) Validate() error {

	for _, v := range []struct {
		name  string
		angle float64
	}{
		{"standing", t.Standing},
		{"squat", t.Squat},
	} {
		if math.IsNaN(v.angle) || v.angle < 0 || v.angle > 180 {
			return fmt.Errorf("%w: %s threshold %v outside [0, 180]",
				ErrInvalidThresholds, v.name, v.angle)
		}
	}

	return nil
}

// Classifier assigns a posture Label to a joint angle
type Classifier struct {
	Thresholds Thresholds
}

// NewClassifier returns a Classifier using the given thresholds
func NewClassifier(t Thresholds) Classifier {
	return Classifier{Thresholds: t}
}

// Classify returns the posture label for the angle.  Both comparisons are
// strict so an angle equal to a threshold is Neutral.  The squat test is
// applied after the standing test and overrides it.
func (c Classifier) Classify(angle float64) Label {

	label := Neutral

	if angle > c.Thresholds.Standing {
		label = Standing
	}

	if angle < c.Thresholds.Squat {
		label = SquatGoodDepth
	}

	return label
}
