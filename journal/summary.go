package journal

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/swdee/go-posemon"
)

// AngleStats are descriptive statistics of measured angles in degrees
type AngleStats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summary describes the assessments of a session
type Summary struct {
	Session    Session        `json:"session" yaml:"session"`
	Frames     int            `json:"frames" yaml:"frames"`
	FirstFrame int            `json:"first_frame" yaml:"first_frame"`
	LastFrame  int            `json:"last_frame" yaml:"last_frame"`
	Labels     map[string]int `json:"labels" yaml:"labels"`
	Angle      AngleStats     `json:"angle" yaml:"angle"`
	// LabelAngles holds the angle statistics of frames with each label
	LabelAngles map[string]AngleStats `json:"label_angles" yaml:"label_angles"`
}

// Summarize computes the Summary of a session's recorded assessments
func (s *Store) Summarize(ctx context.Context, sessionID string) (Summary, error) {

	sess, err := s.Session(ctx, sessionID)

	if err != nil {
		return Summary{}, err
	}

	entries, err := s.Entries(ctx, sessionID)

	if err != nil {
		return Summary{}, err
	}

	return Summarize(sess, entries), nil
}

// Summarize computes the Summary of the given entries
func Summarize(sess Session, entries []Entry) Summary {

	sum := Summary{
		Session:     sess,
		Frames:      len(entries),
		Labels:      make(map[string]int),
		LabelAngles: make(map[string]AngleStats),
	}

	for _, l := range posemon.Labels() {
		sum.Labels[l.Key()] = 0
	}

	if len(entries) == 0 {
		return sum
	}

	all := make([]float64, len(entries))
	byLabel := make(map[string][]float64)

	sum.FirstFrame = entries[0].Frame
	sum.LastFrame = entries[0].Frame

	for i, e := range entries {
		all[i] = e.Assessment.Angle
		key := e.Assessment.Label.Key()

		sum.Labels[key]++
		byLabel[key] = append(byLabel[key], e.Assessment.Angle)

		if e.Frame < sum.FirstFrame {
			sum.FirstFrame = e.Frame
		}
		if e.Frame > sum.LastFrame {
			sum.LastFrame = e.Frame
		}
	}

	sum.Angle = angleStats(all)

	for key, angles := range byLabel {
		sum.LabelAngles[key] = angleStats(angles)
	}

	return sum
}

// angleStats returns the statistics of a non empty sample
func angleStats(x []float64) AngleStats {

	mean, std := stat.MeanStdDev(x, nil)

	// the unbiased estimate is undefined for a single sample
	if math.IsNaN(std) {
		std = 0
	}

	return AngleStats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(x),
		Max:    floats.Max(x),
	}
}
