// Package config defines the monitor configuration and how it is loaded.
//
// Values are layered from defaults, an optional YAML file and POSEMON_
// prefixed environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/swdee/go-posemon"
)

// Sentinel error kinds for this package
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config is the complete monitor configuration
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Source is the video source, a camera device index such as "0" or the
	// path of a video file.
	Source string `koanf:"source"`

	Model Model `koanf:"model"`

	// Joint selects which joint angle is monitored.
	Joint Joint `koanf:"joint"`

	Thresholds Thresholds `koanf:"thresholds"`

	// MinVisibility is the landmark confidence required on all three joint
	// landmarks before a frame is assessed.
	MinVisibility float64 `koanf:"min_visibility"`

	Display Display `koanf:"display"`
	Output  Output  `koanf:"output"`
	HTTP    HTTP    `koanf:"http"`
	Journal Journal `koanf:"journal"`
}

// Model configures the RKNN pose estimation model
type Model struct {
	// File is the RKNN compiled YOLOv8-pose model.
	File string `koanf:"file"`

	// BoxThreshold is the minimum person detection score.
	BoxThreshold float64 `koanf:"box_threshold"`

	// Core is the NPU core to run on: auto, 0, 1, 2, 0_1, 0_1_2 or skip for
	// SoCs that do not support core selection.
	Core string `koanf:"core"`

	// CPUAffinity pins the process to CPU cores, either platform:type such
	// as rk3588:fast or a list of core numbers.  Empty leaves it unpinned.
	CPUAffinity string `koanf:"cpu_affinity"`
}

// Joint is either a predefined joint Name or a custom landmark triplet.  The
// triplet takes precedence when all three landmarks are set.
type Joint struct {
	Name     string `koanf:"name"`
	Proximal string `koanf:"proximal"`
	Vertex   string `koanf:"vertex"`
	Distal   string `koanf:"distal"`
}

// Thresholds are the posture classification angles in degrees
type Thresholds struct {
	Standing float64 `koanf:"standing"`
	Squat    float64 `koanf:"squat"`
}

// Display configures the local preview window
type Display struct {
	Window   bool   `koanf:"window"`
	Title    string `koanf:"title"`
	Skeleton bool   `koanf:"skeleton"`

	// WaitMS is the key poll delay of the window per frame.
	WaitMS int `koanf:"wait_ms"`

	// FontScale multiplies the size of the angle and label overlay text.
	FontScale float64 `koanf:"font_scale"`
}

// Output configures recording of the annotated video
type Output struct {
	// Video is the file to write, empty disables recording.
	Video string  `koanf:"video"`
	FPS   float64 `koanf:"fps"`
}

// HTTP configures the server exposing /metrics, /stream and /ws
type HTTP struct {
	// Addr is the listen address, empty disables the server.
	Addr string `koanf:"addr"`
}

// Journal configures persistence of assessments
type Journal struct {
	// Path of the SQLite database, empty disables the journal.
	Path string `koanf:"path"`
}

// New returns a Config populated with defaults
func New() *Config {
	th := posemon.DefaultThresholds()

	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Source:    "0",
		Model: Model{
			BoxThreshold: 0.5,
			Core:         "auto",
		},
		Joint: Joint{
			Name: posemon.DefaultJoint().Name,
		},
		Thresholds: Thresholds{
			Standing: th.Standing,
			Squat:    th.Squat,
		},
		MinVisibility: posemon.DefaultMinVisibility,
		Display: Display{
			Window:    true,
			Title:     "posemon",
			Skeleton:  true,
			WaitMS:    10,
			FontScale: 1,
		},
		Output: Output{
			FPS: 30,
		},
	}
}

// JointSelection resolves the configured joint
func (c *Config) JointSelection() (posemon.Joint, error) {

	j := c.Joint

	if j.Proximal != "" || j.Vertex != "" || j.Distal != "" {
		return posemon.NewJoint(j.Name, j.Proximal, j.Vertex, j.Distal)
	}

	return posemon.LookupJoint(j.Name)
}

// Assessor builds the classification core for the configured joint and
// thresholds
func (c *Config) Assessor() (*posemon.Assessor, error) {

	j, err := c.JointSelection()

	if err != nil {
		return nil, err
	}

	return posemon.NewAssessor(j, posemon.Thresholds{
		Standing: c.Thresholds.Standing,
		Squat:    c.Thresholds.Squat,
	}, c.MinVisibility)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {

	if strings.TrimSpace(c.Source) == "" {
		return fmt.Errorf("%w: source must not be empty", ErrInvalidConfig)
	}

	if c.MinVisibility < 0 || c.MinVisibility > 1 {
		return fmt.Errorf("%w: min_visibility %v outside [0, 1]", ErrInvalidConfig, c.MinVisibility)
	}

	if c.Model.BoxThreshold <= 0 || c.Model.BoxThreshold >= 1 {
		return fmt.Errorf("%w: model.box_threshold %v outside (0, 1)", ErrInvalidConfig, c.Model.BoxThreshold)
	}

	switch strings.ToLower(c.Model.Core) {
	case "auto", "0", "1", "2", "0_1", "0_1_2", "skip":
	default:
		return fmt.Errorf("%w: model.core %q must be auto, 0, 1, 2, 0_1, 0_1_2 or skip", ErrInvalidConfig, c.Model.Core)
	}

	if c.Model.CPUAffinity != "" {
		if _, err := ParseAffinity(c.Model.CPUAffinity); err != nil {
			return err
		}
	}

	if c.Display.FontScale <= 0 {
		return fmt.Errorf("%w: display.font_scale must be positive", ErrInvalidConfig)
	}

	if c.Output.Video != "" && c.Output.FPS <= 0 {
		return fmt.Errorf("%w: output.fps must be positive", ErrInvalidConfig)
	}

	if _, err := c.Assessor(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}
