// Package video reads frames from cameras or files and delivers annotated
// frames to windows, files and HTTP clients.
package video

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrQuit is returned by a Sink when the user asked to stop
	ErrQuit = errors.New("quit requested")
	// ErrOpen is returned when a video source cannot be opened
	ErrOpen = errors.New("error opening video source")
)

// maxEmptyFrames is the number of consecutive empty frames after which a
// source is treated as ended
const maxEmptyFrames = 100

// Sink receives each annotated frame
type Sink interface {
	Show(img gocv.Mat) error
	Close() error
}

// Capture is a video source, either a camera device or a video file
type Capture struct {
	vc     *gocv.VideoCapture
	source string
}

// Open opens source as a camera when it is an integer device index,
// otherwise as a video file
func Open(source string) (*Capture, error) {

	var (
		vc  *gocv.VideoCapture
		err error
	)

	source = strings.TrimSpace(source)

	if idx, convErr := strconv.Atoi(source); convErr == nil {
		vc, err = gocv.VideoCaptureDevice(idx)
	} else {
		vc, err = gocv.VideoCaptureFile(source)
	}

	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpen, source, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w %q", ErrOpen, source)
	}

	return &Capture{vc: vc, source: source}, nil
}

// Source returns the source name Capture was opened with
func (c *Capture) Source() string {
	return c.source
}

// Read reads the next non empty frame into img, returning io.EOF once the
// stream has ended
func (c *Capture) Read(img *gocv.Mat) error {

	for empty := 0; empty < maxEmptyFrames; empty++ {
		if ok := c.vc.Read(img); !ok {
			return io.EOF
		}

		if !img.Empty() {
			return nil
		}
	}

	return io.EOF
}

// FPS returns the frame rate reported by the source, zero if unknown
func (c *Capture) FPS() float64 {
	return c.vc.Get(gocv.VideoCaptureFPS)
}

// Close releases the source
func (c *Capture) Close() error {
	return c.vc.Close()
}
