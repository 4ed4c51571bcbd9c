package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Writer saves frames to a MJPG encoded video file.  The file is created on
// the first frame so its dimensions match the source.
type Writer struct {
	path string
	fps  float64
	vw   *gocv.VideoWriter
}

// NewWriter returns a Writer for path, fps below one defaults to 30
func NewWriter(path string, fps float64) *Writer {

	if fps < 1 {
		fps = 30
	}

	return &Writer{path: path, fps: fps}
}

// Show appends img to the video file
func (w *Writer) Show(img gocv.Mat) error {

	if w.vw == nil {
		vw, err := gocv.VideoWriterFile(w.path, "MJPG", w.fps, img.Cols(), img.Rows(), true)

		if err != nil {
			return fmt.Errorf("error opening video writer %s: %w", w.path, err)
		}

		w.vw = vw
	}

	return w.vw.Write(img)
}

// Close finalises the video file
func (w *Writer) Close() error {

	if w.vw == nil {
		return nil
	}

	return w.vw.Close()
}
