package video

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func TestWriterThenCapture(t *testing.T) {

	path := filepath.Join(t.TempDir(), "squat.avi")
	frames := 5

	w := NewWriter(path, 0)

	if w.fps != 30 {
		t.Errorf("expected default fps 30, got %f", w.fps)
	}

	img := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer img.Close()

	for i := 0; i < frames; i++ {
		if err := w.Show(img); err != nil {
			t.Fatalf("error writing frame %d: %v", i, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("error closing writer: %v", err)
	}

	c, err := Open(path)

	if err != nil {
		t.Fatalf("error opening written video: %v", err)
	}

	defer c.Close()

	if c.Source() != path {
		t.Errorf("expected source %s, got %s", path, c.Source())
	}

	frame := gocv.NewMat()
	defer frame.Close()

	read := 0

	for {
		err := c.Read(&frame)

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			t.Fatalf("error reading frame: %v", err)
		}

		if frame.Cols() != 64 || frame.Rows() != 48 {
			t.Errorf("frame %d has size %dx%d", read, frame.Cols(), frame.Rows())
		}

		read++
	}

	if read != frames {
		t.Errorf("expected %d frames, read %d", frames, read)
	}
}

func TestOpenMissingFile(t *testing.T) {

	_, err := Open(filepath.Join(t.TempDir(), "missing.mp4"))

	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestWriterCloseWithoutFrames(t *testing.T) {

	w := NewWriter(filepath.Join(t.TempDir(), "empty.avi"), 25)

	if err := w.Close(); err != nil {
		t.Errorf("closing an unused writer should not fail, got %v", err)
	}
}
