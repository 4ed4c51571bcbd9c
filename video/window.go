package video

import (
	"gocv.io/x/gocv"
)

// Window shows frames in a desktop window
type Window struct {
	win *gocv.Window
	// waitMS is how long each frame waits for a key press
	waitMS int
}

// NewWindow opens a window with the given title.  waitMS below one is raised
// to one as a zero wait blocks until a key is pressed.
func NewWindow(title string, waitMS int) *Window {

	if waitMS < 1 {
		waitMS = 1
	}

	return &Window{
		win:    gocv.NewWindow(title),
		waitMS: waitMS,
	}
}

// Show displays img and returns ErrQuit when q is pressed
func (w *Window) Show(img gocv.Mat) error {

	w.win.IMShow(img)

	switch w.win.WaitKey(w.waitMS) {
	case 'q', 'Q':
		return ErrQuit
	}

	return nil
}

// Close closes the window
func (w *Window) Close() error {
	return w.win.Close()
}
