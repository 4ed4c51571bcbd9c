package yolo

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestLetterbox(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		dstWidth      int
		dstHeight     int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		dst := gocv.NewMat()

		lb := NewLetterbox(tc.srcWidth, tc.srcHeight, tc.dstWidth, tc.dstHeight)
		lb.Resize(img, &dst)

		xPad, yPad := lb.Pad()

		if xPad != tc.expectedXPad || yPad != tc.expectedYPad {
			t.Errorf("src (%d, %d): expected pad (%d, %d), got (%d, %d)",
				tc.srcWidth, tc.srcHeight, tc.expectedXPad, tc.expectedYPad, xPad, yPad)
		}

		if lb.Scale() != tc.expectedScale {
			t.Errorf("src (%d, %d): expected scale %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, lb.Scale())
		}

		if dst.Cols() != tc.dstWidth || dst.Rows() != tc.dstHeight {
			t.Errorf("src (%d, %d): resized to %dx%d", tc.srcWidth, tc.srcHeight,
				dst.Cols(), dst.Rows())
		}

		if !lb.Fits(tc.srcWidth, tc.srcHeight) {
			t.Errorf("src (%d, %d): letterbox should fit its own source size",
				tc.srcWidth, tc.srcHeight)
		}

		img.Close()
		dst.Close()
		lb.Close()
	}
}

func TestLetterboxToSource(t *testing.T) {

	lb := NewLetterbox(1280, 720, 640, 640)
	defer lb.Close()

	x, y := lb.ToSource(320, 320)

	if x != 640 || y != 360 {
		t.Errorf("expected model centre to map to frame centre (640, 360), got (%d, %d)", x, y)
	}
}
