package yolo

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Letterbox scales frames of one size into the model input tensor size
// whilst keeping the frame's aspect, padding the remainder
type Letterbox struct {
	srcWidth  int
	srcHeight int
	dstWidth  int
	dstHeight int
	resizeW   int
	resizeH   int
	xPad      int
	yPad      int
	scale     float32
	// tmp holds the scaled frame before padding
	tmp gocv.Mat
	// Color of the padding
	Color color.RGBA
}

// NewLetterbox returns a Letterbox for source frames of srcWidth x srcHeight
// scaled into dstWidth x dstHeight
func NewLetterbox(srcWidth, srcHeight, dstWidth, dstHeight int) *Letterbox {

	l := &Letterbox{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		resizeW:   dstWidth,
		resizeH:   dstHeight,
		tmp:       gocv.NewMat(),
		Color:     color.RGBA{R: 0, G: 0, B: 0, A: 255},
	}

	scaleW := float32(dstWidth) / float32(srcWidth)
	scaleH := float32(dstHeight) / float32(srcHeight)
	l.scale = scaleH

	if scaleW < scaleH {
		l.scale = scaleW
		l.resizeH = int(float32(srcHeight) * l.scale)
	} else {
		l.resizeW = int(float32(srcWidth) * l.scale)
	}

	l.xPad = (dstWidth - l.resizeW) / 2
	l.yPad = (dstHeight - l.resizeH) / 2

	return l
}

// Fits reports whether the Letterbox was built for frames of the given size
func (l *Letterbox) Fits(width, height int) bool {
	return l.srcWidth == width && l.srcHeight == height
}

// Resize scales src into dst adding the letterbox padding
func (l *Letterbox) Resize(src gocv.Mat, dst *gocv.Mat) {

	gocv.Resize(src, &l.tmp, image.Pt(l.resizeW, l.resizeH), 0, 0,
		gocv.InterpolationArea)

	gocv.CopyMakeBorder(l.tmp, dst, l.yPad, l.dstHeight-l.resizeH-l.yPad,
		l.xPad, l.dstWidth-l.resizeW-l.xPad, gocv.BorderConstant, l.Color)
}

// ToSource maps a coordinate in the model input back onto the source frame
func (l *Letterbox) ToSource(x, y float32) (int, int) {
	return int((x - float32(l.xPad)) / l.scale),
		int((y - float32(l.yPad)) / l.scale)
}

// Scale is the factor applied to the source frame
func (l *Letterbox) Scale() float32 {
	return l.scale
}

// Pad returns the horizontal and vertical padding in model input pixels
func (l *Letterbox) Pad() (int, int) {
	return l.xPad, l.yPad
}

// Close frees the scaling buffer
func (l *Letterbox) Close() error {
	return l.tmp.Close()
}
