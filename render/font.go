package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
	}
}

// AngleFont is used for the joint angle written beside the vertex
func AngleFont() Font {
	f := DefaultFont()
	f.Thickness = 2

	return f
}

// LabelFont is used for the posture label in the top left corner
func LabelFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     1,
		Color:     Green,
		Thickness: 2,
		LineType:  gocv.LineAA,
	}
}

// Scaled returns a copy of the font with its size multiplied by s
func (f Font) Scaled(s float64) Font {
	f.Scale *= s

	return f
}

// Put writes text with its baseline starting at pt
func (f Font) Put(img *gocv.Mat, text string, pt image.Point) {
	gocv.PutTextWithParams(img, text, pt, f.Face, f.Scale, f.Color,
		f.Thickness, f.LineType, false)
}

// Size returns the pixel dimensions text occupies and its baseline
func (f Font) Size(text string) (image.Point, int) {
	return gocv.GetTextSizeWithBaseline(text, f.Face, f.Scale, f.Thickness)
}
