package render

import (
	"image"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
)

// LabelOrigin is where the posture label is written
var LabelOrigin = image.Pt(10, 30)

// Assessment writes the angle, truncated to whole degrees, at the joint
// vertex and the posture label in the top left corner of img
func Assessment(img *gocv.Mat, a posemon.Assessment, angleFont, labelFont Font) {

	vertex := PixelPoint(a.Vertex, img.Cols(), img.Rows())

	angleFont.Put(img, strconv.Itoa(a.DisplayAngle()), vertex)
	labelFont.Put(img, a.Label.String(), LabelOrigin)
}
