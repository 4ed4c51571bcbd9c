package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemon"
)

// limb is a line drawn between two landmarks
type limb struct {
	from, to posemon.LandmarkID
	color    color.RGBA
}

var (
	// skeleton defines the pairs of COCO landmarks joined by a line
	skeleton = []limb{
		{posemon.RightAnkle, posemon.RightKnee, legColor},
		{posemon.RightKnee, posemon.RightHip, legColor},
		{posemon.LeftAnkle, posemon.LeftKnee, legColor},
		{posemon.LeftKnee, posemon.LeftHip, legColor},
		{posemon.LeftHip, posemon.RightHip, bodyColor},
		{posemon.LeftShoulder, posemon.LeftHip, bodyColor},
		{posemon.RightShoulder, posemon.RightHip, bodyColor},
		{posemon.LeftShoulder, posemon.RightShoulder, bodyColor},
		{posemon.LeftShoulder, posemon.LeftElbow, armColor},
		{posemon.RightShoulder, posemon.RightElbow, armColor},
		{posemon.LeftElbow, posemon.LeftWrist, armColor},
		{posemon.RightElbow, posemon.RightWrist, armColor},
		{posemon.LeftEye, posemon.RightEye, faceColor},
		{posemon.Nose, posemon.LeftEye, faceColor},
		{posemon.Nose, posemon.RightEye, faceColor},
		{posemon.LeftEye, posemon.LeftEar, faceColor},
		{posemon.RightEye, posemon.RightEar, faceColor},
		{posemon.LeftEar, posemon.LeftShoulder, faceColor},
		{posemon.RightEar, posemon.RightShoulder, faceColor},
	}
)

// landmarkColor returns the joint circle color matching the limbs
func landmarkColor(id posemon.LandmarkID) color.RGBA {
	switch {
	case id <= posemon.RightEar:
		return faceColor
	case id <= posemon.RightWrist:
		return armColor
	}

	return legColor
}

// Skeleton draws the limbs and joints of lms scaled onto img.  Landmarks
// below minVisibility, and limbs touching them, are not drawn.
func Skeleton(img *gocv.Mat, lms *posemon.Landmarks, minVisibility float64,
	lineThickness int) {

	w, h := img.Cols(), img.Rows()

	for _, l := range skeleton {
		if !lms.Visible(minVisibility, l.from, l.to) {
			continue
		}

		gocv.Line(img, PixelPoint(lms.Get(l.from).Point(), w, h),
			PixelPoint(lms.Get(l.to).Point(), w, h), l.color, lineThickness)
	}

	for id := posemon.LandmarkID(0); id < posemon.NumLandmarks; id++ {
		if !lms.Visible(minVisibility, id) {
			continue
		}

		gocv.Circle(img, PixelPoint(lms.Get(id).Point(), w, h), 3,
			landmarkColor(id), -1)
	}
}

// PixelPoint maps a point normalized to the frame onto pixel coordinates,
// truncating towards zero
func PixelPoint(p posemon.Point, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}
