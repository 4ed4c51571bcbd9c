package render

import "image/color"

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}

	// posePalette are the colors used for the skeleton
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},
		{R: 51, G: 153, B: 255, A: 255},
		{R: 255, G: 51, B: 255, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
	}

	// limb groups
	armColor  = posePalette[1]
	legColor  = posePalette[0]
	faceColor = posePalette[3]
	bodyColor = posePalette[2]
)
