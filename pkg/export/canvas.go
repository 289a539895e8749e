package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var errCanvasUnavailable = errors.New("canvas unavailable")

// newCanvas allocates a frame's backing image, refusing sizes that are empty
// or above the pixel ceiling.
func newCanvas(width, height int, maxPixels int64) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errCanvasUnavailable, width, height)
	}
	if int64(width)*int64(height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", errCanvasUnavailable, width, height, maxPixels)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// blankImage stands in for a frame whose canvas could not be allocated.
type blankImage struct {
	w, h int
}

func (b blankImage) ColorModel() color.Model { return color.RGBAModel }

func (b blankImage) Bounds() image.Rectangle { return image.Rect(0, 0, b.w, b.h) }

func (b blankImage) At(x, y int) color.Color { return color.RGBA{} }
